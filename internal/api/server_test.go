package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskverse/internal/logging"
	"taskverse/pkg/task"
	"taskverse/pkg/task/storetest"
)

func newTestServer(t *testing.T) (*Server, task.Store) {
	t.Helper()
	clock := storetest.NewClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	store := task.NewMemStore(task.WithClock(clock.Now))
	return New(store), store
}

func testLogger(t *testing.T, w io.Writer) *log.Logger {
	t.Helper()
	l, err := logging.New(w, "debug", "text")
	require.NoError(t, err)
	return l
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestTaskLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(t, srv, "POST", "/tasks", `{"title":"Write spec","dueDate":"2024-06-01","status":"To-Do"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	created := decode[map[string]any](t, w)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "To-Do", created["status"])
	assert.Equal(t, "2024-06-01T00:00:00.000Z", created["dueDate"])
	assert.Equal(t, "", created["description"])
	assert.Equal(t, "2024-05-01T09:00:01.000Z", created["createdAt"])

	w = do(t, srv, "PUT", "/tasks/"+id, `{"status":"Done"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[map[string]any](t, w)
	assert.Equal(t, "Done", updated["status"])
	assert.Equal(t, "Write spec", updated["title"])
	assert.Equal(t, created["dueDate"], updated["dueDate"])
	assert.Equal(t, created["createdAt"], updated["createdAt"])
	assert.NotEqual(t, created["updatedAt"], updated["updatedAt"])

	w = do(t, srv, "GET", "/tasks/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, updated, decode[map[string]any](t, w))

	w = do(t, srv, "DELETE", "/tasks/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = do(t, srv, "GET", "/tasks/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decode[map[string]string](t, w)["error"], "not found")

	w = do(t, srv, "DELETE", "/tasks/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateValidation(t *testing.T) {
	srv, store := newTestServer(t)
	cases := map[string]string{
		"missing title":   `{"dueDate":"2024-06-01"}`,
		"empty title":     `{"title":"","dueDate":"2024-06-01"}`,
		"missing dueDate": `{"title":"t"}`,
		"bad dueDate":     `{"title":"t","dueDate":"next week"}`,
		"zero dueDate":    `{"title":"t","dueDate":"0001-01-01"}`,
		"invalid status":  `{"title":"t","dueDate":"2024-06-01","status":"completed"}`,
		"malformed json":  `{"title":`,
		"wrong type":      `{"title":42,"dueDate":"2024-06-01"}`,
	}
	for name, body := range cases {
		w := do(t, srv, "POST", "/tasks", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
		assert.NotEmpty(t, decode[map[string]string](t, w)["error"], name)
	}

	w := do(t, srv, "POST", "/tasks", `{"title":"t","dueDate":"0001-01-01"}`)
	assert.Contains(t, decode[map[string]string](t, w)["error"], "out of range")

	all, err := store.List(context.Background(), task.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateRejectsOversizedBody(t *testing.T) {
	srv, _ := newTestServer(t)
	body := `{"title":"` + strings.Repeat("x", maxBodyBytes) + `","dueDate":"2024-06-01"}`
	w := do(t, srv, "POST", "/tasks", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdate(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()
	tk, err := store.Create(ctx, task.CreateTask{Title: "t", Description: "d", DueDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	w := do(t, srv, "PUT", "/tasks/"+tk.ID, `{"status":"pending"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[map[string]string](t, w)["error"], "status")

	w = do(t, srv, "PUT", "/tasks/missing", `{"status":"Done"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, srv, "PATCH", "/tasks/"+tk.ID, `{"description":"new","dueDate":"2024-07-01T12:00:00Z"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[task.Task](t, w)
	assert.Equal(t, "t", got.Title)
	assert.Equal(t, "new", got.Description)
	assert.Equal(t, task.StatusTodo, got.Status)
	assert.True(t, time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC).Equal(got.DueDate))

	w = do(t, srv, "PUT", "/tasks/"+tk.ID, `{}`)
	require.Equal(t, http.StatusOK, w.Code)
	same := decode[task.Task](t, w)
	assert.Equal(t, got.Title, same.Title)
	assert.Equal(t, got.Description, same.Description)
	assert.True(t, same.UpdatedAt.After(got.UpdatedAt))
}

func TestListFilter(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()
	due := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, st := range []task.Status{task.StatusDone, task.StatusTodo, task.StatusDone, task.StatusInProgress} {
		_, err := store.Create(ctx, task.CreateTask{Title: string(st), DueDate: due, Status: st})
		require.NoError(t, err)
	}

	w := do(t, srv, "GET", "/tasks", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]task.Task](t, w), 4)

	w = do(t, srv, "GET", "/tasks?status=", "")
	assert.Len(t, decode[[]task.Task](t, w), 4)

	w = do(t, srv, "GET", "/tasks?status=Done", "")
	done := decode[[]task.Task](t, w)
	require.Len(t, done, 2)
	for _, tk := range done {
		assert.Equal(t, task.StatusDone, tk.Status)
	}

	w = do(t, srv, "GET", "/tasks?status=In+Progress", "")
	assert.Len(t, decode[[]task.Task](t, w), 1)

	w = do(t, srv, "GET", "/tasks?status=completed", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestListEmptyIsArray(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv, "GET", "/tasks", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv, "DELETE", "/tasks", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRequestID(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv, "GET", "/health", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	r := httptest.NewRequest("GET", "/health", nil)
	r.Header.Set("X-Request-Id", "abc-123")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, r)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-Id"))
}

func TestCORS(t *testing.T) {
	srv := New(task.NewMemStore(), WithCORSOrigin("http://localhost:3000"))

	r := httptest.NewRequest("OPTIONS", "/tasks/abc", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	r.Header.Set("Access-Control-Request-Method", "PUT")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PUT")

	w = do(t, srv, "GET", "/tasks", "")
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	off := New(task.NewMemStore(), WithCORSOrigin(""))
	w = do(t, off, "GET", "/tasks", "")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

// brokenStore fails every call the way an unreachable database would.
type brokenStore struct {
	task.Store
	err   error
	panic bool
}

func (s brokenStore) List(context.Context, task.Filter) ([]task.Task, error) {
	if s.panic {
		panic("boom")
	}
	return nil, s.err
}

func (s brokenStore) Get(context.Context, string) (*task.Task, error) {
	return nil, s.err
}

func TestStoreFailureIs500(t *testing.T) {
	var logs bytes.Buffer
	logger := testLogger(t, &logs)
	srv := New(brokenStore{err: errors.New("connection refused")}, WithLogger(logger))

	w := do(t, srv, "GET", "/tasks", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
	assert.Contains(t, logs.String(), "connection refused")

	w = do(t, srv, "GET", "/tasks/abc", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestPanicRecovered(t *testing.T) {
	var logs bytes.Buffer
	srv := New(brokenStore{panic: true}, WithLogger(testLogger(t, &logs)))

	w := do(t, srv, "GET", "/tasks", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, logs.String(), "panic recovered")
}

func TestEncodeFailureLogsThroughServerLogger(t *testing.T) {
	var logs bytes.Buffer
	srv := New(task.NewMemStore(), WithLogger(testLogger(t, &logs)))

	r := httptest.NewRequest("GET", "/tasks", nil)
	r = r.WithContext(context.WithValue(r.Context(), requestIDKey, "rid-42"))
	w := httptest.NewRecorder()
	srv.writeJSON(w, r, http.StatusOK, make(chan int))

	assert.Contains(t, logs.String(), "write json")
	assert.Contains(t, logs.String(), "rid-42")
}
