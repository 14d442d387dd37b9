// Package storetest is a conformance suite for task.Store implementations.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskverse/pkg/task"
)

// Factory returns an empty store configured with opts.
type Factory func(t *testing.T, opts ...task.Option) task.Store

// Clock is a deterministic time source that advances one second per call.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a Clock at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// Missing ids that no store will ever assign: a malformed one and a
// well-formed ObjectID hex.
var missingIDs = []string{"does-not-exist", "64b7f0c2a1b2c3d4e5f60718"}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

// Run exercises every Store operation against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	setup := func(t *testing.T) task.Store {
		t.Helper()
		s := newStore(t, task.WithClock(NewClock(start).Now))
		require.NoError(t, s.EnsureSchema(ctx))
		return s
	}

	t.Run("CreateThenGet", func(t *testing.T) {
		s := setup(t)
		in := task.CreateTask{
			Title:       "Write spec",
			Description: "the task resource",
			DueDate:     time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC),
			Status:      task.StatusInProgress,
		}
		created, err := s.Create(ctx, in)
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)
		assert.False(t, created.CreatedAt.IsZero())
		assert.Equal(t, created.CreatedAt, created.UpdatedAt)

		got, err := s.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, *created, *got)
		assert.Equal(t, in.Title, got.Title)
		assert.Equal(t, in.Description, got.Description)
		assert.True(t, in.DueDate.Equal(got.DueDate))
		assert.Equal(t, in.Status, got.Status)
	})

	t.Run("CreateDefaultsStatusAndDescription", func(t *testing.T) {
		s := setup(t)
		created, err := s.Create(ctx, task.CreateTask{Title: "t", DueDate: date(2024, 6, 1)})
		require.NoError(t, err)
		assert.Equal(t, task.StatusTodo, created.Status)
		assert.Equal(t, "", created.Description)

		got, err := s.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, task.StatusTodo, got.Status)
	})

	t.Run("CreateAssignsUniqueIDs", func(t *testing.T) {
		s := setup(t)
		seen := map[string]bool{}
		for i := 0; i < 5; i++ {
			created, err := s.Create(ctx, task.CreateTask{Title: "t", DueDate: date(2024, 6, 1)})
			require.NoError(t, err)
			assert.False(t, seen[created.ID], "duplicate id %s", created.ID)
			seen[created.ID] = true
		}
	})

	t.Run("CreateRejectsInvalidInput", func(t *testing.T) {
		s := setup(t)
		cases := map[string]task.CreateTask{
			"missing title":   {DueDate: date(2024, 6, 1)},
			"missing dueDate": {Title: "t"},
			"invalid status":  {Title: "t", DueDate: date(2024, 6, 1), Status: "completed"},
		}
		for name, in := range cases {
			_, err := s.Create(ctx, in)
			assert.True(t, task.IsValidation(err), "%s: got %v", name, err)
		}
		all, err := s.List(ctx, task.Filter{})
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("StatusLabelsRoundTrip", func(t *testing.T) {
		s := setup(t)
		for _, st := range task.Statuses() {
			created, err := s.Create(ctx, task.CreateTask{Title: "t", DueDate: date(2024, 6, 1), Status: st})
			require.NoError(t, err)
			got, err := s.Get(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, st, got.Status)
		}
	})

	t.Run("EmptyPatchOnlyTouchesUpdatedAt", func(t *testing.T) {
		s := setup(t)
		before, err := s.Create(ctx, task.CreateTask{Title: "t", Description: "d", DueDate: date(2024, 6, 1)})
		require.NoError(t, err)

		after, err := s.Update(ctx, before.ID, task.UpdateTask{})
		require.NoError(t, err)
		assert.True(t, after.UpdatedAt.After(before.UpdatedAt))

		after.UpdatedAt = before.UpdatedAt
		assert.Equal(t, *before, *after)
	})

	t.Run("UpdatedAtAdvancesWhenClockStands", func(t *testing.T) {
		frozen := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
		s := newStore(t, task.WithClock(func() time.Time { return frozen }))
		require.NoError(t, s.EnsureSchema(ctx))

		prev, err := s.Create(ctx, task.CreateTask{Title: "t", DueDate: date(2024, 6, 1)})
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			next, err := s.Update(ctx, prev.ID, task.UpdateTask{})
			require.NoError(t, err)
			assert.True(t, next.UpdatedAt.After(prev.UpdatedAt), "update %d: %s not after %s", i, next.UpdatedAt, prev.UpdatedAt)
			assert.True(t, frozen.Equal(next.CreatedAt))
			prev = next
		}
	})

	t.Run("UpdatedAtAdvancesOnRealClock", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.EnsureSchema(ctx))

		for i := 0; i < 20; i++ {
			created, err := s.Create(ctx, task.CreateTask{Title: "t", DueDate: date(2024, 6, 1)})
			require.NoError(t, err)
			updated, err := s.Update(ctx, created.ID, task.UpdateTask{})
			require.NoError(t, err)
			assert.True(t, updated.UpdatedAt.After(created.UpdatedAt), "round %d", i)
		}
	})

	t.Run("StatusPatchOnlyChangesStatus", func(t *testing.T) {
		s := setup(t)
		for _, st := range task.Statuses() {
			before, err := s.Create(ctx, task.CreateTask{Title: "t", Description: "d", DueDate: date(2024, 6, 1)})
			require.NoError(t, err)

			after, err := s.Update(ctx, before.ID, task.UpdateTask{Status: ptr(st)})
			require.NoError(t, err)
			assert.Equal(t, st, after.Status)
			assert.True(t, after.UpdatedAt.After(before.UpdatedAt))

			after.Status = before.Status
			after.UpdatedAt = before.UpdatedAt
			assert.Equal(t, *before, *after)
		}
	})

	t.Run("PatchMergesFields", func(t *testing.T) {
		s := setup(t)
		before, err := s.Create(ctx, task.CreateTask{Title: "old", Description: "keep", DueDate: date(2024, 6, 1)})
		require.NoError(t, err)

		due := date(2024, 7, 4)
		after, err := s.Update(ctx, before.ID, task.UpdateTask{Title: ptr("new"), DueDate: &due})
		require.NoError(t, err)
		assert.Equal(t, "new", after.Title)
		assert.Equal(t, "keep", after.Description)
		assert.True(t, due.Equal(after.DueDate))
		assert.Equal(t, before.Status, after.Status)
		assert.Equal(t, before.CreatedAt, after.CreatedAt)

		got, err := s.Get(ctx, before.ID)
		require.NoError(t, err)
		assert.Equal(t, *after, *got)

		cleared, err := s.Update(ctx, before.ID, task.UpdateTask{Description: ptr("")})
		require.NoError(t, err)
		assert.Equal(t, "", cleared.Description)
		assert.Equal(t, "new", cleared.Title)
	})

	t.Run("PatchRejectsInvalidInput", func(t *testing.T) {
		s := setup(t)
		before, err := s.Create(ctx, task.CreateTask{Title: "t", DueDate: date(2024, 6, 1)})
		require.NoError(t, err)

		_, err = s.Update(ctx, before.ID, task.UpdateTask{Status: ptr(task.Status("pending"))})
		assert.True(t, task.IsValidation(err), "got %v", err)
		_, err = s.Update(ctx, before.ID, task.UpdateTask{Title: ptr("")})
		assert.True(t, task.IsValidation(err), "got %v", err)

		got, err := s.Get(ctx, before.ID)
		require.NoError(t, err)
		assert.Equal(t, *before, *got)
	})

	t.Run("MissingIDNotFound", func(t *testing.T) {
		s := setup(t)
		for _, id := range missingIDs {
			_, err := s.Get(ctx, id)
			assert.ErrorIs(t, err, task.ErrNotFound)
			_, err = s.Update(ctx, id, task.UpdateTask{Title: ptr("x")})
			assert.ErrorIs(t, err, task.ErrNotFound)
			err = s.Delete(ctx, id)
			assert.ErrorIs(t, err, task.ErrNotFound)
		}
	})

	t.Run("ListFiltersByStatus", func(t *testing.T) {
		s := setup(t)
		want := map[task.Status][]string{}
		var all []string
		for i, st := range []task.Status{task.StatusDone, task.StatusTodo, task.StatusDone, task.StatusInProgress, task.StatusDone} {
			created, err := s.Create(ctx, task.CreateTask{Title: string(rune('a' + i)), DueDate: date(2024, 6, 1), Status: st})
			require.NoError(t, err)
			want[st] = append(want[st], created.ID)
			all = append(all, created.ID)
		}

		got, err := s.List(ctx, task.Filter{})
		require.NoError(t, err)
		assert.Equal(t, all, ids(got))

		for _, st := range task.Statuses() {
			got, err := s.List(ctx, task.Filter{Status: st})
			require.NoError(t, err)
			assert.Equal(t, want[st], ids(got), "status %s", st)
			for _, tk := range got {
				assert.Equal(t, st, tk.Status)
			}
		}

		none, err := s.List(ctx, task.Filter{Status: "completed"})
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})

	t.Run("ListEmptyStoreIsNotNil", func(t *testing.T) {
		s := setup(t)
		got, err := s.List(ctx, task.Filter{})
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("DeleteTwice", func(t *testing.T) {
		s := setup(t)
		created, err := s.Create(ctx, task.CreateTask{Title: "t", DueDate: date(2024, 6, 1)})
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, created.ID))
		assert.ErrorIs(t, s.Delete(ctx, created.ID), task.ErrNotFound)

		all, err := s.List(ctx, task.Filter{})
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("Lifecycle", func(t *testing.T) {
		s := setup(t)
		created, err := s.Create(ctx, task.CreateTask{Title: "Write spec", DueDate: date(2024, 6, 1), Status: task.StatusTodo})
		require.NoError(t, err)
		assert.Equal(t, task.StatusTodo, created.Status)

		done, err := s.Update(ctx, created.ID, task.UpdateTask{Status: ptr(task.StatusDone)})
		require.NoError(t, err)
		assert.Equal(t, task.StatusDone, done.Status)
		assert.Equal(t, "Write spec", done.Title)
		assert.True(t, created.DueDate.Equal(done.DueDate))

		require.NoError(t, s.Delete(ctx, created.ID))
		_, err = s.Get(ctx, created.ID)
		assert.ErrorIs(t, err, task.ErrNotFound)
	})
}

func ids(tasks []task.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}
