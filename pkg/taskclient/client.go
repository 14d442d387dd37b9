// Package taskclient calls the task REST API over HTTP.
package taskclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"taskverse/pkg/task"
)

// Client is a thin gateway to a task API server.
type Client struct {
	base string
	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New returns a Client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HTTPError is a non-2xx answer from the server.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// Unwrap lets callers match task.ErrNotFound and *task.ValidationError.
func (e *HTTPError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return task.ErrNotFound
	case http.StatusBadRequest:
		return &task.ValidationError{Reason: e.Message}
	}
	return nil
}

// GetTasks lists tasks. An empty status lists all of them.
func (c *Client) GetTasks(ctx context.Context, status task.Status) ([]task.Task, error) {
	path := "/tasks"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var out []task.Task
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []task.Task{}
	}
	return out, nil
}

func (c *Client) GetTask(ctx context.Context, id string) (*task.Task, error) {
	var out task.Task
	if err := c.do(ctx, http.MethodGet, taskPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateTask(ctx context.Context, in task.CreateTask) (*task.Task, error) {
	var out task.Task
	if err := c.do(ctx, http.MethodPost, "/tasks", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTask sends patch with PUT.
func (c *Client) UpdateTask(ctx context.Context, id string, patch task.UpdateTask) (*task.Task, error) {
	var out task.Task
	if err := c.do(ctx, http.MethodPut, taskPath(id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil)
}

func taskPath(id string) string {
	return "/tasks/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// errorMessage pulls the "error" field out of a failure body, falling back
// to the raw text.
func errorMessage(data []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(data))
}
