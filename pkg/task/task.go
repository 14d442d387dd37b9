package task

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// Task represents a personal to-do item.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"dueDate"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// MarshalJSON renders timestamps as UTC with millisecond precision.
func (t Task) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		DueDate     string `json:"dueDate"`
		Status      Status `json:"status"`
		CreatedAt   string `json:"createdAt"`
		UpdatedAt   string `json:"updatedAt"`
	}{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     FormatTime(t.DueDate),
		Status:      t.Status,
		CreatedAt:   FormatTime(t.CreatedAt),
		UpdatedAt:   FormatTime(t.UpdatedAt),
	})
}

// Filter narrows List. A zero Filter matches every task.
type Filter struct {
	Status Status
}

// Match reports whether t passes the filter.
func (f Filter) Match(t Task) bool {
	return f.Status == "" || t.Status == f.Status
}

// Store is the contract for task persistence.
type Store interface {
	Create(ctx context.Context, in CreateTask) (*Task, error)
	Get(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context, f Filter) ([]Task, error)
	Update(ctx context.Context, id string, patch UpdateTask) (*Task, error)
	Delete(ctx context.Context, id string) error
	EnsureSchema(ctx context.Context) error
}

// Option configures a store.
type Option func(*storeOptions)

type storeOptions struct {
	now func() time.Time
}

// WithClock overrides the time source used for createdAt/updatedAt.
func WithClock(now func() time.Time) Option {
	return func(o *storeOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func newOptions(opts []Option) storeOptions {
	o := storeOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o storeOptions) timestamp() time.Time {
	return normalizeTime(o.now())
}

// nextUpdate returns an updatedAt strictly later than prev, even when the
// clock has not moved past it at millisecond precision.
func (o storeOptions) nextUpdate(prev time.Time) time.Time {
	now := o.timestamp()
	if !now.After(prev) {
		now = normalizeTime(prev).Add(time.Millisecond)
	}
	return now
}

// Search returns the tasks whose title or description contains term,
// ignoring case. The term is matched as given, whitespace included. An empty
// term returns tasks unchanged.
func Search(tasks []Task, term string) []Task {
	term = strings.ToLower(term)
	if term == "" {
		return tasks
	}
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if strings.Contains(strings.ToLower(t.Title), term) ||
			strings.Contains(strings.ToLower(t.Description), term) {
			out = append(out, t)
		}
	}
	return out
}
