package task

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemStore is an in-process task store. Tasks are listed in creation order.
type MemStore struct {
	opts  storeOptions
	mu    sync.RWMutex
	tasks map[string]*Task
	order []string
}

// NewMemStore creates an empty MemStore.
func NewMemStore(opts ...Option) *MemStore {
	return &MemStore{
		opts:  newOptions(opts),
		tasks: make(map[string]*Task),
	}
}

// EnsureSchema is a no-op.
func (s *MemStore) EnsureSchema(context.Context) error { return nil }

func (s *MemStore) Create(_ context.Context, in CreateTask) (*Task, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := s.opts.timestamp()
	t := &Task{
		ID:          uuid.Must(uuid.NewV7()).String(),
		Title:       in.Title,
		Description: in.Description,
		DueDate:     normalizeTime(in.DueDate),
		Status:      in.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Status == "" {
		t.Status = DefaultStatus
	}

	s.mu.Lock()
	s.tasks[t.ID] = t
	s.order = append(s.order, t.ID)
	s.mu.Unlock()

	cp := *t
	return &cp, nil
}

func (s *MemStore) Get(_ context.Context, id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *MemStore) List(_ context.Context, f Filter) ([]Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Task, 0, len(s.order))
	for _, id := range s.order {
		if t := s.tasks[id]; f.Match(*t) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *MemStore) Update(_ context.Context, id string, patch UpdateTask) (*Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	patch.Apply(t)
	t.UpdatedAt = s.opts.nextUpdate(t.UpdatedAt)
	cp := *t
	return &cp, nil
}

func (s *MemStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(s.tasks, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
