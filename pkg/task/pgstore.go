package task

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const taskColumns = `id, title, description, due_date, status, created_at, updated_at`

// PgStore is a PostgreSQL-backed task store.
type PgStore struct {
	pool *pgxpool.Pool
	opts storeOptions
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool, opts ...Option) *PgStore {
	return &PgStore{pool: pool, opts: newOptions(opts)}
}

// EnsureSchema creates the tasks table if it doesn't exist.
func (s *PgStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tasks (
			seq          BIGSERIAL UNIQUE,
			id           TEXT PRIMARY KEY,
			title        TEXT NOT NULL CHECK (title <> ''),
			description  TEXT NOT NULL DEFAULT '',
			due_date     TIMESTAMPTZ NOT NULL,
			status       TEXT NOT NULL DEFAULT 'To-Do'
			             CHECK (status IN ('To-Do', 'In Progress', 'Done')),
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("create tasks table: %w", err)
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`)
	if err != nil {
		return fmt.Errorf("create tasks status index: %w", err)
	}
	return nil
}

// Create inserts a new task.
func (s *PgStore) Create(ctx context.Context, in CreateTask) (*Task, error) {
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

	_, err := s.pool.Exec(ctx, `
		INSERT INTO tasks (id, title, description, due_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.Title, t.Description, t.DueDate, string(t.Status), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

// Get retrieves a single task by ID.
func (s *PgStore) Get(ctx context.Context, id string) (*Task, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	t, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, notFound(err))
	}
	return t, nil
}

// List returns tasks filtered by status (empty = all) in creation order.
func (s *PgStore) List(ctx context.Context, f Filter) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY seq ASC`
	var args []any
	if f.Status != "" {
		query = `SELECT ` + taskColumns + ` FROM tasks WHERE status = $1 ORDER BY seq ASC`
		args = []any{string(f.Status)}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

// Update merges the non-nil patch fields into the stored row.
func (s *PgStore) Update(ctx context.Context, id string, patch UpdateTask) (*Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	// Build SET clause from the fields present in the patch. updated_at must
	// move forward even when two writes share a millisecond.
	setClauses := []string{"updated_at = GREATEST($1::timestamptz, updated_at + interval '1 millisecond')"}
	args := []any{s.opts.timestamp()}
	set := func(column string, v any) {
		args = append(args, v)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.DueDate != nil {
		set("due_date", normalizeTime(*patch.DueDate))
	}
	if patch.Status != nil {
		set("status", string(*patch.Status))
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d RETURNING %s",
		strings.Join(setClauses, ", "), len(args), taskColumns)

	t, err := scanTask(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", id, notFound(err))
	}
	return t, nil
}

// Delete removes a task by ID.
func (s *PgStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete task %s: %w", id, ErrNotFound)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	var status string
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.DueDate, &status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Status = Status(status)
	t.DueDate = normalizeTime(t.DueDate)
	t.CreatedAt = normalizeTime(t.CreatedAt)
	t.UpdatedAt = normalizeTime(t.UpdatedAt)
	return &t, nil
}

func scanTaskRows(rows pgx.Rows) ([]Task, error) {
	tasks := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return tasks, nil
}
