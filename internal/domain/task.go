package domain

import (
	"context"
	"time"
)

// Task is a single to-do item owned by one principal.
type Task struct {
	ID        int64     `json:"id"`
	OwnerID   string    `json:"user_id"`
	Title     string    `json:"title"`
	Completed bool      `json:"is_completed"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskFilter is a set of equality predicates. Zero-valued fields do not
// filter.
type TaskFilter struct {
	ID        *int64
	OwnerID   string
	Completed *bool
}

// TaskPatch is a partial task update.
type TaskPatch struct {
	Title     *string `json:"title,omitempty"`
	Completed *bool   `json:"is_completed,omitempty"`
}

// TaskStore is the tasks half of the remote store.
type TaskStore interface {
	// ListTasks returns matching tasks, newest first.
	ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error)
	InsertTask(ctx context.Context, task *Task) error
	// UpdateTasks and DeleteTasks return ErrNotFound when nothing matched.
	UpdateTasks(ctx context.Context, filter TaskFilter, patch TaskPatch) error
	DeleteTasks(ctx context.Context, filter TaskFilter) error
	CountTasks(ctx context.Context, filter TaskFilter) (int, error)
}

// RemoteStore is the persistence and auth backend the client syncs against.
type RemoteStore interface {
	AuthClient
	ProfileStore
	TaskStore
}
