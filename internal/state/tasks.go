package state

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/msomdec/taskmate/internal/domain"
)

// TaskObserver is told when the remote task set may have changed.
type TaskObserver interface {
	TasksChanged(ctx context.Context) error
}

// TaskRepository caches the principal's tasks, newest first. Mutations are
// applied to the cache before the remote confirms them; a failed remote
// write is compensated by reloading the whole list.
type TaskRepository struct {
	principals PrincipalSource
	store      domain.TaskStore
	sink       domain.NotificationSink
	observer   TaskObserver
	dispatcher *Dispatcher

	mu         sync.Mutex
	tasks      []domain.Task
	inflight   int
	listSeq    uint64
	appliedSeq uint64
}

// NewTaskRepository creates a TaskRepository. observer may be nil.
func NewTaskRepository(principals PrincipalSource, store domain.TaskStore, sink domain.NotificationSink, observer TaskObserver, dispatcher *Dispatcher) *TaskRepository {
	return &TaskRepository{
		principals: principals,
		store:      store,
		sink:       sink,
		observer:   observer,
		dispatcher: dispatcher,
	}
}

// List replaces the cache with the principal's remote tasks. Without a
// principal the cache is emptied. A response that arrives after a newer one
// has been applied is dropped.
func (r *TaskRepository) List(ctx context.Context) error {
	p := r.principals.Principal()
	if p == nil {
		r.mu.Lock()
		r.listSeq++
		r.appliedSeq = r.listSeq
		r.tasks = nil
		r.mu.Unlock()
		return nil
	}

	r.mu.Lock()
	r.listSeq++
	seq := r.listSeq
	r.inflight++
	r.mu.Unlock()

	tasks, err := r.store.ListTasks(ctx, domain.TaskFilter{OwnerID: p.ID})

	r.mu.Lock()
	r.inflight--
	if err != nil {
		r.mu.Unlock()
		slog.Error("list tasks", "user_id", p.ID, "error", err)
		return fmt.Errorf("list tasks: %w", err)
	}
	if applied := r.appliedSeq; seq < applied {
		r.mu.Unlock()
		slog.Debug("discarding stale task list", "seq", seq, "applied", applied)
		return nil
	}
	sortNewestFirst(tasks)
	r.tasks = tasks
	r.appliedSeq = seq
	r.mu.Unlock()

	r.changed(ctx)
	return nil
}

// Create inserts a task with the given title. Blank titles are ignored.
func (r *TaskRepository) Create(ctx context.Context, title string) {
	p := r.principals.Principal()
	title = strings.TrimSpace(title)
	if p == nil || title == "" {
		return
	}

	task := &domain.Task{OwnerID: p.ID, Title: title}
	if err := r.store.InsertTask(ctx, task); err != nil {
		slog.Error("create task", "user_id", p.ID, "error", err)
	}
	_ = r.List(ctx)
}

// Toggle flips the completion of the task with the given id.
func (r *TaskRepository) Toggle(ctx context.Context, id int64) {
	p := r.principals.Principal()
	if p == nil {
		return
	}

	r.mu.Lock()
	i := r.indexLocked(id)
	if i < 0 {
		r.mu.Unlock()
		return
	}
	r.tasks[i].Completed = !r.tasks[i].Completed
	task := r.tasks[i]
	r.mu.Unlock()

	if task.Completed {
		r.notify(ctx, domain.Notification{
			Title: "Task Completed! 🎉",
			Body:  fmt.Sprintf("You've completed %q", task.Title),
		})
	}

	err := r.store.UpdateTasks(ctx,
		domain.TaskFilter{ID: &id, OwnerID: p.ID},
		domain.TaskPatch{Completed: &task.Completed})
	if err != nil {
		slog.Error("toggle task", "task_id", id, "error", err)
		_ = r.List(ctx)
		return
	}
	r.changed(ctx)
}

// Remove deletes the task with the given id.
func (r *TaskRepository) Remove(ctx context.Context, id int64) {
	p := r.principals.Principal()
	if p == nil {
		return
	}

	r.mu.Lock()
	i := r.indexLocked(id)
	if i < 0 {
		r.mu.Unlock()
		return
	}
	task := r.tasks[i]
	r.tasks = slices.Delete(slices.Clone(r.tasks), i, i+1)
	r.mu.Unlock()

	r.notify(ctx, domain.Notification{
		Title: "Task Removed 🗑️",
		Body:  fmt.Sprintf("%q has been removed", task.Title),
	})

	if err := r.store.DeleteTasks(ctx, domain.TaskFilter{ID: &id, OwnerID: p.ID}); err != nil {
		slog.Error("remove task", "task_id", id, "error", err)
		_ = r.List(ctx)
		return
	}
	r.changed(ctx)
}

// Tasks returns a copy of the cached tasks.
func (r *TaskRepository) Tasks() []domain.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.tasks)
}

// Loading reports whether a list call is in flight.
func (r *TaskRepository) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inflight > 0
}

func (r *TaskRepository) indexLocked(id int64) int {
	return slices.IndexFunc(r.tasks, func(t domain.Task) bool { return t.ID == id })
}

func (r *TaskRepository) notify(ctx context.Context, n domain.Notification) {
	r.dispatcher.Go(ctx, "notify", func(ctx context.Context) error {
		return r.sink.Notify(ctx, n)
	})
}

func (r *TaskRepository) changed(ctx context.Context) {
	if r.observer == nil {
		return
	}
	r.dispatcher.Go(ctx, "tasks changed", r.observer.TasksChanged)
}

func sortNewestFirst(tasks []domain.Task) {
	slices.SortStableFunc(tasks, func(a, b domain.Task) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}
