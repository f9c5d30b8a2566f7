package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/msomdec/taskmate/internal/domain"
)

// taskRepo implements domain.TaskStore using SQLite.
type taskRepo struct {
	db *sql.DB
}

const taskColumns = "id, user_id, title, is_completed, created_at"

func (r *taskRepo) ListTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	where, args := whereClause(filter)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+taskColumns+" FROM tasks"+where+" ORDER BY created_at DESC, id DESC", args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		var t domain.Task
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Completed, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *taskRepo) InsertTask(ctx context.Context, task *domain.Task) error {
	if task.OwnerID == "" || strings.TrimSpace(task.Title) == "" {
		return fmt.Errorf("%w: owner and title are required", domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (user_id, title, is_completed, created_at) VALUES (?, ?, ?, ?)`,
		task.OwnerID, task.Title, task.Completed, now,
	)
	if err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("%w: no identity %s", domain.ErrInvalidInput, task.OwnerID)
		}
		return fmt.Errorf("insert task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get task id: %w", err)
	}

	task.ID = id
	task.CreatedAt = now
	return nil
}

func (r *taskRepo) UpdateTasks(ctx context.Context, filter domain.TaskFilter, patch domain.TaskPatch) error {
	where, args := whereClause(filter)
	if where == "" {
		return fmt.Errorf("%w: refusing unfiltered update", domain.ErrInvalidInput)
	}

	var sets []string
	var setArgs []any
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return fmt.Errorf("%w: title must not be blank", domain.ErrInvalidInput)
		}
		sets = append(sets, "title = ?")
		setArgs = append(setArgs, *patch.Title)
	}
	if patch.Completed != nil {
		sets = append(sets, "is_completed = ?")
		setArgs = append(setArgs, *patch.Completed)
	}
	if len(sets) == 0 {
		return fmt.Errorf("%w: empty patch", domain.ErrInvalidInput)
	}

	result, err := r.db.ExecContext(ctx,
		"UPDATE tasks SET "+strings.Join(sets, ", ")+where, append(setArgs, args...)...)
	if err != nil {
		return fmt.Errorf("update tasks: %w", err)
	}
	return requireAffected(result)
}

func (r *taskRepo) DeleteTasks(ctx context.Context, filter domain.TaskFilter) error {
	where, args := whereClause(filter)
	if where == "" {
		return fmt.Errorf("%w: refusing unfiltered delete", domain.ErrInvalidInput)
	}

	result, err := r.db.ExecContext(ctx, "DELETE FROM tasks"+where, args...)
	if err != nil {
		return fmt.Errorf("delete tasks: %w", err)
	}
	return requireAffected(result)
}

func (r *taskRepo) CountTasks(ctx context.Context, filter domain.TaskFilter) (int, error) {
	where, args := whereClause(filter)
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return count, nil
}

// whereClause compiles the filter's equality predicates. It returns an empty
// clause for a zero filter.
func whereClause(filter domain.TaskFilter) (string, []any) {
	var conds []string
	var args []any
	if filter.ID != nil {
		conds = append(conds, "id = ?")
		args = append(args, *filter.ID)
	}
	if filter.OwnerID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.Completed != nil {
		conds = append(conds, "is_completed = ?")
		args = append(args, *filter.Completed)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func requireAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
