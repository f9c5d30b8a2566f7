package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/msomdec/taskmate/internal/domain"
	"github.com/spf13/cobra"
)

func tasksCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "List and manage your tasks",
	}
	cmd.AddCommand(tasksListCmd(opts))
	cmd.AddCommand(tasksAddCmd(opts))
	cmd.AddCommand(tasksDoneCmd(opts))
	cmd.AddCommand(tasksRmCmd(opts))
	return cmd
}

// withTasks runs fn with an authenticated app whose task cache is loaded.
func withTasks(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, app *App) error) error {
	app, err := opts.app(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	if _, err := app.requireSession(ctx); err != nil {
		return err
	}
	if err := app.tasks.List(ctx); err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	return fn(ctx, app)
}

func tasksListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTasks(cmd, opts, func(ctx context.Context, app *App) error {
				return printTasks(app.out, app.tasks.Tasks())
			})
		},
	}
}

func tasksAddCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <title>...",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args, " "))
			if title == "" {
				return fmt.Errorf("%w: title must not be blank", domain.ErrInvalidInput)
			}
			return withTasks(cmd, opts, func(ctx context.Context, app *App) error {
				before := len(app.tasks.Tasks())
				app.tasks.Create(ctx, title)
				after := app.tasks.Tasks()
				if len(after) <= before {
					return fmt.Errorf("task %q was not added", title)
				}
				return printTasks(app.out, after)
			})
		},
	}
}

func tasksDoneCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle a task between pending and completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			return withTasks(cmd, opts, func(ctx context.Context, app *App) error {
				if err := requireTask(app.tasks.Tasks(), id); err != nil {
					return err
				}
				app.tasks.Toggle(ctx, id)
				return printTasks(app.out, app.tasks.Tasks())
			})
		},
	}
}

func tasksRmCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Remove a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			return withTasks(cmd, opts, func(ctx context.Context, app *App) error {
				if err := requireTask(app.tasks.Tasks(), id); err != nil {
					return err
				}
				app.tasks.Remove(ctx, id)
				return printTasks(app.out, app.tasks.Tasks())
			})
		},
	}
}

func parseTaskID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: task id must be a positive integer, got %q", domain.ErrInvalidInput, s)
	}
	return id, nil
}

func requireTask(tasks []domain.Task, id int64) error {
	if !slices.ContainsFunc(tasks, func(t domain.Task) bool { return t.ID == id }) {
		return fmt.Errorf("task %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func printTasks(w io.Writer, tasks []domain.Task) error {
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(w, "No tasks yet.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tTITLE\tCREATED")
	for _, t := range tasks {
		done := "[ ]"
		if t.Completed {
			done = "[x]"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", t.ID, done, t.Title, t.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}
