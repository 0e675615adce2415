package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taskline/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/taskline/pkg/domain/builder"
	"github.com/felixgeelhaar/taskline/pkg/domain/codec"
	"github.com/felixgeelhaar/taskline/pkg/domain/task"
)

// taskFlags are the record fields settable from add and edit.
type taskFlags struct {
	id          string
	description string
	priority    string
	status      string
	due         string
	scheduled   string
	start       string
	recurs      string
	path        string
	tags        []string
}

func (f *taskFlags) register(cmd *cobra.Command, withID bool) {
	if withID {
		cmd.Flags().StringVar(&f.id, "id", "", "Task id (generated when empty)")
	}
	cmd.Flags().StringVarP(&f.priority, "priority", "p", "", "Priority: lowest, low, medium, high, highest")
	cmd.Flags().StringVarP(&f.status, "status", "s", "", "Status: todo, in-progress, done, cancelled")
	cmd.Flags().StringVarP(&f.due, "due", "d", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.scheduled, "scheduled", "", "Scheduled date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.start, "start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.recurs, "recurs", "", "Recurrence rule, e.g. 'every week'")
	cmd.Flags().StringVar(&f.path, "path", "", "Document the task lives in")
	cmd.Flags().StringSliceVarP(&f.tags, "tag", "t", nil, "Tag to add (repeatable)")
}

// apply copies the flags the user set onto b.
func (f *taskFlags) apply(cmd *cobra.Command, b *builder.Builder) error {
	changed := cmd.Flags().Changed
	if f.description != "" {
		b.Description(f.description)
	}
	if changed("id") && f.id != "" {
		b.ID(f.id)
	}
	if changed("priority") {
		p := task.PriorityNone
		if f.priority != "" && f.priority != "none" {
			var err error
			if p, err = task.ParsePriority(f.priority); err != nil {
				return err
			}
		}
		b.Priority(p)
	}
	if changed("status") {
		s, err := task.ParseStatus(f.status)
		if err != nil {
			return err
		}
		b.Status(s)
	}
	for name, set := range map[string]func(time.Time) *builder.Builder{
		"due":       b.Due,
		"scheduled": b.Scheduled,
		"start":     b.Start,
	} {
		if !changed(name) {
			continue
		}
		v, _ := cmd.Flags().GetString(name)
		d, err := parseDateFlag(name, v)
		if err != nil {
			return err
		}
		set(d)
	}
	if changed("recurs") {
		b.Recurs(f.recurs)
	}
	if changed("path") {
		b.Path(f.path)
	}
	if len(f.tags) > 0 {
		b.Tags(f.tags...)
	}
	return nil
}

// parseDateFlag accepts a storage date; an empty value clears the date.
func parseDateFlag(name, v string) (time.Time, error) {
	if strings.TrimSpace(v) == "" {
		return time.Time{}, nil
	}
	d, ok := codec.ParseDate(v)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid --%s date %q, want YYYY-MM-DD", name, v)
	}
	return d, nil
}

func newAddCmd() *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "add <description>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.description = strings.Join(args, " ")
			return mutate(cmd, func(ctx context.Context, app *wiring.App) error {
				b := app.Tasks.NewBuilder()
				if err := f.apply(cmd, b); err != nil {
					return err
				}
				t, err := app.Tasks.Add(b)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s to %s\n", t.ID, t.Path)
				return nil
			})
		},
	}
	f.register(cmd, true)
	return cmd
}

func newEditCmd() *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "edit <id> [description]",
		Short: "Change fields of a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			f.description = strings.Join(args[1:], " ")
			return mutate(cmd, func(ctx context.Context, app *wiring.App) error {
				t, err := app.Tasks.Update(id, func(b *builder.Builder) error {
					return f.apply(cmd, b)
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", t.ID)
				return nil
			})
		},
	}
	f.register(cmd, false)
	return cmd
}

func newStatusCmd(use, short string, status task.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, func(ctx context.Context, app *wiring.App) error {
				t, err := app.Tasks.SetStatus(args[0], status)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Task %s is now %s\n", t.ID, t.Status.DisplayName())
				return nil
			})
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a task from its document",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, func(ctx context.Context, app *wiring.App) error {
				if err := app.Tasks.Delete(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newRetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Retry writing a task that gave up after repeated failures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, func(ctx context.Context, app *wiring.App) error {
				if err := app.Tasks.Retry(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retrying %s\n", args[0])
				return nil
			})
		},
	}
}

func taskCommands() []*cobra.Command {
	return []*cobra.Command{
		newAddCmd(),
		newEditCmd(),
		newStatusCmd("done", "Mark a task done", task.StatusDone),
		newStatusCmd("start", "Mark a task in progress", task.StatusInProgress),
		newStatusCmd("cancel", "Mark a task cancelled", task.StatusCancelled),
		newStatusCmd("reopen", "Mark a task todo again", task.StatusTodo),
		newDeleteCmd(),
		newRetryCmd(),
	}
}
