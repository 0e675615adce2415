package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taskline/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/taskline/pkg/domain/codec"
	"github.com/felixgeelhaar/taskline/pkg/domain/overlay"
	"github.com/felixgeelhaar/taskline/pkg/domain/task"
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FAFAFA")).
	Background(lipgloss.Color("#7D56F4")).
	Padding(0, 1)

var statusDone = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
var statusWIP = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
var statusErr = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
var mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

func statusStyle(s task.Status) lipgloss.Style {
	switch s {
	case task.StatusDone:
		return statusDone
	case task.StatusInProgress:
		return statusWIP
	case task.StatusCancelled:
		return mutedStyle
	default:
		return lipgloss.NewStyle()
	}
}

// syncLabel describes where an entry stands against its document.
func syncLabel(e overlay.Entry) string {
	switch {
	case e.Meta.SyncFailed:
		return statusErr.Render("failed")
	case e.Meta.NeedsSync:
		return statusWIP.Render("pending " + string(e.Meta.Action))
	default:
		return ""
	}
}

func renderTasks(w io.Writer, snap overlay.Snapshot, tasks []task.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No tasks."))
		return
	}

	idWidth := 2
	for _, t := range tasks {
		idWidth = max(idWidth, len(t.ID))
	}
	idCol := lipgloss.NewStyle().Width(idWidth + 2)

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%d tasks", len(tasks))))
	var row func(t task.Task, depth int, label string)
	row = func(t task.Task, depth int, label string) {
		box := statusStyle(t.Status).Render(t.Status.Checkbox())
		line := idCol.Render(t.ID) + strings.Repeat("  ", depth) + box + " " + t.Description
		if !t.DueDate.IsZero() {
			line += " " + mutedStyle.Render("due "+codec.DisplayDate(t.DueDate))
		}
		if t.Priority.IsSet() {
			line += " " + mutedStyle.Render(t.Priority.DisplayName())
		}
		if label != "" {
			line += "  " + label
		}
		fmt.Fprintln(w, line)
		for _, sub := range t.Subtasks {
			row(sub, depth+1, "")
		}
	}
	for _, t := range tasks {
		label := ""
		if e, ok := snap.Entry(t.ID); ok {
			label = syncLabel(e)
		}
		row(t, 0, label)
	}
}

func hasTag(t task.Task, tag string) bool {
	tag = strings.TrimPrefix(tag, "#")
	for _, have := range t.Tags {
		if strings.EqualFold(strings.TrimPrefix(have, "#"), tag) {
			return true
		}
	}
	return false
}

func newListCmd() *cobra.Command {
	var (
		status string
		tag    string
		path   string
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *wiring.App) error {
				snap := app.Store.Snapshot()
				tasks := snap.Visible()
				if status != "" {
					s, err := task.ParseStatus(status)
					if err != nil {
						return err
					}
					tasks = snap.ByStatus(s)
				}
				var out []task.Task
				for _, t := range tasks {
					if tag != "" && !hasTag(t, tag) {
						continue
					}
					if path != "" && t.Path != path {
						continue
					}
					out = append(out, t)
				}
				renderTasks(cmd.OutOrStdout(), snap, out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "Only tasks with this status")
	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Only tasks with this tag")
	cmd.Flags().StringVar(&path, "path", "", "Only tasks in this document")
	return cmd
}

func newTagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List the tags used by tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *wiring.App) error {
				for _, opt := range app.Store.Snapshot().AvailableTags() {
					fmt.Fprintln(cmd.OutOrStdout(), opt.Label)
				}
				return nil
			})
		},
	}
}

func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show changes waiting to be written",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *wiring.App) error {
				w := cmd.OutOrStdout()
				snap := app.Store.Snapshot()
				pending := snap.Dispatchable()
				failed := snap.Failed()
				fmt.Fprintf(w, "%d tasks, %d pending, %d failed\n", len(snap.Visible()), len(pending), len(failed))
				for _, e := range pending {
					fmt.Fprintf(w, "  %s %s (attempt %d)\n", statusWIP.Render(string(e.Meta.Action)), e.ID(), e.Meta.RetryCount+1)
				}
				for _, e := range failed {
					fmt.Fprintf(w, "  %s %s: %s\n", statusErr.Render("failed"), e.ID(), e.Meta.ErrorMessage)
				}
				return nil
			})
		},
	}
}

func newLogCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent sync events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return MapError(err)
			}
			defer app.Close()

			records, err := app.Journal.Tail(n)
			if err != nil {
				return err
			}
			for _, r := range records {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %-16s %s %s\n",
					mutedStyle.Render(r.Timestamp.Local().Format("2006-01-02 15:04:05")),
					r.Type, r.Task, string(r.Data))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "lines", "n", 20, "Number of events to show (0 for all)")
	return cmd
}

func newDeadLettersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deadletters",
		Short: "Show writes that gave up after repeated failures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return MapError(err)
			}
			defer app.Close()

			letters, err := app.DeadLetters.ReadAll()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(letters) == 0 {
				fmt.Fprintln(w, mutedStyle.Render("No dead letters."))
				return nil
			}
			for _, dl := range letters {
				fmt.Fprintf(w, "%s %s %s in %s after %d attempts: %s\n",
					mutedStyle.Render(dl.Timestamp.Local().Format("2006-01-02 15:04:05")),
					statusErr.Render(dl.Action), dl.TaskID, dl.Path, dl.Attempts, dl.Error)
			}
			return nil
		},
	}
}

func viewCommands() []*cobra.Command {
	return []*cobra.Command{
		newListCmd(),
		newTagsCmd(),
		newSyncStatusCmd(),
		newLogCmd(),
		newDeadLettersCmd(),
	}
}
