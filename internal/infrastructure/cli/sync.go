package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taskline/internal/infrastructure/wiring"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Write pending changes to the documents and reload them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *wiring.App) error {
				before := len(app.Store.Snapshot().NeedingSync())
				err := app.SyncOnce(ctx)

				snap := app.Store.Snapshot()
				left := len(snap.NeedingSync())
				fmt.Fprintf(cmd.OutOrStdout(), "Synced %d of %d pending changes, %d tasks loaded\n",
					max(before-left, 0), before, len(snap.Visible()))
				if n := len(snap.Failed()); n > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %d changes gave up; see 'taskline status'\n", statusErr.Render("!"), n)
				}
				return err
			})
		},
	}
}
