package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taskline/internal/infrastructure/config"
	"github.com/felixgeelhaar/taskline/pkg/storage"
)

func newInitCmd() *cobra.Command {
	var (
		vault   string
		path    string
		heading string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the taskline state directory and default config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := getProjectRoot()
			if err != nil {
				return err
			}
			ws := storage.NewWorkspace(root)
			if ws.IsInitialized() {
				return NewCLIError("workspace already initialized", "Edit .taskline/config.yaml to change settings", nil)
			}
			if err := ws.Initialize(); err != nil {
				return fmt.Errorf("failed to initialize workspace: %w", err)
			}

			cfg := config.Default()
			if vault != "" {
				cfg.Vault = vault
			}
			if path != "" {
				cfg.DefaultPath = path
			}
			if cmd.Flags().Changed("heading") {
				cfg.DefaultHeading = heading
			}
			if err := config.Save(root, cfg); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Initialized taskline in %s\n", root)
			return nil
		},
	}
	cmd.Flags().StringVar(&vault, "vault", "", "Directory of Markdown documents (defaults to the workspace)")
	cmd.Flags().StringVar(&path, "default-path", "", "Document new tasks go to")
	cmd.Flags().StringVar(&heading, "heading", "", "Heading new tasks are placed under")
	return cmd
}
