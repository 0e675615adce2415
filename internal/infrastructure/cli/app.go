package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taskline/internal/infrastructure/wiring"
)

func getProjectRoot() (string, error) {
	if projectPath != "" {
		abs, err := filepath.Abs(projectPath)
		if err != nil {
			return "", fmt.Errorf("invalid project path %q: %w", projectPath, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return "", fmt.Errorf("project path %q: %w", abs, err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("project path %q is not a directory", abs)
		}
		return abs, nil
	}
	return os.Getwd()
}

func openApp() (*wiring.App, error) {
	root, err := getProjectRoot()
	if err != nil {
		return nil, err
	}
	return wiring.Build(root, wiring.Options{Logger: slog.Default()})
}

// withApp opens the workspace, reads the vault and runs fn. The checkpoint
// is saved afterwards whatever fn returned.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *wiring.App) error) error {
	app, err := openApp()
	if err != nil {
		return MapError(err)
	}
	defer app.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := app.Refresh.Refresh(ctx); err != nil {
		return MapError(err)
	}
	err = fn(ctx, app)
	if saveErr := app.Save(); err == nil {
		err = saveErr
	}
	return MapError(err)
}

// mutate is withApp for commands that change tasks: after fn, pending
// changes are written to the documents.
func mutate(cmd *cobra.Command, fn func(ctx context.Context, app *wiring.App) error) error {
	return withApp(cmd, func(ctx context.Context, app *wiring.App) error {
		if err := fn(ctx, app); err != nil {
			return err
		}
		return app.SyncOnce(ctx)
	})
}
