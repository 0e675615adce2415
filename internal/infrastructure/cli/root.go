// Package cli implements the taskline command line.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	projectPath string
	verbose     bool
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = NewRootCmd()

// NewRootCmd builds the command tree. Every call returns fresh commands
// with fresh flag state.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "taskline",
		Version: Version,
		Short:   "Checklist tasks kept in Markdown, edited from the terminal",
		Long: `taskline reads the checklist items of a folder of Markdown documents,
lets you add and change them from the terminal and writes every change back
into the documents as a single line.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().StringVarP(&projectPath, "dir", "C", "", "Workspace directory (defaults to the current directory)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(newInitCmd())
	root.AddCommand(taskCommands()...)
	root.AddCommand(viewCommands()...)
	root.AddCommand(newSyncCmd())
	root.AddCommand(newWatchCmd())
	return root
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() error {
	err := RootCmd.Execute()
	var cliErr *CLIError
	if errors.As(err, &cliErr) && cliErr.Hint != "" {
		fmt.Fprintf(os.Stderr, "Hint: %s\n", cliErr.Hint)
	}
	return err
}
