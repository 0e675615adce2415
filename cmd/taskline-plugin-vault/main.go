package main

import (
	"log/slog"
	"os"

	infraPlugin "github.com/felixgeelhaar/taskline/pkg/plugin"
)

// The plugin writes to stderr, which go-plugin forwards to the host log.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	infraPlugin.Serve(&infraPlugin.VaultWriter{Logger: logger})
}
