// Package wiring assembles the taskline services for one workspace.
package wiring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/taskline/internal/infrastructure/config"
	"github.com/felixgeelhaar/taskline/internal/infrastructure/watch"
	"github.com/felixgeelhaar/taskline/pkg/application"
	"github.com/felixgeelhaar/taskline/pkg/domain/builder"
	"github.com/felixgeelhaar/taskline/pkg/domain/events"
	"github.com/felixgeelhaar/taskline/pkg/domain/overlay"
	"github.com/felixgeelhaar/taskline/pkg/plugin"
	"github.com/felixgeelhaar/taskline/pkg/storage"
)

// App exposes the services of one workspace wired together.
type App struct {
	Root        string
	Config      *config.Config
	Logger      *slog.Logger
	Store       *overlay.Store
	Vault       *storage.Vault
	Checkpoint  *storage.Checkpoint
	Events      *events.Dispatcher
	Journal     *storage.Journal
	DeadLetters *storage.DeadLetterStore
	Tasks       *application.TaskService
	Sync        *application.Dispatcher
	Refresh     *application.RefreshService

	loader *plugin.Loader
}

// Options adjust Build for callers that need a non-default setup.
type Options struct {
	Logger *slog.Logger
	// RetryDelay overrides the dispatcher backoff; zero keeps the default.
	RetryDelay time.Duration
}

// Build loads the workspace configuration at root, restores the overlay
// checkpoint and wires the services. Close releases the writer plugin.
func Build(root string, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	ws := storage.NewWorkspace(root)
	checkpoint, err := storage.NewCheckpoint(ws)
	if err != nil {
		return nil, err
	}
	dlPath, err := ws.ResolvePath(storage.DeadLetterFile)
	if err != nil {
		return nil, err
	}
	journalPath, err := ws.ResolvePath(storage.JournalFile)
	if err != nil {
		return nil, err
	}

	stateFs := afero.NewOsFs()
	deadLetters := storage.NewDeadLetterStore(stateFs, dlPath)
	journal := storage.NewJournal(stateFs, journalPath)

	bus := events.NewDispatcher()
	bus.ContinueOnError = true
	bus.On("journal", journal.Handle, events.Wildcard)

	vault := storage.NewOSVault(cfg.VaultRoot(root), logger)

	app := &App{
		Root:        root,
		Config:      cfg,
		Logger:      logger,
		Vault:       vault,
		Checkpoint:  checkpoint,
		Events:      bus,
		Journal:     journal,
		DeadLetters: deadLetters,
	}

	writer, err := app.writer(vault)
	if err != nil {
		return nil, err
	}

	entries, err := checkpoint.Load()
	if err != nil {
		app.Close()
		return nil, err
	}
	store := overlay.NewStore(overlay.WithLogger(logger))
	store.Restore(entries)
	app.Store = store

	dispatchOpts := []application.DispatcherOption{
		application.WithPublisher(bus),
		application.WithDeadLetters(deadLetters),
		application.WithDispatchLogger(logger),
	}
	if opts.RetryDelay > 0 {
		dispatchOpts = append(dispatchOpts, application.WithRetryDelay(opts.RetryDelay))
	}
	app.Sync = application.NewDispatcher(store, writer, application.Settings{
		DefaultPath:    cfg.DefaultPath,
		DefaultHeading: cfg.DefaultHeading,
	}, dispatchOpts...)
	app.Refresh = application.NewRefreshService(vault, store, bus, logger)
	app.Tasks = application.NewTaskService(store, builder.Defaults{Path: cfg.DefaultPath}, logger)

	return app, nil
}

// writer returns the vault itself or, when configured, the writer plugin.
func (a *App) writer(vault *storage.Vault) (application.Writer, error) {
	pc := a.Config.Writer.Plugin
	if !pc.Enabled() {
		return vault, nil
	}

	bin := pc.Binary
	if !filepath.IsAbs(bin) {
		bin = filepath.Join(a.Root, bin)
	}
	a.loader = plugin.NewLoader()
	lw, err := a.loader.Load(bin)
	if err != nil {
		return nil, fmt.Errorf("load writer plugin: %w", err)
	}
	if err := lw.Init(pc.Settings(map[string]string{"root": vault.Root()})); err != nil {
		a.loader.Cleanup()
		return nil, fmt.Errorf("init writer plugin: %w", err)
	}
	a.Logger.Debug("writer plugin loaded", "binary", bin)
	return plugin.NewWriter(lw), nil
}

// Close stops the writer plugin, if any.
func (a *App) Close() {
	if a.loader != nil {
		a.loader.Cleanup()
	}
}

// Save writes the overlay checkpoint.
func (a *App) Save() error {
	return a.Checkpoint.Save(a.Store.Snapshot().Entries)
}

// SyncOnce refreshes from the vault, writes every pending change, refreshes
// again so written lines replace their pending entries, and saves the
// checkpoint. A checkpoint is saved even when some writes failed.
func (a *App) SyncOnce(ctx context.Context) error {
	if _, err := a.Refresh.Refresh(ctx); err != nil {
		return err
	}
	flushErr := a.Sync.Flush(ctx)
	_, refreshErr := a.Refresh.Refresh(ctx)
	return errors.Join(flushErr, refreshErr, a.Save())
}

// Serve keeps the overlay in sync until ctx is cancelled: it refreshes on
// the configured interval and on document changes, dispatches pending
// writes as they appear and checkpoints the overlay after every change.
func (a *App) Serve(ctx context.Context) error {
	trigger := make(chan struct{}, 1)
	filter := watch.NewPatternFilter(a.Vault.Root(), a.Config.Watch.Include, a.Config.Watch.Exclude)
	watcher, err := watch.NewFSWatcher(a.Config.Watch.Debounce, filter, func(batch []watch.ChangeEvent) {
		for _, e := range batch {
			_ = a.Events.Publish(ctx, events.NewDocumentChanged(filter.Relative(e.Path), string(e.Kind), time.Now()))
		}
		select {
		case trigger <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return err
	}
	if err := watcher.WatchRecursive(a.Vault.Root()); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Refresh.Run(ctx, a.Config.RefreshInterval, trigger) })
	g.Go(func() error { return a.Sync.Run(ctx) })
	g.Go(func() error { return watcher.Run(ctx) })
	g.Go(func() error { return a.checkpointLoop(ctx) })

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return errors.Join(err, a.Save())
}

func (a *App) checkpointLoop(ctx context.Context) error {
	changes, unsubscribe := a.Store.Subscribe()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			if err := a.Save(); err != nil {
				a.Logger.Error("checkpoint save failed", "error", err)
			}
		}
	}
}
