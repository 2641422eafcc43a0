package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/five82/synq/internal/config"
	"github.com/five82/synq/internal/logging"
	"github.com/five82/synq/internal/prefs"
	"github.com/five82/synq/internal/registry"
	"github.com/five82/synq/internal/remote"
	"github.com/five82/synq/internal/store"
	"github.com/five82/synq/internal/synq"
	"github.com/five82/synq/internal/ui"
)

// Options configure the synq client.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/synq/prefs.toml
	PollEvery  int    // seconds; zero uses the config value
}

// Run boots the synq TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.PollEvery > 0 {
		cfg.PollInterval = time.Duration(opts.PollEvery) * time.Second
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	client, err := remote.NewClient(cfg.APIBind,
		remote.WithTimeout(cfg.RequestTimeout),
		remote.WithRetries(cfg.Retries),
		remote.WithLogger(logger.Named("remote")),
	)
	if err != nil {
		return fmt.Errorf("init todo client: %w", err)
	}

	reg := registry.New(registry.WithLogger(logger.Named("registry")))
	todos := NewTodoStore(ctx, cfg, remote.Operations(client), reg, logger)
	defer todos.Dispose()

	logger.Info("synq started",
		zap.String("api", cfg.APIBind),
		zap.Duration("poll", cfg.PollInterval),
		zap.Bool("auto_fetch", cfg.AutoFetch),
		zap.String("log_dir", cfg.LogDir()),
	)

	err = ui.Run(ui.Options{
		Context:   ctx,
		Store:     todos,
		Registry:  reg,
		Logger:    logger.Named("ui"),
		Prefs:     userPrefs,
		PrefsPath: opts.PrefsPath,
		LogPath:   cfg.LogFile,
	})
	logger.Info("synq stopped", zap.Error(err))
	return err
}

// NewTodoStore builds the synced todo collection described by cfg and
// registers it with reg. Background fetching is bound to ctx.
func NewTodoStore(ctx context.Context, cfg config.Config, ops synq.Remote[remote.Todo], reg *registry.Registry, logger *zap.Logger) *synq.Store[remote.Todo] {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []synq.Option[remote.Todo]{
		synq.WithKey[remote.Todo](cfg.Key),
		synq.WithBaseContext[remote.Todo](ctx),
		synq.WithLogger[remote.Todo](logger.Named("store")),
		synq.WithInterval[remote.Todo](cfg.PollInterval),
	}
	if cfg.AutoFetch {
		opts = append(opts, synq.WithAutoFetch[remote.Todo]())
	}
	if reg != nil {
		opts = append(opts, synq.WithRegistry[remote.Todo](reg))
	}
	return synq.New(store.Collection([]remote.Todo{}), ops, opts...)
}
