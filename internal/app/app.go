package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/grainstore/internal/config"
	"github.com/vk/grainstore/internal/ctxlog"
	"github.com/vk/grainstore/internal/store"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	model  *config.Model
	store  *store.Store
}

// NewApp is the constructor for the main application. Rendered documents are
// written to outW and logs to logW. A configuration that cannot be loaded
// is a fatal startup error and panics.
func NewApp(outW, logW io.Writer, cfg *Config, loader config.Loader, opts ...store.Options) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, cfg.ConfigPaths...)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug("Configuration loaded and translated into unified model.", "requests", len(model.Requests))

	storeOpts := storeOptions(model.Store)
	for _, o := range opts {
		storeOpts = storeOpts.Merge(o)
	}
	st := store.New(storeOpts)
	logger.Debug("Store configured.", "cache_dir", st.Options().CacheDir, "engine_version", st.Options().TargetVersion)

	return &App{
		outW:   outW,
		logger: logger,
		config: cfg,
		model:  model,
		store:  st,
	}
}

// Store returns the application's store. This is primarily for testing.
func (a *App) Store() *store.Store {
	return a.store
}

// storeOptions maps the store block of the configuration onto store options.
func storeOptions(s *config.Store) store.Options {
	if s == nil {
		return store.Options{}
	}
	return store.Options{
		CacheDir:            s.CacheDir,
		TargetVersion:       s.EngineVersion,
		DefaultStyleVersion: s.DefaultStyleVersion,
		SRID:                s.SRID,
		TileFormat:          s.TileFormat,
		HTTPTimeout:         s.HTTPTimeout,
		MapDefaults:         s.Map,
		DatasourceDefaults:  s.Datasource,
		Environment:         s.Environment,
	}
}
