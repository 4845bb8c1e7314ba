package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/revittco/postdesk/internal/blog"
	"github.com/revittco/postdesk/internal/config"
	"github.com/revittco/postdesk/internal/consistency"
	"github.com/revittco/postdesk/internal/events"
	"github.com/revittco/postdesk/internal/querycache"
	"github.com/revittco/postdesk/internal/store/sqlite"
	"github.com/revittco/postdesk/internal/telemetry"
)

// app holds the wired components one command runs against.
type app struct {
	cfg    *Config
	file   *config.FileConfig
	logger *slog.Logger

	db     *sqlite.DB
	cache  *querycache.Store
	bus    *events.Bus
	engine *consistency.Engine
	svc    *blog.Service

	shutdown func(context.Context) error
}

// newApp opens the database and wires the cache, the consistency engine and
// the blog service. Log output goes to logOut.
func newApp(ctx context.Context, cfg *Config, logOut io.Writer) (*app, error) {
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	file, err := loadFileConfig(cfg.ConfigFile)
	if err != nil {
		return nil, err
	}

	shutdown, err := telemetry.Setup(ctx, "postdesk", telemetry.Config{
		Endpoint: cfg.OTelEndpoint,
		Enabled:  cfg.OTelEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBDSN), 0o700); err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := sqlite.New(ctx, cfg.DBDSN)
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("open database: %w", err)
	}

	qc := querycache.NewStore(file.QueryCache(), querycache.WithLogger(logger))
	bus := events.NewBus()
	engine := consistency.NewEngine(qc,
		consistency.WithLogger(logger),
		consistency.WithPolicy(file.Policy()),
		consistency.WithPublisher(bus),
	)
	svc := blog.NewService(db, qc, engine,
		blog.WithPageSize(file.PageSize()),
		blog.WithLogger(logger),
	)

	return &app{
		cfg:      cfg,
		file:     file,
		logger:   logger,
		db:       db,
		cache:    qc,
		bus:      bus,
		engine:   engine,
		svc:      svc,
		shutdown: shutdown,
	}, nil
}

// loadFileConfig reads the YAML config if it exists.
func loadFileConfig(path string) (*config.FileConfig, error) {
	if path == "" {
		return config.Default(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return config.LoadFile(path)
}

func (a *app) Close(ctx context.Context) error {
	a.bus.Close()
	err := a.db.Close()
	if serr := a.shutdown(ctx); serr != nil && err == nil {
		err = serr
	}
	return err
}
