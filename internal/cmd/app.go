package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/adsharma/truth-serum/domain/graph"
	"github.com/adsharma/truth-serum/domain/ids"
	"github.com/adsharma/truth-serum/domain/importer"
	"github.com/adsharma/truth-serum/domain/kinds"
	"github.com/adsharma/truth-serum/domain/relations"
	"github.com/adsharma/truth-serum/domain/schema"
	"github.com/adsharma/truth-serum/domain/typeregistry"
	"github.com/adsharma/truth-serum/internal/config"
	"github.com/adsharma/truth-serum/internal/database"
	"github.com/adsharma/truth-serum/internal/migrate"
	"github.com/adsharma/truth-serum/pkg/logger"
)

const (
	startTimeout = 30 * time.Second
	stopTimeout  = 10 * time.Second
)

// deps are the components a subcommand can use.
type deps struct {
	fx.In

	Config   *config.Config
	Migrator *migrate.Migrator
	Registry *typeregistry.Registry
	Catalog  *schema.Catalog
	Store    *relations.Store
	Graph    *graph.Service
	Importer *importer.Importer
}

// appMode selects how much of the graph is started.
type appMode int

const (
	// fullApp migrates, creates kind tables and bootstraps types.
	fullApp appMode = iota
	// storageOnly opens storage without migrating, for migrate commands.
	storageOnly
)

// withApp starts an application for one command, runs fn and stops it.
// Metrics are exported after fn returns, whether or not it failed.
func (c *cli) withApp(ctx context.Context, mode appMode, fn func(ctx context.Context, d deps) error) error {
	var d deps

	opts := []fx.Option{
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			l := &fxevent.SlogLogger{Logger: log}
			l.UseLogLevel(slog.LevelDebug)
			return l
		}),
		logger.Module,
		config.Module,
		database.Module,
		ids.Module,
		typeregistry.Module,
		relations.Module,
		schema.Module,
		graph.Module,
		importer.Module,
	}
	switch mode {
	case fullApp:
		opts = append(opts, migrate.Module, kinds.Module)
	case storageOnly:
		opts = append(opts,
			fx.Provide(migrate.NewMigrator),
			fx.Invoke(func(c *schema.Catalog) error { return kinds.Register(c) }),
		)
	}
	opts = append(opts, fx.Invoke(func(in deps) { d = in }))

	app := fx.New(opts...)
	if err := app.Err(); err != nil {
		return fmt.Errorf("build application: %w", err)
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("start application: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		_ = app.Stop(stopCtx)
	}()

	err := fn(ctx, d)
	return errors.Join(err, writeMetrics(c.v.GetString("metrics-file")))
}
