// Package migrate provides database migration functionality using Goose.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/adsharma/truth-serum/internal/config"
	"github.com/adsharma/truth-serum/migrations"
)

// Module provides migration dependencies and applies pending migrations on
// start when DB_AUTO_MIGRATE is set. Start hooks run in registration
// order, so list it before modules whose hooks need the core tables.
var Module = fx.Module("migrate",
	fx.Provide(NewMigrator),
	fx.Invoke(autoMigrate),
)

// goose keeps its dialect and filesystem in package globals.
var gooseMu sync.Mutex

// Migrator handles database migrations.
type Migrator struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewMigrator creates a new Migrator instance.
func NewMigrator(db *bun.DB, logger *zap.Logger) *Migrator {
	return &Migrator{
		db:     db,
		logger: logger.Named("migrator"),
	}
}

func autoMigrate(lc fx.Lifecycle, cfg *config.Config, m *Migrator) {
	if !cfg.Database.AutoMigrate {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return m.Up(ctx)
		},
	})
}

// Up runs all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	m.logger.Info("running database migrations", zap.String("dialect", m.gooseDialect()))

	return m.run(func(sqlDB *sql.DB, dir string) error {
		if err := goose.UpContext(ctx, sqlDB, dir); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		m.logger.Info("migrations completed successfully")
		return nil
	})
}

// Down rolls back the last migration.
func (m *Migrator) Down(ctx context.Context) error {
	m.logger.Info("rolling back last migration")

	return m.run(func(sqlDB *sql.DB, dir string) error {
		if err := goose.DownContext(ctx, sqlDB, dir); err != nil {
			return fmt.Errorf("failed to rollback migration: %w", err)
		}
		m.logger.Info("rollback completed successfully")
		return nil
	})
}

// Status logs the current migration status.
func (m *Migrator) Status(ctx context.Context) error {
	return m.run(func(sqlDB *sql.DB, dir string) error {
		if err := goose.StatusContext(ctx, sqlDB, dir); err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}
		return nil
	})
}

// Version returns the current database version.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	var version int64
	err := m.run(func(sqlDB *sql.DB, _ string) error {
		v, err := goose.GetDBVersionContext(ctx, sqlDB)
		if err != nil {
			return fmt.Errorf("failed to get version: %w", err)
		}
		version = v
		return nil
	})
	return version, err
}

func (m *Migrator) run(fn func(sqlDB *sql.DB, dir string) error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{m.logger.Sugar()})

	name := m.gooseDialect()
	if err := goose.SetDialect(name); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	return fn(m.db.DB, migrations.Dir(name))
}

func (m *Migrator) gooseDialect() string {
	if m.db.Dialect().Name() == dialect.PG {
		return "postgres"
	}
	return "sqlite3"
}

// gooseLogger routes goose output through zap.
type gooseLogger struct {
	s *zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...interface{}) { l.s.Infof(format, v...) }
func (l gooseLogger) Fatalf(format string, v ...interface{}) { l.s.Fatalf(format, v...) }
