// Package database opens the storage session handle shared by every
// component of a process.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"go.uber.org/fx"
	_ "modernc.org/sqlite"

	"github.com/adsharma/truth-serum/internal/config"
	"github.com/adsharma/truth-serum/pkg/logger"
)

var Module = fx.Module("database",
	fx.Provide(
		NewDB,
		// Provide bun.IDB interface binding for modules that use the interface
		fx.Annotate(
			func(db *DB) bun.IDB { return db.DB },
			fx.As(new(bun.IDB)),
		),
		func(db *DB) *bun.DB { return db.DB },
	),
)

// DB is the storage session handle. It is created once, passed to every
// component that touches storage, and closed once.
type DB struct {
	*bun.DB

	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewDB opens the handle and ties Close to the fx lifecycle.
func NewDB(lc fx.Lifecycle, cfg *config.Config, log *slog.Logger) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := Open(ctx, &cfg.Database, log)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return db.Close()
		},
	})

	return db, nil
}

// Open connects to the configured engine and verifies the connection.
func Open(ctx context.Context, cfg *config.DatabaseConfig, log *slog.Logger) (*DB, error) {
	log = log.With(logger.Scope("database"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		db  *DB
		err error
	)
	if cfg.IsSQLite() {
		db, err = openSQLite(ctx, cfg, log)
	} else {
		db, err = openPostgres(ctx, cfg, log)
	}
	if err != nil {
		return nil, err
	}

	if cfg.QueryDebug {
		db.AddQueryHook(&queryLoggingHook{log: log.With(logger.Scope("bun"))})
	}

	return db, nil
}

func openPostgres(ctx context.Context, cfg *config.DatabaseConfig, log *slog.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnIdleTime = cfg.MaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("database pool created",
		slog.String("host", cfg.Host),
		slog.Int("port", cfg.Port),
		slog.String("database", cfg.Database),
		slog.Int("max_conns", cfg.MaxOpenConns),
	)

	sqldb := stdlib.OpenDBFromPool(pool)
	return &DB{
		DB:   bun.NewDB(sqldb, pgdialect.New()),
		pool: pool,
		log:  log,
	}, nil
}

func openSQLite(ctx context.Context, cfg *config.DatabaseConfig, log *slog.Logger) (*DB, error) {
	sqldb, err := sql.Open("sqlite", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if cfg.IsMemory() {
		sqldb.SetMaxOpenConns(1)
		sqldb.SetConnMaxIdleTime(0)
		sqldb.SetConnMaxLifetime(0)
	} else {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if err := sqldb.PingContext(ctx); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	log.Info("sqlite database opened",
		slog.String("path", cfg.SQLitePath),
		slog.Bool("memory", cfg.IsMemory()),
	)

	return &DB{
		DB:  bun.NewDB(sqldb, sqlitedialect.New()),
		log: log,
	}, nil
}

// Close releases the handle and, for Postgres, the pgx pool behind it.
func (d *DB) Close() error {
	d.log.Info("closing database")
	err := d.DB.Close()
	if d.pool != nil {
		d.pool.Close()
	}
	if err != nil && !errors.Is(err, sql.ErrConnDone) {
		return err
	}
	return nil
}

// queryLoggingHook implements bun.QueryHook for query logging
type queryLoggingHook struct {
	log *slog.Logger
}

func (h *queryLoggingHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *queryLoggingHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	duration := time.Since(event.StartTime)

	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		h.log.Error("query error",
			slog.String("query", event.Query),
			slog.Duration("duration", duration),
			logger.Error(event.Err),
		)
		return
	}

	if duration > 3*time.Second {
		h.log.Warn("slow query",
			slog.String("query", event.Query),
			slog.Duration("duration", duration),
		)
		return
	}

	h.log.Debug("query",
		slog.String("query", event.Query),
		slog.Duration("duration", duration),
	)
}

// SafeTx wraps a bun.Tx to make Rollback safe to call after Commit.
//
// Usage:
//
//	tx, err := BeginSafeTx(ctx, db)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback() // Safe to call even after Commit
//
//	// ... do work ...
//
//	return tx.Commit()
type SafeTx struct {
	bun.Tx
	committed bool
}

// BeginSafeTx starts a new transaction and returns a SafeTx wrapper.
func BeginSafeTx(ctx context.Context, db bun.IDB) (*SafeTx, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &SafeTx{Tx: tx}, nil
}

// Commit commits the transaction and marks it as committed.
func (tx *SafeTx) Commit() error {
	if tx.committed {
		return nil
	}
	err := tx.Tx.Commit()
	if err == nil {
		tx.committed = true
	}
	return err
}

// Rollback rolls back the transaction only if it hasn't been committed.
func (tx *SafeTx) Rollback() error {
	if tx.committed {
		return nil
	}
	return tx.Tx.Rollback()
}
