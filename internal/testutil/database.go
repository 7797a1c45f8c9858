// Package testutil provides isolated storage handles for tests.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/adsharma/truth-serum/internal/config"
	"github.com/adsharma/truth-serum/internal/database"
	"github.com/adsharma/truth-serum/internal/migrate"
)

// Logger returns a logger that discards output.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewTestDB opens a fresh in-memory SQLite database with all migrations
// applied. It is closed when the test finishes.
func NewTestDB(t testing.TB) *database.DB {
	t.Helper()
	ctx := context.Background()

	cfg := &config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: ":memory:",
	}

	db, err := database.Open(ctx, cfg, Logger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrate.NewMigrator(db.DB, zap.NewNop()).Up(ctx))

	return db
}

// QueryCounter is a bun.QueryHook that records every statement sent to
// storage.
type QueryCounter struct {
	mu      sync.Mutex
	queries []string
}

// CountQueries installs a QueryCounter on db.
func CountQueries(db *bun.DB) *QueryCounter {
	c := &QueryCounter{}
	db.AddQueryHook(c)
	return c
}

func (c *QueryCounter) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (c *QueryCounter) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, event.Query)
}

// Total returns the number of statements seen.
func (c *QueryCounter) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queries)
}

// Inserts returns how many INSERT statements targeted table.
func (c *QueryCounter) Inserts(table string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, q := range c.queries {
		q = strings.TrimSpace(q)
		if !strings.HasPrefix(strings.ToUpper(q), "INSERT") {
			continue
		}
		if strings.Contains(q, `"`+table+`"`) || strings.Contains(q, " "+table+" ") {
			n++
		}
	}
	return n
}

// Reset forgets the recorded statements.
func (c *QueryCounter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = nil
}

// CountRows returns the number of rows in table.
func CountRows(t testing.TB, db bun.IDB, table string) int {
	t.Helper()
	n, err := db.NewSelect().Table(table).Count(context.Background())
	require.NoError(t, err)
	return n
}
