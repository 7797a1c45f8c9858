package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/adsharma/truth-serum/internal/config"
	"github.com/adsharma/truth-serum/internal/database"
	"github.com/adsharma/truth-serum/internal/migrate"
)

// PostgresAvailable reports whether POSTGRES_HOST points at a server the
// Postgres variants of the storage tests can use.
func PostgresAvailable() bool {
	return os.Getenv("POSTGRES_HOST") != ""
}

// SkipWithoutPostgres skips t unless PostgresAvailable.
func SkipWithoutPostgres(t testing.TB) {
	t.Helper()
	if !PostgresAvailable() {
		t.Skip("POSTGRES_HOST not set")
	}
}

// NewPostgresTestDB creates a fresh database on the server configured by
// the POSTGRES_* variables, applies the migrations and drops it when the
// test finishes. The base database (POSTGRES_DB) only needs to accept
// connections; test databases are created from the "postgres" database.
func NewPostgresTestDB(t testing.TB) *database.DB {
	t.Helper()
	SkipWithoutPostgres(t)
	ctx := context.Background()

	var base config.DatabaseConfig
	require.NoError(t, env.Parse(&base))
	base.Driver = config.DriverPostgres
	base.QueryDebug = false

	admin := base
	admin.Database = "postgres"
	adminDB, err := database.Open(ctx, &admin, Logger())
	require.NoError(t, err)

	name := fmt.Sprintf("truth_test_%d", time.Now().UnixNano())
	_, err = adminDB.NewRaw("CREATE DATABASE ?", bun.Ident(name)).Exec(ctx)
	if err != nil {
		_ = adminDB.Close()
		require.NoError(t, err, "create test database")
	}

	testCfg := base
	testCfg.Database = name
	db, err := database.Open(ctx, &testCfg, Logger())
	if err != nil {
		dropDatabase(adminDB, name)
		require.NoError(t, err, "connect to test database")
	}

	t.Cleanup(func() {
		_ = db.Close()
		dropDatabase(adminDB, name)
	})

	require.NoError(t, migrate.NewMigrator(db.DB, zap.NewNop()).Up(ctx))
	return db
}

func dropDatabase(adminDB *database.DB, name string) {
	ctx := context.Background()
	defer adminDB.Close()

	_, _ = adminDB.NewRaw(
		"SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = ? AND pid <> pg_backend_pid()",
		name).Exec(ctx)
	_, _ = adminDB.NewRaw("DROP DATABASE IF EXISTS ?", bun.Ident(name)).Exec(ctx)
}
