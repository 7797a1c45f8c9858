package migrate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adsharma/truth-serum/internal/config"
	"github.com/adsharma/truth-serum/internal/database"
	"github.com/adsharma/truth-serum/internal/migrate"
	"github.com/adsharma/truth-serum/internal/testutil"
)

func TestMigrator_UpDown(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, &config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: ":memory:",
	}, testutil.Logger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m := migrate.NewMigrator(db.DB, zap.NewNop())

	require.NoError(t, m.Up(ctx))
	v, err := m.Version(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, v)

	assert.Zero(t, testutil.CountRows(t, db.DB, "relations"))

	require.NoError(t, m.Down(ctx))
	v, err = m.Version(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, v)

	// re-applying is a no-op past the head
	require.NoError(t, m.Up(ctx))
	require.NoError(t, m.Up(ctx))
	v, err = m.Version(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, v)
}
