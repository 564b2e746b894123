package repository

import (
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/bus-schedule/pkg/config"
	"github.com/noah-isme/bus-schedule/pkg/database"
)

func newRepoMock(t *testing.T) (*database.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return database.Wrap(sqlx.NewDb(db, "sqlmock"), zap.NewNop()), mock, func() { db.Close() }
}

// newTestStore returns a migrated in-memory SQLite store.
func newTestStore(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: config.DriverSQLite, Path: config.MemoryPath}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = database.Migrate(db)
	require.NoError(t, err)
	return db
}
