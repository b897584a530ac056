package testutils

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"suumo-traveltime/db"
)

func SetupTestDatabase(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	testDB, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=10000&_foreign_keys=on")
	require.NoError(t, err)

	err = db.InitializeSchema(testDB)
	require.NoError(t, err)

	t.Cleanup(func() { testDB.Close() })
	return testDB
}

func SetupTestRepositoryFactory(t *testing.T) *db.RepositoryFactory {
	t.Helper()
	return db.NewRepositoryFactory(SetupTestDatabase(t))
}
