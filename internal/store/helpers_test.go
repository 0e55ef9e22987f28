package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"checkin-queue/internal/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestStore(t *testing.T) *SQLStore {
	t.Helper()
	db := openTestDB(t)
	require.NoError(t, Migrate(context.Background(), db, SQLite, func() string { return "1900000" }))
	return New(db, SQLite)
}

func waitingRecord(name string, at int64) models.CheckInRecord {
	return models.CheckInRecord{
		PatronName:    name,
		CheckInTime:   at,
		Status:        models.StatusWaiting,
		PastDue:       true,
		AccountNumber: "1912345",
	}
}
