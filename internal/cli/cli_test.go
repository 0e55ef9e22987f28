package cli

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkin-queue/internal/models"
	"checkin-queue/internal/queue"
	"checkin-queue/internal/realtime"
	"checkin-queue/internal/store"
	"checkin-queue/internal/watcher"
)

func envelope(t *testing.T, typ realtime.EventType, data any) realtime.Envelope {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return realtime.Envelope{Type: typ, Data: raw}
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"serve", "migrate", "watch"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}

	assert.NotNil(t, root.Flags().Lookup("port"))
	assert.NotNil(t, root.Flags().Lookup("dsn"))
}

func TestServeOptions_OverrideEnv(t *testing.T) {
	t.Setenv("PORT", "4000")
	t.Setenv("DB_DSN", "env.db")

	cfg := (&serveOptions{}).config()
	assert.Equal(t, "4000", cfg.Port)
	assert.Equal(t, "env.db", cfg.DBDSN)

	cfg = (&serveOptions{port: "5000", dsn: "flag.db"}).config()
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "flag.db", cfg.DBDSN)
}

func TestBoard_AppliesEvents(t *testing.T) {
	var out bytes.Buffer
	b := &board{out: &out}

	b.apply(envelope(t, realtime.InitialQueue, []models.QueueEntry{
		{ID: 1, PatronName: "Ann", AccountNumber: "1900001", WaitTime: 90},
	}))
	assert.Len(t, b.entries, 1)
	assert.Contains(t, out.String(), "1 waiting")
	assert.Contains(t, out.String(), "Ann")
	assert.Contains(t, out.String(), "1m30s")

	out.Reset()
	b.apply(envelope(t, realtime.NewCheckIn, models.QueueEntry{ID: 2, PatronName: "Ben", PastDue: true}))
	assert.Len(t, b.entries, 2)
	assert.Contains(t, out.String(), "\a")
	assert.Contains(t, out.String(), "2 waiting")
	assert.Contains(t, out.String(), "yes")

	out.Reset()
	b.apply(envelope(t, realtime.QueueUpdate, []models.QueueEntry{}))
	assert.Empty(t, b.entries)
	assert.Contains(t, out.String(), "0 waiting")
}

func TestBoard_IgnoresUnknownAndMalformed(t *testing.T) {
	var out bytes.Buffer
	b := &board{out: &out, entries: []models.QueueEntry{{ID: 1}}}

	b.apply(realtime.Envelope{Type: "something-else", Data: json.RawMessage(`{}`)})
	b.apply(realtime.Envelope{Type: realtime.QueueUpdate, Data: json.RawMessage(`{"not":"a list"}`)})

	assert.Len(t, b.entries, 1)
	assert.Empty(t, out.String())
}

func TestBoard_Status(t *testing.T) {
	var out bytes.Buffer
	b := &board{out: &out}

	b.status(watcher.Reconnecting, 2, 5)
	b.status(watcher.Failed, 5, 5)

	assert.Equal(t, "Reconnecting (2/5)...\nConnection failed\n", out.String())
}

// boardObserver feeds hub messages straight into a board.
type boardObserver struct {
	b *board
}

func (o boardObserver) ID() string { return "board" }

func (o boardObserver) Send(msg []byte) error {
	var env realtime.Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return err
	}
	o.b.apply(env)
	return nil
}

func (o boardObserver) Close() error { return nil }

func TestBoard_NewCheckInAlreadyInSnapshot(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx, db, store.SQLite, func() string { return "1900000" }))

	engine := queue.NewEngine(store.New(db, store.SQLite), nil)
	hub := realtime.NewHub(engine.ListWaiting, nil)

	// the console connects after the insert but before the announcement
	res, err := engine.CheckIn(ctx, "Ann")
	require.NoError(t, err)

	var out bytes.Buffer
	b := &board{out: &out}
	_, err = hub.Register(ctx, boardObserver{b: b})
	require.NoError(t, err)

	hub.NewCheckIn(res.Entry)

	waiting, err := engine.ListWaiting(ctx)
	require.NoError(t, err)
	require.Len(t, waiting, 1)
	assert.Len(t, b.entries, 1)
	assert.Contains(t, out.String(), "New check-in: Ann")
}

func TestBoard_NewCheckInReloadsQueue(t *testing.T) {
	var out bytes.Buffer
	calls := 0
	b := &board{
		out: &out,
		fetch: func() ([]models.QueueEntry, error) {
			calls++
			return []models.QueueEntry{{ID: 1, PatronName: "Ann"}, {ID: 2, PatronName: "Ben"}}, nil
		},
	}

	b.apply(envelope(t, realtime.InitialQueue, []models.QueueEntry{{ID: 1, PatronName: "Ann"}}))
	assert.Equal(t, 0, calls)

	b.apply(envelope(t, realtime.NewCheckIn, models.QueueEntry{ID: 2, PatronName: "Ben"}))
	assert.Equal(t, 1, calls)
	assert.Equal(t, []int64{1, 2}, []int64{b.entries[0].ID, b.entries[1].ID})
}

func TestBoard_NewCheckInReloadFailureFallsBack(t *testing.T) {
	var out bytes.Buffer
	b := &board{
		out: &out,
		fetch: func() ([]models.QueueEntry, error) {
			return nil, errors.New("connection refused")
		},
		entries: []models.QueueEntry{{ID: 1, PatronName: "Ann"}},
	}

	b.apply(envelope(t, realtime.NewCheckIn, models.QueueEntry{ID: 1, PatronName: "Ann"}))
	assert.Len(t, b.entries, 1)

	b.apply(envelope(t, realtime.NewCheckIn, models.QueueEntry{ID: 2, PatronName: "Ben"}))
	assert.Len(t, b.entries, 2)
}

func TestWatchCmd_CancelIsCleanExit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"watch", "--url", "ws://127.0.0.1:1/ws", "--delay", "1h"})

	assert.NoError(t, root.ExecuteContext(ctx))
}
