package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkin-queue/internal/models"
)

type fakeObserver struct {
	id string

	mu     sync.Mutex
	msgs   []Envelope
	fail   bool
	closed int
}

func newFakeObserver(id string) *fakeObserver {
	return &fakeObserver{id: id}
}

func (f *fakeObserver) ID() string { return f.id }

func (f *fakeObserver) Send(msg []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broken pipe")
	}
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return err
	}
	f.msgs = append(f.msgs, env)
	return nil
}

func (f *fakeObserver) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeObserver) setFail(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = v
}

func (f *fakeObserver) received() []Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Envelope(nil), f.msgs...)
}

type queueState struct {
	mu      sync.Mutex
	entries []models.QueueEntry
}

func (q *queueState) add(id int64, name string) models.QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	e := models.QueueEntry{ID: id, PatronName: name, CheckInTime: id * 1000}
	q.entries = append(q.entries, e)
	return e
}

func (q *queueState) snapshot(context.Context) ([]models.QueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.QueueEntry, len(q.entries))
	copy(out, q.entries)
	return out, nil
}

func TestBroadcast_NoObservers(t *testing.T) {
	h := NewHub((&queueState{}).snapshot, nil)

	assert.NotPanics(t, func() {
		h.Broadcast(Event{Type: QueueUpdate, Data: []models.QueueEntry{}})
		h.NewCheckIn(models.QueueEntry{ID: 1})
		h.QueueUpdate(context.Background())
	})
	assert.Equal(t, 0, h.Count())
}

func TestRegister_SendsCurrentSnapshot(t *testing.T) {
	state := &queueState{}
	state.add(1, "Alice")
	state.add(2, "Bob")
	h := NewHub(state.snapshot, nil)

	obs := newFakeObserver("o1")
	handle, err := h.Register(context.Background(), obs)
	require.NoError(t, err)
	assert.Equal(t, Handle("o1"), handle)
	assert.Equal(t, 1, h.Count())

	msgs := obs.received()
	require.Len(t, msgs, 1)
	assert.Equal(t, InitialQueue, msgs[0].Type)

	got, err := msgs[0].Snapshot()
	require.NoError(t, err)
	want, _ := state.snapshot(context.Background())
	assert.Equal(t, want, got)
}

func TestRegister_InitialIsUnicast(t *testing.T) {
	state := &queueState{}
	h := NewHub(state.snapshot, nil)

	first := newFakeObserver("first")
	_, err := h.Register(context.Background(), first)
	require.NoError(t, err)
	_, err = h.Register(context.Background(), newFakeObserver("second"))
	require.NoError(t, err)

	assert.Len(t, first.received(), 1)
}

func TestRegister_SnapshotErrorRejectsObserver(t *testing.T) {
	h := NewHub(func(context.Context) ([]models.QueueEntry, error) {
		return nil, errors.New("store down")
	}, nil)

	obs := newFakeObserver("o1")
	_, err := h.Register(context.Background(), obs)
	assert.Error(t, err)
	assert.Equal(t, 0, h.Count())
	assert.Equal(t, 1, obs.closed)
}

func TestBroadcast_FailureRemovesOnlyBrokenObserver(t *testing.T) {
	state := &queueState{}
	h := NewHub(state.snapshot, nil)
	ctx := context.Background()

	good := newFakeObserver("good")
	bad := newFakeObserver("bad")
	_, err := h.Register(ctx, good)
	require.NoError(t, err)
	_, err = h.Register(ctx, bad)
	require.NoError(t, err)

	bad.setFail(true)
	h.NewCheckIn(state.add(1, "Carol"))

	assert.Equal(t, 1, h.Count())
	assert.Equal(t, 1, bad.closed)

	msgs := good.received()
	require.Len(t, msgs, 2)
	assert.Equal(t, NewCheckIn, msgs[1].Type)
	entry, err := msgs[1].Entry()
	require.NoError(t, err)
	assert.Equal(t, "Carol", entry.PatronName)

	// later broadcasts still reach the healthy observer
	h.QueueUpdate(ctx)
	assert.Len(t, good.received(), 3)
}

func TestUnregister_Idempotent(t *testing.T) {
	h := NewHub((&queueState{}).snapshot, nil)
	obs := newFakeObserver("o1")
	handle, err := h.Register(context.Background(), obs)
	require.NoError(t, err)

	h.Unregister(handle)
	h.Unregister(handle)
	h.Unregister("never-registered")

	assert.Equal(t, 0, h.Count())
	assert.Equal(t, 1, obs.closed)
}

func TestQueueUpdate_CarriesLatestState(t *testing.T) {
	state := &queueState{}
	h := NewHub(state.snapshot, nil)
	obs := newFakeObserver("o1")
	_, err := h.Register(context.Background(), obs)
	require.NoError(t, err)

	state.add(1, "Alice")
	state.add(2, "Bob")
	h.QueueUpdate(context.Background())

	msgs := obs.received()
	require.Len(t, msgs, 2)
	assert.Equal(t, QueueUpdate, msgs[1].Type)
	entries, err := msgs[1].Snapshot()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestBroadcast_PerObserverOrdering(t *testing.T) {
	h := NewHub((&queueState{}).snapshot, nil)
	ctx := context.Background()

	observers := make([]*fakeObserver, 5)
	for i := range observers {
		observers[i] = newFakeObserver(fmt.Sprintf("o%d", i))
		_, err := h.Register(ctx, observers[i])
		require.NoError(t, err)
	}

	const n = 50
	for i := 1; i <= n; i++ {
		h.NewCheckIn(models.QueueEntry{ID: int64(i)})
	}

	for _, obs := range observers {
		msgs := obs.received()
		require.Len(t, msgs, n+1)
		for i, msg := range msgs[1:] {
			entry, err := msg.Entry()
			require.NoError(t, err)
			assert.Equal(t, int64(i+1), entry.ID)
		}
	}
}

func TestHub_ConcurrentRegisterAndBroadcast(t *testing.T) {
	h := NewHub((&queueState{}).snapshot, nil)
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		next atomic.Int64
	)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			handle, err := h.Register(ctx, newFakeObserver(fmt.Sprintf("o%d", i)))
			if err == nil && i%2 == 0 {
				h.Unregister(handle)
			}
		}(i)
		go func() {
			defer wg.Done()
			h.NewCheckIn(models.QueueEntry{ID: next.Add(1)})
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, h.Count())
	h.Close()
	assert.Equal(t, 0, h.Count())
}
