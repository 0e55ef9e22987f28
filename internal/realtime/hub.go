package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"checkin-queue/internal/models"
	"checkin-queue/internal/monitoring"
)

const maxSendWorkers = 20

// Observer is one connected staff client.
type Observer interface {
	ID() string
	Send(msg []byte) error
	Close() error
}

// Handle identifies a registered observer.
type Handle string

// SnapshotFunc returns the current waiting queue.
type SnapshotFunc func(ctx context.Context) ([]models.QueueEntry, error)

// Hub fans queue events out to every registered observer.
//
// Sends are serialized: one broadcast finishes on every observer before the
// next begins, and a new observer gets its initial snapshot before any
// later broadcast. Each observer therefore sees events in call order.
type Hub struct {
	mu        sync.RWMutex
	observers map[Handle]Observer

	sendMu   sync.Mutex
	snapshot SnapshotFunc
	monitor  *monitoring.Monitor
}

func NewHub(snapshot SnapshotFunc, monitor *monitoring.Monitor) *Hub {
	return &Hub{
		observers: make(map[Handle]Observer),
		snapshot:  snapshot,
		monitor:   monitor,
	}
}

// Register sends the current queue to obs and adds it to the live set.
// On error obs is closed and not registered.
func (h *Hub) Register(ctx context.Context, obs Observer) (Handle, error) {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	entries, err := h.snapshot(ctx)
	if err != nil {
		obs.Close()
		return "", fmt.Errorf("initial snapshot: %w", err)
	}

	msg, err := json.Marshal(Event{Type: InitialQueue, Data: entries})
	if err != nil {
		obs.Close()
		return "", err
	}
	if err := obs.Send(msg); err != nil {
		obs.Close()
		return "", fmt.Errorf("send initial snapshot: %w", err)
	}

	handle := Handle(obs.ID())
	h.mu.Lock()
	h.observers[handle] = obs
	total := len(h.observers)
	h.mu.Unlock()

	h.monitor.SetObservers(total)
	log.Printf("[realtime] %s registered, total: %d", handle, total)
	return handle, nil
}

// Unregister removes and closes an observer. Unknown handles are ignored.
func (h *Hub) Unregister(handle Handle) {
	h.mu.Lock()
	obs, ok := h.observers[handle]
	delete(h.observers, handle)
	total := len(h.observers)
	h.mu.Unlock()

	if !ok {
		return
	}
	obs.Close()
	h.monitor.SetObservers(total)
	log.Printf("[realtime] %s unregistered, total: %d", handle, total)
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

// Broadcast sends ev to every observer. Observers that fail are removed;
// failures never reach the caller.
func (h *Hub) Broadcast(ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[realtime] encode %s: %v", ev.Type, err)
		return
	}

	h.sendMu.Lock()
	defer h.sendMu.Unlock()
	h.fanOut(msg)
}

// NewCheckIn announces a single new entry.
func (h *Hub) NewCheckIn(entry models.QueueEntry) {
	h.Broadcast(Event{Type: NewCheckIn, Data: entry})
}

// QueueUpdate broadcasts a fresh snapshot. The snapshot is read under the
// send lock so a later update never carries older state than an earlier one.
func (h *Hub) QueueUpdate(ctx context.Context) {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	if h.Count() == 0 {
		return
	}

	entries, err := h.snapshot(ctx)
	if err != nil {
		log.Printf("[realtime] queue-update snapshot: %v", err)
		return
	}
	msg, err := json.Marshal(Event{Type: QueueUpdate, Data: entries})
	if err != nil {
		log.Printf("[realtime] encode queue-update: %v", err)
		return
	}
	h.fanOut(msg)
}

// Close disconnects every observer.
func (h *Hub) Close() {
	h.mu.Lock()
	observers := h.observers
	h.observers = make(map[Handle]Observer)
	h.mu.Unlock()

	for _, obs := range observers {
		obs.Close()
	}
	h.monitor.SetObservers(0)
	log.Printf("[realtime] closed %d observers", len(observers))
}

// fanOut must be called with sendMu held.
func (h *Hub) fanOut(msg []byte) {
	h.mu.RLock()
	targets := make([]Observer, 0, len(h.observers))
	for _, obs := range h.observers {
		targets = append(targets, obs)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	var (
		wg     sync.WaitGroup
		failMu sync.Mutex
		failed []Handle
	)
	sem := make(chan struct{}, maxSendWorkers)

	for _, obs := range targets {
		wg.Add(1)
		sem <- struct{}{}
		go func(o Observer) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := o.Send(msg); err != nil {
				log.Printf("[realtime] %s write error: %v", o.ID(), err)
				failMu.Lock()
				failed = append(failed, Handle(o.ID()))
				failMu.Unlock()
			}
		}(obs)
	}
	wg.Wait()

	for _, handle := range failed {
		h.monitor.TrackBroadcastFailure()
		h.Unregister(handle)
	}
}
