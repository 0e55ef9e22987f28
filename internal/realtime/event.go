package realtime

import (
	"encoding/json"

	"checkin-queue/internal/models"
)

type EventType string

const (
	// InitialQueue is the full snapshot sent to one observer on connect.
	InitialQueue EventType = "initial-queue"
	// NewCheckIn carries one new entry. Advisory only; clients should treat
	// QueueUpdate as the source of truth.
	NewCheckIn EventType = "new-checkin"
	// QueueUpdate is the full snapshot broadcast after a record changes.
	QueueUpdate EventType = "queue-update"
)

// Event is the envelope written to observers.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Envelope is the client-side view of an Event with the payload left raw.
type Envelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Snapshot decodes the payload of initial-queue and queue-update events.
func (e Envelope) Snapshot() ([]models.QueueEntry, error) {
	var entries []models.QueueEntry
	err := json.Unmarshal(e.Data, &entries)
	return entries, err
}

// Entry decodes the payload of a new-checkin event.
func (e Envelope) Entry() (models.QueueEntry, error) {
	var entry models.QueueEntry
	err := json.Unmarshal(e.Data, &entry)
	return entry, err
}
