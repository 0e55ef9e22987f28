package models

const (
	StatusWaiting   = "waiting"
	StatusCompleted = "completed"
)

// CheckInRecord is one patron's visit from arrival to completion.
// Times are milliseconds since the Unix epoch.
type CheckInRecord struct {
	ID              int64  `json:"id"`
	PatronName      string `json:"patronName"`
	CheckInTime     int64  `json:"checkInTime"`
	Status          string `json:"status"` // waiting, completed
	CompletedTime   *int64 `json:"completedTime"`
	WaitTimeSeconds *int64 `json:"waitTimeSeconds"`
	PastDue         bool   `json:"pastDue"`
	AccountNumber   string `json:"accountNumber"`
}

// QueueEntry is a waiting record as shown to staff. WaitTime is computed
// at read time and never stored.
type QueueEntry struct {
	ID            int64  `json:"id"`
	PatronName    string `json:"patronName"`
	CheckInTime   int64  `json:"checkInTime"`
	WaitTime      int64  `json:"waitTime"`
	PastDue       bool   `json:"pastDue"`
	AccountNumber string `json:"accountNumber"`
}

type CheckInRequest struct {
	PatronName string `json:"patronName"`
}

// CheckInResult is returned by a successful check-in. Position is a
// point-in-time rank and may be stale by the time a client reads it.
type CheckInResult struct {
	ID            int64      `json:"id"`
	Position      int        `json:"position"`
	PastDue       bool       `json:"pastDue"`
	AccountNumber string     `json:"accountNumber"`
	Entry         QueueEntry `json:"-"`
}
