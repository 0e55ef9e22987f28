package queue

import (
	"time"

	"checkin-queue/internal/models"
)

// WaitTime is the whole seconds a record has waited as of now.
func WaitTime(now time.Time, checkInTime int64) int64 {
	return CompletionWait(now.UnixMilli(), checkInTime)
}

// CompletionWait is floor((completed - checkIn) / 1000), clamped at zero.
func CompletionWait(completedTime, checkInTime int64) int64 {
	d := completedTime - checkInTime
	if d <= 0 {
		return 0
	}
	return d / 1000
}

// Entry projects a record into its staff-facing queue entry.
func Entry(now time.Time, rec models.CheckInRecord) models.QueueEntry {
	return models.QueueEntry{
		ID:            rec.ID,
		PatronName:    rec.PatronName,
		CheckInTime:   rec.CheckInTime,
		WaitTime:      WaitTime(now, rec.CheckInTime),
		PastDue:       rec.PastDue,
		AccountNumber: rec.AccountNumber,
	}
}
