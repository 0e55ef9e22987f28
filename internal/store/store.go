package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"checkin-queue/internal/models"
)

// Dialect selects the SQL variant used for schema inspection and DDL.
// Query and update statements are shared by both dialects.
type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite3"
)

var ErrNotFound = errors.New("check-in not found")

// SQLStore is the durable record store for check-ins.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

func New(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

const selectColumns = `id, patron_name, check_in_time, status, completed_time, wait_time_seconds, past_due, account_number`

// Insert persists a new record and returns its assigned id.
func (s *SQLStore) Insert(ctx context.Context, rec models.CheckInRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO check_ins (patron_name, check_in_time, status, past_due, account_number)
		VALUES (?, ?, ?, ?, ?)
	`, rec.PatronName, rec.CheckInTime, rec.Status, boolToInt(rec.PastDue), rec.AccountNumber)
	if err != nil {
		return 0, fmt.Errorf("insert check-in: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert check-in: last id: %w", err)
	}
	return id, nil
}

func (s *SQLStore) Get(ctx context.Context, id int64) (models.CheckInRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM check_ins WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CheckInRecord{}, ErrNotFound
	}
	if err != nil {
		return models.CheckInRecord{}, fmt.Errorf("get check-in %d: %w", id, err)
	}
	return rec, nil
}

func (s *SQLStore) Exists(ctx context.Context, id int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM check_ins WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check-in %d exists: %w", id, err)
	}
	return n > 0, nil
}

// Position counts waiting records ordered at or before (checkInTime, id).
func (s *SQLStore) Position(ctx context.Context, checkInTime, id int64) (int, error) {
	var position int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM check_ins
		WHERE status = ?
		  AND (check_in_time < ? OR (check_in_time = ? AND id <= ?))
	`, models.StatusWaiting, checkInTime, checkInTime, id).Scan(&position)
	if err != nil {
		return 0, fmt.Errorf("position of %d: %w", id, err)
	}
	return position, nil
}

// ListByStatus returns records with the given status in queue order.
func (s *SQLStore) ListByStatus(ctx context.Context, status string) ([]models.CheckInRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM check_ins
		WHERE status = ?
		ORDER BY check_in_time ASC, id ASC
	`, status)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", status, err)
	}
	return collect(rows)
}

// CompletedSince returns completed records checked in at or after cutoff.
func (s *SQLStore) CompletedSince(ctx context.Context, cutoff int64) ([]models.CheckInRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM check_ins
		WHERE status = ? AND check_in_time >= ?
		ORDER BY check_in_time ASC, id ASC
	`, models.StatusCompleted, cutoff)
	if err != nil {
		return nil, fmt.Errorf("completed since %d: %w", cutoff, err)
	}
	return collect(rows)
}

// MarkCompleted moves a waiting record to completed. Zero rows means the
// record is absent or already completed; completed_time is never rewritten.
func (s *SQLStore) MarkCompleted(ctx context.Context, id, completedTime, waitSeconds int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE check_ins
		SET status = ?, completed_time = ?, wait_time_seconds = ?
		WHERE id = ? AND status = ?
	`, models.StatusCompleted, completedTime, waitSeconds, id, models.StatusWaiting)
	if err != nil {
		return 0, fmt.Errorf("complete %d: %w", id, err)
	}
	return res.RowsAffected()
}

// ClearPastDue resets the past-due flag. Zero rows means the record is
// absent or the flag was already clear.
func (s *SQLStore) ClearPastDue(ctx context.Context, id int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE check_ins SET past_due = 0 WHERE id = ? AND past_due <> 0
	`, id)
	if err != nil {
		return 0, fmt.Errorf("clear past due %d: %w", id, err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (models.CheckInRecord, error) {
	var (
		rec       models.CheckInRecord
		completed sql.NullInt64
		wait      sql.NullInt64
		pastDue   sql.NullInt64
		account   sql.NullString
	)

	err := row.Scan(
		&rec.ID,
		&rec.PatronName,
		&rec.CheckInTime,
		&rec.Status,
		&completed,
		&wait,
		&pastDue,
		&account,
	)
	if err != nil {
		return rec, err
	}

	if completed.Valid {
		v := completed.Int64
		rec.CompletedTime = &v
	}
	if wait.Valid {
		v := wait.Int64
		rec.WaitTimeSeconds = &v
	}
	rec.PastDue = pastDue.Valid && pastDue.Int64 != 0
	rec.AccountNumber = account.String

	return rec, nil
}

func collect(rows *sql.Rows) ([]models.CheckInRecord, error) {
	defer rows.Close()

	result := []models.CheckInRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan check-in: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
