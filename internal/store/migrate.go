package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

const createSQLite = `
CREATE TABLE IF NOT EXISTS check_ins (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	patron_name TEXT NOT NULL,
	check_in_time INTEGER NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('waiting', 'completed')),
	completed_time INTEGER,
	wait_time_seconds INTEGER,
	past_due INTEGER DEFAULT 0,
	account_number TEXT
)`

const createMySQL = `
CREATE TABLE IF NOT EXISTS check_ins (
	id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
	patron_name VARCHAR(255) NOT NULL,
	check_in_time BIGINT NOT NULL,
	status VARCHAR(16) NOT NULL,
	completed_time BIGINT NULL,
	wait_time_seconds BIGINT NULL,
	past_due TINYINT(1) DEFAULT 0,
	account_number VARCHAR(16) NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

type column struct {
	name string
	ddl  map[Dialect]string
}

// Columns added after the first release. Older databases get them on
// startup; fresh ones already have them from the CREATE TABLE.
var addedColumns = []column{
	{
		name: "past_due",
		ddl: map[Dialect]string{
			SQLite: `ALTER TABLE check_ins ADD COLUMN past_due INTEGER DEFAULT 0`,
			MySQL:  `ALTER TABLE check_ins ADD COLUMN past_due TINYINT(1) DEFAULT 0`,
		},
	},
	{
		name: "account_number",
		ddl: map[Dialect]string{
			SQLite: `ALTER TABLE check_ins ADD COLUMN account_number TEXT`,
			MySQL:  `ALTER TABLE check_ins ADD COLUMN account_number VARCHAR(16) NULL`,
		},
	},
}

var indexes = map[string]string{
	"idx_status":        "status",
	"idx_check_in_time": "check_in_time",
}

// Migrate brings the check_ins schema up to date and backfills defaults
// for rows that predate the added columns. It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect, accountNumber func() string) error {
	create := createSQLite
	if dialect == MySQL {
		create = createMySQL
	}
	if _, err := db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create check_ins: %w", err)
	}

	for _, col := range addedColumns {
		ok, err := hasColumn(ctx, db, dialect, col.name)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		if _, err := db.ExecContext(ctx, col.ddl[dialect]); err != nil {
			return fmt.Errorf("add column %s: %w", col.name, err)
		}
		log.Printf("[migrate] added column check_ins.%s", col.name)
	}

	for name, col := range indexes {
		if err := ensureIndex(ctx, db, dialect, name, col); err != nil {
			return err
		}
	}

	res, err := db.ExecContext(ctx, `UPDATE check_ins SET past_due = 0 WHERE past_due IS NULL`)
	if err != nil {
		return fmt.Errorf("backfill past_due: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Printf("[migrate] backfilled past_due on %d rows", n)
	}

	n, err := backfillAccountNumbers(ctx, db, accountNumber)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Printf("[migrate] backfilled account_number on %d rows", n)
	}

	return nil
}

func hasColumn(ctx context.Context, db *sql.DB, dialect Dialect, name string) (bool, error) {
	var query string
	switch dialect {
	case SQLite:
		query = `SELECT COUNT(*) FROM pragma_table_info('check_ins') WHERE name = ?`
	case MySQL:
		query = `
			SELECT COUNT(*) FROM information_schema.COLUMNS
			WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = 'check_ins' AND COLUMN_NAME = ?`
	default:
		return false, fmt.Errorf("unknown dialect %q", dialect)
	}

	var n int
	if err := db.QueryRowContext(ctx, query, name).Scan(&n); err != nil {
		return false, fmt.Errorf("inspect column %s: %w", name, err)
	}
	return n > 0, nil
}

func ensureIndex(ctx context.Context, db *sql.DB, dialect Dialect, name, col string) error {
	if dialect == SQLite {
		_, err := db.ExecContext(ctx, fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON check_ins(%s)`, name, col))
		if err != nil {
			return fmt.Errorf("create index %s: %w", name, err)
		}
		return nil
	}

	var n int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM information_schema.STATISTICS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = 'check_ins' AND INDEX_NAME = ?
	`, name).Scan(&n)
	if err != nil {
		return fmt.Errorf("inspect index %s: %w", name, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf(`CREATE INDEX %s ON check_ins(%s)`, name, col)); err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	return nil
}

func backfillAccountNumbers(ctx context.Context, db *sql.DB, accountNumber func() string) (int, error) {
	rows, err := db.QueryContext(ctx, `SELECT id FROM check_ins WHERE account_number IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("find rows without account number: %w", err)
	}

	// ids are collected before updating; SQLite runs on a single connection
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range ids {
		_, err := db.ExecContext(ctx,
			`UPDATE check_ins SET account_number = ? WHERE id = ? AND account_number IS NULL`,
			accountNumber(), id)
		if err != nil {
			return 0, fmt.Errorf("backfill account number %d: %w", id, err)
		}
	}
	return len(ids), nil
}
