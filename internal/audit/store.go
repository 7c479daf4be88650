package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

const schema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id             TEXT PRIMARY KEY,
	operation      TEXT NOT NULL,
	target_id      INTEGER NOT NULL,
	previous_value TEXT NOT NULL DEFAULT '',
	new_value      TEXT NOT NULL DEFAULT '',
	outcome        TEXT NOT NULL,
	created_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_log_target ON audit_log(target_id, created_at);
`

// Store is an append-only sqlite audit trail. Records are operational
// bookkeeping about writes this server performed; no remote domain payload
// is ever stored.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the audit database at path and
// applies the schema.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating audit db directory: %w", err)
		}
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening audit db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating audit db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert appends one record to the trail.
func (s *Store) Insert(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, operation, target_id, previous_value, new_value, outcome, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Operation, rec.TargetID, rec.PreviousValue, rec.NewValue,
		string(rec.Outcome), rec.At.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting audit record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, operation, target_id, previous_value, new_value, outcome, created_at
		 FROM audit_log ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying audit records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var outcome, createdAt string
		if err := rows.Scan(&rec.ID, &rec.Operation, &rec.TargetID,
			&rec.PreviousValue, &rec.NewValue, &outcome, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning audit record: %w", err)
		}
		rec.Outcome = Outcome(outcome)
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			rec.At = t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
