package tracker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PostgresStore tracks processed recordings in a single table. Claim relies
// on the primary-key conflict for atomicity, so it is safe across replicas
// sharing one database.
type PostgresStore struct {
	db *sql.DB
}

const createProcessedRecordings = `
CREATE TABLE IF NOT EXISTS processed_recordings (
  recording_id TEXT PRIMARY KEY,
  record_id    TEXT NOT NULL DEFAULT '',
  status       TEXT NOT NULL,
  extra        JSONB NOT NULL DEFAULT '{}'::jsonb,
  updated_at   TIMESTAMPTZ NOT NULL
)
`

// NewPostgresStore ensures the tracking table exists and returns the store.
// The *sql.DB is owned by the caller.
func NewPostgresStore(ctx context.Context, db *sql.DB) (*PostgresStore, error) {
	if _, err := db.ExecContext(ctx, createProcessedRecordings); err != nil {
		return nil, fmt.Errorf("tracker: ensure table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Claim(ctx context.Context, recordingID string) (bool, error) {
	const q = `
INSERT INTO processed_recordings (recording_id, status, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (recording_id) DO NOTHING
`
	res, err := s.db.ExecContext(ctx, q, recordingID, StatusProcessing, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("tracker: claim: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("tracker: claim rows: %w", err)
	}
	return n == 1, nil
}

func (s *PostgresStore) IsProcessed(ctx context.Context, recordingID string) (bool, error) {
	const q = `SELECT 1 FROM processed_recordings WHERE recording_id = $1`
	var one int
	err := s.db.QueryRowContext(ctx, q, recordingID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("tracker: lookup: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) MarkProcessed(ctx context.Context, recordingID string, entry Entry) error {
	extra, err := json.Marshal(entry.Extra)
	if err != nil {
		return fmt.Errorf("tracker: encode extra: %w", err)
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	const q = `
INSERT INTO processed_recordings (recording_id, record_id, status, extra, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (recording_id)
DO UPDATE SET record_id = EXCLUDED.record_id,
              status = EXCLUDED.status,
              extra = EXCLUDED.extra,
              updated_at = EXCLUDED.updated_at
`
	if _, err := s.db.ExecContext(ctx, q,
		recordingID, entry.RecordID, entry.Status, extra, entry.Timestamp.UTC(),
	); err != nil {
		return fmt.Errorf("tracker: mark processed: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, recordingID string) (Entry, bool, error) {
	const q = `
SELECT record_id, status, extra, updated_at
FROM processed_recordings
WHERE recording_id = $1
`
	var (
		e     Entry
		extra []byte
	)
	err := s.db.QueryRowContext(ctx, q, recordingID).Scan(&e.RecordID, &e.Status, &extra, &e.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("tracker: get: %w", err)
	}
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &e.Extra); err != nil {
			return Entry{}, false, fmt.Errorf("tracker: decode extra: %w", err)
		}
	}
	return e, true, nil
}
