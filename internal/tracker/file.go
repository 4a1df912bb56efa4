package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vcon-dev/vcon-telephony-adapters/pkg/logger"
)

// FileStore is the default single-replica tracker: one JSON object keyed by
// recording id, persisted to disk on every mutation with a temp-file write
// and an atomic rename. All methods are safe for concurrent use within one
// process; cross-replica safety needs the Postgres store or the Redis claim
// guard instead.
type FileStore struct {
	path string

	mu      sync.Mutex
	entries map[string]Entry
}

// NewFileStore loads the tracking file at path, creating parent directories
// as needed. A missing file starts empty; an unreadable or corrupt file is
// logged and also starts empty rather than blocking webhook intake.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("tracker: state file path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("tracker: create state dir: %w", err)
		}
	}

	s := &FileStore{path: path, entries: make(map[string]Entry)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tracker: read state file: %w", err)
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		logger.From(context.Background()).Warn("tracking file corrupt, starting empty",
			"path", path, "err", err)
		s.entries = make(map[string]Entry)
	}
	return s, nil
}

func (s *FileStore) Claim(ctx context.Context, recordingID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[recordingID]; ok {
		return false, nil
	}
	s.entries[recordingID] = Entry{
		Timestamp: time.Now().UTC(),
		Status:    StatusProcessing,
	}
	if err := s.flushLocked(); err != nil {
		delete(s.entries, recordingID)
		return false, err
	}
	return true, nil
}

func (s *FileStore) IsProcessed(ctx context.Context, recordingID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[recordingID]
	return ok, nil
}

func (s *FileStore) MarkProcessed(ctx context.Context, recordingID string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	s.entries[recordingID] = entry
	return s.flushLocked()
}

func (s *FileStore) Get(ctx context.Context, recordingID string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[recordingID]
	return e, ok, nil
}

// flushLocked writes the whole map to a sibling temp file and renames it
// over the state file, so readers only ever see a complete document.
// Callers hold s.mu.
func (s *FileStore) flushLocked() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("tracker: encode state: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("tracker: write state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("tracker: replace state: %w", err)
	}
	return nil
}
