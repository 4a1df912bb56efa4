// Package tracker records which recordings have already been turned into
// conversation records, so replayed webhooks do not produce duplicates.
//
// The unit of idempotence is the claim: Claim atomically registers a
// recording id the first time it is seen and refuses every later attempt.
// An entry is never removed once written; a failed build or post leaves a
// failure status behind instead of clearing the claim, so there is no
// automatic retry.
package tracker

import (
	"context"
	"encoding/json"
	"time"
)

// Terminal and transient processing statuses.
const (
	StatusProcessing  = "processing"
	StatusSuccess     = "success"
	StatusBuildFailed = "build_failed"
	StatusPostFailed  = "post_failed"
)

// Entry is the persisted state of one recording. Extra holds free-form
// correlation fields (call ids, phone numbers) flattened into the same JSON
// object as the fixed fields.
type Entry struct {
	RecordID  string
	Timestamp time.Time
	Status    string
	Extra     map[string]string
}

// MarshalJSON flattens Extra into the top-level object.
func (e Entry) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, 3+len(e.Extra))
	m["record_id"] = e.RecordID
	m["timestamp"] = e.Timestamp.UTC().Format(time.RFC3339)
	m["status"] = e.Status
	for k, v := range e.Extra {
		if k == "record_id" || k == "timestamp" || k == "status" {
			continue
		}
		m[k] = v
	}
	return json.Marshal(m)
}

// UnmarshalJSON reverses MarshalJSON; unknown string fields land in Extra.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if s, ok := m["record_id"].(string); ok {
		e.RecordID = s
	}
	if s, ok := m["timestamp"].(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			e.Timestamp = t
		}
	}
	if s, ok := m["status"].(string); ok {
		e.Status = s
	}
	delete(m, "record_id")
	delete(m, "timestamp")
	delete(m, "status")
	for k, v := range m {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if e.Extra == nil {
			e.Extra = make(map[string]string)
		}
		e.Extra[k] = s
	}
	return nil
}

// Tracker is the idempotence store shared by all webhook handlers.
type Tracker interface {
	// Claim registers a recording id if and only if it has never been seen.
	// It returns true when this caller won the claim and should process the
	// event, false when the id already exists (any status).
	Claim(ctx context.Context, recordingID string) (bool, error)
	// IsProcessed reports whether the id has an entry, regardless of status.
	IsProcessed(ctx context.Context, recordingID string) (bool, error)
	// MarkProcessed overwrites the entry for an already-claimed id with its
	// final state.
	MarkProcessed(ctx context.Context, recordingID string, entry Entry) error
	// Get returns the entry for an id when present.
	Get(ctx context.Context, recordingID string) (Entry, bool, error)
}
