package adapter

import (
	"testing"
	"time"
)

func TestFreeSwitchFields(t *testing.T) {
	r := NewFreeSwitchRecording(map[string]any{
		"uuid":               "fs-uuid-1",
		"caller_id_number":   "+15551234567",
		"destination_number": "+15559876543",
		"direction":          "Outbound",
		"recording_file":     "/recordings/fs-uuid-1.wav",
		"record_seconds":     "42",
		"start_epoch":        "1705314570",
	})

	if r.RecordingID() != "fs-uuid-1" {
		t.Fatalf("unexpected id: %q", r.RecordingID())
	}
	if r.Direction() != "outbound" {
		t.Fatalf("unexpected direction: %q", r.Direction())
	}
	if r.RecordingFilePath() != "/recordings/fs-uuid-1.wav" {
		t.Fatalf("unexpected path: %q", r.RecordingFilePath())
	}
	d, ok := r.DurationSeconds()
	if !ok || d != 42.0 {
		t.Fatalf("unexpected duration: %v %v", d, ok)
	}
	want := time.Date(2024, 1, 15, 10, 29, 30, 0, time.UTC)
	if !r.StartTime().Equal(want) {
		t.Fatalf("unexpected start: %v", r.StartTime())
	}
}

func TestFreeSwitchChannelVariableNames(t *testing.T) {
	// Event socket events use the Caller-* variable casing.
	r := NewFreeSwitchRecording(map[string]any{
		"call_uuid":                   "fs-uuid-2",
		"Caller-Caller-ID-Number":     "1001",
		"Caller-Destination-Number":   "1002",
		"Caller-Direction":            "inbound",
		"Caller-Channel-Created-Time": "1705314570000000",
		"Record-File-Path":            "fs-uuid-2.wav",
	})
	if r.RecordingID() != "fs-uuid-2" {
		t.Fatalf("unexpected id: %q", r.RecordingID())
	}
	if r.FromNumber() != "1001" || r.ToNumber() != "1002" {
		t.Fatalf("unexpected numbers: %q %q", r.FromNumber(), r.ToNumber())
	}
	// Microsecond epoch must collapse to seconds.
	want := time.Date(2024, 1, 15, 10, 29, 30, 0, time.UTC)
	if !r.StartTime().Equal(want) {
		t.Fatalf("unexpected start: %v", r.StartTime())
	}
	if r.RecordingFilePath() != "fs-uuid-2.wav" {
		t.Fatalf("unexpected path: %q", r.RecordingFilePath())
	}
}

func TestFreeSwitchDefaultsAndTags(t *testing.T) {
	r := NewFreeSwitchRecording(map[string]any{
		"uuid":           "fs-uuid-3",
		"caller_id_name": "Bob",
		"accountcode":    "ACCT42",
	})
	if r.Direction() != DirectionInbound {
		t.Fatalf("expected inbound default, got %q", r.Direction())
	}
	tags := r.PlatformTags()
	if tags["freeswitch_uuid"] != "fs-uuid-3" || tags["caller_name"] != "Bob" || tags["account_code"] != "ACCT42" {
		t.Fatalf("unexpected tags: %v", tags)
	}
	if _, ok := tags["sip_user_agent"]; ok {
		t.Fatalf("absent field must not become a tag")
	}
}
