package builder

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vcon-dev/vcon-telephony-adapters/internal/adapter"
	"github.com/vcon-dev/vcon-telephony-adapters/internal/vcon"
)

type fakeRecording struct {
	id       string
	from     string
	to       string
	dir      string
	url      string
	duration float64
	hasDur   bool
	start    time.Time
	tags     map[string]string
}

func (f *fakeRecording) RecordingID() string       { return f.id }
func (f *fakeRecording) FromNumber() string        { return f.from }
func (f *fakeRecording) ToNumber() string          { return f.to }
func (f *fakeRecording) Direction() string         { return f.dir }
func (f *fakeRecording) RecordingURL() string      { return f.url }
func (f *fakeRecording) RecordingFilePath() string { return "" }
func (f *fakeRecording) DurationSeconds() (float64, bool) {
	return f.duration, f.hasDur
}
func (f *fakeRecording) StartTime() time.Time            { return f.start }
func (f *fakeRecording) PlatformTags() map[string]string { return f.tags }

type fakeFetcher struct {
	audio []byte
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, rec adapter.Recording) ([]byte, error) {
	return f.audio, f.err
}

func baseRecording() *fakeRecording {
	return &fakeRecording{
		id:       "RE123",
		from:     "+15551234567",
		to:       "+15559876543",
		dir:      "inbound",
		url:      "https://api.example.com/recordings/RE123",
		duration: 42.5,
		hasDur:   true,
		start:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		tags:     map[string]string{"call_sid": "CA999", "direction": "inbound"},
	}
}

func TestOriginator(t *testing.T) {
	cases := map[string]int{
		"outbound":     0,
		"outbound-api": 0,
		"outgoing":     0,
		"OUTBOUND":     0,
		"inbound":      1,
		"incoming":     1,
		"":             1,
		"weird":        1,
	}
	for dir, want := range cases {
		if got := Originator(dir); got != want {
			t.Fatalf("Originator(%q) = %d, want %d", dir, got, want)
		}
	}
}

func TestMIMEType(t *testing.T) {
	if got := MIMEType("wav"); got != "audio/wav" {
		t.Fatalf("wav mime = %q", got)
	}
	if got := MIMEType("mp3"); got != "audio/mpeg" {
		t.Fatalf("mp3 mime = %q", got)
	}
	if got := MIMEType("ogg"); got != "audio/wav" {
		t.Fatalf("unknown format mime = %q, want audio/wav fallback", got)
	}
}

func TestBuildEmbedsAudio(t *testing.T) {
	audio := []byte("RIFFfakewavdata")
	b := &Builder{
		Source:             "twilio_adapter",
		DownloadRecordings: true,
		Format:             "wav",
		Fetcher:            &fakeFetcher{audio: audio},
	}

	v, err := b.Build(context.Background(), baseRecording())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(v.Parties) != 2 {
		t.Fatalf("parties = %d, want 2", len(v.Parties))
	}
	if v.Parties[0].Tel != "+15551234567" || v.Parties[1].Tel != "+15559876543" {
		t.Fatalf("party order wrong: %+v", v.Parties)
	}
	if len(v.Dialog) != 1 {
		t.Fatalf("dialogs = %d, want 1", len(v.Dialog))
	}
	d := v.Dialog[0]
	if d.Type != vcon.DialogTypeRecording {
		t.Fatalf("dialog type = %q", d.Type)
	}
	if d.Originator != 1 {
		t.Fatalf("inbound originator = %d, want 1", d.Originator)
	}
	if d.Encoding != "base64" {
		t.Fatalf("encoding = %q, want base64", d.Encoding)
	}
	decoded, err := base64.StdEncoding.DecodeString(d.Body)
	if err != nil || string(decoded) != string(audio) {
		t.Fatalf("body does not round-trip: %v", err)
	}
	if d.Filename != "RE123.wav" {
		t.Fatalf("filename = %q", d.Filename)
	}
	if d.URL != "" {
		t.Fatalf("embedded dialog must not carry a URL, got %q", d.URL)
	}
	if d.Duration == nil || *d.Duration != 42.5 {
		t.Fatalf("duration = %v, want 42.5", d.Duration)
	}
}

func TestBuildFallsBackToURLOnFetchError(t *testing.T) {
	b := &Builder{
		Source:             "twilio_adapter",
		DownloadRecordings: true,
		Format:             "mp3",
		Fetcher:            &fakeFetcher{err: errors.New("boom")},
	}

	v, err := b.Build(context.Background(), baseRecording())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	d := v.Dialog[0]
	if d.Body != "" || d.Encoding != "" {
		t.Fatalf("fetch failure must not embed audio: %+v", d)
	}
	if d.URL != "https://api.example.com/recordings/RE123.mp3" {
		t.Fatalf("url = %q", d.URL)
	}
	if d.Mimetype != "audio/mpeg" {
		t.Fatalf("mimetype = %q", d.Mimetype)
	}
}

func TestBuildURLReferenceWhenDownloadDisabled(t *testing.T) {
	b := &Builder{Source: "twilio_adapter", Format: "wav"}

	v, err := b.Build(context.Background(), baseRecording())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	d := v.Dialog[0]
	if d.URL != "https://api.example.com/recordings/RE123.wav" {
		t.Fatalf("url = %q", d.URL)
	}
	if d.Body != "" {
		t.Fatalf("download disabled must not embed audio")
	}
}

func TestBuildNoLocation(t *testing.T) {
	rec := baseRecording()
	rec.url = ""
	rec.hasDur = false
	b := &Builder{Source: "freeswitch_adapter", DownloadRecordings: true, Format: "wav", Fetcher: &fakeFetcher{}}

	v, err := b.Build(context.Background(), rec)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	d := v.Dialog[0]
	if d.URL != "" || d.Body != "" {
		t.Fatalf("locationless recording must yield a reference-less dialog: %+v", d)
	}
	if d.Duration != nil {
		t.Fatalf("absent duration must be omitted, got %v", *d.Duration)
	}
}

func TestBuildTags(t *testing.T) {
	b := &Builder{Source: "twilio_adapter", Format: "wav"}
	v, err := b.Build(context.Background(), baseRecording())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := v.Tag("source"); got != "twilio_adapter" {
		t.Fatalf("source tag = %q", got)
	}
	if got := v.Tag("call_sid"); got != "CA999" {
		t.Fatalf("call_sid tag = %q", got)
	}
	if len(v.Attachments) != 1 {
		t.Fatalf("attachments = %d, want single tags attachment", len(v.Attachments))
	}
}

func TestBuildOutboundOriginator(t *testing.T) {
	rec := baseRecording()
	rec.dir = "outbound-api"
	b := &Builder{Source: "twilio_adapter", Format: "wav"}
	v, err := b.Build(context.Background(), rec)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if v.Dialog[0].Originator != 0 {
		t.Fatalf("outbound-api originator = %d, want 0", v.Dialog[0].Originator)
	}
	if !strings.HasPrefix(v.Dialog[0].Start.Format(time.RFC3339), "2026-03-01T12:00:00") {
		t.Fatalf("start = %v", v.Dialog[0].Start)
	}
}

func TestBuildNilRecording(t *testing.T) {
	b := &Builder{Source: "twilio_adapter", Format: "wav"}
	if _, err := b.Build(context.Background(), nil); err == nil {
		t.Fatalf("nil recording must error")
	}
}
