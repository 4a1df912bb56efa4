package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/vcon-dev/vcon-telephony-adapters/internal/adapter"
)

func TestNormalizeExt(t *testing.T) {
	if got := normalizeExt("/r/rec-1.gsm", "wav"); got != "/r/rec-1.wav" {
		t.Fatalf("got %q", got)
	}
	if got := normalizeExt("/r/rec-1.wav", "wav"); got != "/r/rec-1.wav" {
		t.Fatalf("got %q", got)
	}
	if got := normalizeExt("/r/rec-1", "mp3"); got != "/r/rec-1.mp3" {
		t.Fatalf("got %q", got)
	}
}

func TestTwilioFetchAppendsFormatAndAuth(t *testing.T) {
	var gotPath, gotUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, _, _ = r.BasicAuth()
		_, _ = w.Write([]byte("RIFFaudio"))
	}))
	defer srv.Close()

	f := &Twilio{Client: srv.Client(), AccountSID: "AC1", AuthToken: "tok", Format: "wav"}
	rec := adapter.NewTwilioRecording(map[string]any{"RecordingUrl": srv.URL + "/recordings/RE1"})

	body, err := f.Fetch(context.Background(), rec)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if string(body) != "RIFFaudio" {
		t.Fatalf("unexpected body: %q", body)
	}
	if gotPath != "/recordings/RE1.wav" {
		t.Fatalf("expected format suffix, got %q", gotPath)
	}
	if gotUser != "AC1" {
		t.Fatalf("expected basic auth, got %q", gotUser)
	}
}

func TestTwilioFetchNoSource(t *testing.T) {
	f := &Twilio{Client: NewClient(), Format: "wav"}
	rec := adapter.NewTwilioRecording(map[string]any{})
	if _, err := f.Fetch(context.Background(), rec); err == nil {
		t.Fatalf("expected error without a recording url")
	}
}

func TestAsteriskFallsBackToLocalFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "rec-9.wav"), []byte("audio"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	// ARI server always fails; file read must win.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	f := &Asterisk{
		Client:         srv.Client(),
		ARIBaseURL:     srv.URL,
		ARIUsername:    "ari",
		ARIPassword:    "secret",
		RecordingsPath: dir,
		Format:         "wav",
	}
	rec := adapter.NewAsteriskRecording(map[string]any{"recording_name": "rec-9", "format": "wav"})

	body, err := f.Fetch(context.Background(), rec)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if string(body) != "audio" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestAsteriskARIEndpointShape(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := &Asterisk{Client: srv.Client(), ARIBaseURL: srv.URL, Format: "wav"}
	rec := adapter.NewAsteriskRecording(map[string]any{"recording_name": "rec-1"})
	if _, err := f.Fetch(context.Background(), rec); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if gotPath != "/recordings/stored/rec-1/file" {
		t.Fatalf("unexpected ARI path: %q", gotPath)
	}
}

func TestFreeSwitchConstructedURL(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte("fsaudio"))
	}))
	defer srv.Close()

	// Recording URL is a bare path, not HTTP; local file does not exist, so
	// the base-URL join is the only viable strategy.
	f := &FreeSwitch{
		Client:         srv.Client(),
		RecordingsPath: t.TempDir(),
		URLBase:        srv.URL + "/recordings/",
		Format:         "wav",
	}
	rec := adapter.NewFreeSwitchRecording(map[string]any{"recording_file": "/var/rec/fs-1.wav"})

	body, err := f.Fetch(context.Background(), rec)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if string(body) != "fsaudio" {
		t.Fatalf("unexpected body: %q", body)
	}
	if gotPath != "/recordings/fs-1.wav" {
		t.Fatalf("expected basename join, got %q", gotPath)
	}
}

func TestTelnyxPicksConfiguredFormat(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("mp3audio"))
	}))
	defer srv.Close()

	f := &Telnyx{Client: srv.Client(), APIKey: "KEY", Format: "mp3"}
	rec := adapter.NewTelnyxRecording(map[string]any{
		"payload": map[string]any{
			"recording_id": "tr-1",
			"recording_urls": map[string]any{
				"wav": srv.URL + "/tr-1.wav",
				"mp3": srv.URL + "/tr-1.mp3",
			},
		},
	})

	if _, err := f.Fetch(context.Background(), rec); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if gotPath != "/tr-1.mp3" {
		t.Fatalf("expected configured format url, got %q", gotPath)
	}
	if gotAuth != "Bearer KEY" {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
}

func TestBandwidthBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "bw" || pass != "secret" {
			http.Error(w, "denied", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("bwaudio"))
	}))
	defer srv.Close()

	f := &Bandwidth{Client: srv.Client(), Username: "bw", Password: "secret"}
	rec := adapter.NewBandwidthRecording(map[string]any{"recordingId": "r-1", "mediaUrl": srv.URL + "/media/r-1"})

	body, err := f.Fetch(context.Background(), rec)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if string(body) != "bwaudio" {
		t.Fatalf("unexpected body: %q", body)
	}
}
