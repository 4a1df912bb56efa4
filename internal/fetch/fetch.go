// Package fetch retrieves raw recording audio for the record builder.
//
// Each platform has its own ordered list of retrieval strategies
// (authenticated API, direct URL, local file, constructed URL). A failing
// strategy is logged and the next one is tried; only exhausting every
// strategy is an error, and even that is non-fatal to the caller, which
// falls back to a URL reference.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/vcon-dev/vcon-telephony-adapters/internal/adapter"
	"github.com/vcon-dev/vcon-telephony-adapters/pkg/logger"
)

// DefaultTimeout bounds every individual retrieval attempt.
const DefaultTimeout = 60 * time.Second

// ErrNoSource is returned when a recording carries no usable location.
var ErrNoSource = errors.New("fetch: no recording source available")

// Fetcher obtains raw audio bytes for one normalized recording.
type Fetcher interface {
	Fetch(ctx context.Context, rec adapter.Recording) ([]byte, error)
}

// NewClient returns the HTTP client used for recording downloads.
func NewClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}

type requestOption func(*http.Request)

func withBasicAuth(username, password string) requestOption {
	return func(r *http.Request) { r.SetBasicAuth(username, password) }
}

func withBearer(token string) requestOption {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func get(ctx context.Context, client *http.Client, url string, opts ...requestOption) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for _, o := range opts {
		o(req)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch: GET %s returned %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func isHTTP(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// normalizeExt forces the preferred extension onto a local recording path.
func normalizeExt(p, format string) string {
	if strings.HasSuffix(p, "."+format) {
		return p
	}
	return strings.TrimSuffix(p, filepath.Ext(p)) + "." + format
}

func readLocal(p, baseDir, format string) ([]byte, error) {
	if !filepath.IsAbs(p) {
		p = filepath.Join(baseDir, p)
	}
	return os.ReadFile(normalizeExt(p, format))
}

/* ===================== Twilio ===================== */

// Twilio downloads from the RecordingUrl with the format extension
// appended, authenticated with account credentials.
type Twilio struct {
	Client     *http.Client
	AccountSID string
	AuthToken  string
	Format     string
}

func (f *Twilio) Fetch(ctx context.Context, rec adapter.Recording) ([]byte, error) {
	if rec.RecordingURL() == "" {
		return nil, ErrNoSource
	}
	url := rec.RecordingURL() + "." + f.Format

	var opts []requestOption
	if f.AccountSID != "" && f.AuthToken != "" {
		opts = append(opts, withBasicAuth(f.AccountSID, f.AuthToken))
	}
	body, err := get(ctx, f.Client, url, opts...)
	if err != nil {
		logger.From(ctx).Warn("twilio recording download failed", "url", url, "err", err)
		return nil, err
	}
	return body, nil
}

/* ===================== Asterisk ===================== */

// Asterisk tries the ARI stored-recording endpoint first, then a direct
// HTTP URL, then a local file under the recordings directory.
type Asterisk struct {
	Client         *http.Client
	ARIBaseURL     string
	ARIUsername    string
	ARIPassword    string
	RecordingsPath string
	Format         string
}

func (f *Asterisk) Fetch(ctx context.Context, rec adapter.Recording) ([]byte, error) {
	log := logger.From(ctx)

	if f.ARIBaseURL != "" && rec.RecordingID() != "" {
		url := fmt.Sprintf("%s/recordings/stored/%s/file", strings.TrimSuffix(f.ARIBaseURL, "/"), rec.RecordingID())
		body, err := get(ctx, f.Client, url, withBasicAuth(f.ARIUsername, f.ARIPassword))
		if err == nil {
			return body, nil
		}
		log.Warn("asterisk ARI download failed", "url", url, "err", err)
	}

	if u := rec.RecordingURL(); isHTTP(u) {
		body, err := get(ctx, f.Client, u)
		if err == nil {
			return body, nil
		}
		log.Warn("asterisk URL download failed", "url", u, "err", err)
	}

	if p := rec.RecordingFilePath(); p != "" {
		format := f.Format
		if ast, ok := rec.(*adapter.AsteriskRecording); ok {
			format = ast.RecordingFormat()
		}
		body, err := readLocal(p, f.RecordingsPath, format)
		if err == nil {
			return body, nil
		}
		log.Warn("asterisk file read failed", "path", p, "err", err)
	}

	return nil, fmt.Errorf("fetch: no asterisk source succeeded for %q", rec.RecordingID())
}

/* ===================== FreeSWITCH ===================== */

// FreeSwitch tries a direct HTTP URL, then a local file, then a URL
// constructed from the configured recordings base URL and the basename of
// the known location.
type FreeSwitch struct {
	Client         *http.Client
	RecordingsPath string
	URLBase        string
	Format         string
}

func (f *FreeSwitch) Fetch(ctx context.Context, rec adapter.Recording) ([]byte, error) {
	log := logger.From(ctx)

	if u := rec.RecordingURL(); isHTTP(u) {
		body, err := get(ctx, f.Client, u)
		if err == nil {
			return body, nil
		}
		log.Warn("freeswitch URL download failed", "url", u, "err", err)
	}

	if p := rec.RecordingFilePath(); p != "" {
		body, err := readLocal(p, f.RecordingsPath, f.Format)
		if err == nil {
			return body, nil
		}
		log.Warn("freeswitch file read failed", "path", p, "err", err)
	}

	if f.URLBase != "" && rec.RecordingURL() != "" {
		u := strings.TrimSuffix(f.URLBase, "/") + "/" + path.Base(rec.RecordingURL())
		body, err := get(ctx, f.Client, u)
		if err == nil {
			return body, nil
		}
		log.Warn("freeswitch constructed URL download failed", "url", u, "err", err)
	}

	return nil, fmt.Errorf("fetch: no freeswitch source succeeded for %q", rec.RecordingID())
}

/* ===================== Telnyx ===================== */

// Telnyx downloads the format-keyed URL matching the preferred format,
// optionally authenticated with a bearer API key.
type Telnyx struct {
	Client *http.Client
	APIKey string
	Format string
}

func (f *Telnyx) Fetch(ctx context.Context, rec adapter.Recording) ([]byte, error) {
	url := rec.RecordingURL()
	if tr, ok := rec.(*adapter.TelnyxRecording); ok {
		if u := tr.RecordingURLs()[f.Format]; u != "" {
			url = u
		}
	}
	if url == "" {
		return nil, ErrNoSource
	}

	var opts []requestOption
	if f.APIKey != "" {
		opts = append(opts, withBearer(f.APIKey))
	}
	body, err := get(ctx, f.Client, url, opts...)
	if err != nil {
		logger.From(ctx).Warn("telnyx recording download failed", "url", url, "err", err)
		return nil, err
	}
	return body, nil
}

/* ===================== Bandwidth ===================== */

// Bandwidth downloads the media URL with Basic auth.
type Bandwidth struct {
	Client   *http.Client
	Username string
	Password string
}

func (f *Bandwidth) Fetch(ctx context.Context, rec adapter.Recording) ([]byte, error) {
	url := rec.RecordingURL()
	if url == "" {
		return nil, ErrNoSource
	}

	var opts []requestOption
	if f.Username != "" && f.Password != "" {
		opts = append(opts, withBasicAuth(f.Username, f.Password))
	}
	body, err := get(ctx, f.Client, url, opts...)
	if err != nil {
		logger.From(ctx).Warn("bandwidth recording download failed", "url", url, "err", err)
		return nil, err
	}
	return body, nil
}
