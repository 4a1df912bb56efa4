package webhook

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Authenticator validates that a webhook request really came from the
// telephony platform. body is the raw request body as received; the request
// body stream may already be consumed when Authenticate runs.
type Authenticator interface {
	Authenticate(r *http.Request, body []byte) error
}

// AllowAll accepts every request. Used when no platform credentials are
// configured.
type AllowAll struct{}

func (AllowAll) Authenticate(*http.Request, []byte) error { return nil }

// TwilioAuthenticator checks the X-Twilio-Signature header: base64 HMAC-SHA1
// of the full request URL followed by the sorted form parameters, keyed with
// the account auth token.
type TwilioAuthenticator struct {
	AuthToken string
	// URLOverride replaces the reconstructed request URL when the service
	// sits behind a proxy that rewrites scheme or host.
	URLOverride string
}

func (a *TwilioAuthenticator) Authenticate(r *http.Request, body []byte) error {
	sig := r.Header.Get("X-Twilio-Signature")
	if sig == "" {
		return errors.New("missing X-Twilio-Signature header")
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		return fmt.Errorf("parse form: %w", err)
	}
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(a.requestURL(r))
	for _, k := range keys {
		for _, v := range form[k] {
			b.WriteString(k)
			b.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(a.AuthToken))
	mac.Write([]byte(b.String()))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if subtle.ConstantTimeCompare([]byte(want), []byte(sig)) != 1 {
		return errors.New("twilio signature mismatch")
	}
	return nil
}

func (a *TwilioAuthenticator) requestURL(r *http.Request) string {
	if a.URLOverride != "" {
		return a.URLOverride
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

// HMACAuthenticator checks a hex-encoded HMAC-SHA256 of the raw body carried
// in a platform-specific header (FreeSWITCH and Asterisk event senders).
type HMACAuthenticator struct {
	Secret string
	Header string
}

func (a *HMACAuthenticator) Authenticate(r *http.Request, body []byte) error {
	sig := r.Header.Get(a.Header)
	if sig == "" {
		return fmt.Errorf("missing %s header", a.Header)
	}
	mac := hmac.New(sha256.New, []byte(a.Secret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	if subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(sig))) != 1 {
		return errors.New("signature mismatch")
	}
	return nil
}

// BasicAuthenticator checks HTTP Basic credentials (Bandwidth callbacks).
type BasicAuthenticator struct {
	Username string
	Password string
}

func (a *BasicAuthenticator) Authenticate(r *http.Request, _ []byte) error {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return errors.New("missing basic auth credentials")
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(a.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(a.Password)) == 1
	if !userOK || !passOK {
		return errors.New("basic auth mismatch")
	}
	return nil
}

// Ed25519Authenticator checks the Telnyx webhook signature: Ed25519 over
// "<timestamp>.<body>" with the workspace public key, signature and
// timestamp carried in dedicated headers.
type Ed25519Authenticator struct {
	// PublicKey is the base64-encoded 32-byte verify key from the portal.
	PublicKey string
	// Tolerance rejects stale timestamps; zero means 5 minutes.
	Tolerance time.Duration
}

func (a *Ed25519Authenticator) Authenticate(r *http.Request, body []byte) error {
	sigB64 := r.Header.Get("Telnyx-Signature-ed25519")
	ts := r.Header.Get("Telnyx-Timestamp")
	if sigB64 == "" || ts == "" {
		return errors.New("missing telnyx signature headers")
	}

	key, err := base64.StdEncoding.DecodeString(a.PublicKey)
	if err != nil || len(key) != ed25519.PublicKeySize {
		return errors.New("telnyx public key invalid")
	}
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return errors.New("telnyx signature not base64")
	}

	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return errors.New("telnyx timestamp invalid")
	}
	tolerance := a.Tolerance
	if tolerance == 0 {
		tolerance = 5 * time.Minute
	}
	if d := time.Since(time.Unix(sec, 0)); d > tolerance || d < -tolerance {
		return errors.New("telnyx timestamp outside tolerance")
	}

	msg := append([]byte(ts+"."), body...)
	if !ed25519.Verify(ed25519.PublicKey(key), msg, sig) {
		return errors.New("telnyx signature mismatch")
	}
	return nil
}
