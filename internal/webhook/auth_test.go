package webhook

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestTwilioAuthenticator(t *testing.T) {
	const token = "twilio-auth-token"
	body := "CallSid=CA1&RecordingSid=RE1"

	// Signature per the documented scheme: URL then sorted key+value pairs.
	payload := "https://adapter.example.com/twilio/recording" +
		"CallSid" + "CA1" + "RecordingSid" + "RE1"
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(payload))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	a := &TwilioAuthenticator{
		AuthToken:   token,
		URLOverride: "https://adapter.example.com/twilio/recording",
	}

	r := httptest.NewRequest("POST", "/twilio/recording", strings.NewReader(body))
	r.Header.Set("X-Twilio-Signature", sig)
	if err := a.Authenticate(r, []byte(body)); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}

	r.Header.Set("X-Twilio-Signature", "bogus")
	if err := a.Authenticate(r, []byte(body)); err == nil {
		t.Fatalf("bogus signature accepted")
	}

	r.Header.Del("X-Twilio-Signature")
	if err := a.Authenticate(r, []byte(body)); err == nil {
		t.Fatalf("missing signature accepted")
	}
}

func TestHMACAuthenticator(t *testing.T) {
	const secret = "fs-secret"
	body := []byte(`{"uuid":"abc"}`)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	sig := hex.EncodeToString(mac.Sum(nil))

	a := &HMACAuthenticator{Secret: secret, Header: "X-Webhook-Signature"}

	r := httptest.NewRequest("POST", "/freeswitch/recording", nil)
	r.Header.Set("X-Webhook-Signature", sig)
	if err := a.Authenticate(r, body); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}

	// Uppercase hex is still the same digest.
	r.Header.Set("X-Webhook-Signature", strings.ToUpper(sig))
	if err := a.Authenticate(r, body); err != nil {
		t.Fatalf("uppercase hex rejected: %v", err)
	}

	r.Header.Set("X-Webhook-Signature", hex.EncodeToString(make([]byte, 32)))
	if err := a.Authenticate(r, body); err == nil {
		t.Fatalf("wrong signature accepted")
	}
}

func TestBasicAuthenticator(t *testing.T) {
	a := &BasicAuthenticator{Username: "bw-user", Password: "bw-pass"}

	r := httptest.NewRequest("POST", "/bandwidth/recording", nil)
	r.SetBasicAuth("bw-user", "bw-pass")
	if err := a.Authenticate(r, nil); err != nil {
		t.Fatalf("valid credentials rejected: %v", err)
	}

	r = httptest.NewRequest("POST", "/bandwidth/recording", nil)
	r.SetBasicAuth("bw-user", "wrong")
	if err := a.Authenticate(r, nil); err == nil {
		t.Fatalf("wrong password accepted")
	}

	r = httptest.NewRequest("POST", "/bandwidth/recording", nil)
	if err := a.Authenticate(r, nil); err == nil {
		t.Fatalf("missing credentials accepted")
	}
}

func TestEd25519Authenticator(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	body := []byte(`{"data":{"event_type":"call.recording.saved"}}`)
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	sig := ed25519.Sign(priv, append([]byte(ts+"."), body...))

	a := &Ed25519Authenticator{PublicKey: base64.StdEncoding.EncodeToString(pub)}

	r := httptest.NewRequest("POST", "/telnyx/recording", nil)
	r.Header.Set("Telnyx-Signature-ed25519", base64.StdEncoding.EncodeToString(sig))
	r.Header.Set("Telnyx-Timestamp", ts)
	if err := a.Authenticate(r, body); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}

	// Tampered body.
	if err := a.Authenticate(r, []byte(`{"data":{}}`)); err == nil {
		t.Fatalf("tampered body accepted")
	}

	// Stale timestamp.
	stale := strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)
	staleSig := ed25519.Sign(priv, append([]byte(stale+"."), body...))
	r.Header.Set("Telnyx-Signature-ed25519", base64.StdEncoding.EncodeToString(staleSig))
	r.Header.Set("Telnyx-Timestamp", stale)
	if err := a.Authenticate(r, body); err == nil {
		t.Fatalf("stale timestamp accepted")
	}
}

func TestAllowAll(t *testing.T) {
	r := httptest.NewRequest("POST", "/x", nil)
	if err := (AllowAll{}).Authenticate(r, nil); err != nil {
		t.Fatalf("AllowAll rejected a request: %v", err)
	}
}
