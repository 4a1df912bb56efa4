// Package poster delivers finished conversation records to the conserver
// ingestion endpoint.
package poster

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vcon-dev/vcon-telephony-adapters/internal/vcon"
	"github.com/vcon-dev/vcon-telephony-adapters/pkg/logger"
)

// DefaultTimeout bounds one delivery attempt.
const DefaultTimeout = 30 * time.Second

// Poster posts records to a single conserver endpoint. Delivery is
// best-effort: Post reports success or failure and never retries, since the
// tracker treats an attempted recording as final either way.
type Poster struct {
	// URL is the conserver ingestion endpoint.
	URL string
	// Headers are added verbatim to every request (auth tokens etc.).
	Headers map[string]string
	// IngressLists names the conserver chains that should receive the
	// record, sent as a comma-joined query parameter.
	IngressLists []string
	// Client defaults to an HTTP client with DefaultTimeout.
	Client *http.Client
}

// Post sends one record. It returns true when the conserver acknowledged
// with a 2xx status, false for any transport or HTTP failure.
func (p *Poster) Post(ctx context.Context, v *vcon.Vcon) bool {
	log := logger.From(ctx)

	body, err := v.ToJSON()
	if err != nil {
		log.Error("encode record", "uuid", v.UUID, "err", err)
		return false
	}

	target, err := p.buildURL()
	if err != nil {
		log.Error("conserver url invalid", "url", p.URL, "err", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		log.Error("build conserver request", "err", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	for k, val := range p.Headers {
		req.Header.Set(k, val)
	}

	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Error("post record", "uuid", v.UUID, "err", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error("conserver rejected record",
			"uuid", v.UUID, "status", resp.StatusCode)
		return false
	}

	log.Info("posted record", "uuid", v.UUID, "status", resp.StatusCode)
	return true
}

func (p *Poster) buildURL() (string, error) {
	u, err := url.Parse(p.URL)
	if err != nil {
		return "", err
	}
	if len(p.IngressLists) > 0 {
		q := u.Query()
		q.Set("ingress_lists", strings.Join(p.IngressLists, ","))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
