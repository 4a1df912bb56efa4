// Package webhook wires authentication, normalization, building, tracking
// and delivery into the HTTP surface of one adapter process.
//
// Processing failures after authentication are always acknowledged with
// 200 so the platform does not retry forever; the tracker entry records
// what went wrong.
package webhook

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/vcon-dev/vcon-telephony-adapters/internal/adapter"
	"github.com/vcon-dev/vcon-telephony-adapters/internal/builder"
	"github.com/vcon-dev/vcon-telephony-adapters/internal/poster"
	"github.com/vcon-dev/vcon-telephony-adapters/internal/tracker"
	"github.com/vcon-dev/vcon-telephony-adapters/pkg/logger"
)

// Pipeline processes one platform's recording webhooks end to end.
type Pipeline struct {
	Platform adapter.Platform
	Auth     Authenticator
	Builder  *builder.Builder
	Tracker  tracker.Tracker
	// Guard is the optional Redis cross-replica claim; nil disables it.
	Guard  *tracker.ClaimGuard
	Poster *poster.Poster
}

// HandleWebhook is the POST handler for the platform's event endpoint.
func (p *Pipeline) HandleWebhook(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromGin(c)

	body, err := c.GetRawData()
	if err != nil {
		log.Warn("read webhook body", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if err := p.Auth.Authenticate(c.Request, body); err != nil {
		log.Warn("webhook authentication failed", "platform", p.Platform.Name, "err", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	event, err := p.decode(body)
	if err != nil {
		log.Warn("undecodable webhook payload", "platform", p.Platform.Name, "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "undecodable payload"})
		return
	}

	if p.Platform.Accepts != nil && !p.Platform.Accepts(event) {
		log.Debug("event filtered", "platform", p.Platform.Name)
		c.String(http.StatusOK, "OK")
		return
	}

	rec := p.Platform.Parse(event)
	if rec.RecordingID() == "" {
		log.Warn("event without recording id", "platform", p.Platform.Name)
		c.String(http.StatusOK, "OK")
		return
	}
	log = log.With("recording_id", rec.RecordingID())

	if p.Guard != nil {
		won, err := p.Guard.Acquire(ctx, rec.RecordingID())
		if err != nil {
			log.Warn("claim guard unavailable, proceeding", "err", err)
		} else if !won {
			log.Info("recording claimed by another replica")
			c.String(http.StatusOK, "OK")
			return
		}
	}

	won, err := p.Tracker.Claim(ctx, rec.RecordingID())
	if err != nil {
		log.Error("tracker claim failed", "err", err)
		c.String(http.StatusOK, "OK")
		return
	}
	if !won {
		log.Info("recording already processed, skipping")
		if p.Guard != nil {
			if err := p.Guard.Release(ctx, rec.RecordingID()); err != nil {
				log.Warn("release claim guard", "err", err)
			}
		}
		c.String(http.StatusOK, "OK")
		return
	}

	entry := tracker.Entry{Extra: correlationExtra(rec)}

	v, err := p.Builder.Build(logger.With(ctx, log), rec)
	if err != nil {
		log.Error("build failed", "err", err)
		entry.Status = tracker.StatusBuildFailed
		p.mark(c, rec.RecordingID(), entry)
		c.String(http.StatusOK, "OK")
		return
	}
	entry.RecordID = v.UUID

	if p.Poster.Post(logger.With(ctx, log), v) {
		entry.Status = tracker.StatusSuccess
	} else {
		entry.Status = tracker.StatusPostFailed
	}
	p.mark(c, rec.RecordingID(), entry)
	c.String(http.StatusOK, "OK")
}

// HandleStatus reports the tracking state of one recording id.
func (p *Pipeline) HandleStatus(c *gin.Context) {
	id := c.Param("recording_id")
	e, ok, err := p.Tracker.Get(c.Request.Context(), id)
	if err != nil {
		logger.FromGin(c).Error("status lookup failed", "recording_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"recording_id": id,
		"record_id":    e.RecordID,
		"status":       e.Status,
	})
}

// HandleHealth is the liveness probe.
func HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (p *Pipeline) decode(body []byte) (map[string]any, error) {
	if p.Platform.FormEncoded {
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, err
		}
		event := make(map[string]any, len(form))
		for k, vs := range form {
			if len(vs) > 0 {
				event[k] = vs[0]
			}
		}
		return event, nil
	}
	var event map[string]any
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, err
	}
	return event, nil
}

func (p *Pipeline) mark(c *gin.Context, recordingID string, entry tracker.Entry) {
	if err := p.Tracker.MarkProcessed(c.Request.Context(), recordingID, entry); err != nil {
		logger.FromGin(c).Error("persist tracking entry", "recording_id", recordingID, "err", err)
	}
}

func correlationExtra(rec adapter.Recording) map[string]string {
	extra := map[string]string{}
	if from := rec.FromNumber(); from != "" {
		extra["from_number"] = from
	}
	if to := rec.ToNumber(); to != "" {
		extra["to_number"] = to
	}
	if cor, ok := rec.(adapter.Correlated); ok {
		for k, v := range cor.CorrelationFields() {
			extra[k] = v
		}
	}
	return extra
}
