// Package builder assembles one conversation record from one normalized
// recording. The build is all-or-nothing: callers either get a complete
// record or an error, never a partial one.
package builder

import (
	"context"
	"encoding/base64"
	"errors"
	"sort"
	"strings"

	"github.com/vcon-dev/vcon-telephony-adapters/internal/adapter"
	"github.com/vcon-dev/vcon-telephony-adapters/internal/fetch"
	"github.com/vcon-dev/vcon-telephony-adapters/internal/vcon"
	"github.com/vcon-dev/vcon-telephony-adapters/pkg/logger"
)

var mimeTypes = map[string]string{
	"wav": "audio/wav",
	"mp3": "audio/mpeg",
}

// MIMEType maps a recording format to its MIME type. Unrecognized formats
// fall back to audio/wav.
func MIMEType(format string) string {
	if m, ok := mimeTypes[strings.ToLower(format)]; ok {
		return m
	}
	return "audio/wav"
}

// Originator returns the party index that initiated the call: 0 (the
// from-party) for the outbound direction family, 1 for everything else
// including unknown. There is no "unknown" originator state.
func Originator(direction string) int {
	switch strings.ToLower(direction) {
	case "outbound", "outbound-api", "outgoing":
		return 0
	default:
		return 1
	}
}

// Builder turns normalized recordings into conversation records.
type Builder struct {
	// Source is the value of the "source" tag, e.g. "twilio_adapter".
	Source string
	// DownloadRecordings controls whether audio is fetched and embedded.
	DownloadRecordings bool
	// Format is the preferred recording format (wav or mp3).
	Format string
	// Fetcher retrieves audio bytes; may be nil when downloading is off.
	Fetcher fetch.Fetcher
}

// Build produces the record for one recording event.
//
// Party 0 is always the from-number and party 1 the to-number. Audio is
// embedded base64 when downloading is enabled and the fetch succeeds;
// otherwise the dialog references "{location}.{format}". A recording
// without any location yields a reference-less dialog, which is valid.
func (b *Builder) Build(ctx context.Context, rec adapter.Recording) (*vcon.Vcon, error) {
	if rec == nil {
		return nil, errors.New("builder: nil recording")
	}

	v := vcon.New()
	v.CreatedAt = rec.StartTime()

	v.AddParty(vcon.Party{Tel: rec.FromNumber()})
	v.AddParty(vcon.Party{Tel: rec.ToNumber()})

	d := vcon.Dialog{
		Type:       vcon.DialogTypeRecording,
		Start:      rec.StartTime(),
		Parties:    []int{0, 1},
		Originator: Originator(rec.Direction()),
		Mimetype:   MIMEType(b.Format),
	}
	if dur, ok := rec.DurationSeconds(); ok {
		d.Duration = &dur
	}

	if b.DownloadRecordings && rec.RecordingURL() != "" && b.Fetcher != nil {
		audio, err := b.Fetcher.Fetch(ctx, rec)
		if err == nil && len(audio) > 0 {
			d.Body = base64.StdEncoding.EncodeToString(audio)
			d.Encoding = "base64"
			d.Filename = rec.RecordingID() + "." + b.Format
		} else {
			logger.From(ctx).Warn("download failed, using URL reference",
				"recording_id", rec.RecordingID(), "err", err)
			d.URL = rec.RecordingURL() + "." + b.Format
		}
	} else if rec.RecordingURL() != "" {
		d.URL = rec.RecordingURL() + "." + b.Format
	}

	v.AddDialog(d)

	v.AddTag("source", b.Source)
	tags := rec.PlatformTags()
	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v.AddTag(name, tags[name])
	}

	logger.From(ctx).Info("built record",
		"uuid", v.UUID,
		"recording_id", rec.RecordingID(),
		"from", rec.FromNumber(),
		"to", rec.ToNumber(),
	)
	return v, nil
}
