package adapter

import (
	"strings"
	"time"
)

// AsteriskRecording normalizes an Asterisk recording event, whether it was
// emitted by an ARI Stasis application, an AMI hook or a custom AGI script.
// ARI uses snake_case field names while AMI capitalizes them, so fallback
// chains cover both.
type AsteriskRecording struct {
	data map[string]any
}

func NewAsteriskRecording(data map[string]any) *AsteriskRecording {
	return &AsteriskRecording{data: data}
}

func (r *AsteriskRecording) RecordingID() string {
	return firstString(r.data, "recording_name", "name", "Uniqueid")
}

func (r *AsteriskRecording) FromNumber() string {
	return firstString(r.data, "caller_id_num", "CallerIDNum")
}

func (r *AsteriskRecording) ToNumber() string {
	return firstString(r.data, "connected_line_num", "ConnectedLineNum", "extension")
}

// Direction uses the explicit field when present. Asterisk frequently omits
// it, in which case the dialplan context is inspected: contexts containing
// "outbound" or "from-internal" are calls we placed; everything else is
// treated as inbound.
func (r *AsteriskRecording) Direction() string {
	if d := firstString(r.data, "direction"); d != "" {
		return strings.ToLower(d)
	}
	context := strings.ToLower(firstString(r.data, "context"))
	if strings.Contains(context, "outbound") || strings.Contains(context, "from-internal") {
		return DirectionOutbound
	}
	return DirectionInbound
}

func (r *AsteriskRecording) RecordingURL() string {
	return firstString(r.data, "target_uri", "recording_url")
}

// RecordingFilePath strips a file: URI down to a path, falling back to the
// bare recording name (resolved against the recordings directory by the
// fetcher).
func (r *AsteriskRecording) RecordingFilePath() string {
	if uri := firstString(r.data, "target_uri"); strings.HasPrefix(uri, "file:") {
		return strings.TrimPrefix(uri, "file:")
	}
	return r.RecordingID()
}

// RecordingFormat is the format Asterisk reports for the stored file.
func (r *AsteriskRecording) RecordingFormat() string {
	if f := firstString(r.data, "format"); f != "" {
		return strings.ToLower(f)
	}
	return "wav"
}

func (r *AsteriskRecording) DurationSeconds() (float64, bool) {
	return firstFloat(r.data, "duration")
}

func (r *AsteriskRecording) StartTime() time.Time {
	if s := firstString(r.data, "timestamp"); s != "" {
		if t, ok := parseISOTime(s); ok {
			return t
		}
	}
	if v, ok := r.data["start_time"]; ok {
		if t, ok := parseEpoch(v); ok {
			return t
		}
	}
	return time.Now().UTC()
}

func (r *AsteriskRecording) PlatformTags() map[string]string {
	tags := map[string]string{}
	if id := r.RecordingID(); id != "" {
		tags["asterisk_recording_name"] = id
	}
	setTag(tags, "asterisk_channel_id", r.data, "channel_id")
	setTag(tags, "asterisk_unique_id", r.data, "Uniqueid")
	setTag(tags, "caller_name", r.data, "caller_id_name")
	setTag(tags, "asterisk_context", r.data, "context")
	setTag(tags, "asterisk_application", r.data, "application")
	return tags
}

var asteriskEventTypes = map[string]bool{
	"RecordingFinished":  true,
	"recording_finished": true,
	"StasisEnd":          true,
}

var asteriskPlatform = Platform{
	Name:             "asterisk",
	Source:           "asterisk_adapter",
	DefaultStateFile: ".asterisk_adapter_state.json",
	// ARI sends many event types over one webhook; only recording
	// completions matter. Events without a type (AGI scripts) pass through.
	Accepts: func(event map[string]any) bool {
		t := firstString(event, "type", "event")
		return t == "" || asteriskEventTypes[t]
	},
	Parse: func(event map[string]any) Recording {
		return NewAsteriskRecording(event)
	},
}
