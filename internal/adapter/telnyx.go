package adapter

import (
	"strings"
	"time"
)

// TelnyxRecording normalizes a Telnyx call.recording.saved event.
//
// Telnyx wraps the interesting fields in data.payload:
//
//	{
//	  "data": {
//	    "event_type": "call.recording.saved",
//	    "occurred_at": "2024-01-15T10:30:00Z",
//	    "payload": {
//	      "recording_id": "...", "call_control_id": "...",
//	      "call_session_id": "...", "connection_id": "...",
//	      "recording_urls": {"wav": "...", "mp3": "..."},
//	      "duration_millis": 30000,
//	      "from": "+1...", "to": "+1...",
//	      "direction": "incoming" | "outgoing",
//	      "start_time": "2024-01-15T10:29:30Z"
//	    }
//	  }
//	}
//
// Flat payloads (re-delivered or test events) are accepted as well.
type TelnyxRecording struct {
	payload map[string]any
	event   map[string]any
}

func NewTelnyxRecording(data map[string]any) *TelnyxRecording {
	r := &TelnyxRecording{payload: data, event: data}
	if d, ok := data["data"].(map[string]any); ok {
		r.event = d
		if p, ok := d["payload"].(map[string]any); ok {
			r.payload = p
		}
	} else if p, ok := data["payload"].(map[string]any); ok {
		r.payload = p
	}
	return r
}

func (r *TelnyxRecording) RecordingID() string {
	return firstString(r.payload, "recording_id", "call_control_id")
}

func (r *TelnyxRecording) CallSessionID() string {
	return firstString(r.payload, "call_session_id")
}

func (r *TelnyxRecording) FromNumber() string {
	return firstString(r.payload, "from")
}

func (r *TelnyxRecording) ToNumber() string {
	return firstString(r.payload, "to")
}

// Direction maps Telnyx's incoming/outgoing onto inbound/outbound.
func (r *TelnyxRecording) Direction() string {
	switch d := strings.ToLower(firstString(r.payload, "direction")); d {
	case "incoming", "":
		return DirectionInbound
	case "outgoing":
		return DirectionOutbound
	default:
		return d
	}
}

// RecordingURLs returns all format-keyed download URLs.
func (r *TelnyxRecording) RecordingURLs() map[string]string {
	out := map[string]string{}
	if urls, ok := r.payload["recording_urls"].(map[string]any); ok {
		for format, v := range urls {
			if s := stringValue(v); s != "" {
				out[format] = s
			}
		}
	}
	return out
}

// RecordingURL picks the preferred-format URL, wav before mp3.
func (r *TelnyxRecording) RecordingURL() string {
	urls := r.RecordingURLs()
	if u := urls["wav"]; u != "" {
		return u
	}
	return urls["mp3"]
}

func (r *TelnyxRecording) RecordingFilePath() string { return "" }

func (r *TelnyxRecording) DurationSeconds() (float64, bool) {
	millis, ok := firstFloat(r.payload, "duration_millis")
	if !ok {
		return 0, false
	}
	return millis / 1000.0, true
}

// StartTime prefers the recording's own start_time, then the event's
// occurred_at, then now.
func (r *TelnyxRecording) StartTime() time.Time {
	if s := firstString(r.payload, "start_time"); s != "" {
		if t, ok := parseISOTime(s); ok {
			return t
		}
	}
	if s := firstString(r.event, "occurred_at"); s != "" {
		if t, ok := parseISOTime(s); ok {
			return t
		}
	}
	return time.Now().UTC()
}

func (r *TelnyxRecording) PlatformTags() map[string]string {
	tags := map[string]string{}
	if id := r.RecordingID(); id != "" {
		tags["telnyx_recording_id"] = id
	}
	setTag(tags, "telnyx_call_session_id", r.payload, "call_session_id")
	setTag(tags, "telnyx_call_control_id", r.payload, "call_control_id")
	setTag(tags, "telnyx_connection_id", r.payload, "connection_id")
	setTag(tags, "recording_channels", r.payload, "channels")
	return tags
}

func (r *TelnyxRecording) CorrelationFields() map[string]string {
	fields := map[string]string{}
	if sid := r.CallSessionID(); sid != "" {
		fields["call_session_id"] = sid
	}
	return fields
}

var telnyxEventTypes = map[string]bool{
	"call.recording.saved": true,
	"call_recording.saved": true,
	"recording.saved":      true,
}

var telnyxPlatform = Platform{
	Name:             "telnyx",
	Source:           "telnyx_adapter",
	DefaultStateFile: ".telnyx_adapter_state.json",
	Accepts: func(event map[string]any) bool {
		scope := event
		if d, ok := event["data"].(map[string]any); ok {
			scope = d
		}
		return telnyxEventTypes[firstString(scope, "event_type")]
	},
	Parse: func(event map[string]any) Recording {
		return NewTelnyxRecording(event)
	},
}
