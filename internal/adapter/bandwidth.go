package adapter

import (
	"strings"
	"time"
)

// BandwidthRecording normalizes a Bandwidth recordingComplete event.
//
// Relevant fields: recordingId, callId, accountId, applicationId, mediaUrl,
// from, to, direction, startTime/endTime (ISO-8601), duration (ISO-8601
// duration such as "PT30S"), channels, fileFormat.
type BandwidthRecording struct {
	data map[string]any
}

func NewBandwidthRecording(data map[string]any) *BandwidthRecording {
	return &BandwidthRecording{data: data}
}

func (r *BandwidthRecording) RecordingID() string {
	return firstString(r.data, "recordingId")
}

func (r *BandwidthRecording) CallID() string {
	return firstString(r.data, "callId")
}

func (r *BandwidthRecording) FromNumber() string {
	return firstString(r.data, "from")
}

func (r *BandwidthRecording) ToNumber() string {
	return firstString(r.data, "to")
}

func (r *BandwidthRecording) Direction() string {
	d := firstString(r.data, "direction")
	if d == "" {
		return DirectionInbound
	}
	return strings.ToLower(d)
}

func (r *BandwidthRecording) RecordingURL() string {
	return firstString(r.data, "mediaUrl")
}

func (r *BandwidthRecording) RecordingFilePath() string { return "" }

// FileFormat is the format Bandwidth stored the media in.
func (r *BandwidthRecording) FileFormat() string {
	if f := firstString(r.data, "fileFormat"); f != "" {
		return strings.ToLower(f)
	}
	return "wav"
}

// DurationSeconds parses Bandwidth's ISO-8601 duration strings.
func (r *BandwidthRecording) DurationSeconds() (float64, bool) {
	s := firstString(r.data, "duration")
	if s == "" {
		return 0, false
	}
	return parseISODuration(s)
}

func (r *BandwidthRecording) StartTime() time.Time {
	if s := firstString(r.data, "startTime"); s != "" {
		if t, ok := parseISOTime(s); ok {
			return t
		}
	}
	return time.Now().UTC()
}

// EndTime returns the recording end, when present.
func (r *BandwidthRecording) EndTime() (time.Time, bool) {
	if s := firstString(r.data, "endTime"); s != "" {
		return parseISOTime(s)
	}
	return time.Time{}, false
}

func (r *BandwidthRecording) PlatformTags() map[string]string {
	tags := map[string]string{}
	if id := r.RecordingID(); id != "" {
		tags["bandwidth_recording_id"] = id
	}
	setTag(tags, "bandwidth_call_id", r.data, "callId")
	setTag(tags, "bandwidth_account_id", r.data, "accountId")
	setTag(tags, "bandwidth_application_id", r.data, "applicationId")
	setTag(tags, "recording_channels", r.data, "channels")
	if _, ok := r.data["transcription"]; ok {
		tags["has_transcription"] = "true"
	}
	return tags
}

func (r *BandwidthRecording) CorrelationFields() map[string]string {
	fields := map[string]string{}
	if id := r.CallID(); id != "" {
		fields["call_id"] = id
	}
	return fields
}

var bandwidthEventTypes = map[string]bool{
	"recordingComplete":      true,
	"recording":              true,
	"transcriptionAvailable": true,
}

var bandwidthPlatform = Platform{
	Name:             "bandwidth",
	Source:           "bandwidth_adapter",
	DefaultStateFile: ".bandwidth_adapter_state.json",
	Accepts: func(event map[string]any) bool {
		return bandwidthEventTypes[firstString(event, "eventType")]
	},
	Parse: func(event map[string]any) Recording {
		return NewBandwidthRecording(event)
	},
}
