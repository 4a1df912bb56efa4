package adapter

import (
	"strings"
	"time"
)

// FreeSwitchRecording normalizes a FreeSWITCH recording event.
//
// Events can originate from mod_http_cache, mod_event_socket or custom
// Lua/dialplan scripts, so both the lowercase script-style keys and the
// Caller-* channel variable names are accepted:
//
//	uuid / call_uuid                     call identifier
//	caller_id_number / Caller-Caller-ID-Number
//	destination_number / Caller-Destination-Number
//	direction / Caller-Direction
//	recording_file / Record-File-Path    local recording reference
//	recording_url                        HTTP location when using http cache
//	record_seconds / duration / variable_duration
//	start_epoch / Caller-Channel-Created-Time (seconds or microseconds)
type FreeSwitchRecording struct {
	data map[string]any
}

func NewFreeSwitchRecording(data map[string]any) *FreeSwitchRecording {
	return &FreeSwitchRecording{data: data}
}

func (r *FreeSwitchRecording) RecordingID() string {
	return firstString(r.data, "uuid", "call_uuid")
}

func (r *FreeSwitchRecording) FromNumber() string {
	return firstString(r.data, "caller_id_number", "Caller-Caller-ID-Number")
}

func (r *FreeSwitchRecording) ToNumber() string {
	return firstString(r.data, "destination_number", "Caller-Destination-Number")
}

func (r *FreeSwitchRecording) Direction() string {
	d := firstString(r.data, "direction", "Caller-Direction")
	if d == "" {
		return DirectionInbound
	}
	return strings.ToLower(d)
}

func (r *FreeSwitchRecording) RecordingURL() string {
	return firstString(r.data, "recording_url", "recording_file")
}

func (r *FreeSwitchRecording) RecordingFilePath() string {
	return firstString(r.data, "recording_file", "Record-File-Path")
}

func (r *FreeSwitchRecording) DurationSeconds() (float64, bool) {
	return firstFloat(r.data, "record_seconds", "duration", "variable_duration")
}

func (r *FreeSwitchRecording) StartTime() time.Time {
	for _, key := range []string{"start_epoch", "Caller-Channel-Created-Time"} {
		if v, ok := r.data[key]; ok {
			if t, ok := parseEpoch(v); ok {
				return t
			}
		}
	}
	if s := firstString(r.data, "start_time"); s != "" {
		if t, ok := parseISOTime(s); ok {
			return t
		}
	}
	return time.Now().UTC()
}

func (r *FreeSwitchRecording) PlatformTags() map[string]string {
	tags := map[string]string{}
	if id := r.RecordingID(); id != "" {
		tags["freeswitch_uuid"] = id
	}
	setTag(tags, "caller_name", r.data, "caller_id_name")
	setTag(tags, "account_code", r.data, "accountcode")
	setTag(tags, "freeswitch_context", r.data, "context")
	setTag(tags, "sip_user_agent", r.data, "sip_user_agent")
	return tags
}

var freeswitchPlatform = Platform{
	Name:             "freeswitch",
	Source:           "freeswitch_adapter",
	DefaultStateFile: ".freeswitch_adapter_state.json",
	// FreeSWITCH scripts only call out on completed recordings; every event
	// with a call uuid is processable.
	Accepts: func(event map[string]any) bool { return true },
	Parse: func(event map[string]any) Recording {
		return NewFreeSwitchRecording(event)
	},
}
