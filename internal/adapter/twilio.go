package adapter

import (
	"strings"
	"time"
)

// TwilioRecording normalizes a Twilio recording status callback.
// Twilio delivers these as application/x-www-form-urlencoded; the decoded
// form is presented here as a string-keyed map.
// Ref: https://www.twilio.com/docs/voice/api/recording
type TwilioRecording struct {
	data map[string]any
}

func NewTwilioRecording(data map[string]any) *TwilioRecording {
	return &TwilioRecording{data: data}
}

func (r *TwilioRecording) RecordingID() string {
	return firstString(r.data, "RecordingSid")
}

func (r *TwilioRecording) FromNumber() string {
	return firstString(r.data, "From", "Caller")
}

func (r *TwilioRecording) ToNumber() string {
	return firstString(r.data, "To", "Called")
}

func (r *TwilioRecording) Direction() string {
	return strings.ToLower(firstString(r.data, "Direction"))
}

func (r *TwilioRecording) RecordingURL() string {
	return firstString(r.data, "RecordingUrl")
}

// RecordingFilePath is always empty; Twilio recordings are remote-only.
func (r *TwilioRecording) RecordingFilePath() string { return "" }

func (r *TwilioRecording) DurationSeconds() (float64, bool) {
	return firstFloat(r.data, "RecordingDuration")
}

// StartTime parses Twilio's RFC-2822 RecordingStartTime; anything else
// resolves to now.
func (r *TwilioRecording) StartTime() time.Time {
	if s := firstString(r.data, "RecordingStartTime"); s != "" {
		if t, ok := parseRFC2822(s); ok {
			return t
		}
	}
	return time.Now().UTC()
}

func (r *TwilioRecording) PlatformTags() map[string]string {
	tags := map[string]string{}
	setTag(tags, "recording_sid", r.data, "RecordingSid")
	setTag(tags, "call_sid", r.data, "CallSid")
	setTag(tags, "account_sid", r.data, "AccountSid")
	setTag(tags, "direction", r.data, "Direction")
	setTag(tags, "recording_source", r.data, "RecordingSource")
	if d, ok := r.DurationSeconds(); ok {
		tags["duration_seconds"] = formatFloat(d)
	}

	// Geographic metadata, when Twilio includes it.
	setTag(tags, "caller_city", r.data, "CallerCity")
	setTag(tags, "caller_state", r.data, "CallerState")
	setTag(tags, "caller_country", r.data, "CallerCountry")
	setTag(tags, "called_city", r.data, "CalledCity")
	setTag(tags, "called_state", r.data, "CalledState")
	setTag(tags, "called_country", r.data, "CalledCountry")
	return tags
}

func (r *TwilioRecording) CorrelationFields() map[string]string {
	fields := map[string]string{}
	if sid := firstString(r.data, "CallSid"); sid != "" {
		fields["call_sid"] = sid
	}
	return fields
}

var twilioPlatform = Platform{
	Name:             "twilio",
	Source:           "twilio_adapter",
	DefaultStateFile: ".twilio_adapter_state.json",
	FormEncoded:      true,
	// Twilio fires callbacks for in-progress and absent states too; only
	// completed recordings are worth a record.
	Accepts: func(event map[string]any) bool {
		return firstString(event, "RecordingStatus") == "completed"
	},
	Parse: func(event map[string]any) Recording {
		return NewTwilioRecording(event)
	},
}
