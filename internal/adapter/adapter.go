// Package adapter normalizes platform-specific recording webhook payloads
// into a common field set.
//
// Rules:
//   - One normalizer type per telephony platform, all behind the Recording
//     contract, selected through the static registry (no runtime probing).
//   - Missing or malformed individual fields degrade to "" / absent / now;
//     a normalizer never fails an event over one bad field.
package adapter

import (
	"fmt"
	"net/mail"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Call directions after normalization.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Recording exposes the normalized view of one platform recording event.
// Implementations are immutable snapshots of a single payload.
type Recording interface {
	// RecordingID is the platform-unique identifier, "" when absent.
	RecordingID() string
	FromNumber() string
	ToNumber() string
	// Direction is the explicit or inferred call direction, lowercased.
	Direction() string
	// RecordingURL is the download location (URL or path), "" when absent.
	RecordingURL() string
	// RecordingFilePath is the local file reference, "" for platforms that
	// only provide remote URLs.
	RecordingFilePath() string
	DurationSeconds() (float64, bool)
	// StartTime never fails; unparsable timestamps resolve to the current
	// UTC time so a bad clock field cannot discard a whole event.
	StartTime() time.Time
	// PlatformTags returns platform metadata present in the payload.
	// Absent fields are omitted, never included empty.
	PlatformTags() map[string]string
}

// Correlated is implemented by normalizers that carry extra correlation
// fields worth persisting alongside the tracking entry (call ids etc.).
type Correlated interface {
	CorrelationFields() map[string]string
}

// Platform describes one registered telephony platform.
type Platform struct {
	Name             string
	Source           string // value of the "source" tag on built records
	DefaultStateFile string
	// FormEncoded marks platforms that deliver webhooks as
	// application/x-www-form-urlencoded instead of JSON.
	FormEncoded bool
	// Accepts reports whether this event should be processed at all.
	// Filtered events are still acknowledged upstream.
	Accepts func(event map[string]any) bool
	Parse   func(event map[string]any) Recording
}

var registry = map[string]Platform{
	"twilio":     twilioPlatform,
	"freeswitch": freeswitchPlatform,
	"asterisk":   asteriskPlatform,
	"telnyx":     telnyxPlatform,
	"bandwidth":  bandwidthPlatform,
}

// Lookup returns the platform descriptor for a name.
func Lookup(name string) (Platform, bool) {
	p, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Names lists registered platform names, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

/* ===================== payload field helpers ===================== */

// stringValue coerces a decoded JSON value to its string form.
// Numbers are rendered without an exponent; everything else non-string is "".
func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// firstString returns the first non-empty value among fallback keys.
func firstString(data map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := data[k]; ok {
			if s := stringValue(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// floatValue coerces a decoded JSON value to float64.
func floatValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// firstFloat returns the first coercible numeric value among fallback keys.
func firstFloat(data map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := data[k]; ok && v != nil {
			if f, ok := floatValue(v); ok {
				return f, true
			}
			// A present but malformed value means "no duration";
			// later fallback keys are not tried.
			return 0, false
		}
	}
	return 0, false
}

/* ===================== timestamp parsing ===================== */

// microsecondThreshold disambiguates epoch seconds from microseconds.
const microsecondThreshold = int64(1e12)

// parseISOTime parses ISO-8601 timestamps with or without fractional
// seconds; a trailing Z is the common case.
func parseISOTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseEpoch parses a Unix timestamp in seconds or microseconds.
func parseEpoch(v any) (time.Time, bool) {
	f, ok := floatValue(v)
	if !ok || f <= 0 {
		return time.Time{}, false
	}
	n := int64(f)
	if n > microsecondThreshold {
		n /= 1e6
	}
	return time.Unix(n, 0).UTC(), true
}

// parseRFC2822 parses RFC-2822 date strings such as
// "Wed, 15 Jan 2024 10:29:30 +0000" (Twilio's RecordingStartTime).
func parseRFC2822(s string) (time.Time, bool) {
	t, err := mail.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

var isoDurationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?`)

// parseISODuration parses ISO-8601 durations of the PT[nH][nM][nS] family
// into seconds. Absent components default to zero.
func parseISODuration(s string) (float64, bool) {
	m := isoDurationPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	var total float64
	for i, mult := range []float64{3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		f, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return 0, false
		}
		total += f * mult
	}
	return total, true
}

// setTag adds a tag only when the payload actually carries the field.
func setTag(tags map[string]string, name string, data map[string]any, keys ...string) {
	if v := firstString(data, keys...); v != "" {
		tags[name] = v
	}
}

// formatFloat renders a duration tag value with two decimals, matching the
// downstream consumers' expectations.
func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}
