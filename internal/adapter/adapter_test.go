package adapter

import (
	"testing"
	"time"
)

func TestParseISODuration(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"PT30S", 30.0, true},
		{"PT1M30S", 90.0, true},
		{"PT1H30M45S", 5445.0, true},
		{"PT2H", 7200.0, true},
		{"PT0.5S", 0.5, true},
		{"30", 0, false},
		{"", 0, false},
		{"invalid", 0, false},
	}
	for _, c := range cases {
		got, ok := parseISODuration(c.in)
		if ok != c.ok {
			t.Fatalf("parseISODuration(%q): ok=%v, want %v", c.in, ok, c.ok)
		}
		if ok && got != c.want {
			t.Fatalf("parseISODuration(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseEpochMicrosecondThreshold(t *testing.T) {
	// Seconds.
	got, ok := parseEpoch("1705314570")
	if !ok {
		t.Fatalf("expected parse")
	}
	want := time.Date(2024, 1, 15, 10, 29, 30, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("seconds: got %v, want %v", got, want)
	}

	// Microseconds, above 10^12.
	got, ok = parseEpoch("1705314570000000")
	if !ok {
		t.Fatalf("expected parse")
	}
	if !got.Equal(want) {
		t.Fatalf("microseconds: got %v, want %v", got, want)
	}

	if _, ok := parseEpoch("not-a-number"); ok {
		t.Fatalf("expected failure for junk input")
	}
}

func TestParseISOTimeVariants(t *testing.T) {
	want := time.Date(2024, 1, 15, 10, 29, 30, 0, time.UTC)
	for _, in := range []string{
		"2024-01-15T10:29:30Z",
		"2024-01-15T10:29:30.000Z",
		"2024-01-15T10:29:30+00:00",
	} {
		got, ok := parseISOTime(in)
		if !ok || !got.Equal(want) {
			t.Fatalf("parseISOTime(%q) = %v, %v", in, got, ok)
		}
	}
	if _, ok := parseISOTime("yesterday"); ok {
		t.Fatalf("expected failure")
	}
}

func TestParseRFC2822(t *testing.T) {
	got, ok := parseRFC2822("Mon, 15 Jan 2024 10:29:30 +0000")
	if !ok {
		t.Fatalf("expected parse")
	}
	want := time.Date(2024, 1, 15, 10, 29, 30, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestFirstStringFallbackOrder(t *testing.T) {
	data := map[string]any{"b": "second", "c": "third"}
	if got := firstString(data, "a", "b", "c"); got != "second" {
		t.Fatalf("got %q", got)
	}
	if got := firstString(data, "a"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	// Numeric JSON values coerce to their string form.
	if got := firstString(map[string]any{"n": 42.0}, "n"); got != "42" {
		t.Fatalf("got %q", got)
	}
}

func TestLookupRegistry(t *testing.T) {
	for _, name := range []string{"twilio", "freeswitch", "asterisk", "telnyx", "bandwidth"} {
		p, ok := Lookup(name)
		if !ok {
			t.Fatalf("platform %q not registered", name)
		}
		if p.Source == "" || p.DefaultStateFile == "" || p.Parse == nil || p.Accepts == nil {
			t.Fatalf("platform %q incompletely registered", name)
		}
	}
	if _, ok := Lookup("vonage"); ok {
		t.Fatalf("unexpected platform")
	}
	if len(Names()) != 5 {
		t.Fatalf("expected 5 platforms, got %d", len(Names()))
	}
}
