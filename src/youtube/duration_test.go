package youtube

import (
	"fmt"
	"testing"
)

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		token   string
		label   string
		seconds int
	}{
		{"PT1H2M3S", "01:02:03", 3723},
		{"PT4M13S", "04:13", 253},
		{"PT45S", "00:45", 45},
		{"PT2H", "02:00:00", 7200},
		{"PT10M", "10:00", 600},
		{"", "00:00", 0},
		{"garbage", "00:00", 0},
	}
	for _, tt := range tests {
		label, seconds := ParseISODuration(tt.token)
		if label != tt.label || seconds != tt.seconds {
			t.Errorf("ParseISODuration(%q) = (%q, %d), want (%q, %d)", tt.token, label, seconds, tt.label, tt.seconds)
		}
	}
}

func TestISODurationRoundTrip(t *testing.T) {
	for h := 0; h <= 3; h++ {
		for m := 0; m < 60; m += 7 {
			for s := 0; s < 60; s += 11 {
				token := fmt.Sprintf("PT%dH%dM%dS", h, m, s)
				_, seconds := ParseISODuration(token)
				want := h*3600 + m*60 + s
				if seconds != want {
					t.Fatalf("ParseISODuration(%q) seconds = %d, want %d", token, seconds, want)
				}
				// Re-extracting the components from the parsed total must be lossless.
				if seconds/3600 != h || seconds/60%60 != m || seconds%60 != s {
					t.Fatalf("%q did not survive the round trip", token)
				}
			}
		}
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "00:00"},
		{45, "00:45"},
		{253, "04:13"},
		{3723, "01:02:03"},
		{-5, "00:00"},
	}
	for _, tt := range tests {
		if got := FormatSeconds(tt.seconds); got != tt.want {
			t.Errorf("FormatSeconds(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestLabelAgreesBetweenParsers(t *testing.T) {
	// The API path parses tokens, the fallback divides seconds. Both must
	// produce the same label for the same duration.
	label, seconds := ParseISODuration("PT1H2M3S")
	if divided := FormatSeconds(seconds); divided != label {
		t.Errorf("token label %q != divided label %q", label, divided)
	}
}
