package youtube

import (
	"fmt"
	"regexp"
	"strconv"
)

var isoDurationRe = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

// ParseISODuration parses an ISO-8601 style duration token ("PT1H2M3S") as
// returned by the Data API and yields a display label plus total seconds.
// Missing components default to zero; an unparseable token yields the
// unknown-duration sentinel ("00:00", 0).
func ParseISODuration(token string) (string, int) {
	m := isoDurationRe.FindStringSubmatch(token)
	if m == nil {
		return "00:00", 0
	}
	hours := atoiOrZero(m[1])
	minutes := atoiOrZero(m[2])
	seconds := atoiOrZero(m[3])
	return formatHMS(hours, minutes, seconds), hours*3600 + minutes*60 + seconds
}

// FormatSeconds renders a raw second count the way the extraction fallback
// reports durations, by integer division rather than token parsing.
func FormatSeconds(total int) string {
	if total < 0 {
		total = 0
	}
	minutes, seconds := total/60, total%60
	hours, minutes := minutes/60, minutes%60
	return formatHMS(hours, minutes, seconds)
}

func formatHMS(hours, minutes, seconds int) string {
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

func atoiOrZero(s string) int {
	if s == "" {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}
