package utilities

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Parse parses duration strings like "5m", "1h30m", "250ms" using time.ParseDuration.
// A bare number (e.g. "5", " 42 " or "2.5") is treated as seconds.
func Parse(s string) (time.Duration, error) {
	in := strings.TrimSpace(s)
	if in == "" {
		return 0, &time.ParseError{Layout: "duration", Value: s, LayoutElem: "", ValueElem: "", Message: "empty duration"}
	}

	if secs, err := strconv.ParseFloat(in, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) || math.Abs(secs) > math.MaxInt64/float64(time.Second) {
			return 0, &time.ParseError{Layout: "duration", Value: s, LayoutElem: "", ValueElem: "", Message: "duration out of range"}
		}
		return time.Duration(secs * float64(time.Second)), nil
	}

	// ns, us/µs, ms, s, m, h and combinations
	return time.ParseDuration(in)
}

// ParseOrDefault parses like Parse(), but returns def when input is empty.
// If parsing fails for a non-empty input, the error is returned.
func ParseOrDefault(s string, def time.Duration) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return Parse(s)
}
