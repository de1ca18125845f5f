package xtime

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type durationUnit struct {
	symbol string
	alias  string
	value  time.Duration
}

// Calendar units larger than an hour, from the largest to the smallest.
// Months and years have a fixed length of 30 and 365 days.
var calendarUnits = []durationUnit{
	{"Y", "y", 365 * 24 * time.Hour},
	{"M", "", 30 * 24 * time.Hour},
	{"w", "W", 7 * 24 * time.Hour},
	{"d", "D", 24 * time.Hour},
}

var durationRx = regexp.MustCompile(`(\d*\.\d+|\d+)[^\d]*`)

// ParseDuration parses a duration string. In addition to the units supported
// by time.ParseDuration, it accepts "d" or "D" for days, "w" or "W" for weeks,
// "M" for months, and "y" or "Y" for years. Examples: "24h", "10d", "-1.5w",
// "3Y4M5d".
func ParseDuration(s string) (time.Duration, error) {
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	parts := durationRx.FindAllString(s, -1)
	if len(parts) == 0 {
		return 0, fmt.Errorf("invalid duration '%s'", s)
	}

	var total time.Duration
	for _, part := range parts {
		mult := time.Duration(1)
		for _, u := range calendarUnits {
			unit := u.symbol
			if !strings.Contains(part, unit) {
				unit = u.alias
			}
			if unit != "" && strings.Contains(part, unit) {
				part = strings.ReplaceAll(part, unit, "h")
				mult = u.value / time.Hour
				break
			}
		}

		d, err := time.ParseDuration(part)
		if err != nil {
			return 0, fmt.Errorf("invalid duration '%s': %w", s, err)
		}
		total += d * mult
	}

	if neg {
		total = -total
	}

	return total, nil
}

// FormatDuration formats a duration using the same units as ParseDuration,
// e.g. "10d", "-1w2d" or "3Y4M5d". Parts smaller than round are omitted.
func FormatDuration(d, round time.Duration) string {
	if round > 0 {
		d = d.Round(round)
	}
	if d == 0 {
		return "0d"
	}

	var sb strings.Builder
	if d < 0 {
		sb.WriteString("-")
		d = -d
	}

	for _, u := range calendarUnits {
		if n := d / u.value; n > 0 {
			fmt.Fprintf(&sb, "%d%s", n, u.symbol)
			d %= u.value
		}
	}

	clock := []struct {
		symbol string
		value  time.Duration
	}{
		{"h", time.Hour},
		{"m", time.Minute},
		{"s", time.Second},
		{"ms", time.Millisecond},
		{"µs", time.Microsecond},
		{"ns", time.Nanosecond},
	}
	for _, u := range clock {
		if round > u.value {
			break
		}
		if n := d / u.value; n > 0 {
			fmt.Fprintf(&sb, "%d%s", n, u.symbol)
			d %= u.value
		}
	}

	if sb.Len() == 0 || sb.String() == "-" {
		return "0d"
	}

	return sb.String()
}
