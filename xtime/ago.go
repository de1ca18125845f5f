package xtime

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Locale contains the phrases used to render relative times.
type Locale struct {
	Name string
	// Unit returns the phrase for n units of the given kind, one of "minute",
	// "hour" or "day".
	Unit func(n int64, unit string) string
	// Date renders an absolute date.
	Date func(t time.Time) string
}

// LocaleEN renders English phrases, e.g. "5 minutes ago" or "2024/3/5".
var LocaleEN = Locale{
	Name: "en",
	Unit: func(n int64, unit string) string {
		if n == 1 {
			return fmt.Sprintf("1 %s ago", unit)
		}
		return fmt.Sprintf("%d %ss ago", n, unit)
	},
	Date: func(t time.Time) string {
		return fmt.Sprintf("%d/%d/%d", t.Year(), t.Month(), t.Day())
	},
}

// LocaleZH renders Chinese phrases, e.g. "5分钟前" or "2024年3月5日".
var LocaleZH = Locale{
	Name: "zh",
	Unit: func(n int64, unit string) string {
		suffix := map[string]string{
			"minute": "分钟前",
			"hour":   "小时前",
			"day":    "天前",
		}[unit]
		return fmt.Sprintf("%d%s", n, suffix)
	},
	Date: func(t time.Time) string {
		return fmt.Sprintf("%d年%d月%d日", t.Year(), t.Month(), t.Day())
	},
}

// LocaleFromString returns the locale with the given name.
func LocaleFromString(name string) (Locale, error) {
	switch name {
	case "", LocaleEN.Name:
		return LocaleEN, nil
	case LocaleZH.Name:
		return LocaleZH, nil
	default:
		return Locale{}, fmt.Errorf("unsupported locale '%s'", name)
	}
}

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour
	secondsPerWeek   = 7 * secondsPerDay
)

// AgoFormatter renders Unix timestamps as time relative to Now.
type AgoFormatter struct {
	Now      func() time.Time
	Locale   Locale
	Location *time.Location
}

// NewAgoFormatter returns a formatter using the given time source and locale.
// Absolute dates are rendered in the local time zone.
func NewAgoFormatter(timeNow func() time.Time, locale Locale) *AgoFormatter {
	return &AgoFormatter{Now: timeNow, Locale: locale, Location: time.Local}
}

// Format renders the Unix timestamp ts in seconds. Anything less than a minute
// old is reported as one minute ago, and anything older than a week is
// rendered as an absolute date.
func (f *AgoFormatter) Format(ts float64) string {
	now := float64(f.Now().UnixNano()) / float64(time.Second)
	delta := int64(now - ts)

	switch {
	case delta < secondsPerMinute:
		return f.Locale.Unit(1, "minute")
	case delta < secondsPerHour:
		return f.Locale.Unit(delta/secondsPerMinute, "minute")
	case delta < secondsPerDay:
		return f.Locale.Unit(delta/secondsPerHour, "hour")
	case delta < secondsPerWeek:
		return f.Locale.Unit(delta/secondsPerDay, "day")
	}

	sec, frac := math.Modf(ts)
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	t := time.Unix(int64(sec), int64(frac*float64(time.Second))).In(loc)

	return f.Locale.Date(t)
}

// Filter is the template function form of Format. It accepts the numeric types
// timestamps are usually stored as, and time.Time values.
func (f *AgoFormatter) Filter(v any) (string, error) {
	var ts float64
	switch t := v.(type) {
	case int:
		ts = float64(t)
	case int64:
		ts = float64(t)
	case float64:
		ts = t
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return "", fmt.Errorf("invalid timestamp '%s': %w", t, err)
		}
		ts = n
	case time.Time:
		ts = float64(t.UnixNano()) / float64(time.Second)
	default:
		return "", fmt.Errorf("unsupported timestamp type %T", v)
	}

	return f.Format(ts), nil
}
