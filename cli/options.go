package cli

import (
	"fmt"
	"reflect"
	"time"

	"github.com/alecthomas/kong"

	"go.hackfix.me/awesome/xtime"
)

// DurationMapper parses durations with the extended units supported by
// xtime.ParseDuration, e.g. "12h", "7d" or "2w".
type DurationMapper struct{}

var _ kong.Mapper = DurationMapper{}

// Decode implements the kong.Mapper interface.
func (DurationMapper) Decode(kctx *kong.DecodeContext, target reflect.Value) error {
	var value string
	if err := kctx.Scan.PopValueInto("duration", &value); err != nil {
		return err //nolint:wrapcheck // Kong adds the flag context.
	}

	dur, err := xtime.ParseDuration(value)
	if err != nil {
		return err //nolint:wrapcheck // Kong adds the flag context.
	}
	if dur < time.Minute {
		return fmt.Errorf("duration must be at least 1m, got %s", value)
	}

	target.Set(reflect.ValueOf(dur))

	return nil
}
