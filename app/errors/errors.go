package errors

import (
	"errors"
	"log/slog"
	"slices"
)

// Attrs returns the cause and metadata of a StructuredError as slog key/value
// pairs, with the cause first and metadata keys in sorted order. For any other
// error it returns nil.
func Attrs(err error) []any {
	var serr *StructuredError
	if !errors.As(err, &serr) {
		return nil
	}

	attrs := make([]any, 0, len(serr.metadata)*2+2)

	cause := serr.metadata["cause"]
	if serr.cause != nil {
		cause = serr.cause
	}
	if cause != nil {
		attrs = append(attrs, "cause", cause)
	}

	keys := make([]string, 0, len(serr.metadata))
	for k := range serr.metadata {
		if k != "cause" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	for _, k := range keys {
		attrs = append(attrs, k, serr.metadata[k])
	}

	return attrs
}

// Errorf logs err with the default slog logger, rendering the cause and
// metadata of a StructuredError as attributes.
func Errorf(err error) {
	slog.Error(err.Error(), Attrs(err)...)
}
