package errors

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStructuredError(t *testing.T) {
	t.Parallel()

	cause := errors.New("UNIQUE constraint failed: users.email")
	err := NewWithCause("failed adding user", cause, "email", "a@b.com")
	err = With(err, "admin", true, "email", "c@d.com")

	assert.Equal(t, "failed adding user", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, err.Cause())
	assert.Equal(t, map[string]any{"email": "c@d.com", "admin": true}, err.Metadata())

	assert.Panics(t, func() { _ = NewWith("odd", "key") })
	assert.Panics(t, func() { _ = NewWith("bad key", 1, 2) })
}

//nolint:paralleltest // Replaces the default logger.
func TestErrorf(t *testing.T) {
	var out bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&out, nil)))
	defer slog.SetDefault(prev)

	Errorf(NewWithCause("failed initializing database", errors.New("disk full"),
		"path", "/data/awesome.db", "attempt", 1))
	logged := out.String()
	assert.Contains(t, logged, `msg="failed initializing database"`)
	assert.Contains(t, logged, `cause="disk full" attempt=1 path=/data/awesome.db`)

	out.Reset()
	Errorf(errors.New("plain"))
	assert.Contains(t, out.String(), "msg=plain")
}

func TestAttrs(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Attrs(errors.New("plain")))

	err := NewWith("failed", "cause", "metadata cause", "b", 2, "a", 1)
	assert.Equal(t, []any{"cause", "metadata cause", "a", 1, "b", 2}, Attrs(err))

	cause := errors.New("real cause")
	wrapped := fmt.Errorf("outer: %w", WithCause(err, cause))
	assert.Equal(t, []any{"cause", cause, "a", 1, "b", 2}, Attrs(wrapped))
}
