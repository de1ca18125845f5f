package common

import "errors"

// ErrInvalidCookie is returned when a session cookie is malformed, expired or
// fails verification.
var ErrInvalidCookie = errors.New("invalid session cookie")
