package types

import "net/http"

// Error is a fault that should be reported to the client with a specific HTTP
// status code. Errors of any other type are reported as internal server errors.
type Error struct {
	StatusCode int
	Message    string
}

// Error returns the error message string.
func (e Error) Error() string {
	if e.Message == "" {
		return http.StatusText(e.StatusCode)
	}
	return e.Message
}

// NewError creates a new Error with the specified status code and message.
func NewError(statusCode int, message string) *Error {
	return &Error{
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewBadRequestError creates a new Error with status 400 Bad Request.
func NewBadRequestError(message string) *Error {
	return NewError(http.StatusBadRequest, message)
}
