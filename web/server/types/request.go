package types

import (
	"net/http"
	"net/url"

	"go.hackfix.me/awesome/db/models"
)

// BodyKind identifies the encoding a request body was parsed from.
type BodyKind uint8

// Supported body encodings. The zero value means that no body was parsed.
const (
	BodyAbsent BodyKind = iota
	BodyJSON
	BodyForm
)

func (k BodyKind) String() string {
	switch k {
	case BodyJSON:
		return "json"
	case BodyForm:
		return "form"
	default:
		return "absent"
	}
}

// ParsedBody is the decoded form of a POST request body. Only the field
// matching Kind is set.
type ParsedBody struct {
	Kind BodyKind
	JSON any
	Form url.Values
}

// Get returns the first value of a top-level field, regardless of whether the
// body was sent as JSON or as form fields. It returns false if the field is
// missing or isn't a scalar JSON value.
func (b ParsedBody) Get(key string) (string, bool) {
	switch b.Kind {
	case BodyForm:
		if !b.Form.Has(key) {
			return "", false
		}
		return b.Form.Get(key), true
	case BodyJSON:
		obj, ok := b.JSON.(map[string]any)
		if !ok {
			return "", false
		}
		switch v := obj[key].(type) {
		case string:
			return v, true
		case interface{ String() string }:
			return v.String(), true
		case bool:
			if v {
				return "true", true
			}
			return "false", true
		}
	}

	return "", false
}

// Request is an inbound HTTP request together with the values derived from it
// by the pipeline stages. Stages may only set these fields before the handler
// runs.
type Request struct {
	*http.Request
	ID   string
	Body ParsedBody
	User *models.User
}

// NewRequest wraps the HTTP request.
func NewRequest(r *http.Request) *Request {
	return &Request{Request: r}
}

// Path returns the URL path of the request.
func (r *Request) Path() string {
	return r.URL.Path
}

// ContentType returns the value of the Content-Type header, which may be empty.
func (r *Request) ContentType() string {
	return r.Header.Get("Content-Type")
}

// CookieValue returns the value of the named cookie, or an empty string if the
// cookie wasn't sent.
func (r *Request) CookieValue(name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
