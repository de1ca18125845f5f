package types

import "net/http"

// Content types set by the response normalizer.
const (
	ContentTypeBinary = "application/octet-stream"
	ContentTypeHTML   = "text/html;charset=utf-8"
	ContentTypeJSON   = "application/json"
	ContentTypeText   = "text/plain;charset=utf-8"
)

// Response is a concrete HTTP response, ready to be written to the client.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// NewResponse returns a new response with the given status code, content type
// and body.
func NewResponse(statusCode int, contentType string, body []byte) *Response {
	resp := &Response{
		StatusCode: statusCode,
		Header:     http.Header{},
		Body:       body,
	}
	resp.Header.Set("Content-Type", contentType)

	return resp
}

// NewRedirect returns a 302 Found response pointing to location. The location
// is used verbatim.
func NewRedirect(location string) *Response {
	resp := NewResponse(http.StatusFound, ContentTypeHTML, nil)
	resp.Header["Location"] = []string{location}
	return resp
}

// ContentType returns the Content-Type header value.
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// SetCookie adds a Set-Cookie header to the response. Invalid cookies are
// silently dropped.
func (r *Response) SetCookie(c *http.Cookie) *Response {
	if v := c.String(); v != "" {
		r.Header.Add("Set-Cookie", v)
	}
	return r
}

// Write sends the response to w.
func (r *Response) Write(w http.ResponseWriter) error {
	for k, vals := range r.Header {
		w.Header()[k] = vals
	}
	w.WriteHeader(r.StatusCode)

	if len(r.Body) == 0 {
		return nil
	}

	_, err := w.Write(r.Body)

	return err //nolint:wrapcheck // Wrapped by caller.
}

func (*Response) isResult() {}
