package types

// TemplateKey is the reserved map key that selects template rendering in
// FromMap.
const TemplateKey = "__template__"

// Result is the value returned by route handlers. It is one of *Response,
// Bytes, Text, JSON, Template, Status, StatusMessage or Value, and it's
// converted into a Response by the pipeline.
type Result interface {
	isResult()
}

// Bytes is a binary response body.
type Bytes []byte

// Text is an HTML response body. If it starts with "redirect:", the rest of
// the string is used as the target of a redirect instead.
type Text string

// JSON is a value serialized as a JSON response body.
type JSON struct {
	Value any
}

// Template is the name of a template rendered with Context as the variables.
type Template struct {
	Name    string
	Context map[string]any
}

// Status is a bare HTTP status code with an empty body.
type Status int

// StatusMessage is an HTTP status code with a body containing the string form
// of Message.
type StatusMessage struct {
	Code    int
	Message any
}

// Value is any other value, written in its default string format.
type Value struct {
	V any
}

func (Bytes) isResult()         {}
func (Text) isResult()          {}
func (JSON) isResult()          {}
func (Template) isResult()      {}
func (Status) isResult()        {}
func (StatusMessage) isResult() {}
func (Value) isResult()         {}

// FromMap returns a Template result if m contains a string TemplateKey entry,
// and a JSON result otherwise. The template context is m itself, including
// the reserved key.
func FromMap(m map[string]any) Result {
	if name, ok := m[TemplateKey].(string); ok {
		return Template{Name: name, Context: m}
	}
	return JSON{Value: m}
}
