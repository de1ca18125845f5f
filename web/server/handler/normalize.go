package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"go.hackfix.me/awesome/web/server/types"
)

const redirectPrefix = "redirect:"

// Normalize converts a handler result into a concrete HTTP response. The
// response always has a Content-Type header, and status 200 unless the result
// specifies otherwise. Errors are only returned for a nil result, or if
// rendering a template failed.
func Normalize(result types.Result, renderer Renderer) (*types.Response, error) {
	switch res := result.(type) {
	case nil:
		return nil, errors.New("handler returned a nil result")
	case *types.Response:
		if res == nil {
			return nil, errors.New("handler returned a nil response")
		}
		return withDefaults(res), nil
	case types.Bytes:
		return types.NewResponse(http.StatusOK, types.ContentTypeBinary, res), nil
	case types.Text:
		if location, ok := strings.CutPrefix(string(res), redirectPrefix); ok {
			return types.NewRedirect(location), nil
		}
		return types.NewResponse(http.StatusOK, types.ContentTypeHTML, []byte(res)), nil
	case types.JSON:
		data, err := marshalJSON(res.Value)
		if err != nil {
			return nil, err
		}
		return types.NewResponse(http.StatusOK, types.ContentTypeJSON, data), nil
	case types.Template:
		if renderer == nil {
			return nil, fmt.Errorf("no renderer configured for template '%s'", res.Name)
		}
		out, err := renderer.Render(res.Name, res.Context)
		if err != nil {
			return nil, err //nolint:wrapcheck // The renderer error is descriptive enough.
		}
		return types.NewResponse(http.StatusOK, types.ContentTypeHTML, []byte(out)), nil
	case types.Status:
		if validStatus(int(res)) {
			return types.NewResponse(int(res), types.ContentTypeText, nil), nil
		}
	case types.StatusMessage:
		if validStatus(res.Code) {
			return types.NewResponse(res.Code, types.ContentTypeText, []byte(fmt.Sprint(res.Message))), nil
		}
		return fallback(res), nil
	case types.Value:
		return fallback(res.V), nil
	}

	return fallback(result), nil
}

// withDefaults returns resp if it's complete, or a copy of it with the default
// status and Content-Type filled in. resp itself is never modified.
func withDefaults(resp *types.Response) *types.Response {
	if resp.Header != nil && resp.StatusCode != 0 && resp.ContentType() != "" {
		return resp
	}

	out := *resp
	out.Header = resp.Header.Clone()
	if out.Header == nil {
		out.Header = http.Header{}
	}
	if out.StatusCode == 0 {
		out.StatusCode = http.StatusOK
	}
	if out.ContentType() == "" {
		out.Header.Set("Content-Type", types.ContentTypeBinary)
	}

	return &out
}

func fallback(v any) *types.Response {
	return types.NewResponse(http.StatusOK, types.ContentTypeText, []byte(fmt.Sprint(v)))
}

func validStatus(code int) bool {
	return code >= 100 && code < 600
}

// Render creates the innermost wrap of the pipeline, which runs the route
// handler and converts its result with Normalize.
func Render(h Func, renderer Renderer, logger *slog.Logger) Next {
	return func(ctx context.Context, req *types.Request) (*types.Response, error) {
		result, err := h(ctx, req)
		if err != nil {
			return nil, err
		}

		logger.Debug("response handler", "request_id", req.ID, "result_type", fmt.Sprintf("%T", result))

		return Normalize(result, renderer)
	}
}

// maxDegradeDepth limits how deep degrade walks nested values.
const maxDegradeDepth = 100

var (
	errCyclicValue = errors.New("value contains a cycle")
	errTooDeep     = fmt.Errorf("value is nested deeper than %d levels", maxDegradeDepth)
)

// marshalJSON encodes v without escaping HTML characters. Values that can't be
// represented in JSON, such as channels or functions, are written as their
// default string format instead of failing the whole response. Cyclic values
// are an error.
func marshalJSON(v any) ([]byte, error) {
	data, err := encodeJSON(v)
	if err == nil {
		return data, nil
	}

	d := &degrader{visiting: map[visitKey]struct{}{}}
	degraded, err := d.degrade(reflect.ValueOf(v), 0)
	if err != nil {
		return nil, fmt.Errorf("failed marshalling response into JSON: %w", err)
	}

	data, err = encodeJSON(degraded)
	if err != nil {
		return nil, fmt.Errorf("failed marshalling response into JSON: %w", err)
	}

	return data, nil
}

func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err //nolint:wrapcheck // Wrapped by caller.
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// visitKey identifies a map, slice or pointer on the current walk path.
type visitKey struct {
	ptr uintptr
	typ reflect.Type
	len int
}

type degrader struct {
	visiting map[visitKey]struct{}
}

// degrade returns a JSON-encodable version of v. Values that encode fine are
// kept as they are, maps, slices and structs are walked recursively, and
// anything else is replaced by its string form.
func (d *degrader) degrade(v reflect.Value, depth int) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	if depth > maxDegradeDepth {
		return nil, errTooDeep
	}

	switch v.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer:
		if v.IsNil() {
			return nil, nil
		}
		key := visitKey{ptr: v.Pointer(), typ: v.Type()}
		if v.Kind() == reflect.Slice {
			key.len = v.Len()
		}
		if _, ok := d.visiting[key]; ok {
			return nil, errCyclicValue
		}
		d.visiting[key] = struct{}{}
		defer delete(d.visiting, key)
	}

	if v.CanInterface() {
		if data, err := encodeJSON(v.Interface()); err == nil {
			return json.RawMessage(data), nil
		}
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		return d.degrade(v.Elem(), depth+1)
	case reflect.Map:
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			val, err := d.degrade(iter.Value(), depth+1)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(iter.Key().Interface())] = val
		}
		return out, nil
	case reflect.Slice, reflect.Array:
		out := make([]any, v.Len())
		for i := range v.Len() {
			val, err := d.degrade(v.Index(i), depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = val
		}
		return out, nil
	case reflect.Struct:
		out := map[string]any{}
		t := v.Type()
		for i := range t.NumField() {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			name := field.Name
			if tag, _, _ := strings.Cut(field.Tag.Get("json"), ","); tag == "-" {
				continue
			} else if tag != "" {
				name = tag
			}
			val, err := d.degrade(v.Field(i), depth+1)
			if err != nil {
				return nil, err
			}
			out[name] = val
		}
		return out, nil
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return fmt.Sprintf("<%s>", v.Type()), nil
	}

	if v.CanInterface() {
		return fmt.Sprint(v.Interface()), nil
	}

	return v.String(), nil
}
