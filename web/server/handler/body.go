package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"go.hackfix.me/awesome/web/server/types"
)

const maxBodySize = 1024 * 1024 // 1MiB

// Content types of the request bodies that are parsed.
const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

var errMalformedBody = types.NewBadRequestError("malformed request body")

// ParseBody creates a stage that decodes the body of POST requests sent as JSON
// or as URL-encoded form fields, and stores the result in the request. Bodies
// of other requests and content types are left untouched. A body that can't be
// decoded fails the request with status 400.
func ParseBody(logger *slog.Logger) Stage {
	return StageFunc(func(ctx context.Context, req *types.Request, next Next) (*types.Response, error) {
		if req.Method != http.MethodPost {
			return next(ctx, req)
		}

		contentType := strings.ToLower(req.ContentType())
		switch {
		case strings.HasPrefix(contentType, ContentTypeJSON):
			data, err := readBody(req)
			if err != nil {
				return nil, err
			}
			v, err := decodeJSON(data)
			if err != nil {
				logger.Debug("failed decoding JSON body", "request_id", req.ID, "error", err.Error())
				return nil, errMalformedBody
			}
			req.Body = types.ParsedBody{Kind: types.BodyJSON, JSON: v}
			logger.Debug("request json", "request_id", req.ID, "body", v)
		case strings.HasPrefix(contentType, ContentTypeForm):
			data, err := readBody(req)
			if err != nil {
				return nil, err
			}
			form, err := url.ParseQuery(string(data))
			if err != nil {
				logger.Debug("failed decoding form body", "request_id", req.ID, "error", err.Error())
				return nil, errMalformedBody
			}
			req.Body = types.ParsedBody{Kind: types.BodyForm, Form: form}
			logger.Debug("request form", "request_id", req.ID, "body", form)
		}

		return next(ctx, req)
	})
}

func readBody(req *types.Request) ([]byte, error) {
	if req.Request.Body == nil || req.Request.Body == http.NoBody {
		return []byte{}, nil
	}

	data, err := io.ReadAll(io.LimitReader(req.Request.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed reading request body: %w", err)
	}
	if len(data) > maxBodySize {
		return nil, types.NewError(http.StatusRequestEntityTooLarge, "request body too large")
	}

	return data, nil
}

// decodeJSON decodes a single JSON value. Numbers are kept as json.Number to
// avoid losing precision.
func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err //nolint:wrapcheck // Only logged.
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON value")
	}

	return v, nil
}
