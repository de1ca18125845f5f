package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aerrors "go.hackfix.me/awesome/app/errors"
	"go.hackfix.me/awesome/db/models"
	"go.hackfix.me/awesome/web/common"
	"go.hackfix.me/awesome/web/server/types"
)

type mockVerifier struct {
	users map[string]*models.User
	err   error
	out   *bytes.Buffer
}

func (m *mockVerifier) Verify(_ context.Context, cookie string) (*models.User, error) {
	if m.out != nil {
		m.out.WriteString("verify\n")
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.users[cookie], nil
}

func newVerifier() *mockVerifier {
	return &mockVerifier{users: map[string]*models.User{
		"admin-cookie": {ID: 1, Email: "admin@example.com", Name: "Admin", Admin: true},
		"user-cookie":  {ID: 2, Email: "user@example.com", Name: "User"},
	}}
}

func newTestRequest(method, target, contentType, body, cookie string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: common.CookieName, Value: cookie})
	}
	return req
}

func TestPipelineAuth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		path        string
		cookie      string
		expStatus   int
		expLocation string
		expBody     string
	}{
		{
			name:        "ok/admin_no_cookie",
			path:        "/manage/dashboard",
			expStatus:   http.StatusFound,
			expLocation: "/signin",
		},
		{
			name:        "ok/admin_invalid_cookie",
			path:        "/manage/dashboard",
			cookie:      "garbage",
			expStatus:   http.StatusFound,
			expLocation: "/signin",
		},
		{
			name:        "ok/admin_non_admin_user",
			path:        "/manage/users",
			cookie:      "user-cookie",
			expStatus:   http.StatusFound,
			expLocation: "/signin",
		},
		{
			name:      "ok/admin_user",
			path:      "/manage/dashboard",
			cookie:    "admin-cookie",
			expStatus: http.StatusOK,
			expBody:   "admin@example.com",
		},
		{
			name:      "ok/public_anonymous",
			path:      "/",
			expStatus: http.StatusOK,
			expBody:   "anonymous",
		},
		{
			name:      "ok/public_user",
			path:      "/",
			cookie:    "user-cookie",
			expStatus: http.StatusOK,
			expBody:   "user@example.com",
		},
		{
			name:      "ok/manage_without_trailing_slash",
			path:      "/manage",
			expStatus: http.StatusOK,
			expBody:   "anonymous",
		},
	}

	h := func(_ context.Context, req *types.Request) (types.Result, error) {
		if req.User == nil {
			return types.Text("anonymous"), nil
		}
		return types.Text(req.User.Email), nil
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := NewPipeline(slog.New(slog.DiscardHandler)).Log().ParseBody().Auth(newVerifier())
			rec := httptest.NewRecorder()
			p.Handle(h).ServeHTTP(rec, newTestRequest(http.MethodGet, tt.path, "", "", tt.cookie))

			assert.Equal(t, tt.expStatus, rec.Code)
			assert.Equal(t, tt.expLocation, rec.Header().Get("Location"))
			assert.Equal(t, tt.expBody, rec.Body.String())
		})
	}
}

func TestPipelineAuthVerifierError(t *testing.T) {
	t.Parallel()

	called := false
	h := func(context.Context, *types.Request) (types.Result, error) {
		called = true
		return types.Text("ok"), nil
	}

	verifier := &mockVerifier{err: errors.New("database is locked")}
	p := NewPipeline(slog.New(slog.DiscardHandler)).Auth(verifier)
	rec := httptest.NewRecorder()
	p.Handle(h).ServeHTTP(rec, newTestRequest(http.MethodGet, "/", "", "", "some-cookie"))

	assert.False(t, called)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "database is locked")
}

func TestPipelineParseBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		expStatus   int
		expKind     types.BodyKind
		expJSON     any
		expForm     map[string][]string
	}{
		{
			name:        "ok/json",
			method:      http.MethodPost,
			contentType: "application/json",
			body:        `{"a":1}`,
			expStatus:   http.StatusOK,
			expKind:     types.BodyJSON,
			expJSON:     map[string]any{"a": json.Number("1")},
		},
		{
			name:        "ok/json_charset",
			method:      http.MethodPost,
			contentType: "Application/JSON; charset=utf-8",
			body:        `["x", true, null]`,
			expStatus:   http.StatusOK,
			expKind:     types.BodyJSON,
			expJSON:     []any{"x", true, nil},
		},
		{
			name:        "ok/form",
			method:      http.MethodPost,
			contentType: "application/x-www-form-urlencoded",
			body:        "email=a%40b.com&tag=x&tag=y",
			expStatus:   http.StatusOK,
			expKind:     types.BodyForm,
			expForm:     map[string][]string{"email": {"a@b.com"}, "tag": {"x", "y"}},
		},
		{
			name:        "ok/form_empty",
			method:      http.MethodPost,
			contentType: "application/x-www-form-urlencoded",
			expStatus:   http.StatusOK,
			expKind:     types.BodyForm,
			expForm:     map[string][]string{},
		},
		{
			name:        "ok/get_not_parsed",
			method:      http.MethodGet,
			contentType: "application/json",
			body:        `{"a":1}`,
			expStatus:   http.StatusOK,
			expKind:     types.BodyAbsent,
		},
		{
			name:        "ok/put_not_parsed",
			method:      http.MethodPut,
			contentType: "application/json",
			body:        `not json`,
			expStatus:   http.StatusOK,
			expKind:     types.BodyAbsent,
		},
		{
			name:        "ok/other_content_type",
			method:      http.MethodPost,
			contentType: "text/plain",
			body:        "hello",
			expStatus:   http.StatusOK,
			expKind:     types.BodyAbsent,
		},
		{
			name:        "err/malformed_json",
			method:      http.MethodPost,
			contentType: "application/json",
			body:        `{"a":`,
			expStatus:   http.StatusBadRequest,
		},
		{
			name:        "err/trailing_json",
			method:      http.MethodPost,
			contentType: "application/json",
			body:        `{"a":1} {"b":2}`,
			expStatus:   http.StatusBadRequest,
		},
		{
			name:        "err/empty_json",
			method:      http.MethodPost,
			contentType: "application/json",
			expStatus:   http.StatusBadRequest,
		},
		{
			name:        "err/malformed_form",
			method:      http.MethodPost,
			contentType: "application/x-www-form-urlencoded",
			body:        "a=%zz",
			expStatus:   http.StatusBadRequest,
		},
		{
			name:        "err/too_large",
			method:      http.MethodPost,
			contentType: "application/json",
			body:        `"` + strings.Repeat("a", maxBodySize) + `"`,
			expStatus:   http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got *types.ParsedBody
			h := func(_ context.Context, req *types.Request) (types.Result, error) {
				body := req.Body
				got = &body
				return types.Status(http.StatusOK), nil
			}

			p := NewPipeline(slog.New(slog.DiscardHandler)).ParseBody()
			rec := httptest.NewRecorder()
			p.Handle(h).ServeHTTP(rec, newTestRequest(tt.method, "/api/users", tt.contentType, tt.body, ""))

			assert.Equal(t, tt.expStatus, rec.Code)
			if tt.expStatus != http.StatusOK {
				assert.Nil(t, got)
				return
			}

			require.NotNil(t, got)
			assert.Equal(t, tt.expKind, got.Kind)
			assert.Equal(t, tt.expJSON, got.JSON)
			if tt.expForm != nil {
				assert.Equal(t, tt.expForm, map[string][]string(got.Form))
			} else {
				assert.Nil(t, got.Form)
			}
		})
	}
}

func TestPipelineMalformedBodyMessage(t *testing.T) {
	t.Parallel()

	p := NewPipeline(slog.New(slog.DiscardHandler)).ParseBody()
	rec := httptest.NewRecorder()
	h := func(context.Context, *types.Request) (types.Result, error) {
		return types.Text("unreachable"), nil
	}
	p.Handle(h).ServeHTTP(rec, newTestRequest(http.MethodPost, "/", "application/json", "{", ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "malformed request body", rec.Body.String())
}

func TestPipelineOrder(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&out, nil))
	verifier := newVerifier()
	verifier.out = &out

	// The builder methods are called in reverse, but the stages still run in
	// their fixed order.
	p := NewPipeline(logger).Auth(verifier).ParseBody().Log()
	h := func(context.Context, *types.Request) (types.Result, error) {
		out.WriteString("handler\n")
		return types.Text("ok"), nil
	}

	// Body parsing runs before authentication, so the malformed body fails the
	// request before the admin check can redirect it.
	rec := httptest.NewRecorder()
	p.Handle(h).ServeHTTP(rec,
		newTestRequest(http.MethodPost, "/manage/blogs", "application/json", "{", "user-cookie"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotContains(t, out.String(), "verify")

	out.Reset()
	rec = httptest.NewRecorder()
	p.Handle(h).ServeHTTP(rec,
		newTestRequest(http.MethodPost, "/manage/blogs", "application/json", `{}`, "admin-cookie"))
	assert.Equal(t, http.StatusOK, rec.Code)

	logged := out.String()
	iLog := strings.Index(logged, "Request: POST /manage/blogs")
	iVerify := strings.Index(logged, "verify")
	iHandler := strings.Index(logged, "handler")
	require.True(t, iLog >= 0 && iVerify >= 0 && iHandler >= 0, logged)
	assert.Less(t, iLog, iVerify)
	assert.Less(t, iVerify, iHandler)
}

func TestPipelineLogTransparent(t *testing.T) {
	t.Parallel()

	h := func(_ context.Context, req *types.Request) (types.Result, error) {
		resp := types.NewResponse(http.StatusAccepted, "text/csv", []byte(req.Method+" "+req.Path()))
		resp.Header.Set("X-Custom", "1")
		return resp, nil
	}

	run := func(p *Pipeline) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		p.Handle(h).ServeHTTP(rec, newTestRequest(http.MethodGet, "/blogs?page=2", "", "", ""))
		return rec
	}

	var out bytes.Buffer
	withLog := run(NewPipeline(slog.New(slog.NewTextHandler(&out, nil))).Log())
	withoutLog := run(NewPipeline(slog.New(slog.DiscardHandler)))

	assert.Equal(t, withoutLog.Code, withLog.Code)
	assert.Equal(t, withoutLog.Header(), withLog.Header())
	assert.Equal(t, withoutLog.Body.String(), withLog.Body.String())
	assert.Equal(t, "GET /blogs", withLog.Body.String())
	assert.Contains(t, out.String(), "Request: GET /blogs")
	assert.Contains(t, out.String(), "request_id=")
}

func TestPipelineErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		expStatus int
		expBody   string
	}{
		{
			name:      "client_error",
			err:       types.NewError(http.StatusConflict, "email already registered"),
			expStatus: http.StatusConflict,
			expBody:   "email already registered",
		},
		{
			name:      "client_error_wrapped",
			err:       errors.Join(errors.New("ctx"), types.NewBadRequestError("invalid email")),
			expStatus: http.StatusBadRequest,
			expBody:   "invalid email",
		},
		{
			name:      "client_error_no_message",
			err:       types.NewError(http.StatusForbidden, ""),
			expStatus: http.StatusForbidden,
			expBody:   "Forbidden",
		},
		{
			name:      "client_error_value",
			err:       types.Error{StatusCode: http.StatusNotFound, Message: "no such user"},
			expStatus: http.StatusNotFound,
			expBody:   "no such user",
		},
		{
			name:      "client_error_value_wrapped",
			err:       fmt.Errorf("loading user: %w", types.Error{StatusCode: http.StatusGone}),
			expStatus: http.StatusGone,
			expBody:   "Gone",
		},
		{
			name:      "invalid_status",
			err:       types.NewError(http.StatusOK, "not an error"),
			expStatus: http.StatusInternalServerError,
			expBody:   "Internal Server Error",
		},
		{
			name:      "internal",
			err:       errors.New("secret internal detail"),
			expStatus: http.StatusInternalServerError,
			expBody:   "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := func(context.Context, *types.Request) (types.Result, error) {
				return nil, tt.err
			}
			rec := httptest.NewRecorder()
			NewPipeline(slog.New(slog.DiscardHandler)).Handle(h).
				ServeHTTP(rec, newTestRequest(http.MethodGet, "/", "", "", ""))

			assert.Equal(t, tt.expStatus, rec.Code)
			assert.Equal(t, tt.expBody, rec.Body.String())
			assert.Equal(t, types.ContentTypeText, rec.Header().Get("Content-Type"))
		})
	}
}

func TestPipelineCyclicJSON(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&out, nil))
	h := func(context.Context, *types.Request) (types.Result, error) {
		m := map[string]any{"fn": func() {}}
		m["self"] = m
		return types.JSON{Value: m}, nil
	}
	rec := httptest.NewRecorder()
	NewPipeline(logger).Handle(h).ServeHTTP(rec, newTestRequest(http.MethodGet, "/", "", "", ""))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", rec.Body.String())
	assert.Contains(t, out.String(), "value contains a cycle")
}

func TestPipelineErrorAttrs(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&out, nil))
	h := func(context.Context, *types.Request) (types.Result, error) {
		return nil, aerrors.NewWithCause("failed loading users", errors.New("database is locked"),
			"table", "users")
	}

	rec := httptest.NewRecorder()
	NewPipeline(logger).Handle(h).ServeHTTP(rec, newTestRequest(http.MethodGet, "/api/users", "", "", ""))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "locked")
	logged := out.String()
	assert.Contains(t, logged, `msg="failed handling request"`)
	assert.Contains(t, logged, `path=/api/users error="failed loading users" cause="database is locked" table=users`)
}

func TestPipelineNilResult(t *testing.T) {
	t.Parallel()

	h := func(context.Context, *types.Request) (types.Result, error) {
		return nil, nil
	}
	rec := httptest.NewRecorder()
	NewPipeline(slog.New(slog.DiscardHandler)).Handle(h).
		ServeHTTP(rec, newTestRequest(http.MethodGet, "/", "", "", ""))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPipelineCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	h := func(context.Context, *types.Request) (types.Result, error) {
		cancel()
		return types.Text("too late"), nil
	}

	rec := httptest.NewRecorder()
	req := newTestRequest(http.MethodGet, "/", "", "", "").WithContext(ctx)
	NewPipeline(slog.New(slog.DiscardHandler)).Log().Handle(h).ServeHTTP(rec, req)

	assert.Empty(t, rec.Body.String())
	assert.Empty(t, rec.Header().Get("Content-Type"))
	assert.False(t, rec.Flushed)
}

func TestPipelineRequestID(t *testing.T) {
	t.Parallel()

	ids := map[string]struct{}{}
	h := func(_ context.Context, req *types.Request) (types.Result, error) {
		ids[req.ID] = struct{}{}
		return types.Status(http.StatusNoContent), nil
	}

	handler := NewPipeline(slog.New(slog.DiscardHandler)).Handle(h)
	for range 5 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, newTestRequest(http.MethodGet, "/", "", "", ""))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}

	assert.Len(t, ids, 5)
	assert.NotContains(t, ids, "")
}

func TestPipelineTemplate(t *testing.T) {
	t.Parallel()

	h := func(context.Context, *types.Request) (types.Result, error) {
		return types.FromMap(map[string]any{types.TemplateKey: "blogs.html", "title": "Blogs"}), nil
	}

	rec := httptest.NewRecorder()
	NewPipeline(slog.New(slog.DiscardHandler)).Render(mockRenderer{}).Handle(h).
		ServeHTTP(rec, newTestRequest(http.MethodGet, "/", "", "", ""))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.ContentTypeHTML, rec.Header().Get("Content-Type"))
	assert.Equal(t, "<h1>blogs.html</h1><p>Blogs</p>", rec.Body.String())
}
