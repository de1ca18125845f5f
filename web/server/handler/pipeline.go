package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nrednav/cuid2"

	aerrors "go.hackfix.me/awesome/app/errors"
	"go.hackfix.me/awesome/web/server/types"
)

// Pipeline defines the processing stages for HTTP requests and responses.
// It provides a fluent interface for configuring the stages, but the order
// they run in is always the same: logging, body parsing, authentication, and
// finally the route handler wrapped by response normalization.
type Pipeline struct {
	logger    *slog.Logger
	log       Stage
	parseBody Stage
	auth      Stage
	renderer  Renderer
}

// NewPipeline creates a new pipeline that only normalizes handler results.
func NewPipeline(logger *slog.Logger) *Pipeline {
	return &Pipeline{logger: logger}
}

// Log enables request logging.
func (p *Pipeline) Log() *Pipeline {
	p.log = Log(p.logger)
	return p
}

// ParseBody enables parsing of JSON and form request bodies.
func (p *Pipeline) ParseBody() *Pipeline {
	p.parseBody = ParseBody(p.logger)
	return p
}

// Auth enables session cookie authentication and admin page protection.
func (p *Pipeline) Auth(verifier CookieVerifier) *Pipeline {
	p.auth = Authenticate(verifier, p.logger)
	return p
}

// Render sets the renderer used for template results.
func (p *Pipeline) Render(renderer Renderer) *Pipeline {
	p.renderer = renderer
	return p
}

// Build composes the configured stages around h, and returns the entry point
// of the resulting chain.
func (p *Pipeline) Build(h Func) Next {
	next := Render(h, p.renderer, p.logger)

	stages := []Stage{p.log, p.parseBody, p.auth}
	for i := len(stages) - 1; i >= 0; i-- {
		if stages[i] == nil {
			continue
		}
		next = chain(stages[i], next)
	}

	return next
}

func chain(s Stage, next Next) Next {
	return func(ctx context.Context, req *types.Request) (*types.Response, error) {
		return s.Process(ctx, req, next)
	}
}

// Handle returns an HTTP handler that runs every request through the pipeline
// and h. A types.Error, by value or pointer, is returned to the client with its
// status code and message. Any other error is logged, and reported to the
// client only as a generic 500 Internal Server Error.
func (p *Pipeline) Handle(h Func) http.Handler {
	next := p.Build(h)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		req := types.NewRequest(r)
		req.ID = cuid2.Generate()

		resp, err := next(ctx, req)
		if err != nil {
			resp = p.errorResponse(req, err)
		}

		// The client is gone, so there's no one to write to.
		if ctx.Err() != nil {
			p.logger.Debug("request canceled, dropping response",
				"request_id", req.ID, "error", ctx.Err().Error())
			return
		}

		if err = resp.Write(w); err != nil {
			p.logger.Error("failed writing response", "request_id", req.ID, "error", err.Error())
		}
	})
}

func (p *Pipeline) errorResponse(req *types.Request, err error) *types.Response {
	if terr, ok := asClientError(err); ok {
		p.logger.Debug("request failed", "request_id", req.ID,
			"status_code", terr.StatusCode, "error", terr.Error())
		return types.NewResponse(terr.StatusCode, types.ContentTypeText, []byte(terr.Error()))
	}

	attrs := append([]any{
		"request_id", req.ID, "method", req.Method, "path", req.Path(), "error", err.Error(),
	}, aerrors.Attrs(err)...)
	p.logger.Error("failed handling request", attrs...)

	return types.NewResponse(http.StatusInternalServerError, types.ContentTypeText,
		[]byte(http.StatusText(http.StatusInternalServerError)))
}

// asClientError finds a types.Error in err's chain, returned either by pointer
// or by value, with a 4xx or 5xx status code.
func asClientError(err error) (types.Error, bool) {
	var (
		terr types.Error
		ptr  *types.Error
	)
	switch {
	case errors.As(err, &ptr) && ptr != nil:
		terr = *ptr
	case errors.As(err, &terr):
	default:
		return types.Error{}, false
	}

	return terr, terr.StatusCode >= 400 && terr.StatusCode < 600
}
