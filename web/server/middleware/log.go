package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/felixge/httpsnoop"
)

// Logger logs the request line along with response metrics, at a level
// matching the response status: error for 5xx, warning for 4xx and info
// otherwise.
func Logger(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)

			level := slog.LevelInfo
			switch {
			case m.Code >= http.StatusInternalServerError:
				level = slog.LevelError
			case m.Code >= http.StatusBadRequest:
				level = slog.LevelWarn
			}

			logger.Log(context.WithoutCancel(r.Context()), level, r.Method+" "+r.URL.Path,
				"response_code", m.Code,
				"duration", m.Duration,
				"bytes_sent", humanize.IBytes(uint64(max(m.Written, 0))),
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		})
	}
}
