package middleware

import "net/http"

// Middleware wraps an http.Handler to provide additional functionality for
// routes served outside the request pipeline, such as access logging and
// metrics collection.
type Middleware func(http.Handler) http.Handler

// Chain wraps h with the given middlewares. The first middleware is the
// outermost one, so execution flows from left to right.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}

	return h
}
