// Package handler assembles HTTP handlers from a fixed pipeline of stages
// wrapped around a route handler. Route handlers only implement the logic that
// is unique to each endpoint, and return a typed types.Result, which the
// pipeline converts into a concrete HTTP response.
//
// The stages run in this order, regardless of the order they were configured:
// logging, body parsing, authentication, and response normalization, which
// wraps the route handler directly. Stages may modify the request before
// calling the next stage, or return a response without calling it at all, as
// the authentication stage does for admin pages.
package handler
