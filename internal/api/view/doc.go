// Package view dispatches HTTP requests to per-method handlers.
//
// A Dispatcher turns a View (handlers keyed by method plus a permission
// policy) into an http.Handler. Each request is wrapped in a Context, the
// policy is evaluated, the handler runs and its result is coerced into a
// Response and written through the configured envelope. Every failure,
// including panics, is resolved against the error taxonomy, logged once and
// rendered as a JSON error.
package view
