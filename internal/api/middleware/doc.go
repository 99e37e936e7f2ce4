// Package middleware contains the HTTP middleware shared by every route:
// trace IDs with a request-scoped logger, and lazy token authentication.
package middleware
