// Package shared holds the response envelopes, JSON helpers and trace-ID
// context used by the view dispatcher and the HTTP middleware.
package shared
