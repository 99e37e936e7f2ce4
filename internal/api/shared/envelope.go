package shared

import (
	"fmt"

	"github.com/phrazzld/apiview/internal/apierr"
	"github.com/phrazzld/apiview/internal/config"
)

// Envelope names accepted by api.envelope.
const (
	EnvelopeSimple = "simple"
	EnvelopeRich   = "rich"
)

// Envelope shapes response bodies. Success wraps a handler's data; Failure
// renders a resolved error.
type Envelope interface {
	Success(data any, code int, hint string) any
	Failure(r apierr.Resolved) any
}

// NewEnvelope returns the envelope selected by cfg.
func NewEnvelope(cfg config.APIConfig) (Envelope, error) {
	switch cfg.Envelope {
	case EnvelopeSimple, "":
		return SimpleEnvelope{}, nil
	case EnvelopeRich:
		return RichEnvelope{SuccessCode: cfg.SuccessCode}, nil
	default:
		return nil, fmt.Errorf("unknown envelope %q", cfg.Envelope)
	}
}

// DetailResponse is the simple envelope's body for strings and errors.
type DetailResponse struct {
	Detail string            `json:"detail"`
	Errors map[string]string `json:"errors,omitempty"`
}

// SimpleEnvelope writes data as is, except that a bare string becomes
// {"detail": s}. Errors become {"detail": hint} plus per-field messages.
type SimpleEnvelope struct{}

// Success implements Envelope. Code and hint are not rendered.
func (SimpleEnvelope) Success(data any, _ int, _ string) any {
	if s, ok := data.(string); ok {
		return DetailResponse{Detail: s}
	}
	return data
}

// Failure implements Envelope.
func (SimpleEnvelope) Failure(r apierr.Resolved) any {
	return DetailResponse{Detail: r.UserHint, Errors: r.Fields}
}

// RichResponse is the body of every rich-envelope response.
type RichResponse struct {
	ErrorCode int    `json:"error_code"`
	Hint      string `json:"hint"`
	Data      any    `json:"data"`
}

// RichEnvelope wraps every body as {"error_code", "hint", "data"}.
type RichEnvelope struct {
	// SuccessCode is reported when a handler does not set its own code.
	SuccessCode int
}

// Success implements Envelope. A zero code selects SuccessCode.
func (e RichEnvelope) Success(data any, code int, hint string) any {
	if code == 0 {
		code = e.SuccessCode
	}
	return RichResponse{ErrorCode: code, Hint: hint, Data: data}
}

// Failure implements Envelope. Data carries field messages, or {} when there
// are none.
func (e RichEnvelope) Failure(r apierr.Resolved) any {
	var data any = map[string]any{}
	if len(r.Fields) > 0 {
		data = r.Fields
	}
	return RichResponse{ErrorCode: r.Code, Hint: r.UserHint, Data: data}
}
