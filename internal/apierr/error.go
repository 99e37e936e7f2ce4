package apierr

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Error is a failure with a known kind. Any field left at its zero value is
// filled from the taxonomy when the error is resolved.
type Error struct {
	Kind    Kind
	Hint    string
	LogHint string
	// Fields carries per-field messages for validation failures.
	Fields map[string]string

	status   int
	code     int
	severity *slog.Level
	cause    error
	stack    []byte
}

// Option customises an Error at construction time.
type Option func(*Error)

// WithStatus overrides the HTTP status for this error only.
func WithStatus(status int) Option {
	return func(e *Error) { e.status = status }
}

// WithCode overrides the application error code for this error only.
func WithCode(code int) Option {
	return func(e *Error) { e.code = code }
}

// WithLogHint sets the operator-facing hint.
func WithLogHint(hint string) Option {
	return func(e *Error) { e.LogHint = hint }
}

// WithSeverity overrides the log level for this error only.
func WithSeverity(level slog.Level) Option {
	return func(e *Error) { e.severity = &level }
}

// WithCause attaches the underlying error. It is logged, never returned to
// the caller.
func WithCause(err error) Option {
	return func(e *Error) { e.cause = err }
}

// WithFields attaches per-field messages.
func WithFields(fields map[string]string) Option {
	return func(e *Error) { e.Fields = fields }
}

// New builds an Error of the given kind with a user-facing hint.
func New(kind Kind, hint string, opts ...Option) *Error {
	e := &Error{Kind: kind, Hint: hint}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BadRequest reports an unreadable request body.
func BadRequest(hint string, opts ...Option) *Error {
	return New(KindBadRequest, hint, opts...)
}

// Params reports invalid query or path parameters.
func Params(hint string, opts ...Option) *Error {
	return New(KindParams, hint, opts...)
}

// Unauthorized reports a missing or unusable identity.
func Unauthorized(hint string, opts ...Option) *Error {
	return New(KindUnauthorized, hint, opts...)
}

// Forbidden reports an identity that lacks permission.
func Forbidden(hint string, opts ...Option) *Error {
	return New(KindForbidden, hint, opts...)
}

// NotFound reports a missing resource.
func NotFound(hint string, opts ...Option) *Error {
	return New(KindNotFound, hint, opts...)
}

// Internal wraps an unexpected failure and records the stack of the caller.
// The caller only ever sees the generic internal hint.
func Internal(cause error, opts ...Option) *Error {
	e := New(KindInternal, "", append([]Option{WithCause(cause)}, opts...)...)
	e.stack = debug.Stack()
	return e
}

// Stack returns the stack recorded by Internal, or nil.
func (e *Error) Stack() []byte {
	return e.stack
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Kind.String()
	switch {
	case e.LogHint != "":
		msg += ": " + e.LogHint
	case e.Hint != "":
		msg += ": " + e.Hint
	}
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Unwrap returns the attached cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches another *Error of the same kind, so errors.Is(err,
// &apierr.Error{Kind: apierr.KindForbidden}) works on wrapped values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind, true
	}
	return KindInternal, false
}
