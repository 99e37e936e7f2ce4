package view

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/phrazzld/apiview/internal/apierr"
	"github.com/phrazzld/apiview/internal/platform/logger"
	"github.com/phrazzld/apiview/internal/redact"
	"github.com/phrazzld/apiview/internal/service/auth"
)

// maxLoggedBody caps how much of an unparseable body reaches the log.
const maxLoggedBody = 1024

// panicError carries a recovered panic and the stack at the point of panic.
type panicError struct {
	value any
	stack []byte
}

func newPanicError(value any) *panicError {
	return &panicError{value: value, stack: debug.Stack()}
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

func (e *panicError) Unwrap() error {
	if err, ok := e.value.(error); ok {
		return err
	}
	return nil
}

// MapError renders err with the default mapping: the taxonomy decides the
// status and the envelope the body. It does not log.
func (d *Dispatcher) MapError(err error) *Response {
	return d.errorResponse(d.taxonomy.Resolve(err))
}

func (d *Dispatcher) errorResponse(r apierr.Resolved) *Response {
	return &Response{
		Status:   r.Status,
		body:     d.envelope.Failure(r),
		rendered: true,
	}
}

// fail logs err once and turns it into a response, through the view's error
// handler, the dispatcher's, or the default mapping, in that order.
func (d *Dispatcher) fail(c *Context, custom ErrorHandler, err error) *Response {
	resolved := d.taxonomy.Resolve(err)
	d.logFailure(c, err, resolved)
	d.metrics.RecordFailure(resolved.Kind.String(), resolved.Status)

	if custom == nil {
		custom = d.onError
	}
	if custom != nil {
		if resp := d.runErrorHandler(c, custom, err); resp != nil {
			return coerce(resp)
		}
	}
	return d.errorResponse(resolved)
}

// runErrorHandler calls custom, treating a panic inside it as a nil result
// so the default mapping still answers.
func (d *Dispatcher) runErrorHandler(c *Context, custom ErrorHandler, err error) (resp *Response) {
	defer func() {
		if p := recover(); p != nil {
			if p == http.ErrAbortHandler {
				panic(p)
			}
			perr := newPanicError(p)
			logger.FromContextOrDefault(c.Context(), d.logger).LogAttrs(c.Context(), slog.LevelError,
				"error handler panicked",
				slog.String("error", redact.Error(perr)),
				slog.String("handling", redact.Error(err)),
				slog.String("stack", string(perr.stack)))
			resp = nil
		}
	}()
	return custom(c, err)
}

// Error writes err as an error response outside of a view, e.g. from
// middleware or router fallbacks. It is logged like any view failure.
func (d *Dispatcher) Error(w http.ResponseWriter, r *http.Request, err error) {
	c := newContext(r, d.resolver)
	d.write(w, c, nil, d.fail(c, nil, err))
}

// NotFoundHandler answers unmatched routes with the not-found kind.
func (d *Dispatcher) NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d.Error(w, r, apierr.NotFound("", apierr.WithLogHint("no route")))
	})
}

// MethodNotAllowedHandler answers routes that exist for other methods.
func (d *Dispatcher) MethodNotAllowedHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d.Error(w, r, apierr.New(apierr.KindMethodNotAllowed, "", apierr.WithLogHint("no route for "+r.Method)))
	})
}

// logFailure emits the single log record for a failure. The message is the
// ordered request context; building it never fails.
func (d *Dispatcher) logFailure(c *Context, err error, r apierr.Resolved) {
	ctx := c.Context()
	log := logger.FromContextOrDefault(ctx, d.logger)

	fields := logger.NewFields().
		Set("method", c.Method()).
		Set("path", c.Path()).
		Set("query_params", redact.Value(c.Query())).
		Set("data", c.loggableData()).
		Set("user", c.loggableUser()).
		Set("exc", redact.Error(err))

	attrs := []slog.Attr{
		slog.String("kind", r.Kind.String()),
		slog.Int("status", r.Status),
		slog.Int("error_code", r.Code),
	}
	if r.LogHint != "" {
		attrs = append(attrs, slog.String("log_hint", redact.String(r.LogHint)))
	}
	if r.Severity >= slog.LevelError {
		if stack := stackOf(err); stack != nil {
			attrs = append(attrs, slog.String("stack", string(stack)))
		}
	}

	log.LogAttrs(ctx, r.Severity, fields.String(), attrs...)
}

// stackOf returns the stack recorded where err was raised: the panic site or
// the apierr constructor. Errors that never recorded one have none.
func stackOf(err error) []byte {
	var p *panicError
	if errors.As(err, &p) {
		return p.stack
	}
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		return apiErr.Stack()
	}
	return nil
}

// loggableData returns the redacted request data. A body that cannot be
// parsed is logged raw, truncated and redacted.
func (c *Context) loggableData() (out any) {
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()

	data, err := c.Data()
	if err == nil {
		return redact.Value(data)
	}
	raw := c.body
	if len(raw) > maxLoggedBody {
		raw = raw[:maxLoggedBody]
	}
	return redact.String(string(raw))
}

// loggableUser names the principal, or AnonymousUser when it cannot be
// resolved.
func (c *Context) loggableUser() (name string) {
	defer func() {
		if recover() != nil {
			name = auth.AnonymousName
		}
	}()

	res, err := c.Auth()
	if err != nil {
		return auth.AnonymousName
	}
	return res.Principal.String()
}
