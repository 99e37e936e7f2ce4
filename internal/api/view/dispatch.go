package view

import (
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/phrazzld/apiview/internal/api/permission"
	"github.com/phrazzld/apiview/internal/api/shared"
	"github.com/phrazzld/apiview/internal/apierr"
	"github.com/phrazzld/apiview/internal/platform/metrics"
	"github.com/phrazzld/apiview/internal/service/auth"
)

// HandlerFunc serves one method of a View. It returns either a *Response or
// any JSON-encodable value, or an error.
type HandlerFunc func(c *Context) (any, error)

// ErrorHandler turns a failure into a response, replacing the default
// mapping. Returning nil falls back to the default. The failure has already
// been logged when it is called.
type ErrorHandler func(c *Context, err error) *Response

// View declares the handlers of one resource.
type View struct {
	// Handlers is keyed by HTTP method. HEAD falls back to GET.
	Handlers map[string]HandlerFunc
	// Policy may be nil, in which case the dispatcher's default guards apply.
	Policy *permission.Policy
	// ErrorHandler overrides the dispatcher's error handler for this view.
	ErrorHandler ErrorHandler
}

// handler returns the handler serving method and the method it is declared
// under, which is the one whose guards apply. HEAD falls back to GET.
func (v View) handler(method string) (HandlerFunc, string, bool) {
	method = strings.ToUpper(method)
	if h, ok := v.Handlers[method]; ok {
		return h, method, true
	}
	if method == http.MethodHead {
		return v.handler(http.MethodGet)
	}
	return nil, method, false
}

// normalized returns a copy of v with handler keys in upper case.
func (v View) normalized() View {
	handlers := make(map[string]HandlerFunc, len(v.Handlers))
	for m, h := range v.Handlers {
		upper := strings.ToUpper(m)
		if _, taken := handlers[upper]; taken && m != upper {
			continue
		}
		handlers[upper] = h
	}
	v.Handlers = handlers
	return v
}

func (v View) allowed() string {
	methods := make([]string, 0, len(v.Handlers)+1)
	for m := range v.Handlers {
		methods = append(methods, m)
	}
	methods = append(methods, http.MethodOptions)
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}

// CSRFExempter is implemented by handlers that opt out of CSRF protection.
// Token-authenticated API views always do. A CSRF middleware mounted in
// front of the router is expected to skip handlers reporting true.
type CSRFExempter interface {
	CSRFExempt() bool
}

// Dispatcher builds view handlers sharing one taxonomy, envelope, resolver
// and set of process-wide default guards. It is immutable once built and
// safe for concurrent use.
type Dispatcher struct {
	taxonomy *apierr.Taxonomy
	envelope shared.Envelope
	resolver *auth.Resolver
	guards   []permission.Guard
	onError  ErrorHandler
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithResolver sets the resolver used when no authentication middleware has
// installed a resolution in the request context.
func WithResolver(r *auth.Resolver) Option {
	return func(d *Dispatcher) { d.resolver = r }
}

// WithDefaultGuards sets the guards applied when a view's policy declares
// nothing for the method.
func WithDefaultGuards(guards ...permission.Guard) Option {
	return func(d *Dispatcher) { d.guards = append([]permission.Guard{}, guards...) }
}

// WithErrorHandler replaces the default error mapping for every view that
// does not declare its own.
func WithErrorHandler(h ErrorHandler) Option {
	return func(d *Dispatcher) { d.onError = h }
}

// WithLogger sets the fallback logger. A logger stored in the request
// context takes precedence.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithMetrics records every mapped failure.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// NewDispatcher creates a Dispatcher. A nil taxonomy selects the defaults and
// a nil envelope the simple one.
func NewDispatcher(taxonomy *apierr.Taxonomy, envelope shared.Envelope, opts ...Option) *Dispatcher {
	if taxonomy == nil {
		taxonomy = apierr.DefaultTaxonomy()
	}
	if envelope == nil {
		envelope = shared.SimpleEnvelope{}
	}
	d := &Dispatcher{
		taxonomy: taxonomy,
		envelope: envelope,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle returns the http.Handler for v. Handler keys are matched
// case-insensitively. The handler implements CSRFExempter.
func (d *Dispatcher) Handle(v View) http.Handler {
	return &viewHandler{d: d, view: v.normalized()}
}

// HandleFunc is Handle for a view with a single method and no policy of
// its own.
func (d *Dispatcher) HandleFunc(method string, h HandlerFunc) http.Handler {
	return d.Handle(View{Handlers: map[string]HandlerFunc{method: h}})
}

type viewHandler struct {
	d    *Dispatcher
	view View
}

func (h *viewHandler) CSRFExempt() bool { return true }

func (h *viewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c := newContext(r, h.d.resolver)
	h.d.write(w, c, h.view.ErrorHandler, h.d.run(c, h.view))
}

// run evaluates the policy, calls the handler and coerces its result. Any
// failure on the way, panics included, goes through fail.
func (d *Dispatcher) run(c *Context, v View) (resp *Response) {
	defer func() {
		if p := recover(); p != nil {
			if p == http.ErrAbortHandler {
				panic(p)
			}
			resp = d.fail(c, v.ErrorHandler, newPanicError(p))
		}
	}()

	handler, method, ok := v.handler(c.Method())
	if err := permission.Run(c, v.Policy.Lookup(method, d.guards)); err != nil {
		return d.fail(c, v.ErrorHandler, err)
	}

	if !ok {
		if strings.EqualFold(c.Method(), http.MethodOptions) {
			return OK(nil).WithHeader("Allow", v.allowed())
		}
		return d.fail(c, v.ErrorHandler, apierr.New(apierr.KindMethodNotAllowed, "",
			apierr.WithLogHint("no handler for "+c.Method()))).
			WithHeader("Allow", v.allowed())
	}

	out, err := handler(c)
	if err != nil {
		return d.fail(c, v.ErrorHandler, err)
	}
	return coerce(out)
}

// write encodes resp before anything is sent, so a body that cannot be
// encoded is still reported through fail. The default mapping of an internal
// error always encodes.
func (d *Dispatcher) write(w http.ResponseWriter, c *Context, custom ErrorHandler, resp *Response) {
	payload, err := d.encode(resp)
	if err != nil {
		cause := apierr.Internal(err, apierr.WithLogHint("response encoding failed"))
		resp = d.fail(c, custom, cause)
		if payload, err = d.encode(resp); err != nil {
			resp = d.MapError(cause)
			payload, _ = d.encode(resp)
		}
	}

	for key, values := range resp.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	shared.RespondWithRawJSON(w, resp.Status, payload)
}

func (d *Dispatcher) encode(resp *Response) ([]byte, error) {
	body := resp.body
	if !resp.rendered {
		body = d.envelope.Success(resp.Data, resp.Code, resp.Hint)
	}
	return shared.EncodeJSON(body)
}
