package auth

import "context"

// Lazy resolves authentication on first use and caches the result, including
// a lookup error. It belongs to a single request and is not safe for
// concurrent use.
type Lazy struct {
	resolve func() (Resolution, error)
	result  *Resolution
	err     error
}

// NewLazy wraps resolve in a cell.
func NewLazy(resolve func() (Resolution, error)) *Lazy {
	return &Lazy{resolve: resolve}
}

// Resolved returns a cell that already holds res.
func Resolved(res Resolution) *Lazy {
	return &Lazy{result: &res}
}

// Get returns the cached resolution, running the resolver on the first call.
func (l *Lazy) Get() (Resolution, error) {
	if l.result == nil {
		res, err := l.resolve()
		l.result = &res
		l.err = err
	}
	return *l.result, l.err
}

// Done reports whether the resolver has run.
func (l *Lazy) Done() bool {
	return l.result != nil
}

type lazyContextKey struct{}

// WithLazy stores the cell in ctx.
func WithLazy(ctx context.Context, l *Lazy) context.Context {
	return context.WithValue(ctx, lazyContextKey{}, l)
}

// LazyFromContext returns the cell stored by WithLazy.
func LazyFromContext(ctx context.Context) (*Lazy, bool) {
	l, ok := ctx.Value(lazyContextKey{}).(*Lazy)
	return l, ok && l != nil
}
