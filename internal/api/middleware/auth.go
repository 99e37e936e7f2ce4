package middleware

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/apiview/internal/platform/logger"
	"github.com/phrazzld/apiview/internal/platform/metrics"
	"github.com/phrazzld/apiview/internal/service/auth"
)

// AuthMiddleware installs a lazily evaluated authentication result in every
// request context. It never rejects a request; permission guards do that.
type AuthMiddleware struct {
	resolver *auth.Resolver
	metrics  *metrics.Metrics
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
// m may be nil.
func NewAuthMiddleware(resolver *auth.Resolver, m *metrics.Metrics) *AuthMiddleware {
	return &AuthMiddleware{
		resolver: resolver,
		metrics:  m,
	}
}

// Authenticate stores an unevaluated auth.Lazy in the request context. The
// token is decoded and the user looked up only when something asks for the
// principal, and at most once per request.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lazy := auth.NewLazy(func() (auth.Resolution, error) {
			res, err := m.resolver.Resolve(r)
			m.metrics.RecordAuthOutcome(res.Outcome.String())
			if err == nil && !res.Principal.IsAnonymous() {
				logger.FromContext(r.Context()).Debug("request authenticated",
					slog.String("user_id", res.Principal.ID().String()))
			}
			return res, err
		})

		next.ServeHTTP(w, r.WithContext(auth.WithLazy(r.Context(), lazy)))
	})
}

// GetPrincipal resolves the principal installed by Authenticate. It reports
// false when the middleware did not run or the lookup failed.
func GetPrincipal(r *http.Request) (auth.Principal, bool) {
	lazy, ok := auth.LazyFromContext(r.Context())
	if !ok {
		return auth.Anonymous(), false
	}
	res, err := lazy.Get()
	if err != nil {
		return auth.Anonymous(), false
	}
	return res.Principal, true
}
