package middleware

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/apiview/internal/api/shared"
	"github.com/phrazzld/apiview/internal/platform/logger"
)

// TraceMiddleware adds a trace ID to the request context.
// This middleware should be applied early in the middleware chain to ensure
// that all subsequent handlers have access to the trace ID. A well-formed
// X-Trace-ID from the client is kept; otherwise a new one is generated.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if incoming := r.Header.Get(shared.TraceIDHeader); shared.ValidTraceID(incoming) {
			ctx = shared.WithTraceID(ctx, incoming)
		} else {
			ctx = shared.SetTraceID(ctx)
		}

		traceID := shared.GetTraceID(ctx)
		w.Header().Set(shared.TraceIDHeader, traceID)

		// Everything logged for this request carries the trace ID.
		log := logger.FromContext(ctx).With(slog.String("trace_id", traceID))
		ctx = logger.WithContext(ctx, log)

		log.Debug("request started",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
