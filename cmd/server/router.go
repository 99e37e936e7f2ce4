package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/phrazzld/apiview/internal/api"
	apiMiddleware "github.com/phrazzld/apiview/internal/api/middleware"
	"github.com/phrazzld/apiview/internal/apierr"
	"github.com/unrolled/secure"
)

// setupRouter creates the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	d := app.dispatcher
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.TraceMiddleware)
	r.Use(app.secureHeaders())
	if app.metrics != nil {
		r.Use(app.metrics.Middleware)
	}
	if limit := app.config.Server.RateLimitPerMinute; limit > 0 {
		r.Use(httprate.Limit(limit, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				d.Error(w, r, apierr.New(apierr.KindBadRequest, "too many requests",
					apierr.WithStatus(http.StatusTooManyRequests)))
			}),
		))
	}
	r.Use(apiMiddleware.NewAuthMiddleware(app.resolver, app.metrics).Authenticate)

	r.NotFound(d.NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(d.MethodNotAllowedHandler().ServeHTTP)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})
	if app.metrics != nil {
		r.Handle("/metrics", app.metrics.Handler())
	}

	r.Route("/api", api.Routes(d, app.handlers()))

	return r
}

// secureHeaders sets the usual hardening headers on every response.
func (app *application) secureHeaders() func(http.Handler) http.Handler {
	sm := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := sm.Process(w, r); err != nil {
				app.dispatcher.Error(w, r, apierr.Internal(err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
