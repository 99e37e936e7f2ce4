package view_test

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/phrazzld/apiview/internal/api/permission"
	"github.com/phrazzld/apiview/internal/api/shared"
	"github.com/phrazzld/apiview/internal/api/view"
	"github.com/phrazzld/apiview/internal/apierr"
	"github.com/phrazzld/apiview/internal/config"
	"github.com/phrazzld/apiview/internal/platform/metrics"
	"github.com/phrazzld/apiview/internal/testutils"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatch_Coercion(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name       string
		envelope   shared.Envelope
		result     any
		wantStatus int
		wantBody   string
	}{
		{
			name:       "map is sent verbatim",
			envelope:   shared.SimpleEnvelope{},
			result:     map[string]any{"username": "john"},
			wantStatus: http.StatusOK,
			wantBody:   `{"username":"john"}`,
		},
		{
			name:       "string becomes detail",
			envelope:   shared.SimpleEnvelope{},
			result:     "hello",
			wantStatus: http.StatusOK,
			wantBody:   `{"detail":"hello"}`,
		},
		{
			name:       "explicit response keeps status",
			envelope:   shared.SimpleEnvelope{},
			result:     view.Created(map[string]any{"id": 1}),
			wantStatus: http.StatusCreated,
			wantBody:   `{"id":1}`,
		},
		{
			name:       "response value without status",
			envelope:   shared.SimpleEnvelope{},
			result:     view.Response{Data: []int{1, 2}},
			wantStatus: http.StatusOK,
			wantBody:   `[1,2]`,
		},
		{
			name:       "rich envelope wraps data",
			envelope:   shared.RichEnvelope{SuccessCode: 0},
			result:     map[string]any{"username": "john"},
			wantStatus: http.StatusOK,
			wantBody:   `{"error_code":0,"hint":"","data":{"username":"john"}}`,
		},
		{
			name:       "rich envelope custom code and hint",
			envelope:   shared.RichEnvelope{SuccessCode: 0},
			result:     view.NotFound(map[string]any{}).WithCode(1004).WithHint("no such blog"),
			wantStatus: http.StatusNotFound,
			wantBody:   `{"error_code":1004,"hint":"no such blog","data":{}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := f.dispatcher(tt.envelope)
			h := d.Handle(get(func(c *view.Context) (any, error) { return tt.result, nil }))

			rec := serve(h, httptest.NewRequest(http.MethodGet, "/thing", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}

	assert.Empty(t, f.logs.Entries(), "successful requests are not logged")
}

func TestDispatch_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantSimple string
		wantRich   string
		wantLevel  string
	}{
		{
			name:       "unauthorized with hint",
			err:        apierr.Unauthorized("EXPIRED"),
			wantStatus: http.StatusUnauthorized,
			wantSimple: `{"detail":"EXPIRED"}`,
			wantRich:   `{"error_code":401,"hint":"EXPIRED","data":{}}`,
			wantLevel:  "WARN",
		},
		{
			name:       "forbidden falls back to kind hint",
			err:        apierr.Forbidden(""),
			wantStatus: http.StatusForbidden,
			wantSimple: `{"detail":"permission denied"}`,
			wantRich:   `{"error_code":403,"hint":"permission denied","data":{}}`,
			wantLevel:  "WARN",
		},
		{
			name:       "per-error status and code",
			err:        apierr.Params("page must be positive", apierr.WithStatus(409), apierr.WithCode(4090)),
			wantStatus: http.StatusConflict,
			wantSimple: `{"detail":"page must be positive"}`,
			wantRich:   `{"error_code":4090,"hint":"page must be positive","data":{}}`,
			wantLevel:  "WARN",
		},
		{
			name:       "unknown error is internal and hidden",
			err:        errors.New("connect postgres://admin:hunter22@db:5432/app refused"),
			wantStatus: http.StatusInternalServerError,
			wantSimple: `{"detail":"internal error"}`,
			wantRich:   `{"error_code":500,"hint":"internal error","data":{}}`,
			wantLevel:  "ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for envName, env := range map[string]shared.Envelope{
				"simple": shared.SimpleEnvelope{},
				"rich":   shared.RichEnvelope{},
			} {
				f := newFixture(t)
				d := f.dispatcher(env)
				h := d.Handle(get(func(c *view.Context) (any, error) { return nil, tt.err }))

				rec := serve(h, httptest.NewRequest(http.MethodGet, "/thing", nil))

				assert.Equal(t, tt.wantStatus, rec.Code, envName)
				want := tt.wantSimple
				if envName == "rich" {
					want = tt.wantRich
				}
				assert.JSONEq(t, want, rec.Body.String(), envName)

				entries := f.logs.Entries()
				require.Len(t, entries, 1, "exactly one log record per failure")
				assert.Equal(t, tt.wantLevel, entries[0]["level"])
				assert.NotContains(t, rec.Body.String(), "hunter22")
				assert.NotContains(t, entries[0]["message"], "hunter22")
			}
		})
	}
}

func TestDispatch_LogLine(t *testing.T) {
	f := newFixture(t)
	d := f.dispatcher(shared.SimpleEnvelope{})
	h := d.Handle(view.View{Handlers: map[string]view.HandlerFunc{
		http.MethodPost: func(c *view.Context) (any, error) {
			return nil, apierr.Forbidden("nope")
		},
	}})

	req := httptest.NewRequest(http.MethodPost, "/things?q=go&access_token=abc",
		strings.NewReader(`{"title":"x","password":"secret123"}`))
	req.Header.Set("Content-Type", "application/json")
	testutils.WithAuth(t, req, f.codec, f.john)

	rec := serve(h, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	entries := f.logs.EntriesAt(slog.LevelWarn)
	require.Len(t, entries, 1)
	msg := entries[0]["message"].(string)

	assert.Equal(t,
		"[method: POST] [path: /things] [query_params: map[access_token:[[REDACTED]] q:[go]]] "+
			"[data: map[password:[REDACTED] title:x]] [user: john] [exc: forbidden: nope]",
		msg)
	assert.Equal(t, "forbidden", entries[0]["kind"])
	assert.Equal(t, int64(403), entries[0]["status"])
	assert.NotContains(t, entries[0], "stack", "warnings carry no stack")
}

func TestDispatch_PanicRecovery(t *testing.T) {
	f := newFixture(t)
	d := f.dispatcher(shared.RichEnvelope{})
	h := d.Handle(get(func(c *view.Context) (any, error) {
		var m map[string]int
		m["boom"] = 1
		return nil, nil
	}))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error_code":500,"hint":"internal error","data":{}}`, rec.Body.String())

	entries := f.logs.EntriesAt(slog.LevelError)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0]["message"], "[user: AnonymousUser]")
	assert.Contains(t, entries[0]["message"], "assignment to entry in nil map")
	require.Contains(t, entries[0], "stack")
	assert.Contains(t, entries[0]["stack"], "goroutine")
}

func TestDispatch_AbortHandlerPanicPropagates(t *testing.T) {
	f := newFixture(t)
	h := f.dispatcher(nil).Handle(get(func(c *view.Context) (any, error) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestDispatch_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	h := f.dispatcher(nil).Handle(view.View{Handlers: map[string]view.HandlerFunc{
		http.MethodGet:  func(c *view.Context) (any, error) { return "ok", nil },
		http.MethodPost: func(c *view.Context) (any, error) { return "ok", nil },
	}})

	rec := serve(h, httptest.NewRequest(http.MethodDelete, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.JSONEq(t, `{"detail":"method not allowed"}`, rec.Body.String())
	assert.Equal(t, "GET, OPTIONS, POST", rec.Header().Get("Allow"))

	rec = serve(h, httptest.NewRequest(http.MethodOptions, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "GET, OPTIONS, POST", rec.Header().Get("Allow"))

	rec = serve(h, httptest.NewRequest(http.MethodHead, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "HEAD falls back to GET")
}

func TestDispatch_PermissionRunsBeforeMethodCheck(t *testing.T) {
	f := newFixture(t)
	h := f.dispatcher(nil).Handle(view.View{
		Handlers: map[string]view.HandlerFunc{http.MethodGet: func(c *view.Context) (any, error) { return "ok", nil }},
		Policy:   permission.NewPolicy().Default(permission.LoginRequired),
	})

	rec := serve(h, httptest.NewRequest(http.MethodDelete, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":"NO_TOKEN"}`, rec.Body.String())
}

func TestDispatch_DefaultGuards(t *testing.T) {
	f := newFixture(t)
	d := f.dispatcher(nil, view.WithDefaultGuards(permission.LoginRequired))

	guarded := d.Handle(get(func(c *view.Context) (any, error) { return "ok", nil }))
	open := d.Handle(view.View{
		Handlers: map[string]view.HandlerFunc{http.MethodGet: func(c *view.Context) (any, error) { return "ok", nil }},
		Policy:   permission.NewPolicy().On(http.MethodGet),
	})

	assert.Equal(t, http.StatusUnauthorized, serve(guarded, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(open, httptest.NewRequest(http.MethodGet, "/", nil)).Code,
		"an explicitly empty guard list opens the method")
}

func TestDispatch_ErrorHandlerOverride(t *testing.T) {
	f := newFixture(t)
	teapot := func(c *view.Context, err error) *view.Response {
		return &view.Response{Status: http.StatusTeapot, Data: map[string]any{"custom": err.Error()}}
	}
	fallthroughHandler := func(c *view.Context, err error) *view.Response { return nil }
	failing := func(c *view.Context) (any, error) { return nil, apierr.NotFound("gone") }

	t.Run("dispatcher wide", func(t *testing.T) {
		d := f.dispatcher(nil, view.WithErrorHandler(teapot))
		rec := serve(d.Handle(get(failing)), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.JSONEq(t, `{"custom":"not_found: gone"}`, rec.Body.String())
	})

	t.Run("view overrides dispatcher", func(t *testing.T) {
		d := f.dispatcher(nil, view.WithErrorHandler(teapot))
		v := get(failing)
		v.ErrorHandler = func(c *view.Context, err error) *view.Response {
			return view.OK("handled")
		}
		rec := serve(d.Handle(v), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"detail":"handled"}`, rec.Body.String())
	})

	t.Run("nil falls back to default mapping", func(t *testing.T) {
		d := f.dispatcher(nil, view.WithErrorHandler(fallthroughHandler))
		rec := serve(d.Handle(get(failing)), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"detail":"gone"}`, rec.Body.String())
	})
}

func TestDispatch_TaxonomyOverrides(t *testing.T) {
	f := newFixture(t)
	tax, err := apierr.DefaultTaxonomy().WithOverrides(map[string]config.ErrorOverride{
		"unauthorized": {Status: 403, Code: 4001, UserHint: "login first"},
	})
	require.NoError(t, err)

	d := view.NewDispatcher(tax, shared.RichEnvelope{}, view.WithLogger(f.logs.NewLogger()))
	h := d.Handle(get(func(c *view.Context) (any, error) { return nil, apierr.Unauthorized("") }))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error_code":4001,"hint":"login first","data":{}}`, rec.Body.String())
}

func TestDispatch_MetricsCountFailures(t *testing.T) {
	f := newFixture(t)
	m := metrics.New()
	d := f.dispatcher(nil, view.WithMetrics(m))
	h := d.Handle(get(func(c *view.Context) (any, error) { return nil, apierr.Forbidden("") }))

	serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	serve(h, httptest.NewRequest(http.MethodGet, "/", nil))

	expected := `
# HELP apiview_view_failures_total Failures mapped to error responses, by error kind and status.
# TYPE apiview_view_failures_total counter
apiview_view_failures_total{kind="forbidden",status="403"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "apiview_view_failures_total"))
}

func TestDispatch_CSRFExempt(t *testing.T) {
	f := newFixture(t)
	h := f.dispatcher(nil).Handle(get(func(c *view.Context) (any, error) { return nil, nil }))

	exempt, ok := h.(view.CSRFExempter)
	require.True(t, ok)
	assert.True(t, exempt.CSRFExempt())
}

func TestDispatcher_RouterFallbacks(t *testing.T) {
	f := newFixture(t)
	d := f.dispatcher(shared.RichEnvelope{})

	rec := serve(d.NotFoundHandler(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error_code":404,"hint":"not found","data":{}}`, rec.Body.String())

	rec = serve(d.MethodNotAllowedHandler(), httptest.NewRequest(http.MethodPut, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	assert.Len(t, f.logs.Entries(), 2)
}

func TestDispatcher_MapError(t *testing.T) {
	d := view.NewDispatcher(nil, nil)
	resp := d.MapError(apierr.BadRequest(""))
	assert.Equal(t, http.StatusBadRequest, resp.Status)
}

func TestDispatch_HeadUsesGetGuards(t *testing.T) {
	f := newFixture(t)
	h := f.dispatcher(nil).Handle(view.View{
		Handlers: map[string]view.HandlerFunc{
			http.MethodGet: func(c *view.Context) (any, error) { return map[string]any{"username": "john"}, nil },
		},
		Policy: permission.NewPolicy().On(http.MethodGet, permission.LoginRequired),
	})

	rec := serve(h, httptest.NewRequest(http.MethodHead, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":"NO_TOKEN"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodHead, "/", nil)
	testutils.WithAuth(t, req, f.codec, f.john)
	assert.Equal(t, http.StatusOK, serve(h, req).Code)
}

func TestDispatch_LowerCaseHandlerKeys(t *testing.T) {
	f := newFixture(t)
	h := f.dispatcher(nil).Handle(view.View{
		Handlers: map[string]view.HandlerFunc{
			"get":  func(c *view.Context) (any, error) { return "lower", nil },
			"post": func(c *view.Context) (any, error) { return "post", nil },
		},
		Policy: permission.NewPolicy().On("post", permission.LoginRequired),
	})

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"detail":"lower"}`, rec.Body.String())

	rec = serve(h, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h, httptest.NewRequest(http.MethodPut, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, OPTIONS, POST", rec.Header().Get("Allow"))
}

func TestDispatch_UnencodableResult(t *testing.T) {
	f := newFixture(t)
	h := f.dispatcher(nil).Handle(get(func(c *view.Context) (any, error) {
		return view.OK(map[string]any{"ratio": math.Inf(1)}).WithHeader("X-Extra", "1"), nil
	}))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/ratio", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"internal error"}`, rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Extra"))

	entries := f.logs.EntriesAt(slog.LevelError)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0]["message"], "[path: /ratio]")
	assert.Contains(t, entries[0]["message"], "unsupported value")
	assert.Equal(t, "response encoding failed", entries[0]["log_hint"])
}

func TestDispatch_UnencodableErrorHandlerResult(t *testing.T) {
	f := newFixture(t)
	d := f.dispatcher(nil, view.WithErrorHandler(func(c *view.Context, err error) *view.Response {
		return view.OK(map[string]any{"fn": func() {}})
	}))
	h := d.Handle(get(func(c *view.Context) (any, error) { return nil, apierr.NotFound("gone") }))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"internal error"}`, rec.Body.String())
}

func TestDispatch_PanickingErrorHandler(t *testing.T) {
	f := newFixture(t)
	d := f.dispatcher(nil, view.WithErrorHandler(func(c *view.Context, err error) *view.Response {
		panic("error handler failed")
	}))

	t.Run("handler error", func(t *testing.T) {
		h := d.Handle(get(func(c *view.Context) (any, error) { return nil, apierr.NotFound("gone") }))
		var rec *httptest.ResponseRecorder
		require.NotPanics(t, func() { rec = serve(h, httptest.NewRequest(http.MethodGet, "/", nil)) })
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"detail":"gone"}`, rec.Body.String())
	})

	t.Run("handler panic", func(t *testing.T) {
		h := d.Handle(get(func(c *view.Context) (any, error) { panic("view failed") }))
		var rec *httptest.ResponseRecorder
		require.NotPanics(t, func() { rec = serve(h, httptest.NewRequest(http.MethodGet, "/", nil)) })
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	var messages []string
	for _, e := range f.logs.EntriesAt(slog.LevelError) {
		messages = append(messages, e["message"].(string))
	}
	assert.Contains(t, messages, "error handler panicked")
}

func TestDispatch_StackOnlyWhereRecorded(t *testing.T) {
	f := newFixture(t)
	d := f.dispatcher(nil)

	serve(d.Handle(get(func(c *view.Context) (any, error) {
		return nil, errors.New("plain failure")
	})), httptest.NewRequest(http.MethodGet, "/", nil))
	serve(d.Handle(get(func(c *view.Context) (any, error) {
		return nil, apierr.Internal(errors.New("wrapped failure"))
	})), httptest.NewRequest(http.MethodGet, "/", nil))

	entries := f.logs.EntriesAt(slog.LevelError)
	require.Len(t, entries, 2)
	assert.NotContains(t, entries[0], "stack", "a plain error carries no origin stack")
	require.Contains(t, entries[1], "stack")
	assert.Contains(t, entries[1]["stack"], "TestDispatch_StackOnlyWhereRecorded")
}
