package view_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/apiview/internal/api/shared"
	"github.com/phrazzld/apiview/internal/api/view"
	"github.com/phrazzld/apiview/internal/apierr"
	"github.com/phrazzld/apiview/internal/domain"
	"github.com/phrazzld/apiview/internal/service/auth"
	"github.com/phrazzld/apiview/internal/store"
	"github.com/phrazzld/apiview/internal/testutils"
)

var fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	users    *store.MemoryUserStore
	clock    *testutils.Clock
	codec    *auth.Codec
	resolver *auth.Resolver
	logs     *testutils.TestSlogHandler
	john     *domain.User
	admin    *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users: store.NewMemoryUserStore(),
		clock: testutils.NewClock(fixedTime),
		logs:  testutils.NewTestSlogHandler(),
	}
	f.codec = testutils.NewCodec(t, auth.WithClock(f.clock.Now))
	f.resolver = auth.NewResolver(f.codec, f.users, "")
	f.john = testutils.MustCreateUser(t, f.users, "john", false)
	f.admin = testutils.MustCreateUser(t, f.users, "admin", true)
	return f
}

func (f *fixture) dispatcher(envelope shared.Envelope, opts ...view.Option) *view.Dispatcher {
	base := []view.Option{
		view.WithResolver(f.resolver),
		view.WithLogger(f.logs.NewLogger()),
	}
	return view.NewDispatcher(apierr.DefaultTaxonomy(), envelope, append(base, opts...)...)
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(handlerFn view.HandlerFunc) view.View {
	return view.View{Handlers: map[string]view.HandlerFunc{http.MethodGet: handlerFn}}
}

func newRouter(userView http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/users/{id}", userView)
	r.Method(http.MethodDelete, "/users/{id}", userView)
	return r
}
