package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/apiview/internal/api"
	"github.com/phrazzld/apiview/internal/api/shared"
	"github.com/phrazzld/apiview/internal/api/view"
	"github.com/phrazzld/apiview/internal/apierr"
	"github.com/phrazzld/apiview/internal/domain"
	"github.com/phrazzld/apiview/internal/service"
	"github.com/phrazzld/apiview/internal/service/auth"
	"github.com/phrazzld/apiview/internal/storage"
	"github.com/phrazzld/apiview/internal/store"
	"github.com/phrazzld/apiview/internal/testutils"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recordingInvalidator struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (r *recordingInvalidator) Invalidate(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
	return nil
}

type fixture struct {
	users   *store.MemoryUserStore
	service *service.UserServiceImpl
	codec   *auth.Codec
	logs    *testutils.TestSlogHandler
	cache   *recordingInvalidator
	storage *storage.Local
	router  http.Handler
	john    *domain.User
	admin   *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users: store.NewMemoryUserStore(),
		logs:  testutils.NewTestSlogHandler(),
		cache: &recordingInvalidator{},
		codec: testutils.NewCodec(t),
	}
	log := f.logs.NewLogger()
	f.service = service.NewUserService(f.users, auth.NewBcryptHasher(bcrypt.MinCost), nil, log)
	f.storage = storage.NewLocal(t.TempDir(), "https://cdn.example.com/media/", storage.WithDatePrefix(""))

	var err error
	f.john, err = f.service.CreateUser(context.Background(), service.CreateUserParams{
		Username: "john", Password: "johnpassword",
	})
	require.NoError(t, err)
	f.admin, err = f.service.CreateUser(context.Background(), service.CreateUserParams{
		Username: "admin", Password: "adminpassword", Superuser: true,
	})
	require.NoError(t, err)

	resolver := auth.NewResolver(f.codec, f.users, "")
	d := view.NewDispatcher(apierr.DefaultTaxonomy(), shared.SimpleEnvelope{},
		view.WithResolver(resolver), view.WithLogger(log))

	r := chi.NewRouter()
	r.Route("/api", api.Routes(d, api.Handlers{
		Auth:  api.NewAuthHandler(f.service, f.codec, log),
		Users: api.NewUserHandler(f.users, f.cache, log),
		Files: api.NewFileHandler(f.storage, log),
	}))
	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, req *http.Request, as *domain.User) *httptest.ResponseRecorder {
	t.Helper()
	if as != nil {
		testutils.WithAuth(t, req, f.codec, as)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}
