package view_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/apiview/internal/api/view"
	"github.com/phrazzld/apiview/internal/apierr"
	"github.com/phrazzld/apiview/internal/service/auth"
	"github.com/phrazzld/apiview/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_Data(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		want        any
		wantKind    apierr.Kind
		wantErr     bool
	}{
		{
			name:        "json object",
			method:      http.MethodPost,
			contentType: "application/json",
			body:        `{"title":"x","count":2}`,
			want:        map[string]any{"title": "x", "count": float64(2)},
		},
		{
			name:        "json with charset",
			method:      http.MethodPatch,
			contentType: "application/json; charset=utf-8",
			body:        `[1,2]`,
			want:        []any{float64(1), float64(2)},
		},
		{
			name:        "empty json body",
			method:      http.MethodPut,
			contentType: "application/json",
			body:        "",
			want:        map[string]any{},
		},
		{
			name:        "invalid json",
			method:      http.MethodPost,
			contentType: "application/json",
			body:        `{"title":`,
			wantErr:     true,
			wantKind:    apierr.KindBadRequest,
		},
		{
			name:        "form",
			method:      http.MethodPost,
			contentType: "application/x-www-form-urlencoded",
			body:        "a=1&b=2&a=3",
			want:        url.Values{"a": {"1", "3"}, "b": {"2"}},
		},
		{
			name:        "get never has data",
			method:      http.MethodGet,
			contentType: "application/json",
			body:        `{"title":"x"}`,
			want:        url.Values{},
		},
		{
			name:        "unknown content type",
			method:      http.MethodPost,
			contentType: "text/plain",
			body:        "hello",
			want:        url.Values{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			c := view.NewContext(req, nil)

			got, err := c.Data()
			if tt.wantErr {
				require.Error(t, err)
				kind, ok := apierr.KindOf(err)
				assert.True(t, ok)
				assert.Equal(t, tt.wantKind, kind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := c.Data()
			require.NoError(t, err)
			assert.Equal(t, got, again, "data is cached")
		})
	}
}

func TestContext_InvalidJSONMapsToBadRequestHint(t *testing.T) {
	f := newFixture(t)
	h := f.dispatcher(nil).Handle(view.View{Handlers: map[string]view.HandlerFunc{
		http.MethodPost: func(c *view.Context) (any, error) {
			data, err := c.Data()
			if err != nil {
				return nil, err
			}
			return data, nil
		},
	}})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"password":"hunter22",`))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(h, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"invalid request body"}`, rec.Body.String())

	entries := f.logs.Entries()
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0]["message"], "hunter22")
}

type createBlog struct {
	Title string `json:"title" validate:"required,max=10"`
	Email string `json:"email" validate:"omitempty,email"`
}

type checkedBlog struct {
	Title string `json:"title"`
}

func (b checkedBlog) Validate() error {
	if b.Title == "forbidden" {
		return apierr.Forbidden("title not allowed")
	}
	if b.Title == "" {
		return errors.New("title is empty")
	}
	return nil
}

func TestContext_Bind(t *testing.T) {
	bind := func(body string, v any) error {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return view.NewContext(req, nil).Bind(v)
	}

	var ok createBlog
	require.NoError(t, bind(`{"title":"hello"}`, &ok))
	assert.Equal(t, "hello", ok.Title)

	err := bind(`{"title":`, &createBlog{})
	kind, _ := apierr.KindOf(err)
	assert.Equal(t, apierr.KindBadRequest, kind)

	err = bind(`{"title":"much too long title","email":"nope"}`, &createBlog{})
	resolved := apierr.DefaultTaxonomy().Resolve(err)
	assert.Equal(t, apierr.KindValidation, resolved.Kind)
	assert.Equal(t, map[string]string{"title": "too long", "email": "invalid email format"}, resolved.Fields)

	err = bind(`{"title":"forbidden"}`, &checkedBlog{})
	kind, _ = apierr.KindOf(err)
	assert.Equal(t, apierr.KindForbidden, kind, "api errors from Validate pass through")

	err = bind(`{}`, &checkedBlog{})
	resolved = apierr.DefaultTaxonomy().Resolve(err)
	assert.Equal(t, apierr.KindValidation, resolved.Kind)
	assert.Equal(t, "title is empty", resolved.UserHint)
}

func TestContext_BodyIsReadOnce(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`))
	req.Header.Set("Content-Type", "application/json")
	c := view.NewContext(req, nil)

	assert.False(t, c.BodyConsumed())
	_, err := c.Data()
	require.NoError(t, err)
	assert.True(t, c.BodyConsumed())

	var v map[string]int
	require.NoError(t, c.Bind(&v), "Bind reuses the cached body")
	assert.Equal(t, 1, v["a"])
}

func TestContext_File(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "report"))
	part, err := mw.CreateFormFile("upload", "report.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c := view.NewContext(req, nil)

	data, err := c.Data()
	require.NoError(t, err)
	assert.Equal(t, url.Values{"title": {"report"}}, data)

	file, header, err := c.File("upload")
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, "report.pdf", header.Filename)
	content, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(content))

	_, _, err = c.File("missing")
	resolved := apierr.DefaultTaxonomy().Resolve(err)
	assert.Equal(t, apierr.KindValidation, resolved.Kind)
	assert.Equal(t, map[string]string{"missing": "required field"}, resolved.Fields)
}

func TestContext_Accessors(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/users/42?page=2", nil)
	req.Header.Set("X-Api-Key", "k")
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "42")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	c := view.NewContext(req, nil)
	assert.Equal(t, http.MethodGet, c.Method())
	assert.Equal(t, "/users/42", c.Path())
	assert.Equal(t, "42", c.PathParam("id"))
	assert.Equal(t, "2", c.Query().Get("page"))
	assert.Equal(t, "k", c.Header("X-Api-Key"))
	assert.Same(t, req, c.Request())
}

func TestContext_Auth(t *testing.T) {
	f := newFixture(t)

	t.Run("without resolver is anonymous", func(t *testing.T) {
		c := view.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), nil)
		res, err := c.Auth()
		require.NoError(t, err)
		assert.True(t, res.Principal.IsAnonymous())
		assert.Equal(t, auth.OutcomeNoToken, res.Outcome)
	})

	t.Run("resolver", func(t *testing.T) {
		req := testutils.WithAuth(t, httptest.NewRequest(http.MethodGet, "/", nil), f.codec, f.john)
		p, err := view.NewContext(req, f.resolver).Principal()
		require.NoError(t, err)
		assert.Equal(t, "john", p.String())
	})

	t.Run("middleware resolution wins", func(t *testing.T) {
		installed := auth.Resolved(auth.Resolution{Principal: auth.NewPrincipal(f.admin), Outcome: auth.OutcomeOK})
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(auth.WithLazy(req.Context(), installed))

		p, err := view.NewContext(req, f.resolver).Principal()
		require.NoError(t, err)
		assert.Equal(t, "admin", p.String())
	})
}
