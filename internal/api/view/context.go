package view

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/apiview/internal/api/shared"
	"github.com/phrazzld/apiview/internal/apierr"
	"github.com/phrazzld/apiview/internal/service/auth"
)

// maxMultipartMemory is the part of a multipart body kept in memory; the rest
// spills to temporary files.
const maxMultipartMemory = 32 << 20

// Context wraps one in-flight request. It implements permission.Request.
// A Context is owned by a single request and must not be shared.
type Context struct {
	req      *http.Request
	resolver *auth.Resolver
	lazy     *auth.Lazy
	query    url.Values

	body         []byte
	bodyErr      error
	bodyConsumed bool

	data       any
	dataErr    error
	dataParsed bool
}

func newContext(r *http.Request, resolver *auth.Resolver) *Context {
	return &Context{req: r, resolver: resolver}
}

// NewContext wraps r. It is exported for handlers that are exercised
// without a Dispatcher.
func NewContext(r *http.Request, resolver *auth.Resolver) *Context {
	return newContext(r, resolver)
}

// Request returns the underlying request.
func (c *Context) Request() *http.Request { return c.req }

// Context returns the request context.
func (c *Context) Context() context.Context { return c.req.Context() }

func (c *Context) Method() string { return c.req.Method }

func (c *Context) Path() string { return c.req.URL.Path }

func (c *Context) Header(name string) string { return c.req.Header.Get(name) }

// PathParam returns a chi URL parameter.
func (c *Context) PathParam(name string) string { return chi.URLParam(c.req, name) }

// Query returns the parsed query string. The result is cached.
func (c *Context) Query() url.Values {
	if c.query == nil {
		c.query = c.req.URL.Query()
	}
	return c.query
}

// Auth resolves the request's principal on first use. A resolution installed
// by the authentication middleware is reused; otherwise the dispatcher's
// resolver is consulted. Without either the request is anonymous.
func (c *Context) Auth() (auth.Resolution, error) {
	if c.lazy == nil {
		switch l, ok := auth.LazyFromContext(c.req.Context()); {
		case ok:
			c.lazy = l
		case c.resolver != nil:
			c.lazy = c.resolver.Lazy(c.req)
		default:
			c.lazy = auth.Resolved(auth.Resolution{Principal: auth.Anonymous(), Outcome: auth.OutcomeNoToken})
		}
	}
	return c.lazy.Get()
}

// Principal is Auth without the outcome.
func (c *Context) Principal() (auth.Principal, error) {
	res, err := c.Auth()
	return res.Principal, err
}

// Body reads the raw request body once and caches it.
func (c *Context) Body() ([]byte, error) {
	if c.bodyConsumed {
		return c.body, c.bodyErr
	}
	c.bodyConsumed = true
	if c.req.Body == nil {
		return nil, nil
	}
	c.body, c.bodyErr = io.ReadAll(c.req.Body)
	return c.body, c.bodyErr
}

// BodyConsumed reports whether the body stream has been read.
func (c *Context) BodyConsumed() bool { return c.bodyConsumed }

// Data returns the parsed request body. Only POST, PUT and PATCH carry data:
// JSON bodies decode into generic values, form and multipart bodies into
// url.Values. Every other case yields empty url.Values. An unreadable body
// fails with a bad-request error.
func (c *Context) Data() (any, error) {
	if !c.dataParsed {
		c.dataParsed = true
		c.data, c.dataErr = c.parseData()
	}
	return c.data, c.dataErr
}

func (c *Context) parseData() (any, error) {
	if !hasBody(c.req.Method) {
		return url.Values{}, nil
	}

	mediaType, _, _ := mime.ParseMediaType(c.req.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		c.bodyConsumed = true
		if err := c.req.ParseMultipartForm(maxMultipartMemory); err != nil {
			return nil, apierr.BadRequest("", apierr.WithLogHint("invalid multipart body"), apierr.WithCause(err))
		}
		return url.Values(c.req.MultipartForm.Value), nil
	case "application/x-www-form-urlencoded":
		c.bodyConsumed = true
		if err := c.req.ParseForm(); err != nil {
			return nil, apierr.BadRequest("", apierr.WithLogHint("invalid form body"), apierr.WithCause(err))
		}
		return c.req.PostForm, nil
	case "application/json":
		body, err := c.Body()
		if err != nil {
			return nil, apierr.BadRequest("", apierr.WithLogHint("unreadable body"), apierr.WithCause(err))
		}
		if len(bytes.TrimSpace(body)) == 0 {
			return map[string]any{}, nil
		}
		var v any
		if err := shared.DecodeJSON(bytes.NewReader(body), &v); err != nil {
			return nil, apierr.BadRequest("", apierr.WithLogHint("invalid json body"), apierr.WithCause(err))
		}
		return v, nil
	default:
		return url.Values{}, nil
	}
}

// Bind decodes a JSON body into v and validates it. Decoding problems are
// bad-request errors; validator failures map to the validation kind.
func (c *Context) Bind(v any) error {
	body, err := c.Body()
	if err != nil {
		return apierr.BadRequest("", apierr.WithLogHint("unreadable body"), apierr.WithCause(err))
	}
	if err := shared.DecodeJSON(bytes.NewReader(body), v); err != nil {
		return apierr.BadRequest("", apierr.WithLogHint("invalid json body"), apierr.WithCause(err))
	}

	err = shared.ValidateRequest(v)
	if err == nil {
		return nil
	}
	var apiErr *apierr.Error
	var verrs validator.ValidationErrors
	if errors.As(err, &apiErr) || errors.As(err, &verrs) {
		return err
	}
	return apierr.New(apierr.KindValidation, err.Error(), apierr.WithCause(err))
}

// File returns an uploaded multipart file. The caller closes it.
func (c *Context) File(name string) (multipart.File, *multipart.FileHeader, error) {
	if _, err := c.Data(); err != nil {
		return nil, nil, err
	}
	if c.req.MultipartForm == nil || len(c.req.MultipartForm.File[name]) == 0 {
		return nil, nil, apierr.New(apierr.KindValidation, "",
			apierr.WithFields(map[string]string{name: "required field"}),
			apierr.WithLogHint("missing file "+name))
	}
	header := c.req.MultipartForm.File[name][0]
	f, err := header.Open()
	if err != nil {
		return nil, nil, apierr.BadRequest("", apierr.WithLogHint("unreadable upload"), apierr.WithCause(err))
	}
	return f, header, nil
}

func hasBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}
