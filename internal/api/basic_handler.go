package api

import (
	"net/http"

	"github.com/phrazzld/apiview/internal/api/permission"
	"github.com/phrazzld/apiview/internal/api/view"
)

// BasicAuthRequired demands an "Authorization: Basic ..." header. It only
// checks the scheme; credentials are not verified.
var BasicAuthRequired = permission.HeaderRequired{
	Name:   "Authorization",
	Prefix: "Basic ",
	Hint:   "basic_auth required",
}

// BasicView serves GET /api/basic behind BasicAuthRequired.
func BasicView() view.View {
	return view.View{
		Handlers: map[string]view.HandlerFunc{
			http.MethodGet: func(*view.Context) (any, error) {
				return map[string]string{"msg": "hello world"}, nil
			},
		},
		Policy: permission.NewPolicy().On(http.MethodGet, BasicAuthRequired),
	}
}
