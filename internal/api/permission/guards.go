package permission

import (
	"strings"

	"github.com/phrazzld/apiview/internal/apierr"
	"github.com/phrazzld/apiview/internal/service/auth"
)

// LoginRequired rejects anonymous requests with 401. The hint names the
// authentication outcome (NO_TOKEN, EXPIRED, ...) so clients can tell the
// cases apart. A valid token for a deleted account gets the generic hint.
var LoginRequired Guard = GuardFunc(func(req Request) error {
	res, err := req.Auth()
	if err != nil {
		return err
	}
	if !res.Principal.IsAnonymous() {
		return nil
	}
	if res.Outcome == auth.OutcomeOK {
		return apierr.Unauthorized("")
	}
	return apierr.Unauthorized(res.Outcome.String())
})

// SuperuserRequired rejects everyone but superusers with 403.
var SuperuserRequired Guard = GuardFunc(func(req Request) error {
	res, err := req.Auth()
	if err != nil {
		return err
	}
	if !res.Principal.IsSuperuser() {
		return apierr.Forbidden("")
	}
	return nil
})

// OwnerRequired lets a request through when the principal's ID equals the
// named path parameter, or the principal is a superuser.
type OwnerRequired struct {
	Param string
}

// Check implements Guard.
func (g OwnerRequired) Check(req Request) error {
	res, err := req.Auth()
	if err != nil {
		return err
	}
	p := res.Principal
	if p.IsSuperuser() {
		return nil
	}
	if !p.IsAnonymous() && strings.EqualFold(p.ID().String(), req.PathParam(g.Param)) {
		return nil
	}
	return apierr.Forbidden("not owner")
}

// HeaderRequired demands a header whose value starts with Prefix
// (case-insensitive; empty Prefix only requires presence). It fails with 401
// and Hint.
type HeaderRequired struct {
	Name   string
	Prefix string
	Hint   string
}

// Check implements Guard.
func (g HeaderRequired) Check(req Request) error {
	value := req.Header(g.Name)
	if value == "" || !strings.HasPrefix(strings.ToLower(value), strings.ToLower(g.Prefix)) {
		return apierr.Unauthorized(g.Hint)
	}
	return nil
}
