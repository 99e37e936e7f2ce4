// Package permission evaluates per-method guard lists before a view handler
// runs.
//
// A Policy maps HTTP methods to ordered guards. Lookup tries the upper-case
// method, then the lower-case method, then the policy default, then the
// process-wide default; the first list found is used as is. Guards run in
// order and the first failure stops evaluation.
package permission

import (
	"strings"

	"github.com/phrazzld/apiview/internal/service/auth"
)

// Request is the view of an in-flight request that guards may inspect.
type Request interface {
	Method() string
	Header(name string) string
	PathParam(name string) string
	// Auth resolves the principal on first call and caches it.
	Auth() (auth.Resolution, error)
}

// Guard is a single permission check. Check returns nil to let the request
// through, or an error (normally an *apierr.Error) to reject it.
type Guard interface {
	Check(req Request) error
}

// GuardFunc adapts a plain function to Guard.
type GuardFunc func(req Request) error

// Check calls f(req).
func (f GuardFunc) Check(req Request) error {
	return f(req)
}

// Policy is a static table of guards per method. Build it once at route
// registration; it is read-only while serving.
type Policy struct {
	methods    map[string][]Guard
	defaults   []Guard
	hasDefault bool
}

// NewPolicy returns an empty policy.
func NewPolicy() *Policy {
	return &Policy{methods: make(map[string][]Guard)}
}

// On declares the guards for method. The method is stored as written, so
// "GET" and "get" are distinct entries and "GET" is consulted first.
// Declaring no guards explicitly opens the method.
func (p *Policy) On(method string, guards ...Guard) *Policy {
	p.methods[method] = append([]Guard{}, guards...)
	return p
}

// Default declares the guards used when the method has no entry.
func (p *Policy) Default(guards ...Guard) *Policy {
	p.defaults = append([]Guard{}, guards...)
	p.hasDefault = true
	return p
}

// Lookup returns the guards that apply to method, falling back to
// processDefault when the policy declares nothing relevant. A nil policy
// always yields processDefault.
func (p *Policy) Lookup(method string, processDefault []Guard) []Guard {
	if p == nil {
		return processDefault
	}
	if guards, ok := p.methods[strings.ToUpper(method)]; ok {
		return guards
	}
	if guards, ok := p.methods[strings.ToLower(method)]; ok {
		return guards
	}
	if p.hasDefault {
		return p.defaults
	}
	return processDefault
}

// Evaluate runs the guards that apply to req.
func (p *Policy) Evaluate(req Request, processDefault []Guard) error {
	return Run(req, p.Lookup(req.Method(), processDefault))
}

// Run checks guards in order and returns the first failure.
func Run(req Request, guards []Guard) error {
	for _, g := range guards {
		if err := g.Check(req); err != nil {
			return err
		}
	}
	return nil
}
