package apierr

import "strings"

// Kind enumerates the failure classes known to the API layer.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindParams
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindMethodNotAllowed
)

var kindNames = map[Kind]string{
	KindInternal:         "internal",
	KindBadRequest:       "bad_request",
	KindParams:           "params",
	KindValidation:       "validation",
	KindUnauthorized:     "unauthorized",
	KindForbidden:        "forbidden",
	KindNotFound:         "not_found",
	KindMethodNotAllowed: "method_not_allowed",
}

// Kinds returns every known kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindInternal,
		KindBadRequest,
		KindParams,
		KindValidation,
		KindUnauthorized,
		KindForbidden,
		KindNotFound,
		KindMethodNotAllowed,
	}
}

// String returns the configuration name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind resolves a configuration name. Matching ignores case and accepts
// dashes in place of underscores.
func ParseKind(name string) (Kind, bool) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for k, n := range kindNames {
		if n == normalized {
			return k, true
		}
	}
	return KindInternal, false
}
