package auth

import (
	"github.com/google/uuid"
	"github.com/phrazzld/apiview/internal/domain"
)

// AnonymousName is how an unauthenticated principal renders in logs.
const AnonymousName = "AnonymousUser"

// Principal is the actor behind a request: an account or anonymous.
// The zero value is anonymous.
type Principal struct {
	user *domain.User
}

// Anonymous returns the anonymous principal.
func Anonymous() Principal {
	return Principal{}
}

// NewPrincipal wraps an account. A nil user yields the anonymous principal.
func NewPrincipal(user *domain.User) Principal {
	return Principal{user: user}
}

func (p Principal) IsAnonymous() bool { return p.user == nil }

// User returns the backing account, or nil for anonymous.
func (p Principal) User() *domain.User { return p.user }

// ID returns the account ID, or uuid.Nil for anonymous.
func (p Principal) ID() uuid.UUID {
	if p.user == nil {
		return uuid.Nil
	}
	return p.user.ID
}

func (p Principal) IsSuperuser() bool {
	return p.user != nil && p.user.IsSuperuser
}

func (p Principal) String() string {
	if p.user == nil {
		return AnonymousName
	}
	return p.user.Username
}
