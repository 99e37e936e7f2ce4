package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/phrazzld/apiview/internal/platform/logger"
	"github.com/phrazzld/apiview/internal/store"
)

// Resolution is the result of authenticating one request.
type Resolution struct {
	Principal Principal
	Outcome   Outcome
}

// Resolver turns an inbound request into a Resolution.
type Resolver struct {
	codec      *Codec
	users      store.UserGetter
	cookieName string
}

// NewResolver creates a Resolver. When cookieName is non-empty the token is
// read from that cookie and the Authorization header is ignored.
func NewResolver(codec *Codec, users store.UserGetter, cookieName string) *Resolver {
	return &Resolver{
		codec:      codec,
		users:      users,
		cookieName: cookieName,
	}
}

// ExtractToken returns the raw token carried by r. Anything that is not a
// well-formed credential is reported as absent.
func (r *Resolver) ExtractToken(req *http.Request) (string, bool) {
	if r.cookieName != "" {
		cookie, err := req.Cookie(r.cookieName)
		if err != nil || cookie.Value == "" {
			return "", false
		}
		return cookie.Value, true
	}

	header := req.Header.Get("Authorization")
	if header == "" || !utf8.ValidString(header) {
		return "", false
	}

	parts := strings.Fields(header)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", false
	}
	return parts[1], true
}

// Resolve authenticates req. Token problems never produce an error; they are
// reported through the Outcome with an anonymous principal. An error is
// returned only when the user lookup itself fails.
func (r *Resolver) Resolve(req *http.Request) (Resolution, error) {
	ctx := req.Context()
	log := logger.FromContext(ctx)

	token, ok := r.ExtractToken(req)
	if !ok {
		return Resolution{Principal: Anonymous(), Outcome: OutcomeNoToken}, nil
	}

	claims, err := r.codec.Decode(token)
	if err != nil {
		outcome := outcomeForDecodeError(err)
		log.Debug("token rejected",
			slog.String("outcome", outcome.String()),
			slog.String("error", err.Error()))
		return Resolution{Principal: Anonymous(), Outcome: outcome}, nil
	}

	subject, ok := claims.Subject()
	if !ok {
		return Resolution{Principal: Anonymous(), Outcome: OutcomeMissingClaim}, nil
	}

	principal, err := r.lookup(ctx, subject)
	if err != nil {
		return Resolution{Principal: Anonymous(), Outcome: OutcomeOK}, err
	}
	return Resolution{Principal: principal, Outcome: OutcomeOK}, nil
}

// lookup finds the account for subject. Unknown or unparseable subjects
// resolve to anonymous; permission guards decide what that means.
func (r *Resolver) lookup(ctx context.Context, subject string) (Principal, error) {
	id, err := uuid.Parse(subject)
	if err != nil {
		logger.FromContext(ctx).Debug("token subject is not a user id", slog.String("subject", subject))
		return Anonymous(), nil
	}

	user, err := r.users.GetByID(ctx, id)
	switch {
	case err == nil:
		return NewPrincipal(user), nil
	case errors.Is(err, store.ErrUserNotFound):
		return Anonymous(), nil
	default:
		return Anonymous(), fmt.Errorf("failed to look up principal %s: %w", id, err)
	}
}

// Lazy returns an unevaluated resolution cell for req.
func (r *Resolver) Lazy(req *http.Request) *Lazy {
	return NewLazy(func() (Resolution, error) {
		return r.Resolve(req)
	})
}
