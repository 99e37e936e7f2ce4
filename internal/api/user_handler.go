package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/apiview/internal/api/permission"
	"github.com/phrazzld/apiview/internal/api/view"
	"github.com/phrazzld/apiview/internal/apierr"
	"github.com/phrazzld/apiview/internal/store"
)

// UserIDParam is the path parameter naming a user.
const UserIDParam = "id"

// Invalidator drops cached copies of a user.
type Invalidator interface {
	Invalidate(ctx context.Context, id uuid.UUID) error
}

// UserHandler serves the account resources.
type UserHandler struct {
	users  store.UserStore
	cache  Invalidator
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler. cache may be nil.
func NewUserHandler(users store.UserStore, cache Invalidator, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{
		users:  users,
		cache:  cache,
		logger: logger.With("component", "user_handler"),
	}
}

// MeView serves GET /api/me for any logged-in user.
func (h *UserHandler) MeView() view.View {
	return view.View{
		Handlers: map[string]view.HandlerFunc{http.MethodGet: h.Me},
		Policy:   permission.NewPolicy().On("get", permission.LoginRequired),
	}
}

// DetailView serves /api/users/{id}: owners read, superusers delete.
func (h *UserHandler) DetailView() view.View {
	return view.View{
		Handlers: map[string]view.HandlerFunc{
			http.MethodGet:    h.Get,
			http.MethodDelete: h.Delete,
		},
		Policy: permission.NewPolicy().
			On(http.MethodGet, permission.OwnerRequired{Param: UserIDParam}).
			On(http.MethodDelete, permission.SuperuserRequired),
	}
}

// Me returns the caller's username.
func (h *UserHandler) Me(c *view.Context) (any, error) {
	p, err := c.Principal()
	if err != nil {
		return nil, err
	}
	return map[string]string{"username": p.String()}, nil
}

// Get returns the account named in the path.
func (h *UserHandler) Get(c *view.Context) (any, error) {
	id, err := userID(c)
	if err != nil {
		return nil, err
	}

	user, err := h.users.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, apierr.NotFound("user not found")
		}
		return nil, apierr.Internal(err)
	}
	return NewUserResponse(user), nil
}

// Delete removes the account named in the path.
func (h *UserHandler) Delete(c *view.Context) (any, error) {
	id, err := userID(c)
	if err != nil {
		return nil, err
	}

	if err := h.users.Delete(c.Context(), id); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, apierr.NotFound("user not found")
		}
		return nil, apierr.Internal(err)
	}

	if h.cache != nil {
		if err := h.cache.Invalidate(c.Context(), id); err != nil {
			h.logger.Warn("failed to invalidate cached user", "user_id", id, "error", err)
		}
	}

	h.logger.Info("user deleted", "user_id", id)
	return "deleted", nil
}

func userID(c *view.Context) (uuid.UUID, error) {
	raw := c.PathParam(UserIDParam)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apierr.Params("",
			apierr.WithFields(map[string]string{UserIDParam: "invalid uuid"}),
			apierr.WithLogHint("invalid user id "+raw))
	}
	return id, nil
}
