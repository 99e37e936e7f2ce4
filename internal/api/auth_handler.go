package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/apiview/internal/api/view"
	"github.com/phrazzld/apiview/internal/apierr"
	"github.com/phrazzld/apiview/internal/domain"
	"github.com/phrazzld/apiview/internal/service"
	"github.com/phrazzld/apiview/internal/service/auth"
)

// AuthHandler issues tokens for username/password pairs.
type AuthHandler struct {
	users  service.UserService
	codec  *auth.Codec
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(users service.UserService, codec *auth.Codec, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		users:  users,
		codec:  codec,
		logger: logger.With("component", "auth_handler"),
	}
}

// LoginView serves POST /api/auth/login.
func (h *AuthHandler) LoginView() view.View {
	return view.View{Handlers: map[string]view.HandlerFunc{http.MethodPost: h.Login}}
}

// RegisterView serves POST /api/auth/register.
func (h *AuthHandler) RegisterView() view.View {
	return view.View{Handlers: map[string]view.HandlerFunc{http.MethodPost: h.Register}}
}

// Login checks the credentials and returns a signed token.
func (h *AuthHandler) Login(c *view.Context) (any, error) {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return nil, err
	}

	user, err := h.users.Authenticate(c.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return nil, apierr.Unauthorized("invalid username or password",
				apierr.WithLogHint("login failed for "+req.Username))
		}
		return nil, apierr.Internal(err)
	}

	return h.issue(user, http.StatusOK)
}

// Register creates an ordinary account and logs it in.
func (h *AuthHandler) Register(c *view.Context) (any, error) {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return nil, err
	}

	user, err := h.users.CreateUser(c.Context(), service.CreateUserParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	switch {
	case errors.Is(err, service.ErrUserExists):
		return nil, apierr.New(apierr.KindValidation, "",
			apierr.WithFields(map[string]string{"username": "already taken"}),
			apierr.WithLogHint("username taken"))
	case errors.Is(err, domain.ErrValidation):
		return nil, apierr.New(apierr.KindValidation, err.Error())
	case err != nil:
		return nil, apierr.Internal(err)
	}

	return h.issue(user, http.StatusCreated)
}

func (h *AuthHandler) issue(user *domain.User, status int) (*view.Response, error) {
	token, expiresAt, err := h.codec.GenerateToken(user.ID.String())
	if err != nil {
		h.logger.Error("failed to generate token", "error", err, "user_id", user.ID)
		return nil, apierr.Internal(err)
	}

	resp := view.OK(AuthResponse{
		UserID:      user.ID,
		AccessToken: token,
		ExpiresAt:   expiresAt.UTC().Format(time.RFC3339),
	})
	resp.Status = status
	return resp, nil
}
