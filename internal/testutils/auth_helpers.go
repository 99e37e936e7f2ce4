package testutils

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/apiview/internal/config"
	"github.com/phrazzld/apiview/internal/domain"
	"github.com/phrazzld/apiview/internal/service/auth"
	"github.com/phrazzld/apiview/internal/store"
	"github.com/stretchr/testify/require"
)

// TestJWTSecret is at least 32 characters, as NewCodec requires.
const TestJWTSecret = "test-jwt-secret-that-is-32-chars-long"

// AuthConfig returns a configuration suitable for tests: HS256, expiry
// checking on, one hour lifetime, header transport.
func AuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:         TestJWTSecret,
		Algorithm:         "HS256",
		VerifyExpiration:  true,
		ExpirationMinutes: 60,
		BcryptCost:        4,
	}
}

// NewCodec creates a codec from AuthConfig.
func NewCodec(t *testing.T, opts ...auth.CodecOption) *auth.Codec {
	t.Helper()
	return NewCodecWithConfig(t, AuthConfig(), opts...)
}

// NewCodecWithConfig creates a codec from cfg and fails the test on error.
func NewCodecWithConfig(t *testing.T, cfg config.AuthConfig, opts ...auth.CodecOption) *auth.Codec {
	t.Helper()
	codec, err := auth.NewCodec(cfg, opts...)
	require.NoError(t, err, "failed to create test codec")
	return codec
}

// Clock is a settable time source for codecs under test.
type Clock struct {
	now time.Time
}

// NewClock returns a clock fixed at now.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time { return c.now }

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// MustCreateUser stores a user with a placeholder hash and returns it.
func MustCreateUser(t *testing.T, users store.UserStore, username string, superuser bool) *domain.User {
	t.Helper()
	now := time.Now().UTC()
	user := &domain.User{
		ID:             uuid.New(),
		Username:       username,
		HashedPassword: "$2a$04$placeholderplaceholderplaceholde",
		IsSuperuser:    superuser,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, users.Create(context.Background(), user), "failed to create test user")
	return user
}

// MustToken issues a token for user.
func MustToken(t *testing.T, codec *auth.Codec, user *domain.User) string {
	t.Helper()
	token, _, err := codec.GenerateToken(user.ID.String())
	require.NoError(t, err, "failed to generate token")
	return token
}

// AuthHeader returns "Bearer <token>" for user.
func AuthHeader(t *testing.T, codec *auth.Codec, user *domain.User) string {
	t.Helper()
	return "Bearer " + MustToken(t, codec, user)
}

// WithAuth sets the Authorization header on req and returns it.
func WithAuth(t *testing.T, req *http.Request, codec *auth.Codec, user *domain.User) *http.Request {
	t.Helper()
	req.Header.Set("Authorization", AuthHeader(t, codec, user))
	return req
}
