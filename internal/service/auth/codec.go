package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/apiview/internal/config"
)

// Standard claim names.
const (
	ClaimSubject   = "sub"
	ClaimExpiresAt = "exp"
	ClaimIssuedAt  = "iat"
	ClaimID        = "jti"
)

// Claims is a decoded JWT payload. Numeric claims come back as float64.
type Claims map[string]any

// Subject returns the sub claim. ok is false when the claim is absent;
// a present but non-string subject is returned with ok true and an empty value.
func (c Claims) Subject() (string, bool) {
	raw, ok := c[ClaimSubject]
	if !ok {
		return "", false
	}
	s, _ := raw.(string)
	return s, true
}

// ExpiresAt returns the exp claim as a time, if present and numeric.
func (c Claims) ExpiresAt() (time.Time, bool) {
	date, err := jwt.MapClaims(c).GetExpirationTime()
	if err != nil || date == nil {
		return time.Time{}, false
	}
	return date.Time, true
}

// Codec signs and verifies HMAC JWTs with the configured secret.
// It holds no per-request state and is safe for concurrent use.
type Codec struct {
	method           *jwt.SigningMethodHMAC
	key              []byte
	verifyExpiration bool
	lifetime         time.Duration
	timeFunc         func() time.Time // Injectable for testing
}

// CodecOption customises a Codec.
type CodecOption func(*Codec)

// WithClock replaces time.Now for issuing and validating tokens.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) { c.timeFunc = now }
}

// NewCodec creates a Codec from the auth configuration.
func NewCodec(cfg config.AuthConfig, opts ...CodecOption) (*Codec, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}

	method, ok := jwt.GetSigningMethod(cfg.Algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, cfg.Algorithm)
	}

	if cfg.ExpirationMinutes <= 0 {
		return nil, fmt.Errorf("expiration minutes must be positive, got %v", cfg.ExpirationMinutes)
	}

	c := &Codec{
		method:           method,
		key:              []byte(cfg.JWTSecret),
		verifyExpiration: cfg.VerifyExpiration,
		lifetime:         time.Duration(cfg.ExpirationMinutes * float64(time.Minute)),
		timeFunc:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Lifetime is the validity period of tokens issued by GenerateToken.
func (c *Codec) Lifetime() time.Duration {
	return c.lifetime
}

// Encode signs claims as given. The output is deterministic for identical
// claims and key.
func (c *Codec) Encode(claims Claims) (string, error) {
	token := jwt.NewWithClaims(c.method, jwt.MapClaims(claims))
	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token with %s: %w", c.method.Alg(), err)
	}
	return signed, nil
}

// GenerateToken issues a token for subject that expires after Lifetime.
func (c *Codec) GenerateToken(subject string) (string, time.Time, error) {
	now := c.timeFunc()
	expiresAt := now.Add(c.lifetime)

	token, err := c.Encode(Claims{
		ClaimSubject:   subject,
		ClaimIssuedAt:  jwt.NewNumericDate(now),
		ClaimExpiresAt: jwt.NewNumericDate(expiresAt),
		ClaimID:        uuid.New().String(),
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Decode verifies tokenString and returns its claims.
//
// Failures wrap ErrExpiredToken when exp has passed (and expiry checking is
// enabled), ErrDecode when the token is malformed or the signature does not
// verify, and ErrInvalidToken otherwise.
func (c *Codec) Decode(tokenString string) (Claims, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(c.timeFunc)}
	if !c.verifyExpiration {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, c.keyFunc, opts...)
	if err != nil {
		return nil, classify(err)
	}
	return Claims(claims), nil
}

func (c *Codec) keyFunc(token *jwt.Token) (any, error) {
	if token.Method == nil || token.Method.Alg() != c.method.Alg() {
		return nil, fmt.Errorf("%w: got %v", errAlgorithmMismatch, token.Header["alg"])
	}
	return c.key, nil
}

// classify maps jwt parser errors onto the package sentinels. Order matters:
// an expired token is also reported as having invalid claims.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpiredToken, err)
	case errors.Is(err, errAlgorithmMismatch):
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrDecode, err)
	default:
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
}
