package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/apiview/internal/domain"
	"github.com/phrazzld/apiview/internal/platform/logger"
	"github.com/phrazzld/apiview/internal/store"
	"github.com/redis/go-redis/v9"
)

const userKeyPrefix = "apiview:user:"

// cachedUser is the subset of an account needed to build a principal.
// Credentials are never cached.
type cachedUser struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email,omitempty"`
	IsSuperuser bool      `json:"is_superuser"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserCache is a read-through cache for store.UserGetter. Redis failures
// degrade to direct lookups; they are logged, never returned.
type UserCache struct {
	client *redis.Client
	next   store.UserGetter
	ttl    time.Duration
}

var _ store.UserGetter = (*UserCache)(nil)

// NewUserCache wraps next. A non-positive ttl defaults to one minute.
func NewUserCache(client *redis.Client, next store.UserGetter, ttl time.Duration) *UserCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &UserCache{client: client, next: next, ttl: ttl}
}

func userKey(id uuid.UUID) string {
	return userKeyPrefix + id.String()
}

// GetByID returns the cached account or loads and caches it. Missing
// accounts are not cached.
func (c *UserCache) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	log := logger.FromContext(ctx)

	raw, err := c.client.Get(ctx, userKey(id)).Bytes()
	switch {
	case err == nil:
		var cu cachedUser
		if jsonErr := json.Unmarshal(raw, &cu); jsonErr == nil {
			return cu.toDomain(), nil
		}
		log.Warn("discarding malformed cached user", slog.String("user_id", id.String()))
	case errors.Is(err, redis.Nil):
	default:
		log.Warn("user cache read failed", slog.String("user_id", id.String()), slog.String("error", err.Error()))
	}

	user, err := c.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(fromDomain(user))
	if err == nil {
		err = c.client.Set(ctx, userKey(id), payload, c.ttl).Err()
	}
	if err != nil {
		log.Warn("user cache write failed", slog.String("user_id", id.String()), slog.String("error", err.Error()))
	}
	return user, nil
}

// Invalidate drops the cached entry for id.
func (c *UserCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	return c.client.Del(ctx, userKey(id)).Err()
}

func fromDomain(u *domain.User) cachedUser {
	return cachedUser{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		IsSuperuser: u.IsSuperuser,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (cu cachedUser) toDomain() *domain.User {
	return &domain.User{
		ID:          cu.ID,
		Username:    cu.Username,
		Email:       cu.Email,
		IsSuperuser: cu.IsSuperuser,
		CreatedAt:   cu.CreatedAt,
		UpdatedAt:   cu.UpdatedAt,
	}
}
