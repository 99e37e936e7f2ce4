package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/apiview/internal/domain"
	"github.com/phrazzld/apiview/internal/platform/postgres"
	"github.com/phrazzld/apiview/internal/store"
	"github.com/phrazzld/apiview/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func integrationUser(username string) *domain.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.User{
		ID:             uuid.New(),
		Username:       username,
		Email:          username + "@example.com",
		HashedPassword: "$2a$10$abcdefghijklmnopqrstuv",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestPostgresUserStore_Integration(t *testing.T) {
	t.Parallel()
	db := testdb.GetTestDBWithT(t)
	ctx := context.Background()

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		users := postgres.NewPostgresUserStore(tx, nil)

		u := integrationUser("integration_" + uuid.NewString()[:8])
		u.IsSuperuser = true
		require.NoError(t, users.Create(ctx, u))

		got, err := users.GetByUsername(ctx, u.Username)
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.True(t, got.IsSuperuser)
		assert.True(t, u.CreatedAt.Equal(got.CreatedAt))

		require.NoError(t, users.Delete(ctx, u.ID))
		_, err = users.GetByID(ctx, u.ID)
		assert.ErrorIs(t, err, store.ErrUserNotFound)
		assert.ErrorIs(t, users.Delete(ctx, u.ID), store.ErrUserNotFound)

		// a failed statement aborts the transaction, so this goes last
		other := integrationUser("integration_" + uuid.NewString()[:8])
		require.NoError(t, users.Create(ctx, other))
		assert.ErrorIs(t, users.Create(ctx, integrationUser(other.Username)), store.ErrUsernameExists)
	})
}
