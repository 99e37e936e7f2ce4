package auth_test

import (
	"testing"

	"github.com/phrazzld/apiview/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	t.Parallel()

	hasher := auth.NewBcryptHasher(bcrypt.MinCost)

	hashed, err := hasher.Hash("johnpassword")
	require.NoError(t, err)
	assert.NotEqual(t, "johnpassword", hashed)

	cost, err := bcrypt.Cost([]byte(hashed))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	assert.NoError(t, hasher.Compare(hashed, "johnpassword"))
	assert.ErrorIs(t, hasher.Compare(hashed, "wrong"), bcrypt.ErrMismatchedHashAndPassword)
}

func TestNewBcryptHasher_InvalidCostFallsBack(t *testing.T) {
	t.Parallel()

	hashed, err := auth.NewBcryptHasher(99).Hash("johnpassword")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hashed))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
