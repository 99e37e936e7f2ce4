package testdb_test

import (
	"testing"

	"github.com/phrazzld/apiview/internal/testdb"
	"github.com/stretchr/testify/assert"
)

func TestGetTestDatabaseURL(t *testing.T) {
	t.Run("prefers dedicated variable", func(t *testing.T) {
		t.Setenv(testdb.EnvTestDatabaseURL, "postgres://test@localhost/apiview_test")
		t.Setenv("DATABASE_URL", "postgres://app@localhost/apiview")
		assert.Equal(t, "postgres://test@localhost/apiview_test", testdb.GetTestDatabaseURL())
		assert.False(t, testdb.ShouldSkipDatabaseTest())
	})

	t.Run("falls back to DATABASE_URL", func(t *testing.T) {
		t.Setenv(testdb.EnvTestDatabaseURL, "")
		t.Setenv("DATABASE_URL", "postgres://app@localhost/apiview")
		assert.Equal(t, "postgres://app@localhost/apiview", testdb.GetTestDatabaseURL())
	})

	t.Run("unset", func(t *testing.T) {
		t.Setenv(testdb.EnvTestDatabaseURL, "")
		t.Setenv("DATABASE_URL", "")
		assert.Empty(t, testdb.GetTestDatabaseURL())
		assert.True(t, testdb.ShouldSkipDatabaseTest())
	})
}
