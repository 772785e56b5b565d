package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"noxchatAPI/internal/store"
)

// SetupTestDB connects to TEST_DATABASE_URL, applies the schema and empties
// every table. Tests are skipped when the variable is unset.
func SetupTestDB(t *testing.T) *store.Store {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := store.Connect(ctx, dbURL, store.PoolOptions{MaxConns: 10, MinConns: 1})
	require.NoError(t, err, "failed to connect to test database")

	s := store.New(pool)
	require.NoError(t, s.Migrate(ctx))

	_, err = pool.Exec(ctx, "TRUNCATE friend_requests, friends, profiles, users RESTART IDENTITY CASCADE")
	require.NoError(t, err, "failed to clean test database")

	t.Cleanup(pool.Close)
	return s
}
