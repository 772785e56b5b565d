package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noxchatAPI/internal/user"
)

func setupCache(t *testing.T) *ProfileCache {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	client, err := Connect(context.Background(), redisURL)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return NewProfileCache(client, time.Minute)
}

func TestProfileCache_RoundTrip(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()
	publicID := "cache_test_" + time.Now().Format("150405.000")
	t.Cleanup(func() { c.Invalidate(ctx, publicID) })

	miss, err := c.Get(ctx, publicID)
	require.NoError(t, err)
	assert.Nil(t, miss)

	u := &user.User{ID: 9, Username: "anna", Profile: user.Profile{PublicID: publicID, Bio: "hi"}}
	require.NoError(t, c.Set(ctx, u))

	got, err := c.Get(ctx, publicID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(9), got.ID)
	assert.Equal(t, "hi", got.Profile.Bio)

	require.NoError(t, c.Invalidate(ctx, publicID))
	got, err = c.Get(ctx, publicID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "user:public:anna_1", key("anna_1"))
}
