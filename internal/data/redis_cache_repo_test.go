package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miniblog/miniblog/internal/testutil"
)

func TestRedisCacheRepo(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := testutil.SetupTestRedis(t)
	defer client.Close()

	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		key := "notifications:unread_count:user-1"
		value := []byte("7")
		ttl := 30 * time.Second

		err := repo.Set(ctx, key, value, ttl)
		require.NoError(t, err)

		result, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, value, result)

		actualTTL := client.TTL(ctx, key).Val()
		assert.True(t, actualTTL > 0 && actualTTL <= ttl)
	})

	t.Run("missing key is nil without error", func(t *testing.T) {
		result, err := repo.Get(ctx, "missing:key")
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("delete existing key", func(t *testing.T) {
		key := "notifications:unread_count:user-2"
		require.NoError(t, repo.Set(ctx, key, []byte("1"), time.Minute))

		deleted, err := repo.Delete(ctx, key)
		require.NoError(t, err)
		assert.True(t, deleted)

		result, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("delete missing key", func(t *testing.T) {
		deleted, err := repo.Delete(ctx, "missing:key")
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("empty keys are rejected", func(t *testing.T) {
		require.Error(t, repo.Set(ctx, "", []byte("x"), time.Minute))

		_, err := repo.Get(ctx, "")
		require.Error(t, err)

		_, err = repo.Delete(ctx, "")
		require.Error(t, err)
	})

	t.Run("health", func(t *testing.T) {
		assert.NoError(t, repo.Health(ctx))
	})
}
