package docstore

import (
	"context"
	"os"
	"testing"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration-style tests: run only if REDIS_ADDR env is set.
func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping integration test")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	return NewRedisStore(client)
}

// Create writes the document in one atomic step: the created document must
// be fully readable immediately, and a losing creator must not disturb it.
func TestRedisStoreCreateIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := newTestRedisStore(t)

	id := "itest-create"
	_ = s.Delete(ctx, "rooms", id)

	doc, err := s.Create(ctx, "rooms", id, []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc.Version)

	got, err := s.Get(ctx, "rooms", id)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), got.Data, "a created document is never half-written")
	assert.Equal(t, int64(1), got.Version)

	_, err = s.Create(ctx, "rooms", id, []byte(`{"b":2}`))
	assert.ErrorIs(t, err, ErrExists)

	got, err = s.Get(ctx, "rooms", id)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), got.Data, "losing create must not overwrite")

	_ = s.Delete(ctx, "rooms", id)
}

func TestRedisStoreList(t *testing.T) {
	ctx := context.Background()
	s := newTestRedisStore(t)

	ids := []string{"itest-list-1", "itest-list-2"}
	for _, id := range ids {
		_ = s.Delete(ctx, "rooms", id)
		_, err := s.Create(ctx, "rooms", id, []byte(`{}`))
		require.NoError(t, err)
	}

	got, err := s.List(ctx, "rooms")
	require.NoError(t, err)
	for _, id := range ids {
		assert.Contains(t, got, id)
	}

	for _, id := range ids {
		_ = s.Delete(ctx, "rooms", id)
	}
}
