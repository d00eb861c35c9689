package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/farmfresh/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func setupTestStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, ttl), mr
}

func testUser() *domain.User {
	return &domain.User{ID: primitive.NewObjectID(), Name: "Ann", Email: "ann@example.com", Role: domain.RoleAdmin}
}

func TestCreateAndGet(t *testing.T) {
	store, mr := setupTestStore(t, time.Hour)
	ctx := context.Background()
	user := testUser()

	s, err := store.Create(ctx, user)
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, time.Hour, mr.TTL(sessionKey(s.ID)))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)
	assert.Equal(t, "ann@example.com", got.Email)
	assert.True(t, got.IsAdmin())
}

func TestGet_Unknown(t *testing.T) {
	store, _ := setupTestStore(t, time.Hour)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestGet_ExpiredByRedis(t *testing.T) {
	store, mr := setupTestStore(t, time.Minute)
	ctx := context.Background()

	s, err := store.Create(ctx, testUser())
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestGet_ExpiredByClock(t *testing.T) {
	store, _ := setupTestStore(t, time.Minute)
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { return now }
	s, err := store.Create(ctx, testUser())
	require.NoError(t, err)

	store.now = func() time.Time { return now.Add(time.Minute) }
	_, err = store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDelete(t *testing.T) {
	store, _ := setupTestStore(t, time.Hour)
	ctx := context.Background()

	s, err := store.Create(ctx, testUser())
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, s.ID))
	_, err = store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// deleting twice is fine
	require.NoError(t, store.Delete(ctx, s.ID))
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	s := &Session{ID: "abc"}
	got, ok := FromContext(NewContext(context.Background(), s))
	require.True(t, ok)
	assert.Equal(t, "abc", got.ID)
}
