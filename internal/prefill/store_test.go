package prefill

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStoreRoundTripAndOverwrite(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)
	ctx := context.Background()

	_, ok, err := store.Load(ctx, "device-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, "device-1", Contact{Name: "Sam", Email: "sam@example.com"}))
	require.NoError(t, store.Save(ctx, "device-1", Contact{Name: "Sam Lee", Email: "sam@example.com", Phone: "512-555-0100"}))

	c, ok, err := store.Load(ctx, "device-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Sam Lee", c.Name)
	assert.Equal(t, "512-555-0100", c.Phone)
	assert.Equal(t, time.Hour, mr.TTL("prefill:applicant:device-1"))
}

func TestRedisStoreExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "k", Contact{Name: "Sam"}))
	mr.FastForward(2 * time.Minute)

	_, ok, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreIgnoresEmptyKey(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 0)

	require.NoError(t, store.Save(context.Background(), " ", Contact{Name: "Sam"}))
	assert.Empty(t, mr.Keys())
	assert.Equal(t, DefaultTTL, store.ttl)
}

func TestRedisStoreReportsOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)
	mr.Close()

	_, _, err := store.Load(context.Background(), "k")
	assert.Error(t, err)
}

func TestNoopStore(t *testing.T) {
	var s Store = NoopStore{}
	require.NoError(t, s.Save(context.Background(), "k", Contact{Name: "x"}))
	_, ok, err := s.Load(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
