package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIdempotencyRedisKey(t *testing.T) {
	assert.Equal(t, "idem:order:create:abc-123", idempotencyRedisKey("abc-123"))
}

func TestNewRedisIdempotencyStore_DefaultTTL(t *testing.T) {
	client := NewRedisClient("127.0.0.1:1")
	defer client.Close()

	assert.Equal(t, IdempotencyTTL, NewRedisIdempotencyStore(client, 0).ttl)
	assert.Equal(t, time.Minute, NewRedisIdempotencyStore(client, time.Minute).ttl)
}

func TestRedisIdempotencyStore_Unreachable(t *testing.T) {
	client := NewRedisClient("127.0.0.1:1")
	defer client.Close()
	store := NewRedisIdempotencyStore(client, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, found, err := store.Lookup(ctx, "k")
	assert.Error(t, err)
	assert.False(t, found)
	assert.Error(t, store.Remember(ctx, "k", 1))
}
