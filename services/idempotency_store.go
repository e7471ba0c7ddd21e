package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// idem:order:create:{Idempotency-Key} -> order id
	idempotencyKeyFormat = "idem:order:create:%s"

	// IdempotencyTTL is how long a placement key is remembered
	IdempotencyTTL = 24 * time.Hour

	// MaxIdempotencyKeyLength bounds the client supplied key
	MaxIdempotencyKeyLength = 255
)

// IdempotencyStore remembers which order an Idempotency-Key created
type IdempotencyStore interface {
	Lookup(ctx context.Context, key string) (orderID uint, found bool, err error)
	Remember(ctx context.Context, key string, orderID uint) error
}

// RedisIdempotencyStore keeps placement keys in Redis with a TTL
type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient creates a client with short timeouts so a slow Redis cannot stall checkout
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// NewRedisIdempotencyStore wraps client; ttl <= 0 means IdempotencyTTL
func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	if ttl <= 0 {
		ttl = IdempotencyTTL
	}
	return &RedisIdempotencyStore{client: client, ttl: ttl}
}

func idempotencyRedisKey(key string) string {
	return fmt.Sprintf(idempotencyKeyFormat, key)
}

// Lookup returns the order created for key, if any
func (s *RedisIdempotencyStore) Lookup(ctx context.Context, key string) (uint, bool, error) {
	v, err := s.client.Get(ctx, idempotencyRedisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt idempotency value %q: %w", v, err)
	}
	return uint(id), true, nil
}

// Remember stores orderID for key unless another request stored one first
func (s *RedisIdempotencyStore) Remember(ctx context.Context, key string, orderID uint) error {
	if err := s.client.SetNX(ctx, idempotencyRedisKey(key), orderID, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency key: %w", err)
	}
	return nil
}
