package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"priceoracle-service/internal/application"
)

const keyPrefix = "priceoracle:idem:"

var _ application.IdempotencyStore = (*Store)(nil)

// Store reserves idempotency keys of forced refresh requests with SETNX so
// a retried request inside TTL is reported as a duplicate.
type Store struct {
	Client *redis.Client
	TTL    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{Client: client, TTL: ttl}
}

// Connect opens a client and checks it with PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (s *Store) TryReserve(ctx context.Context, key string) (bool, error) {
	ok, err := s.Client.SetNX(ctx, keyPrefix+key, "1", s.TTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}
