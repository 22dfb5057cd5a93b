// Package cache holds short-lived keys and the cross-instance change bus.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bilgisen/firenews/internal/config"
)

// ErrMiss is returned when a key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache is implemented by RedisClient and MemoryClient.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	// Take returns the value and deletes the key in one step.
	Take(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, keys ...string) error
	// Clear deletes every key starting with prefix.
	Clear(ctx context.Context, prefix string) error
	Publish(ctx context.Context, channel, payload string) error
	Subscribe(ctx context.Context, channel string) (*Subscription, error)
	Close() error
}

// Subscription delivers payloads published on one channel until closed.
type Subscription struct {
	C <-chan string

	once  sync.Once
	close func() error
}

// Close stops delivery. It is safe to call more than once.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		err = s.close()
	})
	return err
}

// New returns a Redis client when REDIS_URL is set, otherwise the in-process cache.
func New(cfg *config.Config) (Cache, error) {
	if cfg.RedisURL == "" {
		return NewMemoryClient(cfg.RedisPrefix), nil
	}
	return NewRedisClient(cfg)
}
