package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bilgisen/firenews/internal/cache"
	"github.com/bilgisen/firenews/internal/logger"
)

// ChangeChannel is the cache pub/sub channel that carries change topics
// between instances.
const ChangeChannel = "changes"

// Bus announces that a topic changed.
type Bus interface {
	Publish(ctx context.Context, topic string) error
}

// LocalBus notifies the in-process hub directly.
type LocalBus struct {
	hub *Hub
}

func NewLocalBus(hub *Hub) *LocalBus {
	return &LocalBus{hub: hub}
}

func (b *LocalBus) Publish(ctx context.Context, topic string) error {
	b.hub.Notify(topic)
	return nil
}

// CacheBus publishes topics on the cache's pub/sub channel. A Bridge on every
// instance, this one included, feeds them back into the local hub.
type CacheBus struct {
	cache cache.Cache
}

func NewCacheBus(c cache.Cache) *CacheBus {
	return &CacheBus{cache: c}
}

func (b *CacheBus) Publish(ctx context.Context, topic string) error {
	if err := b.cache.Publish(ctx, ChangeChannel, topic); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Bridge forwards topics from the cache channel into the hub.
type Bridge struct {
	cache cache.Cache
	hub   *Hub
	log   zerolog.Logger
}

func NewBridge(c cache.Cache, hub *Hub) *Bridge {
	return &Bridge{cache: c, hub: hub, log: logger.Component("feed-bridge")}
}

// Run blocks until ctx ends or the subscription breaks.
func (b *Bridge) Run(ctx context.Context) error {
	sub, err := b.cache.Subscribe(ctx, ChangeChannel)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", ChangeChannel, err)
	}
	defer sub.Close()

	b.log.Info().Str("channel", ChangeChannel).Msg("Change bridge started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case topic, ok := <-sub.C:
			if !ok {
				return errors.New("change subscription closed")
			}
			b.hub.Notify(topic)
		}
	}
}
