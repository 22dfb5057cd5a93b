package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryClient is the in-process Cache used for single-instance deployments and tests.
type MemoryClient struct {
	mu     sync.Mutex
	data   map[string]memoryEntry
	subs   map[string]map[chan string]struct{}
	prefix string
	now    func() time.Time
}

var _ Cache = (*MemoryClient)(nil)

func NewMemoryClient(prefix string) *MemoryClient {
	return &MemoryClient{
		data:   make(map[string]memoryEntry),
		subs:   make(map[string]map[chan string]struct{}),
		prefix: prefix,
		now:    time.Now,
	}
}

func (m *MemoryClient) Close() error {
	return nil
}

// lookup must be called with mu held.
func (m *MemoryClient) lookup(key string) (memoryEntry, bool) {
	e, ok := m.data[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.data, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (m *MemoryClient) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(m.prefix + key)
	if !ok {
		return "", ErrMiss
	}
	return e.value, nil
}

func (m *MemoryClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.data[m.prefix+key] = e
	return nil
}

func (m *MemoryClient) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.lookup(m.prefix + key)
	return ok, nil
}

func (m *MemoryClient) Take(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(m.prefix + key)
	if !ok {
		return "", ErrMiss
	}
	delete(m.data, m.prefix+key)
	return e.value, nil
}

func (m *MemoryClient) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, m.prefix+k)
	}
	return nil
}

func (m *MemoryClient) Clear(ctx context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if strings.HasPrefix(k, m.prefix+prefix) {
			delete(m.data, k)
		}
	}
	return nil
}

// Publish drops the payload for subscribers whose buffer is full.
func (m *MemoryClient) Publish(ctx context.Context, channel, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subs[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (m *MemoryClient) Subscribe(ctx context.Context, channel string) (*Subscription, error) {
	ch := make(chan string, 16)

	m.mu.Lock()
	if m.subs[channel] == nil {
		m.subs[channel] = make(map[chan string]struct{})
	}
	m.subs[channel][ch] = struct{}{}
	m.mu.Unlock()

	return &Subscription{
		C: ch,
		close: func() error {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs[channel], ch)
			close(ch)
			return nil
		},
	}, nil
}
