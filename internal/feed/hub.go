package feed

import "sync"

// Topics carried by the hub and the change bus.
const (
	TopicModeration   = "moderation"
	threadTopicPrefix = "thread:"
)

// ThreadTopic is the change topic of one article's comment thread.
func ThreadTopic(articleID string) string {
	return threadTopicPrefix + articleID
}

// Hub wakes local watchers when a topic changes. Wake-ups coalesce: a watcher
// that is busy reloading sees one pending signal, not a backlog.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan struct{}]struct{})}
}

// Notify signals every watcher of topic without blocking.
func (h *Hub) Notify(topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[topic] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (h *Hub) subscribe(topic string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[chan struct{}]struct{})
	}
	h.subs[topic][ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[topic], ch)
		if len(h.subs[topic]) == 0 {
			delete(h.subs, topic)
		}
	}
}

// watchers reports how many watchers a topic has.
func (h *Hub) watchers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[topic])
}
