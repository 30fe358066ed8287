package realtime

import (
	"sync"

	"github.com/angelmondragon/blogqna-backend/pkg/metrics"
)

// Channel is a send handle for one live client connection. Implementations
// must be comparable; the registry matches entries by identity.
type Channel interface {
	// Send queues payload for delivery without blocking.
	Send(payload []byte) error
	Close() error
}

// Registry maps a user to their single current channel. The lock covers map
// access only and is never held while sending.
type Registry struct {
	mu      sync.Mutex
	entries map[string]Channel
	metrics *metrics.RealtimeMetrics
}

func NewRegistry(m *metrics.RealtimeMetrics) *Registry {
	return &Registry{entries: make(map[string]Channel), metrics: m}
}

// Register installs ch as the live channel for userID and returns the channel it
// replaced, if any. The replaced channel is left open; its own lifecycle closes it.
func (r *Registry) Register(userID string, ch Channel) Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.entries[userID]
	r.entries[userID] = ch
	r.metrics.SetActive(len(r.entries))
	return prev
}

// Deregister removes userID's entry only if it is still ch. It reports whether
// an entry was removed; a stale channel is a no-op.
func (r *Registry) Deregister(userID string, ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.entries[userID]
	if !ok || current != ch {
		return false
	}
	delete(r.entries, userID)
	r.metrics.SetActive(len(r.entries))
	return true
}

func (r *Registry) Lookup(userID string) (Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.entries[userID]
	return ch, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// CloseAll empties the registry and closes every channel it held.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	channels := make([]Channel, 0, len(r.entries))
	for _, ch := range r.entries {
		channels = append(channels, ch)
	}
	r.entries = make(map[string]Channel)
	r.metrics.SetActive(0)
	r.mu.Unlock()

	for _, ch := range channels {
		_ = ch.Close()
	}
}
