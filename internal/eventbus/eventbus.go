// Package eventbus is a publish-subscribe fan-out for EventEntry records,
// adapted from the teacher's internal/network.Broadcaster. Where the
// teacher's broadcaster multiplexed per-entity UI snapshots over a
// websocket, this bus multiplexes domain events (CombatEvent, QuestEvent,
// ...) to observers; subscribers are isolated from each other and each sees
// events in emission order (SPEC_FULL.md section 6).
package eventbus

import (
	"sync"
	"time"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
)

type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]chan model.EventEntry
	nextID      int64
}

func New() *Bus {
	return &Bus{subscribers: make(map[string]chan model.EventEntry)}
}

// Subscribe registers a new observer and returns its channel plus an
// unsubscribe function. The channel is buffered; a slow subscriber drops
// events rather than blocking publication (fire-and-forget, non-awaited).
func (b *Bus) Subscribe(id string) (<-chan model.EventEntry, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if old, ok := b.subscribers[id]; ok {
		close(old)
	}
	ch := make(chan model.EventEntry, 128)
	b.subscribers[id] = ch

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if cur, ok := b.subscribers[id]; ok && cur == ch {
			close(cur)
			delete(b.subscribers, id)
		}
	}
	return ch, unsub
}

// Publish fans an event out to every current subscriber, non-blocking.
func (b *Bus) Publish(eventType string, payload map[string]any) model.EventEntry {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.mu.Unlock()

	evt := model.EventEntry{ID: id, Type: eventType, Payload: payload, Ts: time.Now().UTC()}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
			// subscriber is behind; drop rather than block the publisher
		}
	}
	return evt
}

func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
