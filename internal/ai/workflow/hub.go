package workflow

import (
	"context"
	"sync"
)

const subscriberBuffer = 32

// Hub delivers workflow events to live subscribers of a group. Slow
// subscribers miss events instead of blocking the workflow.
type Hub struct {
	mu     sync.Mutex
	groups map[string]map[chan Event]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{groups: make(map[string]map[chan Event]struct{})}
}

// Subscribe returns a channel of the group's events and a function that
// unsubscribes and closes it
func (h *Hub) Subscribe(group string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	subs, ok := h.groups[group]
	if !ok {
		subs = make(map[chan Event]struct{})
		h.groups[group] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(subs, ch)
			if len(subs) == 0 {
				delete(h.groups, group)
			}
			close(ch)
		})
	}
}

// Publish delivers e to every subscriber of its group. Slow subscribers
// miss events instead of blocking the workflow.
func (h *Hub) Publish(_ context.Context, e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.groups[e.Group] {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribers counts the live subscribers of a group
func (h *Hub) Subscribers(group string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.groups[group])
}
