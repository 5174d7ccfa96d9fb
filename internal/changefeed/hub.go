package changefeed

import (
	"sync"
)

type subKey struct {
	topic Topic
	key   string
}

// hub is the in-process subscriber registry shared by every backend.
type hub struct {
	mu     sync.RWMutex
	subs   map[subKey]map[*Subscription]struct{}
	buffer int
	closed bool
}

func newHub(buffer int) *hub {
	if buffer < 1 {
		buffer = 1
	}
	return &hub{
		subs:   make(map[subKey]map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a new listener for topic/key.
func (h *hub) Subscribe(topic Topic, key string) *Subscription {
	sub := &Subscription{
		key: subKey{topic: topic, key: key},
		ch:  make(chan Event, h.buffer),
		hub: h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(sub.ch)
		sub.done = true
		return sub
	}
	set, ok := h.subs[sub.key]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[sub.key] = set
	}
	set[sub] = struct{}{}
	return sub
}

func (h *hub) dispatch(evt Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[subKey{topic: evt.Topic, key: evt.Key}] {
		select {
		case sub.ch <- evt:
		default:
			// a signal is already pending for this subscriber
		}
	}
}

func (h *hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub.done {
		return
	}
	sub.done = true
	if set, ok := h.subs[sub.key]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.key)
		}
	}
	close(sub.ch)
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for key, set := range h.subs {
		for sub := range set {
			sub.done = true
			close(sub.ch)
		}
		delete(h.subs, key)
	}
}

// subscriberCount is used by tests and the health endpoint.
func (h *hub) subscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, set := range h.subs {
		n += len(set)
	}
	return n
}

// Subscription is one listener registration. Events is closed after Close
// or when the broker shuts down.
type Subscription struct {
	key  subKey
	ch   chan Event
	hub  *hub
	done bool // guarded by hub.mu
}

func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
}
