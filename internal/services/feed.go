package services

import (
	"slices"
	"sync"
	"sync/atomic"

	"hiresync/internal/models"
)

// FeedSnapshot is an immutable view of an actor's recent notifications,
// newest first. A published snapshot is never modified; every change builds
// a new one.
type FeedSnapshot struct {
	Version uint64
	Items   []models.Notification
	Unread  int64
}

// Feed is one live consumer's view of an actor's notifications. All writers
// go through apply, and every new snapshot is published on the single
// Updates channel.
type Feed struct {
	ActorID string

	size    int
	mu      sync.Mutex // serializes writers
	current atomic.Pointer[FeedSnapshot]
	updates chan *FeedSnapshot

	closeOnce sync.Once
	onClose   func()
}

func newFeed(actorID string, size int, initial *FeedSnapshot) *Feed {
	f := &Feed{
		ActorID: actorID,
		size:    size,
		updates: make(chan *FeedSnapshot, 1),
	}
	if initial == nil {
		initial = &FeedSnapshot{}
	}
	f.current.Store(initial)
	return f
}

// Snapshot returns the latest snapshot.
func (f *Feed) Snapshot() *FeedSnapshot {
	return f.current.Load()
}

// Updates delivers new snapshots. Only the newest pending snapshot is kept;
// consumers diff it against the last one they saw.
func (f *Feed) Updates() <-chan *FeedSnapshot {
	return f.updates
}

// Close detaches the feed from its actor. Safe to call more than once.
func (f *Feed) Close() {
	f.closeOnce.Do(func() {
		if f.onClose != nil {
			f.onClose()
		}
	})
}

// apply derives the next snapshot from the current one. fn must not modify
// its argument. A nil result means "no change".
func (f *Feed) apply(fn func(old *FeedSnapshot) *FeedSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()

	old := f.current.Load()
	next := fn(old)
	if next == nil {
		return
	}
	next.Version = old.Version + 1
	if f.size > 0 && len(next.Items) > f.size {
		next.Items = next.Items[:f.size]
	}
	f.current.Store(next)

	select {
	case f.updates <- next:
	default:
		// replace the stale pending snapshot with the newest one
		select {
		case <-f.updates:
		default:
		}
		f.updates <- next
	}
}

func (f *Feed) prepend(n models.Notification, unread int64) {
	f.apply(func(old *FeedSnapshot) *FeedSnapshot {
		items := make([]models.Notification, 0, len(old.Items)+1)
		items = append(items, n)
		for _, it := range old.Items {
			if it.ID != n.ID {
				items = append(items, it)
			}
		}
		return &FeedSnapshot{Items: items, Unread: unread}
	})
}

func (f *Feed) markRead(id string, unread int64) {
	f.apply(func(old *FeedSnapshot) *FeedSnapshot {
		items := slices.Clone(old.Items)
		for i := range items {
			if id == "" || items[i].ID == id {
				items[i].IsRead = true
			}
		}
		return &FeedSnapshot{Items: items, Unread: unread}
	})
}

func (f *Feed) remove(id string, unread int64) {
	f.apply(func(old *FeedSnapshot) *FeedSnapshot {
		items := slices.DeleteFunc(slices.Clone(old.Items), func(n models.Notification) bool {
			return n.ID == id
		})
		return &FeedSnapshot{Items: items, Unread: unread}
	})
}

func (f *Feed) replace(items []models.Notification, unread int64) {
	f.apply(func(old *FeedSnapshot) *FeedSnapshot {
		next := &FeedSnapshot{Items: slices.Clone(items), Unread: unread}
		if d := DiffSnapshots(old, next); d.Empty() {
			return nil
		}
		return next
	})
}

// FeedDiff describes how one snapshot became another.
type FeedDiff struct {
	Added   []models.Notification `json:"added,omitempty"`
	Updated []models.Notification `json:"updated,omitempty"`
	Removed []string              `json:"removed,omitempty"`
	Unread  int64                 `json:"unread"`

	unreadChanged bool
}

// Empty reports whether the snapshots were equivalent.
func (d FeedDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0 && !d.unreadChanged
}

// DiffSnapshots compares two snapshots by notification id. old may be nil.
func DiffSnapshots(old, next *FeedSnapshot) FeedDiff {
	if old == nil {
		old = &FeedSnapshot{}
	}
	if next == nil {
		next = &FeedSnapshot{}
	}

	before := make(map[string]models.Notification, len(old.Items))
	for _, n := range old.Items {
		before[n.ID] = n
	}

	diff := FeedDiff{Unread: next.Unread, unreadChanged: old.Unread != next.Unread}
	seen := make(map[string]struct{}, len(next.Items))
	for _, n := range next.Items {
		seen[n.ID] = struct{}{}
		prev, ok := before[n.ID]
		switch {
		case !ok:
			diff.Added = append(diff.Added, n)
		case prev.IsRead != n.IsRead || prev.Title != n.Title || prev.Body != n.Body:
			diff.Updated = append(diff.Updated, n)
		}
	}
	for _, n := range old.Items {
		if _, ok := seen[n.ID]; !ok {
			diff.Removed = append(diff.Removed, n.ID)
		}
	}
	return diff
}

// feedHub tracks the live feeds of local actors.
type feedHub struct {
	mu    sync.RWMutex
	feeds map[string]map[*Feed]struct{}
}

func newFeedHub() *feedHub {
	return &feedHub{feeds: make(map[string]map[*Feed]struct{})}
}

func (h *feedHub) attach(f *Feed) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.feeds[f.ActorID]
	if !ok {
		set = make(map[*Feed]struct{})
		h.feeds[f.ActorID] = set
	}
	set[f] = struct{}{}
}

func (h *feedHub) detach(f *Feed) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.feeds[f.ActorID]; ok {
		delete(set, f)
		if len(set) == 0 {
			delete(h.feeds, f.ActorID)
		}
	}
}

// local returns the live feeds of actorID; empty when the actor is not local.
func (h *feedHub) local(actorID string) []*Feed {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Feed, 0, len(h.feeds[actorID]))
	for f := range h.feeds[actorID] {
		out = append(out, f)
	}
	return out
}
