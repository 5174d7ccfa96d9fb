package changefeed

import (
	"context"
)

// MemoryBroker delivers events inside one process.
type MemoryBroker struct {
	*hub
}

func NewMemoryBroker(buffer int) *MemoryBroker {
	return &MemoryBroker{hub: newHub(buffer)}
}

func (b *MemoryBroker) Publish(_ context.Context, evt Event) error {
	b.dispatch(evt)
	return nil
}

func (b *MemoryBroker) Close() error {
	b.close()
	return nil
}

// Subscribers returns the number of live subscriptions.
func (b *MemoryBroker) Subscribers() int {
	return b.subscriberCount()
}
