// Package changefeed delivers "this query result changed" signals from the
// repositories to live consumers (message streams, notification feeds).
//
// Events are signals, not payloads: a consumer that receives one re-reads the
// store. Delivery to a single subscriber is therefore coalesced; when the
// subscriber's buffer is full the event is dropped because a re-read is
// already pending.
package changefeed

import (
	"context"
	"time"
)

type Topic string

const (
	TopicMessages      Topic = "messages"
	TopicThreads       Topic = "chats"
	TopicNotifications Topic = "notifications"
	TopicProposals     Topic = "proposals"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event says that records matching Topic/Key changed. Key is the equality
// filter the consumer listens on: a thread id for messages, a user id for
// notifications.
type Event struct {
	Topic    Topic     `json:"topic" validate:"required"`
	Key      string    `json:"key" validate:"required"`
	RecordID string    `json:"record_id,omitempty"`
	Op       Op        `json:"op" validate:"required,oneof=insert update delete"`
	At       time.Time `json:"at"`
}

// NewEvent stamps an event with the current time.
func NewEvent(topic Topic, key, recordID string, op Op) Event {
	return Event{Topic: topic, Key: key, RecordID: recordID, Op: op, At: time.Now().UTC()}
}

// Publisher is the write side used by repositories.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Broker routes published events to subscribers of the same topic and key.
type Broker interface {
	Publisher
	Subscribe(topic Topic, key string) *Subscription
	Close() error
}

// Nop discards events. Used by tools that write without live consumers.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
