package changefeed

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisBroker(t *testing.T) (*RedisBroker, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	b, err := NewRedisBroker(context.Background(), "redis://"+s.Addr(), "test", 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b, s
}

func TestNewRedisBroker_BadURL(t *testing.T) {
	_, err := NewRedisBroker(context.Background(), "not-a-url", "test", 1)
	assert.Error(t, err)
}

func TestRedisBroker_PublishReachesSubscriber(t *testing.T) {
	b, _ := setupRedisBroker(t)
	ctx := context.Background()

	sub := b.Subscribe(TopicMessages, "thread-1")
	other := b.Subscribe(TopicMessages, "thread-2")

	require.NoError(t, b.Publish(ctx, NewEvent(TopicMessages, "thread-1", "msg-1", OpInsert)))

	evt := receive(t, sub)
	assert.Equal(t, TopicMessages, evt.Topic)
	assert.Equal(t, "thread-1", evt.Key)
	assert.Equal(t, "msg-1", evt.RecordID)
	assertQuiet(t, other)
}

func TestRedisBroker_CrossProcess(t *testing.T) {
	s := miniredis.RunT(t)
	ctx := context.Background()

	publisher, err := NewRedisBroker(ctx, "redis://"+s.Addr(), "test", 1)
	require.NoError(t, err)
	defer publisher.Close()

	listener, err := NewRedisBroker(ctx, "redis://"+s.Addr(), "test", 1)
	require.NoError(t, err)
	defer listener.Close()

	sub := listener.Subscribe(TopicNotifications, "user-1")
	require.NoError(t, publisher.Publish(ctx, NewEvent(TopicNotifications, "user-1", "n-1", OpInsert)))

	evt := receive(t, sub)
	assert.Equal(t, "n-1", evt.RecordID)
}

func TestRedisBroker_DropsMalformedPayload(t *testing.T) {
	b, s := setupRedisBroker(t)
	ctx := context.Background()

	sub := b.Subscribe(TopicMessages, "thread-1")

	raw := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer raw.Close()

	require.NoError(t, raw.Publish(ctx, "test:messages:thread-1", `{"topic":"messages"}`).Err())
	require.NoError(t, raw.Publish(ctx, "test:messages:thread-1", `not json`).Err())
	assertQuiet(t, sub)

	require.NoError(t, b.Publish(ctx, NewEvent(TopicMessages, "thread-1", "ok", OpInsert)))
	assert.Equal(t, "ok", receive(t, sub).RecordID)
}
