package chat

import (
	"context"
	"slices"
	"sync"

	"hiresync/internal/changefeed"
	"hiresync/internal/logger"
	chatmodels "hiresync/internal/models/chat"
	"hiresync/internal/repositories"
	"hiresync/pkg/apperrors"
)

// SubscribeRequest opens a thread for a viewer. ViewContext names the screen
// or connection that owns the subscription; it may hold one at a time.
type SubscribeRequest struct {
	ViewContext string
	ThreadID    string
	ViewerID    string
}

// MessageBatch is the full ordered message set of a thread at one point in time.
// Err is set when the refresh failed; the stream keeps running and the next
// change event retries.
type MessageBatch struct {
	ThreadID string
	Messages []chatmodels.Message
	Err      error
}

// Stream opens live message subscriptions.
type Stream interface {
	Subscribe(ctx context.Context, req SubscribeRequest) (*Subscription, error)
	// Active reports whether viewContext currently owns a subscription.
	Active(viewContext string) bool
}

type messageStream struct {
	chats      repositories.ChatRepository
	feed       changefeed.Broker
	reconciler Reconciler
	counters   CounterService
	buffer     int

	mu     sync.Mutex
	active map[string]*Subscription
}

func NewStream(
	chats repositories.ChatRepository,
	feed changefeed.Broker,
	reconciler Reconciler,
	counters CounterService,
	buffer int,
) Stream {
	if buffer < 1 {
		buffer = 1
	}
	return &messageStream{
		chats:      chats,
		feed:       feed,
		reconciler: reconciler,
		counters:   counters,
		buffer:     buffer,
		active:     make(map[string]*Subscription),
	}
}

// Subscription is an owned handle on one open thread. The caller must Cancel
// it before the same view context can subscribe again.
type Subscription struct {
	ThreadID string
	ViewerID string
	Role     chatmodels.ParticipantRole

	viewContext string
	batches     chan MessageBatch
	cancel      context.CancelFunc
	done        chan struct{}
	stream      *messageStream
}

// Batches delivers message batches in store order. It is closed once the
// subscription ends.
func (s *Subscription) Batches() <-chan MessageBatch {
	return s.batches
}

// Done is closed when the delivery loop has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Cancel stops delivery and blocks until the delivery loop has exited, so no
// read-marking or counter write happens after it returns. A batch already
// buffered in Batches may still be received. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.cancel()
	<-s.done
	s.stream.release(s)
}

func (st *messageStream) Active(viewContext string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.active[viewContext]
	return ok
}

func (st *messageStream) release(sub *Subscription) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.active[sub.viewContext] == sub {
		delete(st.active, sub.viewContext)
	}
}

func (st *messageStream) Subscribe(ctx context.Context, req SubscribeRequest) (*Subscription, error) {
	if req.ViewContext == "" || req.ThreadID == "" || req.ViewerID == "" {
		return nil, apperrors.ErrInvalidOperation(domain, "view context, thread and viewer are required")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		ThreadID:    req.ThreadID,
		ViewerID:    req.ViewerID,
		viewContext: req.ViewContext,
		batches:     make(chan MessageBatch, st.buffer),
		cancel:      cancel,
		done:        make(chan struct{}),
		stream:      st,
	}

	// the slot is reserved before any I/O so two racing opens cannot both win
	st.mu.Lock()
	if _, busy := st.active[req.ViewContext]; busy {
		st.mu.Unlock()
		cancel()
		return nil, apperrors.ErrSubscriptionActive
	}
	st.active[req.ViewContext] = sub
	st.mu.Unlock()

	fail := func(err error) (*Subscription, error) {
		cancel()
		close(sub.done)
		st.release(sub)
		logger.StreamLog("subscribe_failed", req.ThreadID, req.ViewerID, err)
		return nil, err
	}

	thread, err := st.chats.FindThreadByID(ctx, req.ThreadID)
	if err != nil {
		return fail(handleChatError(err))
	}
	role, ok := thread.RoleOf(req.ViewerID)
	if !ok {
		return fail(apperrors.ErrNotParticipant)
	}
	sub.Role = role

	if err := st.counters.Reset(ctx, req.ThreadID, role); err != nil {
		// a stale counter is preferred over refusing to open the thread
		logger.StreamLog("counter_reset_failed", req.ThreadID, req.ViewerID, err)
	}

	// listen before the initial read so no change between them is lost
	events := st.feed.Subscribe(changefeed.TopicMessages, req.ThreadID)
	threadEvents := st.feed.Subscribe(changefeed.TopicThreads, req.ThreadID)

	go st.run(loopCtx, sub, events, threadEvents)

	logger.StreamLog("subscribed", req.ThreadID, req.ViewerID, nil)
	return sub, nil
}

func (st *messageStream) run(ctx context.Context, sub *Subscription, events, threadEvents *changefeed.Subscription) {
	defer func() {
		events.Close()
		threadEvents.Close()
		close(sub.batches)
		close(sub.done)
		st.release(sub)
		logger.StreamLog("closed", sub.ThreadID, sub.ViewerID, nil)
	}()

	if !st.refresh(ctx, sub) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events.Events():
			if !ok {
				return
			}
			if !st.refresh(ctx, sub) {
				return
			}
		case _, ok := <-threadEvents.Events():
			if !ok {
				return
			}
			st.settleCounter(ctx, sub)
		}
	}
}

// settleCounter zeroes the viewer's counter when it is positive although no
// message from the other side is unread. An increment that lands after the
// message was already reconciled leaves exactly that state.
func (st *messageStream) settleCounter(ctx context.Context, sub *Subscription) {
	thread, err := st.chats.FindThreadByID(ctx, sub.ThreadID)
	if err != nil || thread.UnreadFor(sub.Role) == 0 {
		return
	}
	// counter first, then messages: every increment seen above belongs to a
	// message that is already stored
	messages, err := st.chats.FindMessagesByThread(ctx, sub.ThreadID)
	if err != nil || len(UnreadFrom(messages, sub.ViewerID)) > 0 {
		return
	}
	if err := st.counters.Reset(ctx, sub.ThreadID, sub.Role); err != nil && ctx.Err() == nil {
		logger.StreamLog("counter_settle_failed", sub.ThreadID, sub.ViewerID, err)
	}
}

// refresh re-reads the thread, delivers the batch and reconciles read state.
// It returns false once the subscription is cancelled.
func (st *messageStream) refresh(ctx context.Context, sub *Subscription) bool {
	messages, err := st.chats.FindMessagesByThread(ctx, sub.ThreadID)
	if ctx.Err() != nil {
		return false
	}

	batch := MessageBatch{ThreadID: sub.ThreadID}
	if err != nil {
		batch.Err = apperrors.DependencyError(err, domain)
		logger.StreamLog("refresh_failed", sub.ThreadID, sub.ViewerID, err)
	} else {
		slices.SortStableFunc(messages, chatmodels.CompareMessages)
		batch.Messages = messages
	}

	select {
	case sub.batches <- batch:
	case <-ctx.Done():
		return false
	}

	if batch.Err != nil {
		return true
	}
	unread := UnreadFrom(batch.Messages, sub.ViewerID)
	if len(unread) == 0 {
		return true
	}
	if _, err := st.reconciler.Reconcile(ctx, sub.ThreadID, sub.ViewerID, unread); err != nil && ctx.Err() == nil {
		logger.StreamLog("reconcile_failed", sub.ThreadID, sub.ViewerID, err)
	}
	return ctx.Err() == nil
}
