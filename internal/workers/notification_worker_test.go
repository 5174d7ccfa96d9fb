package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCleaner struct {
	mu    sync.Mutex
	calls []time.Duration
	n     int64
	err   error
}

func (f *fakeCleaner) CleanOldNotifications(_ context.Context, olderThan time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, olderThan)
	return f.n, f.err
}

func (f *fakeCleaner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestNotificationWorker_RunOnce(t *testing.T) {
	cleaner := &fakeCleaner{n: 3}
	w := NewNotificationWorker(cleaner, time.Hour, 30*24*time.Hour)

	assert.EqualValues(t, 3, w.runOnce(context.Background()))
	require.Len(t, cleaner.calls, 1)
	assert.Equal(t, 30*24*time.Hour, cleaner.calls[0])

	cleaner.err = errors.New("db down")
	assert.Zero(t, w.runOnce(context.Background()))
}

func TestNotificationWorker_TicksUntilCancelled(t *testing.T) {
	cleaner := &fakeCleaner{}
	w := NewNotificationWorker(cleaner, 5*time.Millisecond, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	require.Eventually(t, func() bool { return cleaner.callCount() >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	w.Wait()
	calls := cleaner.callCount()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, cleaner.callCount())
}
