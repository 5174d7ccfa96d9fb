package chat

import (
	"math/rand"
	"testing"

	chatmodels "hiresync/internal/models/chat"
	"hiresync/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters_NeverNegative(t *testing.T) {
	f := newFixture(t)
	thread := f.newThread(t)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		switch rng.Intn(3) {
		case 0:
			require.NoError(t, f.counters.Increment(f.ctx, thread.ID, chatmodels.RoleRecipient))
		case 1:
			require.NoError(t, f.counters.Decrement(f.ctx, thread.ID, chatmodels.RoleRecipient, int64(rng.Intn(4))))
		case 2:
			require.NoError(t, f.counters.Reset(f.ctx, thread.ID, chatmodels.RoleRecipient))
		}
		assert.GreaterOrEqual(t, f.thread(t, thread.ID).UnreadRecipient, 0)
	}
}

func TestCounters_ResetIsExactlyZero(t *testing.T) {
	f := newFixture(t)
	thread := f.newThread(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, f.counters.Increment(f.ctx, thread.ID, chatmodels.RoleInitiator))
	}
	assert.Equal(t, 5, f.thread(t, thread.ID).UnreadInitiator)
	assert.Equal(t, 0, f.thread(t, thread.ID).UnreadRecipient)

	require.NoError(t, f.counters.Reset(f.ctx, thread.ID, chatmodels.RoleInitiator))
	assert.Equal(t, 0, f.thread(t, thread.ID).UnreadInitiator)

	require.NoError(t, f.counters.Decrement(f.ctx, thread.ID, chatmodels.RoleInitiator, 3))
	assert.Equal(t, 0, f.thread(t, thread.ID).UnreadInitiator)
}

func TestCounters_Errors(t *testing.T) {
	f := newFixture(t)

	err := f.counters.Increment(f.ctx, "missing", chatmodels.RoleInitiator)
	assert.ErrorIs(t, err, apperrors.ErrThreadNotFound)

	err = f.counters.Reset(f.ctx, "missing", chatmodels.ParticipantRole("admin"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidOperation))
}
