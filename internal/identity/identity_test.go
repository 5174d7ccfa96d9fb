package identity

import (
	"context"
	"testing"
	"time"

	"hiresync/internal/models"
	"hiresync/internal/repositories/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := IssueToken("secret", Actor{ID: "u1", Email: "a@example.com"}, time.Hour)
	require.NoError(t, err)

	actor, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "u1", actor.ID)
	assert.Equal(t, "a@example.com", actor.Email)
}

func TestParseToken_Rejects(t *testing.T) {
	good, err := IssueToken("secret", Actor{ID: "u1"}, time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken("secret", Actor{ID: "u1"}, -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		secret string
		token  string
	}{
		{"wrong secret", "other", good},
		{"expired", "secret", expired},
		{"garbage", "secret", "not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.secret, tt.token)
			assert.Error(t, err)
		})
	}
}

func TestContextProvider(t *testing.T) {
	store := memory.NewStore(nil)
	ctx := context.Background()
	user := &models.User{Name: "Dana", Email: "dana@example.com"}
	require.NoError(t, store.Users().Create(ctx, user))

	p := NewContextProvider(store.Users())

	_, err := p.CurrentActor(ctx)
	assert.ErrorIs(t, err, ErrNoActor)

	actor, err := p.CurrentActor(WithActor(ctx, Actor{ID: user.ID}))
	require.NoError(t, err)
	assert.Equal(t, "Dana", actor.Name)
	assert.Equal(t, "dana@example.com", actor.Email)

	actor, err = p.CurrentActor(WithActor(ctx, Actor{ID: "unknown"}))
	require.NoError(t, err)
	assert.Equal(t, "unknown", actor.ID)
	assert.Empty(t, actor.Name)
}
