// Package identity exposes the current actor to the core. Actors are
// established by the JWT middleware; display fields come from the user store.
package identity

import (
	"context"
	"errors"

	"hiresync/internal/repositories"
)

var ErrNoActor = errors.New("no authenticated actor in context")

// Actor is the authenticated caller.
type Actor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type actorKey struct{}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func FromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok && actor.ID != ""
}

// Provider resolves the current actor of a request.
type Provider interface {
	CurrentActor(ctx context.Context) (Actor, error)
}

// ContextProvider reads the actor id from the context and fills missing
// display fields from the user store.
type ContextProvider struct {
	users repositories.UserRepository
}

func NewContextProvider(users repositories.UserRepository) *ContextProvider {
	return &ContextProvider{users: users}
}

func (p *ContextProvider) CurrentActor(ctx context.Context) (Actor, error) {
	actor, ok := FromContext(ctx)
	if !ok {
		return Actor{}, ErrNoActor
	}
	if actor.Name != "" || p.users == nil {
		return actor, nil
	}

	user, err := p.users.FindByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return actor, nil
		}
		return Actor{}, err
	}
	actor.Name = user.Name
	if actor.Email == "" {
		actor.Email = user.Email
	}
	return actor, nil
}
