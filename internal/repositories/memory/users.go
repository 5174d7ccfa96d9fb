package memory

import (
	"cmp"
	"context"
	"slices"

	"hiresync/internal/models"
	"hiresync/internal/repositories"
)

type userRepository struct {
	s *Store
}

func (r *userRepository) Create(_ context.Context, user *models.User) error {
	user.EnsureID()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepository) Save(_ context.Context, user *models.User) error {
	user.EnsureID()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.users[user.ID]; ok {
		user.CreatedAt = existing.CreatedAt
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepository) FindByID(_ context.Context, id string) (*models.User, error) {
	if err := r.s.fault("FindUserByID"); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return &u, nil
}

type jobRepository struct {
	s *Store
}

func (r *jobRepository) Create(_ context.Context, job *models.Job) error {
	job.EnsureID()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.jobs[job.ID] = *job
	return nil
}

func (r *jobRepository) FindByID(_ context.Context, id string) (*models.Job, error) {
	if err := r.s.fault("FindJobByID"); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	j, ok := r.s.jobs[id]
	if !ok {
		return nil, repositories.ErrJobNotFound
	}
	return &j, nil
}

func (r *jobRepository) FindByOwner(_ context.Context, ownerID string) ([]models.Job, error) {
	r.s.mu.RLock()
	var out []models.Job
	for _, j := range r.s.jobs {
		if j.OwnerID == ownerID {
			out = append(out, j)
		}
	}
	r.s.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.Job) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}
