package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"hiresync/internal/changefeed"
	"hiresync/internal/models"
	"hiresync/internal/repositories"
)

type proposalRepository struct {
	s *Store
}

func (r *proposalRepository) Create(ctx context.Context, proposal *models.Proposal) error {
	if err := r.s.fault("CreateProposal"); err != nil {
		return err
	}
	proposal.EnsureID()

	r.s.mu.Lock()
	r.s.proposals[proposal.ID] = *proposal
	r.s.mu.Unlock()

	r.s.publish(ctx, changefeed.NewEvent(changefeed.TopicProposals, proposal.JobID, proposal.ID, changefeed.OpInsert))
	return nil
}

func (r *proposalRepository) FindByID(_ context.Context, id string) (*models.Proposal, error) {
	if err := r.s.fault("FindProposalByID"); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.proposals[id]
	if !ok {
		return nil, repositories.ErrProposalNotFound
	}
	return &p, nil
}

func (r *proposalRepository) FindByJob(_ context.Context, jobID string) ([]models.Proposal, error) {
	return r.filter(func(p models.Proposal) bool { return p.JobID == jobID }), nil
}

func (r *proposalRepository) FindByApplicant(_ context.Context, applicantID string) ([]models.Proposal, error) {
	return r.filter(func(p models.Proposal) bool { return p.ApplicantID == applicantID }), nil
}

func (r *proposalRepository) filter(keep func(models.Proposal) bool) []models.Proposal {
	r.s.mu.RLock()
	var out []models.Proposal
	for _, p := range r.s.proposals {
		if keep(p) {
			out = append(out, p)
		}
	}
	r.s.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.Proposal) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out
}

func (r *proposalRepository) UpdateStatus(ctx context.Context, id string, from, to models.ProposalStatus) error {
	if err := r.s.fault("UpdateStatus"); err != nil {
		return err
	}

	r.s.mu.Lock()
	p, ok := r.s.proposals[id]
	if !ok {
		r.s.mu.Unlock()
		return repositories.ErrProposalNotFound
	}
	if p.Status != from {
		r.s.mu.Unlock()
		return repositories.ErrStatusChanged
	}
	p.Status = to
	p.UpdatedAt = time.Now().UTC()
	r.s.proposals[id] = p
	r.s.mu.Unlock()

	r.s.publish(ctx, changefeed.NewEvent(changefeed.TopicProposals, id, id, changefeed.OpUpdate))
	return nil
}
