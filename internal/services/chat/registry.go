package chat

import (
	"context"
	"errors"

	"hiresync/internal/logger"
	"hiresync/internal/models"
	chatmodels "hiresync/internal/models/chat"
	"hiresync/internal/repositories"
	"hiresync/pkg/apperrors"
)

// Registry maps a proposal to its single conversation thread.
type Registry interface {
	// CreateOrGet returns the proposal's thread id, creating the thread on
	// first use. created is false when the thread already existed.
	CreateOrGet(ctx context.Context, proposal *models.Proposal) (threadID string, created bool, err error)
}

type registry struct {
	chats repositories.ChatRepository
	jobs  repositories.JobRepository
	users repositories.UserRepository
}

func NewRegistry(
	chats repositories.ChatRepository,
	jobs repositories.JobRepository,
	users repositories.UserRepository,
) Registry {
	return &registry{chats: chats, jobs: jobs, users: users}
}

func (r *registry) CreateOrGet(ctx context.Context, proposal *models.Proposal) (string, bool, error) {
	if proposal == nil || proposal.ID == "" {
		return "", false, apperrors.ErrInvalidOperation(domain, "proposal is required")
	}

	existing, err := r.chats.FindThreadByProposal(ctx, proposal.ID)
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, repositories.ErrThreadNotFound) {
		return "", false, apperrors.DependencyError(err, domain)
	}

	job, err := r.jobs.FindByID(ctx, proposal.JobID)
	if err != nil {
		return "", false, apperrors.DependencyError(err, domain)
	}
	reviewer, err := r.users.FindByID(ctx, job.OwnerID)
	if err != nil {
		return "", false, apperrors.DependencyError(err, domain)
	}

	// Имя соискателя - только для отображения, его отсутствие не блокирует чат.
	var applicantName string
	applicant, err := r.users.FindByID(ctx, proposal.ApplicantID)
	switch {
	case err == nil:
		applicantName = applicant.Name
	case !errors.Is(err, repositories.ErrUserNotFound):
		return "", false, apperrors.DependencyError(err, domain)
	}

	thread := &chatmodels.Thread{
		ProposalID:    proposal.ID,
		JobID:         job.ID,
		JobTitle:      job.Title,
		InitiatorID:   job.OwnerID,
		InitiatorName: reviewer.Name,
		RecipientID:   proposal.ApplicantID,
		RecipientName: applicantName,
	}

	err = r.chats.CreateThread(ctx, thread)
	if errors.Is(err, repositories.ErrDuplicateThread) {
		// concurrent creator won; its thread is the one
		winner, ferr := r.chats.FindThreadByProposal(ctx, proposal.ID)
		if ferr != nil {
			return "", false, apperrors.DependencyError(ferr, domain)
		}
		logger.CtxDebug(ctx, "thread creation lost race", "proposal_id", proposal.ID, "thread_id", winner.ID)
		return winner.ID, false, nil
	}
	if err != nil {
		return "", false, apperrors.DependencyError(err, domain)
	}

	logger.CtxInfo(ctx, "thread created", "proposal_id", proposal.ID, "thread_id", thread.ID)
	return thread.ID, true, nil
}
