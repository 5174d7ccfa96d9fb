package services

import (
	"context"
	"errors"
	"fmt"

	"hiresync/internal/logger"
	"hiresync/internal/models"
	"hiresync/internal/repositories"
	chatservice "hiresync/internal/services/chat"
	"hiresync/internal/services/dto"
	"hiresync/internal/validator"
	"hiresync/pkg/apperrors"
)

const (
	proposalDomain = "proposal"
	// casRetries bounds re-reads when a concurrent review changed the status.
	casRetries = 3
)

// transitions is the review lifecycle. Statuses without an entry are terminal.
var transitions = map[models.ProposalStatus][]models.ProposalStatus{
	models.ProposalStatusPending: {
		models.ProposalStatusAccepted,
		models.ProposalStatusRejected,
		models.ProposalStatusInterviewing,
	},
	models.ProposalStatusInterviewing: {
		models.ProposalStatusAccepted,
		models.ProposalStatusRejected,
	},
}

// CanTransition reports whether from -> to is an edge of the review lifecycle.
func CanTransition(from, to models.ProposalStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransitionResult describes a persisted status change. It is returned even
// when a downstream step (notification, thread creation) failed.
type TransitionResult struct {
	Proposal      *models.Proposal
	Previous      models.ProposalStatus
	Notification  *models.Notification
	ThreadID      string
	ThreadCreated bool
}

type ProposalService interface {
	Submit(ctx context.Context, req dto.SubmitProposalRequest) (*models.Proposal, error)
	// Transition moves a proposal along the review lifecycle.
	Transition(ctx context.Context, proposalID string, target models.ProposalStatus) (*TransitionResult, error)
	// Review is Transition on behalf of reviewerID, who must own the job.
	Review(ctx context.Context, reviewerID, proposalID string, target models.ProposalStatus) (*TransitionResult, error)
	GetProposal(ctx context.Context, actorID, proposalID string) (*models.Proposal, error)
	GetJobProposals(ctx context.Context, ownerID, jobID string) ([]models.Proposal, error)
	GetMyProposals(ctx context.Context, applicantID string) ([]models.Proposal, error)
}

type proposalService struct {
	proposalRepo repositories.ProposalRepository
	jobRepo      repositories.JobRepository
	notifier     chatservice.Notifier
	registry     chatservice.Registry
}

func NewProposalService(
	proposalRepo repositories.ProposalRepository,
	jobRepo repositories.JobRepository,
	notifier chatservice.Notifier,
	registry chatservice.Registry,
) ProposalService {
	return &proposalService{
		proposalRepo: proposalRepo,
		jobRepo:      jobRepo,
		notifier:     notifier,
		registry:     registry,
	}
}

// Submit creates a pending proposal and notifies both parties, one Notify
// call each. Notification failures come back as DependencyError alongside
// the stored proposal.
func (s *proposalService) Submit(ctx context.Context, req dto.SubmitProposalRequest) (*models.Proposal, error) {
	if err := validator.Default().Validate(&req); err != nil {
		return nil, validationFailed(err)
	}

	job, err := s.jobRepo.FindByID(ctx, req.JobID)
	if err != nil {
		if errors.Is(err, repositories.ErrJobNotFound) {
			return nil, apperrors.ErrJobNotFound.WithError(err)
		}
		return nil, apperrors.DependencyError(err, proposalDomain)
	}
	if job.OwnerID == req.ApplicantID {
		return nil, apperrors.ErrInvalidOperation(proposalDomain, "cannot apply to your own job")
	}

	proposal := &models.Proposal{
		JobID:       job.ID,
		ApplicantID: req.ApplicantID,
		OwnerID:     job.OwnerID,
		Status:      models.ProposalStatusPending,
		CoverLetter: req.CoverLetter,
	}
	if err := s.proposalRepo.Create(ctx, proposal); err != nil {
		return nil, apperrors.DependencyError(err, proposalDomain)
	}

	ctx = logger.WithCorrelationID(ctx, proposal.ID)
	data := &dto.NotificationData{ProposalID: proposal.ID, JobID: job.ID, Status: string(proposal.Status)}

	var errs []error
	if _, err := s.notifier.Notify(ctx, dto.NotifyRequest{
		TargetID:  job.OwnerID,
		Title:     "New proposal",
		Body:      fmt.Sprintf("You received a new proposal for \"%s\"", job.Title),
		Category:  models.NotificationCategoryNewProposal,
		RelatedID: proposal.ID,
		Data:      data,
	}); err != nil {
		errs = append(errs, err)
	}
	if _, err := s.notifier.Notify(ctx, dto.NotifyRequest{
		TargetID:  req.ApplicantID,
		Title:     "Proposal sent",
		Body:      fmt.Sprintf("Your proposal for \"%s\" was submitted", job.Title),
		Category:  models.NotificationCategoryProposalStatus,
		RelatedID: proposal.ID,
		Data:      data,
	}); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		logger.CtxWithError(ctx, "proposal notifications failed", errors.Join(errs...))
		return proposal, apperrors.DependencyError(errors.Join(errs...), proposalDomain)
	}
	logger.CtxInfo(ctx, "proposal submitted", "job_id", job.ID, "applicant_id", req.ApplicantID)
	return proposal, nil
}

func (s *proposalService) Review(ctx context.Context, reviewerID, proposalID string, target models.ProposalStatus) (*TransitionResult, error) {
	proposal, err := s.find(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.OwnerID != reviewerID {
		return nil, apperrors.ErrNotJobOwner
	}
	return s.Transition(ctx, proposalID, target)
}

// Transition persists the new status with a compare-and-set on the previous
// one, then emits exactly one notification to the applicant and, for
// interviewing, makes sure the conversation thread exists.
func (s *proposalService) Transition(ctx context.Context, proposalID string, target models.ProposalStatus) (*TransitionResult, error) {
	if _, ok := models.ParseProposalStatus(string(target)); !ok {
		return nil, apperrors.ErrUnknownStatus
	}
	ctx = logger.WithCorrelationID(ctx, proposalID)

	var (
		proposal *models.Proposal
		previous models.ProposalStatus
	)
	for attempt := 0; ; attempt++ {
		p, err := s.find(ctx, proposalID)
		if err != nil {
			return nil, err
		}
		if !CanTransition(p.Status, target) {
			return nil, apperrors.TransitionRejected(string(p.Status), string(target))
		}

		err = s.proposalRepo.UpdateStatus(ctx, p.ID, p.Status, target)
		if err == nil {
			proposal, previous = p, p.Status
			break
		}
		if !errors.Is(err, repositories.ErrStatusChanged) || attempt+1 >= casRetries {
			return nil, apperrors.DependencyError(err, proposalDomain)
		}
		logger.CtxDebug(ctx, "proposal status changed concurrently, re-reading", "attempt", attempt+1)
	}

	proposal.Status = target
	result := &TransitionResult{Proposal: proposal, Previous: previous}

	var errs []error
	notification, err := s.notifier.Notify(ctx, statusNotification(proposal, previous))
	if err != nil {
		errs = append(errs, err)
	}
	result.Notification = notification

	if target == models.ProposalStatusInterviewing {
		threadID, created, err := s.registry.CreateOrGet(ctx, proposal)
		if err != nil {
			errs = append(errs, err)
		}
		result.ThreadID, result.ThreadCreated = threadID, created
	}

	logger.CtxInfo(ctx, "proposal transitioned", "from", previous, "to", target)
	if len(errs) > 0 {
		joined := errors.Join(errs...)
		logger.CtxWithError(ctx, "proposal transition side effects failed", joined)
		return result, apperrors.DependencyError(joined, proposalDomain)
	}
	return result, nil
}

func (s *proposalService) GetProposal(ctx context.Context, actorID, proposalID string) (*models.Proposal, error) {
	proposal, err := s.find(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.ApplicantID != actorID && proposal.OwnerID != actorID {
		return nil, apperrors.ErrInsufficientPermissions
	}
	return proposal, nil
}

func (s *proposalService) GetJobProposals(ctx context.Context, ownerID, jobID string) ([]models.Proposal, error) {
	job, err := s.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repositories.ErrJobNotFound) {
			return nil, apperrors.ErrJobNotFound.WithError(err)
		}
		return nil, apperrors.DependencyError(err, proposalDomain)
	}
	if job.OwnerID != ownerID {
		return nil, apperrors.ErrNotJobOwner
	}

	proposals, err := s.proposalRepo.FindByJob(ctx, jobID)
	if err != nil {
		return nil, apperrors.DependencyError(err, proposalDomain)
	}
	return proposals, nil
}

func (s *proposalService) GetMyProposals(ctx context.Context, applicantID string) ([]models.Proposal, error) {
	proposals, err := s.proposalRepo.FindByApplicant(ctx, applicantID)
	if err != nil {
		return nil, apperrors.DependencyError(err, proposalDomain)
	}
	return proposals, nil
}

func (s *proposalService) find(ctx context.Context, proposalID string) (*models.Proposal, error) {
	proposal, err := s.proposalRepo.FindByID(ctx, proposalID)
	if err != nil {
		if errors.Is(err, repositories.ErrProposalNotFound) {
			return nil, apperrors.ErrProposalNotFound.WithError(err)
		}
		return nil, apperrors.DependencyError(err, proposalDomain)
	}
	return proposal, nil
}

func statusNotification(p *models.Proposal, previous models.ProposalStatus) dto.NotifyRequest {
	var title, body string
	switch p.Status {
	case models.ProposalStatusInterviewing:
		title, body = "Interview invitation", "The employer wants to talk to you about your proposal."
	case models.ProposalStatusAccepted:
		title, body = "Proposal accepted", "Congratulations! Your proposal was accepted."
	case models.ProposalStatusRejected:
		title, body = "Proposal declined", "Unfortunately your proposal was not selected."
	default:
		title, body = "Proposal updated", fmt.Sprintf("Your proposal is now %s.", p.Status)
	}

	return dto.NotifyRequest{
		TargetID:  p.ApplicantID,
		Title:     title,
		Body:      body,
		Category:  models.NotificationCategoryProposalStatus,
		RelatedID: p.ID,
		Data: &dto.NotificationData{
			ProposalID:     p.ID,
			JobID:          p.JobID,
			Status:         string(p.Status),
			PreviousStatus: string(previous),
		},
	}
}
