package services

import (
	"errors"
	"strings"
	"testing"

	"hiresync/internal/models"
	"hiresync/internal/repositories"
	"hiresync/internal/services/dto"
	"hiresync/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.ProposalStatus
		want     bool
	}{
		{models.ProposalStatusPending, models.ProposalStatusInterviewing, true},
		{models.ProposalStatusPending, models.ProposalStatusAccepted, true},
		{models.ProposalStatusPending, models.ProposalStatusRejected, true},
		{models.ProposalStatusInterviewing, models.ProposalStatusAccepted, true},
		{models.ProposalStatusInterviewing, models.ProposalStatusRejected, true},
		{models.ProposalStatusInterviewing, models.ProposalStatusPending, false},
		{models.ProposalStatusPending, models.ProposalStatusPending, false},
		{models.ProposalStatusAccepted, models.ProposalStatusRejected, false},
		{models.ProposalStatusRejected, models.ProposalStatusAccepted, false},
		{models.ProposalStatusAccepted, models.ProposalStatusInterviewing, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestTransition_PendingToInterviewing(t *testing.T) {
	f := newFixture(t)
	p := f.proposal(t, models.ProposalStatusPending)

	result, err := f.proposals.Transition(f.ctx, p.ID, models.ProposalStatusInterviewing)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusInterviewing, result.Proposal.Status)
	assert.Equal(t, models.ProposalStatusPending, result.Previous)
	assert.True(t, result.ThreadCreated)

	// exactly one notification, to the applicant
	assert.Len(t, f.notificationsOf(t, f.seeker.ID), 1)
	assert.Empty(t, f.notificationsOf(t, f.owner.ID))
	require.NotNil(t, result.Notification)
	assert.Equal(t, models.NotificationCategoryProposalStatus, result.Notification.Category)

	thread, err := f.store.Chats().FindThreadByProposal(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, result.ThreadID, thread.ID)

	stored, err := f.store.Proposals().FindByID(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusInterviewing, stored.Status)
}

func TestTransition_TerminalIsRejected(t *testing.T) {
	f := newFixture(t)
	p := f.proposal(t, models.ProposalStatusAccepted)

	result, err := f.proposals.Transition(f.ctx, p.ID, models.ProposalStatusRejected)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTransitionRejected))

	stored, err := f.store.Proposals().FindByID(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusAccepted, stored.Status)
	assert.Empty(t, f.notificationsOf(t, f.seeker.ID))
}

func TestTransition_AcceptDoesNotOpenThread(t *testing.T) {
	f := newFixture(t)
	p := f.proposal(t, models.ProposalStatusPending)

	result, err := f.proposals.Transition(f.ctx, p.ID, models.ProposalStatusAccepted)
	require.NoError(t, err)
	assert.Empty(t, result.ThreadID)

	_, err = f.store.Chats().FindThreadByProposal(f.ctx, p.ID)
	assert.ErrorIs(t, err, repositories.ErrThreadNotFound)
}

func TestTransition_StatusWriteFailureSendsNothing(t *testing.T) {
	f := newFixture(t)
	p := f.proposal(t, models.ProposalStatusPending)
	f.store.FailOn("UpdateStatus", errors.New("write failed"))

	result, err := f.proposals.Transition(f.ctx, p.ID, models.ProposalStatusInterviewing)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeDependencyError))
	assert.Empty(t, f.notificationsOf(t, f.seeker.ID))

	_, err = f.store.Chats().FindThreadByProposal(f.ctx, p.ID)
	assert.ErrorIs(t, err, repositories.ErrThreadNotFound)
}

func TestTransition_DownstreamFailureKeepsStatus(t *testing.T) {
	f := newFixture(t)
	p := f.proposal(t, models.ProposalStatusPending)
	f.store.FailOn("CreateThread", errors.New("chat store down"))

	result, err := f.proposals.Transition(f.ctx, p.ID, models.ProposalStatusInterviewing)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeDependencyError))
	require.NotNil(t, result)
	assert.Equal(t, models.ProposalStatusInterviewing, result.Proposal.Status)
	require.NotNil(t, result.Notification)
	// уведомление ушло до создания чата и не должно обещать, что чат есть
	assert.NotContains(t, strings.ToLower(result.Notification.Body), "chat")

	stored, err := f.store.Proposals().FindByID(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusInterviewing, stored.Status)
}

func TestTransition_Errors(t *testing.T) {
	f := newFixture(t)

	_, err := f.proposals.Transition(f.ctx, "missing", models.ProposalStatusAccepted)
	assert.ErrorIs(t, err, apperrors.ErrProposalNotFound)

	p := f.proposal(t, models.ProposalStatusPending)
	_, err = f.proposals.Transition(f.ctx, p.ID, models.ProposalStatus("hired"))
	assert.ErrorIs(t, err, apperrors.ErrUnknownStatus)
}

func TestReview_OnlyJobOwner(t *testing.T) {
	f := newFixture(t)
	p := f.proposal(t, models.ProposalStatusPending)

	_, err := f.proposals.Review(f.ctx, f.seeker.ID, p.ID, models.ProposalStatusAccepted)
	assert.ErrorIs(t, err, apperrors.ErrNotJobOwner)

	result, err := f.proposals.Review(f.ctx, f.owner.ID, p.ID, models.ProposalStatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusAccepted, result.Proposal.Status)
}

func TestSubmit_NotifiesBothParties(t *testing.T) {
	f := newFixture(t)

	p, err := f.proposals.Submit(f.ctx, dto.SubmitProposalRequest{
		JobID:       f.job.ID,
		ApplicantID: f.seeker.ID,
		CoverLetter: "I have five years of Go.",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ProposalStatusPending, p.Status)
	assert.Equal(t, f.owner.ID, p.OwnerID)

	ownerNotes := f.notificationsOf(t, f.owner.ID)
	require.Len(t, ownerNotes, 1)
	assert.Equal(t, models.NotificationCategoryNewProposal, ownerNotes[0].Category)
	assert.Len(t, f.notificationsOf(t, f.seeker.ID), 1)
}

func TestSubmit_Rejects(t *testing.T) {
	f := newFixture(t)

	_, err := f.proposals.Submit(f.ctx, dto.SubmitProposalRequest{ApplicantID: f.seeker.ID})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	_, err = f.proposals.Submit(f.ctx, dto.SubmitProposalRequest{JobID: "missing", ApplicantID: f.seeker.ID})
	assert.ErrorIs(t, err, apperrors.ErrJobNotFound)

	_, err = f.proposals.Submit(f.ctx, dto.SubmitProposalRequest{JobID: f.job.ID, ApplicantID: f.owner.ID})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidOperation))
}

func TestGetProposal_Permissions(t *testing.T) {
	f := newFixture(t)
	p := f.proposal(t, models.ProposalStatusPending)

	_, err := f.proposals.GetProposal(f.ctx, f.seeker.ID, p.ID)
	require.NoError(t, err)
	_, err = f.proposals.GetProposal(f.ctx, f.owner.ID, p.ID)
	require.NoError(t, err)
	_, err = f.proposals.GetProposal(f.ctx, "stranger", p.ID)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientPermissions)

	_, err = f.proposals.GetJobProposals(f.ctx, f.seeker.ID, f.job.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotJobOwner)
	list, err := f.proposals.GetJobProposals(f.ctx, f.owner.ID, f.job.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	mine, err := f.proposals.GetMyProposals(f.ctx, f.seeker.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}
