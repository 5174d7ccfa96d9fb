package dto

import (
	"time"

	"hiresync/internal/models"
)

// ---------------- Requests ----------------

type SubmitProposalRequest struct {
	JobID       string `json:"job_id" validate:"required"`
	ApplicantID string `json:"-"` // Set by server
	CoverLetter string `json:"cover_letter" validate:"max=5000"`
}

type TransitionRequest struct {
	Status string `json:"status" validate:"required,is-proposal-status"`
}

// ---------------- Responses ----------------

type ProposalResponse struct {
	ID          string                `json:"id"`
	JobID       string                `json:"job_id"`
	ApplicantID string                `json:"applicant_id"`
	OwnerID     string                `json:"owner_id"`
	Status      models.ProposalStatus `json:"status"`
	CoverLetter string                `json:"cover_letter,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

type TransitionResponse struct {
	Proposal      *ProposalResponse `json:"proposal"`
	ThreadID      string            `json:"thread_id,omitempty"`
	ThreadCreated bool              `json:"thread_created,omitempty"`
	Warning       string            `json:"warning,omitempty"`
}

func NewProposalResponse(p *models.Proposal) *ProposalResponse {
	return &ProposalResponse{
		ID:          p.ID,
		JobID:       p.JobID,
		ApplicantID: p.ApplicantID,
		OwnerID:     p.OwnerID,
		Status:      p.Status,
		CoverLetter: p.CoverLetter,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
