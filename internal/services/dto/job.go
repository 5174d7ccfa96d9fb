package dto

import (
	"time"

	"hiresync/internal/models"
)

type CreateJobRequest struct {
	OwnerID string `json:"-"` // Set by server
	Title   string `json:"title" validate:"required,min=3,max=200"`
}

type JobResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

func NewJobResponse(j *models.Job) *JobResponse {
	return &JobResponse{ID: j.ID, OwnerID: j.OwnerID, Title: j.Title, CreatedAt: j.CreatedAt}
}
