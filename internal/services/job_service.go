package services

import (
	"context"
	"errors"

	"hiresync/internal/logger"
	"hiresync/internal/models"
	"hiresync/internal/repositories"
	"hiresync/internal/services/dto"
	"hiresync/internal/validator"
	"hiresync/pkg/apperrors"
)

const jobDomain = "job"

type JobService struct {
	jobRepo  repositories.JobRepository
	userRepo repositories.UserRepository
}

func NewJobService(jobRepo repositories.JobRepository, userRepo repositories.UserRepository) *JobService {
	return &JobService{jobRepo: jobRepo, userRepo: userRepo}
}

// Job Operations

// CreateJob публикует вакансию. Владелец должен быть известен, иначе
// чат по откликам не сможет показать его имя.
func (s *JobService) CreateJob(ctx context.Context, req dto.CreateJobRequest) (*models.Job, error) {
	if err := validator.Default().Validate(&req); err != nil {
		return nil, validationFailed(err)
	}

	if _, err := s.userRepo.FindByID(ctx, req.OwnerID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidOperation(jobDomain, "sync your profile before publishing jobs")
		}
		return nil, apperrors.DependencyError(err, jobDomain)
	}

	job := &models.Job{OwnerID: req.OwnerID, Title: req.Title}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, apperrors.DependencyError(err, jobDomain)
	}

	logger.CtxInfo(ctx, "job created", "job_id", job.ID)
	return job, nil
}

func (s *JobService) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	job, err := s.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repositories.ErrJobNotFound) {
			return nil, apperrors.ErrJobNotFound.WithError(err)
		}
		return nil, apperrors.DependencyError(err, jobDomain)
	}
	return job, nil
}

func (s *JobService) GetMyJobs(ctx context.Context, ownerID string) ([]models.Job, error) {
	jobs, err := s.jobRepo.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.DependencyError(err, jobDomain)
	}
	return jobs, nil
}
