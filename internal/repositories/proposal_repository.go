package repositories

import (
	"context"
	"time"

	"hiresync/internal/changefeed"
	"hiresync/internal/models"

	"gorm.io/gorm"
)

type ProposalRepository interface {
	Create(ctx context.Context, proposal *models.Proposal) error
	FindByID(ctx context.Context, id string) (*models.Proposal, error)
	FindByJob(ctx context.Context, jobID string) ([]models.Proposal, error)
	FindByApplicant(ctx context.Context, applicantID string) ([]models.Proposal, error)
	// UpdateStatus is a compare-and-set: it fails with ErrStatusChanged when
	// the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to models.ProposalStatus) error
}

type ProposalRepositoryImpl struct {
	db   *gorm.DB
	feed changefeed.Publisher
}

func NewProposalRepository(db *gorm.DB, feed changefeed.Publisher) ProposalRepository {
	return &ProposalRepositoryImpl{db: db, feed: feed}
}

func (r *ProposalRepositoryImpl) Create(ctx context.Context, proposal *models.Proposal) error {
	if err := r.db.WithContext(ctx).Create(proposal).Error; err != nil {
		return err
	}
	publish(ctx, r.feed, changefeed.NewEvent(changefeed.TopicProposals, proposal.JobID, proposal.ID, changefeed.OpInsert))
	return nil
}

func (r *ProposalRepositoryImpl) FindByID(ctx context.Context, id string) (*models.Proposal, error) {
	var proposal models.Proposal
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&proposal).Error; err != nil {
		return nil, notFound(err, ErrProposalNotFound)
	}
	return &proposal, nil
}

func (r *ProposalRepositoryImpl) FindByJob(ctx context.Context, jobID string) ([]models.Proposal, error) {
	var proposals []models.Proposal
	err := r.db.WithContext(ctx).Where("job_id = ?", jobID).Order("created_at DESC").Find(&proposals).Error
	return proposals, err
}

func (r *ProposalRepositoryImpl) FindByApplicant(ctx context.Context, applicantID string) ([]models.Proposal, error) {
	var proposals []models.Proposal
	err := r.db.WithContext(ctx).Where("applicant_id = ?", applicantID).Order("created_at DESC").Find(&proposals).Error
	return proposals, err
}

func (r *ProposalRepositoryImpl) UpdateStatus(ctx context.Context, id string, from, to models.ProposalStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Proposal{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Proposal{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrProposalNotFound
		}
		return ErrStatusChanged
	}

	publish(ctx, r.feed, changefeed.NewEvent(changefeed.TopicProposals, id, id, changefeed.OpUpdate))
	return nil
}
