package repository

import (
	"context"
	"time"

	"fulfillment/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type IssueRepository interface {
	Create(ctx context.Context, issue *model.Issue) error
	FindByIDWithLines(ctx context.Context, id uuid.UUID) (*model.Issue, error)
	UpdateResolution(ctx context.Context, id uuid.UUID, status model.IssueStatus, resolvedAt time.Time) error
	List(ctx context.Context, deliveryID *uuid.UUID, page, limit int) ([]model.Issue, int64, error)
}

type issueRepository struct {
	db *gorm.DB
}

func NewIssueRepository(db *gorm.DB) IssueRepository {
	return &issueRepository{db: db}
}

func (r *issueRepository) Create(ctx context.Context, issue *model.Issue) error {
	return GetDB(ctx, r.db).Create(issue).Error
}

func (r *issueRepository) FindByIDWithLines(ctx context.Context, id uuid.UUID) (*model.Issue, error) {
	var issue model.Issue
	if err := GetDB(ctx, r.db).Preload("Lines").First(&issue, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &issue, nil
}

// UpdateResolution moves a Pending issue to its outcome; a second resolution loses.
func (r *issueRepository) UpdateResolution(ctx context.Context, id uuid.UUID, status model.IssueStatus, resolvedAt time.Time) error {
	res := GetDB(ctx, r.db).Model(&model.Issue{}).
		Where("id = ? AND resolution_status = ?", id, model.IssuePending).
		Updates(map[string]interface{}{
			"resolution_status": status,
			"resolved_at":       resolvedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrConcurrencyConflict
	}
	return nil
}

func (r *issueRepository) List(ctx context.Context, deliveryID *uuid.UUID, page, limit int) ([]model.Issue, int64, error) {
	var issues []model.Issue
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Issue{})
	if deliveryID != nil {
		db = db.Where("delivery_id = ?", *deliveryID)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Lines").Order("created_at DESC").Offset(offset).Limit(limit).Find(&issues).Error; err != nil {
		return nil, 0, err
	}
	return issues, total, nil
}
