package repository

import (
	"context"

	"fulfillment/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MovementRepository interface {
	Create(ctx context.Context, movements ...*model.StockMovement) error
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]model.StockMovement, error)
}

type movementRepository struct {
	db *gorm.DB
}

func NewMovementRepository(db *gorm.DB) MovementRepository {
	return &movementRepository{db: db}
}

func (r *movementRepository) Create(ctx context.Context, movements ...*model.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(movements).Error
}

func (r *movementRepository) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]model.StockMovement, error) {
	var movements []model.StockMovement
	if err := GetDB(ctx, r.db).
		Where("batch_id = ?", batchID).
		Order("created_at ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}
