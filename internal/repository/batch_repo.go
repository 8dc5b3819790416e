package repository

import (
	"context"
	"time"

	"fulfillment/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BatchListFilter narrows batch listings
type BatchListFilter struct {
	ProductID *uuid.UUID
	Page      int
	Limit     int
}

type BatchRepository interface {
	CreateIfAbsent(ctx context.Context, batches []model.InventoryBatch) (int64, error)
	FindByDeliveryID(ctx context.Context, deliveryID uuid.UUID) ([]model.InventoryBatch, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryBatch, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.InventoryBatch, error)
	UpdateQuantity(ctx context.Context, id uuid.UUID, quantityOnHand int) error
	List(ctx context.Context, filter BatchListFilter) ([]model.InventoryBatch, int64, error)
	ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]model.InventoryBatch, error)
}

type batchRepository struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) BatchRepository {
	return &batchRepository{db: db}
}

// CreateIfAbsent inserts batches, skipping any delivery line that already has
// one. It returns how many rows were actually inserted.
func (r *batchRepository) CreateIfAbsent(ctx context.Context, batches []model.InventoryBatch) (int64, error) {
	if len(batches) == 0 {
		return 0, nil
	}
	res := GetDB(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "delivery_line_id"}},
			DoNothing: true,
		}).
		Create(&batches)
	return res.RowsAffected, res.Error
}

func (r *batchRepository) FindByDeliveryID(ctx context.Context, deliveryID uuid.UUID) ([]model.InventoryBatch, error) {
	var batches []model.InventoryBatch
	if err := GetDB(ctx, r.db).
		Where("delivery_id = ?", deliveryID).
		Order("expiry_date ASC").
		Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

func (r *batchRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryBatch, error) {
	var batch model.InventoryBatch
	if err := GetDB(ctx, r.db).First(&batch, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &batch, nil
}

func (r *batchRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.InventoryBatch, error) {
	var batch model.InventoryBatch
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&batch).Error; err != nil {
		return nil, translate(err)
	}
	return &batch, nil
}

func (r *batchRepository) UpdateQuantity(ctx context.Context, id uuid.UUID, quantityOnHand int) error {
	return GetDB(ctx, r.db).Model(&model.InventoryBatch{}).
		Where("id = ?", id).
		Update("quantity_on_hand", quantityOnHand).Error
}

// List pages through batches soonest-expiring first.
func (r *batchRepository) List(ctx context.Context, filter BatchListFilter) ([]model.InventoryBatch, int64, error) {
	var batches []model.InventoryBatch
	var total int64

	db := GetDB(ctx, r.db).Model(&model.InventoryBatch{})
	if filter.ProductID != nil {
		db = db.Where("product_id = ?", *filter.ProductID)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := db.
		Order("expiry_date ASC").
		Order("received_date ASC").
		Offset(offset).Limit(filter.Limit).
		Find(&batches).Error; err != nil {
		return nil, 0, err
	}

	return batches, total, nil
}

func (r *batchRepository) ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]model.InventoryBatch, error) {
	var batches []model.InventoryBatch
	if err := GetDB(ctx, r.db).
		Where("expiry_date <= ? AND quantity_on_hand > 0", cutoff).
		Order("expiry_date ASC").
		Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}
