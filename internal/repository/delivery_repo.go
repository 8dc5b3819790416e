package repository

import (
	"context"
	"time"

	"fulfillment/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DeliveryRepository interface {
	Create(ctx context.Context, delivery *model.Delivery) error
	FindByIDWithLines(ctx context.Context, id uuid.UUID) (*model.Delivery, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Delivery, error)
	CompareAndSetStatus(ctx context.Context, delivery *model.Delivery, expected model.DeliveryStatus) error
	UpdateLineExpiry(ctx context.Context, deliveryID, lineID uuid.UUID, expiry time.Time) error
	List(ctx context.Context, direction model.Direction, page, limit int) ([]model.Delivery, int64, error)
}

type deliveryRepository struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) DeliveryRepository {
	return &deliveryRepository{db: db}
}

func (r *deliveryRepository) Create(ctx context.Context, delivery *model.Delivery) error {
	return translate(GetDB(ctx, r.db).Create(delivery).Error)
}

func (r *deliveryRepository) FindByIDWithLines(ctx context.Context, id uuid.UUID) (*model.Delivery, error) {
	var delivery model.Delivery
	if err := GetDB(ctx, r.db).
		Preload("Lines").
		First(&delivery, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &delivery, nil
}

func (r *deliveryRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Delivery, error) {
	var delivery model.Delivery
	if err := GetDB(ctx, r.db).
		Preload("Lines").
		First(&delivery, "order_id = ?", orderID).Error; err != nil {
		return nil, translate(err)
	}
	return &delivery, nil
}

// CompareAndSetStatus persists the delivery's new status and dates only if the
// stored status still equals expected. Losing the race yields ErrConcurrencyConflict.
func (r *deliveryRepository) CompareAndSetStatus(ctx context.Context, delivery *model.Delivery, expected model.DeliveryStatus) error {
	res := GetDB(ctx, r.db).Model(&model.Delivery{}).
		Where("id = ? AND status = ?", delivery.ID, expected).
		Updates(map[string]interface{}{
			"status":        delivery.Status,
			"shipped_date":  delivery.ShippedDate,
			"received_date": delivery.ReceivedDate,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrConcurrencyConflict
	}
	return nil
}

func (r *deliveryRepository) UpdateLineExpiry(ctx context.Context, deliveryID, lineID uuid.UUID, expiry time.Time) error {
	res := GetDB(ctx, r.db).Model(&model.DeliveryLine{}).
		Where("id = ? AND delivery_id = ?", lineID, deliveryID).
		Update("expiry_date", expiry)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *deliveryRepository) List(ctx context.Context, direction model.Direction, page, limit int) ([]model.Delivery, int64, error) {
	var deliveries []model.Delivery
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Delivery{})
	if direction != "" {
		db = db.Where("direction = ?", direction)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.
		Preload("Lines").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&deliveries).Error; err != nil {
		return nil, 0, err
	}

	return deliveries, total, nil
}
