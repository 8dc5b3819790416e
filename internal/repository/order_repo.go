package repository

import (
	"context"
	"time"

	"fulfillment/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByIDWithLines(ctx context.Context, id uuid.UUID) (*model.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ReplaceLines(ctx context.Context, orderID uuid.UUID, lines []model.OrderLine) error
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, status string, acceptedAt *time.Time) error
	List(ctx context.Context, kind string, page, limit int) ([]model.Order, int64, error)
	ListAccepted(ctx context.Context, kind string, from, to *time.Time) ([]model.Order, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return translate(GetDB(ctx, r.db).Create(order).Error)
}

func (r *orderRepository) FindByIDWithLines(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).
		Preload("Lines").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *orderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	if err := GetDB(ctx, r.db).Where("order_id = ?", id).Find(&order.Lines).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) ReplaceLines(ctx context.Context, orderID uuid.UUID, lines []model.OrderLine) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("order_id = ?", orderID).Delete(&model.OrderLine{}).Error; err != nil {
		return err
	}
	for i := range lines {
		lines[i].OrderID = orderID
	}
	if len(lines) == 0 {
		return nil
	}
	return db.Create(&lines).Error
}

// UpdateStatus only succeeds while the stored status still equals expected.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, expected, status string, acceptedAt *time.Time) error {
	updates := map[string]interface{}{"status": status}
	if acceptedAt != nil {
		updates["accepted_at"] = *acceptedAt
	}
	res := GetDB(ctx, r.db).Model(&model.Order{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrConcurrencyConflict
	}
	return nil
}

func (r *orderRepository) List(ctx context.Context, kind string, page, limit int) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Order{})
	if kind != "" {
		db = db.Where("kind = ?", kind)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.
		Preload("Lines").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// ListAccepted returns accepted orders with lines. The optional bounds are a
// coarse pre-filter on accepted_at; exact day matching happens in the aggregator.
func (r *orderRepository) ListAccepted(ctx context.Context, kind string, from, to *time.Time) ([]model.Order, error) {
	db := GetDB(ctx, r.db).Preload("Lines").Where("status = ?", model.OrderStatusAccepted)
	if kind != "" {
		db = db.Where("kind = ?", kind)
	}
	if from != nil {
		db = db.Where("accepted_at >= ?", from.AddDate(0, 0, -1))
	}
	if to != nil {
		db = db.Where("accepted_at < ?", to.AddDate(0, 0, 2))
	}
	var orders []model.Order
	if err := db.Order("accepted_at DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
