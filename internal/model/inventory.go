package model

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product represents an item that can be stocked in batches
type Product struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SKU          string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name"`
	ReorderLevel int            `gorm:"type:int;default:0;not null" json:"reorder_level"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// InventoryBatch is a received lot of a product. There is exactly one batch per
// inbound delivery line, enforced by the unique index on delivery_line_id.
type InventoryBatch struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BatchID           string    `gorm:"type:varchar(64);not null;index" json:"batch_id"`
	ProductID         uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	ProductName       string    `gorm:"type:varchar(255);not null" json:"product_name"`
	DeliveryID        uuid.UUID `gorm:"type:uuid;not null;index" json:"delivery_id"`
	DeliveryLineID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"delivery_line_id"`
	QuantityOnHand    int       `gorm:"type:int;not null" json:"quantity_on_hand"`
	QuantityDelivered int       `gorm:"type:int;not null" json:"quantity_delivered"`
	ExpiryDate        time.Time `gorm:"not null;index" json:"expiry_date"`
	ReceivedDate      time.Time `gorm:"not null" json:"received_date"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (b *InventoryBatch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Consume removes qty from on-hand stock keeping 0 <= on hand <= delivered.
func (b *InventoryBatch) Consume(qty int) error {
	if qty <= 0 {
		return NewValidationError("quantity", "quantity must be greater than zero")
	}
	if qty > b.QuantityOnHand {
		return NewValidationError("quantity", "quantity exceeds stock on hand")
	}
	b.QuantityOnHand -= qty
	return nil
}

// IsExpired reports whether the batch expiry date is before the given day.
func (b *InventoryBatch) IsExpired(now time.Time) bool {
	return b.ExpiryDate.Before(*dateOnly(now))
}

// BatchCode derives the human-readable batch id from the delivery line.
func BatchCode(received time.Time, lineID uuid.UUID) string {
	return "B" + received.Format("20060102") + "-" + strings.ToUpper(lineID.String()[:8])
}

// BuildBatchesForDelivery converts each line of a received inbound delivery
// into a batch. Batches are keyed by delivery line so building twice yields
// the same set once persisted.
func BuildBatchesForDelivery(d *Delivery) ([]InventoryBatch, error) {
	if d.Direction != DirectionInbound {
		return nil, NewStateError("NOT_INBOUND", "inventory batches are only created for inbound deliveries")
	}
	if d.Status != StatusReceived {
		return nil, NewStateError("NOT_RECEIVED", "inventory batches are only created once a delivery is Received")
	}
	if d.ReceivedDate == nil {
		return nil, NewStateError("MISSING_RECEIVED_DATE", "received delivery has no received date")
	}

	batches := make([]InventoryBatch, 0, len(d.Lines))
	for i, l := range d.Lines {
		if l.ExpiryDate == nil {
			return nil, NewValidationError("lines["+strconv.Itoa(i)+"].expiry_date", "expiry date is required")
		}
		batches = append(batches, InventoryBatch{
			BatchID:           BatchCode(*d.ReceivedDate, l.ID),
			ProductID:         l.ProductID,
			ProductName:       l.ProductName,
			DeliveryID:        d.ID,
			DeliveryLineID:    l.ID,
			QuantityOnHand:    l.QuantityShipped,
			QuantityDelivered: l.QuantityShipped,
			ExpiryDate:        *l.ExpiryDate,
			ReceivedDate:      *d.ReceivedDate,
		})
	}
	return batches, nil
}

// StockClass is the low-stock classification of a batch
type StockClass string

const (
	StockOutOfStock StockClass = "Out of Stock"
	StockLow        StockClass = "Low Stock"
	StockAvailable  StockClass = "Available"
)

// Classify buckets on-hand quantity against the product's reorder level.
func Classify(quantityOnHand, reorderLevel int) StockClass {
	switch {
	case quantityOnHand <= 0:
		return StockOutOfStock
	case quantityOnHand <= reorderLevel:
		return StockLow
	default:
		return StockAvailable
	}
}

// SortByExpiry orders batches soonest-expiring first. Ties fall back to the
// received date and then the id so the order is deterministic.
func SortByExpiry(batches []InventoryBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		if !a.ExpiryDate.Equal(b.ExpiryDate) {
			return a.ExpiryDate.Before(b.ExpiryDate)
		}
		if !a.ReceivedDate.Equal(b.ReceivedDate) {
			return a.ReceivedDate.Before(b.ReceivedDate)
		}
		return a.ID.String() < b.ID.String()
	})
}

// Movement types
const (
	MovementIn  = "IN"
	MovementOut = "OUT"
)

// StockMovement records every change to a batch's quantity on hand
type StockMovement struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BatchID         uuid.UUID `gorm:"type:uuid;not null;index" json:"batch_id"`
	ProductID       uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	MovementType    string    `gorm:"type:varchar(10);not null" json:"movement_type"` // IN, OUT
	QuantityChanged int       `gorm:"type:int;not null" json:"quantity_changed"`
	QuantityAfter   int       `gorm:"type:int;not null" json:"quantity_after"`
	Reference       string    `gorm:"type:varchar(255)" json:"reference"`
	CreatedAt       time.Time `json:"created_at"`
}

func (m *StockMovement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
