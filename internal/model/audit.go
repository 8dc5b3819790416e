package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateOrder        = "CREATE_ORDER"
	ActionUpdateOrderLines   = "UPDATE_ORDER_LINES"
	ActionAcceptOrder        = "ACCEPT_ORDER"
	ActionRejectOrder        = "REJECT_ORDER"
	ActionDeliveryTransition = "DELIVERY_TRANSITION"
	ActionSetLineExpiry      = "SET_LINE_EXPIRY"
	ActionCreateBatches      = "CREATE_INVENTORY_BATCHES"
	ActionConsumeBatch       = "CONSUME_BATCH"
	ActionCreateProduct      = "CREATE_PRODUCT"
	ActionSubmitIssue        = "SUBMIT_ISSUE"
	ActionResolveIssue       = "RESOLVE_ISSUE"
)

// AuditLog tracks What and When for fulfillment changes
type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Actor      string    `gorm:"type:varchar(100);index" json:"actor"`
	Action     string    `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string    `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string    `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string    `gorm:"type:text" json:"details"`                       // Serialized JSON payload of the action
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
