package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Direction of goods movement for a delivery
type Direction string

const (
	DirectionInbound  Direction = "INBOUND"  // supplier -> warehouse
	DirectionOutbound Direction = "OUTBOUND" // warehouse -> customer
)

// IsValid checks the direction is one of the known values
func (d Direction) IsValid() bool {
	return d == DirectionInbound || d == DirectionOutbound
}

// DeliveryStatus values are kept exactly as the dashboards display them.
type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "Pending"
	StatusAwaiting  DeliveryStatus = "Awaiting"
	StatusInTransit DeliveryStatus = "In Transit"
	StatusDelivered DeliveryStatus = "Delivered"
	StatusReceived  DeliveryStatus = "Received"
)

func (s DeliveryStatus) String() string {
	return string(s)
}

// lifecycle is the ordered forward path for one direction. The last entry is
// terminal and the only backward edge is terminal -> first.
type lifecycle struct {
	steps    []DeliveryStatus
	progress map[DeliveryStatus]int
}

var lifecycles = map[Direction]lifecycle{
	DirectionOutbound: {
		steps: []DeliveryStatus{StatusPending, StatusInTransit, StatusDelivered},
		progress: map[DeliveryStatus]int{
			StatusPending:   0,
			StatusInTransit: 50,
			StatusDelivered: 100,
		},
	},
	DirectionInbound: {
		steps: []DeliveryStatus{StatusAwaiting, StatusInTransit, StatusReceived},
		progress: map[DeliveryStatus]int{
			StatusAwaiting:  33,
			StatusInTransit: 66,
			StatusReceived:  100,
		},
	},
}

// transitions maps direction -> current -> the single allowed next status.
var transitions = buildTransitions()

func buildTransitions() map[Direction]map[DeliveryStatus]DeliveryStatus {
	table := make(map[Direction]map[DeliveryStatus]DeliveryStatus, len(lifecycles))
	for dir, lc := range lifecycles {
		next := make(map[DeliveryStatus]DeliveryStatus, len(lc.steps))
		for i, s := range lc.steps {
			if i+1 < len(lc.steps) {
				next[s] = lc.steps[i+1]
			} else {
				next[s] = lc.steps[0]
			}
		}
		table[dir] = next
	}
	return table
}

// InitialStatus is the status a new delivery starts in.
func InitialStatus(dir Direction) DeliveryStatus {
	return lifecycles[dir].steps[0]
}

// TerminalStatus is Delivered for outbound and Received for inbound.
func TerminalStatus(dir Direction) DeliveryStatus {
	steps := lifecycles[dir].steps
	return steps[len(steps)-1]
}

// IsValidStatus reports whether status belongs to the direction's lifecycle.
func IsValidStatus(dir Direction, status DeliveryStatus) bool {
	_, ok := transitions[dir][status]
	return ok
}

// NextStatus returns the one status reachable from current.
func NextStatus(dir Direction, current DeliveryStatus) (DeliveryStatus, error) {
	next, ok := transitions[dir][current]
	if !ok {
		return "", NewStateError("UNKNOWN_STATUS", fmt.Sprintf("status %q is not valid for %s deliveries", current, dir))
	}
	return next, nil
}

// CanTransition checks the transition table.
func CanTransition(dir Direction, from, to DeliveryStatus) bool {
	next, ok := transitions[dir][from]
	return ok && next == to
}

// IsReset reports whether from -> to is the terminal -> initial cycle restart.
func IsReset(dir Direction, from, to DeliveryStatus) bool {
	return from == TerminalStatus(dir) && to == InitialStatus(dir)
}

// Progress maps a status to the 0-100 indicator. Outbound and inbound use
// different scales; unknown statuses report 0.
func Progress(dir Direction, status DeliveryStatus) int {
	return lifecycles[dir].progress[status]
}

// Delivery is the physical movement of goods fulfilling exactly one accepted order.
type Delivery struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID          uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"order_id"`
	Direction        Direction      `gorm:"type:varchar(10);not null;index" json:"direction"`
	Status           DeliveryStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	CounterpartyName string         `gorm:"type:varchar(255);not null" json:"counterparty_name"`
	TotalQuantity    int            `gorm:"type:int;not null" json:"total_quantity"`
	ShippedDate      *time.Time     `json:"shipped_date"`
	ReceivedDate     *time.Time     `json:"received_date"`
	Lines            []DeliveryLine `gorm:"foreignKey:DeliveryID;constraint:OnDelete:CASCADE" json:"lines"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func (d *Delivery) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Progress returns the indicator for the current status.
func (d *Delivery) Progress() int {
	return Progress(d.Direction, d.Status)
}

// DeliveryLine holds the quantities copied from the order at acceptance time.
type DeliveryLine struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	DeliveryID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"delivery_id"`
	OrderLineID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_line_id"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	ProductName     string          `gorm:"type:varchar(255);not null" json:"product_name"`
	QuantityShipped int             `gorm:"type:int;not null" json:"quantity_shipped"`
	SellPrice       decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"sell_price"`
	PurchasePrice   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"purchase_price"`
	DiscountPercent decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0" json:"discount_percent"`
	ExpiryDate      *time.Time      `json:"expiry_date"`
}

func (l *DeliveryLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Total is the line value after discount.
func (l DeliveryLine) Total() decimal.Decimal {
	return LineTotal(l.SellPrice, l.QuantityShipped, l.DiscountPercent)
}

// NewDeliveryFromOrder builds the single delivery for an accepted order. The
// delivery owns its own copy of the line quantities.
func NewDeliveryFromOrder(order *Order) (*Delivery, error) {
	if !order.IsAccepted() {
		return nil, NewStateError("ORDER_NOT_ACCEPTED", "delivery can only be created from an accepted order")
	}
	if len(order.Lines) == 0 {
		return nil, NewValidationError("lines", "order has no lines to deliver")
	}

	dir := order.Direction()
	delivery := &Delivery{
		ID:               uuid.New(),
		OrderID:          order.ID,
		Direction:        dir,
		Status:           InitialStatus(dir),
		CounterpartyName: order.CounterpartyName,
		Lines:            make([]DeliveryLine, 0, len(order.Lines)),
	}
	for _, ol := range order.Lines {
		delivery.Lines = append(delivery.Lines, DeliveryLine{
			ID:              uuid.New(),
			DeliveryID:      delivery.ID,
			OrderLineID:     ol.ID,
			ProductID:       ol.ProductID,
			ProductName:     ol.ProductName,
			QuantityShipped: ol.Quantity,
			SellPrice:       ol.UnitPrice,
			PurchasePrice:   ol.PurchasePrice,
			DiscountPercent: ol.DiscountPercent,
		})
		delivery.TotalQuantity += ol.Quantity
	}
	return delivery, nil
}

// ApplyTransition moves the delivery to status `to` using the transition
// table. Dates are stamped once and never cleared; a reset keeps them.
func (d *Delivery) ApplyTransition(to DeliveryStatus, now time.Time) error {
	if !d.Direction.IsValid() {
		return NewStateError("INVALID_DIRECTION", fmt.Sprintf("unknown delivery direction %q", d.Direction))
	}
	if !CanTransition(d.Direction, d.Status, to) {
		return NewStateError("ILLEGAL_TRANSITION",
			fmt.Sprintf("cannot move %s delivery from %q to %q", d.Direction, d.Status, to))
	}

	switch to {
	case StatusInTransit:
		if d.ShippedDate == nil {
			d.ShippedDate = dateOnly(now)
		}
	case StatusReceived:
		for i, l := range d.Lines {
			if l.ExpiryDate == nil {
				return NewValidationError(fmt.Sprintf("lines[%d].expiry_date", i),
					fmt.Sprintf("expiry date is required for %s before receiving", l.ProductName))
			}
		}
		if d.ReceivedDate == nil {
			d.ReceivedDate = dateOnly(now)
		}
	case StatusDelivered:
		if d.ReceivedDate == nil {
			d.ReceivedDate = dateOnly(now)
		}
	}

	d.Status = to
	return nil
}

// Clone returns a deep copy so callers can never mutate stored state.
func (d *Delivery) Clone() *Delivery {
	c := *d
	c.ShippedDate = cloneTime(d.ShippedDate)
	c.ReceivedDate = cloneTime(d.ReceivedDate)
	c.Lines = make([]DeliveryLine, len(d.Lines))
	for i, l := range d.Lines {
		l.ExpiryDate = cloneTime(l.ExpiryDate)
		c.Lines[i] = l
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func dateOnly(t time.Time) *time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}
