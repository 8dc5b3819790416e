package model

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderKind distinguishes customer orders (sales) from supplier orders (purchases)
const (
	OrderKindCustomer = "CUSTOMER"
	OrderKindSupplier = "SUPPLIER"
)

// OrderStatus constants
const (
	OrderStatusPending  = "PENDING"
	OrderStatusAccepted = "ACCEPTED"
	OrderStatusRejected = "REJECTED"
)

var hundred = decimal.NewFromInt(100)

// Order is a request from a customer or to a supplier. Lines are frozen once accepted.
type Order struct {
	ID               uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	OrderCode        string      `gorm:"type:varchar(100);uniqueIndex;not null" json:"order_code"`
	Kind             string      `gorm:"type:varchar(20);not null;index" json:"kind"` // CUSTOMER, SUPPLIER
	CounterpartyName string      `gorm:"type:varchar(255);not null" json:"counterparty_name"`
	Status           string      `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	Note             string      `gorm:"type:text" json:"note"`
	Lines            []OrderLine `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"lines"`
	AcceptedAt       *time.Time  `json:"accepted_at"`
	CreatedAt        time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// BeforeCreate assigns the primary key client-side so every dialect behaves the same.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// IsAccepted reports whether the order has been converted into a delivery.
func (o *Order) IsAccepted() bool {
	return o.Status == OrderStatusAccepted
}

// Direction returns the delivery direction an accepted order produces.
func (o *Order) Direction() Direction {
	if o.Kind == OrderKindSupplier {
		return DirectionInbound
	}
	return DirectionOutbound
}

// Totals aggregates the order lines.
func (o *Order) Totals() Totals {
	return CalculateTotals(o.Lines)
}

// OrderLine represents a single product line within an Order
type OrderLine struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	ProductName     string          `gorm:"type:varchar(255);not null" json:"product_name"`
	Quantity        int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	PurchasePrice   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"purchase_price"`
	DiscountPercent decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0" json:"discount_percent"`
}

func (l *OrderLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Total is unitPrice * quantity * (1 - discount/100).
func (l OrderLine) Total() decimal.Decimal {
	return LineTotal(l.UnitPrice, l.Quantity, l.DiscountPercent)
}

// DiscountValue is the amount taken off the gross line value.
func (l OrderLine) DiscountValue() decimal.Decimal {
	return DiscountValue(l.UnitPrice, l.Quantity, l.DiscountPercent)
}

// CostTotal is purchasePrice * quantity.
func (l OrderLine) CostTotal() decimal.Decimal {
	return nonNegative(l.PurchasePrice).Mul(decimal.NewFromInt(int64(nonNegativeInt(l.Quantity))))
}

// ClampDiscount restricts a discount percentage to [0, 100].
func ClampDiscount(discount decimal.Decimal) decimal.Decimal {
	if discount.IsNegative() {
		return decimal.Zero
	}
	if discount.GreaterThan(hundred) {
		return hundred
	}
	return discount
}

// LineTotal computes price * quantity * (1 - discount/100). Negative price or
// quantity count as zero and the discount is clamped, so the result is never negative.
func LineTotal(price decimal.Decimal, quantity int, discount decimal.Decimal) decimal.Decimal {
	gross := nonNegative(price).Mul(decimal.NewFromInt(int64(nonNegativeInt(quantity))))
	factor := hundred.Sub(ClampDiscount(discount)).Div(hundred)
	return gross.Mul(factor)
}

// DiscountValue computes price * quantity * discount/100 with the same clamping as LineTotal.
func DiscountValue(price decimal.Decimal, quantity int, discount decimal.Decimal) decimal.Decimal {
	gross := nonNegative(price).Mul(decimal.NewFromInt(int64(nonNegativeInt(quantity))))
	return gross.Mul(ClampDiscount(discount)).Div(hundred)
}

// LenientLineTotal is LineTotal over raw form input. Anything that does not
// parse as a number counts as zero; it never fails.
func LenientLineTotal(price, quantity, discount string) decimal.Decimal {
	return LineTotal(ParseLenient(price), LenientQuantity(quantity), ParseLenient(discount))
}

var maxQuantity = decimal.NewFromInt(math.MaxInt32)

// LenientQuantity parses a form quantity, truncating fractions. Values outside
// [0, MaxInt32] count as zero like any other unusable input.
func LenientQuantity(s string) int {
	d := ParseLenient(s)
	if d.IsNegative() || d.GreaterThan(maxQuantity) {
		return 0
	}
	return int(d.IntPart())
}

// ParseLenient parses a decimal, treating blank or malformed text as zero.
func ParseLenient(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Totals are the order-level aggregates shown on order entry and in reports.
type Totals struct {
	Quantity      int             `json:"quantity"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	Value         decimal.Decimal `json:"value"`
}

// Add merges two partial totals; addition is associative so lines can be reduced in any order.
func (t Totals) Add(o Totals) Totals {
	return Totals{
		Quantity:      t.Quantity + o.Quantity,
		DiscountValue: t.DiscountValue.Add(o.DiscountValue),
		Value:         t.Value.Add(o.Value),
	}
}

// CalculateTotals reduces lines into quantity, discount value and net value.
func CalculateTotals(lines []OrderLine) Totals {
	totals := Totals{DiscountValue: decimal.Zero, Value: decimal.Zero}
	for _, l := range lines {
		totals = totals.Add(Totals{
			Quantity:      nonNegativeInt(l.Quantity),
			DiscountValue: l.DiscountValue(),
			Value:         l.Total(),
		})
	}
	return totals
}

// ValidateOrderLines is the strict submit-time check. Unlike the calculator it
// rejects bad values instead of coercing them.
func ValidateOrderLines(lines []OrderLine) error {
	if len(lines) == 0 {
		return NewValidationError("lines", "order must have at least one line")
	}
	for i, l := range lines {
		if l.ProductID == uuid.Nil {
			return NewValidationError(lineField(i, "product_id"), "product is required")
		}
		if strings.TrimSpace(l.ProductName) == "" {
			return NewValidationError(lineField(i, "product_name"), "product name is required")
		}
		if l.Quantity <= 0 {
			return NewValidationError(lineField(i, "quantity"), "quantity must be greater than zero")
		}
		if l.UnitPrice.IsNegative() {
			return NewValidationError(lineField(i, "unit_price"), "unit price cannot be negative")
		}
		if l.PurchasePrice.IsNegative() {
			return NewValidationError(lineField(i, "purchase_price"), "purchase price cannot be negative")
		}
		if l.DiscountPercent.IsNegative() || l.DiscountPercent.GreaterThan(hundred) {
			return NewValidationError(lineField(i, "discount_percent"), "discount must be between 0 and 100")
		}
	}
	return nil
}

func lineField(i int, name string) string {
	return "lines[" + strconv.Itoa(i) + "]." + name
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func nonNegativeInt(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
