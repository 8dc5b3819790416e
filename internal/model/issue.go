package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// IssueStatus is the resolution state of an issue
type IssueStatus string

const (
	IssuePending         IssueStatus = "Pending"
	IssueOffsetProduct   IssueStatus = "Offset Product"
	IssueReplacedProduct IssueStatus = "Replaced Product"
)

// IsTerminal reports whether the issue has been resolved.
func (s IssueStatus) IsTerminal() bool {
	return s == IssueOffsetProduct || s == IssueReplacedProduct
}

// Issue is a defect/return claim against an outbound delivery. It is a separate
// ledger entry and never adjusts the delivery, order or inventory.
type Issue struct {
	ID               uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	DeliveryID       uuid.UUID   `gorm:"type:uuid;not null;index" json:"delivery_id"`
	Remarks          string      `gorm:"type:text;not null" json:"remarks"`
	ResolutionStatus IssueStatus `gorm:"type:varchar(30);not null;index" json:"resolution_status"`
	Lines            []IssueLine `gorm:"foreignKey:IssueID;constraint:OnDelete:CASCADE" json:"lines"`
	ResolvedAt       *time.Time  `json:"resolved_at"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

func (i *Issue) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// IssueLine snapshots the shipped quantity next to the claimed defect quantity.
type IssueLine struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	IssueID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"issue_id"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null" json:"product_id"`
	ProductName     string          `gorm:"type:varchar(255);not null" json:"product_name"`
	ShippedQty      int             `gorm:"type:int;not null" json:"shipped_qty"`
	DefectQty       int             `gorm:"type:int;not null" json:"defect_qty"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"unit_price"`
	DiscountPercent decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0" json:"discount_percent"`
}

// DefectValue is the value of the defective units at the delivered price.
func (l IssueLine) DefectValue() decimal.Decimal {
	return LineTotal(l.UnitPrice, l.DefectQty, l.DiscountPercent)
}

func (l *IssueLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// IssueLineInput is the operator's claim for one product on the delivery.
type IssueLineInput struct {
	ProductID uuid.UUID
	DefectQty int
}

// NewIssue validates a claim against the delivery it references. Shipped
// quantities are taken from the delivery, not from the caller.
func NewIssue(d *Delivery, lines []IssueLineInput, remarks string) (*Issue, error) {
	if d.Direction != DirectionOutbound {
		return nil, NewStateError("NOT_OUTBOUND", "issues can only be raised against outbound deliveries")
	}
	if d.Status != StatusInTransit && d.Status != StatusDelivered {
		return nil, NewStateError("NOT_SHIPPED", "issues can only be raised once a delivery has shipped")
	}
	if strings.TrimSpace(remarks) == "" {
		return nil, NewValidationError("remarks", "remarks are required")
	}
	if len(lines) == 0 {
		return nil, NewValidationError("lines", "at least one line is required")
	}

	shipped := make(map[uuid.UUID]DeliveryLine, len(d.Lines))
	for _, l := range d.Lines {
		if existing, ok := shipped[l.ProductID]; ok {
			existing.QuantityShipped += l.QuantityShipped
			shipped[l.ProductID] = existing
			continue
		}
		shipped[l.ProductID] = l
	}

	seen := make(map[uuid.UUID]bool, len(lines))
	issue := &Issue{
		ID:               uuid.New(),
		DeliveryID:       d.ID,
		Remarks:          strings.TrimSpace(remarks),
		ResolutionStatus: IssuePending,
		Lines:            make([]IssueLine, 0, len(lines)),
	}
	for i, in := range lines {
		field := fmt.Sprintf("lines[%d].defect_qty", i)
		dl, ok := shipped[in.ProductID]
		if !ok {
			return nil, NewValidationError(fmt.Sprintf("lines[%d].product_id", i), "product is not part of this delivery")
		}
		if seen[in.ProductID] {
			return nil, NewValidationError(fmt.Sprintf("lines[%d].product_id", i), "product listed more than once")
		}
		seen[in.ProductID] = true
		if in.DefectQty < 0 {
			return nil, NewValidationError(field, "defect quantity cannot be negative")
		}
		if in.DefectQty > dl.QuantityShipped {
			return nil, NewValidationError(field,
				fmt.Sprintf("defect quantity %d exceeds shipped quantity %d", in.DefectQty, dl.QuantityShipped))
		}
		issue.Lines = append(issue.Lines, IssueLine{
			ID:              uuid.New(),
			IssueID:         issue.ID,
			ProductID:       in.ProductID,
			ProductName:     dl.ProductName,
			ShippedQty:      dl.QuantityShipped,
			DefectQty:       in.DefectQty,
			UnitPrice:       dl.SellPrice,
			DiscountPercent: dl.DiscountPercent,
		})
	}
	return issue, nil
}

// Resolve closes a pending issue with the operator's chosen outcome.
func (i *Issue) Resolve(status IssueStatus, now time.Time) error {
	if !status.IsTerminal() {
		return NewValidationError("resolution_status", fmt.Sprintf("%q is not a resolution", status))
	}
	if i.ResolutionStatus != IssuePending {
		return NewStateError("ISSUE_RESOLVED", fmt.Sprintf("issue is already %s", i.ResolutionStatus))
	}
	i.ResolutionStatus = status
	i.ResolvedAt = &now
	return nil
}

// TotalDefects sums defect quantities over the lines.
func (i *Issue) TotalDefects() int {
	total := 0
	for _, l := range i.Lines {
		total += l.DefectQty
	}
	return total
}

// DefectValue sums the value of defective units; it is the credit the issue represents.
func (i *Issue) DefectValue() decimal.Decimal {
	total := decimal.Zero
	for _, l := range i.Lines {
		total = total.Add(l.DefectValue())
	}
	return total
}
