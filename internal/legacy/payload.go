package legacy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"fulfillment/internal/model"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Money travels as a string with two fraction digits. Numbers are accepted on input.
type Money struct {
	decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money { return Money{Decimal: d} }

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.StringFixed(2))
}

func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || len(data) == 0 {
		m.Decimal = decimal.Zero
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	if raw == "" {
		m.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("invalid money value %q: %w", raw, err)
	}
	m.Decimal = d
	return nil
}

// Date is an ISO 8601 calendar date.
type Date struct {
	time.Time
}

func NewDate(t time.Time) *Date { return &Date{Time: t} }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		// some endpoints send full timestamps
		t, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", raw, err)
		}
	}
	d.Time = t
	return nil
}

// OrderLine mirrors one row of the legacy order detail table.
type OrderLine struct {
	ProductCode   string `json:"PURCHASE_ORDER_DET_PROD_CODE"`
	ProductName   string `json:"PURCHASE_ORDER_DET_PROD_NAME"`
	Quantity      int    `json:"PURCHASE_ORDER_DET_PROD_LINE_QTY"`
	UnitPrice     Money  `json:"PURCHASE_ORDER_DET_PROD_PRICE"`
	PurchasePrice Money  `json:"PURCHASE_ORDER_DET_PROD_COST"`
	Discount      Money  `json:"PURCHASE_ORDER_DET_PROD_DISCOUNT"`
}

// Order is the legacy order header with its details.
type Order struct {
	ID           string      `json:"ORDER_ID"`
	Code         string      `json:"ORDER_CODE"`
	Type         string      `json:"ORDER_TYPE"`
	Counterparty string      `json:"ORDER_PARTY_NAME"`
	Status       string      `json:"ORDER_STATUS"`
	Date         *Date       `json:"ORDER_DATE,omitempty"`
	Remarks      string      `json:"ORDER_REMARKS"`
	Lines        []OrderLine `json:"ORDER_DETAILS"`
}

// Kind maps the legacy order type onto the local order kind.
func (o Order) Kind() string {
	switch o.Type {
	case "PURCHASE", model.OrderKindSupplier:
		return model.OrderKindSupplier
	default:
		return model.OrderKindCustomer
	}
}

// DeliveryLine is one delivered product on the legacy delivery record.
type DeliveryLine struct {
	ProductID   string `json:"OUTBOUND_DEL_DET_PROD_ID"`
	ProductName string `json:"OUTBOUND_DEL_DET_PROD_NAME"`
	Quantity    int    `json:"OUTBOUND_DEL_DET_PROD_QTY"`
	Price       Money  `json:"OUTBOUND_DEL_DET_PROD_PRICE"`
	Discount    Money  `json:"OUTBOUND_DEL_DET_PROD_DISCOUNT"`
	ExpiryDate  *Date  `json:"OUTBOUND_DEL_DET_EXPIRY_DATE,omitempty"`
}

// Delivery is the payload accepted and returned by the legacy delivery endpoints.
type Delivery struct {
	ID            string         `json:"OUTBOUND_DEL_ID,omitempty"`
	OrderID       string         `json:"ORDER_ID"`
	Direction     string         `json:"OUTBOUND_DEL_DIRECTION"`
	Counterparty  string         `json:"OUTBOUND_DEL_CUSTOMER_NAME"`
	TotalQuantity int            `json:"OUTBOUND_DEL_TOTAL_QTY"`
	TotalValue    Money          `json:"OUTBOUND_DEL_TOTAL_VALUE"`
	Status        string         `json:"OUTBOUND_DEL_STATUS"`
	ShippedDate   *Date          `json:"OUTBOUND_DEL_SHIPPED_DATE,omitempty"`
	ReceivedDate  *Date          `json:"OUTBOUND_DEL_DLVRY_DATE,omitempty"`
	Lines         []DeliveryLine `json:"OUTBOUND_DEL_DETAILS"`
}

// DeliveryFromModel renders a local delivery with the legacy field names.
func DeliveryFromModel(d *model.Delivery) Delivery {
	out := Delivery{
		OrderID:       d.OrderID.String(),
		Direction:     string(d.Direction),
		Counterparty:  d.CounterpartyName,
		TotalQuantity: d.TotalQuantity,
		Status:        string(d.Status),
		Lines:         make([]DeliveryLine, 0, len(d.Lines)),
	}
	if d.ShippedDate != nil {
		out.ShippedDate = NewDate(*d.ShippedDate)
	}
	if d.ReceivedDate != nil {
		out.ReceivedDate = NewDate(*d.ReceivedDate)
	}
	total := decimal.Zero
	for _, l := range d.Lines {
		total = total.Add(l.Total())
		line := DeliveryLine{
			ProductID:   l.ProductID.String(),
			ProductName: l.ProductName,
			Quantity:    l.QuantityShipped,
			Price:       NewMoney(l.SellPrice),
			Discount:    NewMoney(l.DiscountPercent),
		}
		if l.ExpiryDate != nil {
			line.ExpiryDate = NewDate(*l.ExpiryDate)
		}
		out.Lines = append(out.Lines, line)
	}
	out.TotalValue = NewMoney(total)
	return out
}
