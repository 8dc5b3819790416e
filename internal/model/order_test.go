package model

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestLineTotal(t *testing.T) {
	tests := []struct {
		name     string
		price    string
		qty      int
		discount string
		want     string
	}{
		{"ten percent off", "100.00", 3, "10", "270"},
		{"no discount", "12.50", 4, "0", "50"},
		{"full discount", "99.99", 7, "100", "0"},
		{"discount above hundred is clamped", "10", 2, "150", "0"},
		{"negative discount is clamped", "10", 2, "-5", "20"},
		{"negative quantity counts as zero", "10", -2, "0", "0"},
		{"negative price counts as zero", "-10", 2, "0", "0"},
		{"fractional discount", "19.99", 3, "12.5", "52.473750"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LineTotal(dec(tt.price), tt.qty, dec(tt.discount))
			assert.True(t, got.Equal(dec(tt.want)), "got %s want %s", got, tt.want)
			assert.False(t, got.IsNegative())
		})
	}
}

func TestLenientLineTotal(t *testing.T) {
	assert.True(t, LenientLineTotal("100", "3", "10").Equal(dec("270")))
	assert.True(t, LenientLineTotal("abc", "3", "10").IsZero())
	assert.True(t, LenientLineTotal("100", "", "").Equal(decimal.Zero))
	assert.True(t, LenientLineTotal(" 100 ", "2", "junk").Equal(dec("200")))
	assert.True(t, LenientLineTotal("1", "18446744073709551617", "0").IsZero())
	assert.True(t, LenientLineTotal("1", "9223372036854775808", "0").IsZero())
}

func TestLenientQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"3", 3},
		{"2.9", 2},
		{"-4", 0},
		{"", 0},
		{"x", 0},
		{"2147483647", 2147483647},
		{"2147483648", 0},
		{"18446744073709551617", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LenientQuantity(tt.in), tt.in)
	}
}

func TestCalculateTotals(t *testing.T) {
	lines := []OrderLine{
		{Quantity: 3, UnitPrice: dec("100"), DiscountPercent: dec("10")},
		{Quantity: 2, UnitPrice: dec("50"), DiscountPercent: dec("0")},
	}
	totals := CalculateTotals(lines)

	assert.Equal(t, 5, totals.Quantity)
	assert.True(t, totals.Value.Equal(dec("370")))
	assert.True(t, totals.DiscountValue.Equal(dec("30")))
}

func TestCalculateTotals_Empty(t *testing.T) {
	totals := CalculateTotals(nil)
	assert.Equal(t, 0, totals.Quantity)
	assert.True(t, totals.Value.IsZero())
	assert.True(t, totals.DiscountValue.IsZero())
}

func TestCalculateTotals_OrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	lines := make([]OrderLine, 20)
	for i := range lines {
		lines[i] = OrderLine{
			Quantity:        rng.Intn(50) + 1,
			UnitPrice:       decimal.New(int64(rng.Intn(100000)), -2),
			DiscountPercent: decimal.NewFromInt(int64(rng.Intn(101))),
		}
	}
	want := CalculateTotals(lines)

	for i := 0; i < 10; i++ {
		shuffled := append([]OrderLine(nil), lines...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := CalculateTotals(shuffled)
		assert.Equal(t, want.Quantity, got.Quantity)
		assert.True(t, want.Value.Equal(got.Value))
		assert.True(t, want.DiscountValue.Equal(got.DiscountValue))
	}
}

func TestValidateOrderLines(t *testing.T) {
	valid := func() OrderLine {
		return OrderLine{ProductID: uuid.New(), ProductName: "Widget", Quantity: 1, UnitPrice: dec("1")}
	}

	require.NoError(t, ValidateOrderLines([]OrderLine{valid()}))

	tests := []struct {
		name  string
		edit  func(*OrderLine)
		field string
	}{
		{"missing product", func(l *OrderLine) { l.ProductID = uuid.Nil }, "lines[0].product_id"},
		{"blank name", func(l *OrderLine) { l.ProductName = "  " }, "lines[0].product_name"},
		{"zero quantity", func(l *OrderLine) { l.Quantity = 0 }, "lines[0].quantity"},
		{"negative price", func(l *OrderLine) { l.UnitPrice = dec("-1") }, "lines[0].unit_price"},
		{"negative purchase price", func(l *OrderLine) { l.PurchasePrice = dec("-1") }, "lines[0].purchase_price"},
		{"discount over hundred", func(l *OrderLine) { l.DiscountPercent = dec("100.01") }, "lines[0].discount_percent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := valid()
			tt.edit(&l)
			err := ValidateOrderLines([]OrderLine{l})
			require.Error(t, err)
			assert.True(t, IsValidation(err))
			var appErr *AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}

	err := ValidateOrderLines(nil)
	assert.True(t, IsValidation(err))
}

func TestOrderDirection(t *testing.T) {
	assert.Equal(t, DirectionInbound, (&Order{Kind: OrderKindSupplier}).Direction())
	assert.Equal(t, DirectionOutbound, (&Order{Kind: OrderKindCustomer}).Direction())
}
