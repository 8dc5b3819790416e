package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

func acceptedOrder(kind string, quantities ...int) *Order {
	o := &Order{ID: uuid.New(), OrderCode: "SO-1", Kind: kind, CounterpartyName: "Acme", Status: OrderStatusAccepted}
	for _, q := range quantities {
		o.Lines = append(o.Lines, OrderLine{
			ID:          uuid.New(),
			ProductID:   uuid.New(),
			ProductName: "Widget",
			Quantity:    q,
			UnitPrice:   dec("10"),
		})
	}
	return o
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		dir  Direction
		from DeliveryStatus
		to   DeliveryStatus
	}{
		{DirectionOutbound, StatusPending, StatusInTransit},
		{DirectionOutbound, StatusInTransit, StatusDelivered},
		{DirectionOutbound, StatusDelivered, StatusPending},
		{DirectionInbound, StatusAwaiting, StatusInTransit},
		{DirectionInbound, StatusInTransit, StatusReceived},
		{DirectionInbound, StatusReceived, StatusAwaiting},
	}
	for _, tt := range tests {
		next, err := NextStatus(tt.dir, tt.from)
		require.NoError(t, err)
		assert.Equal(t, tt.to, next)
		assert.True(t, CanTransition(tt.dir, tt.from, tt.to))
	}

	assert.False(t, CanTransition(DirectionOutbound, StatusPending, StatusDelivered))
	assert.False(t, CanTransition(DirectionOutbound, StatusInTransit, StatusPending))
	assert.False(t, CanTransition(DirectionInbound, StatusAwaiting, StatusReceived))
	assert.False(t, CanTransition(DirectionInbound, StatusPending, StatusInTransit))

	_, err := NextStatus(DirectionInbound, StatusDelivered)
	assert.True(t, IsState(err))

	assert.True(t, IsReset(DirectionOutbound, StatusDelivered, StatusPending))
	assert.False(t, IsReset(DirectionOutbound, StatusPending, StatusInTransit))
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 0, Progress(DirectionOutbound, StatusPending))
	assert.Equal(t, 50, Progress(DirectionOutbound, StatusInTransit))
	assert.Equal(t, 100, Progress(DirectionOutbound, StatusDelivered))
	assert.Equal(t, 33, Progress(DirectionInbound, StatusAwaiting))
	assert.Equal(t, 66, Progress(DirectionInbound, StatusInTransit))
	assert.Equal(t, 100, Progress(DirectionInbound, StatusReceived))
	assert.Equal(t, 0, Progress(DirectionInbound, "Lost"))
}

func TestNewDeliveryFromOrder(t *testing.T) {
	order := acceptedOrder(OrderKindSupplier, 5, 8)

	d, err := NewDeliveryFromOrder(order)
	require.NoError(t, err)

	assert.Equal(t, DirectionInbound, d.Direction)
	assert.Equal(t, StatusAwaiting, d.Status)
	assert.Equal(t, 13, d.TotalQuantity)
	require.Len(t, d.Lines, 2)

	sum := 0
	for i, l := range d.Lines {
		assert.Equal(t, order.Lines[i].ID, l.OrderLineID)
		assert.Equal(t, d.ID, l.DeliveryID)
		sum += l.QuantityShipped
	}
	assert.Equal(t, 13, sum)

	// later order edits do not reach the delivery
	order.Lines[0].Quantity = 99
	assert.Equal(t, 5, d.Lines[0].QuantityShipped)
}

func TestNewDeliveryFromOrder_RequiresAccepted(t *testing.T) {
	order := acceptedOrder(OrderKindCustomer, 1)
	order.Status = OrderStatusPending

	_, err := NewDeliveryFromOrder(order)
	assert.True(t, IsState(err))
}

func TestApplyTransition_OutboundLifecycle(t *testing.T) {
	d, err := NewDeliveryFromOrder(acceptedOrder(OrderKindCustomer, 10))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, d.Status)
	assert.Equal(t, 0, d.Progress())

	require.NoError(t, d.ApplyTransition(StatusInTransit, testNow))
	assert.Equal(t, 50, d.Progress())
	require.NotNil(t, d.ShippedDate)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), *d.ShippedDate)

	require.NoError(t, d.ApplyTransition(StatusDelivered, testNow.Add(48*time.Hour)))
	assert.Equal(t, 100, d.Progress())
	require.NotNil(t, d.ReceivedDate)
	assert.Equal(t, time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC), *d.ReceivedDate)

	require.NoError(t, d.ApplyTransition(StatusPending, testNow.Add(72*time.Hour)))
	assert.Equal(t, 0, d.Progress())
	assert.NotNil(t, d.ShippedDate)
	assert.NotNil(t, d.ReceivedDate)

	// dates are stamped once
	require.NoError(t, d.ApplyTransition(StatusInTransit, testNow.Add(96*time.Hour)))
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), *d.ShippedDate)
}

func TestApplyTransition_Illegal(t *testing.T) {
	d, err := NewDeliveryFromOrder(acceptedOrder(OrderKindCustomer, 10))
	require.NoError(t, err)

	err = d.ApplyTransition(StatusDelivered, testNow)
	assert.True(t, IsState(err))
	assert.Equal(t, StatusPending, d.Status)
	assert.Nil(t, d.ReceivedDate)

	err = d.ApplyTransition(StatusReceived, testNow)
	assert.True(t, IsState(err))
}

func TestApplyTransition_ReceivedRequiresExpiry(t *testing.T) {
	d, err := NewDeliveryFromOrder(acceptedOrder(OrderKindSupplier, 5, 8))
	require.NoError(t, err)
	require.NoError(t, d.ApplyTransition(StatusInTransit, testNow))

	expiry := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	d.Lines[0].ExpiryDate = &expiry

	err = d.ApplyTransition(StatusReceived, testNow)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, StatusInTransit, d.Status)
	assert.Nil(t, d.ReceivedDate)

	d.Lines[1].ExpiryDate = &expiry
	require.NoError(t, d.ApplyTransition(StatusReceived, testNow))
	assert.Equal(t, 100, d.Progress())
}

func TestClone_IsDeep(t *testing.T) {
	d, err := NewDeliveryFromOrder(acceptedOrder(OrderKindSupplier, 5))
	require.NoError(t, err)
	expiry := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	d.Lines[0].ExpiryDate = &expiry

	c := d.Clone()
	c.Lines[0].QuantityShipped = 1
	*c.Lines[0].ExpiryDate = expiry.AddDate(1, 0, 0)
	c.Status = StatusReceived

	assert.Equal(t, 5, d.Lines[0].QuantityShipped)
	assert.Equal(t, expiry, *d.Lines[0].ExpiryDate)
	assert.Equal(t, StatusAwaiting, d.Status)
}
