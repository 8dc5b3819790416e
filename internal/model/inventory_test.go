package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receivedInbound(t *testing.T, quantities ...int) *Delivery {
	t.Helper()
	d, err := NewDeliveryFromOrder(acceptedOrder(OrderKindSupplier, quantities...))
	require.NoError(t, err)
	expiry := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	for i := range d.Lines {
		e := expiry.AddDate(0, i, 0)
		d.Lines[i].ExpiryDate = &e
	}
	require.NoError(t, d.ApplyTransition(StatusInTransit, testNow))
	require.NoError(t, d.ApplyTransition(StatusReceived, testNow))
	return d
}

func TestBuildBatchesForDelivery(t *testing.T) {
	d := receivedInbound(t, 5, 8)

	batches, err := BuildBatchesForDelivery(d)
	require.NoError(t, err)
	require.Len(t, batches, 2)

	assert.Equal(t, 5, batches[0].QuantityOnHand)
	assert.Equal(t, 5, batches[0].QuantityDelivered)
	assert.Equal(t, 8, batches[1].QuantityOnHand)
	for i, b := range batches {
		assert.Equal(t, d.Lines[i].ID, b.DeliveryLineID)
		assert.Equal(t, d.ID, b.DeliveryID)
		assert.Equal(t, *d.ReceivedDate, b.ReceivedDate)
		assert.Equal(t, *d.Lines[i].ExpiryDate, b.ExpiryDate)
	}

	again, err := BuildBatchesForDelivery(d)
	require.NoError(t, err)
	for i := range batches {
		assert.Equal(t, batches[i].DeliveryLineID, again[i].DeliveryLineID)
		assert.Equal(t, batches[i].BatchID, again[i].BatchID)
	}
}

func TestBuildBatchesForDelivery_Rejects(t *testing.T) {
	outbound, err := NewDeliveryFromOrder(acceptedOrder(OrderKindCustomer, 3))
	require.NoError(t, err)
	_, err = BuildBatchesForDelivery(outbound)
	assert.True(t, IsState(err))

	inbound, err := NewDeliveryFromOrder(acceptedOrder(OrderKindSupplier, 3))
	require.NoError(t, err)
	_, err = BuildBatchesForDelivery(inbound)
	assert.True(t, IsState(err))
}

func TestBatchConsume(t *testing.T) {
	b := &InventoryBatch{QuantityOnHand: 5, QuantityDelivered: 5}

	require.NoError(t, b.Consume(3))
	assert.Equal(t, 2, b.QuantityOnHand)

	assert.True(t, IsValidation(b.Consume(3)))
	assert.True(t, IsValidation(b.Consume(0)))
	assert.Equal(t, 2, b.QuantityOnHand)

	require.NoError(t, b.Consume(2))
	assert.Equal(t, 0, b.QuantityOnHand)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, StockOutOfStock, Classify(0, 10))
	assert.Equal(t, StockLow, Classify(10, 10))
	assert.Equal(t, StockLow, Classify(1, 10))
	assert.Equal(t, StockAvailable, Classify(11, 10))
	assert.Equal(t, StockAvailable, Classify(1, 0))
}

func TestIsExpired(t *testing.T) {
	b := &InventoryBatch{ExpiryDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)}
	assert.False(t, b.IsExpired(testNow))
	assert.True(t, b.IsExpired(testNow.AddDate(0, 0, 1)))
}

func TestSortByExpiry(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	batches := []InventoryBatch{
		{ID: uuid.New(), BatchID: "c", ExpiryDate: day(20), ReceivedDate: day(1)},
		{ID: uuid.New(), BatchID: "a", ExpiryDate: day(10), ReceivedDate: day(2)},
		{ID: uuid.New(), BatchID: "b", ExpiryDate: day(10), ReceivedDate: day(1)},
	}
	SortByExpiry(batches)

	assert.Equal(t, []string{"b", "a", "c"}, []string{batches[0].BatchID, batches[1].BatchID, batches[2].BatchID})
}
