package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"fulfillment/internal/model"
	"fulfillment/internal/repository"
	"fulfillment/internal/testutil"
	ws "fulfillment/internal/websocket"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

type fixture struct {
	db         *gorm.DB
	events     *testutil.Recorder
	orders     OrderService
	deliveries DeliveryService
	inventory  InventoryService
	issues     IssueService
	reports    ReportService
	audit      AuditService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	events := &testutil.Recorder{}
	log := zap.NewNop()
	clock := Clock(testutil.FixedClock(fixedNow))

	orderRepo := repository.NewOrderRepository(db)
	deliveryRepo := repository.NewDeliveryRepository(db)
	productRepo := repository.NewProductRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db)

	inventory := NewInventoryService(productRepo, repository.NewBatchRepository(db), repository.NewMovementRepository(db), deliveryRepo, auditRepo, txManager, events, log, clock)
	return &fixture{
		db:         db,
		events:     events,
		orders:     NewOrderService(orderRepo, deliveryRepo, productRepo, auditRepo, txManager, events, log, clock),
		deliveries: NewDeliveryService(deliveryRepo, auditRepo, inventory, txManager, events, log, clock),
		inventory:  inventory,
		issues:     NewIssueService(repository.NewIssueRepository(db), deliveryRepo, auditRepo, txManager, events, log, clock),
		reports:    NewReportService(orderRepo),
		audit:      NewAuditService(auditRepo),
	}
}

func (f *fixture) product(t *testing.T, sku string, reorderLevel int) ProductResponse {
	t.Helper()
	p, err := f.inventory.CreateProduct(context.Background(), "tester", CreateProductRequest{SKU: sku, Name: "Product " + sku, ReorderLevel: reorderLevel})
	require.NoError(t, err)
	return p
}

func (f *fixture) acceptedDelivery(t *testing.T, kind, code string, lines ...OrderLineRequest) AcceptOrderResponse {
	t.Helper()
	ctx := context.Background()
	order, err := f.orders.CreateOrder(ctx, "tester", CreateOrderRequest{
		OrderCode:        code,
		Kind:             kind,
		CounterpartyName: "Northwind",
		Lines:            lines,
	})
	require.NoError(t, err)
	res, err := f.orders.AcceptOrder(ctx, "tester", order.ID)
	require.NoError(t, err)
	return res
}

func line(productID string, qty int, price string) OrderLineRequest {
	return OrderLineRequest{ProductID: productID, Quantity: qty, UnitPrice: decimal.RequireFromString(price)}
}

func TestAcceptOrder_CreatesDelivery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "A-1", 0)

	res := f.acceptedDelivery(t, model.OrderKindCustomer, "SO-1", line(p.ID, 10, "5"))

	assert.Equal(t, model.OrderStatusAccepted, res.Order.Status)
	assert.Equal(t, string(model.DirectionOutbound), res.Delivery.Direction)
	assert.Equal(t, string(model.StatusPending), res.Delivery.Status)
	assert.Equal(t, 10, res.Delivery.TotalQuantity)
	assert.Equal(t, string(model.StatusInTransit), res.Delivery.NextStatus)

	_, err := f.orders.AcceptOrder(ctx, "tester", res.Order.ID)
	assert.True(t, model.IsState(err))

	_, err = f.orders.UpdateOrderLines(ctx, "tester", res.Order.ID, UpdateOrderLinesRequest{Lines: []OrderLineRequest{line(p.ID, 1, "1")}})
	assert.True(t, model.IsState(err))

	assert.Contains(t, f.events.Names(), ws.EventOrderAccepted)
}

func TestCreateOrder_Validation(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A-1", 0)

	_, err := f.orders.CreateOrder(context.Background(), "tester", CreateOrderRequest{
		OrderCode: "SO-9", Kind: model.OrderKindCustomer, CounterpartyName: "X",
		Lines: []OrderLineRequest{line(p.ID, 0, "5")},
	})
	assert.True(t, model.IsValidation(err))

	_, err = f.orders.CreateOrder(context.Background(), "tester", CreateOrderRequest{
		OrderCode: "SO-9", Kind: "BARTER", CounterpartyName: "X",
		Lines: []OrderLineRequest{line(p.ID, 1, "5")},
	})
	assert.True(t, model.IsValidation(err))
}

func TestCalculate(t *testing.T) {
	f := newFixture(t)
	res := f.orders.Calculate(CalculateRequest{Lines: []CalculateLineRequest{
		{UnitPrice: "100.00", Quantity: "3", DiscountPercent: "10"},
		{UnitPrice: "abc", Quantity: "2", DiscountPercent: ""},
	}})

	assert.Equal(t, []string{"270.00", "0.00"}, res.LineTotals)
	assert.Equal(t, 5, res.TotalQuantity)
	assert.Equal(t, "270.00", res.TotalValue)
	assert.Equal(t, "30.00", res.DiscountValue)
}

func TestCalculate_OversizedQuantityCountsAsZero(t *testing.T) {
	f := newFixture(t)
	res := f.orders.Calculate(CalculateRequest{Lines: []CalculateLineRequest{
		{UnitPrice: "1", Quantity: "18446744073709551617"},
		{UnitPrice: "2", Quantity: "4"},
	}})

	assert.Equal(t, []string{"0.00", "8.00"}, res.LineTotals)
	assert.Equal(t, 4, res.TotalQuantity)
	assert.Equal(t, "8.00", res.TotalValue)
}

func TestOutboundLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "A-1", 0)
	id := f.acceptedDelivery(t, model.OrderKindCustomer, "SO-1", line(p.ID, 10, "5")).Delivery.ID

	res, err := f.deliveries.Advance(ctx, "tester", id)
	require.NoError(t, err)
	assert.Equal(t, 50, res.Delivery.Progress)
	require.NotNil(t, res.Delivery.ShippedDate)
	assert.Equal(t, "2024-05-10", *res.Delivery.ShippedDate)

	res, err = f.deliveries.ApplyTransition(ctx, "tester", id, TransitionRequest{ExpectedStatus: "In Transit", NewStatus: "Delivered"})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Delivery.Progress)
	assert.NotNil(t, res.Delivery.ReceivedDate)
	assert.Empty(t, res.Batches)

	res, err = f.deliveries.ApplyTransition(ctx, "tester", id, TransitionRequest{ExpectedStatus: "Delivered", NewStatus: "Pending"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Delivery.Progress)
	assert.NotNil(t, res.Delivery.ReceivedDate)

	_, err = f.deliveries.ApplyTransition(ctx, "tester", id, TransitionRequest{ExpectedStatus: "Pending", NewStatus: "Delivered"})
	assert.True(t, model.IsState(err))

	got, err := f.deliveries.GetDelivery(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Pending", got.Status)
}

func TestInboundReceiptCreatesBatchesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.product(t, "B-1", 6)
	p2 := f.product(t, "B-2", 2)
	accepted := f.acceptedDelivery(t, model.OrderKindSupplier, "PO-1", line(p1.ID, 5, "2"), line(p2.ID, 8, "3"))
	id := accepted.Delivery.ID
	assert.Equal(t, 33, accepted.Delivery.Progress)

	res, err := f.deliveries.Advance(ctx, "tester", id)
	require.NoError(t, err)
	assert.Equal(t, 66, res.Delivery.Progress)

	// receiving without expiry dates is rejected and leaves the status alone
	_, err = f.deliveries.Advance(ctx, "tester", id)
	assert.True(t, model.IsValidation(err))

	expiries := map[string]string{p1.ID: "2024-05-30", p2.ID: "2025-01-31"}
	for _, l := range res.Delivery.Lines {
		_, err := f.deliveries.SetLineExpiry(ctx, "tester", id, l.ID, SetLineExpiryRequest{ExpiryDate: expiries[l.ProductID]})
		require.NoError(t, err)
	}

	res, err = f.deliveries.Advance(ctx, "tester", id)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Delivery.Progress)
	require.Len(t, res.Batches, 2)
	assert.Equal(t, 5, res.Batches[0].QuantityOnHand)
	assert.Equal(t, string(model.StockLow), res.Batches[0].StockClass)
	assert.Equal(t, 8, res.Batches[1].QuantityOnHand)
	assert.Equal(t, string(model.StockAvailable), res.Batches[1].StockClass)

	again, err := f.inventory.CreateBatchesForDelivery(ctx, "tester", id)
	require.NoError(t, err)
	require.Len(t, again, 2)
	assert.ElementsMatch(t, []string{res.Batches[0].ID, res.Batches[1].ID}, []string{again[0].ID, again[1].ID})

	var movements int64
	require.NoError(t, f.db.Model(&model.StockMovement{}).Count(&movements).Error)
	assert.Equal(t, int64(2), movements)

	_, err = f.deliveries.SetLineExpiry(ctx, "tester", id, res.Delivery.Lines[0].ID, SetLineExpiryRequest{ExpiryDate: "2026-01-01"})
	assert.True(t, model.IsState(err))

	expiring, err := f.inventory.ExpiringBatches(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, "2024-05-30", expiring[0].ExpiryDate)
}

func TestInboundResetAndReceiveAgainKeepsOneBatchPerLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "R-1", 0)
	accepted := f.acceptedDelivery(t, model.OrderKindSupplier, "PO-9", line(p.ID, 7, "1.5"))
	id := accepted.Delivery.ID

	_, err := f.deliveries.SetLineExpiry(ctx, "tester", id, accepted.Delivery.Lines[0].ID, SetLineExpiryRequest{ExpiryDate: "2025-03-01"})
	require.NoError(t, err)

	want := []string{"In Transit", "Received", "Awaiting", "In Transit", "Received"}
	var res TransitionResponse
	for _, status := range want {
		res, err = f.deliveries.Advance(ctx, "tester", id)
		require.NoError(t, err)
		require.Equal(t, status, res.Delivery.Status)
	}
	require.Len(t, res.Batches, 1)
	assert.Equal(t, 7, res.Batches[0].QuantityOnHand)

	var batches, movements int64
	require.NoError(t, f.db.Model(&model.InventoryBatch{}).Count(&batches).Error)
	require.NoError(t, f.db.Model(&model.StockMovement{}).Where("movement_type = ?", model.MovementIn).Count(&movements).Error)
	assert.Equal(t, int64(1), batches)
	assert.Equal(t, int64(1), movements)
}

func TestGetDelivery_SharedReadIgnoresCallerCancellation(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A-1", 0)
	id := f.acceptedDelivery(t, model.OrderKindCustomer, "SO-7", line(p.ID, 2, "5")).Delivery.ID

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err := f.deliveries.GetDelivery(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
}

func TestOutboundDeliveryNeverCreatesBatches(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A-1", 0)
	id := f.acceptedDelivery(t, model.OrderKindCustomer, "SO-1", line(p.ID, 3, "5")).Delivery.ID

	_, err := f.inventory.CreateBatchesForDelivery(context.Background(), "tester", id)
	assert.True(t, model.IsState(err))
}

func TestApplyTransition_ConcurrentCallersConflict(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A-1", 0)
	id := f.acceptedDelivery(t, model.OrderKindCustomer, "SO-1", line(p.ID, 3, "5")).Delivery.ID

	const callers = 4
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.deliveries.ApplyTransition(context.Background(), "tester", id, TransitionRequest{ExpectedStatus: "Pending", NewStatus: "In Transit"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, model.ErrConcurrencyConflict)
	}
	assert.Equal(t, 1, succeeded)
}

func TestConsumeBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "B-1", 1)
	id := f.acceptedDelivery(t, model.OrderKindSupplier, "PO-1", line(p.ID, 4, "2")).Delivery.ID
	res, err := f.deliveries.Advance(ctx, "tester", id)
	require.NoError(t, err)
	_, err = f.deliveries.SetLineExpiry(ctx, "tester", id, res.Delivery.Lines[0].ID, SetLineExpiryRequest{ExpiryDate: "2025-01-01"})
	require.NoError(t, err)
	res, err = f.deliveries.Advance(ctx, "tester", id)
	require.NoError(t, err)
	batchID := res.Batches[0].ID

	_, err = f.inventory.ConsumeBatch(ctx, "tester", batchID, ConsumeBatchRequest{Quantity: 5})
	assert.True(t, model.IsValidation(err))

	b, err := f.inventory.ConsumeBatch(ctx, "tester", batchID, ConsumeBatchRequest{Quantity: 3, Reference: "SO-77"})
	require.NoError(t, err)
	assert.Equal(t, 1, b.QuantityOnHand)
	assert.Equal(t, string(model.StockLow), b.StockClass)

	b, err = f.inventory.ConsumeBatch(ctx, "tester", batchID, ConsumeBatchRequest{Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, string(model.StockOutOfStock), b.StockClass)
}

func TestSubmitIssue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "A-1", 0)
	id := f.acceptedDelivery(t, model.OrderKindCustomer, "SO-1", line(p.ID, 10, "5")).Delivery.ID

	req := SubmitIssueRequest{Remarks: "wet cartons", Lines: []IssueLineRequest{{ProductID: p.ID, DefectQty: 2}}}
	_, err := f.issues.SubmitIssue(ctx, "tester", id, req)
	assert.True(t, model.IsState(err), "pending deliveries have not shipped")

	_, err = f.deliveries.Advance(ctx, "tester", id)
	require.NoError(t, err)

	_, err = f.issues.SubmitIssue(ctx, "tester", id, SubmitIssueRequest{Remarks: "wet", Lines: []IssueLineRequest{{ProductID: p.ID, DefectQty: 12}}})
	assert.True(t, model.IsValidation(err))
	_, total, err := f.issues.ListIssues(ctx, id, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	issue, err := f.issues.SubmitIssue(ctx, "tester", id, req)
	require.NoError(t, err)
	assert.Equal(t, 10, issue.Lines[0].ShippedQty)
	assert.Equal(t, "10.00", issue.DefectValue)

	resolved, err := f.issues.ResolveIssue(ctx, "tester", issue.ID, ResolveIssueRequest{ResolutionStatus: string(model.IssueOffsetProduct)})
	require.NoError(t, err)
	assert.Equal(t, string(model.IssueOffsetProduct), resolved.ResolutionStatus)

	_, err = f.issues.ResolveIssue(ctx, "tester", issue.ID, ResolveIssueRequest{ResolutionStatus: string(model.IssueReplacedProduct)})
	assert.True(t, model.IsState(err))

	// the delivery is a separate record and is left alone
	d, err := f.deliveries.GetDelivery(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 10, d.TotalQuantity)
}

func TestReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "A-1", 0)

	f.acceptedDelivery(t, model.OrderKindCustomer, "SO-1", OrderLineRequest{
		ProductID: p.ID, Quantity: 10, UnitPrice: decimal.NewFromInt(100), PurchasePrice: decimal.NewFromInt(60),
	})
	f.acceptedDelivery(t, model.OrderKindCustomer, "SO-2", OrderLineRequest{
		ProductID: p.ID, Quantity: 5, UnitPrice: decimal.NewFromInt(100), PurchasePrice: decimal.NewFromInt(140),
	})
	f.acceptedDelivery(t, model.OrderKindSupplier, "PO-1", line(p.ID, 3, "7"))

	sales, err := f.reports.Report(ctx, "Sales", model.ReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, sales.Summary.Count)
	assert.Equal(t, "1500.00", sales.Summary.TotalRevenue)
	assert.Equal(t, "1300.00", sales.Summary.TotalCost)
	assert.Equal(t, "200.00", sales.Summary.GrossProfit)

	searched, err := f.reports.Report(ctx, "Sales", model.ReportFilter{SearchTerm: "so-2"})
	require.NoError(t, err)
	assert.Equal(t, 1, searched.Summary.Count)

	start := fixedNow.AddDate(0, 0, 1)
	empty, err := f.reports.Report(ctx, "", model.ReportFilter{StartDate: &start})
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Summary.Count)

	all, err := f.reports.Report(ctx, "", model.ReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, all.Summary.Count)

	_, err = f.reports.Report(ctx, "Refunds", model.ReportFilter{})
	assert.True(t, model.IsValidation(err))
}

func TestAuditTrail(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A-1", 0)
	res := f.acceptedDelivery(t, model.OrderKindCustomer, "SO-1", line(p.ID, 1, "5"))

	logs, total, err := f.audit.GetAuditLogs(context.Background(), res.Order.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, logs, 2)
}
