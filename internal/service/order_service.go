package service

import (
	"context"
	"fmt"
	"strings"

	"fulfillment/internal/model"
	"fulfillment/internal/repository"
	ws "fulfillment/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DTOs
type OrderLineRequest struct {
	ProductID       string          `json:"product_id" binding:"required,uuid"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price" binding:"gte=0"`
	PurchasePrice   decimal.Decimal `json:"purchase_price" binding:"gte=0"`
	DiscountPercent decimal.Decimal `json:"discount_percent" binding:"gte=0,lte=100"`
}

type CreateOrderRequest struct {
	OrderCode        string             `json:"order_code" binding:"required,max=100"`
	Kind             string             `json:"kind" binding:"required,oneof=CUSTOMER SUPPLIER"`
	CounterpartyName string             `json:"counterparty_name" binding:"required,max=255"`
	Note             string             `json:"note"`
	Lines            []OrderLineRequest `json:"lines" binding:"required,min=1,dive"`
}

type UpdateOrderLinesRequest struct {
	Lines []OrderLineRequest `json:"lines" binding:"required,min=1,dive"`
}

type OrderLineResponse struct {
	ID              string `json:"id"`
	ProductID       string `json:"product_id"`
	ProductName     string `json:"product_name"`
	Quantity        int    `json:"quantity"`
	UnitPrice       string `json:"unit_price"`
	PurchasePrice   string `json:"purchase_price"`
	DiscountPercent string `json:"discount_percent"`
	DiscountValue   string `json:"discount_value"`
	Total           string `json:"total"`
}

type OrderResponse struct {
	ID               string              `json:"id"`
	OrderCode        string              `json:"order_code"`
	Kind             string              `json:"kind"`
	CounterpartyName string              `json:"counterparty_name"`
	Status           string              `json:"status"`
	Note             string              `json:"note"`
	Lines            []OrderLineResponse `json:"lines"`
	TotalQuantity    int                 `json:"total_quantity"`
	DiscountValue    string              `json:"discount_value"`
	TotalValue       string              `json:"total_value"`
	AcceptedAt       *string             `json:"accepted_at"`
	CreatedAt        string              `json:"created_at"`
}

type AcceptOrderResponse struct {
	Order    OrderResponse    `json:"order"`
	Delivery DeliveryResponse `json:"delivery"`
}

// CalculateLineRequest carries raw form values; nothing here is validated.
type CalculateLineRequest struct {
	UnitPrice       string `json:"unit_price"`
	Quantity        string `json:"quantity"`
	DiscountPercent string `json:"discount_percent"`
}

type CalculateRequest struct {
	Lines []CalculateLineRequest `json:"lines"`
}

type CalculateResponse struct {
	LineTotals    []string `json:"line_totals"`
	TotalQuantity int      `json:"total_quantity"`
	DiscountValue string   `json:"discount_value"`
	TotalValue    string   `json:"total_value"`
}

type OrderService interface {
	CreateOrder(ctx context.Context, actor string, req CreateOrderRequest) (OrderResponse, error)
	GetOrder(ctx context.Context, id string) (OrderResponse, error)
	ListOrders(ctx context.Context, kind string, page, limit int) ([]OrderResponse, int64, error)
	UpdateOrderLines(ctx context.Context, actor, id string, req UpdateOrderLinesRequest) (OrderResponse, error)
	AcceptOrder(ctx context.Context, actor, id string) (AcceptOrderResponse, error)
	RejectOrder(ctx context.Context, actor, id string) (OrderResponse, error)
	Calculate(req CalculateRequest) CalculateResponse
}

type orderService struct {
	orderRepo    repository.OrderRepository
	deliveryRepo repository.DeliveryRepository
	productRepo  repository.ProductRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	events       EventPublisher
	log          *zap.Logger
	now          Clock
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	deliveryRepo repository.DeliveryRepository,
	productRepo repository.ProductRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
	log *zap.Logger,
	now Clock,
) OrderService {
	return &orderService{
		orderRepo:    orderRepo,
		deliveryRepo: deliveryRepo,
		productRepo:  productRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		events:       publisherOrNoop(events),
		log:          log,
		now:          clockOrNow(now),
	}
}

func (s *orderService) CreateOrder(ctx context.Context, actor string, req CreateOrderRequest) (OrderResponse, error) {
	if strings.TrimSpace(req.OrderCode) == "" {
		return OrderResponse{}, model.NewValidationError("order_code", "order code is required")
	}
	if req.Kind != model.OrderKindCustomer && req.Kind != model.OrderKindSupplier {
		return OrderResponse{}, model.NewValidationError("kind", "kind must be CUSTOMER or SUPPLIER")
	}

	var order model.Order
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		lines, err := s.buildLines(txCtx, req.Lines)
		if err != nil {
			return err
		}
		order = model.Order{
			OrderCode:        strings.TrimSpace(req.OrderCode),
			Kind:             req.Kind,
			CounterpartyName: strings.TrimSpace(req.CounterpartyName),
			Status:           model.OrderStatusPending,
			Note:             req.Note,
			Lines:            lines,
		}
		if err := s.orderRepo.Create(txCtx, &order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		totals := order.Totals()
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateOrder, order.ID.String(), order.OrderCode, map[string]interface{}{
			"kind":         order.Kind,
			"counterparty": order.CounterpartyName,
			"lines":        len(order.Lines),
			"total_value":  money(totals.Value),
		})
	})
	if err != nil {
		return OrderResponse{}, err
	}

	logFor(ctx, s.log).Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_code", order.OrderCode),
		zap.String("kind", order.Kind),
	)
	return toOrderResponse(&order), nil
}

func (s *orderService) GetOrder(ctx context.Context, id string) (OrderResponse, error) {
	orderID, err := parseID("id", id)
	if err != nil {
		return OrderResponse{}, err
	}
	order, err := s.orderRepo.FindByIDWithLines(ctx, orderID)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("failed to load order: %w", err)
	}
	return toOrderResponse(order), nil
}

func (s *orderService) ListOrders(ctx context.Context, kind string, page, limit int) ([]OrderResponse, int64, error) {
	page, limit = normalizePage(page, limit)
	orders, total, err := s.orderRepo.List(ctx, kind, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	res := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		res = append(res, toOrderResponse(&orders[i]))
	}
	return res, total, nil
}

// UpdateOrderLines replaces every line of a pending order.
func (s *orderService) UpdateOrderLines(ctx context.Context, actor, id string, req UpdateOrderLinesRequest) (OrderResponse, error) {
	orderID, err := parseID("id", id)
	if err != nil {
		return OrderResponse{}, err
	}

	var order *model.Order
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err = s.orderRepo.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			return fmt.Errorf("failed to load order: %w", err)
		}
		if order.Status != model.OrderStatusPending {
			return model.NewStateError("ORDER_LOCKED", fmt.Sprintf("order lines cannot change once %s", strings.ToLower(order.Status)))
		}

		lines, err := s.buildLines(txCtx, req.Lines)
		if err != nil {
			return err
		}
		if err := s.orderRepo.ReplaceLines(txCtx, order.ID, lines); err != nil {
			return fmt.Errorf("failed to replace order lines: %w", err)
		}
		order.Lines = lines

		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateOrderLines, order.ID.String(), order.OrderCode, map[string]interface{}{
			"lines":       len(lines),
			"total_value": money(order.Totals().Value),
		})
	})
	if err != nil {
		return OrderResponse{}, err
	}
	return toOrderResponse(order), nil
}

// AcceptOrder freezes the order and creates its single delivery in the same transaction.
func (s *orderService) AcceptOrder(ctx context.Context, actor, id string) (AcceptOrderResponse, error) {
	orderID, err := parseID("id", id)
	if err != nil {
		return AcceptOrderResponse{}, err
	}

	var (
		order    *model.Order
		delivery *model.Delivery
	)
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err = s.orderRepo.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			return fmt.Errorf("failed to load order: %w", err)
		}
		if order.Status != model.OrderStatusPending {
			return model.NewStateError("ORDER_NOT_PENDING", fmt.Sprintf("order is already %s", strings.ToLower(order.Status)))
		}
		if err := model.ValidateOrderLines(order.Lines); err != nil {
			return err
		}

		acceptedAt := s.now().UTC()
		if err := s.orderRepo.UpdateStatus(txCtx, order.ID, model.OrderStatusPending, model.OrderStatusAccepted, &acceptedAt); err != nil {
			return fmt.Errorf("failed to accept order: %w", err)
		}
		order.Status = model.OrderStatusAccepted
		order.AcceptedAt = &acceptedAt

		delivery, err = model.NewDeliveryFromOrder(order)
		if err != nil {
			return err
		}
		if err := s.deliveryRepo.Create(txCtx, delivery); err != nil {
			return fmt.Errorf("failed to create delivery: %w", err)
		}

		return writeAudit(txCtx, s.auditRepo, actor, model.ActionAcceptOrder, order.ID.String(), order.OrderCode, map[string]interface{}{
			"delivery_id": delivery.ID.String(),
			"direction":   delivery.Direction,
			"status":      delivery.Status,
		})
	})
	if err != nil {
		return AcceptOrderResponse{}, err
	}

	logFor(ctx, s.log).Info("order accepted",
		zap.String("order_id", order.ID.String()),
		zap.String("delivery_id", delivery.ID.String()),
		zap.String("direction", string(delivery.Direction)),
	)
	res := AcceptOrderResponse{Order: toOrderResponse(order), Delivery: toDeliveryResponse(delivery)}
	s.events.Publish(ws.EventOrderAccepted, res)
	return res, nil
}

func (s *orderService) RejectOrder(ctx context.Context, actor, id string) (OrderResponse, error) {
	orderID, err := parseID("id", id)
	if err != nil {
		return OrderResponse{}, err
	}

	var order *model.Order
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err = s.orderRepo.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			return fmt.Errorf("failed to load order: %w", err)
		}
		if order.Status != model.OrderStatusPending {
			return model.NewStateError("ORDER_NOT_PENDING", fmt.Sprintf("order is already %s", strings.ToLower(order.Status)))
		}
		if err := s.orderRepo.UpdateStatus(txCtx, order.ID, model.OrderStatusPending, model.OrderStatusRejected, nil); err != nil {
			return fmt.Errorf("failed to reject order: %w", err)
		}
		order.Status = model.OrderStatusRejected
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionRejectOrder, order.ID.String(), order.OrderCode, nil)
	})
	if err != nil {
		return OrderResponse{}, err
	}

	res := toOrderResponse(order)
	s.events.Publish(ws.EventOrderRejected, res)
	return res, nil
}

// Calculate previews totals for unsaved form input. It never fails.
func (s *orderService) Calculate(req CalculateRequest) CalculateResponse {
	lines := make([]model.OrderLine, 0, len(req.Lines))
	res := CalculateResponse{LineTotals: make([]string, 0, len(req.Lines))}
	for _, l := range req.Lines {
		line := model.OrderLine{
			Quantity:        model.LenientQuantity(l.Quantity),
			UnitPrice:       model.ParseLenient(l.UnitPrice),
			DiscountPercent: model.ParseLenient(l.DiscountPercent),
		}
		lines = append(lines, line)
		res.LineTotals = append(res.LineTotals, money(model.LenientLineTotal(l.UnitPrice, l.Quantity, l.DiscountPercent)))
	}
	totals := model.CalculateTotals(lines)
	res.TotalQuantity = totals.Quantity
	res.DiscountValue = money(totals.DiscountValue)
	res.TotalValue = money(totals.Value)
	return res
}

// buildLines resolves product names and runs the strict line validation.
func (s *orderService) buildLines(ctx context.Context, reqs []OrderLineRequest) ([]model.OrderLine, error) {
	ids := make([]uuid.UUID, len(reqs))
	for i, r := range reqs {
		id, err := parseID(fmt.Sprintf("lines[%d].product_id", i), r.ProductID)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	lines := make([]model.OrderLine, 0, len(reqs))
	for i, r := range reqs {
		p, ok := products[ids[i]]
		if !ok {
			return nil, model.NewValidationError(fmt.Sprintf("lines[%d].product_id", i), "product not found")
		}
		lines = append(lines, model.OrderLine{
			ProductID:       p.ID,
			ProductName:     p.Name,
			Quantity:        r.Quantity,
			UnitPrice:       r.UnitPrice,
			PurchasePrice:   r.PurchasePrice,
			DiscountPercent: r.DiscountPercent,
		})
	}
	if err := model.ValidateOrderLines(lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func toOrderResponse(o *model.Order) OrderResponse {
	totals := o.Totals()
	res := OrderResponse{
		ID:               o.ID.String(),
		OrderCode:        o.OrderCode,
		Kind:             o.Kind,
		CounterpartyName: o.CounterpartyName,
		Status:           o.Status,
		Note:             o.Note,
		Lines:            make([]OrderLineResponse, 0, len(o.Lines)),
		TotalQuantity:    totals.Quantity,
		DiscountValue:    money(totals.DiscountValue),
		TotalValue:       money(totals.Value),
		AcceptedAt:       formatDateTime(o.AcceptedAt),
		CreatedAt:        o.CreatedAt.Format(dateTimeLayout),
	}
	for _, l := range o.Lines {
		res.Lines = append(res.Lines, OrderLineResponse{
			ID:              l.ID.String(),
			ProductID:       l.ProductID.String(),
			ProductName:     l.ProductName,
			Quantity:        l.Quantity,
			UnitPrice:       money(l.UnitPrice),
			PurchasePrice:   money(l.PurchasePrice),
			DiscountPercent: money(l.DiscountPercent),
			DiscountValue:   money(l.DiscountValue()),
			Total:           money(l.Total()),
		})
	}
	return res
}
