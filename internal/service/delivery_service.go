package service

import (
	"context"
	"fmt"
	"time"

	"fulfillment/internal/model"
	"fulfillment/internal/repository"
	ws "fulfillment/internal/websocket"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DTOs
type TransitionRequest struct {
	ExpectedStatus string `json:"expected_status" binding:"required"`
	NewStatus      string `json:"new_status" binding:"required"`
}

type SetLineExpiryRequest struct {
	ExpiryDate string `json:"expiry_date" binding:"required,datetime=2006-01-02"`
}

type DeliveryLineResponse struct {
	ID              string  `json:"id"`
	OrderLineID     string  `json:"order_line_id"`
	ProductID       string  `json:"product_id"`
	ProductName     string  `json:"product_name"`
	QuantityShipped int     `json:"quantity_shipped"`
	SellPrice       string  `json:"sell_price"`
	PurchasePrice   string  `json:"purchase_price"`
	DiscountPercent string  `json:"discount_percent"`
	Total           string  `json:"total"`
	ExpiryDate      *string `json:"expiry_date"`
}

type DeliveryResponse struct {
	ID               string                 `json:"id"`
	OrderID          string                 `json:"order_id"`
	Direction        string                 `json:"direction"`
	Status           string                 `json:"status"`
	NextStatus       string                 `json:"next_status"`
	Progress         int                    `json:"progress"`
	CounterpartyName string                 `json:"counterparty_name"`
	TotalQuantity    int                    `json:"total_quantity"`
	TotalValue       string                 `json:"total_value"`
	ShippedDate      *string                `json:"shipped_date"`
	ReceivedDate     *string                `json:"received_date"`
	Lines            []DeliveryLineResponse `json:"lines"`
	CreatedAt        string                 `json:"created_at"`
}

// TransitionResponse also carries any inventory batches the transition produced.
type TransitionResponse struct {
	Delivery DeliveryResponse `json:"delivery"`
	Batches  []BatchResponse  `json:"batches,omitempty"`
}

type DeliveryService interface {
	GetDelivery(ctx context.Context, id string) (DeliveryResponse, error)
	ListDeliveries(ctx context.Context, direction string, page, limit int) ([]DeliveryResponse, int64, error)
	ApplyTransition(ctx context.Context, actor, id string, req TransitionRequest) (TransitionResponse, error)
	Advance(ctx context.Context, actor, id string) (TransitionResponse, error)
	SetLineExpiry(ctx context.Context, actor, deliveryID, lineID string, req SetLineExpiryRequest) (DeliveryResponse, error)
}

type deliveryService struct {
	deliveryRepo repository.DeliveryRepository
	auditRepo    repository.AuditRepository
	inventory    InventoryService
	txManager    repository.TransactionManager
	events       EventPublisher
	log          *zap.Logger
	now          Clock
	reads        singleflight.Group
}

func NewDeliveryService(
	deliveryRepo repository.DeliveryRepository,
	auditRepo repository.AuditRepository,
	inventory InventoryService,
	txManager repository.TransactionManager,
	events EventPublisher,
	log *zap.Logger,
	now Clock,
) DeliveryService {
	return &deliveryService{
		deliveryRepo: deliveryRepo,
		auditRepo:    auditRepo,
		inventory:    inventory,
		txManager:    txManager,
		events:       publisherOrNoop(events),
		log:          log,
		now:          clockOrNow(now),
	}
}

// GetDelivery collapses concurrent reads of the same delivery into one query.
// Every caller receives its own copy. The shared query is detached from the
// first caller's cancellation so one disconnect does not fail the others.
func (s *deliveryService) GetDelivery(ctx context.Context, id string) (DeliveryResponse, error) {
	deliveryID, err := parseID("id", id)
	if err != nil {
		return DeliveryResponse{}, err
	}
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.reads.Do(deliveryID.String(), func() (interface{}, error) {
		return s.deliveryRepo.FindByIDWithLines(shared, deliveryID)
	})
	if err != nil {
		return DeliveryResponse{}, fmt.Errorf("failed to load delivery: %w", err)
	}
	return toDeliveryResponse(v.(*model.Delivery).Clone()), nil
}

func (s *deliveryService) ListDeliveries(ctx context.Context, direction string, page, limit int) ([]DeliveryResponse, int64, error) {
	dir := model.Direction(direction)
	if dir != "" && !dir.IsValid() {
		return nil, 0, model.NewValidationError("direction", "direction must be INBOUND or OUTBOUND")
	}
	page, limit = normalizePage(page, limit)
	deliveries, total, err := s.deliveryRepo.List(ctx, dir, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list deliveries: %w", err)
	}
	res := make([]DeliveryResponse, 0, len(deliveries))
	for i := range deliveries {
		res = append(res, toDeliveryResponse(&deliveries[i]))
	}
	return res, total, nil
}

// ApplyTransition moves the delivery from expected to the requested status. The
// write only lands while the stored status still equals expected; a caller that
// observed a stale status gets ErrConcurrencyConflict and nothing changes.
func (s *deliveryService) ApplyTransition(ctx context.Context, actor, id string, req TransitionRequest) (TransitionResponse, error) {
	deliveryID, err := parseID("id", id)
	if err != nil {
		return TransitionResponse{}, err
	}
	expected := model.DeliveryStatus(req.ExpectedStatus)
	next := model.DeliveryStatus(req.NewStatus)

	var (
		updated *model.Delivery
		batches []BatchResponse
	)
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.deliveryRepo.FindByIDWithLines(txCtx, deliveryID)
		if err != nil {
			return fmt.Errorf("failed to load delivery: %w", err)
		}
		if current.Status != expected {
			return model.ErrConcurrencyConflict
		}

		updated = current.Clone()
		if err := updated.ApplyTransition(next, s.now()); err != nil {
			return err
		}
		if err := s.deliveryRepo.CompareAndSetStatus(txCtx, updated, expected); err != nil {
			return fmt.Errorf("failed to update delivery status: %w", err)
		}

		if updated.Direction == model.DirectionInbound && updated.Status == model.StatusReceived {
			batches, err = s.inventory.CreateBatchesForDelivery(txCtx, actor, updated.ID.String())
			if err != nil {
				return fmt.Errorf("failed to create inventory batches: %w", err)
			}
		}

		return writeAudit(txCtx, s.auditRepo, actor, model.ActionDeliveryTransition, updated.ID.String(), updated.CounterpartyName, map[string]interface{}{
			"direction": updated.Direction,
			"from":      expected,
			"to":        updated.Status,
			"reset":     model.IsReset(updated.Direction, expected, updated.Status),
		})
	})
	if err != nil {
		return TransitionResponse{}, err
	}

	logFor(ctx, s.log).Info("delivery status changed",
		zap.String("delivery_id", updated.ID.String()),
		zap.String("direction", string(updated.Direction)),
		zap.String("from", string(expected)),
		zap.String("to", string(updated.Status)),
		zap.Int("batches", len(batches)),
	)
	res := TransitionResponse{Delivery: toDeliveryResponse(updated), Batches: batches}
	s.events.Publish(ws.EventDeliveryTransition, res.Delivery)
	return res, nil
}

// Advance applies the single allowed next step from the current status.
func (s *deliveryService) Advance(ctx context.Context, actor, id string) (TransitionResponse, error) {
	deliveryID, err := parseID("id", id)
	if err != nil {
		return TransitionResponse{}, err
	}
	current, err := s.deliveryRepo.FindByIDWithLines(ctx, deliveryID)
	if err != nil {
		return TransitionResponse{}, fmt.Errorf("failed to load delivery: %w", err)
	}
	next, err := model.NextStatus(current.Direction, current.Status)
	if err != nil {
		return TransitionResponse{}, err
	}
	return s.ApplyTransition(ctx, actor, id, TransitionRequest{
		ExpectedStatus: string(current.Status),
		NewStatus:      string(next),
	})
}

// SetLineExpiry records the expiry date of an inbound line before receipt.
func (s *deliveryService) SetLineExpiry(ctx context.Context, actor, deliveryID, lineID string, req SetLineExpiryRequest) (DeliveryResponse, error) {
	dID, err := parseID("id", deliveryID)
	if err != nil {
		return DeliveryResponse{}, err
	}
	lID, err := parseID("line_id", lineID)
	if err != nil {
		return DeliveryResponse{}, err
	}
	expiry, err := time.Parse(dateLayout, req.ExpiryDate)
	if err != nil {
		return DeliveryResponse{}, model.NewValidationError("expiry_date", "expiry date must be YYYY-MM-DD")
	}

	var delivery *model.Delivery
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		delivery, err = s.deliveryRepo.FindByIDWithLines(txCtx, dID)
		if err != nil {
			return fmt.Errorf("failed to load delivery: %w", err)
		}
		if delivery.Direction != model.DirectionInbound {
			return model.NewStateError("NOT_INBOUND", "expiry dates only apply to inbound deliveries")
		}
		if delivery.Status == model.TerminalStatus(delivery.Direction) {
			return model.NewStateError("ALREADY_RECEIVED", "expiry dates cannot change after the delivery is received")
		}
		if err := s.deliveryRepo.UpdateLineExpiry(txCtx, dID, lID, expiry); err != nil {
			return fmt.Errorf("failed to set expiry date: %w", err)
		}
		for i := range delivery.Lines {
			if delivery.Lines[i].ID == lID {
				delivery.Lines[i].ExpiryDate = &expiry
			}
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionSetLineExpiry, lID.String(), delivery.CounterpartyName, map[string]interface{}{
			"delivery_id": dID.String(),
			"expiry_date": req.ExpiryDate,
		})
	})
	if err != nil {
		return DeliveryResponse{}, err
	}
	return toDeliveryResponse(delivery), nil
}

func toDeliveryResponse(d *model.Delivery) DeliveryResponse {
	res := DeliveryResponse{
		ID:               d.ID.String(),
		OrderID:          d.OrderID.String(),
		Direction:        string(d.Direction),
		Status:           string(d.Status),
		Progress:         d.Progress(),
		CounterpartyName: d.CounterpartyName,
		TotalQuantity:    d.TotalQuantity,
		ShippedDate:      formatDate(d.ShippedDate),
		ReceivedDate:     formatDate(d.ReceivedDate),
		Lines:            make([]DeliveryLineResponse, 0, len(d.Lines)),
		CreatedAt:        d.CreatedAt.Format(dateTimeLayout),
	}
	if next, err := model.NextStatus(d.Direction, d.Status); err == nil {
		res.NextStatus = string(next)
	}
	total := model.Totals{}
	for _, l := range d.Lines {
		lineTotal := l.Total()
		total.Value = total.Value.Add(lineTotal)
		res.Lines = append(res.Lines, DeliveryLineResponse{
			ID:              l.ID.String(),
			OrderLineID:     l.OrderLineID.String(),
			ProductID:       l.ProductID.String(),
			ProductName:     l.ProductName,
			QuantityShipped: l.QuantityShipped,
			SellPrice:       money(l.SellPrice),
			PurchasePrice:   money(l.PurchasePrice),
			DiscountPercent: money(l.DiscountPercent),
			Total:           money(lineTotal),
			ExpiryDate:      formatDate(l.ExpiryDate),
		})
	}
	res.TotalValue = money(total.Value)
	return res
}
