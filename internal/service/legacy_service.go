package service

import (
	"context"
	"errors"
	"fmt"

	"fulfillment/internal/legacy"
	"fulfillment/internal/model"
	"fulfillment/internal/repository"
	"fulfillment/pkg/latest"

	"go.uber.org/zap"
)

// LegacyGateway is the part of legacy.Client the service needs.
type LegacyGateway interface {
	Configured() bool
	FetchOrder(ctx context.Context, id string) (*legacy.Order, error)
	CreateDelivery(ctx context.Context, d legacy.Delivery) (*legacy.Delivery, error)
}

type LegacyService interface {
	PreviewOrder(ctx context.Context, legacyID string) (*legacy.Order, error)
	ImportOrder(ctx context.Context, actor, legacyID string) (OrderResponse, error)
	PushDelivery(ctx context.Context, deliveryID string) (*legacy.Delivery, error)
}

type legacyService struct {
	gateway      LegacyGateway
	orders       OrderService
	productRepo  repository.ProductRepository
	deliveryRepo repository.DeliveryRepository
	loader       *latest.Loader[string, *legacy.Order]
	log          *zap.Logger
}

func NewLegacyService(
	gateway LegacyGateway,
	orders OrderService,
	productRepo repository.ProductRepository,
	deliveryRepo repository.DeliveryRepository,
	log *zap.Logger,
) LegacyService {
	return &legacyService{
		gateway:      gateway,
		orders:       orders,
		productRepo:  productRepo,
		deliveryRepo: deliveryRepo,
		loader:       latest.New[string, *legacy.Order](),
		log:          log,
	}
}

// PreviewOrder fetches a legacy order. A newer fetch of the same order
// supersedes one still in flight; the older caller gets latest.ErrStale.
func (s *legacyService) PreviewOrder(ctx context.Context, legacyID string) (*legacy.Order, error) {
	if !s.gateway.Configured() {
		return nil, legacy.ErrNotConfigured
	}
	order, err := s.loader.Load(ctx, legacyID, func(ctx context.Context) (*legacy.Order, error) {
		return s.gateway.FetchOrder(ctx, legacyID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch legacy order %s: %w", legacyID, err)
	}
	return order, nil
}

// ImportOrder copies a legacy order into a new pending order. Products are
// matched by SKU; nothing is written unless every line resolves.
func (s *legacyService) ImportOrder(ctx context.Context, actor, legacyID string) (OrderResponse, error) {
	src, err := s.PreviewOrder(ctx, legacyID)
	if err != nil {
		return OrderResponse{}, err
	}

	req := CreateOrderRequest{
		OrderCode:        src.Code,
		Kind:             src.Kind(),
		CounterpartyName: src.Counterparty,
		Note:             src.Remarks,
		Lines:            make([]OrderLineRequest, 0, len(src.Lines)),
	}
	if req.OrderCode == "" {
		req.OrderCode = src.ID
	}
	for i, l := range src.Lines {
		product, err := s.productRepo.FindBySKU(ctx, l.ProductCode)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return OrderResponse{}, model.NewValidationError(fmt.Sprintf("lines[%d].product_code", i),
					fmt.Sprintf("no product with sku %q", l.ProductCode))
			}
			return OrderResponse{}, fmt.Errorf("failed to load product: %w", err)
		}
		req.Lines = append(req.Lines, OrderLineRequest{
			ProductID:       product.ID.String(),
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice.Decimal,
			PurchasePrice:   l.PurchasePrice.Decimal,
			DiscountPercent: l.Discount.Decimal,
		})
	}

	res, err := s.orders.CreateOrder(ctx, actor, req)
	if err != nil {
		return OrderResponse{}, err
	}
	logFor(ctx, s.log).Info("legacy order imported",
		zap.String("legacy_id", legacyID),
		zap.String("order_id", res.ID),
	)
	return res, nil
}

// PushDelivery sends a delivery to the legacy backend. Local state is never
// touched, so a failed push can simply be retried.
func (s *legacyService) PushDelivery(ctx context.Context, deliveryID string) (*legacy.Delivery, error) {
	if !s.gateway.Configured() {
		return nil, legacy.ErrNotConfigured
	}
	dID, err := parseID("id", deliveryID)
	if err != nil {
		return nil, err
	}
	delivery, err := s.deliveryRepo.FindByIDWithLines(ctx, dID)
	if err != nil {
		return nil, fmt.Errorf("failed to load delivery: %w", err)
	}
	created, err := s.gateway.CreateDelivery(ctx, legacy.DeliveryFromModel(delivery))
	if err != nil {
		return nil, fmt.Errorf("failed to push delivery %s: %w", dID, err)
	}
	return created, nil
}
