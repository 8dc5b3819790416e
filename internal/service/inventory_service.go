package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fulfillment/internal/model"
	"fulfillment/internal/repository"
	ws "fulfillment/internal/websocket"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DTOs
type CreateProductRequest struct {
	SKU          string `json:"sku" binding:"required,max=100"`
	Name         string `json:"name" binding:"required,max=255"`
	ReorderLevel int    `json:"reorder_level" binding:"min=0"`
}

type ProductResponse struct {
	ID           string `json:"id"`
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	ReorderLevel int    `json:"reorder_level"`
}

type ConsumeBatchRequest struct {
	Quantity  int    `json:"quantity" binding:"required"`
	Reference string `json:"reference" binding:"max=255"`
}

type BatchResponse struct {
	ID                string `json:"id"`
	BatchID           string `json:"batch_id"`
	ProductID         string `json:"product_id"`
	ProductName       string `json:"product_name"`
	DeliveryID        string `json:"delivery_id"`
	QuantityOnHand    int    `json:"quantity_on_hand"`
	QuantityDelivered int    `json:"quantity_delivered"`
	ExpiryDate        string `json:"expiry_date"`
	ReceivedDate      string `json:"received_date"`
	StockClass        string `json:"stock_class"`
	Expired           bool   `json:"expired"`
}

type InventoryService interface {
	CreateProduct(ctx context.Context, actor string, req CreateProductRequest) (ProductResponse, error)
	ListProducts(ctx context.Context, page, limit int, search string) ([]ProductResponse, int64, error)
	CreateBatchesForDelivery(ctx context.Context, actor, deliveryID string) ([]BatchResponse, error)
	ListBatches(ctx context.Context, productID string, page, limit int) ([]BatchResponse, int64, error)
	GetBatch(ctx context.Context, id string) (BatchResponse, error)
	ConsumeBatch(ctx context.Context, actor, id string, req ConsumeBatchRequest) (BatchResponse, error)
	ExpiringBatches(ctx context.Context, within time.Duration) ([]BatchResponse, error)
}

type inventoryService struct {
	productRepo  repository.ProductRepository
	batchRepo    repository.BatchRepository
	movementRepo repository.MovementRepository
	deliveryRepo repository.DeliveryRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	events       EventPublisher
	log          *zap.Logger
	now          Clock
}

func NewInventoryService(
	productRepo repository.ProductRepository,
	batchRepo repository.BatchRepository,
	movementRepo repository.MovementRepository,
	deliveryRepo repository.DeliveryRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
	log *zap.Logger,
	now Clock,
) InventoryService {
	return &inventoryService{
		productRepo:  productRepo,
		batchRepo:    batchRepo,
		movementRepo: movementRepo,
		deliveryRepo: deliveryRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		events:       publisherOrNoop(events),
		log:          log,
		now:          clockOrNow(now),
	}
}

func (s *inventoryService) CreateProduct(ctx context.Context, actor string, req CreateProductRequest) (ProductResponse, error) {
	if strings.TrimSpace(req.SKU) == "" {
		return ProductResponse{}, model.NewValidationError("sku", "sku is required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return ProductResponse{}, model.NewValidationError("name", "name is required")
	}
	if req.ReorderLevel < 0 {
		return ProductResponse{}, model.NewValidationError("reorder_level", "reorder level cannot be negative")
	}

	product := model.Product{
		SKU:          strings.TrimSpace(req.SKU),
		Name:         strings.TrimSpace(req.Name),
		ReorderLevel: req.ReorderLevel,
	}
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Create(txCtx, &product); err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateProduct, product.ID.String(), product.Name, req)
	})
	if err != nil {
		return ProductResponse{}, err
	}
	return toProductResponse(&product), nil
}

func (s *inventoryService) ListProducts(ctx context.Context, page, limit int, search string) ([]ProductResponse, int64, error) {
	page, limit = normalizePage(page, limit)
	products, total, err := s.productRepo.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	res := make([]ProductResponse, 0, len(products))
	for i := range products {
		res = append(res, toProductResponse(&products[i]))
	}
	return res, total, nil
}

// CreateBatchesForDelivery converts a received inbound delivery into batches.
// Lines that already have a batch are skipped, so retrying after an ambiguous
// failure returns the same set without duplicates.
func (s *inventoryService) CreateBatchesForDelivery(ctx context.Context, actor, deliveryID string) ([]BatchResponse, error) {
	dID, err := parseID("delivery_id", deliveryID)
	if err != nil {
		return nil, err
	}

	var (
		batches  []model.InventoryBatch
		inserted int64
	)
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		delivery, err := s.deliveryRepo.FindByIDWithLines(txCtx, dID)
		if err != nil {
			return fmt.Errorf("failed to load delivery: %w", err)
		}
		candidates, err := model.BuildBatchesForDelivery(delivery)
		if err != nil {
			return err
		}

		inserted, err = s.batchRepo.CreateIfAbsent(txCtx, candidates)
		if err != nil {
			return fmt.Errorf("failed to create inventory batches: %w", err)
		}
		batches, err = s.batchRepo.FindByDeliveryID(txCtx, dID)
		if err != nil {
			return fmt.Errorf("failed to load inventory batches: %w", err)
		}
		if inserted == 0 {
			return nil
		}

		// only rows this call inserted carry the ids assigned to candidates
		attempted := make(map[uuid.UUID]bool, len(candidates))
		for _, c := range candidates {
			attempted[c.ID] = true
		}
		movements := make([]*model.StockMovement, 0, len(batches))
		for _, b := range batches {
			if !attempted[b.ID] {
				continue
			}
			movements = append(movements, &model.StockMovement{
				BatchID:         b.ID,
				ProductID:       b.ProductID,
				MovementType:    model.MovementIn,
				QuantityChanged: b.QuantityDelivered,
				QuantityAfter:   b.QuantityOnHand,
				Reference:       "delivery:" + dID.String(),
			})
		}
		if err := s.movementRepo.Create(txCtx, movements...); err != nil {
			return fmt.Errorf("failed to record stock movements: %w", err)
		}

		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateBatches, dID.String(), delivery.CounterpartyName, map[string]interface{}{
			"batches": inserted,
		})
	})
	if err != nil {
		return nil, err
	}

	model.SortByExpiry(batches)
	res, err := s.toBatchResponses(ctx, batches)
	if err != nil {
		return nil, err
	}
	if inserted > 0 {
		logFor(ctx, s.log).Info("inventory batches created",
			zap.String("delivery_id", dID.String()),
			zap.Int64("inserted", inserted),
		)
		s.events.Publish(ws.EventBatchesCreated, res)
	}
	return res, nil
}

// ListBatches is always ordered soonest expiry first.
func (s *inventoryService) ListBatches(ctx context.Context, productID string, page, limit int) ([]BatchResponse, int64, error) {
	page, limit = normalizePage(page, limit)
	filter := repository.BatchListFilter{Page: page, Limit: limit}
	if productID != "" {
		pID, err := parseID("product_id", productID)
		if err != nil {
			return nil, 0, err
		}
		filter.ProductID = &pID
	}

	batches, total, err := s.batchRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list inventory batches: %w", err)
	}
	model.SortByExpiry(batches)
	res, err := s.toBatchResponses(ctx, batches)
	if err != nil {
		return nil, 0, err
	}
	return res, total, nil
}

func (s *inventoryService) GetBatch(ctx context.Context, id string) (BatchResponse, error) {
	batchID, err := parseID("id", id)
	if err != nil {
		return BatchResponse{}, err
	}
	batch, err := s.batchRepo.FindByID(ctx, batchID)
	if err != nil {
		return BatchResponse{}, fmt.Errorf("failed to load inventory batch: %w", err)
	}
	res, err := s.toBatchResponses(ctx, []model.InventoryBatch{*batch})
	if err != nil {
		return BatchResponse{}, err
	}
	return res[0], nil
}

// ConsumeBatch takes stock out of a batch and records an OUT movement.
func (s *inventoryService) ConsumeBatch(ctx context.Context, actor, id string, req ConsumeBatchRequest) (BatchResponse, error) {
	batchID, err := parseID("id", id)
	if err != nil {
		return BatchResponse{}, err
	}

	var batch *model.InventoryBatch
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		batch, err = s.batchRepo.FindByIDForUpdate(txCtx, batchID)
		if err != nil {
			return fmt.Errorf("failed to load inventory batch: %w", err)
		}
		if err := batch.Consume(req.Quantity); err != nil {
			return err
		}
		if err := s.batchRepo.UpdateQuantity(txCtx, batch.ID, batch.QuantityOnHand); err != nil {
			return fmt.Errorf("failed to update batch quantity: %w", err)
		}
		if err := s.movementRepo.Create(txCtx, &model.StockMovement{
			BatchID:         batch.ID,
			ProductID:       batch.ProductID,
			MovementType:    model.MovementOut,
			QuantityChanged: req.Quantity,
			QuantityAfter:   batch.QuantityOnHand,
			Reference:       req.Reference,
		}); err != nil {
			return fmt.Errorf("failed to record stock movement: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionConsumeBatch, batch.ID.String(), batch.BatchID, map[string]interface{}{
			"quantity":       req.Quantity,
			"quantity_after": batch.QuantityOnHand,
			"reference":      req.Reference,
		})
	})
	if err != nil {
		return BatchResponse{}, err
	}

	res, err := s.toBatchResponses(ctx, []model.InventoryBatch{*batch})
	if err != nil {
		return BatchResponse{}, err
	}
	s.events.Publish(ws.EventBatchConsumed, res[0])
	return res[0], nil
}

// ExpiringBatches lists batches with stock left that expire within the window.
func (s *inventoryService) ExpiringBatches(ctx context.Context, within time.Duration) ([]BatchResponse, error) {
	if within < 0 {
		return nil, model.NewValidationError("days", "window cannot be negative")
	}
	batches, err := s.batchRepo.ListExpiringBefore(ctx, s.now().UTC().Add(within))
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring batches: %w", err)
	}
	model.SortByExpiry(batches)
	return s.toBatchResponses(ctx, batches)
}

// toBatchResponses classifies each batch against its product's reorder level.
func (s *inventoryService) toBatchResponses(ctx context.Context, batches []model.InventoryBatch) ([]BatchResponse, error) {
	ids := make([]uuid.UUID, 0, len(batches))
	for _, b := range batches {
		ids = append(ids, b.ProductID)
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	now := s.now()
	res := make([]BatchResponse, 0, len(batches))
	for i := range batches {
		b := &batches[i]
		res = append(res, BatchResponse{
			ID:                b.ID.String(),
			BatchID:           b.BatchID,
			ProductID:         b.ProductID.String(),
			ProductName:       b.ProductName,
			DeliveryID:        b.DeliveryID.String(),
			QuantityOnHand:    b.QuantityOnHand,
			QuantityDelivered: b.QuantityDelivered,
			ExpiryDate:        b.ExpiryDate.Format(dateLayout),
			ReceivedDate:      b.ReceivedDate.Format(dateLayout),
			StockClass:        string(model.Classify(b.QuantityOnHand, products[b.ProductID].ReorderLevel)),
			Expired:           b.IsExpired(now),
		})
	}
	return res, nil
}

func toProductResponse(p *model.Product) ProductResponse {
	return ProductResponse{
		ID:           p.ID.String(),
		SKU:          p.SKU,
		Name:         p.Name,
		ReorderLevel: p.ReorderLevel,
	}
}
