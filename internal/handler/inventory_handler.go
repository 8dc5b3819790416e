package handler

import (
	"net/http"
	"strconv"
	"time"

	"fulfillment/internal/middleware"
	"fulfillment/internal/model"
	"fulfillment/internal/service"
	"fulfillment/pkg/pagination"
	"fulfillment/pkg/response"

	"github.com/gin-gonic/gin"
)

const defaultExpiryWindowDays = 30

type InventoryHandler struct {
	inventoryService service.InventoryService
}

func NewInventoryHandler(inventoryService service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup, idempotent gin.HandlerFunc) {
	api := router.Group("/api")
	{
		api.GET("/products", h.GetProducts)
		api.POST("/products", idempotent, h.CreateProduct)
		api.GET("/inventory/batches", h.ListBatches)
		api.GET("/inventory/batches/:id", h.GetBatch)
		api.POST("/inventory/batches/:id/consume", idempotent, h.ConsumeBatch)
		api.GET("/inventory/expiring", h.ExpiringBatches)
		api.POST("/deliveries/:id/batches", idempotent, h.CreateBatches)
	}
}

// GetProducts handles retrieving paginated products
// @Summary      Get products
// @Description  Retrieves a paginated list of products
// @Tags         inventory
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        search  query     string  false  "Search by product name"
// @Success      200    {object}  response.Response{data=response.Page}
// @Failure      500    {object}  response.Response
// @Router       /api/products [get]
func (h *InventoryHandler) GetProducts(c *gin.Context) {
	p := pagination.Parse(c)
	products, total, err := h.inventoryService.ListProducts(c.Request.Context(), p.Page, p.Limit, c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paged(http.StatusOK, products, total, p))
}

// CreateProduct creates a new product entry
// @Summary      Create product
// @Description  Creates a new product with its reorder level
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateProductRequest  true  "Create Product Payload"
// @Success      201      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/products [post]
func (h *InventoryHandler) CreateProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	product, err := h.inventoryService.CreateProduct(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// ListBatches lists inventory batches soonest expiry first
// @Summary      List inventory batches
// @Tags         inventory
// @Produce      json
// @Param        product_id  query     string  false  "Filter by product"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Number of items per page (default 20)"
// @Success      200         {object}  response.Response{data=response.Page}
// @Router       /api/inventory/batches [get]
func (h *InventoryHandler) ListBatches(c *gin.Context) {
	p := pagination.Parse(c)
	batches, total, err := h.inventoryService.ListBatches(c.Request.Context(), c.Query("product_id"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paged(http.StatusOK, batches, total, p))
}

// GetBatch returns one batch with its stock classification
// @Summary      Get inventory batch
// @Tags         inventory
// @Produce      json
// @Param        id   path      string  true  "Batch ID"
// @Success      200  {object}  response.Response{data=service.BatchResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/inventory/batches/{id} [get]
func (h *InventoryHandler) GetBatch(c *gin.Context) {
	batch, err := h.inventoryService.GetBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, batch))
}

// ConsumeBatch takes stock out of a batch
// @Summary      Consume from batch
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Batch ID"
// @Param        payload  body      service.ConsumeBatchRequest  true  "Quantity and reference"
// @Success      200      {object}  response.Response{data=service.BatchResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/inventory/batches/{id}/consume [post]
func (h *InventoryHandler) ConsumeBatch(c *gin.Context) {
	var req service.ConsumeBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	batch, err := h.inventoryService.ConsumeBatch(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, batch))
}

// ExpiringBatches lists batches with stock that expire within the window
// @Summary      Expiring batches
// @Tags         inventory
// @Produce      json
// @Param        days  query     int  false  "Window in days (default 30)"
// @Success      200   {object}  response.Response{data=[]service.BatchResponse}
// @Failure      400   {object}  response.Response
// @Router       /api/inventory/expiring [get]
func (h *InventoryHandler) ExpiringBatches(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", strconv.Itoa(defaultExpiryWindowDays)))
	if err != nil {
		respondError(c, model.NewValidationError("days", "days must be a whole number"))
		return
	}
	batches, err := h.inventoryService.ExpiringBatches(c.Request.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, batches))
}

// CreateBatches creates batches for a received inbound delivery; safe to retry
// @Summary      Create batches for delivery
// @Tags         inventory
// @Produce      json
// @Param        id   path      string  true  "Delivery ID"
// @Success      200  {object}  response.Response{data=[]service.BatchResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/deliveries/{id}/batches [post]
func (h *InventoryHandler) CreateBatches(c *gin.Context) {
	batches, err := h.inventoryService.CreateBatchesForDelivery(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, batches))
}
