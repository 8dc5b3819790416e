package handler

import (
	"net/http"

	"fulfillment/internal/middleware"
	"fulfillment/internal/service"
	"fulfillment/pkg/pagination"
	"fulfillment/pkg/response"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup, idempotent gin.HandlerFunc) {
	orders := router.Group("/api/orders")
	{
		orders.GET("", h.ListOrders)
		orders.POST("", idempotent, h.CreateOrder)
		orders.POST("/calculate", h.Calculate)
		orders.GET("/:id", h.GetOrder)
		orders.PUT("/:id/lines", idempotent, h.UpdateOrderLines)
		orders.POST("/:id/accept", idempotent, h.AcceptOrder)
		orders.POST("/:id/reject", idempotent, h.RejectOrder)
	}
}

// CreateOrder creates a pending customer or supplier order
// @Summary      Create order
// @Description  Creates a pending order; lines are validated strictly
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header    string                      false  "Replay protection key"
// @Param        payload          body      service.CreateOrderRequest  true   "Create Order Payload"
// @Success      201              {object}  response.Response{data=service.OrderResponse}
// @Failure      400              {object}  response.Response
// @Failure      409              {object}  response.Response
// @Router       /api/orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// ListOrders returns orders newest first
// @Summary      List orders
// @Tags         orders
// @Produce      json
// @Param        kind   query     string  false  "CUSTOMER or SUPPLIER"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=response.Page}
// @Router       /api/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	p := pagination.Parse(c)
	orders, total, err := h.orderService.ListOrders(c.Request.Context(), c.Query("kind"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paged(http.StatusOK, orders, total, p))
}

// GetOrder returns one order with lines and totals
// @Summary      Get order
// @Tags         orders
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=service.OrderResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// UpdateOrderLines replaces the lines of a pending order
// @Summary      Update order lines
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id       path      string                           true  "Order ID"
// @Param        payload  body      service.UpdateOrderLinesRequest  true  "Lines"
// @Success      200      {object}  response.Response{data=service.OrderResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/orders/{id}/lines [put]
func (h *OrderHandler) UpdateOrderLines(c *gin.Context) {
	var req service.UpdateOrderLinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := h.orderService.UpdateOrderLines(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// AcceptOrder accepts a pending order and creates its delivery
// @Summary      Accept order
// @Tags         orders
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=service.AcceptOrderResponse}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/orders/{id}/accept [post]
func (h *OrderHandler) AcceptOrder(c *gin.Context) {
	res, err := h.orderService.AcceptOrder(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// RejectOrder rejects a pending order
// @Summary      Reject order
// @Tags         orders
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=service.OrderResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/orders/{id}/reject [post]
func (h *OrderHandler) RejectOrder(c *gin.Context) {
	res, err := h.orderService.RejectOrder(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Calculate previews totals for unsaved order lines
// @Summary      Calculate order totals
// @Description  Lenient calculator: non-numeric input counts as zero
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CalculateRequest  true  "Raw line values"
// @Success      200      {object}  response.Response{data=service.CalculateResponse}
// @Router       /api/orders/calculate [post]
func (h *OrderHandler) Calculate(c *gin.Context) {
	var req service.CalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.orderService.Calculate(req)))
}
