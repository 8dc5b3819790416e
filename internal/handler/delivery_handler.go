package handler

import (
	"net/http"

	"fulfillment/internal/middleware"
	"fulfillment/internal/service"
	"fulfillment/pkg/pagination"
	"fulfillment/pkg/response"

	"github.com/gin-gonic/gin"
)

type DeliveryHandler struct {
	deliveryService service.DeliveryService
}

func NewDeliveryHandler(deliveryService service.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{deliveryService: deliveryService}
}

func (h *DeliveryHandler) RegisterRoutes(router *gin.RouterGroup, idempotent gin.HandlerFunc) {
	deliveries := router.Group("/api/deliveries")
	{
		deliveries.GET("", h.ListDeliveries)
		deliveries.GET("/:id", h.GetDelivery)
		deliveries.POST("/:id/transition", idempotent, h.Transition)
		deliveries.POST("/:id/advance", idempotent, h.Advance)
		deliveries.PUT("/:id/lines/:lineId/expiry", idempotent, h.SetLineExpiry)
	}
}

// ListDeliveries returns deliveries with their progress
// @Summary      List deliveries
// @Tags         deliveries
// @Produce      json
// @Param        direction  query     string  false  "INBOUND or OUTBOUND"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Number of items per page (default 20)"
// @Success      200        {object}  response.Response{data=response.Page}
// @Router       /api/deliveries [get]
func (h *DeliveryHandler) ListDeliveries(c *gin.Context) {
	p := pagination.Parse(c)
	deliveries, total, err := h.deliveryService.ListDeliveries(c.Request.Context(), c.Query("direction"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paged(http.StatusOK, deliveries, total, p))
}

// GetDelivery returns one delivery
// @Summary      Get delivery
// @Tags         deliveries
// @Produce      json
// @Param        id   path      string  true  "Delivery ID"
// @Success      200  {object}  response.Response{data=service.DeliveryResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/deliveries/{id} [get]
func (h *DeliveryHandler) GetDelivery(c *gin.Context) {
	d, err := h.deliveryService.GetDelivery(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, d))
}

// Transition moves a delivery to a new status
// @Summary      Transition delivery
// @Description  Fails with 409 when the stored status no longer equals expected_status
// @Tags         deliveries
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Delivery ID"
// @Param        payload  body      service.TransitionRequest  true  "Expected and new status"
// @Success      200      {object}  response.Response{data=service.TransitionResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/deliveries/{id}/transition [post]
func (h *DeliveryHandler) Transition(c *gin.Context) {
	var req service.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.deliveryService.ApplyTransition(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Advance moves a delivery one step along its lifecycle
// @Summary      Advance delivery
// @Tags         deliveries
// @Produce      json
// @Param        id   path      string  true  "Delivery ID"
// @Success      200  {object}  response.Response{data=service.TransitionResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/deliveries/{id}/advance [post]
func (h *DeliveryHandler) Advance(c *gin.Context) {
	res, err := h.deliveryService.Advance(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// SetLineExpiry records the expiry date of an inbound line
// @Summary      Set line expiry date
// @Tags         deliveries
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Delivery ID"
// @Param        lineId   path      string                        true  "Delivery line ID"
// @Param        payload  body      service.SetLineExpiryRequest  true  "Expiry date (YYYY-MM-DD)"
// @Success      200      {object}  response.Response{data=service.DeliveryResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/deliveries/{id}/lines/{lineId}/expiry [put]
func (h *DeliveryHandler) SetLineExpiry(c *gin.Context) {
	var req service.SetLineExpiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	d, err := h.deliveryService.SetLineExpiry(c.Request.Context(), middleware.GetActor(c), c.Param("id"), c.Param("lineId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, d))
}
