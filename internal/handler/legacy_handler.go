package handler

import (
	"net/http"

	"fulfillment/internal/middleware"
	"fulfillment/internal/service"
	"fulfillment/pkg/response"

	"github.com/gin-gonic/gin"
)

type LegacyHandler struct {
	legacyService service.LegacyService
}

func NewLegacyHandler(legacyService service.LegacyService) *LegacyHandler {
	return &LegacyHandler{legacyService: legacyService}
}

func (h *LegacyHandler) RegisterRoutes(router *gin.RouterGroup, idempotent gin.HandlerFunc) {
	group := router.Group("/api/legacy")
	{
		group.GET("/orders/:legacyId", h.PreviewOrder)
		group.POST("/orders/:legacyId/import", idempotent, h.ImportOrder)
		group.POST("/deliveries/:id/push", idempotent, h.PushDelivery)
	}
}

// PreviewOrder fetches an order from the legacy backend without importing it
// @Summary      Preview legacy order
// @Tags         legacy
// @Produce      json
// @Param        legacyId  path      string  true  "Legacy order ID"
// @Success      200       {object}  response.Response{data=legacy.Order}
// @Failure      502       {object}  response.Response
// @Router       /api/legacy/orders/{legacyId} [get]
func (h *LegacyHandler) PreviewOrder(c *gin.Context) {
	order, err := h.legacyService.PreviewOrder(c.Request.Context(), c.Param("legacyId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// ImportOrder copies a legacy order into a new pending order
// @Summary      Import legacy order
// @Tags         legacy
// @Produce      json
// @Param        legacyId  path      string  true  "Legacy order ID"
// @Success      201       {object}  response.Response{data=service.OrderResponse}
// @Failure      400       {object}  response.Response
// @Failure      502       {object}  response.Response
// @Router       /api/legacy/orders/{legacyId}/import [post]
func (h *LegacyHandler) ImportOrder(c *gin.Context) {
	order, err := h.legacyService.ImportOrder(c.Request.Context(), middleware.GetActor(c), c.Param("legacyId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// PushDelivery sends a local delivery to the legacy backend
// @Summary      Push delivery to legacy backend
// @Tags         legacy
// @Produce      json
// @Param        id   path      string  true  "Delivery ID"
// @Success      200  {object}  response.Response{data=legacy.Delivery}
// @Failure      502  {object}  response.Response
// @Router       /api/legacy/deliveries/{id}/push [post]
func (h *LegacyHandler) PushDelivery(c *gin.Context) {
	d, err := h.legacyService.PushDelivery(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, d))
}
