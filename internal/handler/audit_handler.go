package handler

import (
	"net/http"

	"fulfillment/internal/service"
	"fulfillment/pkg/pagination"
	"fulfillment/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs pages through the audit trail newest first
// @Summary      Get audit logs
// @Description  Retrieves audit entries, optionally for a single entity
// @Tags         audit
// @Produce      json
// @Param        entity_id  query     string  false  "Filter by entity"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Number of items per page (default 20)"
// @Success      200        {object}  response.Response{data=response.Page}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)
	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), c.Query("entity_id"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paged(http.StatusOK, logs, total, p))
}
