package handler

import (
	"net/http"

	"fulfillment/internal/middleware"
	"fulfillment/internal/service"
	"fulfillment/pkg/pagination"
	"fulfillment/pkg/response"

	"github.com/gin-gonic/gin"
)

type IssueHandler struct {
	issueService service.IssueService
}

func NewIssueHandler(issueService service.IssueService) *IssueHandler {
	return &IssueHandler{issueService: issueService}
}

func (h *IssueHandler) RegisterRoutes(router *gin.RouterGroup, idempotent gin.HandlerFunc) {
	api := router.Group("/api")
	{
		api.POST("/deliveries/:id/issues", idempotent, h.SubmitIssue)
		api.GET("/issues", h.ListIssues)
		api.GET("/issues/:id", h.GetIssue)
		api.POST("/issues/:id/resolve", idempotent, h.ResolveIssue)
	}
}

// SubmitIssue records defects against a shipped outbound delivery
// @Summary      Submit issue
// @Tags         issues
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Delivery ID"
// @Param        payload  body      service.SubmitIssueRequest  true  "Defect lines and remarks"
// @Success      201      {object}  response.Response{data=service.IssueResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/deliveries/{id}/issues [post]
func (h *IssueHandler) SubmitIssue(c *gin.Context) {
	var req service.SubmitIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	issue, err := h.issueService.SubmitIssue(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, issue))
}

// ListIssues lists issues newest first
// @Summary      List issues
// @Tags         issues
// @Produce      json
// @Param        delivery_id  query     string  false  "Filter by delivery"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Success      200          {object}  response.Response{data=response.Page}
// @Router       /api/issues [get]
func (h *IssueHandler) ListIssues(c *gin.Context) {
	p := pagination.Parse(c)
	issues, total, err := h.issueService.ListIssues(c.Request.Context(), c.Query("delivery_id"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paged(http.StatusOK, issues, total, p))
}

// GetIssue returns one issue
// @Summary      Get issue
// @Tags         issues
// @Produce      json
// @Param        id   path      string  true  "Issue ID"
// @Success      200  {object}  response.Response{data=service.IssueResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/issues/{id} [get]
func (h *IssueHandler) GetIssue(c *gin.Context) {
	issue, err := h.issueService.GetIssue(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, issue))
}

// ResolveIssue closes a pending issue
// @Summary      Resolve issue
// @Tags         issues
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Issue ID"
// @Param        payload  body      service.ResolveIssueRequest  true  "Resolution"
// @Success      200      {object}  response.Response{data=service.IssueResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/issues/{id}/resolve [post]
func (h *IssueHandler) ResolveIssue(c *gin.Context) {
	var req service.ResolveIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	issue, err := h.issueService.ResolveIssue(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, issue))
}
