package handler

import (
	"net/http"
	"time"

	"fulfillment/internal/model"
	"fulfillment/internal/service"
	"fulfillment/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService service.ReportService
}

func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/reports", h.GetReport)
}

// GetReport aggregates sales and purchase records
// @Summary      Financial report
// @Description  Filters accepted orders by search term and inclusive date range, then totals them
// @Tags         reports
// @Produce      json
// @Param        type        query     string  false  "Sales or Purchase"
// @Param        search      query     string  false  "Case-insensitive search over every field"
// @Param        start_date  query     string  false  "Start date (YYYY-MM-DD)"
// @Param        end_date    query     string  false  "End date (YYYY-MM-DD)"
// @Success      200         {object}  response.Response{data=service.ReportResponse}
// @Failure      400         {object}  response.Response
// @Router       /api/reports [get]
func (h *ReportHandler) GetReport(c *gin.Context) {
	filter := model.ReportFilter{SearchTerm: c.Query("search")}

	var err error
	if filter.StartDate, err = parseDateQuery(c, "start_date"); err != nil {
		respondError(c, err)
		return
	}
	if filter.EndDate, err = parseDateQuery(c, "end_date"); err != nil {
		respondError(c, err)
		return
	}

	report, err := h.reportService.Report(c.Request.Context(), c.Query("type"), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

func parseDateQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, model.NewValidationError(key, "date must be YYYY-MM-DD")
	}
	return &t, nil
}
