package service

import (
	"context"
	"fmt"

	"fulfillment/internal/model"
	"fulfillment/internal/repository"
)

type ReportRecordResponse struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Reference    string `json:"reference"`
	Counterparty string `json:"counterparty"`
	Date         string `json:"date"`
	Quantity     int    `json:"quantity"`
	Revenue      string `json:"revenue"`
	Cost         string `json:"cost"`
	Discount     string `json:"discount"`
	GrossProfit  string `json:"gross_profit"`
}

type ReportSummaryResponse struct {
	Count         int    `json:"count"`
	TotalRevenue  string `json:"total_revenue"`
	TotalCost     string `json:"total_cost"`
	TotalDiscount string `json:"total_discount"`
	GrossProfit   string `json:"gross_profit"`
}

type ReportResponse struct {
	Records []ReportRecordResponse `json:"records"`
	Summary ReportSummaryResponse  `json:"summary"`
}

type ReportService interface {
	Report(ctx context.Context, reportType string, filter model.ReportFilter) (ReportResponse, error)
}

type reportService struct {
	orderRepo repository.OrderRepository
}

func NewReportService(orderRepo repository.OrderRepository) ReportService {
	return &reportService{orderRepo: orderRepo}
}

// Report derives records from accepted orders on every call, filters them and
// aggregates the filtered set. Nothing is cached and nothing is written.
func (s *reportService) Report(ctx context.Context, reportType string, filter model.ReportFilter) (ReportResponse, error) {
	kind := ""
	switch model.ReportType(reportType) {
	case "":
	case model.ReportSales:
		kind = model.OrderKindCustomer
	case model.ReportPurchase:
		kind = model.OrderKindSupplier
	default:
		return ReportResponse{}, model.NewValidationError("type", "type must be Sales or Purchase")
	}

	orders, err := s.orderRepo.ListAccepted(ctx, kind, filter.StartDate, filter.EndDate)
	if err != nil {
		return ReportResponse{}, fmt.Errorf("failed to load accepted orders: %w", err)
	}

	records := make([]model.ReportRecord, 0, len(orders))
	for i := range orders {
		records = append(records, model.RecordFromOrder(&orders[i]))
	}
	records = model.FilterRecords(records, filter)
	model.SortByDateDesc(records)
	summary := model.Aggregate(records)

	res := ReportResponse{
		Records: make([]ReportRecordResponse, 0, len(records)),
		Summary: ReportSummaryResponse{
			Count:         summary.Count,
			TotalRevenue:  money(summary.TotalRevenue),
			TotalCost:     money(summary.TotalCost),
			TotalDiscount: money(summary.TotalDiscount),
			GrossProfit:   money(summary.GrossProfit),
		},
	}
	for _, r := range records {
		res.Records = append(res.Records, ReportRecordResponse{
			ID:           r.ID,
			Type:         string(r.Type),
			Reference:    r.Reference,
			Counterparty: r.Counterparty,
			Date:         r.Date.Format(dateLayout),
			Quantity:     r.Quantity,
			Revenue:      money(r.Revenue),
			Cost:         money(r.Cost),
			Discount:     money(r.Discount),
			GrossProfit:  money(r.GrossProfit()),
		})
	}
	return res, nil
}
