package model

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ReportType of a report record
type ReportType string

const (
	ReportSales    ReportType = "Sales"
	ReportPurchase ReportType = "Purchase"
)

// ReportRecord is one sales or purchase row fed into the aggregator. It is
// derived from orders on every query and never persisted.
type ReportRecord struct {
	ID           string          `json:"id"`
	Type         ReportType      `json:"type"`
	Reference    string          `json:"reference"`
	Counterparty string          `json:"counterparty"`
	Date         time.Time       `json:"date"`
	Quantity     int             `json:"quantity"`
	Revenue      decimal.Decimal `json:"revenue"`
	Cost         decimal.Decimal `json:"cost"`
	Discount     decimal.Decimal `json:"discount"`
}

// GrossProfit is revenue minus cost for this record.
func (r ReportRecord) GrossProfit() decimal.Decimal {
	return r.Revenue.Sub(r.Cost)
}

// searchText renders every field the way the dashboards display it.
func (r ReportRecord) searchText() []string {
	return []string{
		r.ID,
		string(r.Type),
		r.Reference,
		r.Counterparty,
		r.Date.Format("2006-01-02"),
		strconv.Itoa(r.Quantity),
		r.Revenue.StringFixed(2),
		r.Cost.StringFixed(2),
		r.Discount.StringFixed(2),
		r.GrossProfit().StringFixed(2),
	}
}

// RecordFromOrder derives the report row for an accepted order. Customer
// orders become sales (revenue = net value, cost = purchase cost); supplier
// orders become purchases (cost = net value).
func RecordFromOrder(o *Order) ReportRecord {
	totals := o.Totals()
	date := o.CreatedAt
	if o.AcceptedAt != nil {
		date = *o.AcceptedAt
	}
	rec := ReportRecord{
		ID:           o.ID.String(),
		Reference:    o.OrderCode,
		Counterparty: o.CounterpartyName,
		Date:         date,
		Quantity:     totals.Quantity,
		Discount:     totals.DiscountValue,
	}
	if o.Kind == OrderKindSupplier {
		rec.Type = ReportPurchase
		rec.Revenue = decimal.Zero
		rec.Cost = totals.Value
		return rec
	}
	cost := decimal.Zero
	for _, l := range o.Lines {
		cost = cost.Add(l.CostTotal())
	}
	rec.Type = ReportSales
	rec.Revenue = totals.Value
	rec.Cost = cost
	return rec
}

// ReportFilter narrows the records before aggregation. Nil dates are unbounded.
type ReportFilter struct {
	SearchTerm string
	StartDate  *time.Time
	EndDate    *time.Time
}

// Matches applies the search term (case-insensitive substring over any
// field) and the inclusive day-granularity date range.
func (f ReportFilter) Matches(r ReportRecord) bool {
	day := *dateOnly(r.Date)
	if f.StartDate != nil && day.Before(*dateOnly(*f.StartDate)) {
		return false
	}
	if f.EndDate != nil && day.After(*dateOnly(*f.EndDate)) {
		return false
	}
	term := strings.ToLower(strings.TrimSpace(f.SearchTerm))
	if term == "" {
		return true
	}
	for _, field := range r.searchText() {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// FilterRecords returns the matching records in their original order.
func FilterRecords(records []ReportRecord, f ReportFilter) []ReportRecord {
	out := make([]ReportRecord, 0, len(records))
	for _, r := range records {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// ReportSummary holds the totals shown on report cards
type ReportSummary struct {
	Count         int             `json:"count"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	GrossProfit   decimal.Decimal `json:"gross_profit"`
}

// Aggregate sums the records; negative amounts count as zero. Pure addition,
// so the result does not depend on record order.
func Aggregate(records []ReportRecord) ReportSummary {
	sum := ReportSummary{
		Count:         len(records),
		TotalRevenue:  decimal.Zero,
		TotalCost:     decimal.Zero,
		TotalDiscount: decimal.Zero,
	}
	for _, r := range records {
		sum.TotalRevenue = sum.TotalRevenue.Add(nonNegative(r.Revenue))
		sum.TotalCost = sum.TotalCost.Add(nonNegative(r.Cost))
		sum.TotalDiscount = sum.TotalDiscount.Add(nonNegative(r.Discount))
	}
	sum.GrossProfit = sum.TotalRevenue.Sub(sum.TotalCost)
	return sum
}

// SortByDateDesc orders records most recent first, ties by reference.
func SortByDateDesc(records []ReportRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.After(records[j].Date)
		}
		return records[i].Reference < records[j].Reference
	})
}
