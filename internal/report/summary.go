// Package report aggregates dashboard figures and exports client lists.
package report

import (
	"time"

	"github.com/MarkoPoloResearchLab/clientdesk/internal/invoice"
	"github.com/MarkoPoloResearchLab/clientdesk/internal/model"
)

// UpcomingMeetingWindow bounds which scheduled meetings count as upcoming.
const UpcomingMeetingWindow = 7 * 24 * time.Hour

// ClientSummary aggregates client records.
type ClientSummary struct {
	Total               int            `json:"total"`
	ByStatus            map[string]int `json:"by_status"`
	TotalValue          float64        `json:"total_value"`
	PaidValue           float64        `json:"paid_value"`
	OutstandingValue    float64        `json:"outstanding_value"`
	AverageSatisfaction float64        `json:"average_satisfaction"`
}

// StatusAmount counts invoices in one status and sums their totals.
type StatusAmount struct {
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

// InvoiceSummary aggregates invoices by status.
type InvoiceSummary struct {
	Total             int                     `json:"total"`
	ByStatus          map[string]StatusAmount `json:"by_status"`
	OutstandingAmount float64                 `json:"outstanding_amount"`
	CollectedAmount   float64                 `json:"collected_amount"`
}

// Summary is the dashboard overview for one caller's visible records.
type Summary struct {
	Clients          ClientSummary  `json:"clients"`
	Invoices         InvoiceSummary `json:"invoices"`
	UpcomingMeetings int            `json:"upcoming_meetings"`
	ActiveGrants     int            `json:"active_grants"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

// Dataset holds the records a summary is computed from.
type Dataset struct {
	Clients  []model.Client
	Invoices []model.Invoice
	Meetings []model.Meeting
	Grants   []model.DeliverableGrant
}

// BuildSummary aggregates dataset as of now.
func BuildSummary(dataset Dataset, now time.Time) Summary {
	summary := Summary{
		Clients: ClientSummary{
			Total:    len(dataset.Clients),
			ByStatus: map[string]int{},
		},
		Invoices: InvoiceSummary{
			Total:    len(dataset.Invoices),
			ByStatus: map[string]StatusAmount{},
		},
		GeneratedAt: now.UTC(),
	}

	var satisfactionSum int
	for _, client := range dataset.Clients {
		summary.Clients.ByStatus[client.Status]++
		summary.Clients.TotalValue += client.TotalValue
		summary.Clients.PaidValue += client.PaidValue
		satisfactionSum += client.Satisfaction
	}
	summary.Clients.TotalValue = invoice.RoundAmount(summary.Clients.TotalValue)
	summary.Clients.PaidValue = invoice.RoundAmount(summary.Clients.PaidValue)
	summary.Clients.OutstandingValue = invoice.RoundAmount(summary.Clients.TotalValue - summary.Clients.PaidValue)
	if len(dataset.Clients) > 0 {
		summary.Clients.AverageSatisfaction = invoice.RoundAmount(float64(satisfactionSum) / float64(len(dataset.Clients)))
	}

	for _, record := range dataset.Invoices {
		statusAmount := summary.Invoices.ByStatus[record.Status]
		statusAmount.Count++
		statusAmount.Amount = invoice.RoundAmount(statusAmount.Amount + record.Total)
		summary.Invoices.ByStatus[record.Status] = statusAmount
		if record.IsOutstanding() {
			summary.Invoices.OutstandingAmount += record.Total
		}
		if record.Status == model.InvoiceStatusPaid {
			summary.Invoices.CollectedAmount += record.Total
		}
	}
	summary.Invoices.OutstandingAmount = invoice.RoundAmount(summary.Invoices.OutstandingAmount)
	summary.Invoices.CollectedAmount = invoice.RoundAmount(summary.Invoices.CollectedAmount)

	for _, meeting := range dataset.Meetings {
		if meeting.IsUpcoming(now, UpcomingMeetingWindow) {
			summary.UpcomingMeetings++
		}
	}
	for _, grant := range dataset.Grants {
		if grant.IsActive(now) {
			summary.ActiveGrants++
		}
	}
	return summary
}
