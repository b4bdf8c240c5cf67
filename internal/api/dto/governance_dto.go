package dto

import (
	"time"

	"github.com/spec-kit/sla-governance/internal/domain"
	"github.com/spec-kit/sla-governance/internal/governance"
)

// AtRiskResponse is a ticket close to breaching.
type AtRiskResponse struct {
	Ticket           TicketSummary `json:"ticket"`
	RemainingSeconds int64         `json:"remaining_seconds"`
}

// GovernanceReportResponse is the oversight dashboard payload.
type GovernanceReportResponse struct {
	GeneratedAt        time.Time                          `json:"generated_at"`
	TotalTickets       int                                `json:"total_tickets"`
	ComplianceRate     float64                            `json:"compliance_rate"`
	ActiveBreaches     int                                `json:"active_breaches"`
	AtRisk             []AtRiskResponse                   `json:"at_risk"`
	FrequentRequesters []governance.RequesterCount        `json:"frequent_requesters"`
	Flags              []governance.Flag                  `json:"flags"`
	CriticalView       []TicketSummary                    `json:"critical_view"`
	PriorityCounts     map[domain.TicketPriority]int      `json:"priority_counts"`
	StatusCounts       map[domain.TicketStatus]int        `json:"status_counts"`
	Technicians        []governance.TechnicianPerformance `json:"technicians"`
}

// NewGovernanceReportResponse maps a report.
func NewGovernanceReportResponse(report governance.Report) GovernanceReportResponse {
	resp := GovernanceReportResponse{
		GeneratedAt:        report.GeneratedAt,
		TotalTickets:       report.TotalTickets,
		ComplianceRate:     report.ComplianceRate,
		ActiveBreaches:     report.ActiveBreaches,
		AtRisk:             make([]AtRiskResponse, 0, len(report.AtRisk)),
		FrequentRequesters: nonNil(report.FrequentRequesters),
		Flags:              nonNil(report.Flags),
		CriticalView:       make([]TicketSummary, 0, len(report.CriticalView)),
		PriorityCounts:     report.PriorityCounts,
		StatusCounts:       report.StatusCounts,
		Technicians:        nonNil(report.Technicians),
	}
	for _, item := range report.AtRisk {
		resp.AtRisk = append(resp.AtRisk, AtRiskResponse{
			Ticket:           NewTicketSummary(item.Ticket, nil),
			RemainingSeconds: int64(item.Remaining / time.Second),
		})
	}
	for _, ticket := range report.CriticalView {
		resp.CriticalView = append(resp.CriticalView, NewTicketSummary(ticket, nil))
	}
	return resp
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
