package governance

import (
	"time"

	"github.com/spec-kit/sla-governance/internal/domain"
	"github.com/spec-kit/sla-governance/internal/sla"
)

// TechnicianPerformance summarises the tickets assigned to one technician.
type TechnicianPerformance struct {
	Technician     UserRef                   `json:"technician"`
	Assigned       int                       `json:"assigned"`
	Active         int                       `json:"active"`
	Resolved       int                       `json:"resolved"`
	Breached       int                       `json:"breached"`
	ComplianceRate float64                   `json:"compliance_rate"`
	ResolvedByType map[domain.TicketType]int `json:"resolved_by_type"`
}

// Performance computes the workload and compliance of technician at now. Compliance
// follows the same rule as the global rate.
func Performance(tickets []domain.Ticket, technician domain.User, now time.Time, opts Options) TechnicianPerformance {
	clock := sla.NewClock(opts.RiskThreshold)
	perf := TechnicianPerformance{
		Technician:     RefOf(technician),
		ResolvedByType: make(map[domain.TicketType]int),
	}
	for _, ticket := range tickets {
		if !ticket.IsAssigned() || *ticket.AssignedTo != technician.ID {
			continue
		}
		perf.Assigned++
		if ticket.IsTerminal() {
			perf.Resolved++
			perf.ResolvedByType[ticket.Type]++
			continue
		}
		perf.Active++
		if clock.Evaluate(ticket, now).State == sla.StateBreached {
			perf.Breached++
		}
	}
	perf.ComplianceRate = complianceRate(perf.Assigned, perf.Breached)
	return perf
}
