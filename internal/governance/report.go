// Package governance aggregates ticket and user snapshots into the oversight report:
// SLA compliance, breaches, at-risk tickets, frequent requesters and volume flags.
// Everything here is read-only over its inputs.
package governance

import (
	"sort"
	"time"

	"github.com/spec-kit/sla-governance/internal/domain"
	"github.com/spec-kit/sla-governance/internal/sla"
)

const (
	// DefaultFlagThreshold is the per-user, per-type ticket count that raises a flag.
	DefaultFlagThreshold = 4
	// DefaultTopRequesters caps the frequent requester ranking.
	DefaultTopRequesters = 5
)

// Options tunes the aggregation. TopRequesters of 0 means no cap.
type Options struct {
	RiskThreshold time.Duration
	FlagThreshold int
	TopRequesters int
}

// DefaultOptions returns the standard thresholds.
func DefaultOptions() Options {
	return Options{
		RiskThreshold: sla.DefaultRiskThreshold,
		FlagThreshold: DefaultFlagThreshold,
		TopRequesters: DefaultTopRequesters,
	}
}

func (o Options) flagThreshold() int {
	if o.FlagThreshold <= 0 {
		return DefaultFlagThreshold
	}
	return o.FlagThreshold
}

// UserRef is the part of a user that appears in reports.
type UserRef struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Role       domain.Role       `json:"role"`
	Department domain.Department `json:"department"`
}

// RefOf strips a user down to its report fields.
func RefOf(user domain.User) UserRef {
	return UserRef{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		Role:       user.Role,
		Department: user.Department,
	}
}

// AtRiskTicket is a ticket close to its deadline.
type AtRiskTicket struct {
	Ticket    domain.Ticket `json:"ticket"`
	Remaining time.Duration `json:"remaining"`
}

// RequesterCount is one row of the frequent requester ranking.
type RequesterCount struct {
	User  UserRef `json:"user"`
	Count int     `json:"count"`
}

// Flag marks a user filing an unusual number of tickets of one type.
type Flag struct {
	User  UserRef           `json:"user"`
	Type  domain.TicketType `json:"type"`
	Count int               `json:"count"`
}

// Report is the governance view at GeneratedAt.
type Report struct {
	GeneratedAt        time.Time                     `json:"generated_at"`
	TotalTickets       int                           `json:"total_tickets"`
	ComplianceRate     float64                       `json:"compliance_rate"`
	ActiveBreaches     int                           `json:"active_breaches"`
	AtRisk             []AtRiskTicket                `json:"at_risk"`
	FrequentRequesters []RequesterCount              `json:"frequent_requesters"`
	Flags              []Flag                        `json:"flags"`
	CriticalView       []domain.Ticket               `json:"critical_view"`
	PriorityCounts     map[domain.TicketPriority]int `json:"priority_counts"`
	StatusCounts       map[domain.TicketStatus]int   `json:"status_counts"`
	Technicians        []TechnicianPerformance       `json:"technicians"`
}

// Build aggregates tickets and users at now. Terminal tickets never count as breached,
// so a ticket resolved after its deadline still counts as compliant.
func Build(tickets []domain.Ticket, users []domain.User, now time.Time, opts Options) Report {
	clock := sla.NewClock(opts.RiskThreshold)
	report := Report{
		GeneratedAt:        now,
		TotalTickets:       len(tickets),
		AtRisk:             make([]AtRiskTicket, 0),
		FrequentRequesters: make([]RequesterCount, 0),
		Flags:              make([]Flag, 0),
		CriticalView:       make([]domain.Ticket, 0),
		PriorityCounts:     make(map[domain.TicketPriority]int, len(domain.TicketPriorities)),
		StatusCounts:       make(map[domain.TicketStatus]int, len(domain.TicketStatuses)),
		Technicians:        make([]TechnicianPerformance, 0),
	}
	for _, p := range domain.TicketPriorities {
		report.PriorityCounts[p] = 0
	}
	for _, s := range domain.TicketStatuses {
		report.StatusCounts[s] = 0
	}

	for _, ticket := range tickets {
		report.PriorityCounts[ticket.Priority]++
		report.StatusCounts[ticket.Status]++

		eval := clock.Evaluate(ticket, now)
		switch eval.State {
		case sla.StateBreached:
			report.ActiveBreaches++
		case sla.StateAtRisk:
			report.AtRisk = append(report.AtRisk, AtRiskTicket{Ticket: ticket.Clone(), Remaining: eval.Remaining})
		}

		if ticket.Priority == domain.TicketPriorityCritical || ticket.Status == domain.TicketStatusEscalated {
			report.CriticalView = append(report.CriticalView, ticket.Clone())
		}
	}
	sort.SliceStable(report.AtRisk, func(i, j int) bool {
		return report.AtRisk[i].Remaining < report.AtRisk[j].Remaining
	})

	report.ComplianceRate = complianceRate(len(tickets), report.ActiveBreaches)
	report.FrequentRequesters = FrequentRequesters(tickets, users, opts.TopRequesters)
	report.Flags = Flags(tickets, users, opts.flagThreshold())

	for _, user := range users {
		if user.Role == domain.RoleTechnician {
			report.Technicians = append(report.Technicians, Performance(tickets, user, now, opts))
		}
	}
	return report
}

// ComplianceRate is the share of tickets not actively breached, as a percentage.
// Terminal tickets count as compliant however late they were resolved.
func ComplianceRate(tickets []domain.Ticket, now time.Time, riskThreshold time.Duration) float64 {
	clock := sla.NewClock(riskThreshold)
	breached := 0
	for _, ticket := range tickets {
		if clock.Evaluate(ticket, now).State == sla.StateBreached {
			breached++
		}
	}
	return complianceRate(len(tickets), breached)
}

func complianceRate(total, breached int) float64 {
	if total == 0 {
		return 100
	}
	return float64(total-breached) / float64(total) * 100
}

// FrequentRequesters ranks users by tickets created, most first. Ties keep user input
// order and users without tickets are left out. limit 0 returns every requester.
func FrequentRequesters(tickets []domain.Ticket, users []domain.User, limit int) []RequesterCount {
	counts := make(map[string]int, len(users))
	for _, ticket := range tickets {
		counts[ticket.CreatedBy]++
	}

	ranking := make([]RequesterCount, 0, len(users))
	for _, user := range users {
		if n := counts[user.ID]; n > 0 {
			ranking = append(ranking, RequesterCount{User: RefOf(user), Count: n})
		}
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Count > ranking[j].Count
	})
	if limit > 0 && len(ranking) > limit {
		ranking = ranking[:limit]
	}
	return ranking
}

// Flags emits one flag per (user, type) pair with at least threshold tickets, in user
// input order and then type order. A non-positive threshold means DefaultFlagThreshold.
func Flags(tickets []domain.Ticket, users []domain.User, threshold int) []Flag {
	threshold = Options{FlagThreshold: threshold}.flagThreshold()
	type key struct {
		user string
		typ  domain.TicketType
	}
	counts := make(map[key]int)
	for _, ticket := range tickets {
		counts[key{ticket.CreatedBy, ticket.Type}]++
	}

	flags := make([]Flag, 0)
	for _, user := range users {
		for _, typ := range domain.TicketTypes {
			if n := counts[key{user.ID, typ}]; n >= threshold {
				flags = append(flags, Flag{User: RefOf(user), Type: typ, Count: n})
			}
		}
	}
	return flags
}
