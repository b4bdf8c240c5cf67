package governance

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-governance/internal/domain"
	"github.com/spec-kit/sla-governance/internal/sla"
)

var base = time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)

var (
	alice = domain.User{ID: "u-alice", Name: "Alice", Role: domain.RoleEmployee, Department: domain.DepartmentHR}
	bob   = domain.User{ID: "u-bob", Name: "Bob", Role: domain.RoleEmployee, Department: domain.DepartmentSales}
	carol = domain.User{ID: "u-carol", Name: "Carol", Role: domain.RoleManager, Department: domain.DepartmentLegal}
	tess  = domain.User{ID: "u-tess", Name: "Tess", Role: domain.RoleTechnician, Department: domain.DepartmentIT}
)

type ticketSeed struct {
	by       domain.User
	typ      domain.TicketType
	priority domain.TicketPriority
	status   domain.TicketStatus
	created  time.Time
	assignee string
}

func build(seeds ...ticketSeed) []domain.Ticket {
	tickets := make([]domain.Ticket, 0, len(seeds))
	for i, s := range seeds {
		if s.typ == "" {
			s.typ = domain.TicketTypeHardware
		}
		if s.priority == "" {
			s.priority = domain.TicketPriorityMedium
		}
		if s.status == "" {
			s.status = domain.TicketStatusOpen
		}
		if s.created.IsZero() {
			s.created = base
		}
		ticket := domain.Ticket{
			ID:          fmt.Sprintf("TKT-%04d", i),
			Type:        s.typ,
			Priority:    s.priority,
			Status:      s.status,
			CreatedBy:   s.by.ID,
			CreatedAt:   s.created,
			UpdatedAt:   s.created,
			SLADeadline: sla.Deadline(s.created, s.priority),
		}
		if s.assignee != "" {
			assignee := s.assignee
			ticket.AssignedTo = &assignee
		}
		tickets = append(tickets, ticket)
	}
	return tickets
}

func TestEmptyInputIsFullyCompliant(t *testing.T) {
	report := Build(nil, nil, base, DefaultOptions())

	assert.Equal(t, 100.0, report.ComplianceRate)
	assert.Zero(t, report.ActiveBreaches)
	assert.Empty(t, report.AtRisk)
	assert.Empty(t, report.Flags)
	assert.Empty(t, report.FrequentRequesters)
	assert.Equal(t, 100.0, ComplianceRate(nil, base, 0))
}

func TestFlagThreshold(t *testing.T) {
	three := build(
		ticketSeed{by: alice}, ticketSeed{by: alice}, ticketSeed{by: alice},
	)
	assert.Empty(t, Flags(three, []domain.User{alice}, DefaultFlagThreshold))

	four := append(three, build(ticketSeed{by: alice})...)
	flags := Flags(four, []domain.User{alice}, DefaultFlagThreshold)
	require.Len(t, flags, 1)
	assert.Equal(t, Flag{User: RefOf(alice), Type: domain.TicketTypeHardware, Count: 4}, flags[0])
}

func TestFlagsNonPositiveThresholdUsesDefault(t *testing.T) {
	three := build(
		ticketSeed{by: alice}, ticketSeed{by: alice}, ticketSeed{by: alice},
	)
	for _, threshold := range []int{0, -1} {
		assert.Empty(t, Flags(three, []domain.User{alice, bob}, threshold))
		assert.Empty(t, Flags(nil, []domain.User{alice, bob}, threshold))
	}

	four := append(three, build(ticketSeed{by: alice})...)
	flags := Flags(four, []domain.User{alice, bob}, 0)
	require.Len(t, flags, 1)
	assert.Equal(t, alice.ID, flags[0].User.ID)
}

func TestFourHardwareOneNetworkRaisesOneFlag(t *testing.T) {
	tickets := build(
		ticketSeed{by: bob, typ: domain.TicketTypeHardware},
		ticketSeed{by: bob, typ: domain.TicketTypeNetwork},
		ticketSeed{by: bob, typ: domain.TicketTypeHardware},
		ticketSeed{by: bob, typ: domain.TicketTypeHardware},
		ticketSeed{by: bob, typ: domain.TicketTypeHardware},
	)

	report := Build(tickets, []domain.User{alice, bob}, base, DefaultOptions())

	require.Len(t, report.Flags, 1)
	assert.Equal(t, bob.ID, report.Flags[0].User.ID)
	assert.Equal(t, domain.TicketTypeHardware, report.Flags[0].Type)
	assert.Equal(t, 4, report.Flags[0].Count)
}

func TestFlagsOrderedByUserThenType(t *testing.T) {
	var seeds []ticketSeed
	for i := 0; i < 4; i++ {
		seeds = append(seeds,
			ticketSeed{by: bob, typ: domain.TicketTypeAccess},
			ticketSeed{by: alice, typ: domain.TicketTypeSecurity},
			ticketSeed{by: alice, typ: domain.TicketTypeSoftware},
		)
	}

	flags := Flags(build(seeds...), []domain.User{alice, bob}, 4)

	require.Len(t, flags, 3)
	assert.Equal(t, []string{"u-alice/software", "u-alice/security", "u-bob/access"}, []string{
		flags[0].User.ID + "/" + string(flags[0].Type),
		flags[1].User.ID + "/" + string(flags[1].Type),
		flags[2].User.ID + "/" + string(flags[2].Type),
	})
}

func TestComplianceAndBreaches(t *testing.T) {
	now := base.Add(49 * time.Hour)
	tickets := build(
		// breached
		ticketSeed{by: alice, priority: domain.TicketPriorityLow},
		// late but terminal
		ticketSeed{by: alice, priority: domain.TicketPriorityHigh, status: domain.TicketStatusResolved},
		// at risk, 1h left
		ticketSeed{by: bob, priority: domain.TicketPriorityHigh, created: now.Add(-7 * time.Hour)},
		ticketSeed{by: bob, priority: domain.TicketPriorityLow, created: now.Add(-47*time.Hour - 30*time.Minute)},
	)

	report := Build(tickets, []domain.User{alice, bob}, now, DefaultOptions())

	assert.Equal(t, 4, report.TotalTickets)
	assert.Equal(t, 1, report.ActiveBreaches)
	assert.InDelta(t, 75.0, report.ComplianceRate, 0.0001)
	assert.InDelta(t, 75.0, ComplianceRate(tickets, now, sla.DefaultRiskThreshold), 0.0001)

	require.Len(t, report.AtRisk, 2)
	assert.Equal(t, tickets[3].ID, report.AtRisk[0].Ticket.ID)
	assert.Equal(t, 30*time.Minute, report.AtRisk[0].Remaining)
	assert.Equal(t, tickets[2].ID, report.AtRisk[1].Ticket.ID)
	assert.Equal(t, time.Hour, report.AtRisk[1].Remaining)
}

func TestFrequentRequesters(t *testing.T) {
	tickets := build(
		ticketSeed{by: bob}, ticketSeed{by: carol}, ticketSeed{by: carol},
		ticketSeed{by: alice}, ticketSeed{by: bob},
	)
	users := []domain.User{alice, bob, carol, tess}

	ranking := FrequentRequesters(tickets, users, 0)

	require.Len(t, ranking, 3)
	assert.Equal(t, bob.ID, ranking[0].User.ID)
	assert.Equal(t, carol.ID, ranking[1].User.ID)
	assert.Equal(t, alice.ID, ranking[2].User.ID)
	assert.Equal(t, 1, ranking[2].Count)

	top := FrequentRequesters(tickets, users, 2)
	require.Len(t, top, 2)
	assert.Equal(t, bob.ID, top[0].User.ID)
}

func TestCriticalViewAndDistributions(t *testing.T) {
	tickets := build(
		ticketSeed{by: alice, priority: domain.TicketPriorityCritical},
		ticketSeed{by: alice, priority: domain.TicketPriorityHigh, status: domain.TicketStatusEscalated, assignee: tess.ID},
		ticketSeed{by: bob, priority: domain.TicketPriorityLow},
		ticketSeed{by: bob, priority: domain.TicketPriorityCritical, status: domain.TicketStatusClosed},
	)

	report := Build(tickets, []domain.User{alice, bob, tess}, base, DefaultOptions())

	require.Len(t, report.CriticalView, 3)
	assert.Equal(t, 2, report.PriorityCounts[domain.TicketPriorityCritical])
	assert.Equal(t, 0, report.PriorityCounts[domain.TicketPriorityMedium])
	assert.Equal(t, 2, report.StatusCounts[domain.TicketStatusOpen])
	assert.Equal(t, 1, report.StatusCounts[domain.TicketStatusEscalated])
	require.Len(t, report.Technicians, 1)
	assert.Equal(t, tess.ID, report.Technicians[0].Technician.ID)
}

func TestReportDoesNotAliasInputs(t *testing.T) {
	tickets := build(ticketSeed{by: alice, priority: domain.TicketPriorityCritical, assignee: tess.ID})
	tickets[0].History = []domain.TicketHistory{{ID: "h-1", Action: domain.ActionCreated}}

	report := Build(tickets, []domain.User{alice}, base, DefaultOptions())
	require.Len(t, report.CriticalView, 1)

	report.CriticalView[0].History[0].Details = "changed"
	*report.CriticalView[0].AssignedTo = "someone-else"

	assert.Empty(t, tickets[0].History[0].Details)
	assert.Equal(t, tess.ID, *tickets[0].AssignedTo)
}

func TestTechnicianPerformance(t *testing.T) {
	now := base.Add(30 * time.Hour)
	tickets := build(
		ticketSeed{by: alice, typ: domain.TicketTypeNetwork, status: domain.TicketStatusResolved, assignee: tess.ID},
		ticketSeed{by: alice, typ: domain.TicketTypeNetwork, status: domain.TicketStatusClosed, assignee: tess.ID},
		ticketSeed{by: bob, status: domain.TicketStatusInProgress, assignee: tess.ID},                                  // medium, breached at 30h
		ticketSeed{by: bob, status: domain.TicketStatusInProgress, assignee: tess.ID, created: now.Add(-time.Hour)}, // on track
		ticketSeed{by: bob, status: domain.TicketStatusInProgress, assignee: "u-other"},
	)

	perf := Performance(tickets, tess, now, DefaultOptions())

	assert.Equal(t, 4, perf.Assigned)
	assert.Equal(t, 2, perf.Active)
	assert.Equal(t, 2, perf.Resolved)
	assert.Equal(t, 1, perf.Breached)
	assert.InDelta(t, 75.0, perf.ComplianceRate, 0.0001)
	assert.Equal(t, 2, perf.ResolvedByType[domain.TicketTypeNetwork])

	idle := Performance(tickets, domain.User{ID: "u-idle", Role: domain.RoleTechnician}, now, DefaultOptions())
	assert.Equal(t, 100.0, idle.ComplianceRate)
}
