package sla

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-governance/internal/domain"
)

var created = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func TestBudgetTable(t *testing.T) {
	cases := map[domain.TicketPriority]time.Duration{
		domain.TicketPriorityLow:      48 * time.Hour,
		domain.TicketPriorityMedium:   24 * time.Hour,
		domain.TicketPriorityHigh:     8 * time.Hour,
		domain.TicketPriorityCritical: 2 * time.Hour,
	}
	for priority, want := range cases {
		got, err := Budget(priority)
		require.NoError(t, err)
		assert.Equal(t, want, got, priority)
		assert.Equal(t, want, Deadline(created, priority).Sub(created), priority)
		assert.Equal(t, int(want/time.Hour), BudgetHours(priority))
	}
}

func TestBudgetUnknownPriority(t *testing.T) {
	_, err := Budget("urgent")
	assert.Error(t, err)
	assert.Panics(t, func() { MustBudget("urgent") })
}

func TestResolvePriority(t *testing.T) {
	cases := []struct {
		name string
		role domain.Role
		typ  domain.TicketType
		want domain.TicketPriority
	}{
		{"employee baseline", domain.RoleEmployee, domain.TicketTypeHardware, domain.TicketPriorityMedium},
		{"technician baseline", domain.RoleTechnician, domain.TicketTypeSoftware, domain.TicketPriorityMedium},
		{"manager baseline", domain.RoleManager, domain.TicketTypeNetwork, domain.TicketPriorityHigh},
		{"admin baseline", domain.RoleAdmin, domain.TicketTypeHardware, domain.TicketPriorityHigh},
		{"employee security", domain.RoleEmployee, domain.TicketTypeSecurity, domain.TicketPriorityCritical},
		{"admin security", domain.RoleAdmin, domain.TicketTypeSecurity, domain.TicketPriorityCritical},
		{"employee access", domain.RoleEmployee, domain.TicketTypeAccess, domain.TicketPriorityMedium},
		{"manager access", domain.RoleManager, domain.TicketTypeAccess, domain.TicketPriorityHigh},
		{"admin other", domain.RoleAdmin, domain.TicketTypeOther, domain.TicketPriorityLow},
		{"employee other", domain.RoleEmployee, domain.TicketTypeOther, domain.TicketPriorityLow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolvePriority(tc.role, tc.typ))
		})
	}
}

func TestEmployeeSecurityRequestGetsTwoHourBudget(t *testing.T) {
	priority := ResolvePriority(domain.RoleEmployee, domain.TicketTypeSecurity)
	assert.Equal(t, 2*time.Hour, MustBudget(priority))
}

func ticketAt(priority domain.TicketPriority, status domain.TicketStatus) domain.Ticket {
	return domain.Ticket{
		ID:          "TKT-TEST",
		Priority:    priority,
		Status:      status,
		CreatedAt:   created,
		SLADeadline: Deadline(created, priority),
	}
}

func TestEvaluateBreached(t *testing.T) {
	ticket := ticketAt(domain.TicketPriorityLow, domain.TicketStatusOpen)

	eval := NewClock(2*time.Hour).Evaluate(ticket, created.Add(49*time.Hour))
	assert.Equal(t, StateBreached, eval.State)
	assert.False(t, eval.HasRemaining())
}

func TestEvaluateBreachedExactlyAtDeadline(t *testing.T) {
	ticket := ticketAt(domain.TicketPriorityHigh, domain.TicketStatusInProgress)

	eval := Evaluate(ticket, ticket.SLADeadline)
	assert.Equal(t, StateBreached, eval.State)
}

func TestEvaluateAtRisk(t *testing.T) {
	ticket := ticketAt(domain.TicketPriorityHigh, domain.TicketStatusInProgress)

	eval := NewClock(2*time.Hour).Evaluate(ticket, created.Add(6*time.Hour+30*time.Minute))
	assert.Equal(t, StateAtRisk, eval.State)
	assert.Equal(t, 90*time.Minute, eval.Remaining)
	assert.True(t, eval.HasRemaining())
}

func TestEvaluateOnTrackAtThresholdBoundary(t *testing.T) {
	ticket := ticketAt(domain.TicketPriorityHigh, domain.TicketStatusOpen)

	eval := NewClock(2*time.Hour).Evaluate(ticket, created.Add(6*time.Hour))
	assert.Equal(t, StateOnTrack, eval.State)
	assert.Equal(t, 2*time.Hour, eval.Remaining)
}

func TestEvaluateTerminalIsMet(t *testing.T) {
	for _, status := range []domain.TicketStatus{domain.TicketStatusResolved, domain.TicketStatusClosed} {
		ticket := ticketAt(domain.TicketPriorityCritical, status)
		eval := Evaluate(ticket, created.Add(24*365*time.Hour))
		assert.Equal(t, StateMet, eval.State, status)
		assert.Zero(t, eval.Remaining)
	}
}

func TestNewClockDefaultsThreshold(t *testing.T) {
	assert.Equal(t, DefaultRiskThreshold, NewClock(0).RiskThreshold)
	assert.Equal(t, DefaultRiskThreshold, NewClock(-time.Minute).RiskThreshold)

	ticket := ticketAt(domain.TicketPriorityCritical, domain.TicketStatusOpen)
	eval := Clock{}.Evaluate(ticket, created.Add(time.Minute))
	assert.Equal(t, StateAtRisk, eval.State)
}

func TestCustomThreshold(t *testing.T) {
	ticket := ticketAt(domain.TicketPriorityMedium, domain.TicketStatusWaitingForUser)
	now := created.Add(20 * time.Hour)

	assert.Equal(t, StateOnTrack, NewClock(2*time.Hour).Evaluate(ticket, now).State)
	assert.Equal(t, StateAtRisk, NewClock(6*time.Hour).Evaluate(ticket, now).State)
}

func TestEvaluateConcurrentReads(t *testing.T) {
	ticket := ticketAt(domain.TicketPriorityHigh, domain.TicketStatusInProgress)
	now := created.Add(7 * time.Hour)
	clock := NewClock(2 * time.Hour)

	var wg sync.WaitGroup
	results := make([]Evaluation, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = clock.Evaluate(ticket, now)
		}(i)
	}
	wg.Wait()

	for _, eval := range results {
		assert.Equal(t, StateAtRisk, eval.State)
		assert.Equal(t, time.Hour, eval.Remaining)
	}
}
