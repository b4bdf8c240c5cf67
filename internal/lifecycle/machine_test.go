package lifecycle

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-governance/internal/domain"
	"github.com/spec-kit/sla-governance/internal/sla"
	apperrors "github.com/spec-kit/sla-governance/pkg/util/errorutil"
)

var t0 = time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

var (
	employee   = domain.User{ID: "u-emp", Name: "Erin Employee", Role: domain.RoleEmployee, Department: domain.DepartmentFinance}
	manager    = domain.User{ID: "u-mgr", Name: "Max Manager", Role: domain.RoleManager, Department: domain.DepartmentSales}
	technician = domain.User{ID: "u-tech", Name: "Tara Tech", Role: domain.RoleTechnician, Department: domain.DepartmentIT}
	otherTech  = domain.User{ID: "u-tech2", Name: "Theo Tech", Role: domain.RoleTechnician, Department: domain.DepartmentIT}
	admin      = domain.User{ID: "u-admin", Name: "Ada Admin", Role: domain.RoleAdmin, Department: domain.DepartmentIT}
)

func sequence(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func newTestMachine() *Machine {
	return NewMachine(WithHistoryIDs(sequence("h")), WithTicketKeys(sequence("TKT")))
}

func mustCreate(t *testing.T, m *Machine, requester domain.User, typ domain.TicketType) domain.Ticket {
	t.Helper()
	ticket, err := m.Create(requester, Draft{Type: typ, Title: "Laptop will not boot", Description: "Black screen"}, t0)
	require.NoError(t, err)
	return ticket
}

func TestCreateSeedsTicket(t *testing.T) {
	m := newTestMachine()

	ticket := mustCreate(t, m, employee, domain.TicketTypeSecurity)

	assert.Equal(t, "TKT-1", ticket.ID)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityCritical, ticket.Priority)
	assert.Equal(t, employee.ID, ticket.CreatedBy)
	assert.Equal(t, domain.DepartmentFinance, ticket.Department)
	assert.Nil(t, ticket.AssignedTo)
	assert.Equal(t, 2*time.Hour, ticket.SLADeadline.Sub(ticket.CreatedAt))
	require.Len(t, ticket.History, 1)
	assert.Equal(t, domain.ActionCreated, ticket.History[0].Action)
	assert.Equal(t, "Ticket created via portal", ticket.History[0].Details)
	assert.Equal(t, employee.ID, ticket.History[0].ActorID)
}

func TestCreateDeadlineMatchesBudgetForEveryPriority(t *testing.T) {
	m := newTestMachine()
	for _, requester := range []domain.User{employee, manager, technician, admin} {
		for _, typ := range domain.TicketTypes {
			ticket := mustCreate(t, m, requester, typ)
			assert.Equal(t, sla.MustBudget(ticket.Priority), ticket.SLADeadline.Sub(ticket.CreatedAt))
		}
	}
}

func TestCreateValidation(t *testing.T) {
	m := newTestMachine()

	_, err := m.Create(employee, Draft{Type: domain.TicketTypeHardware, Title: "   "}, t0)
	assert.True(t, apperrors.IsValidation(err))

	_, err = m.Create(employee, Draft{Type: "printer", Title: "Jammed"}, t0)
	assert.True(t, apperrors.IsValidation(err))

	_, err = m.Create(domain.User{Role: domain.RoleEmployee}, Draft{Type: domain.TicketTypeHardware, Title: "Jammed"}, t0)
	assert.True(t, apperrors.IsValidation(err))

	_, err = m.Create(domain.User{ID: "x", Role: "guest"}, Draft{Type: domain.TicketTypeHardware, Title: "Jammed"}, t0)
	assert.True(t, apperrors.IsIneligible(err))
}

func TestClaim(t *testing.T) {
	m := newTestMachine()
	ticket := mustCreate(t, m, employee, domain.TicketTypeHardware)

	claimed, err := m.Claim(ticket, technician, t0.Add(time.Hour))
	require.NoError(t, err)

	require.NotNil(t, claimed.AssignedTo)
	assert.Equal(t, technician.ID, *claimed.AssignedTo)
	assert.Equal(t, domain.TicketStatusInProgress, claimed.Status)
	assert.Equal(t, t0.Add(time.Hour), claimed.UpdatedAt)
	require.Len(t, claimed.History, 2)
	assert.Equal(t, domain.ActionClaimed, claimed.History[1].Action)
	assert.Equal(t, technician.ID, claimed.History[1].ActorID)

	// input snapshot untouched
	assert.Nil(t, ticket.AssignedTo)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Len(t, ticket.History, 1)
}

func TestClaimRejections(t *testing.T) {
	m := newTestMachine()
	ticket := mustCreate(t, m, employee, domain.TicketTypeHardware)

	for _, actor := range []domain.User{employee, manager, admin} {
		_, err := m.Claim(ticket, actor, t0)
		assert.True(t, apperrors.IsIneligible(err), actor.Role)
	}

	claimed, err := m.Claim(ticket, technician, t0)
	require.NoError(t, err)

	again, err := m.Claim(claimed, otherTech, t0.Add(time.Minute))
	assert.True(t, apperrors.IsIneligible(err))
	assert.Equal(t, domain.Ticket{}, again)
	assert.Equal(t, technician.ID, *claimed.AssignedTo)
	assert.Len(t, claimed.History, 2)
}

func TestClaimAssignedOpenTicketIsIneligible(t *testing.T) {
	m := newTestMachine()
	ticket := mustCreate(t, m, employee, domain.TicketTypeHardware)
	reassigned, err := m.Reassign(ticket, admin, otherTech, t0)
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusOpen, reassigned.Status)

	_, err = m.Claim(reassigned, technician, t0)
	assert.True(t, apperrors.IsIneligible(err))
}

func TestUpdateStatus(t *testing.T) {
	m := newTestMachine()
	ticket := mustCreate(t, m, employee, domain.TicketTypeHardware)

	waiting, err := m.UpdateStatus(ticket, technician, domain.TicketStatusWaitingForUser, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusWaitingForUser, waiting.Status)
	last := waiting.History[len(waiting.History)-1]
	assert.Equal(t, domain.ActionStatusChange, last.Action)
	assert.Equal(t, "Status updated to waiting-for-user", last.Details)

	resolved, err := m.UpdateStatus(waiting, admin, domain.TicketStatusResolved, t0.Add(2*time.Hour))
	require.NoError(t, err)
	last = resolved.History[len(resolved.History)-1]
	assert.Equal(t, domain.ActionResolved, last.Action)
	assert.Equal(t, admin.ID, last.ActorID)
	assert.Equal(t, t0.Add(2*time.Hour), resolved.UpdatedAt)
}

func TestUpdateStatusRejections(t *testing.T) {
	m := newTestMachine()
	ticket := mustCreate(t, m, employee, domain.TicketTypeHardware)

	for _, actor := range []domain.User{employee, manager} {
		_, err := m.UpdateStatus(ticket, actor, domain.TicketStatusInProgress, t0)
		assert.True(t, apperrors.IsIneligible(err), actor.Role)
	}

	_, err := m.UpdateStatus(ticket, technician, "paused", t0)
	assert.True(t, apperrors.IsValidation(err))

	_, err = m.UpdateStatus(ticket, technician, domain.TicketStatusOpen, t0)
	assert.True(t, apperrors.IsIneligible(err))

	closed, err := m.UpdateStatus(ticket, technician, domain.TicketStatusClosed, t0)
	require.NoError(t, err)
	for _, status := range domain.TicketStatuses {
		_, err := m.UpdateStatus(closed, admin, status, t0.Add(time.Hour))
		assert.True(t, apperrors.IsIneligible(err), status)
	}
	assert.Len(t, closed.History, 2)
}

func TestEscalateForcesCritical(t *testing.T) {
	m := newTestMachine()
	ticket := mustCreate(t, m, employee, domain.TicketTypeOther)
	require.Equal(t, domain.TicketPriorityLow, ticket.Priority)

	escalated, err := m.UpdateStatus(ticket, technician, domain.TicketStatusEscalated, t0.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, domain.TicketPriorityCritical, escalated.Priority)
	assert.Equal(t, ticket.SLADeadline, escalated.SLADeadline)
	assert.Equal(t, domain.TicketPriorityLow, ticket.Priority)
	last := escalated.History[len(escalated.History)-1]
	assert.Equal(t, domain.ActionStatusChange, last.Action)
	assert.Contains(t, last.Details, "Status updated to escalated")
	assert.Contains(t, last.Details, "low -> critical")
}

func TestEscalateAlreadyCritical(t *testing.T) {
	m := newTestMachine()
	ticket := mustCreate(t, m, employee, domain.TicketTypeSecurity)

	escalated, err := m.UpdateStatus(ticket, admin, domain.TicketStatusEscalated, t0)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityCritical, escalated.Priority)
	assert.Equal(t, "Status updated to escalated", escalated.History[len(escalated.History)-1].Details)
}

func TestReassign(t *testing.T) {
	m := newTestMachine()
	ticket := mustCreate(t, m, employee, domain.TicketTypeNetwork)
	claimed, err := m.Claim(ticket, technician, t0)
	require.NoError(t, err)

	moved, err := m.Reassign(claimed, admin, otherTech, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, otherTech.ID, *moved.AssignedTo)
	assert.Equal(t, domain.TicketStatusInProgress, moved.Status)
	assert.Equal(t, domain.ActionReassigned, moved.History[len(moved.History)-1].Action)
	assert.Equal(t, technician.ID, *claimed.AssignedTo)

	_, err = m.Reassign(claimed, technician, otherTech, t0)
	assert.True(t, apperrors.IsIneligible(err))

	_, err = m.Reassign(claimed, admin, manager, t0)
	assert.True(t, apperrors.IsIneligible(err))

	resolved, err := m.UpdateStatus(moved, otherTech, domain.TicketStatusResolved, t0.Add(time.Hour))
	require.NoError(t, err)
	_, err = m.Reassign(resolved, admin, technician, t0.Add(2*time.Hour))
	assert.True(t, apperrors.IsIneligible(err))
}

func TestHistoryIsMonotonicAndUnique(t *testing.T) {
	m := NewMachine()
	ticket := mustCreate(t, m, employee, domain.TicketTypeHardware)

	claimed, err := m.Claim(ticket, technician, t0.Add(time.Hour))
	require.NoError(t, err)
	// a clock running behind must not rewind the trail
	waiting, err := m.UpdateStatus(claimed, technician, domain.TicketStatusWaitingForUser, t0.Add(30*time.Minute))
	require.NoError(t, err)

	seen := map[string]bool{}
	for i, entry := range waiting.History {
		assert.False(t, seen[entry.ID], "duplicate history id %s", entry.ID)
		seen[entry.ID] = true
		if i > 0 {
			assert.False(t, entry.Timestamp.Before(waiting.History[i-1].Timestamp))
		}
	}
	assert.Regexp(t, `^TKT-[0-9A-F]{8}$`, ticket.ID)
}
