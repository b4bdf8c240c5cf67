// Package lifecycle applies ticket state transitions. Every operation takes the acting
// user and the current instant explicitly and returns a new ticket value; the input
// snapshot is never modified.
package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/sla-governance/internal/domain"
	"github.com/spec-kit/sla-governance/internal/sla"
	apperrors "github.com/spec-kit/sla-governance/pkg/util/errorutil"
)

const createdDetails = "Ticket created via portal"

// Draft is the requester-supplied part of a new ticket.
type Draft struct {
	Type        domain.TicketType
	Title       string
	Description string
}

// Machine applies lifecycle operations. It owns only id generation.
type Machine struct {
	historyID func() string
	ticketKey func() string
}

// Option customises a Machine.
type Option func(*Machine)

// WithHistoryIDs overrides history entry id generation.
func WithHistoryIDs(fn func() string) Option {
	return func(m *Machine) {
		if fn != nil {
			m.historyID = fn
		}
	}
}

// WithTicketKeys overrides ticket id generation.
func WithTicketKeys(fn func() string) Option {
	return func(m *Machine) {
		if fn != nil {
			m.ticketKey = fn
		}
	}
}

// NewMachine constructs a Machine using UUID based identifiers by default.
func NewMachine(opts ...Option) *Machine {
	m := &Machine{
		historyID: uuid.NewString,
		ticketKey: generateTicketKey,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create builds a new open ticket for requester. Priority comes from the resolver and
// the deadline is fixed from it.
func (m *Machine) Create(requester domain.User, draft Draft, now time.Time) (domain.Ticket, error) {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return domain.Ticket{}, apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	if !draft.Type.Valid() {
		return domain.Ticket{}, apperrors.NewValidationError("unknown ticket type", map[string]any{"type": string(draft.Type)})
	}
	if requester.ID == "" {
		return domain.Ticket{}, apperrors.NewValidationError("requester is required", nil)
	}
	if !Can(requester.Role, ActionCreate) {
		return domain.Ticket{}, ineligible(requester, ActionCreate, "role may not create tickets")
	}

	priority := sla.ResolvePriority(requester.Role, draft.Type)
	ticket := domain.Ticket{
		ID:          m.ticketKey(),
		Title:       title,
		Description: strings.TrimSpace(draft.Description),
		Type:        draft.Type,
		Priority:    priority,
		Status:      domain.TicketStatusOpen,
		CreatedBy:   requester.ID,
		Department:  requester.Department,
		CreatedAt:   now,
		UpdatedAt:   now,
		SLADeadline: sla.Deadline(now, priority),
	}
	ticket.History = []domain.TicketHistory{{
		ID:        m.historyID(),
		Action:    domain.ActionCreated,
		Timestamp: now,
		ActorID:   requester.ID,
		Details:   createdDetails,
	}}
	return ticket, nil
}

// Claim assigns an open, unassigned ticket to the acting technician and moves it to
// in-progress.
func (m *Machine) Claim(ticket domain.Ticket, actor domain.User, now time.Time) (domain.Ticket, error) {
	if !Can(actor.Role, ActionClaim) {
		return domain.Ticket{}, ineligible(actor, ActionClaim, "only technicians may claim tickets")
	}
	if ticket.Status != domain.TicketStatusOpen {
		return domain.Ticket{}, ineligibleTicket(ticket, ActionClaim, "ticket is not open")
	}
	if ticket.IsAssigned() {
		return domain.Ticket{}, ineligibleTicket(ticket, ActionClaim, "ticket is already assigned")
	}

	next := ticket.Clone()
	assignee := actor.ID
	next.AssignedTo = &assignee
	next.Status = domain.TicketStatusInProgress
	m.appendHistory(&next, domain.ActionClaimed, actor.ID, fmt.Sprintf("Claimed by %s", displayName(actor)), now)
	return next, nil
}

// UpdateStatus moves a non-terminal ticket to status. Escalation also forces the
// priority to critical; the deadline stays as computed at creation.
func (m *Machine) UpdateStatus(ticket domain.Ticket, actor domain.User, status domain.TicketStatus, now time.Time) (domain.Ticket, error) {
	if !status.Valid() {
		return domain.Ticket{}, apperrors.NewValidationError("unknown ticket status", map[string]any{"status": string(status)})
	}
	if !Can(actor.Role, ActionUpdateStatus) {
		return domain.Ticket{}, ineligible(actor, ActionUpdateStatus, "role may not change ticket status")
	}
	if ticket.IsTerminal() {
		return domain.Ticket{}, ineligibleTicket(ticket, ActionUpdateStatus, "ticket is already "+string(ticket.Status))
	}
	if status == domain.TicketStatusOpen {
		return domain.Ticket{}, ineligibleTicket(ticket, ActionUpdateStatus, "tickets cannot return to open")
	}

	next := ticket.Clone()
	next.Status = status
	details := fmt.Sprintf("Status updated to %s", status)
	if status == domain.TicketStatusEscalated && next.Priority != domain.TicketPriorityCritical {
		details = fmt.Sprintf("%s; priority %s -> %s", details, next.Priority, domain.TicketPriorityCritical)
		next.Priority = domain.TicketPriorityCritical
	}

	action := domain.ActionStatusChange
	if status == domain.TicketStatusResolved {
		action = domain.ActionResolved
	}
	m.appendHistory(&next, action, actor.ID, details, now)
	return next, nil
}

// Reassign hands a non-terminal ticket to technician. Only administrators may do this.
func (m *Machine) Reassign(ticket domain.Ticket, actor, technician domain.User, now time.Time) (domain.Ticket, error) {
	if !Can(actor.Role, ActionReassign) {
		return domain.Ticket{}, ineligible(actor, ActionReassign, "only administrators may reassign tickets")
	}
	if technician.Role != domain.RoleTechnician {
		return domain.Ticket{}, apperrors.NewIneligible("assignee must be a technician", map[string]any{
			"ticket_id": ticket.ID,
			"user_id":   technician.ID,
			"role":      string(technician.Role),
		})
	}
	if ticket.IsTerminal() {
		return domain.Ticket{}, ineligibleTicket(ticket, ActionReassign, "ticket is already "+string(ticket.Status))
	}

	next := ticket.Clone()
	assignee := technician.ID
	next.AssignedTo = &assignee
	m.appendHistory(&next, domain.ActionReassigned, actor.ID, fmt.Sprintf("Reassigned to %s", displayName(technician)), now)
	return next, nil
}

// appendHistory stamps the mutation. The timestamp never goes backwards relative to
// the last entry, even when the caller's clock does.
func (m *Machine) appendHistory(ticket *domain.Ticket, action domain.HistoryAction, actorID, details string, now time.Time) {
	if n := len(ticket.History); n > 0 && now.Before(ticket.History[n-1].Timestamp) {
		now = ticket.History[n-1].Timestamp
	}
	ticket.UpdatedAt = now
	ticket.History = append(ticket.History, domain.TicketHistory{
		ID:        m.historyID(),
		Action:    action,
		Timestamp: now,
		ActorID:   actorID,
		Details:   details,
	})
}

func ineligible(actor domain.User, action Action, message string) error {
	return apperrors.NewIneligible(message, map[string]any{
		"actor_id": actor.ID,
		"role":     string(actor.Role),
		"action":   string(action),
	})
}

func ineligibleTicket(ticket domain.Ticket, action Action, message string) error {
	return apperrors.NewIneligible(message, map[string]any{
		"ticket_id": ticket.ID,
		"status":    string(ticket.Status),
		"action":    string(action),
	})
}

func displayName(user domain.User) string {
	if strings.TrimSpace(user.Name) != "" {
		return user.Name
	}
	return user.ID
}

func generateTicketKey() string {
	return "TKT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
