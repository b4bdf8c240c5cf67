package events

import (
	"time"

	"github.com/spec-kit/sla-governance/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketClaimed       EventType = "ticket_claimed"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketReassigned    EventType = "ticket_reassigned"
)

// TicketEvents lists every ticket mutation event.
var TicketEvents = []EventType{
	EventTicketCreated,
	EventTicketClaimed,
	EventTicketStatusChanged,
	EventTicketReassigned,
}

// Actor identifies who caused an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Type        domain.TicketType     `json:"type"`
	Priority    domain.TicketPriority `json:"priority"`
	Department  domain.Department     `json:"department"`
	SLADeadline time.Time             `json:"sla_deadline"`
	Title       string                `json:"title"`
}

// TicketClaimedPayload payload.
type TicketClaimedPayload struct {
	TechnicianID string `json:"technician_id"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus   domain.TicketStatus   `json:"old_status"`
	NewStatus   domain.TicketStatus   `json:"new_status"`
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketReassignedPayload payload.
type TicketReassignedPayload struct {
	PreviousAssignee *string `json:"previous_assignee,omitempty"`
	TechnicianID     string  `json:"technician_id"`
}
