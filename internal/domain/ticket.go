package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen           TicketStatus = "open"
	TicketStatusInProgress     TicketStatus = "in-progress"
	TicketStatusWaitingForUser TicketStatus = "waiting-for-user"
	TicketStatusEscalated      TicketStatus = "escalated"
	TicketStatusResolved       TicketStatus = "resolved"
	TicketStatusClosed         TicketStatus = "closed"
)

// TicketStatuses lists every status in lifecycle order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusWaitingForUser,
	TicketStatusEscalated,
	TicketStatusResolved,
	TicketStatusClosed,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Terminal reports whether the SLA clock is stopped for s.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// TicketPriorities lists priorities from least to most urgent.
var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityCritical,
}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	for _, candidate := range TicketPriorities {
		if candidate == p {
			return true
		}
	}
	return false
}

// Rank orders priorities for queues; critical sorts first.
func (p TicketPriority) Rank() int {
	switch p {
	case TicketPriorityCritical:
		return 0
	case TicketPriorityHigh:
		return 1
	case TicketPriorityMedium:
		return 2
	case TicketPriorityLow:
		return 3
	default:
		return 4
	}
}

// TicketType is the issue category chosen by the requester.
type TicketType string

const (
	TicketTypeHardware TicketType = "hardware"
	TicketTypeSoftware TicketType = "software"
	TicketTypeNetwork  TicketType = "network"
	TicketTypeSecurity TicketType = "security"
	TicketTypeAccess   TicketType = "access"
	TicketTypeOther    TicketType = "other"
)

// TicketTypes lists every issue category.
var TicketTypes = []TicketType{
	TicketTypeHardware,
	TicketTypeSoftware,
	TicketTypeNetwork,
	TicketTypeSecurity,
	TicketTypeAccess,
	TicketTypeOther,
}

// Valid reports whether t is a known issue category.
func (t TicketType) Valid() bool {
	for _, candidate := range TicketTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Type        TicketType
	Priority    TicketPriority
	Status      TicketStatus
	CreatedBy   string
	AssignedTo  *string
	Department  Department
	CreatedAt   time.Time
	UpdatedAt   time.Time
	SLADeadline time.Time
	History     []TicketHistory
}

// IsTerminal reports whether the ticket reached resolved or closed.
func (t *Ticket) IsTerminal() bool {
	return t.Status.Terminal()
}

// IsAssigned reports whether a technician holds the ticket.
func (t *Ticket) IsAssigned() bool {
	return t.AssignedTo != nil && *t.AssignedTo != ""
}

// Clone returns a deep copy so callers can derive a new version without touching the snapshot.
func (t Ticket) Clone() Ticket {
	out := t
	if t.AssignedTo != nil {
		assignee := *t.AssignedTo
		out.AssignedTo = &assignee
	}
	out.History = make([]TicketHistory, len(t.History))
	copy(out.History, t.History)
	return out
}
