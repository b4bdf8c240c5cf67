package sla

import "github.com/spec-kit/sla-governance/internal/domain"

// ResolvePriority derives the priority of a new ticket. Rules run in order and later
// rules override earlier ones.
func ResolvePriority(role domain.Role, ticketType domain.TicketType) domain.TicketPriority {
	priority := domain.TicketPriorityMedium
	if role == domain.RoleAdmin || role == domain.RoleManager {
		priority = domain.TicketPriorityHigh
	}

	if ticketType == domain.TicketTypeSecurity {
		priority = domain.TicketPriorityCritical
	}
	// no-op under the current baseline; kept so a lower baseline still lifts access requests
	if ticketType == domain.TicketTypeAccess && priority == domain.TicketPriorityLow {
		priority = domain.TicketPriorityMedium
	}
	if ticketType == domain.TicketTypeOther {
		priority = domain.TicketPriorityLow
	}
	return priority
}
