package lifecycle

import (
	"sort"

	"github.com/spec-kit/sla-governance/internal/domain"
)

// Queue returns the open, unassigned tickets a technician can pick up, most urgent
// priority first and oldest first within a priority.
func Queue(tickets []domain.Ticket) []domain.Ticket {
	queue := make([]domain.Ticket, 0)
	for _, ticket := range tickets {
		if ticket.Status == domain.TicketStatusOpen && !ticket.IsAssigned() {
			queue = append(queue, ticket.Clone())
		}
	}
	sort.SliceStable(queue, func(i, j int) bool {
		ri, rj := queue[i].Priority.Rank(), queue[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return queue[i].CreatedAt.Before(queue[j].CreatedAt)
	})
	return queue
}

// ActiveFor returns the non-terminal tickets assigned to technicianID.
func ActiveFor(tickets []domain.Ticket, technicianID string) []domain.Ticket {
	active := make([]domain.Ticket, 0)
	for _, ticket := range tickets {
		if ticket.IsTerminal() || !ticket.IsAssigned() || *ticket.AssignedTo != technicianID {
			continue
		}
		active = append(active, ticket.Clone())
	}
	return active
}

// Visible filters tickets down to what viewer may list. Roles with view-all see
// everything; everyone else sees the tickets they created.
func Visible(tickets []domain.Ticket, viewer domain.User) []domain.Ticket {
	visible := make([]domain.Ticket, 0, len(tickets))
	all := Can(viewer.Role, ActionViewAll)
	for _, ticket := range tickets {
		if all || ticket.CreatedBy == viewer.ID {
			visible = append(visible, ticket.Clone())
		}
	}
	return visible
}

// CanView reports whether viewer may open a single ticket. Assigned technicians and
// creators always can.
func CanView(ticket domain.Ticket, viewer domain.User) bool {
	if Can(viewer.Role, ActionViewAll) || ticket.CreatedBy == viewer.ID {
		return true
	}
	return ticket.IsAssigned() && *ticket.AssignedTo == viewer.ID
}
