package dto

import (
	"time"

	"github.com/spec-kit/sla-governance/internal/domain"
	"github.com/spec-kit/sla-governance/internal/sla"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Type        domain.TicketType `json:"type"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// AssignTicketRequest payload for administrative reassignment.
type AssignTicketRequest struct {
	TechnicianID string `json:"technician_id"`
}

// SLAResponse is the SLA reading attached to a ticket. RemainingSeconds is omitted once
// the ticket is breached or met.
type SLAResponse struct {
	State            sla.State `json:"state"`
	Deadline         time.Time `json:"deadline"`
	RemainingSeconds *int64    `json:"remaining_seconds,omitempty"`
}

// HistoryEntryResponse is one audit row.
type HistoryEntryResponse struct {
	ID        string               `json:"id"`
	Action    domain.HistoryAction `json:"action"`
	Timestamp time.Time            `json:"timestamp"`
	ActorID   string               `json:"actor_id"`
	Details   string               `json:"details"`
}

// TicketSummary response.
type TicketSummary struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Type        domain.TicketType     `json:"type"`
	Priority    domain.TicketPriority `json:"priority"`
	Status      domain.TicketStatus   `json:"status"`
	CreatedBy   string                `json:"created_by"`
	AssignedTo  *string               `json:"assigned_to"`
	Department  domain.Department     `json:"department"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	SLADeadline time.Time             `json:"sla_deadline"`
	SLA         *SLAResponse          `json:"sla,omitempty"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Description string                 `json:"description"`
	History     []HistoryEntryResponse `json:"history"`
}

// NewSLAResponse converts an evaluation.
func NewSLAResponse(eval sla.Evaluation) *SLAResponse {
	resp := &SLAResponse{State: eval.State, Deadline: eval.Deadline}
	if eval.HasRemaining() {
		seconds := int64(eval.Remaining / time.Second)
		resp.RemainingSeconds = &seconds
	}
	return resp
}

// NewTicketSummary maps a ticket; eval may be nil when no reading is available.
func NewTicketSummary(ticket domain.Ticket, eval *sla.Evaluation) TicketSummary {
	summary := TicketSummary{
		ID:          ticket.ID,
		Title:       ticket.Title,
		Type:        ticket.Type,
		Priority:    ticket.Priority,
		Status:      ticket.Status,
		CreatedBy:   ticket.CreatedBy,
		AssignedTo:  ticket.AssignedTo,
		Department:  ticket.Department,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
		SLADeadline: ticket.SLADeadline,
	}
	if eval != nil {
		summary.SLA = NewSLAResponse(*eval)
	}
	return summary
}

// NewTicketDetail maps a ticket with its history.
func NewTicketDetail(ticket domain.Ticket, eval sla.Evaluation) TicketDetailResponse {
	history := make([]HistoryEntryResponse, 0, len(ticket.History))
	for _, entry := range ticket.History {
		history = append(history, HistoryEntryResponse{
			ID:        entry.ID,
			Action:    entry.Action,
			Timestamp: entry.Timestamp,
			ActorID:   entry.ActorID,
			Details:   entry.Details,
		})
	}
	return TicketDetailResponse{
		TicketSummary: NewTicketSummary(ticket, &eval),
		Description:   ticket.Description,
		History:       history,
	}
}
