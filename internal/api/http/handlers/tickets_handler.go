package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-governance/internal/api/dto"
	"github.com/spec-kit/sla-governance/internal/auth"
	"github.com/spec-kit/sla-governance/internal/domain"
	"github.com/spec-kit/sla-governance/internal/service"
	"github.com/spec-kit/sla-governance/internal/sla"
	apperrors "github.com/spec-kit/sla-governance/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), actor, service.TicketCreateInput{
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketDetail(ticket, h.service.EvaluateSLA(ticket, ticket.CreatedAt))})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	filter, err := parseTicketFilter(c)
	if err != nil {
		return err
	}
	views, err := h.service.List(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summaries(views)})
}

// Queue GET /tickets/queue.
func (h *TicketsHandler) Queue(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	views, err := h.service.Queue(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summaries(views)})
}

// MyActive GET /tickets/mine.
func (h *TicketsHandler) MyActive(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	views, err := h.service.MyActive(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summaries(views)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	view, err := h.service.Get(c.UserContext(), c.Params("id"), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDetail(view.Ticket, view.SLA)})
}

// Claim POST /tickets/:id/claim.
func (h *TicketsHandler) Claim(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Claim(c.UserContext(), c.Params("id"), actor)
	if err != nil {
		return err
	}
	return h.respondTicket(c, ticket)
}

// UpdateStatus POST /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", map[string]any{"field": "status"})
	}
	ticket, err := h.service.UpdateStatus(c.UserContext(), c.Params("id"), actor, req.Status)
	if err != nil {
		return err
	}
	return h.respondTicket(c, ticket)
}

// Assign POST /tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.TechnicianID) == "" {
		return apperrors.NewValidationError("technician_id required", map[string]any{"field": "technician_id"})
	}
	ticket, err := h.service.Reassign(c.UserContext(), c.Params("id"), actor, req.TechnicianID)
	if err != nil {
		return err
	}
	return h.respondTicket(c, ticket)
}

func (h *TicketsHandler) respondTicket(c *fiber.Ctx, ticket domain.Ticket) error {
	return c.JSON(fiber.Map{"data": dto.NewTicketDetail(ticket, h.service.EvaluateSLA(ticket, ticket.UpdatedAt))})
}

func summaries(views []service.TicketView) []dto.TicketSummary {
	items := make([]dto.TicketSummary, 0, len(views))
	for i := range views {
		items = append(items, dto.NewTicketSummary(views[i].Ticket, &views[i].SLA))
	}
	return items
}

func parseTicketFilter(c *fiber.Ctx) (service.TicketFilter, error) {
	var filter service.TicketFilter
	for _, raw := range splitQuery(c.Query("status")) {
		status := domain.TicketStatus(raw)
		if !status.Valid() {
			return filter, apperrors.NewValidationError("unknown ticket status", map[string]any{"status": raw})
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, raw := range splitQuery(c.Query("priority")) {
		priority := domain.TicketPriority(raw)
		if !priority.Valid() {
			return filter, apperrors.NewValidationError("unknown ticket priority", map[string]any{"priority": raw})
		}
		filter.Priorities = append(filter.Priorities, priority)
	}
	for _, raw := range splitQuery(c.Query("type")) {
		typ := domain.TicketType(raw)
		if !typ.Valid() {
			return filter, apperrors.NewValidationError("unknown ticket type", map[string]any{"type": raw})
		}
		filter.Types = append(filter.Types, typ)
	}
	for _, raw := range splitQuery(c.Query("sla")) {
		state := sla.State(strings.ToUpper(raw))
		switch state {
		case sla.StateOnTrack, sla.StateAtRisk, sla.StateBreached, sla.StateMet:
		default:
			return filter, apperrors.NewValidationError("unknown sla state", map[string]any{"sla": raw})
		}
		filter.SLAStates = append(filter.SLAStates, state)
	}
	if assignee := strings.TrimSpace(c.Query("assigned_to")); assignee != "" {
		filter.AssignedTo = &assignee
	}
	return filter, nil
}

func splitQuery(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
