package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-governance/internal/domain"
	"github.com/spec-kit/sla-governance/internal/events"
	"github.com/spec-kit/sla-governance/internal/lifecycle"
	"github.com/spec-kit/sla-governance/internal/repository"
	"github.com/spec-kit/sla-governance/internal/sla"
	apperrors "github.com/spec-kit/sla-governance/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows over the stores.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	machine    *lifecycle.Machine
	clock      sla.Clock
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo    repository.TicketRepository
	UserRepo      repository.UserRepository
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	Machine       *lifecycle.Machine
	RiskThreshold time.Duration
	Now           func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Type        domain.TicketType
	Title       string
	Description string
}

// TicketFilter narrows a ticket listing. Empty fields match everything.
type TicketFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Types      []domain.TicketType
	SLAStates  []sla.State
	AssignedTo *string
}

// TicketView pairs a ticket with its SLA reading at the time it was loaded.
type TicketView struct {
	Ticket domain.Ticket
	SLA    sla.Evaluation
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	machine := deps.Machine
	if machine == nil {
		machine = lifecycle.NewMachine()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		machine:    machine,
		clock:      sla.NewClock(deps.RiskThreshold),
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        now,
	}
}

// CreateTicket files a ticket for requester.
func (s *TicketService) CreateTicket(ctx context.Context, requester domain.User, input TicketCreateInput) (domain.Ticket, error) {
	ticket, err := s.machine.Create(requester, lifecycle.Draft{
		Type:        input.Type,
		Title:       input.Title,
		Description: input.Description,
	}, s.now())
	if err != nil {
		return domain.Ticket{}, err
	}
	if err := s.tickets.Save(ctx, ticket); err != nil {
		return domain.Ticket{}, s.storeError("save ticket", ticket.ID, err)
	}

	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("actor_id", requester.ID),
		zap.String("priority", string(ticket.Priority)),
		zap.Time("sla_deadline", ticket.SLADeadline))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actorOf(requester),
		Payload: events.TicketCreatedPayload{
			Type:        ticket.Type,
			Priority:    ticket.Priority,
			Department:  ticket.Department,
			SLADeadline: ticket.SLADeadline,
			Title:       ticket.Title,
		},
	})
	return ticket, nil
}

// Claim assigns an open ticket to the acting technician.
func (s *TicketService) Claim(ctx context.Context, ticketID string, actor domain.User) (domain.Ticket, error) {
	current, err := s.load(ctx, ticketID)
	if err != nil {
		return domain.Ticket{}, err
	}
	next, err := s.machine.Claim(current, actor, s.now())
	if err != nil {
		s.logRejected("claim", ticketID, actor, err)
		return domain.Ticket{}, err
	}
	if err := s.tickets.Save(ctx, next); err != nil {
		return domain.Ticket{}, s.storeError("save ticket", ticketID, err)
	}

	s.logger.Info("ticket claimed", zap.String("ticket_id", ticketID), zap.String("actor_id", actor.ID))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketClaimed,
		TicketID: ticketID,
		Actor:    actorOf(actor),
		Payload:  events.TicketClaimedPayload{TechnicianID: actor.ID},
	})
	return next, nil
}

// UpdateStatus moves a ticket to status on behalf of actor.
func (s *TicketService) UpdateStatus(ctx context.Context, ticketID string, actor domain.User, status domain.TicketStatus) (domain.Ticket, error) {
	current, err := s.load(ctx, ticketID)
	if err != nil {
		return domain.Ticket{}, err
	}
	next, err := s.machine.UpdateStatus(current, actor, status, s.now())
	if err != nil {
		s.logRejected("update status", ticketID, actor, err)
		return domain.Ticket{}, err
	}
	if err := s.tickets.Save(ctx, next); err != nil {
		return domain.Ticket{}, s.storeError("save ticket", ticketID, err)
	}

	s.logger.Info("ticket status changed",
		zap.String("ticket_id", ticketID),
		zap.String("actor_id", actor.ID),
		zap.String("old_status", string(current.Status)),
		zap.String("new_status", string(next.Status)))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticketID,
		Actor:    actorOf(actor),
		Payload: events.TicketStatusChangedPayload{
			OldStatus:   current.Status,
			NewStatus:   next.Status,
			OldPriority: current.Priority,
			NewPriority: next.Priority,
		},
	})
	return next, nil
}

// Reassign hands a ticket to another technician. Only administrators may do this.
func (s *TicketService) Reassign(ctx context.Context, ticketID string, actor domain.User, technicianID string) (domain.Ticket, error) {
	current, err := s.load(ctx, ticketID)
	if err != nil {
		return domain.Ticket{}, err
	}
	technician, err := s.users.Get(ctx, technicianID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Ticket{}, apperrors.NewNotFound("user", map[string]any{"id": technicianID})
		}
		return domain.Ticket{}, s.storeError("load user", ticketID, err)
	}
	next, err := s.machine.Reassign(current, actor, technician, s.now())
	if err != nil {
		s.logRejected("reassign", ticketID, actor, err)
		return domain.Ticket{}, err
	}
	if err := s.tickets.Save(ctx, next); err != nil {
		return domain.Ticket{}, s.storeError("save ticket", ticketID, err)
	}

	s.logger.Info("ticket reassigned",
		zap.String("ticket_id", ticketID),
		zap.String("actor_id", actor.ID),
		zap.String("technician_id", technician.ID))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketReassigned,
		TicketID: ticketID,
		Actor:    actorOf(actor),
		Payload: events.TicketReassignedPayload{
			PreviousAssignee: current.AssignedTo,
			TechnicianID:     technician.ID,
		},
	})
	return next, nil
}

// Get loads one ticket the viewer may see, with its SLA reading.
func (s *TicketService) Get(ctx context.Context, ticketID string, viewer domain.User) (TicketView, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return TicketView{}, err
	}
	if !lifecycle.CanView(ticket, viewer) {
		// not revealing existence to other requesters
		return TicketView{}, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	return s.view(ticket, s.now()), nil
}

// List returns the tickets visible to viewer that match filter.
func (s *TicketService) List(ctx context.Context, viewer domain.User, filter TicketFilter) ([]TicketView, error) {
	all, err := s.tickets.List(ctx)
	if err != nil {
		return nil, s.storeError("list tickets", "", err)
	}
	now := s.now()
	result := make([]TicketView, 0)
	for _, ticket := range lifecycle.Visible(all, viewer) {
		view := s.view(ticket, now)
		if filter.matches(view) {
			result = append(result, view)
		}
	}
	return result, nil
}

// Queue returns open, unassigned tickets for a technician to pick from.
func (s *TicketService) Queue(ctx context.Context, actor domain.User) ([]TicketView, error) {
	if !lifecycle.Can(actor.Role, lifecycle.ActionClaim) {
		return nil, apperrors.NewForbidden("only technicians have a claim queue")
	}
	all, err := s.tickets.List(ctx)
	if err != nil {
		return nil, s.storeError("list tickets", "", err)
	}
	return s.views(lifecycle.Queue(all)), nil
}

// MyActive returns the non-terminal tickets assigned to actor.
func (s *TicketService) MyActive(ctx context.Context, actor domain.User) ([]TicketView, error) {
	all, err := s.tickets.List(ctx)
	if err != nil {
		return nil, s.storeError("list tickets", "", err)
	}
	return s.views(lifecycle.ActiveFor(all, actor.ID)), nil
}

// Import stores an existing ticket snapshot, filling derivable fields. It is an operator
// path: no lifecycle permission applies and no events are published. Re-importing a stored
// ticket may not change its creator, creation time, deadline or recorded history, and a
// supplied deadline must sit one priority budget after the creation time.
func (s *TicketService) Import(ctx context.Context, ticket domain.Ticket) (domain.Ticket, error) {
	ticket = ticket.Clone()
	ticket.ID = strings.TrimSpace(ticket.ID)
	ticket.Title = strings.TrimSpace(ticket.Title)
	if ticket.ID == "" {
		return domain.Ticket{}, apperrors.NewValidationError("ticket id is required", nil)
	}
	if ticket.Title == "" {
		return domain.Ticket{}, apperrors.NewValidationError("title is required", map[string]any{"id": ticket.ID})
	}
	if !ticket.Type.Valid() {
		return domain.Ticket{}, apperrors.NewValidationError("unknown ticket type", map[string]any{"id": ticket.ID, "type": string(ticket.Type)})
	}
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusOpen
	}
	if !ticket.Status.Valid() {
		return domain.Ticket{}, apperrors.NewValidationError("unknown ticket status", map[string]any{"id": ticket.ID, "status": string(ticket.Status)})
	}

	existing, err := s.tickets.Get(ctx, ticket.ID)
	switch {
	case err == nil:
		if err := keepImmutable(&ticket, existing); err != nil {
			return domain.Ticket{}, err
		}
	case !errors.Is(err, repository.ErrNotFound):
		return domain.Ticket{}, s.storeError("load ticket", ticket.ID, err)
	}

	creator, err := s.users.Get(ctx, ticket.CreatedBy)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Ticket{}, apperrors.NewNotFound("user", map[string]any{"id": ticket.CreatedBy})
	}
	if err != nil {
		return domain.Ticket{}, s.storeError("load user", ticket.ID, err)
	}
	if ticket.Priority == "" {
		ticket.Priority = sla.ResolvePriority(creator.Role, ticket.Type)
	}
	if !ticket.Priority.Valid() {
		return domain.Ticket{}, apperrors.NewValidationError("unknown ticket priority", map[string]any{"id": ticket.ID, "priority": string(ticket.Priority)})
	}
	if ticket.Department == "" {
		ticket.Department = creator.Department
	}
	if ticket.IsAssigned() {
		assignee, err := s.users.Get(ctx, *ticket.AssignedTo)
		if err != nil || assignee.Role != domain.RoleTechnician {
			return domain.Ticket{}, apperrors.NewValidationError("assignee must be an existing technician", map[string]any{"id": ticket.ID, "assigned_to": *ticket.AssignedTo})
		}
	} else {
		ticket.AssignedTo = nil
	}

	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = s.now()
	}
	if ticket.SLADeadline.IsZero() {
		ticket.SLADeadline = sla.Deadline(ticket.CreatedAt, ticket.Priority)
	} else if !matchesBudget(ticket.CreatedAt, ticket.SLADeadline) {
		return domain.Ticket{}, apperrors.NewValidationError("sla deadline does not match any priority budget", map[string]any{"id": ticket.ID, "sla_deadline": ticket.SLADeadline})
	}
	if ticket.UpdatedAt.IsZero() {
		ticket.UpdatedAt = ticket.CreatedAt
	}
	if len(ticket.History) == 0 {
		ticket.History = []domain.TicketHistory{{
			ID:        uuid.NewString(),
			Action:    domain.ActionCreated,
			Timestamp: ticket.CreatedAt,
			ActorID:   ticket.CreatedBy,
			Details:   "Ticket imported",
		}}
	}

	if err := s.tickets.Save(ctx, ticket); err != nil {
		return domain.Ticket{}, s.storeError("import ticket", ticket.ID, err)
	}
	s.logger.Info("ticket imported", zap.String("ticket_id", ticket.ID), zap.String("status", string(ticket.Status)))
	return ticket, nil
}

// keepImmutable fills the creator, creation time, deadline and history of a re-imported
// ticket from the stored copy and rejects a snapshot that changes any of them. A supplied
// history must extend the stored one.
func keepImmutable(ticket *domain.Ticket, existing domain.Ticket) error {
	details := map[string]any{"id": ticket.ID}
	if ticket.CreatedBy == "" {
		ticket.CreatedBy = existing.CreatedBy
	} else if ticket.CreatedBy != existing.CreatedBy {
		details["created_by"] = existing.CreatedBy
		return apperrors.NewConflict("creator of an existing ticket cannot be changed", details)
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = existing.CreatedAt
	} else if !ticket.CreatedAt.Equal(existing.CreatedAt) {
		details["created_at"] = existing.CreatedAt
		return apperrors.NewConflict("creation time of an existing ticket cannot be changed", details)
	}
	if ticket.SLADeadline.IsZero() {
		ticket.SLADeadline = existing.SLADeadline
	} else if !ticket.SLADeadline.Equal(existing.SLADeadline) {
		details["sla_deadline"] = existing.SLADeadline
		return apperrors.NewConflict("sla deadline of an existing ticket cannot be changed", details)
	}
	if len(ticket.History) == 0 {
		ticket.History = existing.Clone().History
		return nil
	}
	if len(ticket.History) < len(existing.History) {
		return apperrors.NewConflict("history of an existing ticket cannot be shortened", details)
	}
	for i, entry := range existing.History {
		if ticket.History[i].ID != entry.ID {
			details["seq"] = i
			return apperrors.NewConflict("history of an existing ticket cannot be rewritten", details)
		}
	}
	return nil
}

// matchesBudget reports whether deadline lies exactly one priority budget after createdAt.
// Escalation changes the priority but not the deadline, so any priority qualifies.
func matchesBudget(createdAt, deadline time.Time) bool {
	for _, p := range domain.TicketPriorities {
		if deadline.Equal(sla.Deadline(createdAt, p)) {
			return true
		}
	}
	return false
}

// EvaluateSLA classifies ticket at now with the configured risk threshold.
func (s *TicketService) EvaluateSLA(ticket domain.Ticket, now time.Time) sla.Evaluation {
	return s.clock.Evaluate(ticket, now)
}

func (s *TicketService) load(ctx context.Context, ticketID string) (domain.Ticket, error) {
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Ticket{}, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
		}
		return domain.Ticket{}, s.storeError("load ticket", ticketID, err)
	}
	return ticket, nil
}

func (s *TicketService) view(ticket domain.Ticket, now time.Time) TicketView {
	return TicketView{Ticket: ticket, SLA: s.clock.Evaluate(ticket, now)}
}

func (s *TicketService) views(tickets []domain.Ticket) []TicketView {
	now := s.now()
	result := make([]TicketView, 0, len(tickets))
	for _, ticket := range tickets {
		result = append(result, s.view(ticket, now))
	}
	return result
}

func (s *TicketService) storeError(op, ticketID string, err error) error {
	s.logger.Error(op+" failed", zap.String("ticket_id", ticketID), zap.Error(err))
	return apperrors.NewInternalError(err)
}

func (s *TicketService) logRejected(op, ticketID string, actor domain.User, err error) {
	s.logger.Info(op+" rejected",
		zap.String("ticket_id", ticketID),
		zap.String("actor_id", actor.ID),
		zap.String("role", string(actor.Role)),
		zap.Error(err))
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func actorOf(user domain.User) events.Actor {
	return events.Actor{UserID: user.ID, Role: user.Role}
}

func (f TicketFilter) matches(view TicketView) bool {
	ticket := view.Ticket
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, ticket.Status) {
		return false
	}
	if len(f.Priorities) > 0 && !slices.Contains(f.Priorities, ticket.Priority) {
		return false
	}
	if len(f.Types) > 0 && !slices.Contains(f.Types, ticket.Type) {
		return false
	}
	if len(f.SLAStates) > 0 && !slices.Contains(f.SLAStates, view.SLA.State) {
		return false
	}
	if f.AssignedTo != nil && (!ticket.IsAssigned() || *ticket.AssignedTo != *f.AssignedTo) {
		return false
	}
	return true
}
