package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-governance/internal/events"
)

// ActivityLogger writes an audit line for each ticket event.
type ActivityLogger struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewActivityLogger creates the subscriber.
func NewActivityLogger(dispatcher events.Dispatcher, logger *zap.Logger) *ActivityLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityLogger{
		dispatcher: dispatcher,
		logger:     logger.Named("activity"),
	}
}

// RegisterHandlers subscribes to events.
func (a *ActivityLogger) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventTicketCreated, a.handleTicketCreated)
	a.dispatcher.Subscribe(events.EventTicketClaimed, a.handleTicketClaimed)
	a.dispatcher.Subscribe(events.EventTicketStatusChanged, a.handleTicketStatusChanged)
	a.dispatcher.Subscribe(events.EventTicketReassigned, a.handleTicketReassigned)
}

func (a *ActivityLogger) handleTicketCreated(_ context.Context, event events.Event) error {
	fields := a.base(event)
	if payload, ok := event.Payload.(events.TicketCreatedPayload); ok {
		fields = append(fields,
			zap.String("type", string(payload.Type)),
			zap.String("priority", string(payload.Priority)),
			zap.String("department", string(payload.Department)),
			zap.Time("sla_deadline", payload.SLADeadline))
	}
	a.logger.Info("TicketCreated", fields...)
	return nil
}

func (a *ActivityLogger) handleTicketClaimed(_ context.Context, event events.Event) error {
	fields := a.base(event)
	if payload, ok := event.Payload.(events.TicketClaimedPayload); ok {
		fields = append(fields, zap.String("technician_id", payload.TechnicianID))
	}
	a.logger.Info("TicketClaimed", fields...)
	return nil
}

func (a *ActivityLogger) handleTicketStatusChanged(_ context.Context, event events.Event) error {
	fields := a.base(event)
	if payload, ok := event.Payload.(events.TicketStatusChangedPayload); ok {
		fields = append(fields,
			zap.String("old_status", string(payload.OldStatus)),
			zap.String("new_status", string(payload.NewStatus)))
		if payload.OldPriority != payload.NewPriority {
			fields = append(fields,
				zap.String("old_priority", string(payload.OldPriority)),
				zap.String("new_priority", string(payload.NewPriority)))
		}
	}
	a.logger.Info("TicketStatusChanged", fields...)
	return nil
}

func (a *ActivityLogger) handleTicketReassigned(_ context.Context, event events.Event) error {
	fields := a.base(event)
	if payload, ok := event.Payload.(events.TicketReassignedPayload); ok {
		fields = append(fields, zap.String("technician_id", payload.TechnicianID))
		if payload.PreviousAssignee != nil {
			fields = append(fields, zap.String("previous_assignee", *payload.PreviousAssignee))
		}
	}
	a.logger.Info("TicketReassigned", fields...)
	return nil
}

func (a *ActivityLogger) base(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("ticket_id", event.TicketID),
		zap.String("actor_id", event.Actor.UserID),
		zap.String("actor_role", string(event.Actor.Role)),
		zap.Time("at", event.Timestamp),
	}
}
