package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-governance/internal/domain"
	"github.com/spec-kit/sla-governance/internal/events"
	"github.com/spec-kit/sla-governance/internal/governance"
	"github.com/spec-kit/sla-governance/internal/lifecycle"
	"github.com/spec-kit/sla-governance/internal/repository"
	apperrors "github.com/spec-kit/sla-governance/pkg/util/errorutil"
)

// ReportCache stores the most recent governance report.
type ReportCache interface {
	Get(ctx context.Context) (governance.Report, bool, error)
	Set(ctx context.Context, report governance.Report) error
	Invalidate(ctx context.Context) error
}

// GovernanceService serves oversight reports built from store snapshots.
type GovernanceService struct {
	tickets repository.TicketRepository
	users   repository.UserRepository
	cache   ReportCache
	opts    governance.Options
	logger  *zap.Logger
	now     func() time.Time
}

// GovernanceDependencies bundles collaborators for the governance service.
type GovernanceDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Cache      ReportCache
	Options    governance.Options
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewGovernanceService constructs the service. Cache is optional.
func NewGovernanceService(deps GovernanceDependencies) *GovernanceService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &GovernanceService{
		tickets: deps.TicketRepo,
		users:   deps.UserRepo,
		cache:   deps.Cache,
		opts:    deps.Options,
		logger:  logger,
		now:     now,
	}
}

// Report returns the governance report for viewer, served from cache when warm.
func (s *GovernanceService) Report(ctx context.Context, viewer domain.User) (governance.Report, error) {
	if !lifecycle.Can(viewer.Role, lifecycle.ActionViewGovernance) {
		return governance.Report{}, apperrors.NewForbidden("governance reports are restricted to managers and administrators")
	}
	if s.cache != nil {
		report, ok, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.Warn("report cache read failed", zap.Error(err))
		} else if ok {
			if current, fresh := ageReport(report, s.now()); fresh {
				return current, nil
			}
		}
	}
	return s.Refresh(ctx)
}

// ageReport counts the at-risk countdowns of a cached report down to now. It reports false
// when the report postdates now or an at-risk ticket has reached its deadline since, as
// the breach counts are then wrong. On-track tickets that turned at-risk only show up
// after the next rebuild.
func ageReport(report governance.Report, now time.Time) (governance.Report, bool) {
	age := now.Sub(report.GeneratedAt)
	if age < 0 {
		return report, false
	}
	atRisk := make([]governance.AtRiskTicket, len(report.AtRisk))
	for i, entry := range report.AtRisk {
		if entry.Remaining <= age {
			return report, false
		}
		entry.Remaining -= age
		atRisk[i] = entry
	}
	report.AtRisk = atRisk
	return report, true
}

// Refresh rebuilds the report from the stores and replaces the cached copy.
func (s *GovernanceService) Refresh(ctx context.Context) (governance.Report, error) {
	report, err := s.build(ctx)
	if err != nil {
		return governance.Report{}, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, report); err != nil {
			s.logger.Warn("report cache write failed", zap.Error(err))
		}
	}
	s.logger.Debug("governance report rebuilt",
		zap.Int("total_tickets", report.TotalTickets),
		zap.Int("active_breaches", report.ActiveBreaches),
		zap.Float64("compliance_rate", report.ComplianceRate))
	return report, nil
}

// GovernanceReport is the pure aggregation over caller supplied snapshots.
func (s *GovernanceService) GovernanceReport(tickets []domain.Ticket, users []domain.User, now time.Time) governance.Report {
	return governance.Build(tickets, users, now, s.opts)
}

// TechnicianPerformance reports one technician's workload. Technicians may read their own.
func (s *GovernanceService) TechnicianPerformance(ctx context.Context, viewer domain.User, technicianID string) (governance.TechnicianPerformance, error) {
	if !lifecycle.Can(viewer.Role, lifecycle.ActionViewGovernance) && viewer.ID != technicianID {
		return governance.TechnicianPerformance{}, apperrors.NewForbidden("cannot view another technician's performance")
	}
	technician, err := s.users.Get(ctx, technicianID)
	if errors.Is(err, repository.ErrNotFound) {
		return governance.TechnicianPerformance{}, apperrors.NewNotFound("user", map[string]any{"id": technicianID})
	}
	if err != nil {
		return governance.TechnicianPerformance{}, apperrors.NewInternalError(err)
	}
	if technician.Role != domain.RoleTechnician {
		return governance.TechnicianPerformance{}, apperrors.NewValidationError("user is not a technician", map[string]any{"id": technicianID})
	}
	tickets, err := s.tickets.List(ctx)
	if err != nil {
		s.logger.Error("list tickets failed", zap.Error(err))
		return governance.TechnicianPerformance{}, apperrors.NewInternalError(err)
	}
	return governance.Performance(tickets, technician, s.now(), s.opts), nil
}

// RegisterCacheInvalidation drops the cached report whenever a ticket changes.
func (s *GovernanceService) RegisterCacheInvalidation(dispatcher events.Dispatcher) {
	if dispatcher == nil || s.cache == nil {
		return
	}
	for _, eventType := range events.TicketEvents {
		dispatcher.Subscribe(eventType, s.invalidate)
	}
}

func (s *GovernanceService) invalidate(ctx context.Context, event events.Event) error {
	if err := s.cache.Invalidate(ctx); err != nil {
		return err
	}
	s.logger.Debug("report cache invalidated",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID))
	return nil
}

func (s *GovernanceService) build(ctx context.Context) (governance.Report, error) {
	tickets, err := s.tickets.List(ctx)
	if err != nil {
		s.logger.Error("list tickets failed", zap.Error(err))
		return governance.Report{}, apperrors.NewInternalError(err)
	}
	users, err := s.users.List(ctx)
	if err != nil {
		s.logger.Error("list users failed", zap.Error(err))
		return governance.Report{}, apperrors.NewInternalError(err)
	}
	return governance.Build(tickets, users, s.now(), s.opts), nil
}
