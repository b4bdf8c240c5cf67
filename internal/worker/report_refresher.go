package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-governance/internal/governance"
)

// ReportBuilder rebuilds and caches the governance report.
type ReportBuilder interface {
	Refresh(ctx context.Context) (governance.Report, error)
}

// ReportRefresher periodically rebuilds the governance report so dashboards read a warm
// cache and breaches surface without waiting for a ticket write.
type ReportRefresher struct {
	builder  ReportBuilder
	interval time.Duration
	logger   *zap.Logger
}

// NewReportRefresher creates the worker. A non-positive interval disables it.
func NewReportRefresher(builder ReportBuilder, interval time.Duration, logger *zap.Logger) *ReportRefresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportRefresher{builder: builder, interval: interval, logger: logger.Named("report-refresher")}
}

// Run refreshes once immediately and then on every tick until ctx is cancelled.
func (w *ReportRefresher) Run(ctx context.Context) {
	if w == nil || w.builder == nil || w.interval <= 0 {
		return
	}
	w.logger.Info("report refresher started", zap.Duration("interval", w.interval))
	defer w.logger.Info("report refresher stopped")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

// Start runs the worker in a goroutine and returns a channel closed when it exits.
func (w *ReportRefresher) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	return done
}

func (w *ReportRefresher) refresh(ctx context.Context) {
	report, err := w.builder.Refresh(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Warn("report refresh failed", zap.Error(err))
		return
	}
	if report.ActiveBreaches > 0 {
		w.logger.Warn("active SLA breaches",
			zap.Int("active_breaches", report.ActiveBreaches),
			zap.Int("at_risk", len(report.AtRisk)),
			zap.Float64("compliance_rate", report.ComplianceRate))
	}
}
