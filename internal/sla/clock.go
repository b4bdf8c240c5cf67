package sla

import (
	"time"

	"github.com/spec-kit/sla-governance/internal/domain"
)

// DefaultRiskThreshold is the remaining time under which a ticket is at risk.
const DefaultRiskThreshold = 2 * time.Hour

// State classifies a ticket against its deadline.
type State string

const (
	StateOnTrack  State = "ON_TRACK"
	StateAtRisk   State = "AT_RISK"
	StateBreached State = "BREACHED"
	StateMet      State = "MET"
)

// Evaluation is the SLA reading for one ticket at one instant. Remaining is only
// meaningful for ON_TRACK and AT_RISK.
type Evaluation struct {
	State     State
	Remaining time.Duration
	Deadline  time.Time
}

// HasRemaining reports whether Remaining carries a value.
func (e Evaluation) HasRemaining() bool {
	return e.State == StateOnTrack || e.State == StateAtRisk
}

// Clock evaluates tickets against a risk threshold. The zero value uses DefaultRiskThreshold.
type Clock struct {
	RiskThreshold time.Duration
}

// NewClock builds a Clock; a non-positive threshold falls back to the default.
func NewClock(riskThreshold time.Duration) Clock {
	if riskThreshold <= 0 {
		riskThreshold = DefaultRiskThreshold
	}
	return Clock{RiskThreshold: riskThreshold}
}

// Evaluate classifies ticket at now. It reads only its arguments.
func (c Clock) Evaluate(ticket domain.Ticket, now time.Time) Evaluation {
	eval := Evaluation{Deadline: ticket.SLADeadline}
	if ticket.Status.Terminal() {
		eval.State = StateMet
		return eval
	}

	remaining := ticket.SLADeadline.Sub(now)
	switch {
	case remaining <= 0:
		eval.State = StateBreached
	case remaining < c.threshold():
		eval.State = StateAtRisk
		eval.Remaining = remaining
	default:
		eval.State = StateOnTrack
		eval.Remaining = remaining
	}
	return eval
}

func (c Clock) threshold() time.Duration {
	if c.RiskThreshold <= 0 {
		return DefaultRiskThreshold
	}
	return c.RiskThreshold
}

// Evaluate classifies ticket with the default risk threshold.
func Evaluate(ticket domain.Ticket, now time.Time) Evaluation {
	return Clock{}.Evaluate(ticket, now)
}
