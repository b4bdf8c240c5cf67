package domain

import "time"

// HistoryAction captures what happened in a history entry.
type HistoryAction string

const (
	ActionCreated      HistoryAction = "CREATED"
	ActionClaimed      HistoryAction = "CLAIMED"
	ActionStatusChange HistoryAction = "STATUS_CHANGE"
	ActionResolved     HistoryAction = "RESOLVED"
	ActionReassigned   HistoryAction = "REASSIGNED"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID        string
	Action    HistoryAction
	Timestamp time.Time
	ActorID   string
	Details   string
}
