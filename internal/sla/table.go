// Package sla holds the response-time policy: the priority budget table, the priority
// resolver applied at ticket creation, and the clock that classifies tickets against
// their deadline.
package sla

import (
	"fmt"
	"time"

	"github.com/spec-kit/sla-governance/internal/domain"
)

var budgetHours = map[domain.TicketPriority]int{
	domain.TicketPriorityLow:      48,
	domain.TicketPriorityMedium:   24,
	domain.TicketPriorityHigh:     8,
	domain.TicketPriorityCritical: 2,
}

// Budget returns the response-time budget for p.
func Budget(p domain.TicketPriority) (time.Duration, error) {
	hours, ok := budgetHours[p]
	if !ok {
		return 0, fmt.Errorf("sla: unknown priority %q", p)
	}
	return time.Duration(hours) * time.Hour, nil
}

// MustBudget is Budget for priorities that were already validated. An unknown value
// here is a programming error.
func MustBudget(p domain.TicketPriority) time.Duration {
	budget, err := Budget(p)
	if err != nil {
		panic(err)
	}
	return budget
}

// BudgetHours returns the budget for p in whole hours.
func BudgetHours(p domain.TicketPriority) int {
	return int(MustBudget(p) / time.Hour)
}

// Deadline computes the resolution deadline for a ticket created at createdAt.
func Deadline(createdAt time.Time, p domain.TicketPriority) time.Time {
	return createdAt.Add(MustBudget(p))
}
