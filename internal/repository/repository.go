// Package repository holds the ticket and user stores. Every store replaces records
// wholesale by id; the last save wins.
package repository

import (
	"context"
	"errors"

	"github.com/spec-kit/sla-governance/internal/domain"
)

var (
	// ErrNotFound is returned when no record matches the id or email.
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEmail is returned when a user save collides with another user's email.
	ErrDuplicateEmail = errors.New("repository: email already registered")
)

// TicketRepository stores tickets together with their history.
type TicketRepository interface {
	List(ctx context.Context) ([]domain.Ticket, error)
	Get(ctx context.Context, id string) (domain.Ticket, error)
	Save(ctx context.Context, ticket domain.Ticket) error
}

// UserRepository stores users.
type UserRepository interface {
	List(ctx context.Context) ([]domain.User, error)
	Get(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	Save(ctx context.Context, user domain.User) error
}
