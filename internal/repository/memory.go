package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/spec-kit/sla-governance/internal/domain"
)

type memoryTicketRepository struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]domain.Ticket
}

// NewMemoryTicketRepository returns a process-local store. List orders by creation time
// and then insertion, matching the SQL stores.
func NewMemoryTicketRepository() TicketRepository {
	return &memoryTicketRepository{byID: make(map[string]domain.Ticket)}
}

func (r *memoryTicketRepository) List(_ context.Context) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.Ticket, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.byID[id].Clone())
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *memoryTicketRepository) Get(_ context.Context, id string) (domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.byID[id]
	if !ok {
		return domain.Ticket{}, ErrNotFound
	}
	return ticket.Clone(), nil
}

// Save keeps the creator, creation time and deadline of an existing ticket, as the SQL
// upserts do.
func (r *memoryTicketRepository) Save(_ context.Context, ticket domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := ticket.Clone()
	if existing, ok := r.byID[ticket.ID]; ok {
		stored.CreatedBy = existing.CreatedBy
		stored.CreatedAt = existing.CreatedAt
		stored.SLADeadline = existing.SLADeadline
	} else {
		r.order = append(r.order, ticket.ID)
	}
	r.byID[ticket.ID] = stored
	return nil
}

type memoryUserRepository struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]domain.User
}

// NewMemoryUserRepository returns a process-local user store.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{byID: make(map[string]domain.User)}
}

func (r *memoryUserRepository) List(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.User, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.byID[id])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *memoryUserRepository) Get(_ context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return user, nil
}

func (r *memoryUserRepository) GetByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if strings.EqualFold(r.byID[id].Email, email) {
			return r.byID[id], nil
		}
	}
	return domain.User{}, ErrNotFound
}

func (r *memoryUserRepository) Save(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		if id != user.ID && strings.EqualFold(r.byID[id].Email, user.Email) {
			return ErrDuplicateEmail
		}
	}
	if _, ok := r.byID[user.ID]; !ok {
		r.order = append(r.order, user.ID)
	}
	r.byID[user.ID] = user
	return nil
}
