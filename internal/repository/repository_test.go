package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/spec-kit/sla-governance/internal/domain"
)

var created = time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "store.sqlite"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(SQLiteSchema)
	require.NoError(t, err)
	return db
}

func sampleTicket(id string, at time.Time) domain.Ticket {
	return domain.Ticket{
		ID:          id,
		Title:       "VPN drops every hour",
		Description: "Since the update",
		Type:        domain.TicketTypeNetwork,
		Priority:    domain.TicketPriorityMedium,
		Status:      domain.TicketStatusOpen,
		CreatedBy:   "u-1",
		Department:  domain.DepartmentSales,
		CreatedAt:   at,
		UpdatedAt:   at,
		SLADeadline: at.Add(24 * time.Hour),
		History: []domain.TicketHistory{{
			ID: id + "-h1", Action: domain.ActionCreated, Timestamp: at, ActorID: "u-1", Details: "Ticket created via portal",
		}},
	}
}

func ticketStores(t *testing.T) map[string]TicketRepository {
	return map[string]TicketRepository{
		"memory": NewMemoryTicketRepository(),
		"sqlite": NewSQLiteTicketRepository(openSQLite(t)),
	}
}

func userStores(t *testing.T) map[string]UserRepository {
	return map[string]UserRepository{
		"memory": NewMemoryUserRepository(),
		"sqlite": NewSQLiteUserRepository(openSQLite(t)),
	}
}

func TestTicketRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, repo := range ticketStores(t) {
		t.Run(name, func(t *testing.T) {
			first := sampleTicket("TKT-00000001", created)
			second := sampleTicket("TKT-00000002", created.Add(time.Minute))
			require.NoError(t, repo.Save(ctx, second))
			require.NoError(t, repo.Save(ctx, first))

			got, err := repo.Get(ctx, first.ID)
			require.NoError(t, err)
			assert.Equal(t, first.Title, got.Title)
			assert.Equal(t, first.Type, got.Type)
			assert.Nil(t, got.AssignedTo)
			assert.True(t, first.SLADeadline.Equal(got.SLADeadline))
			require.Len(t, got.History, 1)
			assert.Equal(t, domain.ActionCreated, got.History[0].Action)
			assert.True(t, got.History[0].Timestamp.Equal(created))

			assignee := "u-tech"
			got.AssignedTo = &assignee
			got.Status = domain.TicketStatusInProgress
			got.UpdatedAt = created.Add(time.Hour)
			got.History = append(got.History, domain.TicketHistory{
				ID: "TKT-00000001-h2", Action: domain.ActionClaimed, Timestamp: got.UpdatedAt, ActorID: assignee,
			})
			require.NoError(t, repo.Save(ctx, got))

			updated, err := repo.Get(ctx, first.ID)
			require.NoError(t, err)
			require.NotNil(t, updated.AssignedTo)
			assert.Equal(t, assignee, *updated.AssignedTo)
			assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
			require.Len(t, updated.History, 2)
			assert.Equal(t, domain.ActionClaimed, updated.History[1].Action)

			all, err := repo.List(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, first.ID, all[0].ID)
			assert.Equal(t, second.ID, all[1].ID)
		})
	}
}

func TestTicketRepositoryNotFound(t *testing.T) {
	for name, repo := range ticketStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.Get(context.Background(), "TKT-MISSING")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestMemoryTicketRepositoryIsolatesSnapshots(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTicketRepository()
	ticket := sampleTicket("TKT-00000003", created)
	require.NoError(t, repo.Save(ctx, ticket))

	ticket.History[0].Details = "mutated after save"
	got, err := repo.Get(ctx, ticket.ID)
	require.NoError(t, err)
	got.History[0].ActorID = "mutated after get"

	again, err := repo.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ticket created via portal", again.History[0].Details)
	assert.Equal(t, "u-1", again.History[0].ActorID)
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	for name, repo := range userStores(t) {
		t.Run(name, func(t *testing.T) {
			ana := domain.User{ID: "u-ana", Name: "Ana", Email: "ana@corp.test", PasswordHash: "x", Role: domain.RoleEmployee, Department: domain.DepartmentHR, Avatar: "A", CreatedAt: created}
			ben := domain.User{ID: "u-ben", Name: "Ben", Email: "ben@corp.test", Role: domain.RoleTechnician, Department: domain.DepartmentIT, Avatar: "B", CreatedAt: created.Add(time.Second)}
			require.NoError(t, repo.Save(ctx, ana))
			require.NoError(t, repo.Save(ctx, ben))

			got, err := repo.GetByEmail(ctx, "ANA@corp.test")
			require.NoError(t, err)
			assert.Equal(t, ana.ID, got.ID)
			assert.Equal(t, domain.RoleEmployee, got.Role)

			got, err = repo.Get(ctx, ben.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.DepartmentIT, got.Department)

			_, err = repo.Get(ctx, "u-nobody")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = repo.GetByEmail(ctx, "nobody@corp.test")
			assert.ErrorIs(t, err, ErrNotFound)

			clash := domain.User{ID: "u-clash", Name: "Clash", Email: "ana@corp.test", Role: domain.RoleEmployee, Department: domain.DepartmentHR, CreatedAt: created}
			assert.ErrorIs(t, repo.Save(ctx, clash), ErrDuplicateEmail)

			ana.Name = "Ana Maria"
			require.NoError(t, repo.Save(ctx, ana))

			users, err := repo.List(ctx)
			require.NoError(t, err)
			require.Len(t, users, 2)
			assert.Equal(t, "Ana Maria", users[0].Name)
			assert.Equal(t, ben.ID, users[1].ID)
		})
	}
}

func TestTicketRepositoryKeepsCreatorAndDeadline(t *testing.T) {
	ctx := context.Background()
	for name, repo := range ticketStores(t) {
		t.Run(name, func(t *testing.T) {
			original := sampleTicket("TKT-00000010", created)
			require.NoError(t, repo.Save(ctx, original))

			rewritten := original.Clone()
			rewritten.CreatedBy = "u-2"
			rewritten.CreatedAt = created.Add(time.Hour)
			rewritten.SLADeadline = created.Add(500 * time.Hour)
			rewritten.Title = "VPN drops every minute"
			require.NoError(t, repo.Save(ctx, rewritten))

			got, err := repo.Get(ctx, original.ID)
			require.NoError(t, err)
			assert.Equal(t, "u-1", got.CreatedBy)
			assert.True(t, created.Equal(got.CreatedAt))
			assert.True(t, original.SLADeadline.Equal(got.SLADeadline))
			assert.Equal(t, "VPN drops every minute", got.Title)
		})
	}
}

func TestPendingHistorySkipsStoredPrefix(t *testing.T) {
	entries := []domain.TicketHistory{
		{ID: "h1", Action: domain.ActionCreated},
		{ID: "h2", Action: domain.ActionClaimed},
		{ID: "h3", Action: domain.ActionResolved},
	}

	all := pendingHistory(entries, 0)
	require.Len(t, all, 3)
	assert.Equal(t, 0, all[0].seq)

	rest := pendingHistory(entries, 1)
	require.Len(t, rest, 2)
	assert.Equal(t, 1, rest[0].seq)
	assert.Equal(t, "h2", rest[0].entry.ID)
	assert.Equal(t, 2, rest[1].seq)

	assert.Empty(t, pendingHistory(entries, 3))
	assert.Empty(t, pendingHistory(entries, 5))
	assert.Empty(t, pendingHistory(nil, 0))
}
