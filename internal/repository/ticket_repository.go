package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-governance/internal/domain"
)

const ticketColumns = `id, title, description, type, priority, status, created_by, assigned_to,
               department, created_at, updated_at, sla_deadline`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the Postgres ticket store.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}

	history, err := listAllHistory(ctx, r.pool)
	if err != nil {
		return nil, err
	}
	for i := range tickets {
		tickets[i].History = history[tickets[i].ID]
		if tickets[i].History == nil {
			tickets[i].History = []domain.TicketHistory{}
		}
	}
	return tickets, nil
}

func (r *ticketRepository) Get(ctx context.Context, id string) (domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := r.fetchSingle(ctx, query, id)
	if err != nil {
		return domain.Ticket{}, err
	}
	ticket.History, err = listHistoryByTicket(ctx, r.pool, id)
	if err != nil {
		return domain.Ticket{}, err
	}
	return ticket, nil
}

// Save upserts the ticket row and appends any history entries not yet stored, in one
// transaction.
func (r *ticketRepository) Save(ctx context.Context, ticket domain.Ticket) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const upsert = `
        INSERT INTO tickets (id, title, description, type, priority, status, created_by, assigned_to,
                             department, created_at, updated_at, sla_deadline)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        ON CONFLICT (id) DO UPDATE SET
            title=EXCLUDED.title, description=EXCLUDED.description, type=EXCLUDED.type,
            priority=EXCLUDED.priority, status=EXCLUDED.status, assigned_to=EXCLUDED.assigned_to,
            department=EXCLUDED.department, updated_at=EXCLUDED.updated_at`
	if _, err := tx.Exec(ctx, upsert,
		ticket.ID,
		ticket.Title,
		ticket.Description,
		string(ticket.Type),
		string(ticket.Priority),
		string(ticket.Status),
		ticket.CreatedBy,
		ticket.AssignedTo,
		string(ticket.Department),
		ticket.CreatedAt,
		ticket.UpdatedAt,
		ticket.SLADeadline,
	); err != nil {
		return fmt.Errorf("upsert ticket %s: %w", ticket.ID, err)
	}

	if err := appendHistory(ctx, tx, ticket.ID, ticket.History); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (domain.Ticket, error) {
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Ticket{}, ErrNotFound
	}
	return ticket, err
}

func scanTicket(row pgx.Row) (domain.Ticket, error) {
	var ticket domain.Ticket
	err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Type,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CreatedBy,
		&ticket.AssignedTo,
		&ticket.Department,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.SLADeadline,
	)
	return ticket, err
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	defer rows.Close()
	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
