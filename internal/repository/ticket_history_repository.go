package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-governance/internal/domain"
)

// History rows are append-only; seq keeps the ticket's original order.
const historyColumns = `id, ticket_id, seq, action, actor_id, details, created_at`

// historyRow is a history entry with its position in the ticket's sequence.
type historyRow struct {
	seq   int
	entry domain.TicketHistory
}

// pendingHistory returns the entries after the first stored ones. History only grows,
// so the stored rows are always a prefix of entries.
func pendingHistory(entries []domain.TicketHistory, stored int) []historyRow {
	if stored < 0 {
		stored = 0
	}
	if stored >= len(entries) {
		return nil
	}
	rows := make([]historyRow, 0, len(entries)-stored)
	for seq := stored; seq < len(entries); seq++ {
		rows = append(rows, historyRow{seq: seq, entry: entries[seq]})
	}
	return rows
}

func appendHistory(ctx context.Context, tx pgx.Tx, ticketID string, entries []domain.TicketHistory) error {
	if len(entries) == 0 {
		return nil
	}
	var stored int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM ticket_history WHERE ticket_id=$1`, ticketID).Scan(&stored); err != nil {
		return fmt.Errorf("count history for %s: %w", ticketID, err)
	}
	rows := pendingHistory(entries, stored)
	if len(rows) == 0 {
		return nil
	}

	const insert = `
        INSERT INTO ticket_history (id, ticket_id, seq, action, actor_id, details, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (ticket_id, seq) DO NOTHING`

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(insert, row.entry.ID, ticketID, row.seq, string(row.entry.Action), row.entry.ActorID, row.entry.Details, row.entry.Timestamp)
	}
	results := tx.SendBatch(ctx, batch)
	for range rows {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("append history for %s: %w", ticketID, err)
		}
	}
	return results.Close()
}

func listHistoryByTicket(ctx context.Context, pool *pgxpool.Pool, ticketID string) ([]domain.TicketHistory, error) {
	query := `SELECT ` + historyColumns + ` FROM ticket_history WHERE ticket_id=$1 ORDER BY seq ASC`
	rows, err := pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	grouped, err := scanHistory(rows)
	if err != nil {
		return nil, err
	}
	if entries := grouped[ticketID]; entries != nil {
		return entries, nil
	}
	return []domain.TicketHistory{}, nil
}

func listAllHistory(ctx context.Context, pool *pgxpool.Pool) (map[string][]domain.TicketHistory, error) {
	query := `SELECT ` + historyColumns + ` FROM ticket_history ORDER BY ticket_id ASC, seq ASC`
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return scanHistory(rows)
}

func scanHistory(rows pgx.Rows) (map[string][]domain.TicketHistory, error) {
	defer rows.Close()
	grouped := make(map[string][]domain.TicketHistory)
	for rows.Next() {
		var (
			entry    domain.TicketHistory
			ticketID string
			seq      int
		)
		if err := rows.Scan(
			&entry.ID,
			&ticketID,
			&seq,
			&entry.Action,
			&entry.ActorID,
			&entry.Details,
			&entry.Timestamp,
		); err != nil {
			return nil, err
		}
		grouped[ticketID] = append(grouped[ticketID], entry)
	}
	return grouped, rows.Err()
}
