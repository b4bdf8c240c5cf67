package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/sla-governance/internal/domain"
)

// SQLiteSchema creates the embedded store tables. History is kept as a JSON column on
// the ticket row.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    email         TEXT NOT NULL UNIQUE COLLATE NOCASE,
    password_hash TEXT NOT NULL DEFAULT '',
    role          TEXT NOT NULL,
    department    TEXT NOT NULL,
    avatar        TEXT NOT NULL DEFAULT '',
    created_at    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS tickets (
    id           TEXT PRIMARY KEY,
    title        TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    type         TEXT NOT NULL,
    priority     TEXT NOT NULL,
    status       TEXT NOT NULL,
    created_by   TEXT NOT NULL,
    assigned_to  TEXT NULL,
    department   TEXT NOT NULL DEFAULT '',
    created_at   TEXT NOT NULL,
    updated_at   TEXT NOT NULL,
    sla_deadline TEXT NOT NULL,
    history      TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS tickets_created_idx ON tickets (created_at, id);
`

// Fixed width so stored values sort lexically.
const sqliteTime = "2006-01-02T15:04:05.000000000Z07:00"

type historyRecord struct {
	ID        string               `json:"id"`
	Action    domain.HistoryAction `json:"action"`
	Timestamp time.Time            `json:"timestamp"`
	ActorID   string               `json:"actor_id"`
	Details   string               `json:"details,omitempty"`
}

type sqliteTicketRepository struct {
	db *sql.DB
}

// NewSQLiteTicketRepository returns a ticket store over an open SQLite handle whose
// schema was already applied.
func NewSQLiteTicketRepository(db *sql.DB) TicketRepository {
	return &sqliteTicketRepository{db: db}
}

const sqliteTicketColumns = `id, title, description, type, priority, status, created_by, assigned_to,
    department, created_at, updated_at, sla_deadline, history`

func (r *sqliteTicketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sqliteTicketColumns+` FROM tickets ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanSQLiteTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func (r *sqliteTicketRepository) Get(ctx context.Context, id string) (domain.Ticket, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sqliteTicketColumns+` FROM tickets WHERE id = ?`, id)
	ticket, err := scanSQLiteTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Ticket{}, ErrNotFound
	}
	return ticket, err
}

func (r *sqliteTicketRepository) Save(ctx context.Context, ticket domain.Ticket) error {
	records := make([]historyRecord, 0, len(ticket.History))
	for _, entry := range ticket.History {
		records = append(records, historyRecord(entry))
	}
	history, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode history for %s: %w", ticket.ID, err)
	}

	var assignee sql.NullString
	if ticket.AssignedTo != nil {
		assignee = sql.NullString{String: *ticket.AssignedTo, Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `
        INSERT INTO tickets (`+sqliteTicketColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            title=excluded.title, description=excluded.description, type=excluded.type,
            priority=excluded.priority, status=excluded.status, assigned_to=excluded.assigned_to,
            department=excluded.department, updated_at=excluded.updated_at, history=excluded.history`,
		ticket.ID,
		ticket.Title,
		ticket.Description,
		string(ticket.Type),
		string(ticket.Priority),
		string(ticket.Status),
		ticket.CreatedBy,
		assignee,
		string(ticket.Department),
		formatTime(ticket.CreatedAt),
		formatTime(ticket.UpdatedAt),
		formatTime(ticket.SLADeadline),
		string(history),
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTicket(row rowScanner) (domain.Ticket, error) {
	var (
		ticket                         domain.Ticket
		typ, priority, status, dept    string
		assignee                       sql.NullString
		createdAt, updatedAt, deadline string
		history                        string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&typ,
		&priority,
		&status,
		&ticket.CreatedBy,
		&assignee,
		&dept,
		&createdAt,
		&updatedAt,
		&deadline,
		&history,
	); err != nil {
		return domain.Ticket{}, err
	}
	ticket.Type = domain.TicketType(typ)
	ticket.Priority = domain.TicketPriority(priority)
	ticket.Status = domain.TicketStatus(status)
	ticket.Department = domain.Department(dept)
	if assignee.Valid {
		value := assignee.String
		ticket.AssignedTo = &value
	}

	var err error
	if ticket.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Ticket{}, err
	}
	if ticket.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Ticket{}, err
	}
	if ticket.SLADeadline, err = parseTime(deadline); err != nil {
		return domain.Ticket{}, err
	}

	var records []historyRecord
	if err := json.Unmarshal([]byte(history), &records); err != nil {
		return domain.Ticket{}, fmt.Errorf("decode history for %s: %w", ticket.ID, err)
	}
	ticket.History = make([]domain.TicketHistory, 0, len(records))
	for _, record := range records {
		ticket.History = append(ticket.History, domain.TicketHistory(record))
	}
	return ticket, nil
}

type sqliteUserRepository struct {
	db *sql.DB
}

// NewSQLiteUserRepository returns a user store over an open SQLite handle.
func NewSQLiteUserRepository(db *sql.DB) UserRepository {
	return &sqliteUserRepository{db: db}
}

const sqliteUserColumns = `id, name, email, password_hash, role, department, avatar, created_at`

func (r *sqliteUserRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sqliteUserColumns+` FROM users ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.User{}
	for rows.Next() {
		user, err := scanSQLiteUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}

func (r *sqliteUserRepository) Get(ctx context.Context, id string) (domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+sqliteUserColumns+` FROM users WHERE id = ?`, id)
}

func (r *sqliteUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+sqliteUserColumns+` FROM users WHERE email = ? COLLATE NOCASE`, email)
}

func (r *sqliteUserRepository) Save(ctx context.Context, user domain.User) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO users (`+sqliteUserColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name=excluded.name, email=excluded.email, password_hash=excluded.password_hash,
            role=excluded.role, department=excluded.department, avatar=excluded.avatar`,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		string(user.Department),
		user.Avatar,
		formatTime(user.CreatedAt),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
		return ErrDuplicateEmail
	}
	return err
}

func (r *sqliteUserRepository) fetchSingle(ctx context.Context, query string, arg any) (domain.User, error) {
	user, err := scanSQLiteUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	return user, err
}

func scanSQLiteUser(row rowScanner) (domain.User, error) {
	var (
		user             domain.User
		role, department string
		createdAt        string
	)
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&role,
		&department,
		&user.Avatar,
		&createdAt,
	); err != nil {
		return domain.User{}, err
	}
	user.Role = domain.Role(role)
	user.Department = domain.Department(department)
	var err error
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTime)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(sqliteTime, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", value, err)
	}
	return t, nil
}
