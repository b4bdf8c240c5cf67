package persistence

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-governance/internal/config"
	"github.com/spec-kit/sla-governance/internal/repository"
)

// Stores is the ticket and user persistence selected by configuration.
type Stores struct {
	Driver  config.StoreDriver
	Tickets repository.TicketRepository
	Users   repository.UserRepository

	postgres *Postgres
	sqlite   *SQLite
}

// OpenStores connects the configured backend. Postgres migrations run when enabled.
func OpenStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Stores, error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		if cfg.Postgres.DSN == "" {
			return nil, errors.New("STORE_DRIVER=postgres requires POSTGRES_DSN")
		}
		pg, err := OpenPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.RunMigrations {
			if err := RunMigrations(ctx, pg.Pool, MigrationFiles(cfg.Store.MigrationsDir), logger); err != nil {
				pg.Close()
				return nil, err
			}
		}
		tickets, users := pg.Repositories()
		return &Stores{
			Driver:   config.StorePostgres,
			Tickets:  tickets,
			Users:    users,
			postgres: pg,
		}, nil
	case config.StoreSQLite:
		db, err := OpenSQLite(ctx, cfg.Store.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return &Stores{
			Driver:  config.StoreSQLite,
			Tickets: repository.NewSQLiteTicketRepository(db.DB),
			Users:   repository.NewSQLiteUserRepository(db.DB),
			sqlite:  db,
		}, nil
	case config.StoreMemory, "":
		logger.Warn("using in-memory store; data is lost on restart")
		return &Stores{
			Driver:  config.StoreMemory,
			Tickets: repository.NewMemoryTicketRepository(),
			Users:   repository.NewMemoryUserRepository(),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

// Ping checks the backing database; the memory store is always reachable.
func (s *Stores) Ping(ctx context.Context) error {
	switch {
	case s.postgres != nil:
		return s.postgres.Ping(ctx)
	case s.sqlite != nil:
		return s.sqlite.Ping(ctx)
	}
	return nil
}

// Close releases database handles.
func (s *Stores) Close() {
	if s == nil {
		return
	}
	s.postgres.Close()
	s.sqlite.Close()
}
