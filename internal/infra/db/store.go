// Package db opens the configured entitlement store.
package db

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"group-broadcast-gateway/internal/config"
	"group-broadcast-gateway/internal/domain/ports/repository"
	"group-broadcast-gateway/internal/infra/db/migrations"
	"group-broadcast-gateway/internal/infra/db/postgres"
	"group-broadcast-gateway/internal/infra/db/sqlite"
)

// Store bundles the repositories of one backend.
type Store struct {
	Users  repository.UserRepository
	Codes  repository.ActivationCodeRepository
	Groups repository.GroupRepository
	Tx     repository.TransactionManager
	Pinger repository.Pinger

	close func()
}

func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// Open connects with bounded retries and applies the schema.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zerolog.Logger) (*Store, error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := postgres.NewPgxPool(ctx, cfg.URL, cfg.MaxConns, cfg.ConnectRetries, cfg.ConnectBackoff, logger)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := migrations.RunPostgres(cfg.URL); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		tm := postgres.NewTxManager(pool)
		return &Store{
			Users:  postgres.NewUserRepo(pool),
			Codes:  postgres.NewActivationCodeRepo(pool),
			Groups: postgres.NewGroupRepo(pool),
			Tx:     tm,
			Pinger: tm,
			close:  pool.Close,
		}, nil
	case "sqlite":
		st, err := sqlite.Open(ctx, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		return &Store{
			Users:  st.Users(),
			Codes:  st.ActivationCodes(),
			Groups: st.Groups(),
			Tx:     st,
			Pinger: st,
			close:  func() { _ = st.Close() },
		}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
