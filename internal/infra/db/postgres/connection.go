package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
)

// NewPgxPool connects with bounded retries. The caller treats a returned
// error as fatal.
func NewPgxPool(ctx context.Context, url string, maxConns int32, retries int, backoff time.Duration, logger *zerolog.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if retries <= 0 {
		retries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		pool, err := connectOnce(ctx, cfg)
		if err == nil {
			return pool, nil
		}
		lastErr = err
		logger.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", retries).Msg("postgres not reachable")

		if attempt == retries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff * time.Duration(attempt)):
		}
	}
	return nil, fmt.Errorf("postgres unreachable after %d attempts: %w", retries, lastErr)
}

func connectOnce(ctx context.Context, cfg *pgxpool.Config) (*pgxpool.Pool, error) {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.ConnectConfig(cctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(cctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
