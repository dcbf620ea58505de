package sched

import (
	"context"
	"time"

	"group-broadcast-gateway/internal/domain/model"
	"group-broadcast-gateway/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Sweeper is satisfied by usecase.MaintenanceUseCase.
type Sweeper interface {
	Run(ctx context.Context) (model.MaintenanceReport, error)
}

// MaintenanceWorker purges expired codes and deactivates stale users on a
// fixed interval, starting with one sweep at startup.
type MaintenanceWorker struct {
	interval time.Duration
	sweeper  Sweeper
	log      *zerolog.Logger
}

func NewMaintenanceWorker(interval time.Duration, sweeper Sweeper, logger *zerolog.Logger) *MaintenanceWorker {
	if interval <= 0 {
		interval = 2 * time.Hour
	}
	l := logger.With().Str("component", "MaintenanceWorker").Logger()
	return &MaintenanceWorker{
		interval: interval,
		sweeper:  sweeper,
		log:      &l,
	}
}

func (w *MaintenanceWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting maintenance worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping maintenance worker")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *MaintenanceWorker) sweep(ctx context.Context) {
	rep, err := w.sweeper.Run(ctx)
	metrics.AddMaintenanceRows("purge_codes", rep.CodesPurged)
	metrics.AddMaintenanceRows("deactivate_users", rep.UsersDeactivated)
	if err != nil {
		metrics.IncMaintenanceRun("error")
		w.log.Error().Err(err).Msg("maintenance sweep error")
		return
	}
	metrics.IncMaintenanceRun("ok")
	if rep.CodesPurged > 0 || rep.UsersDeactivated > 0 {
		w.log.Info().
			Int64("codes_purged", rep.CodesPurged).
			Int64("users_deactivated", rep.UsersDeactivated).
			Msg("maintenance sweep finished")
	}
}
