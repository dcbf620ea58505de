package usecase

import (
	"context"
	"errors"
	"time"

	"group-broadcast-gateway/internal/domain/model"
	"group-broadcast-gateway/internal/domain/ports/repository"
	"group-broadcast-gateway/internal/infra/logging"

	"github.com/rs/zerolog"
)

var _ MaintenanceUseCase = (*maintenanceUC)(nil)

// MaintenanceUseCase holds the periodic cleanup jobs. Each job is a single
// statement so it never holds locks across rows; concurrent writers win.
type MaintenanceUseCase interface {
	PurgeExpiredCodes(ctx context.Context) (int64, error)
	DeactivateExpiredUsers(ctx context.Context) (int64, error)
	// Run executes both jobs. A failure in one does not skip the other.
	Run(ctx context.Context) (model.MaintenanceReport, error)
}

type maintenanceUC struct {
	codes  repository.ActivationCodeRepository
	users  repository.UserRepository
	window time.Duration
	now    func() time.Time
	log    *zerolog.Logger
}

func NewMaintenanceUseCase(codes repository.ActivationCodeRepository, users repository.UserRepository, window time.Duration, logger *zerolog.Logger) *maintenanceUC {
	return &maintenanceUC{codes: codes, users: users, window: window, now: time.Now, log: logger}
}

func (m *maintenanceUC) PurgeExpiredCodes(ctx context.Context) (int64, error) {
	defer logging.TraceDuration(m.log, "MaintenanceUC.PurgeExpiredCodes")()
	return m.codes.DeleteExpired(ctx, repository.NoTX, m.now())
}

func (m *maintenanceUC) DeactivateExpiredUsers(ctx context.Context) (int64, error) {
	defer logging.TraceDuration(m.log, "MaintenanceUC.DeactivateExpiredUsers")()
	now := m.now()
	return m.users.DeactivateExpired(ctx, repository.NoTX, now.Add(-m.window), now)
}

func (m *maintenanceUC) Run(ctx context.Context) (model.MaintenanceReport, error) {
	var rep model.MaintenanceReport

	purged, perr := m.PurgeExpiredCodes(ctx)
	if perr != nil {
		m.log.Error().Err(perr).Msg("purge expired codes failed")
	}
	rep.CodesPurged = purged

	deactivated, derr := m.DeactivateExpiredUsers(ctx)
	if derr != nil {
		m.log.Error().Err(derr).Msg("deactivate expired users failed")
	}
	rep.UsersDeactivated = deactivated

	return rep, errors.Join(perr, derr)
}
