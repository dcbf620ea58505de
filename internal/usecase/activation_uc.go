package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"group-broadcast-gateway/internal/domain"
	"group-broadcast-gateway/internal/domain/model"
	"group-broadcast-gateway/internal/domain/ports/repository"
	"group-broadcast-gateway/internal/infra/logging"
	"group-broadcast-gateway/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ ActivationUseCase = (*activationUC)(nil)

// ActivationUseCase issues one-time codes and redeems them.
type ActivationUseCase interface {
	// Issue replaces any outstanding code for phone with a fresh one.
	Issue(ctx context.Context, phone string) (*model.ActivationCode, error)
	// Redeem returns the activated user, or ErrInvalidCode for every
	// rejection cause so callers cannot tell them apart.
	Redeem(ctx context.Context, phone, input string) (*model.User, error)
}

type activationUC struct {
	codes   repository.ActivationCodeRepository
	users   repository.UserRepository
	tm      repository.TransactionManager
	codeTTL time.Duration

	now      func() time.Time
	generate func() (string, error)
	log      *zerolog.Logger
}

func NewActivationUseCase(
	codes repository.ActivationCodeRepository,
	users repository.UserRepository,
	tm repository.TransactionManager,
	codeTTL time.Duration,
	logger *zerolog.Logger,
) *activationUC {
	return &activationUC{
		codes:    codes,
		users:    users,
		tm:       tm,
		codeTTL:  codeTTL,
		now:      time.Now,
		generate: generateActivationCode,
		log:      logger,
	}
}

func (a *activationUC) Issue(ctx context.Context, phone string) (*model.ActivationCode, error) {
	defer logging.TraceDuration(a.log, "ActivationUC.Issue")()

	raw, err := a.generate()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", domain.ErrOperationFailed)
	}
	code, err := model.NewActivationCode(phone, raw, a.now(), a.codeTTL)
	if err != nil {
		return nil, err
	}
	if err := a.codes.Upsert(ctx, repository.NoTX, code); err != nil {
		a.log.Error().Err(err).Str("phone", code.Phone).Msg("failed to store activation code")
		return nil, err
	}

	metrics.IncCodesIssued()
	a.log.Info().Str("phone", code.Phone).Time("expires_at", code.ExpiresAt).Msg("activation code issued")
	return code, nil
}

type redeemOutcome string

const (
	redeemSuccess  redeemOutcome = "success"
	redeemMissing  redeemOutcome = "missing"
	redeemMismatch redeemOutcome = "mismatch"
	redeemExpired  redeemOutcome = "expired"
)

func (a *activationUC) Redeem(ctx context.Context, phone, input string) (*model.User, error) {
	defer logging.TraceDuration(a.log, "ActivationUC.Redeem")()

	phone, err := model.NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	if model.NormalizeCode(input) == "" {
		return nil, domain.ErrInvalidArgument
	}

	var (
		outcome redeemOutcome
		user    *model.User
	)
	// Serializable so two concurrent redemptions of the same code cannot both commit.
	txOpts := repository.TxOptions{Serializable: true}
	err = a.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		now := a.now()
		code, err := a.codes.FindUnusedByPhone(ctx, tx, phone)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				outcome = redeemMissing
				return nil
			}
			return err
		}
		if code.IsExpired(now) {
			// The delete must commit, so this path returns nil.
			outcome = redeemExpired
			return a.codes.DeleteByPhone(ctx, tx, phone)
		}
		if !code.Matches(input) {
			outcome = redeemMismatch
			return nil
		}

		if err := a.codes.MarkUsed(ctx, tx, code.ID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				outcome = redeemMissing
				return nil
			}
			return err
		}

		u, err := a.users.FindByPhone(ctx, tx, phone)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			if u, err = model.NewUser("", phone, now); err != nil {
				return err
			}
		}
		u.Activate(now)
		if err := a.users.Save(ctx, tx, u); err != nil {
			return err
		}
		user = u
		outcome = redeemSuccess
		return nil
	})
	if err != nil {
		metrics.IncRedemption("error")
		a.log.Error().Err(err).Str("phone", phone).Msg("activation transaction failed")
		return nil, err
	}

	metrics.IncRedemption(string(outcome))
	if outcome != redeemSuccess {
		a.log.Info().Str("phone", phone).Str("outcome", string(outcome)).Msg("activation rejected")
		return nil, domain.ErrInvalidCode
	}
	a.log.Info().Str("phone", phone).Msg("user activated")
	return user, nil
}
