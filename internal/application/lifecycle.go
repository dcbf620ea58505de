package application

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"group-broadcast-gateway/internal/domain/model"
	"group-broadcast-gateway/internal/domain/ports/adapter"
	"group-broadcast-gateway/internal/infra/session"
)

// Lifecycle tells the admin about session changes and shutdown.
type Lifecycle struct {
	messenger adapter.Messenger
	adminID   string
	tr        Translator
	timeout   time.Duration
	log       *zerolog.Logger
}

func NewLifecycle(messenger adapter.Messenger, adminID string, tr Translator, logger *zerolog.Logger) *Lifecycle {
	l := logger.With().Str("component", "lifecycle").Logger()
	return &Lifecycle{
		messenger: messenger,
		adminID:   adminID,
		tr:        tr,
		timeout:   10 * time.Second,
		log:       &l,
	}
}

// OnTransition is registered with session.Tracker.
func (l *Lifecycle) OnTransition(t session.Transition) {
	switch t.To {
	case model.SessionConnected:
		text := l.tr.T("admin_online")
		if t.Reconnected {
			text = l.tr.T("admin_reconnected", t.Attempts)
		}
		l.log.Info().Str("from", string(t.From)).Int("attempts", t.Attempts).Msg("session connected")
		l.notify(context.Background(), text)
	case model.SessionPairingRequired:
		l.log.Error().Str("from", string(t.From)).Msg("transport credentials rejected, pairing required")
	case model.SessionDisconnected:
		l.log.Warn().Str("from", string(t.From)).Int("attempts", t.Attempts).Msg("session disconnected")
	}
}

// NotifyShutdown sends the shutdown notice. It must run before the
// transport is closed.
func (l *Lifecycle) NotifyShutdown(ctx context.Context) error {
	return l.notify(ctx, l.tr.T("admin_shutdown"))
}

func (l *Lifecycle) notify(ctx context.Context, text string) error {
	if l.adminID == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	if err := l.messenger.SendText(ctx, l.adminID, text); err != nil {
		l.log.Warn().Err(err).Msg("failed to notify admin")
		return err
	}
	return nil
}
