package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"group-broadcast-gateway/internal/application"
	"group-broadcast-gateway/internal/domain"
	"group-broadcast-gateway/internal/domain/ports/adapter"
	"group-broadcast-gateway/internal/infra/logging"
	"group-broadcast-gateway/internal/infra/metrics"
	"group-broadcast-gateway/internal/infra/session"
)

var _ adapter.Messenger = (*Bot)(nil)

var ErrNotConnected = fmt.Errorf("telegram session not connected: %w", domain.ErrTransport)

// botAPI is the part of *tgbotapi.BotAPI the gateway calls.
type botAPI interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Handler interface {
	Handle(ctx context.Context, msg application.InboundMessage) string
}

type RateLimiter interface {
	Allow(ctx context.Context, phone string) (bool, error)
}

type OffsetStore interface {
	Load(ctx context.Context) (int, error)
	Save(ctx context.Context, offset int) error
}

type Options struct {
	Token       string
	PollTimeout time.Duration
	SendRate    float64
	SendBurst   int
	Backoff     session.Backoff
	// RateLimitedReply is sent to private chats when a sender is throttled.
	RateLimitedReply string
	Dev              bool
}

// Bot is the single Telegram session: it long-polls updates, feeds them to
// the handler one at a time and sends replies and broadcasts.
type Bot struct {
	opts    Options
	handler Handler
	tracker *session.Tracker
	limiter RateLimiter
	offsets OffsetStore
	send    *rate.Limiter

	mu  sync.RWMutex
	api botAPI

	newAPI func(token string) (botAPI, error)
	sleep  func(ctx context.Context, d time.Duration) error
	log    *zerolog.Logger
}

// NewBot does not contact Telegram; Run connects. limiter and offsets may be nil.
func NewBot(opts Options, handler Handler, tracker *session.Tracker, limiter RateLimiter, offsets OffsetStore, logger *zerolog.Logger) (*Bot, error) {
	if opts.Token == "" {
		return nil, errors.New("telegram token is empty")
	}
	if handler == nil || tracker == nil {
		return nil, errors.New("telegram bot needs a handler and a session tracker")
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 60 * time.Second
	}
	limit := rate.Inf
	if opts.SendRate > 0 {
		limit = rate.Limit(opts.SendRate)
	}
	burst := opts.SendBurst
	if burst <= 0 {
		burst = 1
	}
	l := logger.With().Str("component", "telegram").Logger()
	return &Bot{
		opts:    opts,
		handler: handler,
		tracker: tracker,
		limiter: limiter,
		offsets: offsets,
		send:    rate.NewLimiter(limit, burst),
		newAPI:  dial,
		sleep:   sleepCtx,
		log:     &l,
	}, nil
}

func dial(token string) (botAPI, error) {
	return tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: 90 * time.Second})
}

// Run polls until ctx is cancelled. Rejected credentials park the session
// in PairingRequired until ctx ends; running out of reconnect attempts
// returns an error.
func (b *Bot) Run(ctx context.Context) error {
	offset := b.loadOffset(ctx)
	timeout := int(b.opts.PollTimeout / time.Second)

	for {
		if ctx.Err() != nil {
			return nil
		}

		api, err := b.connect()
		var updates []tgbotapi.Update
		if err == nil {
			cfg := tgbotapi.NewUpdate(offset)
			cfg.Timeout = timeout
			cfg.AllowedUpdates = []string{"message"}
			updates, err = api.GetUpdates(cfg)
		}

		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.dropAPI()
			b.tracker.Disconnected()
			if isUnauthorized(err) {
				_ = b.tracker.PairingRequired()
				b.log.Error().Err(err).Msg("telegram rejected the bot token; replace it and restart")
				<-ctx.Done()
				return nil
			}
			retry := b.tracker.Attempts() - 1
			if b.opts.Backoff.Exhausted(retry) {
				return fmt.Errorf("telegram: giving up after %d attempts: %w", retry, err)
			}
			delay := b.opts.Backoff.Delay(retry)
			b.log.Warn().Err(err).Int("attempt", retry+1).Dur("retry_in", delay).Msg("telegram poll failed")
			if err := b.sleep(ctx, delay); err != nil {
				return nil
			}
			continue
		}

		_ = b.tracker.Connected()
		if len(updates) == 0 {
			continue
		}
		for _, up := range updates {
			if up.UpdateID >= offset {
				offset = up.UpdateID + 1
			}
			b.handleUpdate(ctx, up)
		}
		b.saveOffset(ctx, offset)
	}
}

// SendText delivers text to a chat id. It waits on the shared outbound limiter.
func (b *Bot) SendText(ctx context.Context, targetID, text string) error {
	chatID, err := strconv.ParseInt(targetID, 10, 64)
	if err != nil {
		return fmt.Errorf("chat id %q: %w", targetID, domain.ErrInvalidArgument)
	}
	api := b.currentAPI()
	if api == nil {
		metrics.IncOutbound("not_connected")
		return ErrNotConnected
	}
	if err := b.send.Wait(ctx); err != nil {
		metrics.IncOutbound("cancelled")
		return fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := api.Send(msg); err != nil {
		metrics.IncOutbound("error")
		return fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	metrics.IncOutbound("ok")
	b.tracker.Touch()
	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, up tgbotapi.Update) {
	in, ok := toInbound(up)
	if !ok {
		return
	}
	b.tracker.Touch()

	ctx = logging.WithTraceID(ctx, uuid.NewString())
	log := logging.With(ctx, b.log)

	if b.limiter != nil {
		allowed, err := b.limiter.Allow(ctx, in.SenderID)
		if err != nil {
			log.Warn().Err(err).Msg("rate limiter unavailable, allowing message")
		} else if !allowed {
			metrics.IncRateLimited()
			if !in.IsGroup && b.opts.RateLimitedReply != "" {
				b.reply(ctx, in.ChatID, b.opts.RateLimitedReply)
			}
			return
		}
	}

	reply := b.handler.Handle(ctx, in)
	if reply == "" {
		return
	}
	b.reply(ctx, in.ChatID, reply)
}

func (b *Bot) reply(ctx context.Context, chatID, text string) {
	if err := b.SendText(ctx, chatID, text); err != nil {
		logging.With(ctx, b.log).Warn().Err(err).Str("chat_id", chatID).Msg("failed to send reply")
	}
}

func (b *Bot) connect() (botAPI, error) {
	if api := b.currentAPI(); api != nil {
		return api, nil
	}
	api, err := b.newAPI(b.opts.Token)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.api = api
	b.mu.Unlock()
	return api, nil
}

func (b *Bot) currentAPI() botAPI {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.api
}

func (b *Bot) dropAPI() {
	b.mu.Lock()
	b.api = nil
	b.mu.Unlock()
}

func (b *Bot) loadOffset(ctx context.Context) int {
	if b.offsets == nil {
		return 0
	}
	n, err := b.offsets.Load(ctx)
	if err != nil {
		b.log.Warn().Err(err).Msg("failed to load update offset, starting from the queue head")
		return 0
	}
	return n
}

func (b *Bot) saveOffset(ctx context.Context, offset int) {
	if b.offsets == nil {
		return
	}
	if err := b.offsets.Save(ctx, offset); err != nil {
		b.log.Warn().Err(err).Int("offset", offset).Msg("failed to persist update offset")
	}
}

func isUnauthorized(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusUnauthorized
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
