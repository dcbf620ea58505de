//go:build !integration

package telegram

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"group-broadcast-gateway/internal/application"
	"group-broadcast-gateway/internal/domain"
	"group-broadcast-gateway/internal/domain/model"
	"group-broadcast-gateway/internal/infra/session"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type pollResult struct {
	updates []tgbotapi.Update
	err     error
}

// fakeAPI replays polls in order and cancels the run once they are used up.
type fakeAPI struct {
	mu      sync.Mutex
	polls   []pollResult
	offsets []int
	sent    []tgbotapi.MessageConfig
	sendErr error
	done    context.CancelFunc
}

func (f *fakeAPI) GetUpdates(cfg tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offsets = append(f.offsets, cfg.Offset)
	if len(f.polls) == 0 {
		f.done()
		return nil, nil
	}
	p := f.polls[0]
	f.polls = f.polls[1:]
	return p.updates, p.err
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

type handlerFunc func(ctx context.Context, msg application.InboundMessage) string

func (h handlerFunc) Handle(ctx context.Context, msg application.InboundMessage) string {
	return h(ctx, msg)
}

type memOffsets struct{ n int }

func (m *memOffsets) Load(ctx context.Context) (int, error) { return m.n, nil }
func (m *memOffsets) Save(ctx context.Context, n int) error { m.n = n; return nil }

type denyAll struct{}

func (denyAll) Allow(ctx context.Context, phone string) (bool, error) { return false, nil }

func textUpdate(id int, from, chat int64, chatType, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: from, FirstName: "Sam"},
			Chat: &tgbotapi.Chat{ID: chat, Type: chatType, Title: "Team"},
			Text: text,
		},
	}
}

func newTestBot(t *testing.T, api *fakeAPI, h Handler, limiter RateLimiter, offsets OffsetStore) (*Bot, *session.Tracker) {
	t.Helper()
	tracker := session.NewTracker()
	b, err := NewBot(Options{
		Token:            "token",
		Backoff:          session.Backoff{Initial: time.Millisecond, Max: time.Millisecond, MaxAttempts: 3},
		RateLimitedReply: "slow down",
	}, h, tracker, limiter, offsets, newTestLogger())
	if err != nil {
		t.Fatalf("NewBot failed: %v", err)
	}
	b.newAPI = func(string) (botAPI, error) { return api, nil }
	b.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return b, tracker
}

func TestBot_RunDispatchesAndReplies(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := &fakeAPI{done: cancel, polls: []pollResult{
		{updates: []tgbotapi.Update{
			textUpdate(10, 42, 42, "private", "/status"),
			textUpdate(11, 42, -100, "supergroup", "/addgroup"),
		}},
	}}
	var got []application.InboundMessage
	h := handlerFunc(func(ctx context.Context, msg application.InboundMessage) string {
		got = append(got, msg)
		return "reply to " + msg.Text
	})
	offsets := &memOffsets{n: 7}
	b, tracker := newTestBot(t, api, h, nil, offsets)

	if err := b.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 dispatched messages, but got %d", len(got))
	}
	if got[0].SenderID != "42" || got[0].IsGroup {
		t.Fatalf("unexpected private message %+v", got[0])
	}
	if got[1].ChatID != "-100" || !got[1].IsGroup || got[1].ChatTitle != "Team" || got[1].SenderName != "Sam" {
		t.Fatalf("unexpected group message %+v", got[1])
	}
	if len(api.sent) != 2 || api.sent[1].ChatID != -100 || api.sent[1].Text != "reply to /addgroup" {
		t.Fatalf("unexpected sends %+v", api.sent)
	}
	if api.offsets[0] != 7 || api.offsets[1] != 12 {
		t.Fatalf("expected offsets 7 then 12, but got %v", api.offsets)
	}
	if offsets.n != 12 {
		t.Fatalf("expected offset 12 to be persisted, but got %d", offsets.n)
	}
	if s := tracker.Snapshot(); !s.Connected() || s.LastActivity.IsZero() {
		t.Fatalf("expected a connected session with activity, but got %+v", s)
	}
}

func TestBot_RunReconnectsThenGivesUp(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	boom := errors.New("network down")
	api := &fakeAPI{done: cancel, polls: []pollResult{
		{err: boom}, {}, {err: boom}, {err: boom}, {err: boom}, {err: boom},
	}}
	b, tracker := newTestBot(t, api, handlerFunc(func(context.Context, application.InboundMessage) string { return "" }), nil, nil)
	b.sleep = func(context.Context, time.Duration) error { return nil }

	var states []model.SessionState
	tracker.OnTransition(func(tr session.Transition) { states = append(states, tr.To) })

	err := b.Run(ctx)
	if !errors.Is(err, boom) {
		t.Fatalf("expected Run to give up with the poll error, but got %v", err)
	}
	want := []model.SessionState{model.SessionConnected, model.SessionDisconnected}
	if len(states) != len(want) || states[0] != want[0] || states[1] != want[1] {
		t.Fatalf("expected %v, but got %v", want, states)
	}
	if n := tracker.Attempts(); n != 4 {
		t.Fatalf("expected 4 failed attempts, but got %d", n)
	}
}

func TestBot_RunParksOnUnauthorized(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	api := &fakeAPI{done: cancel, polls: []pollResult{
		{err: &tgbotapi.Error{Code: 401, Message: "Unauthorized"}},
	}}
	b, tracker := newTestBot(t, api, handlerFunc(func(context.Context, application.InboundMessage) string { return "" }), nil, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- b.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for tracker.Snapshot().State != model.SessionPairingRequired {
		select {
		case <-deadline:
			t.Fatalf("expected pairing_required, but got %s", tracker.Snapshot().State)
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("expected a clean stop, but got %v", err)
	}
}

func TestBot_RateLimitedSenderIsDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	api := &fakeAPI{done: cancel, polls: []pollResult{
		{updates: []tgbotapi.Update{
			textUpdate(1, 42, 42, "private", "/status"),
			textUpdate(2, 42, -100, "group", "/status"),
		}},
	}}
	called := false
	h := handlerFunc(func(context.Context, application.InboundMessage) string { called = true; return "x" })
	b, _ := newTestBot(t, api, h, denyAll{}, nil)

	_ = b.Run(ctx)
	if called {
		t.Fatalf("expected the handler not to run for a throttled sender")
	}
	if len(api.sent) != 1 || api.sent[0].Text != "slow down" || api.sent[0].ChatID != 42 {
		t.Fatalf("expected one throttle notice in the private chat, but got %+v", api.sent)
	}
}

func TestBot_SendText(t *testing.T) {
	api := &fakeAPI{}
	b, _ := newTestBot(t, api, handlerFunc(func(context.Context, application.InboundMessage) string { return "" }), nil, nil)
	ctx := context.Background()

	if err := b.SendText(ctx, "-100", "hi"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected before Run, but got %v", err)
	}
	if _, err := b.connect(); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if err := b.SendText(ctx, "not-a-number", "hi"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, but got %v", err)
	}
	if err := b.SendText(ctx, "-100", "hi"); err != nil {
		t.Fatalf("SendText failed: %v", err)
	}
	api.sendErr = errors.New("chat not found")
	if err := b.SendText(ctx, "-100", "hi"); !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected ErrTransport, but got %v", err)
	}
}

func TestToInbound(t *testing.T) {
	tests := []struct {
		name string
		up   tgbotapi.Update
		ok   bool
	}{
		{"text message", textUpdate(1, 5, 5, "private", "hi"), true},
		{"no message", tgbotapi.Update{UpdateID: 2}, false},
		{"blank text", textUpdate(3, 5, 5, "private", "  "), false},
		{"from a bot", func() tgbotapi.Update {
			u := textUpdate(4, 5, 5, "private", "hi")
			u.Message.From.IsBot = true
			return u
		}(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := toInbound(tt.up); ok != tt.ok {
				t.Fatalf("expected ok=%v, but got %v", tt.ok, ok)
			}
		})
	}

	if got := displayName(&tgbotapi.User{ID: 9, UserName: "sam"}); got != "@sam" {
		t.Fatalf("expected @sam, but got %q", got)
	}
}
