//go:build !integration

package application_test

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"group-broadcast-gateway/internal/domain/model"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type mockActivationUC struct {
	issueFunc  func(ctx context.Context, phone string) (*model.ActivationCode, error)
	redeemFunc func(ctx context.Context, phone, input string) (*model.User, error)
}

func (m *mockActivationUC) Issue(ctx context.Context, phone string) (*model.ActivationCode, error) {
	return m.issueFunc(ctx, phone)
}

func (m *mockActivationUC) Redeem(ctx context.Context, phone, input string) (*model.User, error) {
	return m.redeemFunc(ctx, phone, input)
}

type mockAuthUC struct {
	authorized map[string]bool
	err        error
	calls      int
}

func (m *mockAuthUC) IsAuthorized(ctx context.Context, phone string) (bool, error) {
	m.calls++
	if m.err != nil {
		return false, m.err
	}
	return m.authorized[phone], nil
}

type mockUserUC struct {
	statusFunc func(ctx context.Context, phone string) (*model.UserStatus, error)
}

func (m *mockUserUC) Status(ctx context.Context, phone string) (*model.UserStatus, error) {
	return m.statusFunc(ctx, phone)
}

type mockGroupUC struct {
	registerFunc func(ctx context.Context, groupID, name, owner string) (*model.Group, bool, error)
}

func (m *mockGroupUC) Register(ctx context.Context, groupID, name, owner string) (*model.Group, bool, error) {
	return m.registerFunc(ctx, groupID, name, owner)
}

func (m *mockGroupUC) ListByOwner(ctx context.Context, owner string) ([]*model.Group, error) {
	return nil, nil
}

func (m *mockGroupUC) CountByOwner(ctx context.Context, owner string) (int, error) {
	return 0, nil
}

type mockBroadcastUC struct {
	startFunc func(ctx context.Context, sender, senderName, text string, done func(*model.BroadcastResult, error)) (*model.BroadcastJob, error)
}

func (m *mockBroadcastUC) Broadcast(ctx context.Context, sender, senderName, text string) (*model.BroadcastResult, error) {
	return nil, nil
}

func (m *mockBroadcastUC) Start(ctx context.Context, sender, senderName, text string, done func(*model.BroadcastResult, error)) (*model.BroadcastJob, error) {
	return m.startFunc(ctx, sender, senderName, text, done)
}

type mockStatsUC struct {
	stats *model.Stats
	err   error
}

func (m *mockStatsUC) Totals(ctx context.Context) (*model.Stats, error) {
	return m.stats, m.err
}

type sentMessage struct {
	Target string
	Text   string
}

type mockMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (m *mockMessenger) SendText(ctx context.Context, targetID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{Target: targetID, Text: text})
	return m.err
}

func (m *mockMessenger) Sent() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}
