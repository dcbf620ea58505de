package main

import (
	"context"
	"sync"

	"group-broadcast-gateway/internal/domain/ports/adapter"
)

// lateMessenger breaks the construction cycle between the broadcast use
// case, the dispatcher and the bot that needs the dispatcher.
type lateMessenger struct {
	mu    sync.RWMutex
	inner adapter.Messenger
}

func (m *lateMessenger) set(inner adapter.Messenger) {
	m.mu.Lock()
	m.inner = inner
	m.mu.Unlock()
}

func (m *lateMessenger) SendText(ctx context.Context, targetID, text string) error {
	m.mu.RLock()
	inner := m.inner
	m.mu.RUnlock()
	return inner.SendText(ctx, targetID, text)
}
