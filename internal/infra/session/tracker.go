// Package session tracks the transport's connection state.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"group-broadcast-gateway/internal/domain/model"
	"group-broadcast-gateway/internal/domain/ports/adapter"
	"group-broadcast-gateway/internal/infra/metrics"
)

var _ adapter.SessionStatus = (*Tracker)(nil)

var ErrIllegalTransition = errors.New("illegal session transition")

// Transition describes one state change. Attempts is the reconnect counter
// at the moment of the change.
type Transition struct {
	From     model.SessionState
	To       model.SessionState
	At       time.Time
	Attempts int
	// Reconnected is set when Connected follows an earlier Connected.
	Reconnected bool
}

type Observer func(Transition)

// Tracker is the single writer of session state. Observers run on the
// caller's goroutine after the lock is released.
type Tracker struct {
	mu            sync.Mutex
	state         model.SessionState
	since         time.Time
	lastActivity  time.Time
	attempts      int
	everConnected bool
	observers     []Observer

	now func() time.Time
}

func NewTracker() *Tracker {
	t := &Tracker{now: time.Now}
	t.state = model.SessionDisconnected
	t.since = t.now()
	metrics.SetSessionState(string(t.state))
	return t
}

func (t *Tracker) OnTransition(fn Observer) {
	t.mu.Lock()
	t.observers = append(t.observers, fn)
	t.mu.Unlock()
}

// Connected marks the session live and resets the reconnect counter.
// Repeating it while connected is a no-op.
func (t *Tracker) Connected() error {
	t.mu.Lock()
	if t.state == model.SessionConnected {
		t.mu.Unlock()
		return nil
	}
	tr := t.moveLocked(model.SessionConnected)
	tr.Reconnected = t.everConnected
	t.everConnected = true
	t.attempts = 0
	t.lastActivity = tr.At
	obs := t.observersLocked()
	t.mu.Unlock()

	notify(obs, tr)
	return nil
}

// Disconnected records a lost session and counts one reconnect attempt.
func (t *Tracker) Disconnected() {
	t.mu.Lock()
	t.attempts++
	metrics.IncReconnect()
	if t.state == model.SessionDisconnected {
		t.mu.Unlock()
		return
	}
	tr := t.moveLocked(model.SessionDisconnected)
	obs := t.observersLocked()
	t.mu.Unlock()

	notify(obs, tr)
}

// PairingRequired records that credentials were rejected and the operator
// must re-pair. Only a disconnected session may move here.
func (t *Tracker) PairingRequired() error {
	t.mu.Lock()
	switch t.state {
	case model.SessionPairingRequired:
		t.mu.Unlock()
		return nil
	case model.SessionConnected:
		t.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, model.SessionConnected, model.SessionPairingRequired)
	}
	tr := t.moveLocked(model.SessionPairingRequired)
	obs := t.observersLocked()
	t.mu.Unlock()

	notify(obs, tr)
	return nil
}

func (t *Tracker) Touch() {
	t.mu.Lock()
	t.lastActivity = t.now()
	t.mu.Unlock()
}

func (t *Tracker) Attempts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts
}

func (t *Tracker) Snapshot() model.SessionSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return model.SessionSnapshot{
		State:             t.state,
		Since:             t.since,
		LastActivity:      t.lastActivity,
		ReconnectAttempts: t.attempts,
	}
}

func (t *Tracker) moveLocked(to model.SessionState) Transition {
	tr := Transition{From: t.state, To: to, At: t.now(), Attempts: t.attempts}
	t.state = to
	t.since = tr.At
	metrics.SetSessionState(string(to))
	return tr
}

func (t *Tracker) observersLocked() []Observer {
	out := make([]Observer, len(t.observers))
	copy(out, t.observers)
	return out
}

func notify(obs []Observer, tr Transition) {
	for _, fn := range obs {
		fn(tr)
	}
}
