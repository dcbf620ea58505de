package adapter

import (
	"context"

	"group-broadcast-gateway/internal/domain/model"
)

// Messenger delivers text to a chat or a user. targetID is the transport's
// identifier rendered as a string.
type Messenger interface {
	SendText(ctx context.Context, targetID, text string) error
}

// SessionStatus exposes the transport session without allowing mutation.
type SessionStatus interface {
	Snapshot() model.SessionSnapshot
}
