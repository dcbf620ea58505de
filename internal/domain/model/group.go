package model

import (
	"strings"
	"time"

	"group-broadcast-gateway/internal/domain"
)

// Group is a destination chat. The first subscriber to register it owns it
// for good.
type Group struct {
	GroupID string
	Name    string
	AddedBy string
	AddedAt time.Time
}

func NewGroup(groupID, name, addedBy string, now time.Time) (*Group, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" || addedBy == "" {
		return nil, domain.ErrInvalidArgument
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = groupID
	}
	return &Group{GroupID: groupID, Name: name, AddedBy: addedBy, AddedAt: now}, nil
}
