package model

import (
	"math"
	"time"

	"group-broadcast-gateway/internal/domain"

	"github.com/google/uuid"
)

// User is a subscriber identified by phone. Phone holds the messaging
// account identifier: a phone number, or the numeric account id on networks
// that do not expose one.
type User struct {
	ID          string
	Phone       string
	Active      bool
	ActivatedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewUser(id, phone string, now time.Time) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	phone, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	return &User{
		ID:        id,
		Phone:     phone,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

// Activate opens a fresh usage window starting at now.
func (u *User) Activate(now time.Time) {
	at := now
	u.Active = true
	u.ActivatedAt = &at
	u.UpdatedAt = now
}

func (u *User) Deactivate(now time.Time) {
	u.Active = false
	u.UpdatedAt = now
}

// ExpiresAt returns the end of the usage window, or false if the user was never activated.
func (u *User) ExpiresAt(window time.Duration) (time.Time, bool) {
	if u == nil || u.ActivatedAt == nil {
		return time.Time{}, false
	}
	return u.ActivatedAt.Add(window), true
}

// WithinWindow is true while now - activatedAt < window.
func (u *User) WithinWindow(now time.Time, window time.Duration) bool {
	if u == nil || !u.Active || u.ActivatedAt == nil {
		return false
	}
	return now.Sub(*u.ActivatedAt) < window
}

// DaysRemaining rounds the remaining window up to whole days; zero once expired.
func (u *User) DaysRemaining(now time.Time, window time.Duration) int {
	end, ok := u.ExpiresAt(window)
	if !ok {
		return 0
	}
	left := end.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Hours() / 24))
}

// NormalizePhone strips formatting characters and validates the identity.
func NormalizePhone(s string) (string, error) {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			out = append(out, c)
		case c == ' ' || c == '\t' || c == '-' || c == '(' || c == ')':
		case c == '+' && len(out) == 0:
		default:
			return "", domain.ErrInvalidArgument
		}
	}
	if len(out) < 5 || len(out) > 20 {
		return "", domain.ErrInvalidArgument
	}
	return string(out), nil
}
