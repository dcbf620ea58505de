package model

import (
	"strings"
	"time"

	"group-broadcast-gateway/internal/domain"

	"github.com/google/uuid"
)

// ActivationCode is a one-time code bound to a single phone. At most one
// unused code exists per phone; issuing again replaces it.
type ActivationCode struct {
	ID        string
	Phone     string
	Code      string
	Used      bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

func NewActivationCode(phone, code string, now time.Time, ttl time.Duration) (*ActivationCode, error) {
	phone, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	if code == "" || ttl <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &ActivationCode{
		ID:        uuid.NewString(),
		Phone:     phone,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

func (c *ActivationCode) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Matches compares input with the stored code after normalizing both sides.
func (c *ActivationCode) Matches(input string) bool {
	n := NormalizeCode(input)
	return n != "" && n == NormalizeCode(c.Code)
}

// NormalizeCode uppercases and drops separators and whitespace.
func NormalizeCode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToUpper(s) {
		switch r {
		case '-', ' ', '\t', '_', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
