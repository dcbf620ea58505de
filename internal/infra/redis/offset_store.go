package redis

import (
	"context"
	"errors"
	"strconv"

	"group-broadcast-gateway/internal/domain"
)

const updateOffsetKey = "gateway:update_offset"

// OffsetStore persists the transport's next update offset so a restart
// does not replay handled commands.
type OffsetStore struct {
	client RedisClient
}

func NewOffsetStore(client RedisClient) *OffsetStore {
	return &OffsetStore{client: client}
}

// Load returns 0 when nothing was stored yet.
func (s *OffsetStore) Load(ctx context.Context) (int, error) {
	v, err := s.client.Get(ctx, updateOffsetKey)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *OffsetStore) Save(ctx context.Context, offset int) error {
	return s.client.Set(ctx, updateOffsetKey, strconv.Itoa(offset), 0)
}
