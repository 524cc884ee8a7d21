package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	obredis "github.com/lyzr/obe/common/redis"
)

// RedisStore is the optional distributed checkpoint store
// (CHECKPOINT_STORE=redis), letting multiple OS processes fronting one
// host share the same checkpoint records when paired with
// modal.RedisCoordinator.
type RedisStore struct {
	client *obredis.Client
	ttl    time.Duration
}

// NewRedisStore returns a RedisStore whose records expire after ttl (0 means
// the client's default, no expiry).
func NewRedisStore(client *obredis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, cp Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint %s: %w", cp.ID, err)
	}
	if err := s.client.Set(ctx, redisKey(cp.ID), string(data), s.ttl); err != nil {
		return fmt.Errorf("save checkpoint %s: %w", cp.ID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Checkpoint, bool, error) {
	val, err := s.client.Get(ctx, redisKey(id))
	if err != nil {
		if strings.Contains(err.Error(), "key not found") {
			return Checkpoint{}, false, nil
		}
		return Checkpoint{}, false, fmt.Errorf("load checkpoint %s: %w", id, err)
	}
	var cp Checkpoint
	if err := json.Unmarshal([]byte(val), &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("decode checkpoint %s: %w", id, err)
	}
	return cp, true, nil
}

func redisKey(id string) string {
	return "obe:checkpoint:" + id
}
