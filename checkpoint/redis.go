package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/linanwx/notebot/internal/runtimecfg"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each thread's record as a JSON string value.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, prefix: runtimecfg.CheckpointRedisKeyPrefix}
}

// OpenRedis connects to a redis:// URL.
func OpenRedis(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStore(client), nil
}

func (s *RedisStore) key(threadID string) string {
	return s.prefix + threadID
}

func decodeRedisRecord(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	return &rec, nil
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, threadID string) (*Record, error) {
	data, err := s.client.Get(ctx, s.key(threadID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	return decodeRedisRecord(data)
}

// Save implements Store. The compare and the write run under WATCH so a
// concurrent writer aborts the transaction.
func (s *RedisStore) Save(ctx context.Context, rec *Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	base := stamp(rec.UpdatedAt)
	saved := *rec
	saved.UpdatedAt = fromStamp(nextStamp(base))
	data, err := json.Marshal(&saved)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	key := s.key(rec.ThreadID)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		var stored int64
		cur, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == redis.Nil:
		case err != nil:
			return err
		default:
			existing, err := decodeRedisRecord(cur)
			if err != nil {
				return err
			}
			stored = stamp(existing.UpdatedAt)
		}
		if stored != base {
			return ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrConflict
	}
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return err
		}
		return fmt.Errorf("save checkpoint: %w", err)
	}
	rec.UpdatedAt = saved.UpdatedAt
	return nil
}

// Exists implements Store.
func (s *RedisStore) Exists(ctx context.Context, threadID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(threadID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, threadID string) error {
	return s.client.Del(ctx, s.key(threadID)).Err()
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
