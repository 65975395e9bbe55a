package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix namespaces session keys.
const DefaultRedisKeyPrefix = "uno:session:"

// RedisStore stores each session as a JSON string under prefix+id.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration // 0 keeps records forever
}

// NewRedisStore wraps an already connected client.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: DefaultRedisKeyPrefix, ttl: ttl}
}

func (s *RedisStore) key(id uuid.UUID) string {
	return s.prefix + id.String()
}

func (s *RedisStore) Save(ctx context.Context, sess *game.Session) error {
	data, err := encodeSession(sess)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key(sess.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", s.key(sess.ID), err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, id uuid.UUID) (*game.Session, error) {
	data, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET %s: %w", s.key(id), err)
	}
	return decodeSession(data)
}

func (s *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.rdb.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("redis DEL %s: %w", s.key(id), err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
