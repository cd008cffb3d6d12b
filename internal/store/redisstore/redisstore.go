package redisstore

import (
	"context"
	"errors"

	redis "github.com/redis/go-redis/v9"

	"nexuserp/backend/internal/store"
)

// Store keeps the state slot in a plain Redis string key with no expiry.
type Store struct {
	client *redis.Client
}

var _ store.Slot = (*Store)(nil)

func New(addr string, password string, db int) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &Store{client: client}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, key, value, 0).Err()
}
