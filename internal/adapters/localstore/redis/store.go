package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"3tcapital/goglosas/internal/core/localstore"
)

const scanBatch = 200

// Store keeps the local cache in Redis under a key prefix so several
// services can share one instance.
type Store struct {
	client goredis.UniversalClient
	prefix string
}

// New wraps client. An empty prefix defaults to "glosas:".
func New(client goredis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "glosas:"
	}
	return &Store{client: client, prefix: prefix}
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int, prefix string) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client, prefix), nil
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Get implements localstore.Store.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", localstore.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}

// Set implements localstore.Store. Entries never expire.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete implements localstore.Store.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Keys implements localstore.Store using SCAN.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	// SCAN may return a key more than once.
	seen := make(map[string]struct{})
	for {
		batch, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("scan keys: %w", err)
		}
		for _, k := range batch {
			name := strings.TrimPrefix(k, s.prefix)
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			keys = append(keys, name)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

var _ localstore.Store = (*Store)(nil)
