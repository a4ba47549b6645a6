package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"backoffice-alerts/internal/db"
)

// ErrNotFound is returned by a Store when nothing is saved under the key.
var ErrNotFound = errors.New("preference not found")

// Store is a key-value preference store holding JSON blobs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// MemoryStore keeps preferences for the lifetime of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
	return nil
}

// PostgresStore keeps preferences in the preferences table.
type PostgresStore struct {
	db *db.DB
}

func NewPostgresStore(d *db.DB) *PostgresStore {
	return &PostgresStore{db: d}
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.db.GetPreference(ctx, key)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	return v, err
}

func (s *PostgresStore) Put(ctx context.Context, key string, value []byte) error {
	return s.db.PutPreference(ctx, key, value)
}

const redisPrefix = "backoffice-alerts:pref:"

// RedisStore keeps preferences as plain Redis strings without expiry.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisStoreFromClient(client, redisPrefix), nil
}

func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = redisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get preference %s: %w", key, err)
	}
	return data, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to save preference %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
