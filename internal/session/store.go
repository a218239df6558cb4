package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("session not found")

// Session is the server-side state behind a browser's session cookie.
type Session struct {
	ID      string    `json:"id"`
	UserID  uint      `json:"user_id"` // 0 for anonymous visitors
	Flashes []string  `json:"flashes,omitempty"`
	Expires time.Time `json:"expires"`
}

func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != 0
}

type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// NewStore builds the configured backend. A redis backend that does not answer
// PING degrades to the in-memory store.
func NewStore(backend, redisAddr string, logger *zap.SugaredLogger) (Store, error) {
	switch backend {
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:         redisAddr,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			if logger != nil {
				logger.Warnw("Redis unavailable; using in-memory session store", "addr", redisAddr, "error", err)
			}
			client.Close()
			return NewMemoryStore(), nil
		}
		return NewRedisStore(client), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", backend)
	}
}

type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	saves    int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if time.Now().After(s.Expires) {
		m.Delete(ctx, id)
		return nil, ErrNotFound
	}
	s.Flashes = append([]string(nil), s.Flashes...)
	return &s, nil
}

func (m *MemoryStore) Save(ctx context.Context, s *Session, ttl time.Duration) error {
	s.Expires = time.Now().Add(ttl)
	cp := *s
	cp.Flashes = append([]string(nil), s.Flashes...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = cp
	m.saves++
	if m.saves%256 == 0 {
		m.pruneLocked()
	}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// Len counts stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *MemoryStore) pruneLocked() {
	now := time.Now()
	for id, s := range m.sessions {
		if now.After(s.Expires) {
			delete(m.sessions, id)
		}
	}
}

const redisKeyPrefix = "blog:session:"

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	val, err := r.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}
	var s Session
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, fmt.Errorf("session decode: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Session, ttl time.Duration) error {
	s.Expires = time.Now().Add(ttl)
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session encode: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+s.ID, b, ttl).Err(); err != nil {
		return fmt.Errorf("session set: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, redisKeyPrefix+id).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
