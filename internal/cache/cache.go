package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis"

	"interview-insights-go/internal/logger"
	"interview-insights-go/internal/types"
)

// ErrNotFound is returned when no record exists for a request id.
var ErrNotFound = errors.New("request not found")

const keyPrefix = "call_process:"

// Store persists processing records keyed by request id.
type Store interface {
	Get(requestID string) (*types.ProcessingRequest, error)
	Set(requestID string, req *types.ProcessingRequest, ttl time.Duration) error
	Delete(requestID string) error
	Ping() error
}

// RedisStore keeps records in Redis under call_process:<id>.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr, password string, db int) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(requestID string) (*types.ProcessingRequest, error) {
	data, err := s.client.Get(keyPrefix + requestID).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var req types.ProcessingRequest
	if err := json.Unmarshal([]byte(data), &req); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &req, nil
}

func (s *RedisStore) Set(requestID string, req *types.ProcessingRequest, ttl time.Duration) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := s.client.Set(keyPrefix+requestID, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(requestID string) error {
	deleted, err := s.client.Del(keyPrefix + requestID).Result()
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	if deleted == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Ping() error {
	return s.client.Ping().Err()
}

// NewStore returns a Redis-backed store, or the in-memory store when Redis
// is unreachable or no address is configured.
func NewStore(addr, password string, db int) Store {
	log := logger.New().WithField("component", "cache")
	if addr == "" {
		log.Warn("no redis address configured, using in-memory store")
		return NewMemoryStore()
	}
	s := NewRedisStore(addr, password, db)
	if err := s.Ping(); err != nil {
		log.WithError(err).Warn("redis unreachable, using in-memory store")
		return NewMemoryStore()
	}
	log.WithField("addr", addr).Info("redis store connected")
	return s
}
