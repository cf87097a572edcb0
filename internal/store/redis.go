package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dayuer/agentbus-go/internal/diag"
)

// KeyNotifications is the Redis key prefix for per-user notification lists.
const KeyNotifications = "notif:"

// notificationTTL bounds how long an idle user's list is retained.
const notificationTTL = 30 * 24 * time.Hour

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	URL      string // redis://host:port
	Password string
	DB       int
}

// RedisStore persists notification lists as JSON values in Redis. Writes go
// through a read-modify-write cycle guarded by a store-local mutex; the
// store assumes a single process owns its keys, which holds because the
// notification agent is single-flight.
type RedisStore struct {
	client *redis.Client
	logger diag.Logger
	mu     sync.Mutex
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(cfg RedisConfig, logger diag.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DB = cfg.DB
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.MaxRetries = 3

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{client: client, logger: diag.OrNop(logger)}, nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func notificationKey(userID string) string {
	return KeyNotifications + userID
}

func (s *RedisStore) load(ctx context.Context, userID string) ([]Notification, error) {
	raw, err := s.client.Get(ctx, notificationKey(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var list []Notification
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		// A corrupt value is unrecoverable; start over rather than wedge
		// the agent.
		s.logger.Warn("discarding corrupt notification list", "user", userID, "error", err)
		return nil, nil
	}
	return list, nil
}

func (s *RedisStore) save(ctx context.Context, userID string, list []Notification) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal notifications: %w", err)
	}
	if err := s.client.Set(ctx, notificationKey(userID), data, notificationTTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Append adds a notification to a user's list.
func (s *RedisStore) Append(ctx context.Context, userID string, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	return s.save(ctx, userID, append(list, n))
}

// Dismiss marks one notification dismissed.
func (s *RedisStore) Dismiss(ctx context.Context, userID, notificationID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.load(ctx, userID)
	if err != nil {
		return false, err
	}
	for i := range list {
		if list[i].ID == notificationID {
			list[i].Dismissed = true
			return true, s.save(ctx, userID, list)
		}
	}
	return false, nil
}

// List returns a user's notifications.
func (s *RedisStore) List(ctx context.Context, userID string, includeDismissed bool) ([]Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	var out []Notification
	for _, n := range list {
		if !includeDismissed && n.Dismissed {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// MarkRead flags all of a user's notifications as read.
func (s *RedisStore) MarkRead(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.load(ctx, userID)
	if err != nil {
		return 0, err
	}
	changed := 0
	for i := range list {
		if !list[i].Read {
			list[i].Read = true
			changed++
		}
	}
	if changed == 0 {
		return 0, nil
	}
	return changed, s.save(ctx, userID, list)
}
