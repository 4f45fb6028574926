package dedup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of *redis.Client used by RedisStore.
type RedisClient interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// DefaultRedisPrefix namespaces dedup keys.
const DefaultRedisPrefix = "sdd:notified"

// RedisStore keeps one key per notified pair, expiring after ttl (0 keeps forever).
// Claims expire after the claim lease until MarkNotified replaces them.
type RedisStore struct {
	client     RedisClient
	prefix     string
	ttl        time.Duration
	claimLease time.Duration
}

func NewRedisStore(client RedisClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl, claimLease: DefaultClaimLease}
}

// WithClaimLease sets how long an unconfirmed claim blocks its pair.
func (s *RedisStore) WithClaimLease(lease time.Duration) *RedisStore {
	if lease > 0 {
		s.claimLease = lease
	}
	return s
}

// NewRedisClient parses url and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

type redisRecord struct {
	RequestType string    `json:"requestType"`
	MessageID   string    `json:"messageId,omitempty"`
	SentAt      time.Time `json:"sentAt"`
}

// key length-prefixes the transaction id so ids containing ':' cannot collide.
func (s *RedisStore) key(transactionID, payeeKey string) string {
	return fmt.Sprintf("%s:%d:%s:%s", s.prefix, len(transactionID), transactionID, payeeKey)
}

func (s *RedisStore) IsAlreadyNotified(ctx context.Context, transactionID, payeeKey string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(transactionID, payeeKey)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) MarkNotified(ctx context.Context, record Record) error {
	value, err := encodeRedisRecord(record)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(record.TransactionID, record.PayeeKey), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Claim(ctx context.Context, record Record) (bool, error) {
	value, err := encodeRedisRecord(record)
	if err != nil {
		return false, err
	}
	lease := s.claimLease
	if s.ttl > 0 && s.ttl < lease {
		lease = s.ttl
	}
	ok, err := s.client.SetNX(ctx, s.key(record.TransactionID, record.PayeeKey), value, lease).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Release(ctx context.Context, transactionID, payeeKey string) error {
	if err := s.client.Del(ctx, s.key(transactionID, payeeKey)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func encodeRedisRecord(record Record) (string, error) {
	b, err := json.Marshal(redisRecord{
		RequestType: record.RequestType,
		MessageID:   record.MessageID,
		SentAt:      record.SentAt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode record: %w", err)
	}
	return string(b), nil
}
