package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/go-session-client/session"
	"github.com/redis/go-redis/v9"
)

var _ session.Storage = (*Store)(nil)

// Store keeps the session as a Redis hash whose fields are the session keys.
// Save replaces the hash inside MULTI/EXEC so readers never see a partial
// session.
type Store struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL expires the whole session hash after d. Zero keeps it forever.
func WithTTL(d time.Duration) Option {
	return func(s *Store) {
		s.ttl = d
	}
}

func New(client redis.UniversalClient, key string, options ...Option) *Store {
	s := &Store{client: client, key: key}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Connect builds a client and verifies the connection.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("[redisstore Connect] ping %s: %w", addr, err)
	}
	return client, nil
}

func (s *Store) Load(ctx context.Context) (session.Record, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("[redisstore Load] hgetall %s: %w", s.key, err)
	}
	return session.Record(values), nil
}

func (s *Store) Save(ctx context.Context, record session.Record) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(record) == 0 {
			return nil
		}
		fields := make(map[string]interface{}, len(record))
		for k, v := range record {
			fields[k] = v
		}
		pipe.HSet(ctx, s.key, fields)
		if s.ttl > 0 {
			pipe.Expire(ctx, s.key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("[redisstore Save] %s: %w", s.key, err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("[redisstore Clear] %s: %w", s.key, err)
	}
	return nil
}
