package credstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the session keys in Redis. Writes go through MULTI/EXEC so
// readers never observe a partial session.
type RedisStore struct {
	client redis.UniversalClient
	opts   *options
}

// NewRedisStore wraps an existing client. Keys default to the "recicla:session:"
// prefix unless WithKeyPrefix is given.
func NewRedisStore(client redis.UniversalClient, opts ...Option) (*RedisStore, error) {
	o, err := buildOptions(append([]Option{WithKeyPrefix("recicla:session:")}, opts...))
	if err != nil {
		return nil, err
	}
	return &RedisStore{client: client, opts: o}, nil
}

func (s *RedisStore) keys() []string {
	return []string{s.opts.key(KeyToken), s.opts.key(KeyRole), s.opts.key(KeyUser)}
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context) (Record, error) {
	vals, err := s.client.MGet(ctx, s.keys()...).Result()
	if err != nil {
		return Record{}, fmt.Errorf("redis session load: %w", err)
	}

	str := func(i int) string {
		if i >= len(vals) || vals[i] == nil {
			return ""
		}
		v, _ := vals[i].(string)
		return v
	}

	token, err := s.opts.openToken(str(0))
	if err != nil {
		return Record{}, err
	}
	rec := Record{Token: token, Role: str(1)}
	if u := str(2); u != "" {
		rec.User = json.RawMessage(u)
	}
	return rec, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	if err := rec.validate(); err != nil {
		return err
	}
	sealed, err := s.opts.sealToken(rec.Token)
	if err != nil {
		return fmt.Errorf("failed to encrypt token: %w", err)
	}

	keys := s.keys()
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.MSet(ctx, keys[0], sealed, keys[1], rec.Role, keys[2], string(rec.User))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis session save: %w", err)
	}
	return nil
}

// Clear implements Store.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.keys()...).Err(); err != nil {
		return fmt.Errorf("redis session clear: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
