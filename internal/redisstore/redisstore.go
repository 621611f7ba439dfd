// Package redisstore adapts a Redis client to the string-keyed cache store
// contract used by the second-level cache chain. Values are encoded with
// msgpack; Redis failures degrade to misses and are logged rather than
// surfaced, so a flaky cache server slows queries down instead of failing
// them.
package redisstore

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultOpTimeout bounds each Redis round-trip when the config does not
// set one. Prevents indefinite hangs on a slow or unresponsive server.
const DefaultOpTimeout = 5 * time.Second

// Config holds the connection and behavior settings for a Store.
type Config struct {
	Addr      string
	Password  string
	DB        int
	TTL       time.Duration
	OpTimeout time.Duration
	Logger    zerolog.Logger
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("redisstore: Addr must not be empty")
	}
	if c.TTL < 0 {
		return errors.New("redisstore: TTL must not be negative")
	}
	if c.OpTimeout < 0 {
		return errors.New("redisstore: OpTimeout must not be negative")
	}
	return nil
}

// Store implements the cache store contract over Redis. All entries live
// under a sanitized "sqlmapper:<id>:" prefix so Clear and Size can scan
// them without touching unrelated keys.
type Store struct {
	id        string
	prefix    string
	client    *redis.Client
	ttl       time.Duration
	opTimeout time.Duration
	logger    zerolog.Logger
}

// New connects a Store for the cache identified by id.
func New(id string, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.OpTimeout
	if timeout == 0 {
		timeout = DefaultOpTimeout
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Store{
		id:        id,
		prefix:    "sqlmapper:" + sanitize(id) + ":",
		client:    client,
		ttl:       cfg.TTL,
		opTimeout: timeout,
		logger:    cfg.Logger.With().Str("cache", id).Logger(),
	}, nil
}

func (s *Store) ID() string { return s.id }

func (s *Store) Get(key string) (any, bool) {
	ctx, cancel := s.opCtx()
	defer cancel()
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("redis get failed")
		return nil, false
	}
	var out any
	if err := msgpack.Unmarshal(data, &out); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("redis entry decode failed")
		return nil, false
	}
	return out, true
}

func (s *Store) Put(key string, value any) {
	data, err := msgpack.Marshal(value)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("redis entry encode failed")
		return
	}
	ctx, cancel := s.opCtx()
	defer cancel()
	if err := s.client.Set(ctx, s.prefix+key, data, s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("redis set failed")
	}
}

func (s *Store) Remove(key string) {
	ctx, cancel := s.opCtx()
	defer cancel()
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("redis del failed")
	}
}

func (s *Store) Clear() {
	ctx, cancel := s.opCtx()
	defer cancel()
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn().Err(err).Msg("redis scan failed")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("redis clear failed")
	}
}

func (s *Store) Size() int {
	ctx, cancel := s.opCtx()
	defer cancel()
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	n := 0
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn().Err(err).Msg("redis scan failed")
		return 0
	}
	return n
}

// Close releases the underlying client.
func (s *Store) Close() error { return s.client.Close() }

func (s *Store) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.opTimeout)
}

// sanitize strips characters from a cache id that Redis tooling treats
// specially, keeping the key space prefix-scannable.
func sanitize(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
