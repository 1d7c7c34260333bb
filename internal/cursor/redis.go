package cursor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisStore keeps each cursor as a JSON string under prefix+key. Keys
// expire after the retention window; Sweep also removes records whose
// stamp is older than maxAge in case the expiry was lost.
type RedisStore struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// ErrEmptyPrefix is returned for a Redis store without a key prefix. Sweep
// scans by prefix, so an empty one would reach every key in the database.
var ErrEmptyPrefix = errors.New("redis cursor prefix must not be empty")

func OpenRedis(ctx context.Context, url, prefix string, retention time.Duration, log zerolog.Logger) (*RedisStore, error) {
	if prefix == "" {
		return nil, ErrEmptyPrefix
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	s, err := NewRedisStore(client, prefix, retention, log)
	if err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

func NewRedisStore(client *redis.Client, prefix string, retention time.Duration, log zerolog.Logger) (*RedisStore, error) {
	if prefix == "" {
		return nil, ErrEmptyPrefix
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &RedisStore{client: client, prefix: prefix, retention: retention, now: time.Now, log: log}, nil
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + SanitizeID(sessionID)
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) int {
	b, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0
	}
	if err != nil {
		s.log.Warn().Err(err).Str("session", sessionID).Msg("unreadable cursor, starting from 0")
		return 0
	}
	var st State
	if err := json.Unmarshal(b, &st); err != nil || st.LastLine < 0 {
		s.log.Warn().Err(err).Str("session", sessionID).Msg("corrupt cursor, starting from 0")
		return 0
	}
	return st.LastLine
}

func (s *RedisStore) Set(ctx context.Context, sessionID string, line int) error {
	b, err := json.Marshal(State{LastLine: line, UpdatedAt: s.now().UTC()})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(sessionID), b, s.retention).Err(); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}

func (s *RedisStore) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().Add(-maxAge)
	removed := 0

	iter := s.client.Scan(ctx, 0, globEscape(s.prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		b, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("read cursor")
			continue
		}
		var st State
		if err := json.Unmarshal(b, &st); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("corrupt cursor")
			continue
		}
		if st.UpdatedAt.IsZero() {
			s.log.Debug().Str("key", key).Msg("not a cursor record, leaving it")
			continue
		}
		if !st.UpdatedAt.Before(cutoff) {
			continue
		}
		if err := s.client.Del(ctx, key).Err(); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("remove stale cursor")
			continue
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scan cursors: %w", err)
	}
	return removed, nil
}

// globEscape quotes the SCAN MATCH metacharacters in s.
func globEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`*?[]\`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
