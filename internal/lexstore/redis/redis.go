// Package redis reads lexicon overlays from Redis.
//
// Layout, relative to the configured key prefix:
//
//	<prefix>languages      SET   language codes that have entries
//	<prefix>typos:<lang>   HASH  misspelling → canonical form
//	<prefix>words:<lang>   SET   lexicon words
package redis

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/redis/go-redis/v9"

	"github.com/MrWong99/lidroute/internal/lexstore"
	"github.com/MrWong99/lidroute/internal/validation"
)

// DefaultPrefix is used when no key prefix is configured.
const DefaultPrefix = "lidroute:"

// Client is the subset of the go-redis API used by [Store]. *redis.Client and
// *redis.ClusterClient satisfy it.
type Client interface {
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	SAdd(ctx context.Context, key string, members ...any) *redis.IntCmd
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Options configures a connection opened by [Open].
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Store is a [lexstore.Source] backed by Redis.
type Store struct {
	client Client
	prefix string
	close  func() error
}

// Compile-time interface check.
var _ lexstore.Source = (*Store)(nil)

// NewStore returns a Store over client. An empty prefix means
// [DefaultPrefix].
func NewStore(client Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix, close: func() error { return nil }}
}

// Open connects to the server described by opts.
func Open(ctx context.Context, opts Options) (*Store, error) {
	c := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("lexstore redis: ping %s: %w", opts.Addr, err)
	}
	s := NewStore(c, opts.Prefix)
	s.close = c.Close
	return s, nil
}

// Close releases the connection opened by [Open].
func (s *Store) Close() error {
	return s.close()
}

// Name implements [lexstore.Source].
func (s *Store) Name() string {
	return "redis"
}

// Ping checks that the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("lexstore redis: ping: %w", err)
	}
	return nil
}

func (s *Store) languagesKey() string { return s.prefix + "languages" }
func (s *Store) typosKey(lang string) string { return s.prefix + "typos:" + lang }
func (s *Store) wordsKey(lang string) string { return s.prefix + "words:" + lang }

// Load implements [lexstore.Source].
func (s *Store) Load(ctx context.Context) (map[string]validation.Overlay, error) {
	langs, err := s.client.SMembers(ctx, s.languagesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("lexstore redis: list languages: %w", err)
	}
	slices.Sort(langs)

	out := make(map[string]validation.Overlay, len(langs))
	for _, lang := range langs {
		typos, err := s.client.HGetAll(ctx, s.typosKey(lang)).Result()
		if err != nil {
			return nil, fmt.Errorf("lexstore redis: typos %q: %w", lang, err)
		}
		words, err := s.client.SMembers(ctx, s.wordsKey(lang)).Result()
		if err != nil {
			return nil, fmt.Errorf("lexstore redis: words %q: %w", lang, err)
		}
		if len(typos) == 0 && len(words) == 0 {
			continue
		}
		slices.Sort(words)
		ov := validation.Overlay{Words: words}
		if len(typos) > 0 {
			ov.Typos = typos
		}
		out[lang] = ov
	}
	return out, nil
}

// Seed writes overlays to Redis. Existing entries are overwritten or kept;
// nothing is removed.
func (s *Store) Seed(ctx context.Context, overlays map[string]validation.Overlay) error {
	for _, lang := range slices.Sorted(maps.Keys(overlays)) {
		ov := overlays[lang]
		if err := s.client.SAdd(ctx, s.languagesKey(), lang).Err(); err != nil {
			return fmt.Errorf("lexstore redis: register %q: %w", lang, err)
		}
		if len(ov.Typos) > 0 {
			args := make([]any, 0, 2*len(ov.Typos))
			for _, k := range slices.Sorted(maps.Keys(ov.Typos)) {
				args = append(args, k, ov.Typos[k])
			}
			if err := s.client.HSet(ctx, s.typosKey(lang), args...).Err(); err != nil {
				return fmt.Errorf("lexstore redis: seed typos %q: %w", lang, err)
			}
		}
		if len(ov.Words) > 0 {
			args := make([]any, len(ov.Words))
			for i, w := range ov.Words {
				args[i] = w
			}
			if err := s.client.SAdd(ctx, s.wordsKey(lang), args...).Err(); err != nil {
				return fmt.Errorf("lexstore redis: seed words %q: %w", lang, err)
			}
		}
	}
	return nil
}
