// Package cache keeps per-user suggestion lists in Redis so repeated
// dashboard loads skip the scoring pass.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nirojbhetuwal/lostbuddy/internal/matching"
)

// Config configures the Redis connection.
type Config struct {
	Addr     string
	Password string
	DB       int
	// TTL bounds how long a suggestion list is served without recomputing.
	TTL    time.Duration
	Prefix string
}

const (
	defaultTTL    = 10 * time.Minute
	defaultPrefix = "lostbuddy:"
)

// Suggestions is a Redis-backed matching.SuggestionCache.
type Suggestions struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewSuggestions connects to Redis and checks the connection.
func NewSuggestions(ctx context.Context, cfg Config) (*Suggestions, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return NewSuggestionsWithClient(client, cfg.TTL, cfg.Prefix), nil
}

// NewSuggestionsWithClient wraps an existing client. Zero ttl and empty
// prefix select the defaults.
func NewSuggestionsWithClient(client redis.UniversalClient, ttl time.Duration, prefix string) *Suggestions {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Suggestions{client: client, ttl: ttl, prefix: prefix}
}

func (s *Suggestions) generationKey() string {
	return s.prefix + "suggestions:generation"
}

func (s *Suggestions) key(gen int64, userID string) string {
	return s.prefix + "suggestions:" + strconv.FormatInt(gen, 10) + ":" + userID
}

// Generation returns the current generation, 0 before the first
// invalidation.
func (s *Suggestions) Generation(ctx context.Context) (int64, error) {
	gen, err := s.client.Get(ctx, s.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading suggestion generation: %w", err)
	}
	return gen, nil
}

// GetSuggestions returns the list cached for userID under gen. The bool is
// false on a miss.
func (s *Suggestions) GetSuggestions(ctx context.Context, gen int64, userID string) ([]matching.Suggestion, bool, error) {
	data, err := s.client.Get(ctx, s.key(gen, userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading suggestions: %w", err)
	}

	var out []matching.Suggestion
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, false, fmt.Errorf("decoding suggestions: %w", err)
	}
	return out, true, nil
}

// SetSuggestions stores list for userID under gen with the configured TTL.
func (s *Suggestions) SetSuggestions(ctx context.Context, gen int64, userID string, list []matching.Suggestion) error {
	if list == nil {
		list = []matching.Suggestion{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encoding suggestions: %w", err)
	}
	if err := s.client.Set(ctx, s.key(gen, userID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("writing suggestions: %w", err)
	}
	return nil
}

// InvalidateAll advances the generation. Lists stored under older
// generations are never read again and expire with their TTL.
func (s *Suggestions) InvalidateAll(ctx context.Context) error {
	if err := s.client.Incr(ctx, s.generationKey()).Err(); err != nil {
		return fmt.Errorf("invalidating suggestions: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *Suggestions) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *Suggestions) Close() error {
	return s.client.Close()
}
