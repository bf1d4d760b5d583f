// Package redis persists player solutions in Redis.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cogvm/cog/internal/catalog"
	backend "github.com/redis/go-redis/v9"
)

// Store implements catalog.SolutionStore using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for stored solutions.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for stored solutions.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "cog:solution:",
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key(hardwareSlug, programSlug string) string {
	return s.prefix + member(hardwareSlug, programSlug)
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// member is the index entry for one solution. Slugs never contain '/',
// so the separator is unambiguous.
func member(hardwareSlug, programSlug string) string {
	return hardwareSlug + "/" + programSlug
}

// Put stores a solution, replacing any previous one.
func (s *Store) Put(ctx context.Context, solution catalog.Solution) error {
	data, err := json.Marshal(solution)
	if err != nil {
		return fmt.Errorf("failed to marshal solution: %w", err)
	}

	pipe := s.client.Pipeline()

	// 1. Save JSON with TTL (0 = keep forever).
	pipe.Set(ctx, s.key(solution.HardwareSlug, solution.ProgramSlug), data, s.ttl)

	// 2. Add to index (ZSET). Score tracks expiry so List can prune
	// lazily; without a TTL the entry never expires.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: member(solution.HardwareSlug, solution.ProgramSlug),
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Get retrieves a solution.
func (s *Store) Get(ctx context.Context, hardwareSlug, programSlug string) (catalog.Solution, error) {
	val, err := s.client.Get(ctx, s.key(hardwareSlug, programSlug)).Result()
	if err != nil {
		if err == backend.Nil {
			return catalog.Solution{}, catalog.ErrSolutionNotFound
		}
		return catalog.Solution{}, fmt.Errorf("failed to get from redis: %w", err)
	}

	var solution catalog.Solution
	if err := json.Unmarshal([]byte(val), &solution); err != nil {
		return catalog.Solution{}, fmt.Errorf("failed to unmarshal solution: %w", err)
	}
	return solution, nil
}

// List returns the keys of every stored solution, pruning expired index
// entries on the way.
func (s *Store) List(ctx context.Context) ([]catalog.SolutionKey, error) {
	now := float64(time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired solutions: %w", err)
	}

	members, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list solutions: %w", err)
	}

	keys := make([]catalog.SolutionKey, 0, len(members))
	for _, m := range members {
		hardware, program, ok := strings.Cut(m, "/")
		if !ok {
			continue
		}
		keys = append(keys, catalog.SolutionKey{HardwareSlug: hardware, ProgramSlug: program})
	}
	return keys, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
