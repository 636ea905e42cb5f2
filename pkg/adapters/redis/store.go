package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/spindle/pkg/domain"
	"github.com/aretw0/spindle/pkg/persistence"
	"github.com/aretw0/spindle/pkg/ports"
)

// DefaultPrefix namespaces every key the adapters write.
const DefaultPrefix = "spindle:state:"

// noExpiry is the index score of entries saved without a TTL (2100-01-01, in
// Unix milliseconds).
const noExpiry = 4102444800000

// Store implements ports.StateStore using Redis. States are stored through a Codec,
// JSON by default, with a sorted-set index scored by expiry time in milliseconds
// so List can skip expired entries.
type Store[S any] struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	codec  ports.Codec
	now    func() time.Time
}

// Options configures a Store.
type Options struct {
	Prefix string
	TTL    time.Duration
	Codec  ports.Codec
	Now    func() time.Time
}

// Option mutates Options.
type Option func(*Options)

// WithTTL sets the expiration for saved states. Zero means no expiration.
func WithTTL(ttl time.Duration) Option {
	return func(o *Options) {
		o.TTL = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(o *Options) {
		o.Prefix = prefix
	}
}

// WithCodec sets how States are encoded.
func WithCodec(codec ports.Codec) Option {
	return func(o *Options) {
		o.Codec = codec
	}
}

// WithClock sets the clock used to score and prune the expiry index.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.Now = now
	}
}

// New creates a new Redis store with its own client.
func New[S any](address, password string, db int, opts ...Option) *Store[S] {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient[S](rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient[S any](client *backend.Client, opts ...Option) *Store[S] {
	o := Options{Prefix: DefaultPrefix, Codec: persistence.JSON, Now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[S]{
		client: client,
		prefix: o.Prefix,
		ttl:    o.TTL,
		codec:  o.Codec,
		now:    o.Now,
	}
}

func (s *Store[S]) key(id string) string {
	return s.prefix + id
}

func (s *Store[S]) indexKey() string {
	return s.prefix + "index"
}

// Save persists the state to Redis.
func (s *Store[S]) Save(ctx context.Context, id string, state S) error {
	data, err := s.codec.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	score := float64(s.now().Add(s.ttl).UnixMilli())
	if s.ttl == 0 {
		score = noExpiry
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(id), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the state from Redis.
func (s *Store[S]) Load(ctx context.Context, id string) (S, error) {
	var state S

	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return state, domain.ErrSnapshotNotFound
		}
		return state, fmt.Errorf("failed to get from redis: %w", err)
	}

	if err := s.codec.Unmarshal(val, &state); err != nil {
		return state, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return state, nil
}

// Delete removes the state and its index entry.
func (s *Store[S]) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(id))
	pipe.ZRem(ctx, s.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// List returns the IDs whose entries have not expired, pruning the rest from the index.
func (s *Store[S]) List(ctx context.Context) ([]string, error) {
	// An entry expires at its score, so the bound is inclusive.
	now := s.now().UnixMilli()
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", strconv.FormatInt(now, 10)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired states: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list states: %w", err)
	}
	return ids, nil
}

// Ping checks connectivity.
func (s *Store[S]) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (s *Store[S]) Close() error {
	return s.client.Close()
}
