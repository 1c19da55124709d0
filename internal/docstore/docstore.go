// Package docstore keeps courses and reviews as JSON documents in Redis.
//
// Review commits use WATCH on the course and review keys with MULTI/EXEC,
// retrying when another client touched either key first.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Clark-Hu/course-reviews/internal/domain"
)

const (
	coursesKey = "courses"
	recentKey  = "reviews:recent"

	// Backend is the label this store reports in metrics.
	Backend = "redis"
)

func courseKey(id string) string        { return "course:" + id }
func courseReviewsKey(id string) string { return "course:" + id + ":reviews" }
func reviewKey(id string) string        { return "review:" + id }

// Options configures the Redis connection and commit behaviour.
type Options struct {
	Address   string
	Password  string
	DB        int
	TxRetries int
	RecentCap int
	Logger    *zap.Logger
}

// Option mutates Options.
type Option func(*Options)

func WithAddress(addr string) Option {
	return func(o *Options) {
		o.Address = addr
	}
}

func WithPassword(pass string) Option {
	return func(o *Options) {
		o.Password = pass
	}
}

func WithDB(db int) Option {
	return func(o *Options) {
		o.DB = db
	}
}

// WithTxRetries bounds how many times a losing commit is retried.
func WithTxRetries(n int) Option {
	return func(o *Options) {
		o.TxRetries = n
	}
}

// WithRecentCap sets how many recent reviews Recent can return. The list keeps
// twice as many ids so deletions do not shorten it below the cap.
func WithRecentCap(n int) Option {
	return func(o *Options) {
		o.RecentCap = n
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// Store is a Redis-backed document store.
type Store struct {
	client    *redis.Client
	logger    *zap.Logger
	retries   int
	recentCap int

	Courses *Courses
	Reviews *Reviews
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, opts ...Option) (*Store, error) {
	options := &Options{
		Address:   "localhost:6379",
		TxRetries: 10,
		RecentCap: domain.MaxListLimit,
	}
	for _, opt := range opts {
		opt(options)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     options.Address,
		Password: options.Password,
		DB:       options.DB,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return newStore(client, options), nil
}

func newStore(client *redis.Client, options *Options) *Store {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	retries := options.TxRetries
	if retries <= 0 {
		retries = 1
	}
	recentCap := options.RecentCap
	if recentCap <= 0 {
		recentCap = domain.MaxListLimit
	}

	s := &Store{
		client:    client,
		logger:    logger.Named("docstore"),
		retries:   retries,
		recentCap: recentCap,
	}
	s.Courses = &Courses{store: s}
	s.Reviews = &Reviews{store: s}
	return s
}

func (s *Store) recentListLen() int {
	return 2 * s.recentCap
}

// Close releases the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// HealthCheck verifies Redis is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func getJSON(ctx context.Context, c redis.Cmdable, key string, dest any) error {
	val, err := c.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(val, dest)
}

// mgetJSON loads documents for keys, skipping keys that no longer exist.
func mgetJSON[T any](ctx context.Context, c redis.Cmdable, keys []string) ([]T, error) {
	out := make([]T, 0, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	vals, err := c.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var doc T
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", keys[i], err)
		}
		out = append(out, doc)
	}
	return out, nil
}

func isNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

func now() time.Time {
	return time.Now().UTC()
}
