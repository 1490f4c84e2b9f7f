package redis

import (
	"context"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// FlagStore implements ports.FlagStore using Redis.
type FlagStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures the redis adapters.
type Option func(*options)

type options struct {
	prefix  string
	ttl     time.Duration
	channel string
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithTTL sets the expiration for flags. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithChannel sets the pub/sub channel retirements are published on.
func WithChannel(channel string) Option {
	return func(o *options) {
		o.channel = channel
	}
}

func buildOptions(opts []Option) options {
	o := options{
		prefix:  "geofence:flag:",
		channel: "geofence:retired",
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewClient creates a go-redis client for the given address.
func NewClient(address, password string, db int) *backend.Client {
	return backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
}

// NewFromClient creates a flag store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *FlagStore {
	o := buildOptions(opts)
	return &FlagStore{
		client: client,
		prefix: o.prefix,
		ttl:    o.ttl,
	}
}

func (s *FlagStore) key(name string) string {
	return s.prefix + name
}

// GetFlag returns the stored value, false when the key is absent.
func (s *FlagStore) GetFlag(ctx context.Context, key string) (bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if err == backend.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to load flag from redis: %w", err)
	}
	return val == "1", nil
}

// SetFlag stores the value.
func (s *FlagStore) SetFlag(ctx context.Context, key string, value bool) error {
	v := "0"
	if value {
		v = "1"
	}
	if err := s.client.Set(ctx, s.key(key), v, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save flag to redis: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *FlagStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
