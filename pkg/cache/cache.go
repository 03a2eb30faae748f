// Package cache is the caching layer of kvcache: a single Redis client handle
// wrapped in a service that normalizes store acknowledgements into
// success or a typed failure, and logs anomalies.
//
// Operations fall in two groups. Validated operations (Set, Delete, PExpire)
// inspect the acknowledgement and fail with an *errors.Error of kind
// cache_write, cache_delete or cache_expiry when the store reports that
// nothing happened. Pass-through operations (HGet, HSet, HGetAll) return what
// the store returned. Get sits between the two: a missing key is not an error
// but is logged once at warn level.
//
// Example usage:
//
//	svc, err := cache.New(cfg.Cache, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close()
//
//	if _, err := svc.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	err = svc.Set(ctx, cache.Key("session", id), token, cache.WithTTL(30*time.Minute))
//	value, found, err := svc.Get(ctx, cache.Key("session", id))
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Service is the cache abstraction shared by every component of the process.
// Implementations are safe for concurrent use.
type Service interface {
	// Connect verifies the store is reachable and returns the client handle.
	Connect(ctx context.Context) (*redis.Client, error)

	// Set stores value under key. The store must acknowledge with "OK".
	Set(ctx context.Context, key string, value []byte, opts ...SetOption) error

	// Get returns the value under key; found is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Delete removes key. Removing nothing is a failure.
	Delete(ctx context.Context, key string) error

	// SetMulti appends every pair's value to the list at its key inside one
	// MULTI/EXEC transaction, in input order.
	SetMulti(ctx context.Context, pairs []KeyValue) error

	// PExpire sets a millisecond-precision time to live on an existing key.
	PExpire(ctx context.Context, key string, ttl time.Duration) error

	// HGet returns one hash field; found is false when key or field is absent.
	HGet(ctx context.Context, key, field string) (value []byte, found bool, err error)

	// HSet sets one hash field and returns the number of fields created.
	HSet(ctx context.Context, key, field string, value []byte) (int64, error)

	// HGetAll returns every field of the hash at key; an absent key yields an
	// empty map.
	HGetAll(ctx context.Context, key string) (map[string][]byte, error)

	// CheckHealth pings the store.
	CheckHealth(ctx context.Context) error

	// Close releases the client handle.
	Close() error
}

// KeyValue is one entry of a SetMulti batch.
type KeyValue struct {
	Key   string `json:"key"`
	Value []byte `json:"value"`
}

// Mode selects when Set writes.
type Mode int

const (
	// ModeAlways writes unconditionally.
	ModeAlways Mode = iota
	// ModeIfAbsent writes only when the key does not exist (NX).
	ModeIfAbsent
	// ModeIfExists writes only when the key already exists (XX).
	ModeIfExists
)

func (m Mode) String() string {
	switch m {
	case ModeIfAbsent:
		return "NX"
	case ModeIfExists:
		return "XX"
	default:
		return ""
	}
}

// SetOptions are the write options of Set. TTL starts at the configured
// default; a zero TTL stores the key without expiry.
type SetOptions struct {
	TTL     time.Duration
	KeepTTL bool
	Mode    Mode
}

// SetOption mutates SetOptions.
type SetOption func(*SetOptions)

// WithTTL expires the key after ttl, overriding the configured default.
// Zero disables expiry for this write.
func WithTTL(ttl time.Duration) SetOption {
	return func(o *SetOptions) { o.TTL = ttl }
}

// WithKeepTTL retains the key's existing time to live.
func WithKeepTTL() SetOption {
	return func(o *SetOptions) { o.KeepTTL = true }
}

// IfAbsent makes the write conditional on the key not existing.
func IfAbsent() SetOption {
	return func(o *SetOptions) { o.Mode = ModeIfAbsent }
}

// IfExists makes the write conditional on the key existing.
func IfExists() SetOption {
	return func(o *SetOptions) { o.Mode = ModeIfExists }
}

func (o SetOptions) args() redis.SetArgs {
	args := redis.SetArgs{Mode: o.Mode.String()}
	switch {
	case o.KeepTTL:
		args.KeepTTL = true
	case o.TTL > 0:
		args.TTL = o.TTL
	}
	return args
}
