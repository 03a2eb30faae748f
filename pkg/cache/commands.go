package cache

import (
	"context"
	"time"

	"github.com/Combine-Capital/kvcache/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Set stores value under key with the configured default TTL unless opts say
// otherwise. Any acknowledgement other than "OK", including a conditional
// write that was not applied, fails with a cache_write signal.
func (r *RedisService) Set(ctx context.Context, key string, value []byte, opts ...SetOption) error {
	if key == "" {
		return errors.NewInvalidInput("key", "key must not be empty")
	}

	o := r.defaultTTL
	for _, opt := range opts {
		opt(&o)
	}

	ctx, op := r.startOp(ctx, "Set", key)
	status, err := r.client.SetArgs(ctx, key, value, o.args()).Result()
	if err != nil && err != redis.Nil {
		op.finish(err)
		return err
	}

	err = checkWritten(status, key, value)
	op.finish(err)
	return err
}

// Get returns the value under key. An absent key is reported with found set
// to false and a single "Not found key" warning.
func (r *RedisService) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, op := r.startOp(ctx, "Get", key)
	value, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		op.finishRead(false, nil)
		r.logger.Warn().Str("key", key).Msg("Not found key: " + key)
		return nil, false, nil
	}
	if err != nil {
		op.finishRead(false, err)
		return nil, false, err
	}

	op.finishRead(true, nil)
	return value, true, nil
}

// Delete removes key. A removal count of zero, which is also what an absent
// key produces, fails with a cache_delete signal.
func (r *RedisService) Delete(ctx context.Context, key string) error {
	ctx, op := r.startOp(ctx, "Delete", key)
	n, err := r.client.Del(ctx, key).Result()
	if err != nil {
		op.finish(err)
		return err
	}

	err = checkDeleted(n, key)
	op.finish(err)
	return err
}

// SetMulti queues one RPUSH per pair in a MULTI/EXEC transaction. Only the
// transaction's aggregate error is surfaced; an empty batch does nothing.
func (r *RedisService) SetMulti(ctx context.Context, pairs []KeyValue) error {
	if len(pairs) == 0 {
		return nil
	}

	ctx, op := r.startOp(ctx, "SetMulti", pairs[0].Key)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, kv := range pairs {
			pipe.RPush(ctx, kv.Key, kv.Value)
		}
		return nil
	})
	op.finish(err)
	return err
}

// PExpire sets key's time to live with millisecond precision. A false
// acknowledgement, which an absent key produces, fails with a cache_expiry
// signal.
func (r *RedisService) PExpire(ctx context.Context, key string, ttl time.Duration) error {
	if ttl < 0 {
		return errors.NewInvalidInput("ttl", "ttl must not be negative")
	}

	ctx, op := r.startOp(ctx, "PExpire", key)
	ok, err := r.client.PExpire(ctx, key, ttl).Result()
	if err != nil {
		op.finish(err)
		return err
	}

	err = checkExpirySet(ok, key)
	op.finish(err)
	return err
}

// HGet returns the field of the hash at key as the store reports it.
func (r *RedisService) HGet(ctx context.Context, key, field string) ([]byte, bool, error) {
	ctx, op := r.startOp(ctx, "HGet", key)
	value, err := r.client.HGet(ctx, key, field).Bytes()
	if err == redis.Nil {
		op.finishRead(false, nil)
		return nil, false, nil
	}
	if err != nil {
		op.finishRead(false, err)
		return nil, false, err
	}

	op.finishRead(true, nil)
	return value, true, nil
}

// HSet sets the field of the hash at key and returns the store's count of
// newly created fields.
func (r *RedisService) HSet(ctx context.Context, key, field string, value []byte) (int64, error) {
	ctx, op := r.startOp(ctx, "HSet", key)
	n, err := r.client.HSet(ctx, key, field, value).Result()
	op.finish(err)
	return n, err
}

// HGetAll returns every field of the hash at key.
func (r *RedisService) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	ctx, op := r.startOp(ctx, "HGetAll", key)
	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		op.finishRead(false, err)
		return nil, err
	}

	out := make(map[string][]byte, len(fields))
	for f, v := range fields {
		out[f] = []byte(v)
	}

	op.finishRead(len(out) > 0, nil)
	return out, nil
}
