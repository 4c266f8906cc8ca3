package tokenstore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Redis stores credentials in Redis under "<prefix>:<key>".  Shared
// front-desk terminals use it so every terminal sees the same session.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

func NewRedis(rdb *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "reserveease"
	}
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) key(k string) string { return r.prefix + ":" + k }

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.rdb.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) || (err == nil && v == "") {
		return "", ErrNotFound
	}
	return v, err
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.rdb.Set(ctx, r.key(key), value, 0).Err()
}

func (r *Redis) Clear(ctx context.Context) error {
	return r.rdb.Del(ctx, r.key(KeyAccess), r.key(KeyRefresh)).Err()
}

func (r *Redis) Close() error { return r.rdb.Close() }
