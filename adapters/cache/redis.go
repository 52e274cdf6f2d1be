package cache

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/Skryldev/image-server/errors"
)

// Redis stores cache entries in a Redis instance, for deployments where
// several replicas must share one cache.  Entries are written without a TTL.
type Redis struct {
	client redis.UniversalClient
}

// NewRedis creates a Redis cache over an existing client.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, apperrors.Wrap(apperrors.CategoryCache, "redis.get", err)
	}
	return data, true, nil
}

func (r *Redis) Put(ctx context.Context, key string, value []byte) error {
	return apperrors.Wrap(apperrors.CategoryCache, "redis.put",
		r.client.Set(ctx, key, value, 0).Err())
}
