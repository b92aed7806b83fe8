// Package redisstore backs the cross-node concerns that cannot live in
// process memory: the compile lease and the analytics record cache.
package redisstore

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/trezcool/maendeleo/core"
)

// Open connects to redis and verifies the connection.
func Open(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return client, nil
}
