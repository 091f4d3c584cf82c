package database

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedis returns nil without error when url is empty: the cache is optional.
func NewRedis(url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}

	cli := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		_ = cli.Close()
		return nil, err
	}

	return cli, nil
}
