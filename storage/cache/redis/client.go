package rediscache

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/academia/core"
)

// Client wraps the go-redis client with health checking.
type Client struct {
	*redis.Client
}

// New connects to the configured Redis.
// Returns nil if the URL is empty (cache disabled).
func New(conf *core.Config) (*Client, error) {
	if conf.Redis.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(conf.Redis.URL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis URL")
	}
	opts.PoolSize = conf.Redis.PoolSize
	opts.MinIdleConns = conf.Redis.MinIdleConns
	opts.DialTimeout = conf.Redis.DialTimeout
	opts.ReadTimeout = conf.Redis.ReadTimeout
	opts.WriteTimeout = conf.Redis.WriteTimeout

	client := redis.NewClient(opts)
	if err = client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return &Client{Client: client}, nil
}

// Health checks if the Redis connection is healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
