package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
)

const sessionKeyPrefix = "academia:access-session:"

// store is the part of *redis.Client the cache needs.
type store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// SessionCache caches resolved AccessSessions in front of a SessionFetcher.
// Failed fetches are never cached. Redis errors fall back to the wrapped fetcher.
type SessionCache struct {
	store   store
	fetcher access.SessionFetcher
	ttl     time.Duration
	logger  core.Logger
}

var _ access.SessionFetcher = (*SessionCache)(nil)

func NewSessionCache(client *Client, fetcher access.SessionFetcher, ttl time.Duration, logger core.Logger) *SessionCache {
	return newSessionCache(client, fetcher, ttl, logger)
}

func newSessionCache(s store, fetcher access.SessionFetcher, ttl time.Duration, logger core.Logger) *SessionCache {
	return &SessionCache{store: s, fetcher: fetcher, ttl: ttl, logger: logger}
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

func (c *SessionCache) FetchAccessSession(ctx context.Context, sessionID string) (access.AccessSession, error) {
	key := sessionKey(sessionID)

	data, err := c.store.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var as access.AccessSession
		if err = json.Unmarshal(data, &as); err == nil {
			return as, nil
		}
		c.logger.Warn(fmt.Sprintf("cache: decoding %s", key), errors.Wrap(err, "decoding cached access session"))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn(fmt.Sprintf("cache: getting %s", key), errors.Wrap(err, "getting cached access session"))
	}

	as, err := c.fetcher.FetchAccessSession(ctx, sessionID)
	if err != nil {
		return access.AccessSession{}, err
	}

	if data, err = json.Marshal(as); err != nil {
		c.logger.Warn(fmt.Sprintf("cache: encoding %s", key), errors.Wrap(err, "encoding access session"))
		return as, nil
	}
	if err = c.store.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn(fmt.Sprintf("cache: setting %s", key), errors.Wrap(err, "caching access session"))
	}
	return as, nil
}
