// Package cache keeps filtered asset lists in Redis. Entries are namespaced
// by a generation number; bumping the generation after an import makes every
// older entry unreachable without scanning keys.
package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "assetmap:assets:"
	generationKey = keyPrefix + "gen"
)

type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(addr, password string, db int, ttl time.Duration) *Client {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	return &Client{rdb: rdb, ttl: ttl}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) generation(ctx context.Context) (int64, error) {
	v, err := c.rdb.Get(ctx, generationKey).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

// Key builds the cache key for a scope (e.g. "list") and canonical query.
func (c *Client) Key(ctx context.Context, scope, query string) (string, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return "", err
	}
	return keyPrefix + strconv.FormatInt(gen, 10) + ":" + scope + ":" + query, nil
}

// Entry is the outcome of a Lookup. Key carries the generation that was
// current when the lookup ran; a list read after a miss must be stored under
// it, so a list read before an Invalidate is never visible after it.
type Entry struct {
	Key     string
	Payload []byte
	Hit     bool
}

// Lookup resolves the key for scope and query and returns the cached payload
// if present.
func (c *Client) Lookup(ctx context.Context, scope, query string) (Entry, error) {
	key, err := c.Key(ctx, scope, query)
	if err != nil {
		return Entry{}, err
	}
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{Key: key}, nil
	}
	if err != nil {
		return Entry{Key: key}, err
	}
	return Entry{Key: key, Payload: b, Hit: true}, nil
}

// Store writes payload under a key returned by Lookup.
func (c *Client) Store(ctx context.Context, key string, payload []byte) error {
	if key == "" {
		return errors.New("cache: empty key")
	}
	return c.rdb.Set(ctx, key, payload, c.ttl).Err()
}

// Invalidate bumps the generation so previously stored entries are no longer
// looked up; they expire on their own TTL.
func (c *Client) Invalidate(ctx context.Context) error {
	return c.rdb.Incr(ctx, generationKey).Err()
}
