package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	lookupVersionKey = "lookups:version"
	// BumpChannel carries lookup cache invalidations between instances.
	BumpChannel = "lookups.bump"
)

// Cache keeps reference data (branches, products, leads) in Redis under
// versioned keys. Sales and appointments are never cached. A nil Cache loads
// straight from the source.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the lookup cache.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool { return c != nil && c.client != nil }

// Version returns the current cache version, initialising it when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, lookupVersionKey).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		if err := c.client.SetNX(ctx, lookupVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, lookupVersionKey).Int64()
	case err != nil:
		return 0, err
	case ver <= 0:
		if err := c.client.Set(ctx, lookupVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	return ver, nil
}

// Key composes the versioned key of a lookup kind.
func (c *Cache) Key(ctx context.Context, kind string) (string, error) {
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("lookups:%s:%d", kind, ver), nil
}

// Bump invalidates every cached lookup and notifies the other instances.
func (c *Cache) Bump(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	ver, err := c.client.Incr(ctx, lookupVersionKey).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, BumpChannel, strconv.FormatInt(ver, 10)).Err()
}

// ListenForInvalidation follows version bumps published by other instances
// until ctx ends.
func (c *Cache) ListenForInvalidation(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	pubsub := c.client.Subscribe(ctx, BumpChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ver, err := strconv.ParseInt(msg.Payload, 10, 64)
				if err != nil {
					_ = c.client.Incr(ctx, lookupVersionKey).Err()
					continue
				}
				c.raiseVersion(ctx, ver)
			}
		}
	}()
	return nil
}

// raiseVersion moves the version forward only; a late message never rolls back.
func (c *Cache) raiseVersion(ctx context.Context, ver int64) {
	cur, err := c.client.Get(ctx, lookupVersionKey).Int64()
	if err == nil && cur >= ver {
		return
	}
	_ = c.client.Set(ctx, lookupVersionKey, ver, 0).Err()
}

// fetchLookup returns the cached value of kind or fills it with load. An error
// matching errCache comes with a usable value: Redis trouble degrades to a
// direct load instead of failing the view.
func fetchLookup[T any](ctx context.Context, c *Cache, kind string, load func(context.Context) (T, error)) (T, error) {
	if !c.enabled() {
		return load(ctx)
	}
	key, err := c.Key(ctx, kind)
	if err != nil {
		v, lerr := load(ctx)
		if lerr != nil {
			return v, lerr
		}
		return v, cacheError(err)
	}
	var cached T
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil && json.Unmarshal(payload, &cached) == nil {
		return cached, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return v, cacheError(err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return v, cacheError(err)
	}
	return v, nil
}

// errCache tags cache-side failures that must not fail a view.
var errCache = errors.New("lookup cache")

func cacheError(err error) error {
	return fmt.Errorf("%w: %w", errCache, err)
}
