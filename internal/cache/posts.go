package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/PostsGo/internal/domain"
	"github.com/utafrali/PostsGo/pkg/pagination"
)

const (
	listKeyPrefix = "posts:list:"
	generationKey = "posts:list:generation"
)

// ErrCacheMiss is returned by Get when no entry is cached for the page.
var ErrCacheMiss = errors.New("cache miss")

// PostListCache caches pages of the global post feed in Redis.
//
// Keys embed a generation number. Invalidate bumps the generation, so every
// page cached before a write becomes unreachable at once and expires on its
// own TTL.
type PostListCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPostListCache creates a new Redis-backed post list cache.
func NewPostListCache(client *redis.Client, ttl time.Duration) *PostListCache {
	return &PostListCache{
		client: client,
		ttl:    ttl,
	}
}

// Get returns the cached page for params or ErrCacheMiss.
func (c *PostListCache) Get(ctx context.Context, params pagination.Params) (*pagination.Result[domain.Post], error) {
	key, err := c.key(ctx, params)
	if err != nil {
		return nil, err
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get post page: %w", err)
	}

	var page pagination.Result[domain.Post]
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("unmarshal post page: %w", err)
	}

	return &page, nil
}

// Set stores page for params with the configured TTL.
func (c *PostListCache) Set(ctx context.Context, params pagination.Params, page pagination.Result[domain.Post]) error {
	key, err := c.key(ctx, params)
	if err != nil {
		return err
	}

	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("marshal post page: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set post page: %w", err)
	}

	return nil
}

// Invalidate drops every cached page.
func (c *PostListCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("redis bump post list generation: %w", err)
	}
	return nil
}

func (c *PostListCache) key(ctx context.Context, params pagination.Params) (string, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("redis get post list generation: %w", err)
	}
	return fmt.Sprintf("%s%d:%d:%d", listKeyPrefix, gen, params.Page, params.PerPage), nil
}
