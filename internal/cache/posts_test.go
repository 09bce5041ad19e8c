package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/PostsGo/internal/domain"
	"github.com/utafrali/PostsGo/pkg/pagination"
)

func setupTestRedis(t *testing.T) (*PostListCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewPostListCache(client, 30*time.Second), mr
}

func samplePage(params pagination.Params) pagination.Result[domain.Post] {
	now := time.Now().UTC().Truncate(time.Millisecond)
	posts := []domain.Post{{
		ID:             "p-1",
		AuthorID:       "u-1",
		AuthorUsername: "alice",
		Content:        "hello",
		CreatedAt:      now,
		UpdatedAt:      now,
	}}
	return pagination.NewResult(posts, 1, params)
}

func TestPostListCache_Miss(t *testing.T) {
	c, _ := setupTestRedis(t)

	_, err := c.Get(context.Background(), pagination.DefaultParams())
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestPostListCache_SetAndGet(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	params := pagination.DefaultParams()
	page := samplePage(params)

	require.NoError(t, c.Set(ctx, params, page))
	assert.True(t, mr.Exists("posts:list:0:1:20"))
	assert.Equal(t, 30*time.Second, mr.TTL("posts:list:0:1:20"))

	got, err := c.Get(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, page, *got)

	_, err = c.Get(ctx, pagination.New(2, 20))
	assert.ErrorIs(t, err, ErrCacheMiss, "other pages are cached separately")
}

func TestPostListCache_Invalidate(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()
	params := pagination.DefaultParams()

	require.NoError(t, c.Set(ctx, params, samplePage(params)))
	require.NoError(t, c.Invalidate(ctx))

	_, err := c.Get(ctx, params)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, params, samplePage(params)))
	_, err = c.Get(ctx, params)
	assert.NoError(t, err)
}

func TestPostListCache_Expiry(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	params := pagination.DefaultParams()

	require.NoError(t, c.Set(ctx, params, samplePage(params)))
	mr.FastForward(31 * time.Second)

	_, err := c.Get(ctx, params)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestPostListCache_CorruptEntry(t *testing.T) {
	c, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("posts:list:0:1:20", "{not json"))

	_, err := c.Get(context.Background(), pagination.DefaultParams())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestPostListCache_RedisDown(t *testing.T) {
	c, mr := setupTestRedis(t)
	mr.Close()

	_, err := c.Get(context.Background(), pagination.DefaultParams())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}
