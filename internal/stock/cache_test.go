package stock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), srv
}

func TestCacheFetchJSONPopulatesAndHits(t *testing.T) {
	cache, _ := testCache(t)
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "stock", "list", "p1")
	require.NoError(t, err)

	loads := 0
	loader := func(context.Context) (any, error) {
		loads++
		return listResult{Total: 3}, nil
	}

	var out listResult
	require.NoError(t, cache.FetchJSON(ctx, key, &out, loader))
	require.Equal(t, 3, out.Total)
	require.Equal(t, 1, loads)

	out = listResult{}
	require.NoError(t, cache.FetchJSON(ctx, key, &out, loader))
	require.Equal(t, 3, out.Total)
	require.Equal(t, 1, loads, "second fetch must come from cache")
}

func TestCacheBumpInvalidatesKeys(t *testing.T) {
	cache, _ := testCache(t)
	ctx := context.Background()

	before, err := cache.BuildKey(ctx, "stock", "list")
	require.NoError(t, err)

	require.NoError(t, cache.Bump(ctx))

	after, err := cache.BuildKey(ctx, "stock", "list")
	require.NoError(t, err)
	require.NotEqual(t, before, after)
}

func TestCacheNilClientPassesThrough(t *testing.T) {
	cache := NewCache(nil, time.Minute)
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "stock", "list")
	require.NoError(t, err)

	var out listResult
	require.NoError(t, cache.FetchJSON(ctx, key, &out, func(context.Context) (any, error) {
		return listResult{Total: 9}, nil
	}))
	require.Equal(t, 9, out.Total)
	require.NoError(t, cache.Bump(ctx))
}
