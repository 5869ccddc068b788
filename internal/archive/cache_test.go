package archive

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsfold/newsfold/internal/model"
	"github.com/newsfold/newsfold/internal/provider"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

// nArticles builds n candidates, newest last so sorted output is
// predictable: title-0 is the oldest, title-(n-1) the newest.
func nArticles(n int, base time.Time) []model.Article {
	out := make([]model.Article, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, article(
			fmt.Sprintf("https://x/%d", i),
			fmt.Sprintf("title-%d", i),
			base.Add(time.Duration(i)*time.Minute).UnixMilli(),
		))
	}
	return out
}

func newTestCache(t *testing.T, collector Collector, n int, ttl time.Duration, maxResponse int) (*Cache, *clock) {
	t.Helper()
	clk := &clock{t: testNow}
	store := NewStore(collector, Options{
		Path: filepath.Join(t.TempDir(), "archive.json"),
		Now:  clk.now,
	})
	if n > 0 {
		_, err := store.MergeCandidates(context.Background(), nArticles(n, testNow.Add(-24*time.Hour)))
		require.NoError(t, err)
	}
	cache := NewCache(store, CacheOptions{
		TTL:         ttl,
		MaxResponse: maxResponse,
		Now:         clk.now,
	})
	return cache, clk
}

func TestGetPageOffsets(t *testing.T) {
	cache, _ := newTestCache(t, &stubCollector{}, 50, time.Minute, 500)

	res, err := cache.GetPage(context.Background(), PageQuery{Page: 2, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, 50, res.Total)
	require.Len(t, res.Articles, 20)
	// Newest-first: page 2 starts at offset 20, i.e. title-29.
	assert.Equal(t, "title-29", res.Articles[0].Title)
	assert.Equal(t, "title-10", res.Articles[19].Title)
}

func TestGetPageBeyondEndIsEmptyNotError(t *testing.T) {
	cache, _ := newTestCache(t, &stubCollector{}, 5, time.Minute, 500)

	res, err := cache.GetPage(context.Background(), PageQuery{Page: 9, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
	assert.Empty(t, res.Articles)
}

func TestGetPageFiveArticlesPageOne(t *testing.T) {
	cache, _ := newTestCache(t, &stubCollector{}, 5, time.Minute, 500)

	res, err := cache.GetPage(context.Background(), PageQuery{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
	require.Len(t, res.Articles, 2)
	assert.Equal(t, "title-4", res.Articles[0].Title)
	assert.Equal(t, "title-3", res.Articles[1].Title)
}

func TestPageSizeClamped(t *testing.T) {
	cache, _ := newTestCache(t, &stubCollector{}, 50, time.Minute, 500)

	res, err := cache.GetPage(context.Background(), PageQuery{Page: 1, PageSize: 1000})
	require.NoError(t, err)
	assert.Len(t, res.Articles, 50, "oversized pageSize clamps to 100, not beyond")

	res, err = cache.GetPage(context.Background(), PageQuery{Page: 1, PageSize: -3})
	require.NoError(t, err)
	assert.Len(t, res.Articles, 20, "invalid pageSize falls back to the default")
}

func TestMaxResponseCapsTheView(t *testing.T) {
	cache, _ := newTestCache(t, &stubCollector{}, 30, time.Minute, 10)

	res, err := cache.GetPage(context.Background(), PageQuery{Page: 1, PageSize: 100})
	require.NoError(t, err)
	assert.Equal(t, 10, res.Total, "total reflects the capped view")
	assert.Len(t, res.Articles, 10)
}

func TestRefreshOnlyWhenStale(t *testing.T) {
	collector := &stubCollector{}
	cache, clk := newTestCache(t, collector, 5, time.Minute, 500)

	_, err := cache.GetPage(context.Background(), PageQuery{Page: 1, PageSize: 10})
	require.NoError(t, err)
	first := collector.calls

	// Within TTL: no re-fetch.
	clk.advance(10 * time.Second)
	_, err = cache.GetPage(context.Background(), PageQuery{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, first, collector.calls)

	// Past TTL: re-fetch.
	clk.advance(2 * time.Minute)
	_, err = cache.GetPage(context.Background(), PageQuery{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, first+1, collector.calls)
}

func TestForceBypassesTTL(t *testing.T) {
	collector := &stubCollector{}
	cache, clk := newTestCache(t, collector, 5, time.Hour, 500)

	_, err := cache.GetPage(context.Background(), PageQuery{Page: 1, PageSize: 10})
	require.NoError(t, err)
	first := collector.calls

	clk.advance(time.Second) // still well within TTL
	_, err = cache.GetPage(context.Background(), PageQuery{Page: 1, PageSize: 10, Force: true})
	require.NoError(t, err)
	assert.Equal(t, first+1, collector.calls, "force must re-trigger the merge despite cache freshness")
}

func TestFreshOnlyFiltersToRecentWindow(t *testing.T) {
	clk := &clock{t: testNow}
	store := NewStore(&stubCollector{}, Options{
		Path: filepath.Join(t.TempDir(), "archive.json"),
		Now:  clk.now,
	})
	_, err := store.MergeCandidates(context.Background(), []model.Article{
		article("https://x/old", "stale", testNow.Add(-30*24*time.Hour).UnixMilli()),
		article("https://x/new", "fresh", testNow.Add(-time.Hour).UnixMilli()),
	})
	require.NoError(t, err)

	cache := NewCache(store, CacheOptions{TTL: time.Minute, Now: clk.now})

	res, err := cache.GetPage(context.Background(), PageQuery{Page: 1, PageSize: 10, FreshOnly: true, RecentDays: 7})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	require.Len(t, res.Articles, 1)
	assert.Equal(t, "fresh", res.Articles[0].Title)
}

func TestFirstRunTotalFailureSurfaces(t *testing.T) {
	collector := &stubCollector{results: []provider.FeedResult{{Err: errors.New("down")}}}
	cache, _ := newTestCache(t, collector, 0, time.Minute, 500)

	_, err := cache.GetPage(context.Background(), PageQuery{Page: 1, PageSize: 10})
	require.ErrorIs(t, err, ErrNoData)
}

func TestDegradedRefreshServesLastGoodSnapshot(t *testing.T) {
	collector := &stubCollector{results: []provider.FeedResult{{
		Articles: nArticles(3, testNow.Add(-24*time.Hour)),
	}}}
	cache, clk := newTestCache(t, collector, 0, time.Minute, 500)

	res, err := cache.GetPage(context.Background(), PageQuery{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)

	// Upstream dies; the stale-but-present snapshot keeps serving.
	collector.results = []provider.FeedResult{{Err: errors.New("down")}}
	clk.advance(2 * time.Minute)
	res, err = cache.GetPage(context.Background(), PageQuery{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
}

func TestRefreshReturnsMergeResult(t *testing.T) {
	collector := &stubCollector{results: []provider.FeedResult{{
		Articles: nArticles(4, testNow.Add(-24*time.Hour)),
	}}}
	cache, _ := newTestCache(t, collector, 0, time.Hour, 500)

	res, err := cache.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, res.NewCount)
	assert.Equal(t, 4, res.Total)
}
