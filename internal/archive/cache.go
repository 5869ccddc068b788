package archive

import (
	"context"
	"sync"
	"time"

	"github.com/newsfold/newsfold/internal/model"
)

const (
	defaultCacheTTL     = 60 * time.Second
	defaultMaxResponse  = 500
	defaultRecentWindow = 14 * 24 * time.Hour
	maxPageSize         = 100
	defaultPageSize     = 20
)

// CacheOptions configure the snapshot cache.
type CacheOptions struct {
	TTL time.Duration
	// MaxResponse caps how much of the archive one response can draw from,
	// regardless of archive size.
	MaxResponse int
	// RecentWindow is the default freshOnly filter window.
	RecentWindow time.Duration
	Now          func() time.Time
}

// Cache holds a time-boxed copy of the archive and serves paginated views
// from it. All refresh triggers are serialized on one mutex, so overlapping
// force calls and scheduled triggers coalesce into a single in-flight
// merge: the second caller re-checks freshness under the lock and reuses
// the result.
type Cache struct {
	store *Store
	opts  CacheOptions

	mu          sync.Mutex
	refreshedAt time.Time
	articles    []model.Article
}

func NewCache(store *Store, opts CacheOptions) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = defaultCacheTTL
	}
	if opts.MaxResponse <= 0 {
		opts.MaxResponse = defaultMaxResponse
	}
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = defaultRecentWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{store: store, opts: opts}
}

// PageQuery describes one read request.
type PageQuery struct {
	Page     int
	PageSize int
	// Force bypasses the TTL and re-triggers an ingestion merge.
	Force bool
	// FreshOnly filters to entries within the recency window.
	FreshOnly bool
	// RecentDays overrides the default recency window when > 0.
	RecentDays int
}

// PageResult is one paginated view over the filtered, capped snapshot.
type PageResult struct {
	Total    int             `json:"total"`
	Articles []model.Article `json:"articles"`
}

// GetPage refreshes the snapshot when forced, stale or empty, then serves
// the requested page. Total reflects the filtered set, not the archive.
func (c *Cache) GetPage(ctx context.Context, q PageQuery) (PageResult, error) {
	view, err := c.view(ctx, q.Force)
	if err != nil {
		return PageResult{}, err
	}

	if q.FreshOnly {
		window := c.opts.RecentWindow
		if q.RecentDays > 0 {
			window = time.Duration(q.RecentDays) * 24 * time.Hour
		}
		cutoff := c.opts.Now().Add(-window).UnixMilli()
		filtered := make([]model.Article, 0, len(view))
		for _, a := range view {
			if a.EffectiveTs() >= cutoff {
				filtered = append(filtered, a)
			}
		}
		view = filtered
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	size := q.PageSize
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	result := PageResult{Total: len(view), Articles: []model.Article{}}
	start := (page - 1) * size
	if start < len(view) {
		end := start + size
		if end > len(view) {
			end = len(view)
		}
		result.Articles = view[start:end]
	}
	return result, nil
}

// Refresh forces an immediate merge regardless of TTL. Used by the ops API.
func (c *Cache) Refresh(ctx context.Context) (MergeResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, err := c.store.Merge(ctx)
	if err == nil {
		c.articles = c.store.Snapshot()
		c.refreshedAt = c.opts.Now()
	}
	return res, err
}

// view returns the capped prefix of the (possibly refreshed) snapshot.
func (c *Cache) view(ctx context.Context, force bool) ([]model.Article, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stale := c.opts.Now().Sub(c.refreshedAt) > c.opts.TTL
	if force || stale || len(c.articles) == 0 {
		if _, err := c.store.Merge(ctx); err != nil {
			// Serve the last good snapshot when one exists; only a
			// first-run total failure is user-visible.
			if len(c.articles) == 0 {
				return nil, err
			}
		} else {
			c.articles = c.store.Snapshot()
			c.refreshedAt = c.opts.Now()
		}
	}

	view := c.articles
	if len(view) > c.opts.MaxResponse {
		view = view[:c.opts.MaxResponse]
	}
	return view, nil
}
