// Package archive owns the persisted, deduplicated article collection and
// the merge pipeline that feeds it: collect, dedupe-merge, image backfill,
// timestamp backfill, retention trim, resort, persist.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/newsfold/newsfold/internal/enrich"
	"github.com/newsfold/newsfold/internal/model"
	"github.com/newsfold/newsfold/internal/provider"
)

// ErrNoData is the one hard failure of a merge: every feed errored and the
// archive was already empty, so there is nothing at all to serve.
var ErrNoData = errors.New("all feeds failed and archive is empty")

const (
	defaultRetention     = 365 * 24 * time.Hour
	defaultImageFetchMax = 12
)

// Collector produces the raw per-feed results for one merge cycle.
// *provider.RSSFetcher is the production implementation.
type Collector interface {
	FetchAll(ctx context.Context) []provider.FeedResult
}

// Options configure a Store.
type Options struct {
	// Path of the JSON snapshot document.
	Path string
	// Retention window; entries older than this are trimmed.
	Retention time.Duration
	// ImageFetchMax caps page scrapes per merge run.
	ImageFetchMax int
	// Scraper backfills missing images; nil disables the step.
	Scraper enrich.PageScraper
	// Now is swappable for tests.
	Now func() time.Time
}

// Store is the archive: an ordered, deduplicated, retention-trimmed slice
// of articles, persisted as a single JSON document. It exclusively owns
// both the in-memory slice and the snapshot file; readers only ever get
// copies.
type Store struct {
	mu        sync.Mutex
	entries   []model.Article
	collector Collector
	opts      Options
}

func NewStore(collector Collector, opts Options) *Store {
	if opts.Retention <= 0 {
		opts.Retention = defaultRetention
	}
	if opts.ImageFetchMax <= 0 {
		opts.ImageFetchMax = defaultImageFetchMax
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{collector: collector, opts: opts}
}

// Load reads the persisted snapshot. A missing file starts an empty
// archive; a corrupt one is an error.
func (s *Store) Load() error {
	if s.opts.Path == "" {
		return nil
	}
	raw, err := os.ReadFile(s.opts.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("archive: read snapshot: %w", err)
	}
	var entries []model.Article
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("archive: parse snapshot: %w", err)
	}
	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	log.Printf("archive: loaded %d entries from %s", len(entries), s.opts.Path)
	return nil
}

// Flush writes the snapshot to disk. Called on shutdown and at the end of
// every merge.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	if s.opts.Path == "" {
		return nil
	}
	raw, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("archive: encode snapshot: %w", err)
	}
	if err := os.WriteFile(s.opts.Path, raw, 0o644); err != nil {
		return fmt.Errorf("archive: write snapshot: %w", err)
	}
	return nil
}

// Len reports the number of archived entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Snapshot returns a copy of the archive, newest first. Callers never see
// the live slice, so a mid-merge state cannot be observed.
func (s *Store) Snapshot() []model.Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Article, len(s.entries))
	copy(out, s.entries)
	return out
}

// Status describes the on-disk snapshot for diagnostics.
type Status struct {
	Path       string    `json:"path"`
	Items      int       `json:"items"`
	SizeBytes  int64     `json:"sizeBytes"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

func (s *Store) Status() Status {
	st := Status{Path: s.opts.Path, Items: s.Len()}
	if s.opts.Path != "" {
		if info, err := os.Stat(s.opts.Path); err == nil {
			st.SizeBytes = info.Size()
			st.ModifiedAt = info.ModTime()
		}
	}
	return st
}

// MergeResult summarizes one ingestion run.
type MergeResult struct {
	NewCount int      `json:"newItems"`
	Total    int      `json:"total"`
	Errors   []string `json:"errors"`
}

// Merge executes one full ingestion run: fan-out feed collection, then the
// sequential pipeline over the in-memory archive. Partial failures are
// recorded in the result, never raised; the only hard error is ErrNoData.
func (s *Store) Merge(ctx context.Context) (MergeResult, error) {
	var candidates []model.Article
	var errs []string
	allFailed := true
	if s.collector != nil {
		results := s.collector.FetchAll(ctx)
		allFailed = len(results) > 0
		for _, res := range results {
			if res.Err != nil {
				errs = append(errs, res.Err.Error())
				continue
			}
			allFailed = false
			candidates = append(candidates, res.Articles...)
		}
	} else {
		allFailed = false
	}
	return s.mergeCandidates(ctx, candidates, errs, allFailed)
}

// MergeCandidates runs the pipeline over an already-fetched candidate set.
// Used by ingestion paths that fetch through the fallback chain.
func (s *Store) MergeCandidates(ctx context.Context, candidates []model.Article) (MergeResult, error) {
	return s.mergeCandidates(ctx, candidates, nil, false)
}

func (s *Store) mergeCandidates(ctx context.Context, candidates []model.Article, errs []string, allFailed bool) (MergeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Now()
	added := s.dedupeMergeLocked(candidates, now)
	s.backfillImagesLocked(ctx)
	s.backfillTimestampsLocked(now)
	s.trimLocked(now)
	s.sortLocked()

	if err := s.persistLocked(); err != nil {
		// Durability is best-effort: the in-memory merge stands.
		log.Printf("archive: persist error: %v", err)
		errs = append(errs, err.Error())
	}

	result := MergeResult{NewCount: added, Total: len(s.entries), Errors: errs}
	if allFailed && len(s.entries) == 0 {
		return result, ErrNoData
	}
	return result, nil
}

// dedupeMergeLocked folds candidates into the archive head. Identity is the
// URL when present, the title otherwise. Accepted candidates keep their
// batch order at the head of the archive.
func (s *Store) dedupeMergeLocked(candidates []model.Article, now time.Time) int {
	urls := make(map[string]struct{}, len(s.entries))
	titles := make(map[string]struct{}, len(s.entries))
	for _, e := range s.entries {
		if e.URL != "" {
			urls[e.URL] = struct{}{}
		}
		if e.Title != "" {
			titles[e.Title] = struct{}{}
		}
	}

	accepted := make([]model.Article, 0, len(candidates))
	for _, c := range candidates {
		if c.URL != "" {
			if _, seen := urls[c.URL]; seen {
				continue
			}
		} else if _, seen := titles[c.Title]; seen {
			continue
		}
		c.ArchivedAt = now.UnixMilli()
		accepted = append(accepted, c)
		if c.URL != "" {
			urls[c.URL] = struct{}{}
		}
		if c.Title != "" {
			titles[c.Title] = struct{}{}
		}
	}

	s.entries = append(accepted, s.entries...)
	return len(accepted)
}

// backfillImagesLocked scrapes article pages for entries still on the
// placeholder image. Strictly sequential and capped per run so remote
// hosts are never hammered; any single failure is ignored.
func (s *Store) backfillImagesLocked(ctx context.Context) {
	if s.opts.Scraper == nil {
		return
	}
	scraped := 0
	for i := range s.entries {
		if scraped >= s.opts.ImageFetchMax {
			break
		}
		e := &s.entries[i]
		if e.ImageURL != "" && e.ImageURL != model.PlaceholderImage {
			continue
		}
		if !strings.HasPrefix(e.URL, "http") {
			continue
		}
		scraped++
		img, err := s.opts.Scraper.ScrapeImage(ctx, e.URL)
		if err != nil || img == "" {
			continue
		}
		e.ImageURL = img
	}
}

// backfillTimestampsLocked guarantees publishedTs and publishedAt are both
// populated, deriving one from the other or from archivedAt.
func (s *Store) backfillTimestampsLocked(now time.Time) {
	for i := range s.entries {
		e := &s.entries[i]
		if e.PublishedTs == 0 && e.PublishedAt != "" {
			e.PublishedTs = model.ParseTs(e.PublishedAt)
		}
		if e.PublishedTs == 0 {
			if e.ArchivedAt != 0 {
				e.PublishedTs = e.ArchivedAt
			} else {
				e.ArchivedAt = now.UnixMilli()
				e.PublishedTs = e.ArchivedAt
			}
		}
		if e.PublishedAt == "" {
			e.PublishedAt = model.FormatTs(e.PublishedTs)
		}
	}
}

func (s *Store) trimLocked(now time.Time) {
	cutoff := now.Add(-s.opts.Retention).UnixMilli()
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.EffectiveTs() >= cutoff {
			kept = append(kept, e)
		}
	}
	s.entries = kept
}

func (s *Store) sortLocked() {
	sort.SliceStable(s.entries, func(i, j int) bool {
		return s.entries[i].EffectiveTs() > s.entries[j].EffectiveTs()
	})
}
