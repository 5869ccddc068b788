package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/newsfold/newsfold/internal/model"
	"github.com/newsfold/newsfold/internal/provider"
)

type stubProvider struct {
	articles []model.Article
	err      error
}

func (s *stubProvider) Name() string  { return "stub" }
func (s *stubProvider) Enabled() bool { return true }

func (s *stubProvider) FetchCategory(ctx context.Context, category string, limit int) ([]model.Article, error) {
	return s.articles, s.err
}

type stubSink struct {
	batches [][]model.Article
	err     error
}

func (s *stubSink) UpsertBatch(items []model.Article) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.batches = append(s.batches, items)
	return len(items), nil
}

func TestRunAllReportsPerCategory(t *testing.T) {
	prov := &stubProvider{articles: []model.Article{
		{ID: "1", Title: "a", URL: "https://x/1"},
		{ID: "2", Title: "b", URL: "https://x/2"},
	}}
	sink := &stubSink{}

	jobs := []Job{{Name: "test", CronSpec: "@hourly", Categories: []string{"world", "crypto"}}}
	s, err := New(jobs, provider.NewFallbackFetcher(prov), sink, 0, 20)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	reports := s.RunAll(context.Background())
	if len(reports) != 1 {
		t.Fatalf("got %d reports, want 1", len(reports))
	}
	report := reports[0]
	if len(report.Categories) != 2 {
		t.Fatalf("got %d category results, want 2", len(report.Categories))
	}
	for _, cat := range report.Categories {
		if cat.Err != "" {
			t.Fatalf("category %s errored: %s", cat.Category, cat.Err)
		}
		if cat.Fetched != 2 || cat.Written != 2 {
			t.Fatalf("category %s: fetched=%d written=%d, want 2/2", cat.Category, cat.Fetched, cat.Written)
		}
		if cat.Provider != "stub" {
			t.Fatalf("category %s provider = %q, want stub", cat.Category, cat.Provider)
		}
	}
	if len(sink.batches) != 2 {
		t.Fatalf("sink received %d batches, want 2", len(sink.batches))
	}
}

func TestRunAllRecordsEmptyFetch(t *testing.T) {
	prov := &stubProvider{err: provider.ErrEmptyResult}
	sink := &stubSink{}

	jobs := []Job{{Name: "test", CronSpec: "@hourly", Categories: []string{"world"}}}
	s, err := New(jobs, provider.NewFallbackFetcher(prov), sink, 0, 20)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	report := s.RunAll(context.Background())[0]
	if report.Categories[0].Err == "" {
		t.Fatalf("empty fetch should be recorded as a category error")
	}
	if len(sink.batches) != 0 {
		t.Fatalf("nothing should reach the sink on empty fetch")
	}
}

func TestSinkWriteFailureIsHardForTheBatch(t *testing.T) {
	prov := &stubProvider{articles: []model.Article{{ID: "1", Title: "a"}}}
	sink := &stubSink{err: errors.New("db down")}

	jobs := []Job{{Name: "test", CronSpec: "@hourly", Categories: []string{"world", "crypto"}}}
	s, err := New(jobs, provider.NewFallbackFetcher(prov), sink, 0, 20)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	report := s.RunAll(context.Background())[0]
	// The batch fails hard but the next category still runs.
	if len(report.Categories) != 2 {
		t.Fatalf("got %d category results, want 2", len(report.Categories))
	}
	for _, cat := range report.Categories {
		if cat.Err == "" {
			t.Fatalf("category %s should carry the sink error", cat.Category)
		}
	}
}

func TestBadCronSpecFailsConstruction(t *testing.T) {
	jobs := []Job{{Name: "bad", CronSpec: "not a cron spec", Categories: []string{"world"}}}
	if _, err := New(jobs, provider.NewFallbackFetcher(), &stubSink{}, 0, 20); err == nil {
		t.Fatalf("invalid cron spec should fail scheduler construction")
	}
}
