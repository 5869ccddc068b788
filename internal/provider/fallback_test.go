package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/newsfold/newsfold/internal/model"
)

type stubFetcher struct {
	name     string
	enabled  bool
	articles []model.Article
	err      error
	calls    int
}

func (s *stubFetcher) Name() string  { return s.name }
func (s *stubFetcher) Enabled() bool { return s.enabled }

func (s *stubFetcher) FetchCategory(ctx context.Context, category string, limit int) ([]model.Article, error) {
	s.calls++
	return s.articles, s.err
}

func TestFallbackFirstSuccessStopsChain(t *testing.T) {
	a := &stubFetcher{name: "a", enabled: true, articles: []model.Article{{Title: "x"}}}
	b := &stubFetcher{name: "b", enabled: true, articles: []model.Article{{Title: "y"}}}

	f := NewFallbackFetcher(a, b)
	articles, attempts := f.FetchCategory(context.Background(), "world", 10)

	if len(articles) != 1 || articles[0].Title != "x" {
		t.Fatalf("unexpected result: %+v", articles)
	}
	if b.calls != 0 {
		t.Fatalf("provider b should never be invoked when a succeeds")
	}
	if len(attempts) != 1 || attempts[0].Provider != "a" || attempts[0].Count != 1 {
		t.Fatalf("unexpected attempts: %+v", attempts)
	}
}

func TestFallbackSkipsDisabledAndFailed(t *testing.T) {
	disabled := &stubFetcher{name: "disabled", enabled: false}
	failing := &stubFetcher{name: "failing", enabled: true, err: &UpstreamHTTPError{Provider: "failing", Status: 500}}
	empty := &stubFetcher{name: "empty", enabled: true, err: ErrEmptyResult}
	ok := &stubFetcher{name: "ok", enabled: true, articles: []model.Article{{Title: "z"}}}

	f := NewFallbackFetcher(disabled, failing, empty, ok)
	articles, attempts := f.FetchCategory(context.Background(), "world", 10)

	if len(articles) != 1 {
		t.Fatalf("expected the last provider to serve, got %+v", articles)
	}
	if len(attempts) != 4 {
		t.Fatalf("expected 4 attempts, got %d", len(attempts))
	}
	if !errors.Is(attempts[0].Err, ErrMissingCredential) {
		t.Fatalf("disabled provider should record ErrMissingCredential, got %v", attempts[0].Err)
	}
	if !errors.Is(attempts[2].Err, ErrEmptyResult) {
		t.Fatalf("empty provider should record ErrEmptyResult, got %v", attempts[2].Err)
	}
	if disabled.calls != 0 {
		t.Fatalf("disabled provider should never be called")
	}
}

func TestFallbackAllFailReturnsEmptyNotError(t *testing.T) {
	a := &stubFetcher{name: "a", enabled: true, err: ErrEmptyResult}
	b := &stubFetcher{name: "b", enabled: false}

	f := NewFallbackFetcher(a, b)
	articles, attempts := f.FetchCategory(context.Background(), "world", 10)

	if articles != nil {
		t.Fatalf("all-fail should yield nil articles, got %+v", articles)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}
}
