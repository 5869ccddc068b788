package provider

import (
	"context"
	"errors"
	"log"

	"github.com/newsfold/newsfold/internal/model"
)

// Attempt records one provider try within a fallback pass.
type Attempt struct {
	Provider string
	Count    int
	Err      error
}

// FallbackFetcher tries providers in fixed configuration order and returns
// the first non-empty result. It never errors to the caller: when every
// provider fails or is disabled it returns an empty slice plus the attempt
// log.
type FallbackFetcher struct {
	Providers []Fetcher
}

func NewFallbackFetcher(providers ...Fetcher) *FallbackFetcher {
	return &FallbackFetcher{Providers: providers}
}

func (f *FallbackFetcher) FetchCategory(ctx context.Context, category string, limit int) ([]model.Article, []Attempt) {
	attempts := make([]Attempt, 0, len(f.Providers))
	for _, p := range f.Providers {
		if !p.Enabled() {
			attempts = append(attempts, Attempt{Provider: p.Name(), Err: ErrMissingCredential})
			continue
		}
		articles, err := p.FetchCategory(ctx, category, limit)
		if err != nil {
			if !errors.Is(err, ErrEmptyResult) {
				log.Printf("fallback: %s %s error: %v", p.Name(), category, err)
			}
			attempts = append(attempts, Attempt{Provider: p.Name(), Err: err})
			continue
		}
		if len(articles) == 0 {
			attempts = append(attempts, Attempt{Provider: p.Name(), Err: ErrEmptyResult})
			continue
		}
		attempts = append(attempts, Attempt{Provider: p.Name(), Count: len(articles)})
		return articles, attempts
	}
	return nil, attempts
}
