package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/newsfold/newsfold/internal/model"
)

// Fetcher abstracts one upstream news source.
type Fetcher interface {
	Name() string
	// Enabled reports whether the provider is usable (credential present).
	Enabled() bool
	FetchCategory(ctx context.Context, category string, limit int) ([]model.Article, error)
}

var (
	// ErrMissingCredential means the provider's API key is absent from
	// configuration. The provider is disabled, not broken.
	ErrMissingCredential = errors.New("missing provider credential")

	// ErrEmptyResult means the upstream responded fine but the payload had
	// zero items. Callers treat this as a soft failure and move on.
	ErrEmptyResult = errors.New("empty provider result")
)

// UpstreamHTTPError is returned when a provider responds with a
// non-successful status code.
type UpstreamHTTPError struct {
	Provider string
	Status   int
}

func (e *UpstreamHTTPError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Provider, e.Status)
}

const defaultClientTimeout = 10 * time.Second

// cryptoQuery is the full-text query used on providers that have no crypto
// category but support keyword search.
const cryptoQuery = "cryptocurrency OR bitcoin OR ethereum"

// remap resolves our category vocabulary to a provider's taxonomy using a
// static table; categories missing from the table pass through as-is.
func remap(table map[string]string, category string) string {
	if mapped, ok := table[category]; ok {
		return mapped
	}
	return category
}

// normalize fills every optional Article field so no record ever leaves an
// adapter with an empty title, description, image or source.
func normalize(a model.Article, providerName string) model.Article {
	a.Title = strings.TrimSpace(a.Title)
	if a.Title == "" {
		a.Title = "Untitled article"
	}
	a.Description = strings.TrimSpace(a.Description)
	if a.Description == "" {
		if a.Content != "" {
			a.Description = a.Content
		} else {
			a.Description = a.Title
		}
	}
	if a.ImageURL == "" {
		a.ImageURL = model.PlaceholderImage
	}
	if a.Source == "" {
		a.Source = providerName
	}
	if a.ID == "" {
		a.ID = synthesizeID(providerName, a.URL)
	}
	if a.PublishedTs == 0 && a.PublishedAt != "" {
		a.PublishedTs = model.ParseTs(a.PublishedAt)
	}
	if a.PublishedAt == "" && a.PublishedTs != 0 {
		a.PublishedAt = model.FormatTs(a.PublishedTs)
	}
	return a
}

// synthesizeID derives a stable-ish id from the URL suffix, falling back to
// a provider-timestamp-random form for URL-less items. Not collision-proof
// across providers; dedupe never relies on it alone.
func synthesizeID(providerName, url string) string {
	if url != "" {
		trimmed := strings.TrimRight(url, "/")
		if idx := strings.LastIndex(trimmed, "/"); idx >= 0 && idx < len(trimmed)-1 {
			return providerName + "-" + trimmed[idx+1:]
		}
	}
	return fmt.Sprintf("%s-%d-%s", providerName, time.Now().UnixMilli(), uuid.NewString()[:8])
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
