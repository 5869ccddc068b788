package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/newsfold/newsfold/internal/model"
)

const gnewsMaxResponseBytes = 1 << 20 // 1MB

// gnewsCategories maps our vocabulary onto GNews topics.
var gnewsCategories = map[string]string{
	"crypto":   "technology",
	"ai":       "technology",
	"politics": "nation",
	"local":    "nation",
}

// GNewsFetcher pulls headlines from gnews.io.
type GNewsFetcher struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

func NewGNewsFetcher(apiKey string) *GNewsFetcher {
	return &GNewsFetcher{
		APIKey:  apiKey,
		BaseURL: "https://gnews.io",
		Client:  &http.Client{Timeout: defaultClientTimeout},
	}
}

func (f *GNewsFetcher) Name() string { return "gnews" }

func (f *GNewsFetcher) Enabled() bool { return f.APIKey != "" }

type gnewsResponse struct {
	Articles []struct {
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Content     string    `json:"content"`
		URL         string    `json:"url"`
		Image       string    `json:"image"`
		PublishedAt time.Time `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"source"`
	} `json:"articles"`
}

func (f *GNewsFetcher) FetchCategory(ctx context.Context, category string, limit int) ([]model.Article, error) {
	if !f.Enabled() {
		return nil, ErrMissingCredential
	}

	q := url.Values{}
	q.Set("apikey", f.APIKey)
	q.Set("lang", "en")
	q.Set("max", fmt.Sprint(clampLimit(limit)))

	// GNews supports full-text search, so crypto keeps its keyword query
	// on top of the technology topic remap.
	if category == "crypto" {
		q.Set("q", cryptoQuery)
	}
	q.Set("category", remap(gnewsCategories, category))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+"/api/v4/top-headlines?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("gnews: build request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gnews: fetch %s: %w", category, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamHTTPError{Provider: f.Name(), Status: resp.StatusCode}
	}

	var payload gnewsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, gnewsMaxResponseBytes)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("gnews: decode: %w", err)
	}
	if len(payload.Articles) == 0 {
		return nil, ErrEmptyResult
	}

	out := make([]model.Article, 0, len(payload.Articles))
	for _, raw := range payload.Articles {
		a := model.Article{
			ID:          synthesizeID(f.Name(), raw.URL),
			Title:       raw.Title,
			Description: raw.Description,
			Content:     raw.Content,
			URL:         raw.URL,
			ImageURL:    raw.Image,
			Source:      raw.Source.Name,
			Category:    category,
		}
		if !raw.PublishedAt.IsZero() {
			a.PublishedTs = raw.PublishedAt.UnixMilli()
			a.PublishedAt = raw.PublishedAt.UTC().Format(time.RFC3339)
		}
		out = append(out, normalize(a, f.Name()))
	}
	return out, nil
}
