package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/newsfold/newsfold/internal/model"
)

const mediastackMaxResponseBytes = 1 << 20 // 1MB

// mediastackCategories maps our vocabulary onto Mediastack categories.
var mediastackCategories = map[string]string{
	"world":    "general",
	"crypto":   "technology",
	"ai":       "technology",
	"politics": "general",
	"local":    "general",
}

// MediastackFetcher pulls headlines from mediastack.com.
type MediastackFetcher struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

func NewMediastackFetcher(apiKey string) *MediastackFetcher {
	return &MediastackFetcher{
		APIKey:  apiKey,
		BaseURL: "http://api.mediastack.com",
		Client:  &http.Client{Timeout: defaultClientTimeout},
	}
}

func (f *MediastackFetcher) Name() string { return "mediastack" }

func (f *MediastackFetcher) Enabled() bool { return f.APIKey != "" }

type mediastackResponse struct {
	Data []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		Image       string `json:"image"`
		PublishedAt string `json:"published_at"`
		Source      string `json:"source"`
		Category    string `json:"category"`
	} `json:"data"`
}

func (f *MediastackFetcher) FetchCategory(ctx context.Context, category string, limit int) ([]model.Article, error) {
	if !f.Enabled() {
		return nil, ErrMissingCredential
	}

	q := url.Values{}
	q.Set("access_key", f.APIKey)
	q.Set("languages", "en")
	q.Set("limit", fmt.Sprint(clampLimit(limit)))
	if category == "crypto" {
		q.Set("keywords", "cryptocurrency")
	}
	q.Set("categories", remap(mediastackCategories, category))
	q.Set("sort", "published_desc")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+"/v1/news?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("mediastack: build request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mediastack: fetch %s: %w", category, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamHTTPError{Provider: f.Name(), Status: resp.StatusCode}
	}

	var payload mediastackResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, mediastackMaxResponseBytes)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("mediastack: decode: %w", err)
	}
	if len(payload.Data) == 0 {
		return nil, ErrEmptyResult
	}

	out := make([]model.Article, 0, len(payload.Data))
	for _, raw := range payload.Data {
		ts := model.ParseTs(raw.PublishedAt)
		a := model.Article{
			ID:          synthesizeID(f.Name(), raw.URL),
			Title:       raw.Title,
			Description: raw.Description,
			URL:         raw.URL,
			ImageURL:    raw.Image,
			Source:      raw.Source,
			Category:    category,
			PublishedTs: ts,
		}
		if ts != 0 {
			a.PublishedAt = model.FormatTs(ts)
		}
		out = append(out, normalize(a, f.Name()))
	}
	return out, nil
}
