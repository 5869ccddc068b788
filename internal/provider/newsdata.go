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

const newsdataMaxResponseBytes = 1 << 20 // 1MB

// newsdataCategories maps our vocabulary onto NewsData.io categories.
var newsdataCategories = map[string]string{
	"ai":     "technology",
	"crypto": "technology",
	"local":  "top",
}

// NewsDataFetcher pulls headlines from newsdata.io.
type NewsDataFetcher struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

func NewNewsDataFetcher(apiKey string) *NewsDataFetcher {
	return &NewsDataFetcher{
		APIKey:  apiKey,
		BaseURL: "https://newsdata.io",
		Client:  &http.Client{Timeout: defaultClientTimeout},
	}
}

func (f *NewsDataFetcher) Name() string { return "newsdata" }

func (f *NewsDataFetcher) Enabled() bool { return f.APIKey != "" }

type newsdataResponse struct {
	Status  string `json:"status"`
	Results []struct {
		ArticleID   string `json:"article_id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Content     string `json:"content"`
		Link        string `json:"link"`
		ImageURL    string `json:"image_url"`
		PubDate     string `json:"pubDate"`
		SourceID    string `json:"source_id"`
		SourceName  string `json:"source_name"`
	} `json:"results"`
}

func (f *NewsDataFetcher) FetchCategory(ctx context.Context, category string, limit int) ([]model.Article, error) {
	if !f.Enabled() {
		return nil, ErrMissingCredential
	}

	q := url.Values{}
	q.Set("apikey", f.APIKey)
	q.Set("language", "en")
	if category == "crypto" {
		q.Set("q", "cryptocurrency")
	}
	q.Set("category", remap(newsdataCategories, category))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+"/api/1/latest?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("newsdata: build request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsdata: fetch %s: %w", category, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamHTTPError{Provider: f.Name(), Status: resp.StatusCode}
	}

	var payload newsdataResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, newsdataMaxResponseBytes)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("newsdata: decode: %w", err)
	}
	if len(payload.Results) == 0 {
		return nil, ErrEmptyResult
	}

	limit = clampLimit(limit)
	out := make([]model.Article, 0, len(payload.Results))
	for _, raw := range payload.Results {
		if len(out) >= limit {
			break
		}
		source := raw.SourceName
		if source == "" {
			source = raw.SourceID
		}
		// NewsData's pubDate is "2006-01-02 15:04:05" in UTC.
		ts := model.ParseTs(raw.PubDate)
		a := model.Article{
			ID:          raw.ArticleID,
			Title:       raw.Title,
			Description: raw.Description,
			Content:     raw.Content,
			URL:         raw.Link,
			ImageURL:    raw.ImageURL,
			Source:      source,
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
