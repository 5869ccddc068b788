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

const newsapiMaxResponseBytes = 1 << 20 // 1MB

// newsapiCategories maps our vocabulary onto NewsAPI's taxonomy.
// crypto is handled separately via the /everything keyword query.
var newsapiCategories = map[string]string{
	"world":    "general",
	"ai":       "technology",
	"politics": "general",
	"local":    "general",
	"crypto":   "technology",
}

// NewsAPIFetcher pulls headlines from newsapi.org.
type NewsAPIFetcher struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

func NewNewsAPIFetcher(apiKey string) *NewsAPIFetcher {
	return &NewsAPIFetcher{
		APIKey:  apiKey,
		BaseURL: "https://newsapi.org",
		Client:  &http.Client{Timeout: defaultClientTimeout},
	}
}

func (f *NewsAPIFetcher) Name() string { return "newsapi" }

func (f *NewsAPIFetcher) Enabled() bool { return f.APIKey != "" }

type newsapiResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Source struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"source"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Content     string    `json:"content"`
		URL         string    `json:"url"`
		URLToImage  string    `json:"urlToImage"`
		PublishedAt time.Time `json:"publishedAt"`
	} `json:"articles"`
}

func (f *NewsAPIFetcher) FetchCategory(ctx context.Context, category string, limit int) ([]model.Article, error) {
	if !f.Enabled() {
		return nil, ErrMissingCredential
	}

	q := url.Values{}
	q.Set("apiKey", f.APIKey)
	q.Set("pageSize", fmt.Sprint(clampLimit(limit)))

	// NewsAPI has no crypto category; use full-text search instead.
	endpoint := f.BaseURL + "/v2/top-headlines"
	if category == "crypto" {
		endpoint = f.BaseURL + "/v2/everything"
		q.Set("q", cryptoQuery)
		q.Set("sortBy", "publishedAt")
	} else {
		q.Set("category", remap(newsapiCategories, category))
		q.Set("language", "en")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("newsapi: build request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsapi: fetch %s: %w", category, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamHTTPError{Provider: f.Name(), Status: resp.StatusCode}
	}

	var payload newsapiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, newsapiMaxResponseBytes)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("newsapi: decode: %w", err)
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
			ImageURL:    raw.URLToImage,
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
