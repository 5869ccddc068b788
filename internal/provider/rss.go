package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/newsfold/newsfold/internal/model"
)

// FeedSource is one configured RSS/Atom feed.
type FeedSource struct {
	Name     string
	URL      string
	Category string
}

// DefaultFeeds is the built-in feed list, grouped by category.
var DefaultFeeds = []FeedSource{
	{Name: "BBC World", URL: "https://feeds.bbci.co.uk/news/world/rss.xml", Category: "world"},
	{Name: "Reuters World", URL: "https://www.reutersagency.com/feed/?best-topics=world", Category: "world"},
	{Name: "The Verge", URL: "https://www.theverge.com/rss/index.xml", Category: "technology"},
	{Name: "Ars Technica", URL: "https://feeds.arstechnica.com/arstechnica/index", Category: "technology"},
	{Name: "CoinDesk", URL: "https://www.coindesk.com/arc/outboundfeeds/rss/", Category: "crypto"},
	{Name: "CoinTelegraph", URL: "https://cointelegraph.com/rss", Category: "crypto"},
	{Name: "CNBC Business", URL: "https://www.cnbc.com/id/10001147/device/rss/rss.html", Category: "business"},
	{Name: "BBC Sport", URL: "https://feeds.bbci.co.uk/sport/rss.xml", Category: "sports"},
	{Name: "Variety", URL: "https://variety.com/feed/", Category: "entertainment"},
	{Name: "MIT Tech Review AI", URL: "https://www.technologyreview.com/feed/", Category: "ai"},
	{Name: "Politico", URL: "https://rss.politico.com/politics-news.xml", Category: "politics"},
	{Name: "BBC Health", URL: "https://feeds.bbci.co.uk/news/health/rss.xml", Category: "health"},
}

// RSSFetcher parses configured feeds via gofeed. It serves both as the
// first provider in the fallback chain and as the archive's bulk source.
type RSSFetcher struct {
	Sources []FeedSource
	parser  *gofeed.Parser
}

func NewRSSFetcher(sources []FeedSource) *RSSFetcher {
	if len(sources) == 0 {
		sources = DefaultFeeds
	}
	return &RSSFetcher{Sources: sources, parser: gofeed.NewParser()}
}

func (f *RSSFetcher) Name() string { return "rss" }

// Enabled is always true: feeds need no credential.
func (f *RSSFetcher) Enabled() bool { return true }

func (f *RSSFetcher) FetchCategory(ctx context.Context, category string, limit int) ([]model.Article, error) {
	limit = clampLimit(limit)
	var out []model.Article
	var lastErr error
	for _, src := range f.Sources {
		if src.Category != category {
			continue
		}
		feed, err := f.parser.ParseURLWithContext(src.URL, ctx)
		if err != nil {
			lastErr = fmt.Errorf("rss: fetch %s: %w", src.Name, err)
			continue
		}
		for _, item := range feed.Items {
			if len(out) >= limit {
				break
			}
			out = append(out, NormalizeFeedItem(item, src.Name, category))
		}
	}
	if len(out) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, ErrEmptyResult
	}
	return out, nil
}

// FeedResult is one feed's outcome inside a fan-out collection pass.
type FeedResult struct {
	Source   FeedSource
	Articles []model.Article
	Err      error
}

// FetchAll parses every configured feed concurrently. A feed's failure is
// recorded in its result and never blocks the others.
func (f *RSSFetcher) FetchAll(ctx context.Context) []FeedResult {
	results := make([]FeedResult, len(f.Sources))
	var wg sync.WaitGroup
	for i, src := range f.Sources {
		wg.Add(1)
		go func(i int, src FeedSource) {
			defer wg.Done()
			feed, err := f.parser.ParseURLWithContext(src.URL, ctx)
			if err != nil {
				results[i] = FeedResult{Source: src, Err: fmt.Errorf("rss: fetch %s: %w", src.Name, err)}
				return
			}
			articles := make([]model.Article, 0, len(feed.Items))
			for _, item := range feed.Items {
				articles = append(articles, NormalizeFeedItem(item, src.Name, src.Category))
			}
			results[i] = FeedResult{Source: src, Articles: articles}
		}(i, src)
	}
	wg.Wait()
	return results
}

// NormalizeFeedItem maps one raw feed item into the canonical Article.
// Every branch has a default; malformed items never error.
func NormalizeFeedItem(item *gofeed.Item, feedName, category string) model.Article {
	a := model.Article{
		ID:          item.GUID,
		Title:       item.Title,
		Description: stripHTML(item.Description),
		Content:     item.Content,
		URL:         item.Link,
		ImageURL:    extractFeedImage(item),
		Source:      feedName,
		Category:    category,
	}
	if a.Description == "" {
		a.Description = stripHTML(item.Content)
	}
	// Published date is left absent when unparseable; the archive merge
	// backfills it from the archive time.
	if item.PublishedParsed != nil {
		a.PublishedTs = item.PublishedParsed.UnixMilli()
	} else if item.UpdatedParsed != nil {
		a.PublishedTs = item.UpdatedParsed.UnixMilli()
	}
	if a.PublishedTs != 0 {
		a.PublishedAt = time.UnixMilli(a.PublishedTs).UTC().Format(time.RFC3339)
	}
	return normalize(a, feedName)
}

// extractFeedImage tries each image location in precedence order:
// enclosure, media-namespace fields, first <img> in embedded HTML.
// Each strategy is total; the first hit wins.
func extractFeedImage(item *gofeed.Item) string {
	strategies := []func(*gofeed.Item) string{
		imageFromEnclosure,
		imageFromItemImage,
		imageFromMediaExtensions,
		imageFromEmbeddedHTML,
	}
	for _, try := range strategies {
		if u := try(item); u != "" {
			return u
		}
	}
	return ""
}

func imageFromEnclosure(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if strings.HasPrefix(enc.Type, "image/") || enc.Type == "" {
			return enc.URL
		}
	}
	return ""
}

func imageFromItemImage(item *gofeed.Item) string {
	if item.Image != nil {
		return item.Image.URL
	}
	return ""
}

func imageFromMediaExtensions(item *gofeed.Item) string {
	media, ok := item.Extensions["media"]
	if !ok {
		return ""
	}
	for _, key := range []string{"content", "thumbnail"} {
		for _, ext := range media[key] {
			if u := ext.Attrs["url"]; u != "" {
				return u
			}
		}
	}
	// media:group nests content/thumbnail one level down.
	for _, group := range media["group"] {
		for _, key := range []string{"content", "thumbnail"} {
			for _, ext := range group.Children[key] {
				if u := ext.Attrs["url"]; u != "" {
					return u
				}
			}
		}
	}
	return ""
}

func imageFromEmbeddedHTML(item *gofeed.Item) string {
	for _, html := range []string{item.Content, item.Description} {
		if u := firstImgSrc(html); u != "" {
			return u
		}
	}
	return ""
}

// firstImgSrc sniffs the first <img src> out of an HTML fragment.
func firstImgSrc(html string) string {
	if !strings.Contains(html, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return src
}

// stripHTML flattens an HTML fragment to whitespace-normalized text.
func stripHTML(s string) string {
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "<>") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}
