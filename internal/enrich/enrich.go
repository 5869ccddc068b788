// Package enrich backfills article images by scraping the article page.
package enrich

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

// ErrNoImage means the page was fetched but held no usable image.
var ErrNoImage = errors.New("no image found on page")

// PageScraper extracts a representative image URL from an article page.
// It is an interface so the extraction strategy can be swapped without
// touching the archive merge.
type PageScraper interface {
	ScrapeImage(ctx context.Context, pageURL string) (string, error)
}

const defaultScrapeTimeout = 4 * time.Second

// Scraper is the colly-backed PageScraper. Extraction precedence:
// og:image, then twitter:image, then the first <img src>.
type Scraper struct {
	Timeout   time.Duration
	UserAgent string
}

func NewScraper(timeout time.Duration) *Scraper {
	if timeout <= 0 {
		timeout = defaultScrapeTimeout
	}
	return &Scraper{
		Timeout:   timeout,
		UserAgent: "newsfold-bot/1.0",
	}
}

func (s *Scraper) ScrapeImage(ctx context.Context, pageURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := colly.NewCollector(colly.UserAgent(s.UserAgent))
	c.SetRequestTimeout(s.Timeout)

	var ogImage, twitterImage, firstImg string

	c.OnHTML(`meta[property="og:image"]`, func(e *colly.HTMLElement) {
		if ogImage == "" {
			ogImage = e.Attr("content")
		}
	})
	c.OnHTML(`meta[name="twitter:image"]`, func(e *colly.HTMLElement) {
		if twitterImage == "" {
			twitterImage = e.Attr("content")
		}
	})
	c.OnHTML("img[src]", func(e *colly.HTMLElement) {
		if firstImg == "" {
			firstImg = e.Attr("src")
		}
	})

	if err := c.Visit(pageURL); err != nil {
		return "", err
	}

	for _, candidate := range []string{ogImage, twitterImage, firstImg} {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			return NormalizeImageURL(candidate, pageURL), nil
		}
	}
	return "", ErrNoImage
}

// NormalizeImageURL upgrades protocol-relative URLs to https and resolves
// page-relative paths against the article URL.
func NormalizeImageURL(img, pageURL string) string {
	if strings.HasPrefix(img, "//") {
		return "https:" + img
	}
	if strings.HasPrefix(img, "http://") || strings.HasPrefix(img, "https://") {
		return img
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return img
	}
	ref, err := url.Parse(img)
	if err != nil {
		return img
	}
	return base.ResolveReference(ref).String()
}
