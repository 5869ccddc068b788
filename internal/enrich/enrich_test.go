package enrich

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func scrapeFrom(t *testing.T, html string) (string, error) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)

	s := NewScraper(2 * time.Second)
	return s.ScrapeImage(context.Background(), srv.URL)
}

func TestScrapePrefersOGImage(t *testing.T) {
	img, err := scrapeFrom(t, `<html><head>
		<meta property="og:image" content="https://cdn.example.com/og.jpg"/>
		<meta name="twitter:image" content="https://cdn.example.com/tw.jpg"/>
	</head><body><img src="https://cdn.example.com/body.jpg"/></body></html>`)
	if err != nil {
		t.Fatalf("ScrapeImage error: %v", err)
	}
	if img != "https://cdn.example.com/og.jpg" {
		t.Fatalf("img = %q, want og:image", img)
	}
}

func TestScrapeFallsBackToTwitterImage(t *testing.T) {
	img, err := scrapeFrom(t, `<html><head>
		<meta name="twitter:image" content="https://cdn.example.com/tw.jpg"/>
	</head><body><img src="https://cdn.example.com/body.jpg"/></body></html>`)
	if err != nil {
		t.Fatalf("ScrapeImage error: %v", err)
	}
	if img != "https://cdn.example.com/tw.jpg" {
		t.Fatalf("img = %q, want twitter:image", img)
	}
}

func TestScrapeFallsBackToFirstImg(t *testing.T) {
	img, err := scrapeFrom(t, `<html><body>
		<img src="https://cdn.example.com/first.jpg"/>
		<img src="https://cdn.example.com/second.jpg"/>
	</body></html>`)
	if err != nil {
		t.Fatalf("ScrapeImage error: %v", err)
	}
	if img != "https://cdn.example.com/first.jpg" {
		t.Fatalf("img = %q, want the first <img>", img)
	}
}

func TestScrapeNoImageIsError(t *testing.T) {
	_, err := scrapeFrom(t, `<html><body><p>words only</p></body></html>`)
	if !errors.Is(err, ErrNoImage) {
		t.Fatalf("err = %v, want ErrNoImage", err)
	}
}

func TestScrapeNormalizesProtocolRelative(t *testing.T) {
	img, err := scrapeFrom(t, `<html><head>
		<meta property="og:image" content="//cdn.example.com/og.jpg"/>
	</head></html>`)
	if err != nil {
		t.Fatalf("ScrapeImage error: %v", err)
	}
	if img != "https://cdn.example.com/og.jpg" {
		t.Fatalf("img = %q, want https-upgraded URL", img)
	}
}

func TestNormalizeImageURL(t *testing.T) {
	tests := []struct {
		img  string
		page string
		want string
	}{
		{"//cdn.example.com/a.jpg", "https://site.example.com/post", "https://cdn.example.com/a.jpg"},
		{"https://cdn.example.com/a.jpg", "https://site.example.com/post", "https://cdn.example.com/a.jpg"},
		{"/images/a.jpg", "https://site.example.com/post/1", "https://site.example.com/images/a.jpg"},
	}
	for _, tt := range tests {
		if got := NormalizeImageURL(tt.img, tt.page); got != tt.want {
			t.Fatalf("NormalizeImageURL(%q, %q) = %q, want %q", tt.img, tt.page, got, tt.want)
		}
	}
}
