package model

import (
	"strings"
	"time"
)

// PlaceholderImage is served when no provider or scrape supplied an image.
const PlaceholderImage = "/assets/news-placeholder.svg"

// DescriptionLimit bounds descriptions stored through the upsert sink.
const DescriptionLimit = 150

// Article is the canonical normalized news item. Every ingestion path
// (RSS archive merge, REST provider upsert) converges on this shape.
type Article struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content,omitempty"`
	URL         string `json:"url"`
	ImageURL    string `json:"imageUrl"`
	// PublishedAt is the ISO-8601 form; PublishedTs is its epoch-ms
	// companion used for sorting and recency filtering.
	PublishedAt string `json:"publishedAt"`
	PublishedTs int64  `json:"publishedTs"`
	Source      string `json:"source"`
	Category    string `json:"category"`
	// ArchivedAt is stamped (epoch ms) on first ingestion into the archive.
	ArchivedAt int64 `json:"archivedAt,omitempty"`
}

// EffectiveTs is the timestamp used for ordering and retention:
// published time when known, archive time otherwise.
func (a *Article) EffectiveTs() int64 {
	if a.PublishedTs != 0 {
		return a.PublishedTs
	}
	return a.ArchivedAt
}

// Categories is the fixed category vocabulary.
var Categories = []string{
	"world", "technology", "crypto", "business", "sports",
	"entertainment", "ai", "politics", "local", "health",
}

// ValidCategory reports whether c is in the vocabulary.
func ValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// TruncateDescription trims s to the sink description limit by rune count,
// so multi-byte text never gets cut mid-character.
func TruncateDescription(s string) string {
	return TruncateRunes(s, DescriptionLimit)
}

// TruncateRunes cuts s to at most limit runes, appending an ellipsis when
// anything was dropped.
func TruncateRunes(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 || s == "" {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit]) + "…"
}

// FormatTs renders an epoch-ms timestamp as ISO-8601 UTC.
func FormatTs(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

// ParseTs parses an ISO-8601 (or RFC1123) timestamp to epoch ms,
// returning 0 when the value is absent or unparseable.
func ParseTs(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	for _, layout := range []string{time.RFC3339, time.RFC1123Z, time.RFC1123, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}
