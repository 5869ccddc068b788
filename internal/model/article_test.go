package model

import (
	"testing"
	"time"
)

func TestTruncateRunesHandlesMultibyteAndEllipsis(t *testing.T) {
	s := "こんにちは世界、これは切り捨てロジックのテストです。"
	out := TruncateRunes(s, 5)
	if got := len([]rune(out)); got != 6 { // 5 runes + ellipsis
		t.Fatalf("TruncateRunes length = %d, want 6 (including ellipsis): %q", got, out)
	}

	full := TruncateRunes("short", 10)
	if full != "short" {
		t.Fatalf("TruncateRunes should keep original when under limit: %q", full)
	}

	if out := TruncateRunes("anything", 0); out != "" {
		t.Fatalf("TruncateRunes with limit 0 should be empty, got %q", out)
	}
}

func TestParseTsLayouts(t *testing.T) {
	want := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC).UnixMilli()

	cases := []string{
		"2025-03-14T09:30:00Z",
		"Fri, 14 Mar 2025 09:30:00 +0000",
		"2025-03-14 09:30:00",
	}
	for _, in := range cases {
		if got := ParseTs(in); got != want {
			t.Fatalf("ParseTs(%q) = %d, want %d", in, got, want)
		}
	}

	if got := ParseTs("not a date"); got != 0 {
		t.Fatalf("ParseTs on garbage = %d, want 0", got)
	}
	if got := ParseTs(""); got != 0 {
		t.Fatalf("ParseTs on empty = %d, want 0", got)
	}
}

func TestFormatTsRoundTrip(t *testing.T) {
	ms := int64(1741946400000)
	if got := ParseTs(FormatTs(ms)); got != ms {
		t.Fatalf("round trip = %d, want %d", got, ms)
	}
}

func TestEffectiveTsFallsBackToArchivedAt(t *testing.T) {
	a := Article{PublishedTs: 100, ArchivedAt: 200}
	if a.EffectiveTs() != 100 {
		t.Fatalf("EffectiveTs should prefer publishedTs")
	}
	a.PublishedTs = 0
	if a.EffectiveTs() != 200 {
		t.Fatalf("EffectiveTs should fall back to archivedAt")
	}
	a.ArchivedAt = 0
	if a.EffectiveTs() != 0 {
		t.Fatalf("EffectiveTs with nothing set should be 0")
	}
}

func TestValidCategory(t *testing.T) {
	if !ValidCategory("crypto") {
		t.Fatalf("crypto should be a valid category")
	}
	if ValidCategory("gossip") {
		t.Fatalf("gossip should not be a valid category")
	}
}
