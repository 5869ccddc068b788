package main

import (
	"context"
	"log"

	"github.com/newsfold/newsfold/internal/archive"
	"github.com/newsfold/newsfold/internal/config"
	"github.com/newsfold/newsfold/internal/enrich"
	"github.com/newsfold/newsfold/internal/provider"
	"github.com/newsfold/newsfold/internal/scheduler"
	"github.com/newsfold/newsfold/internal/storage"
)

// A run-once ingestion entry point: one archive merge plus one pass of the
// cron category jobs, then exit. Suited to manual backfills.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	ctx := context.Background()

	rss := provider.NewRSSFetcher(nil)
	store := archive.NewStore(rss, archive.Options{
		Path:          cfg.ArchivePath,
		Retention:     cfg.Retention(),
		ImageFetchMax: cfg.ImageFetchMax,
		Scraper:       enrich.NewScraper(cfg.ImageFetchTimeout()),
	})
	if err := store.Load(); err != nil {
		log.Fatalf("load archive failed: %v", err)
	}

	res, err := store.Merge(ctx)
	if err != nil {
		log.Printf("archive merge error: %v", err)
	}
	log.Printf("archive merge: new=%d total=%d errors=%d", res.NewCount, res.Total, len(res.Errors))

	if cfg.PostgresDSN == "" {
		log.Println("POSTGRES_DSN empty, skipping sink ingestion")
		return
	}

	sink, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}

	fallback := provider.NewFallbackFetcher(
		rss,
		provider.NewNewsAPIFetcher(cfg.NewsAPIKey),
		provider.NewGNewsFetcher(cfg.GNewsKey),
		provider.NewNewsDataFetcher(cfg.NewsDataKey),
		provider.NewMediastackFetcher(cfg.MediastackKey),
	)

	jobs := []scheduler.Job{
		{Name: "all", CronSpec: "@hourly", Categories: []string{
			"world", "technology", "crypto", "business", "sports",
			"entertainment", "ai", "politics", "local", "health",
		}},
	}
	sched, err := scheduler.New(jobs, fallback, sink, cfg.CategoryDelay(), cfg.FetchLimit)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}

	for _, report := range sched.RunAll(ctx) {
		for _, cat := range report.Categories {
			if cat.Err != "" {
				log.Printf("collect: %s failed: %s", cat.Category, cat.Err)
				continue
			}
			log.Printf("collect: %s fetched=%d written=%d via %s", cat.Category, cat.Fetched, cat.Written, cat.Provider)
		}
		log.Printf("collect: job done in %s", report.Duration)
	}
}
