package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/newsfold/newsfold/internal/api"
	"github.com/newsfold/newsfold/internal/archive"
	"github.com/newsfold/newsfold/internal/config"
	"github.com/newsfold/newsfold/internal/enrich"
	"github.com/newsfold/newsfold/internal/model"
	"github.com/newsfold/newsfold/internal/provider"
	"github.com/newsfold/newsfold/internal/scheduler"
	"github.com/newsfold/newsfold/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// The DB sink backs the cron ingestion path. Without a DSN the archive
	// pipeline still runs; only the cron upserts and /articles are off.
	var sink *storage.Store
	if cfg.PostgresDSN != "" {
		sink, err = storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
		if err != nil {
			log.Fatalf("init store failed: %v", err)
		}
	} else {
		log.Printf("warn: POSTGRES_DSN empty, cron ingestion sink disabled")
	}

	rss := provider.NewRSSFetcher(nil)
	fallback := provider.NewFallbackFetcher(
		rss,
		provider.NewNewsAPIFetcher(cfg.NewsAPIKey),
		provider.NewGNewsFetcher(cfg.GNewsKey),
		provider.NewNewsDataFetcher(cfg.NewsDataKey),
		provider.NewMediastackFetcher(cfg.MediastackKey),
	)

	if dir := filepath.Dir(cfg.ArchivePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("create archive dir failed: %v", err)
		}
	}
	store := archive.NewStore(rss, archive.Options{
		Path:          cfg.ArchivePath,
		Retention:     cfg.Retention(),
		ImageFetchMax: cfg.ImageFetchMax,
		Scraper:       enrich.NewScraper(cfg.ImageFetchTimeout()),
	})
	if err := store.Load(); err != nil {
		log.Fatalf("load archive failed: %v", err)
	}

	cache := archive.NewCache(store, archive.CacheOptions{
		TTL:          cfg.CacheTTL(),
		MaxResponse:  cfg.MaxResponse,
		RecentWindow: cfg.RecentWindow(),
	})

	if sink != nil {
		jobs := []scheduler.Job{
			{Name: "fast", CronSpec: cfg.FastCronSpec, Categories: []string{"crypto", "world", "technology"}},
			{Name: "hourly", CronSpec: cfg.HourlyCronSpec, Categories: hourlyCategories()},
		}
		sched, err := scheduler.New(jobs, fallback, sink, cfg.CategoryDelay(), cfg.FetchLimit)
		if err != nil {
			log.Fatalf("init scheduler failed: %v", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	r := gin.Default()
	r.Use(api.CORSMiddleware(cfg.CORSAllowOrigin))
	api.NewServer(cache, store, sink, cfg.AdminToken).RegisterRoutes(r)

	go func() {
		addr := ":" + cfg.AppPort
		log.Printf("starting api server at %s ...", addr)
		if err := r.Run(addr); err != nil {
			log.Fatalf("server exit: %v", err)
		}
	}()

	// Flush the archive snapshot on shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	if err := store.Flush(); err != nil {
		log.Printf("flush archive error: %v", err)
	}
	log.Println("shutdown complete")
}

// hourlyCategories: everything not on the fast cadence.
func hourlyCategories() []string {
	fast := map[string]bool{"crypto": true, "world": true, "technology": true}
	var out []string
	for _, c := range model.Categories {
		if !fast[c] {
			out = append(out, c)
		}
	}
	return out
}
