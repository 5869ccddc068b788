// Package scheduler drives the cron ingestion path: per-cadence category
// lists, fallback-fetched and upserted into the persistence sink.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/newsfold/newsfold/internal/model"
	"github.com/newsfold/newsfold/internal/provider"
)

// Sink is where fetched batches land. *storage.Store is the production
// implementation.
type Sink interface {
	UpsertBatch(items []model.Article) (int, error)
}

// CategoryResult summarizes one category within a run.
type CategoryResult struct {
	Category string `json:"category"`
	Provider string `json:"provider,omitempty"`
	Fetched  int    `json:"fetched"`
	Written  int    `json:"written"`
	Err      string `json:"error,omitempty"`
}

// RunReport summarizes one ingestion run.
type RunReport struct {
	Categories []CategoryResult `json:"categories"`
	Duration   time.Duration    `json:"duration"`
}

// Job binds a category list to an update cadence. Fast-moving categories
// run on a short interval, the rest hourly.
type Job struct {
	Name       string
	CronSpec   string
	Categories []string
}

// Scheduler runs ingestion jobs on their cron cadences.
type Scheduler struct {
	cron     *cron.Cron
	jobs     []Job
	fallback *provider.FallbackFetcher
	sink     Sink
	// delay between categories, to avoid bursting provider rate limits.
	delay time.Duration
	limit int
}

func New(jobs []Job, fallback *provider.FallbackFetcher, sink Sink, delay time.Duration, limit int) (*Scheduler, error) {
	c := cron.New()
	if limit <= 0 {
		limit = 20
	}

	s := &Scheduler{
		cron:     c,
		jobs:     jobs,
		fallback: fallback,
		sink:     sink,
		delay:    delay,
		limit:    limit,
	}

	for _, job := range jobs {
		job := job
		if _, err := c.AddFunc(job.CronSpec, func() { s.runJob(context.Background(), job) }); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Cron exposes the underlying cron for extra entries.
func (s *Scheduler) Cron() *cron.Cron { return s.cron }

func (s *Scheduler) Start() {
	s.cron.Start()
	// Delay the first run so it does not compete with the first page loads.
	const startupDelay = 15 * time.Second
	time.AfterFunc(startupDelay, func() { go s.RunAll(context.Background()) })
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// RunAll executes every job once, sequentially. Used by the collect CLI
// and manual triggers.
func (s *Scheduler) RunAll(ctx context.Context) []RunReport {
	reports := make([]RunReport, 0, len(s.jobs))
	for _, job := range s.jobs {
		reports = append(reports, s.runJob(ctx, job))
	}
	return reports
}

func (s *Scheduler) runJob(ctx context.Context, job Job) RunReport {
	log.Printf("ingest: start job %s (%d categories)...", job.Name, len(job.Categories))
	start := time.Now()
	report := RunReport{Categories: make([]CategoryResult, 0, len(job.Categories))}

	for i, category := range job.Categories {
		if i > 0 && s.delay > 0 {
			time.Sleep(s.delay)
		}
		report.Categories = append(report.Categories, s.ingestCategory(ctx, category))
	}

	report.Duration = time.Since(start)
	log.Printf("ingest: job %s done in %s", job.Name, report.Duration)
	return report
}

func (s *Scheduler) ingestCategory(ctx context.Context, category string) CategoryResult {
	result := CategoryResult{Category: category}

	articles, attempts := s.fallback.FetchCategory(ctx, category, s.limit)
	for _, att := range attempts {
		if att.Count > 0 {
			result.Provider = att.Provider
		}
	}
	if len(articles) == 0 {
		result.Err = "no provider returned articles"
		log.Printf("ingest: %s got 0 articles from %d providers", category, len(attempts))
		return result
	}
	result.Fetched = len(articles)

	written, err := s.sink.UpsertBatch(articles)
	result.Written = written
	if err != nil {
		// A sink write failure is hard for this batch.
		result.Err = err.Error()
		log.Printf("ingest: save %s batch error: %v", category, err)
		return result
	}

	log.Printf("ingest: %s done, fetched=%d written=%d (via %s)", category, result.Fetched, written, result.Provider)
	return result
}
