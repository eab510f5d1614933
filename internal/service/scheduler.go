package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ngx_scraper/internal/models"
)

// DefaultScrapeInterval is the pause between two runs.
const DefaultScrapeInterval = 60 * time.Second

// RunPublisher accepts the result of a finished run.
type RunPublisher interface {
	Publish(ctx context.Context, result *models.RunResult) (bool, error)
}

// Scheduler runs the scraper forever on a fixed interval. Runs never overlap:
// the interval is measured from the end of one run to the start of the next.
type Scheduler struct {
	scraper   PriceListService
	publisher RunPublisher
	interval  time.Duration
	logger    *slog.Logger
}

// NewScheduler creates a scheduler.
func NewScheduler(scraper PriceListService, publisher RunPublisher, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultScrapeInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scraper:   scraper,
		publisher: publisher,
		interval:  interval,
		logger:    logger.With("component", "scheduler"),
	}
}

// Run loops until ctx is cancelled. Cancellation is only observed between
// runs; a run in progress always finishes, including its browser teardown.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)
	for ctx.Err() == nil {
		s.RunOnce(context.WithoutCancel(ctx))

		select {
		case <-ctx.Done():
		case <-time.After(s.interval):
		}
	}
	s.logger.Info("scheduler stopped")
	return nil
}

// RunOnce performs a single scrape and publish. Failures are logged, never
// returned, so one bad run cannot stop the loop.
func (s *Scheduler) RunOnce(ctx context.Context) (result *models.RunResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scrape run panicked", "panic", fmt.Sprint(r))
		}
	}()

	result = s.scraper.ScrapeAll(ctx)
	logger := s.logger.With("run_id", result.RunID)
	logger.Info("scrape run finished",
		"state", result.State,
		"pages", result.Pages,
		"records", len(result.Records),
		"duration", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond),
	)

	if _, err := s.publisher.Publish(ctx, result); err != nil {
		logger.Error("failed to publish dataset", "error", err)
	}
	return result
}
