package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ngx_scraper/internal/models"
	"ngx_scraper/internal/parser"
	"ngx_scraper/internal/repository"
)

// Defaults for a scrape run.
const (
	DefaultTargetURL  = "https://ngxgroup.com/exchange/data/equities-price-list/"
	DefaultTotalPages = 6
	DefaultRenderWait = 5 * time.Second
)

// ScrapeOptions configures one pass over the paginated price list.
type ScrapeOptions struct {
	URL        string
	TotalPages int
	// RenderWait is slept after the first load and after every page change.
	RenderWait time.Duration
}

// PriceListService defines the business logic contract.
type PriceListService interface {
	// ScrapeAll walks the price list and returns every record it could read.
	// It does not fail: a run that stops early reports State RunFailed and
	// keeps the records of the pages it finished.
	ScrapeAll(ctx context.Context) *models.RunResult
}

// priceListService is the concrete service implementation. It depends on the
// repository for browser control and on the parser for table extraction.
type priceListService struct {
	Repo   repository.PriceListRepository
	Parser parser.TableParser
	opts   ScrapeOptions
	logger *slog.Logger
}

// NewPriceListService creates a new service instance with both dependencies.
func NewPriceListService(repo repository.PriceListRepository, p parser.TableParser, opts ScrapeOptions, logger *slog.Logger) PriceListService {
	if opts.URL == "" {
		opts.URL = DefaultTargetURL
	}
	if opts.TotalPages < 1 {
		opts.TotalPages = DefaultTotalPages
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &priceListService{
		Repo:   repo,
		Parser: p,
		opts:   opts,
		logger: logger.With("component", "scraper"),
	}
}

// ScrapeAll opens the price list, extracts the table on each page and clicks
// through to the next one until TotalPages pages are read, the last page is
// reached, or navigation fails. The browser session is closed on every path.
func (s *priceListService) ScrapeAll(ctx context.Context) (result *models.RunResult) {
	result = &models.RunResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	logger := s.logger.With("run_id", result.RunID)

	defer func() {
		if r := recover(); r != nil {
			s.fail(logger, result, fmt.Errorf("panic during scrape: %v", r))
		}
		if err := s.Repo.Close(); err != nil {
			logger.Warn("failed to close browser session", "error", err)
		}
		result.FinishedAt = time.Now()
	}()

	if err := s.Repo.Open(ctx, s.opts.URL); err != nil {
		return s.fail(logger, result, fmt.Errorf("could not open %s: %w", s.opts.URL, err))
	}
	if err := s.Repo.WaitForRender(ctx, s.opts.RenderWait); err != nil {
		return s.fail(logger, result, err)
	}

	for page := 1; ; page++ {
		if err := s.extractPage(ctx, logger, result, page); err != nil {
			return s.fail(logger, result, err)
		}

		if page >= s.opts.TotalPages {
			logger.Info("reached the designated number of pages to scrape", "pages", page)
			result.State = models.RunDone
			return result
		}

		err := s.Repo.Advance(ctx, page)
		if errors.Is(err, repository.ErrNoNextPage) {
			logger.Info("no next page link found; reached the last page", "page", page)
			result.State = models.RunDone
			return result
		}
		if err != nil {
			return s.fail(logger, result, err)
		}
		if err := s.Repo.WaitForRender(ctx, s.opts.RenderWait); err != nil {
			return s.fail(logger, result, err)
		}
	}
}

// extractPage appends the current page's records. Only a failure to read the
// page from the browser is returned; parse problems stay local to the page.
func (s *priceListService) extractPage(ctx context.Context, logger *slog.Logger, result *models.RunResult, page int) error {
	doc, err := s.Repo.Content(ctx)
	if err != nil {
		return fmt.Errorf("failed to read page %d: %w", page, err)
	}
	result.Pages = page

	records, err := s.Parser.ParseRecords(ctx, doc)
	switch {
	case err != nil:
		logger.Warn("failed to extract records", "page", page, "error", err)
	case len(records) == 0:
		logger.Info("no records found on page", "page", page)
	default:
		result.Records = append(result.Records, records...)
		logger.Info("scraped records", "page", page, "count", len(records))
	}
	return nil
}

func (s *priceListService) fail(logger *slog.Logger, result *models.RunResult, err error) *models.RunResult {
	logger.Error("scrape run stopped early",
		"error", err,
		"pages", result.Pages,
		"records", len(result.Records),
	)
	result.State = models.RunFailed
	result.Err = err
	return result
}
