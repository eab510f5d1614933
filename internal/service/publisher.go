package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ngx_scraper/internal/dataset"
	"ngx_scraper/internal/export"
	"ngx_scraper/internal/models"
	"ngx_scraper/internal/repository"
)

// DefaultCSVFile is where the dataset is written after every successful run.
const DefaultCSVFile = "equities_data.csv"

// Publisher hands the records of a finished run to everything that serves them.
type Publisher struct {
	store     *dataset.Store
	csvPath   string
	snapshots repository.SnapshotRepository
	logger    *slog.Logger
}

// NewPublisher creates a publisher. snapshots may be nil when no database is configured.
func NewPublisher(store *dataset.Store, csvPath string, snapshots repository.SnapshotRepository, logger *slog.Logger) *Publisher {
	if csvPath == "" {
		csvPath = DefaultCSVFile
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		store:     store,
		csvPath:   csvPath,
		snapshots: snapshots,
		logger:    logger.With("component", "publisher"),
	}
}

// CSVPath returns the file the publisher writes.
func (p *Publisher) CSVPath() string {
	return p.csvPath
}

// Publish replaces the current dataset with the run's records, rewrites the
// CSV file and stores the snapshot. A run without records changes nothing.
// The in-memory dataset is replaced even when writing the CSV or the database
// fails; those errors are returned joined.
func (p *Publisher) Publish(ctx context.Context, result *models.RunResult) (bool, error) {
	logger := p.logger.With("run_id", result.RunID)
	if len(result.Records) == 0 {
		logger.Warn("no data scraped from any page; keeping the previous dataset")
		return false, nil
	}

	snapshot := result.Snapshot()
	p.store.Publish(snapshot)

	var errs []error
	dropped, err := export.WriteCSVFile(p.csvPath, snapshot)
	if err != nil {
		errs = append(errs, fmt.Errorf("csv: %w", err))
	} else {
		logger.Info("CSV file updated", "path", p.csvPath, "records", len(snapshot.Records))
	}
	if dropped > 0 {
		logger.Warn("records with columns outside the CSV header", "count", dropped, "header", snapshot.Headers())
	}

	if p.snapshots != nil {
		if err := p.snapshots.ReplaceSnapshot(ctx, snapshot); err != nil {
			errs = append(errs, fmt.Errorf("snapshot store: %w", err))
		}
	}

	logger.Info("dataset published",
		"records", len(snapshot.Records),
		"scraped_at", snapshot.ScrapedAt,
	)
	return true, errors.Join(errs...)
}
