package service

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"ngx_scraper/internal/dataset"
	"ngx_scraper/internal/export"
	"ngx_scraper/internal/models"
	"ngx_scraper/internal/repository"
)

// WarmStart seeds store with the last persisted dataset so the API has data
// before the first run finishes. The stored snapshot wins when snapshots is
// set; otherwise the CSV file at csvPath is used. Failures are logged and
// leave the store empty.
func WarmStart(ctx context.Context, store *dataset.Store, snapshots repository.SnapshotRepository, csvPath string, logger *slog.Logger) bool {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "warmstart")

	var (
		snap   *models.Snapshot
		err    error
		source string
	)
	if snapshots != nil {
		source = "database"
		snap, err = snapshots.LatestSnapshot(ctx)
	} else {
		if csvPath == "" {
			csvPath = DefaultCSVFile
		}
		source = csvPath
		snap, err = export.ReadCSVFile(csvPath)
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info("no previous CSV file", "path", csvPath)
			return false
		}
	}
	if err != nil {
		logger.Warn("could not load previous dataset", "source", source, "error", err)
		return false
	}

	if !store.Publish(snap) {
		logger.Info("previous dataset is empty", "source", source)
		return false
	}
	logger.Info("seeded dataset from previous run", "source", source, "records", len(snap.Records), "scraped_at", snap.ScrapedAt)
	return true
}
