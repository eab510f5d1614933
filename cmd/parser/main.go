package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"ngx_scraper/internal/config"
	"ngx_scraper/internal/dataset"
	"ngx_scraper/internal/logging"
	"ngx_scraper/internal/models"
	"ngx_scraper/internal/parser"
	"ngx_scraper/internal/repository"
	"ngx_scraper/internal/service"
	"ngx_scraper/pkg/headless"
)

// --- Main Application Logic ---
// One scrape of the whole price list, published to the CSV file and, when
// configured, the database.
func main() {
	// 1. Load configuration
	appConfig := config.Init()
	logger := logging.Init(appConfig.LogLevel, appConfig.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Database Connection (using GORM), optional
	var snapshots repository.SnapshotRepository
	if dsn := appConfig.DBConn; dsn != "" {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			PrepareStmt: true,
		})
		if err != nil {
			logger.Error("error connecting to database", "error", err)
			os.Exit(1)
		}
		snapshotRepo := repository.NewPostgresSnapshotRepository(db)
		if err := snapshotRepo.Init(ctx); err != nil {
			logger.Error("failed to run database auto-migration", "error", err)
			os.Exit(1)
		}
		logger.Info("database structure verified/migrated successfully")
		snapshots = snapshotRepo
	}

	// 3. Dependency Injection: Initialize components
	priceListRepo := repository.NewPriceListRepository(repository.HeadlessLauncher(headless.Options{
		Headless:      appConfig.Headless,
		ActionTimeout: appConfig.ActionTimeout,
		Logger:        logger,
	}), appConfig.NextLinkText, logger)
	par := parser.NewTableParser(appConfig.ContentID, logger)
	priceListService := service.NewPriceListService(priceListRepo, par, service.ScrapeOptions{
		URL:        appConfig.TargetURL,
		TotalPages: appConfig.TotalPages,
		RenderWait: appConfig.RenderWait,
	}, logger)
	publisher := service.NewPublisher(dataset.NewStore(), appConfig.CSVFile, snapshots, logger)

	// 4. Scrape and publish
	result := priceListService.ScrapeAll(ctx)
	published, err := publisher.Publish(ctx, result)
	if err != nil {
		logger.Error("publishing failed", "error", err)
	}

	// 5. Final Output
	fmt.Printf("\n--- SCRAPE COMPLETE (%s) ---\n", result.State)
	fmt.Printf("Pages visited: %d, records: %d, published: %t\n", result.Pages, len(result.Records), published)
	if published {
		fmt.Printf("CSV file: %s\n", publisher.CSVPath())
	}

	if exitCode(result, err) != 0 {
		os.Exit(1)
	}
}

// exitCode is non-zero when the run produced nothing usable or could not be stored.
func exitCode(result *models.RunResult, publishErr error) int {
	if publishErr != nil {
		return 1
	}
	if result.State == models.RunFailed && len(result.Records) == 0 {
		slog.Error("scrape failed", "error", result.Err)
		return 1
	}
	return 0
}
