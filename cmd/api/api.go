package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"ngx_scraper/internal/api"
	"ngx_scraper/internal/api/middleware"
	"ngx_scraper/internal/config"
	"ngx_scraper/internal/dataset"
	"ngx_scraper/internal/logging"
	"ngx_scraper/internal/parser"
	"ngx_scraper/internal/repository"
	"ngx_scraper/internal/service"
	"ngx_scraper/pkg/headless"
)

const shutdownTimeout = 10 * time.Second

// initDatabase connects to PostgreSQL and migrates the snapshot table. It
// returns nil when no database is configured.
func initDatabase(ctx context.Context, dsn string) (repository.SnapshotRepository, error) {
	if dsn == "" {
		slog.Info("no database configured; snapshots are kept in memory and CSV only")
		return nil, nil
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{PrepareStmt: true})
	if err != nil {
		return nil, fmt.Errorf("could not connect to the database: %w", err)
	}
	slog.Info("successfully connected to PostgreSQL")

	repo := repository.NewPostgresSnapshotRepository(db)
	if err := repo.Init(ctx); err != nil {
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return repo, nil
}

// jwtSecret returns the configured signing secret or a random one. A random
// secret invalidates all tokens on restart.
func jwtSecret(configured string) ([]byte, error) {
	if configured != "" {
		return []byte(configured), nil
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("could not generate JWT secret: %w", err)
	}
	slog.Warn("jwt_secret is not set; using a random secret, tokens will not survive a restart")
	return secret, nil
}

func main() {
	conf := config.Init()
	logger := logging.Init(conf.LogLevel, conf.LogFormat)
	startTime := time.Now()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Optional snapshot storage
	snapshots, err := initDatabase(ctx, conf.DBConn)
	if err != nil {
		logger.Error("database setup failed", "error", err)
		os.Exit(1)
	}

	// 2. Dataset, seeded from the last run
	store := dataset.NewStore()
	service.WarmStart(ctx, store, snapshots, conf.CSVFile, logger)

	// 3. Dependency Injection: scraper components
	launcher := repository.HeadlessLauncher(headless.Options{
		Headless:      conf.Headless,
		ActionTimeout: conf.ActionTimeout,
		Logger:        logger,
	})
	priceListRepo := repository.NewPriceListRepository(launcher, conf.NextLinkText, logger)
	par := parser.NewTableParser(conf.ContentID, logger)
	priceListService := service.NewPriceListService(priceListRepo, par, service.ScrapeOptions{
		URL:        conf.TargetURL,
		TotalPages: conf.TotalPages,
		RenderWait: conf.RenderWait,
	}, logger)
	publisher := service.NewPublisher(store, conf.CSVFile, snapshots, logger)
	scheduler := service.NewScheduler(priceListService, publisher, conf.ScrapeInterval, logger)

	// 4. API
	secret, err := jwtSecret(conf.JWTSecret)
	if err != nil {
		logger.Error("auth setup failed", "error", err)
		os.Exit(1)
	}
	if len(conf.Users) == 0 {
		logger.Warn("no API users configured; every login will be rejected")
	}

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(store, api.Options{
		Users:      conf.Users,
		Tokens:     middleware.NewTokens(secret, conf.TokenTTL),
		CSVPath:    publisher.CSVPath(),
		LoginRPS:   conf.LoginRPS,
		LoginBurst: conf.LoginBurst,
		StartTime:  startTime,
		Logger:     logger,
	})
	srv := &http.Server{
		Addr:              conf.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 5. Scheduler and server run until a signal arrives or either fails.
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return scheduler.Run(gCtx)
	})

	g.Go(func() error {
		logger.Info("API server listening", "addr", conf.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("service stopped")
}
