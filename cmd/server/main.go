package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"card-ledger/internal/cache"
	"card-ledger/internal/config"
	"card-ledger/internal/db"
	"card-ledger/internal/handler"
	"card-ledger/internal/job"
	"card-ledger/internal/provider"
	"card-ledger/internal/repository"
	"card-ledger/internal/scraper"
	"card-ledger/internal/service"
	"card-ledger/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "card-ledger/docs"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	initPostgresFunc       = db.InitPostgres
	initRedisFunc          = cache.InitRedis
	initTracerFunc         = tracing.InitTracer
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	startRefresherFunc     = func(r *job.AssetRefresher, ctx context.Context) { go r.Start(ctx) }
)

// @title           Card Ledger API
// @version         1.0
// @description     Collectible card portfolio pricing service.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis
	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// Create repositories and run migrations
	assetRepo := repository.NewAssetRepository(db.Pool, tracer)
	snapshotRepo := repository.NewSnapshotRepository(db.Pool, tracer)
	if db.Pool != nil {
		if err := assetRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run asset migrations: %v", err)
		}
		if err := snapshotRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run snapshot migrations: %v", err)
		}
	}

	// Create price sources
	pageCache := cache.NewPageCache(cache.Client, time.Duration(cfg.ScraperCacheTTLSecs)*time.Second)
	pcScraper := scraper.NewPriceChartingScraper(tracer, pageCache, cfg.ScraperConcurrency)
	tcg := provider.NewTCGProvider(cfg.TCGAPIKey, tracer)
	tracker := provider.NewPriceTrackerProvider(cfg.PriceTrackerAPIKey, tracer)

	// Create services
	resolver := service.NewResolver(
		tracer, pcScraper, tcg, tracker, assetRepo, snapshotRepo,
		time.Duration(cfg.StalenessHours)*time.Hour,
		time.Duration(cfg.ScraperDelayMs)*time.Millisecond,
		cfg.ScraperSearchResults,
	)
	historyService := service.NewHistoryService(tracer, assetRepo, snapshotRepo, tracker)
	searchService := service.NewSearchService(tracer, tcg, tracker)

	// Start background refresher when polling is enabled
	if cfg.RefreshPollSecs > 0 {
		refresher := job.NewAssetRefresher(resolver, cfg.RefreshPollSecs)
		startRefresherFunc(refresher, ctx)
	}

	// Create handlers and routes
	h := handler.New(tracer, resolver, historyService, searchService, cfg.RefreshAuthToken)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("card-ledger"))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
