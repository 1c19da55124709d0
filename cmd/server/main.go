package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Clark-Hu/course-reviews/internal/config"
	"github.com/Clark-Hu/course-reviews/internal/docstore"
	httpserver "github.com/Clark-Hu/course-reviews/internal/http"
	"github.com/Clark-Hu/course-reviews/internal/repository"
	"github.com/Clark-Hu/course-reviews/internal/service"
	"github.com/Clark-Hu/course-reviews/internal/store"
)

// backend bundles what the selected storage engine provides.
type backend struct {
	courses service.CourseRepository
	reviews service.ReviewRepository
	health  httpserver.HealthChecker
	close   func()
}

func main() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open storage backend", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer be.close()

	catalog := service.NewCatalogService(be.courses, logger)
	reviews := service.NewReviewService(be.courses, be.reviews, logger,
		service.WithBackend(cfg.StoreBackend),
		service.WithRecentLimit(cfg.RecentReviewsLimit),
	)
	server := httpserver.New(cfg, be.health, catalog, reviews, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", zap.Error(err))
		return
	}
	logger.Info("server stopped")
}

func openBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (backend, error) {
	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch cfg.StoreBackend {
	case config.BackendRedis:
		ds, err := docstore.New(connCtx,
			docstore.WithAddress(cfg.RedisAddr),
			docstore.WithPassword(cfg.RedisPassword),
			docstore.WithDB(cfg.RedisDB),
			docstore.WithTxRetries(cfg.RedisTxRetries),
			docstore.WithLogger(logger),
		)
		if err != nil {
			return backend{}, err
		}
		return backend{
			courses: ds.Courses,
			reviews: ds.Reviews,
			health:  ds,
			close:   func() { _ = ds.Close() },
		}, nil

	default:
		st, err := store.New(connCtx, cfg.DBURL, store.Options{
			MaxConns:               int32(cfg.DBMaxConns),
			MinConns:               int32(cfg.DBMinConns),
			MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
			MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
			ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
			StatementCacheCapacity: cfg.DBStatementCache,
			Logger:                 logger,
		})
		if err != nil {
			return backend{}, err
		}
		repo := repository.New(st)
		return backend{
			courses: repo.Courses,
			reviews: repo.Reviews,
			health:  st,
			close:   st.Close,
		}, nil
	}
}
