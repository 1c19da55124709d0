package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Clark-Hu/course-reviews/internal/config"
	"github.com/Clark-Hu/course-reviews/internal/domain"
	"github.com/Clark-Hu/course-reviews/internal/service"
)

// HealthChecker reports whether the storage backend is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Catalog is the course operations the handlers call.
type Catalog interface {
	CreateCourse(ctx context.Context, in service.CourseInput) (domain.Course, error)
	GetCourse(ctx context.Context, id string) (domain.Course, error)
	ListCourses(ctx context.Context, filters domain.CourseListFilters) (domain.CourseListResult, error)
}

// Reviews is the review operations the handlers call.
type Reviews interface {
	SubmitReview(ctx context.Context, courseID, reviewerID string, in service.ReviewInput) (service.ReviewResult, error)
	EditReview(ctx context.Context, reviewID, reviewerID string, in service.MetricsInput) (service.ReviewResult, error)
	DeleteReview(ctx context.Context, reviewID, reviewerID string) (domain.Course, error)
	GetReview(ctx context.Context, reviewID string) (domain.Review, error)
	CourseReviews(ctx context.Context, courseID string) ([]domain.Review, error)
	RecentReviews(ctx context.Context, limit int) ([]domain.Review, error)
}

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg         config.Config
	health      HealthChecker
	catalog     Catalog
	reviews     Reviews
	logger      *zap.Logger
	router      chi.Router
	httpSrv     *http.Server
	courseReads singleflight.Group
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, health HealthChecker, catalog Catalog, reviews Reviews, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("http")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(instrument)

	s := &Server{
		cfg:     cfg,
		health:  health,
		catalog: catalog,
		reviews: reviews,
		logger:  logger,
		router:  r,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	writes := limitWrites(s.cfg.WriteRateLimit)

	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Route("/courses", func(r chi.Router) {
		r.Get("/", s.handleListCourses)
		r.Post("/", s.handleCreateCourse)
		r.Route("/{courseID}", func(r chi.Router) {
			r.Get("/", s.handleGetCourse)
			r.Get("/reviews", s.handleListCourseReviews)
			r.With(writes).Post("/reviews", s.handleSubmitReview)
		})
	})
	s.router.Route("/reviews", func(r chi.Router) {
		r.Get("/recent", s.handleRecentReviews)
		r.Route("/{reviewID}", func(r chi.Router) {
			r.Get("/", s.handleGetReview)
			r.With(writes).Put("/", s.handleEditReview)
			r.With(writes).Delete("/", s.handleDeleteReview)
		})
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start boots the HTTP server and blocks until ctx is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.httpSrv.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.health == nil {
		s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Storage not configured")
		return
	}
	if err := s.health.HealthCheck(ctx); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Storage unreachable")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
