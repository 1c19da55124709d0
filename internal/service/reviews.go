package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/course-reviews/internal/domain"
	"github.com/Clark-Hu/course-reviews/internal/metrics"
	"github.com/Clark-Hu/course-reviews/internal/stats"
)

// submitAttempts bounds retries when two reviews of the same course and term
// land on the same millisecond and therefore the same identifier.
const submitAttempts = 3

// ReviewService records reviews and keeps course aggregates current.
type ReviewService struct {
	courses     CourseRepository
	reviews     ReviewRepository
	logger      *zap.Logger
	backend     string
	recentLimit int
	now         func() time.Time
}

// ReviewServiceOption customizes a ReviewService.
type ReviewServiceOption func(*ReviewService)

// WithBackend sets the storage label reported in metrics.
func WithBackend(name string) ReviewServiceOption {
	return func(s *ReviewService) {
		s.backend = name
	}
}

// WithRecentLimit sets the default size of the recent reviews feed.
func WithRecentLimit(n int) ReviewServiceOption {
	return func(s *ReviewService) {
		if n > 0 {
			s.recentLimit = n
		}
	}
}

// WithClock replaces the time source used for review timestamps.
func WithClock(now func() time.Time) ReviewServiceOption {
	return func(s *ReviewService) {
		s.now = now
	}
}

// NewReviewService creates a new ReviewService instance.
func NewReviewService(courses CourseRepository, reviews ReviewRepository, logger *zap.Logger, opts ...ReviewServiceOption) *ReviewService {
	if courses == nil || reviews == nil {
		panic("repositories must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ReviewService{
		courses:     courses,
		reviews:     reviews,
		logger:      logger.Named("reviews"),
		backend:     "unknown",
		recentLimit: domain.DefaultListLimit,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitReview records a new review and folds it into the course aggregate.
func (s *ReviewService) SubmitReview(ctx context.Context, courseID, reviewerID string, in ReviewInput) (ReviewResult, error) {
	reviewerID = strings.TrimSpace(reviewerID)
	if reviewerID == "" {
		return ReviewResult{}, fmt.Errorf("%w: reviewer id is required", ErrInvalidInput)
	}
	if !stats.ValidCourseID(courseID) {
		return ReviewResult{}, fmt.Errorf("%w: course id %q cannot be used in a review id", ErrInvalidInput, courseID)
	}
	if err := validateStruct(in); err != nil {
		return ReviewResult{}, err
	}

	key := stats.ReviewKey{
		CourseID: courseID,
		Year:     strconv.Itoa(in.Year),
		Semester: strconv.Itoa(in.Semester),
	}
	review := domain.Review{
		CourseID:   courseID,
		ReviewerID: reviewerID,
		Year:       in.Year,
		Semester:   stats.Semester(in.Semester),
		Metrics:    in.metrics(),
		Body:       in.Body,
	}
	fn := func(current stats.CourseAggregate, _ *domain.Review) (stats.CourseAggregate, error) {
		return current.Apply(key, nil, &review.Metrics)
	}

	createdAt := s.now().UTC().Truncate(time.Millisecond)
	var (
		res domain.CommitResult
		err error
	)
	for attempt := 0; attempt < submitAttempts; attempt++ {
		review.CreatedAt = createdAt.Add(time.Duration(attempt) * time.Millisecond)
		review.UpdatedAt = review.CreatedAt
		review.ID, err = stats.FormatReviewID(key, review.CreatedAt)
		if err != nil {
			return ReviewResult{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		res, err = s.commit(ctx, domain.OpCreate, review, fn)
		if !errors.Is(err, domain.ErrConflict) {
			break
		}
	}
	if err != nil {
		return ReviewResult{}, err
	}

	s.logger.Info("review submitted",
		zap.String("review_id", res.Review.ID),
		zap.String("course_id", courseID),
		zap.Int("course_reviews", res.Course.Stats.TotalReviews()))
	return ReviewResult{Review: *res.Review, Course: res.Course}, nil
}

// EditReview replaces the ratings and text of a review owned by reviewerID.
// The course and term are fixed by the review identifier.
func (s *ReviewService) EditReview(ctx context.Context, reviewID, reviewerID string, in MetricsInput) (ReviewResult, error) {
	key, err := parseReviewID(reviewID)
	if err != nil {
		return ReviewResult{}, err
	}
	if err := validateStruct(in); err != nil {
		return ReviewResult{}, err
	}

	review := domain.Review{
		ID:         reviewID,
		CourseID:   key.CourseID,
		ReviewerID: reviewerID,
		Metrics:    in.metrics(),
		Body:       in.Body,
	}
	fn := func(current stats.CourseAggregate, previous *domain.Review) (stats.CourseAggregate, error) {
		if previous.ReviewerID != reviewerID {
			return stats.CourseAggregate{}, ErrForbidden
		}
		before := previous.Metrics
		return current.Apply(key, &before, &review.Metrics)
	}

	res, err := s.commit(ctx, domain.OpUpdate, review, fn)
	if err != nil {
		return ReviewResult{}, err
	}

	s.logger.Info("review edited",
		zap.String("review_id", reviewID),
		zap.String("course_id", key.CourseID))
	return ReviewResult{Review: *res.Review, Course: res.Course}, nil
}

// DeleteReview removes a review owned by reviewerID and returns the course
// with the review taken out of its aggregate.
func (s *ReviewService) DeleteReview(ctx context.Context, reviewID, reviewerID string) (domain.Course, error) {
	key, err := parseReviewID(reviewID)
	if err != nil {
		return domain.Course{}, err
	}

	review := domain.Review{ID: reviewID, CourseID: key.CourseID, ReviewerID: reviewerID}
	fn := func(current stats.CourseAggregate, previous *domain.Review) (stats.CourseAggregate, error) {
		if previous.ReviewerID != reviewerID {
			return stats.CourseAggregate{}, ErrForbidden
		}
		before := previous.Metrics
		return current.Apply(key, &before, nil)
	}

	res, err := s.commit(ctx, domain.OpDelete, review, fn)
	if err != nil {
		return domain.Course{}, err
	}

	s.logger.Info("review deleted",
		zap.String("review_id", reviewID),
		zap.String("course_id", key.CourseID))
	return res.Course, nil
}

// GetReview returns a single review.
func (s *ReviewService) GetReview(ctx context.Context, reviewID string) (domain.Review, error) {
	if _, err := parseReviewID(reviewID); err != nil {
		return domain.Review{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	return s.reviews.Get(ctx, reviewID)
}

// CourseReviews returns every review of an existing course, oldest first.
func (s *ReviewService) CourseReviews(ctx context.Context, courseID string) ([]domain.Review, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		return nil, err
	}
	return s.reviews.ListByCourse(ctx, courseID)
}

// RecentReviews returns the newest reviews across the catalog. A
// non-positive limit selects the configured default.
func (s *ReviewService) RecentReviews(ctx context.Context, limit int) ([]domain.Review, error) {
	if limit <= 0 {
		limit = s.recentLimit
	}
	if limit > domain.MaxListLimit {
		limit = domain.MaxListLimit
	}
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	return s.reviews.Recent(ctx, limit)
}

func (s *ReviewService) commit(ctx context.Context, op domain.ReviewOp, review domain.Review, fn domain.AggregateFunc) (domain.CommitResult, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	start := time.Now()
	res, err := s.reviews.Commit(ctx, domain.ReviewMutation{Op: op, Review: review}, fn)
	metrics.RecordCommit(s.backend, op.String(), time.Since(start))

	switch {
	case err == nil:
		metrics.RecordReviewMutation(op.String(), metrics.ResultOK)
	case isRejection(err):
		metrics.RecordReviewMutation(op.String(), metrics.ResultRejected)
	default:
		metrics.RecordReviewMutation(op.String(), metrics.ResultError)
		s.logger.Error("review commit failed",
			zap.String("op", op.String()),
			zap.String("review_id", review.ID),
			zap.Error(err))
	}
	return res, err
}

func isRejection(err error) bool {
	return errors.Is(err, ErrForbidden) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrConflict)
}

func parseReviewID(reviewID string) (stats.ReviewKey, error) {
	key, err := stats.ParseReviewID(reviewID)
	if err != nil {
		return stats.ReviewKey{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return key, nil
}

func (in MetricsInput) metrics() stats.Metrics {
	m := stats.Metrics{StaffSupport: in.StaffSupport}
	if in.Workload != nil {
		m.Workload = *in.Workload
	}
	if in.Difficulty != nil {
		m.Difficulty = *in.Difficulty
	}
	if in.Overall != nil {
		m.Overall = *in.Overall
	}
	return m
}
