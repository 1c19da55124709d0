package service

import (
	"context"

	"github.com/Clark-Hu/course-reviews/internal/domain"
)

// CourseRepository defines the course storage operations the services need.
type CourseRepository interface {
	Create(ctx context.Context, params domain.CourseCreateParams) (domain.Course, error)
	GetByID(ctx context.Context, id string) (domain.Course, error)
	List(ctx context.Context, filters domain.CourseListFilters) (domain.CourseListResult, error)
}

// ReviewRepository defines the review storage operations the services need.
//
// Commit must read the stored aggregate and the stored review (for updates
// and deletes), call fn, and persist the review change together with the
// aggregate fn returned, such that no concurrent Commit on the same course
// can interleave between the read and the write. An error from fn aborts
// the commit and is returned unchanged.
type ReviewRepository interface {
	Get(ctx context.Context, id string) (domain.Review, error)
	ListByCourse(ctx context.Context, courseID string) ([]domain.Review, error)
	Recent(ctx context.Context, limit int) ([]domain.Review, error)
	Commit(ctx context.Context, m domain.ReviewMutation, fn domain.AggregateFunc) (domain.CommitResult, error)
}
