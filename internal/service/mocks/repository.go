package mocks

import (
	"context"
	"errors"

	"github.com/Clark-Hu/course-reviews/internal/domain"
)

// MockCourseRepository is a mock implementation of the CourseRepository
// interface for testing the service layer.
type MockCourseRepository struct {
	CreateFunc  func(ctx context.Context, params domain.CourseCreateParams) (domain.Course, error)
	GetByIDFunc func(ctx context.Context, id string) (domain.Course, error)
	ListFunc    func(ctx context.Context, filters domain.CourseListFilters) (domain.CourseListResult, error)
}

// Create implements the CourseRepository interface
func (m *MockCourseRepository) Create(ctx context.Context, params domain.CourseCreateParams) (domain.Course, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return domain.Course{}, errors.New("CreateFunc not implemented")
}

// GetByID implements the CourseRepository interface
func (m *MockCourseRepository) GetByID(ctx context.Context, id string) (domain.Course, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return domain.Course{}, errors.New("GetByIDFunc not implemented")
}

// List implements the CourseRepository interface
func (m *MockCourseRepository) List(ctx context.Context, filters domain.CourseListFilters) (domain.CourseListResult, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filters)
	}
	return domain.CourseListResult{}, errors.New("ListFunc not implemented")
}

// MockReviewRepository is a mock implementation of the ReviewRepository
// interface for testing the service layer.
type MockReviewRepository struct {
	GetFunc          func(ctx context.Context, id string) (domain.Review, error)
	ListByCourseFunc func(ctx context.Context, courseID string) ([]domain.Review, error)
	RecentFunc       func(ctx context.Context, limit int) ([]domain.Review, error)
	CommitFunc       func(ctx context.Context, m domain.ReviewMutation, fn domain.AggregateFunc) (domain.CommitResult, error)
}

// Get implements the ReviewRepository interface
func (m *MockReviewRepository) Get(ctx context.Context, id string) (domain.Review, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return domain.Review{}, errors.New("GetFunc not implemented")
}

// ListByCourse implements the ReviewRepository interface
func (m *MockReviewRepository) ListByCourse(ctx context.Context, courseID string) ([]domain.Review, error) {
	if m.ListByCourseFunc != nil {
		return m.ListByCourseFunc(ctx, courseID)
	}
	return nil, errors.New("ListByCourseFunc not implemented")
}

// Recent implements the ReviewRepository interface
func (m *MockReviewRepository) Recent(ctx context.Context, limit int) ([]domain.Review, error) {
	if m.RecentFunc != nil {
		return m.RecentFunc(ctx, limit)
	}
	return nil, errors.New("RecentFunc not implemented")
}

// Commit implements the ReviewRepository interface
func (m *MockReviewRepository) Commit(ctx context.Context, mut domain.ReviewMutation, fn domain.AggregateFunc) (domain.CommitResult, error) {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx, mut, fn)
	}
	return domain.CommitResult{}, errors.New("CommitFunc not implemented")
}
