package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/course-reviews/internal/domain"
)

const storeTimeout = 5 * time.Second

// CatalogService manages the course catalog.
type CatalogService struct {
	courses CourseRepository
	logger  *zap.Logger
}

// NewCatalogService creates a new CatalogService instance.
func NewCatalogService(courses CourseRepository, logger *zap.Logger) *CatalogService {
	if courses == nil {
		panic("courses repository must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{courses: courses, logger: logger.Named("catalog")}
}

// CreateCourse adds a course with an empty aggregate.
func (s *CatalogService) CreateCourse(ctx context.Context, in CourseInput) (domain.Course, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return domain.Course{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	course, err := s.courses.Create(ctx, domain.CourseCreateParams{ID: in.ID, Name: in.Name})
	if err != nil {
		return domain.Course{}, err
	}
	s.logger.Info("course created", zap.String("course_id", course.ID))
	return course, nil
}

// GetCourse returns a course and its aggregate.
func (s *CatalogService) GetCourse(ctx context.Context, id string) (domain.Course, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	return s.courses.GetByID(ctx, id)
}

// ListCourses searches the catalog.
func (s *CatalogService) ListCourses(ctx context.Context, filters domain.CourseListFilters) (domain.CourseListResult, error) {
	filters.Limit = domain.NormalizeLimit(filters.Limit)

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	return s.courses.List(ctx, filters)
}
