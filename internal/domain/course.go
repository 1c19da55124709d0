package domain

import (
	"strings"
	"time"

	"github.com/Clark-Hu/course-reviews/internal/stats"
)

// Course is a catalog entry together with its review aggregate.
type Course struct {
	ID         string
	Name       string
	Department string
	Stats      stats.CourseAggregate
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DepartmentOf returns the department prefix of a course identifier.
func DepartmentOf(courseID string) string {
	dept, _, _ := strings.Cut(courseID, "-")
	return dept
}

// CourseListFilters encapsulates search and pagination options.
type CourseListFilters struct {
	Query      *string
	Department *string
	Limit      int
	Cursor     *CourseCursor
}

// CourseListResult returns the paginated payload.
type CourseListResult struct {
	Items      []Course
	NextCursor *string
}

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// NormalizeLimit clamps a requested page size.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// CourseCreateParams bundles the fields required to create a course.
type CourseCreateParams struct {
	ID   string
	Name string
}
