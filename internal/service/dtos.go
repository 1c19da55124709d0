package service

import "github.com/Clark-Hu/course-reviews/internal/domain"

// CourseInput is the payload for creating a course.
type CourseInput struct {
	ID   string `json:"id" validate:"required,courseid"`
	Name string `json:"name" validate:"required,notblank,max=200"`
}

// MetricsInput carries the rated values and free text of a review.
// Workload is in hours per week; the other ratings are on a 1 to 5 scale.
type MetricsInput struct {
	Workload     *float64 `json:"workload" validate:"required,gte=0,lte=100"`
	Difficulty   *float64 `json:"difficulty" validate:"required,gte=1,lte=5"`
	Overall      *float64 `json:"overall" validate:"required,gte=1,lte=5"`
	StaffSupport *float64 `json:"staffSupport" validate:"omitempty,gte=1,lte=5"`
	Body         string   `json:"body" validate:"max=10000"`
}

// ReviewInput is the payload for submitting a review. Year and semester are
// only accepted on submit; they become part of the review identifier.
type ReviewInput struct {
	Year     int `json:"year" validate:"gte=2000,lte=2100"`
	Semester int `json:"semester" validate:"gte=1,lte=3"`
	MetricsInput
}

// ReviewResult is a review together with its course after a write.
type ReviewResult struct {
	Review domain.Review
	Course domain.Course
}
