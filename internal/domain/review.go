package domain

import (
	"time"

	"github.com/Clark-Hu/course-reviews/internal/stats"
)

// Review is a single reviewer's rating of a course for one term.
type Review struct {
	ID         string
	CourseID   string
	ReviewerID string
	Year       int
	Semester   stats.Semester
	Metrics    stats.Metrics
	Body       string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ReviewOp names the kind of review mutation being committed.
type ReviewOp int

const (
	OpCreate ReviewOp = iota + 1
	OpUpdate
	OpDelete
)

func (op ReviewOp) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ReviewMutation is a review write that must land together with the course
// aggregate change it causes. For deletes only Review.ID and Review.CourseID
// are read.
type ReviewMutation struct {
	Op     ReviewOp
	Review Review
}

// AggregateFunc computes the next course aggregate from the stored one.
// previous is the stored review for updates and deletes and nil for creates.
// Returning an error aborts the commit.
type AggregateFunc func(current stats.CourseAggregate, previous *Review) (stats.CourseAggregate, error)

// CommitResult is what a store returns after a review mutation commits.
type CommitResult struct {
	Course   Course
	Review   *Review
	Previous *Review
}
