package docstore

import (
	"time"

	"github.com/Clark-Hu/course-reviews/internal/domain"
	"github.com/Clark-Hu/course-reviews/internal/stats"
)

type courseDoc struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	Department string                `json:"department"`
	Aggregate  stats.CourseAggregate `json:"aggregate"`
	CreatedAt  time.Time             `json:"createdAt"`
	UpdatedAt  time.Time             `json:"updatedAt"`
}

func (d courseDoc) toDomain() domain.Course {
	return domain.Course{
		ID:         d.ID,
		Name:       d.Name,
		Department: d.Department,
		Stats:      d.Aggregate,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

type reviewDoc struct {
	ID         string        `json:"id"`
	CourseID   string        `json:"courseId"`
	ReviewerID string        `json:"reviewerId"`
	Year       int           `json:"year"`
	Semester   int           `json:"semester"`
	Metrics    stats.Metrics `json:"metrics"`
	Body       string        `json:"body"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

func newReviewDoc(r domain.Review) reviewDoc {
	return reviewDoc{
		ID:         r.ID,
		CourseID:   r.CourseID,
		ReviewerID: r.ReviewerID,
		Year:       r.Year,
		Semester:   int(r.Semester),
		Metrics:    r.Metrics,
		Body:       r.Body,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func (d reviewDoc) toDomain() domain.Review {
	return domain.Review{
		ID:         d.ID,
		CourseID:   d.CourseID,
		ReviewerID: d.ReviewerID,
		Year:       d.Year,
		Semester:   stats.Semester(d.Semester),
		Metrics:    d.Metrics,
		Body:       d.Body,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}
