package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/course-reviews/internal/domain"
	"github.com/Clark-Hu/course-reviews/internal/stats"
	"github.com/Clark-Hu/course-reviews/internal/store"
)

// ReviewsRepository persists reviews and keeps course aggregates in step.
type ReviewsRepository struct {
	pool *pgxpool.Pool
}

const reviewColumns = `
    id,
    course_id,
    reviewer_id,
    year,
    semester,
    workload,
    difficulty,
    overall,
    staff_support,
    body,
    created_at,
    updated_at
`

// Get retrieves a review by id.
func (r *ReviewsRepository) Get(ctx context.Context, id string) (domain.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE id = $1`, reviewColumns)
	review, err := scanReview(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Review{}, ErrNotFound
		}
		return domain.Review{}, err
	}
	return review, nil
}

// ListByCourse returns a course's reviews, oldest first.
func (r *ReviewsRepository) ListByCourse(ctx context.Context, courseID string) ([]domain.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE course_id = $1 ORDER BY created_at ASC, id ASC`, reviewColumns)
	return r.queryReviews(ctx, query, courseID)
}

// Recent returns the newest reviews across all courses.
func (r *ReviewsRepository) Recent(ctx context.Context, limit int) ([]domain.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews ORDER BY created_at DESC, id DESC LIMIT $1`, reviewColumns)
	return r.queryReviews(ctx, query, limit)
}

func (r *ReviewsRepository) queryReviews(ctx context.Context, query string, args ...interface{}) ([]domain.Review, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.Review, 0)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, review)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Commit applies a review mutation and the aggregate change computed by fn
// in one transaction. The course row, and for updates and deletes the review
// row, are locked before fn runs, so concurrent commits against the same
// course serialize instead of overwriting each other's aggregate.
func (r *ReviewsRepository) Commit(ctx context.Context, m domain.ReviewMutation, fn domain.AggregateFunc) (domain.CommitResult, error) {
	var result domain.CommitResult

	err := store.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := lockAggregate(ctx, tx, m.Review.CourseID)
		if err != nil {
			return err
		}

		var previous *domain.Review
		if m.Op != domain.OpCreate {
			query := fmt.Sprintf(`SELECT %s FROM reviews WHERE id = $1 FOR UPDATE`, reviewColumns)
			prev, err := scanReview(tx.QueryRow(ctx, query, m.Review.ID))
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return ErrNotFound
				}
				return fmt.Errorf("load review %s: %w", m.Review.ID, err)
			}
			if prev.CourseID != m.Review.CourseID {
				return ErrNotFound
			}
			previous = &prev
		}

		next, err := fn(current, previous)
		if err != nil {
			return err
		}

		written, err := writeReview(ctx, tx, m)
		if err != nil {
			return err
		}

		course, err := storeAggregate(ctx, tx, m.Review.CourseID, next)
		if err != nil {
			return err
		}

		result = domain.CommitResult{Course: course, Review: written, Previous: previous}
		return nil
	})
	if err != nil {
		return domain.CommitResult{}, err
	}
	return result, nil
}

func lockAggregate(ctx context.Context, tx pgx.Tx, courseID string) (stats.CourseAggregate, error) {
	var payload []byte
	err := tx.QueryRow(ctx, `SELECT aggregate FROM courses WHERE id = $1 FOR UPDATE`, courseID).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return stats.CourseAggregate{}, ErrNotFound
		}
		return stats.CourseAggregate{}, fmt.Errorf("lock course %s: %w", courseID, err)
	}

	var agg stats.CourseAggregate
	if err := json.Unmarshal(payload, &agg); err != nil {
		return stats.CourseAggregate{}, fmt.Errorf("decode aggregate for %s: %w", courseID, err)
	}
	return agg, nil
}

func storeAggregate(ctx context.Context, tx pgx.Tx, courseID string, agg stats.CourseAggregate) (domain.Course, error) {
	payload, err := json.Marshal(agg)
	if err != nil {
		return domain.Course{}, fmt.Errorf("encode aggregate: %w", err)
	}

	query := fmt.Sprintf(`
        UPDATE courses
        SET aggregate = $2, updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, courseColumns)
	course, err := scanCourse(tx.QueryRow(ctx, query, courseID, payload))
	if err != nil {
		return domain.Course{}, fmt.Errorf("store aggregate for %s: %w", courseID, err)
	}
	return course, nil
}

func writeReview(ctx context.Context, tx pgx.Tx, m domain.ReviewMutation) (*domain.Review, error) {
	rv := m.Review
	switch m.Op {
	case domain.OpCreate:
		query := fmt.Sprintf(`
            INSERT INTO reviews (id, course_id, reviewer_id, year, semester, workload, difficulty, overall, staff_support, body, created_at, updated_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)
            ON CONFLICT (id) DO NOTHING
            RETURNING %s
        `, reviewColumns)
		review, err := scanReview(tx.QueryRow(ctx, query,
			rv.ID, rv.CourseID, rv.ReviewerID, rv.Year, int(rv.Semester),
			rv.Metrics.Workload, rv.Metrics.Difficulty, rv.Metrics.Overall, rv.Metrics.StaffSupport,
			rv.Body, rv.CreatedAt))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrConflict
			}
			return nil, fmt.Errorf("insert review %s: %w", rv.ID, err)
		}
		return &review, nil

	case domain.OpUpdate:
		query := fmt.Sprintf(`
            UPDATE reviews
            SET workload = $2, difficulty = $3, overall = $4, staff_support = $5, body = $6, updated_at = now()
            WHERE id = $1
            RETURNING %s
        `, reviewColumns)
		review, err := scanReview(tx.QueryRow(ctx, query,
			rv.ID, rv.Metrics.Workload, rv.Metrics.Difficulty, rv.Metrics.Overall, rv.Metrics.StaffSupport, rv.Body))
		if err != nil {
			return nil, fmt.Errorf("update review %s: %w", rv.ID, err)
		}
		return &review, nil

	case domain.OpDelete:
		if _, err := tx.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, rv.ID); err != nil {
			return nil, fmt.Errorf("delete review %s: %w", rv.ID, err)
		}
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown review op %d", m.Op)
	}
}

func scanReview(row pgx.Row) (domain.Review, error) {
	var (
		review   domain.Review
		semester int16
	)
	err := row.Scan(
		&review.ID,
		&review.CourseID,
		&review.ReviewerID,
		&review.Year,
		&semester,
		&review.Metrics.Workload,
		&review.Metrics.Difficulty,
		&review.Metrics.Overall,
		&review.Metrics.StaffSupport,
		&review.Body,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		return domain.Review{}, err
	}
	review.Semester = stats.Semester(semester)
	return review, nil
}
