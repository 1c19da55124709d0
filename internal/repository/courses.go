package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/course-reviews/internal/domain"
	"github.com/Clark-Hu/course-reviews/internal/stats"
)

// CoursesRepository provides persistence helpers for course entities.
type CoursesRepository struct {
	pool *pgxpool.Pool
}

const courseColumns = `
    id,
    name,
    department,
    aggregate,
    created_at,
    updated_at
`

// Create inserts a new course row with an empty aggregate.
func (r *CoursesRepository) Create(ctx context.Context, params domain.CourseCreateParams) (domain.Course, error) {
	query := fmt.Sprintf(`
        INSERT INTO courses (id, name, department)
        VALUES ($1,$2,$3)
        ON CONFLICT (id) DO NOTHING
        RETURNING %s
    `, courseColumns)

	row := r.pool.QueryRow(ctx, query, params.ID, params.Name, domain.DepartmentOf(params.ID))
	course, err := scanCourse(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Course{}, domain.ErrConflict
		}
		return domain.Course{}, err
	}
	return course, nil
}

// GetByID fetches a course by its identifier.
func (r *CoursesRepository) GetByID(ctx context.Context, id string) (domain.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1`, courseColumns)
	course, err := scanCourse(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Course{}, ErrNotFound
		}
		return domain.Course{}, err
	}
	return course, nil
}

// List returns courses that match the provided filters, ordered by id.
func (r *CoursesRepository) List(ctx context.Context, filters domain.CourseListFilters) (domain.CourseListResult, error) {
	limit := domain.NormalizeLimit(filters.Limit)

	where := make([]string, 0)
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Query != nil && strings.TrimSpace(*filters.Query) != "" {
		q := "%" + escapeLike(strings.TrimSpace(*filters.Query)) + "%"
		p1 := arg(q)
		p2 := arg(q)
		where = append(where, fmt.Sprintf("(id ILIKE %s OR name ILIKE %s)", p1, p2))
	}
	if filters.Department != nil && strings.TrimSpace(*filters.Department) != "" {
		where = append(where, fmt.Sprintf("lower(department) = lower(%s)", arg(strings.TrimSpace(*filters.Department))))
	}
	if filters.Cursor != nil {
		where = append(where, fmt.Sprintf("id > %s", arg(filters.Cursor.ID)))
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(courseColumns)
	queryBuilder.WriteString(" FROM courses")

	if len(where) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(where, " AND "))
	}

	queryBuilder.WriteString(" ORDER BY id ASC")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT %d", limit))

	rows, err := r.pool.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return domain.CourseListResult{}, err
	}
	defer rows.Close()

	items := make([]domain.Course, 0)
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return domain.CourseListResult{}, err
		}
		items = append(items, course)
	}
	if err := rows.Err(); err != nil {
		return domain.CourseListResult{}, err
	}

	var nextCursor *string
	if len(items) == limit {
		token, err := domain.EncodeCursor(domain.CourseCursor{ID: items[len(items)-1].ID})
		if err != nil {
			return domain.CourseListResult{}, err
		}
		nextCursor = &token
	}

	return domain.CourseListResult{Items: items, NextCursor: nextCursor}, nil
}

func scanCourse(row pgx.Row) (domain.Course, error) {
	var (
		course        domain.Course
		aggregateJSON []byte
		createdAt     time.Time
		updatedAt     time.Time
	)

	err := row.Scan(
		&course.ID,
		&course.Name,
		&course.Department,
		&aggregateJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Course{}, err
	}

	course.CreatedAt = createdAt
	course.UpdatedAt = updatedAt

	if len(aggregateJSON) > 0 {
		var agg stats.CourseAggregate
		if err := json.Unmarshal(aggregateJSON, &agg); err != nil {
			return domain.Course{}, fmt.Errorf("decode aggregate for %s: %w", course.ID, err)
		}
		course.Stats = agg
	}

	return course, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
