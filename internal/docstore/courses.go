package docstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/Clark-Hu/course-reviews/internal/domain"
)

// Courses is the course view of a Store.
type Courses struct {
	store *Store
}

// Create stores a course document with an empty aggregate.
func (c *Courses) Create(ctx context.Context, params domain.CourseCreateParams) (domain.Course, error) {
	ts := now()
	doc := courseDoc{
		ID:         params.ID,
		Name:       params.Name,
		Department: domain.DepartmentOf(params.ID),
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return domain.Course{}, fmt.Errorf("encode course: %w", err)
	}

	// SADD runs even when SETNX loses so an existing document always ends up
	// in the listing set.
	var created *redis.BoolCmd
	_, err = c.store.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		created = pipe.SetNX(ctx, courseKey(params.ID), payload, 0)
		pipe.SAdd(ctx, coursesKey, params.ID)
		return nil
	})
	if err != nil {
		return domain.Course{}, err
	}
	if !created.Val() {
		return domain.Course{}, domain.ErrConflict
	}
	return doc.toDomain(), nil
}

// GetByID fetches a course document.
func (c *Courses) GetByID(ctx context.Context, id string) (domain.Course, error) {
	var doc courseDoc
	if err := getJSON(ctx, c.store.client, courseKey(id), &doc); err != nil {
		if isNil(err) {
			return domain.Course{}, domain.ErrNotFound
		}
		return domain.Course{}, err
	}
	return doc.toDomain(), nil
}

// List loads every course and filters in memory.
func (c *Courses) List(ctx context.Context, filters domain.CourseListFilters) (domain.CourseListResult, error) {
	ids, err := c.store.client.SMembers(ctx, coursesKey).Result()
	if err != nil {
		return domain.CourseListResult{}, err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = courseKey(id)
	}
	docs, err := mgetJSON[courseDoc](ctx, c.store.client, keys)
	if err != nil {
		return domain.CourseListResult{}, err
	}
	courses := make([]domain.Course, len(docs))
	for i, d := range docs {
		courses[i] = d.toDomain()
	}
	return filterCourses(courses, filters)
}

// filterCourses pages through courses the same way the SQL listing does:
// case-insensitive substring match on id or name, case-insensitive
// department match, ordered by id after the cursor.
func filterCourses(courses []domain.Course, filters domain.CourseListFilters) (domain.CourseListResult, error) {
	limit := domain.NormalizeLimit(filters.Limit)

	var query, dept string
	if filters.Query != nil {
		query = strings.ToLower(strings.TrimSpace(*filters.Query))
	}
	if filters.Department != nil {
		dept = strings.TrimSpace(*filters.Department)
	}

	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })

	items := make([]domain.Course, 0, limit)
	for _, course := range courses {
		if filters.Cursor != nil && course.ID <= filters.Cursor.ID {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(course.ID), query) &&
			!strings.Contains(strings.ToLower(course.Name), query) {
			continue
		}
		if dept != "" && !strings.EqualFold(course.Department, dept) {
			continue
		}
		items = append(items, course)
		if len(items) == limit {
			break
		}
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
