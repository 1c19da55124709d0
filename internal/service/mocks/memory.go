package mocks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Clark-Hu/course-reviews/internal/domain"
)

// MemoryStore is an in-process implementation of both repository
// interfaces. Commit holds the store lock while fn runs.
type MemoryStore struct {
	mu      sync.Mutex
	courses map[string]domain.Course
	reviews map[string]domain.Review
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		courses: make(map[string]domain.Course),
		reviews: make(map[string]domain.Review),
	}
}

func (s *MemoryStore) Create(_ context.Context, params domain.CourseCreateParams) (domain.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.courses[params.ID]; ok {
		return domain.Course{}, domain.ErrConflict
	}
	ts := time.Now().UTC()
	course := domain.Course{
		ID:         params.ID,
		Name:       params.Name,
		Department: domain.DepartmentOf(params.ID),
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
	s.courses[course.ID] = course
	return course, nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (domain.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	course, ok := s.courses[id]
	if !ok {
		return domain.Course{}, domain.ErrNotFound
	}
	return course, nil
}

func (s *MemoryStore) List(_ context.Context, filters domain.CourseListFilters) (domain.CourseListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := domain.NormalizeLimit(filters.Limit)
	all := make([]domain.Course, 0, len(s.courses))
	for _, c := range s.courses {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	items := make([]domain.Course, 0, limit)
	for _, c := range all {
		if filters.Cursor != nil && c.ID <= filters.Cursor.ID {
			continue
		}
		if filters.Query != nil && *filters.Query != "" {
			q := strings.ToLower(*filters.Query)
			if !strings.Contains(strings.ToLower(c.ID), q) && !strings.Contains(strings.ToLower(c.Name), q) {
				continue
			}
		}
		if filters.Department != nil && *filters.Department != "" && !strings.EqualFold(c.Department, *filters.Department) {
			continue
		}
		items = append(items, c)
		if len(items) == limit {
			break
		}
	}

	var next *string
	if len(items) == limit {
		token, err := domain.EncodeCursor(domain.CourseCursor{ID: items[len(items)-1].ID})
		if err != nil {
			return domain.CourseListResult{}, err
		}
		next = &token
	}
	return domain.CourseListResult{Items: items, NextCursor: next}, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (domain.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rv, ok := s.reviews[id]
	if !ok {
		return domain.Review{}, domain.ErrNotFound
	}
	return rv, nil
}

func (s *MemoryStore) ListByCourse(_ context.Context, courseID string) ([]domain.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Review, 0)
	for _, rv := range s.reviews {
		if rv.CourseID == courseID {
			out = append(out, rv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) Recent(_ context.Context, limit int) ([]domain.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Review, 0, len(s.reviews))
	for _, rv := range s.reviews {
		out = append(out, rv)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Commit(_ context.Context, m domain.ReviewMutation, fn domain.AggregateFunc) (domain.CommitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	course, ok := s.courses[m.Review.CourseID]
	if !ok {
		return domain.CommitResult{}, domain.ErrNotFound
	}

	stored, exists := s.reviews[m.Review.ID]
	var previous *domain.Review
	switch m.Op {
	case domain.OpCreate:
		if exists {
			return domain.CommitResult{}, domain.ErrConflict
		}
	case domain.OpUpdate, domain.OpDelete:
		if !exists || stored.CourseID != m.Review.CourseID {
			return domain.CommitResult{}, domain.ErrNotFound
		}
		prev := stored
		previous = &prev
	default:
		return domain.CommitResult{}, fmt.Errorf("unknown review op %d", m.Op)
	}

	next, err := fn(course.Stats, previous)
	if err != nil {
		return domain.CommitResult{}, err
	}

	ts := time.Now().UTC()
	var written *domain.Review
	switch m.Op {
	case domain.OpCreate:
		rv := m.Review
		s.reviews[rv.ID] = rv
		written = &rv
	case domain.OpUpdate:
		rv := stored
		rv.Metrics = m.Review.Metrics
		rv.Body = m.Review.Body
		rv.UpdatedAt = ts
		s.reviews[rv.ID] = rv
		written = &rv
	case domain.OpDelete:
		delete(s.reviews, m.Review.ID)
	}

	course.Stats = next
	course.UpdatedAt = ts
	s.courses[course.ID] = course
	return domain.CommitResult{Course: course, Review: written, Previous: previous}, nil
}
