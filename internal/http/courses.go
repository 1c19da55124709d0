package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/course-reviews/internal/domain"
	"github.com/Clark-Hu/course-reviews/internal/metrics"
	"github.com/Clark-Hu/course-reviews/internal/service"
	"github.com/Clark-Hu/course-reviews/internal/stats"
)

type courseListResponse struct {
	Items      []courseResponse `json:"items"`
	NextCursor *string          `json:"nextCursor,omitempty"`
}

type courseResponse struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Department string              `json:"department"`
	Stats      courseStatsResponse `json:"stats"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
}

type courseStatsResponse struct {
	stats.Averages
	ReviewCount       int                       `json:"reviewCount"`
	StaffSupportCount int                       `json:"staffSupportCount"`
	ReviewCounts      map[string]map[string]int `json:"reviewCounts"`
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	filters, err := buildCourseFilters(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	result, err := s.catalog.ListCourses(r.Context(), filters)
	if err != nil {
		s.respondServiceError(w, err, "list courses")
		return
	}

	items := make([]courseResponse, 0, len(result.Items))
	for _, course := range result.Items {
		items = append(items, toCourseResponse(course))
	}
	s.respondJSON(w, http.StatusOK, courseListResponse{Items: items, NextCursor: result.NextCursor})
}

func buildCourseFilters(query url.Values) (domain.CourseListFilters, error) {
	var filters domain.CourseListFilters

	if q := strings.TrimSpace(query.Get("q")); q != "" {
		filters.Query = &q
	}
	if val := strings.TrimSpace(query.Get("department")); val != "" {
		filters.Department = &val
	}
	if val := strings.TrimSpace(query.Get("limit")); val != "" {
		limit, err := strconv.Atoi(val)
		if err != nil || limit < 0 {
			return filters, fmt.Errorf("invalid limit value")
		}
		filters.Limit = limit
	}
	if val := strings.TrimSpace(query.Get("cursor")); val != "" {
		cursor, err := domain.DecodeCursor(val)
		if err != nil {
			return filters, fmt.Errorf("invalid cursor")
		}
		filters.Cursor = cursor
	}
	return filters, nil
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var req service.CourseInput
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	course, err := s.catalog.CreateCourse(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, err, "create course")
		return
	}

	w.Header().Set("Location", "/courses/"+url.PathEscape(course.ID))
	s.respondJSON(w, http.StatusCreated, toCourseResponse(course))
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	course, err := s.loadCourse(r.Context(), courseID)
	if err != nil {
		s.respondServiceError(w, err, "fetch course")
		return
	}
	s.respondJSON(w, http.StatusOK, toCourseResponse(course))
}

// loadCourse collapses concurrent reads of the same course into one lookup.
func (s *Server) loadCourse(ctx context.Context, courseID string) (domain.Course, error) {
	ctx = context.WithoutCancel(ctx)
	v, err, shared := s.courseReads.Do(courseID, func() (interface{}, error) {
		return s.catalog.GetCourse(ctx, courseID)
	})
	if shared {
		metrics.CourseReadsCollapsed.Inc()
	}
	if err != nil {
		return domain.Course{}, err
	}
	return v.(domain.Course), nil
}

func toCourseResponse(course domain.Course) courseResponse {
	counts := course.Stats.ReviewCounts
	if counts == nil {
		counts = map[string]map[string]int{}
	}
	return courseResponse{
		ID:         course.ID,
		Name:       course.Name,
		Department: course.Department,
		Stats: courseStatsResponse{
			Averages:          course.Stats.Averages(),
			ReviewCount:       course.Stats.TotalReviews(),
			StaffSupportCount: course.Stats.StaffSupport.Count,
			ReviewCounts:      counts,
		},
		CreatedAt: course.CreatedAt,
		UpdatedAt: course.UpdatedAt,
	}
}
