package httpserver

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/course-reviews/internal/domain"
	"github.com/Clark-Hu/course-reviews/internal/service"
)

const reviewerHeader = "X-Reviewer-Id"

type reviewResponse struct {
	ID           string    `json:"id"`
	CourseID     string    `json:"courseId"`
	ReviewerID   string    `json:"reviewerId"`
	Year         int       `json:"year"`
	Semester     int       `json:"semester"`
	Term         string    `json:"term"`
	Workload     float64   `json:"workload"`
	Difficulty   float64   `json:"difficulty"`
	Overall      float64   `json:"overall"`
	StaffSupport *float64  `json:"staffSupport"`
	Body         string    `json:"body"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type reviewListResponse struct {
	Items []reviewResponse `json:"items"`
}

type reviewWriteResponse struct {
	Review *reviewResponse `json:"review,omitempty"`
	Course courseResponse  `json:"course"`
}

func (s *Server) handleListCourseReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.reviews.CourseReviews(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		s.respondServiceError(w, err, "list reviews")
		return
	}
	s.respondJSON(w, http.StatusOK, toReviewList(reviews))
}

func (s *Server) handleRecentReviews(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if val := strings.TrimSpace(r.URL.Query().Get("limit")); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid limit value")
			return
		}
		limit = n
	}

	reviews, err := s.reviews.RecentReviews(r.Context(), limit)
	if err != nil {
		s.respondServiceError(w, err, "list recent reviews")
		return
	}
	s.respondJSON(w, http.StatusOK, toReviewList(reviews))
}

func (s *Server) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := s.requireReviewer(w, r)
	if !ok {
		return
	}

	var req service.ReviewInput
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	res, err := s.reviews.SubmitReview(r.Context(), chi.URLParam(r, "courseID"), reviewerID, req)
	if err != nil {
		s.respondServiceError(w, err, "submit review")
		return
	}

	review := toReviewResponse(res.Review)
	w.Header().Set("Location", "/reviews/"+url.PathEscape(res.Review.ID))
	s.respondJSON(w, http.StatusCreated, reviewWriteResponse{Review: &review, Course: toCourseResponse(res.Course)})
}

func (s *Server) handleGetReview(w http.ResponseWriter, r *http.Request) {
	review, err := s.reviews.GetReview(r.Context(), chi.URLParam(r, "reviewID"))
	if err != nil {
		s.respondServiceError(w, err, "fetch review")
		return
	}
	s.respondJSON(w, http.StatusOK, toReviewResponse(review))
}

func (s *Server) handleEditReview(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := s.requireReviewer(w, r)
	if !ok {
		return
	}

	var req service.MetricsInput
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	res, err := s.reviews.EditReview(r.Context(), chi.URLParam(r, "reviewID"), reviewerID, req)
	if err != nil {
		s.respondServiceError(w, err, "edit review")
		return
	}

	review := toReviewResponse(res.Review)
	s.respondJSON(w, http.StatusOK, reviewWriteResponse{Review: &review, Course: toCourseResponse(res.Course)})
}

func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := s.requireReviewer(w, r)
	if !ok {
		return
	}

	course, err := s.reviews.DeleteReview(r.Context(), chi.URLParam(r, "reviewID"), reviewerID)
	if err != nil {
		s.respondServiceError(w, err, "delete review")
		return
	}
	s.respondJSON(w, http.StatusOK, reviewWriteResponse{Course: toCourseResponse(course)})
}

func (s *Server) requireReviewer(w http.ResponseWriter, r *http.Request) (string, bool) {
	reviewerID := strings.TrimSpace(r.Header.Get(reviewerHeader))
	if reviewerID == "" {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", fmt.Sprintf("Missing %s header", reviewerHeader))
		return "", false
	}
	return reviewerID, true
}

func toReviewResponse(rv domain.Review) reviewResponse {
	return reviewResponse{
		ID:           rv.ID,
		CourseID:     rv.CourseID,
		ReviewerID:   rv.ReviewerID,
		Year:         rv.Year,
		Semester:     int(rv.Semester),
		Term:         rv.Semester.String(),
		Workload:     rv.Metrics.Workload,
		Difficulty:   rv.Metrics.Difficulty,
		Overall:      rv.Metrics.Overall,
		StaffSupport: rv.Metrics.StaffSupport,
		Body:         rv.Body,
		CreatedAt:    rv.CreatedAt,
		UpdatedAt:    rv.UpdatedAt,
	}
}

func toReviewList(reviews []domain.Review) reviewListResponse {
	items := make([]reviewResponse, 0, len(reviews))
	for _, rv := range reviews {
		items = append(items, toReviewResponse(rv))
	}
	return reviewListResponse{Items: items}
}
