package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/Clark-Hu/course-reviews/internal/domain"
	"github.com/Clark-Hu/course-reviews/internal/service"
	"github.com/Clark-Hu/course-reviews/internal/stats"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Warn("failed to encode response", zap.Error(err))
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError
	switch {
	case errors.As(err, &syntaxError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.As(err, &maxBytesError):
		s.respondError(w, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR", "Request body too large")
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body cannot be empty")
	default:
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to parse request body")
	}
}

// respondServiceError maps service and storage errors onto status codes.
// action names the failed operation in the 500 message.
func (s *Server) respondServiceError(w http.ResponseWriter, err error, action string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		s.respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Code:    "VALIDATION_ERROR",
			Message: verr.Error(),
			Details: verr.Fields,
		})
	case errors.Is(err, stats.ErrInvalidReviewID):
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Malformed review id")
	case errors.Is(err, service.ErrInvalidInput):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, service.ErrForbidden):
		s.respondError(w, http.StatusForbidden, "FORBIDDEN", "Only the author may change this review")
	case errors.Is(err, domain.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	case errors.Is(err, domain.ErrConflict):
		s.respondError(w, http.StatusConflict, "CONFLICT", "Resource already exists")
	case errors.Is(err, domain.ErrContention):
		w.Header().Set("Retry-After", "1")
		s.respondError(w, http.StatusServiceUnavailable, "CONTENTION", "Too many concurrent updates, retry later")
	default:
		s.logger.Error(action+" failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to "+action)
	}
}
