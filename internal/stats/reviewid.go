package stats

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidReviewID is matched by every review identifier parsing failure.
var ErrInvalidReviewID = errors.New("stats: invalid review id")

// InvalidReviewIDError reports a review identifier whose field count is not 5 or 6.
type InvalidReviewIDError struct {
	ID     string
	Fields int
}

func (e *InvalidReviewIDError) Error() string {
	return fmt.Sprintf("stats: invalid review id %q: got %d fields, want 5 or 6", e.ID, e.Fields)
}

// Is lets errors.Is(err, ErrInvalidReviewID) match.
func (e *InvalidReviewIDError) Is(target error) bool {
	return target == ErrInvalidReviewID
}

// Semester is the academic term code embedded in review identifiers.
type Semester int

const (
	Spring Semester = 1
	Summer Semester = 2
	Fall   Semester = 3
)

func (s Semester) String() string {
	switch s {
	case Spring:
		return "spring"
	case Summer:
		return "summer"
	case Fall:
		return "fall"
	default:
		return "semester(" + strconv.Itoa(int(s)) + ")"
	}
}

// Valid reports whether s is one of the known terms.
func (s Semester) Valid() bool {
	return s >= Spring && s <= Fall
}

// ParseSemester converts a term code such as "3" into a Semester.
func ParseSemester(raw string) (Semester, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("stats: semester %q: %w", raw, err)
	}
	s := Semester(n)
	if !s.Valid() {
		return 0, fmt.Errorf("stats: semester %d out of range", n)
	}
	return s, nil
}

// ReviewKey is the course and term a review identifier belongs to.
type ReviewKey struct {
	CourseID string
	Year     string
	Semester string
}

// Bucket returns the review-count bucket coordinates for the key.
func (k ReviewKey) Bucket() (year, semester string) {
	return k.Year, k.Semester
}

// ParseReviewID decomposes {dept}-{number}[-{section}]-{year}-{semester}-{created}.
func ParseReviewID(reviewID string) (ReviewKey, error) {
	fields := strings.Split(reviewID, "-")
	switch len(fields) {
	case 5:
		return ReviewKey{
			CourseID: fields[0] + "-" + fields[1],
			Year:     fields[2],
			Semester: fields[3],
		}, nil
	case 6:
		return ReviewKey{
			CourseID: fields[0] + "-" + fields[1] + "-" + fields[2],
			Year:     fields[3],
			Semester: fields[4],
		}, nil
	default:
		return ReviewKey{}, &InvalidReviewIDError{ID: reviewID, Fields: len(fields)}
	}
}

// FormatReviewID builds the identifier for a review created at createdAt.
// The result is guaranteed to parse back to key.
func FormatReviewID(key ReviewKey, createdAt time.Time) (string, error) {
	id := strings.Join([]string{
		key.CourseID,
		key.Year,
		key.Semester,
		strconv.FormatInt(createdAt.UnixMilli(), 10),
	}, "-")

	parsed, err := ParseReviewID(id)
	if err != nil {
		return "", err
	}
	if parsed != key {
		return "", fmt.Errorf("%w: %q does not round-trip to %+v", ErrInvalidReviewID, id, key)
	}
	return id, nil
}

// ValidCourseID reports whether id can be embedded in a review identifier.
func ValidCourseID(id string) bool {
	fields := strings.Split(id, "-")
	if len(fields) != 2 && len(fields) != 3 {
		return false
	}
	for _, f := range fields {
		if f == "" {
			return false
		}
	}
	return true
}
