package httpserver

import (
	"net/url"
	"testing"

	"github.com/Clark-Hu/course-reviews/internal/domain"
)

func TestBuildCourseFilters(t *testing.T) {
	token, err := domain.EncodeCursor(domain.CourseCursor{ID: "CS-101"})
	if err != nil {
		t.Fatalf("encode cursor: %v", err)
	}
	values := url.Values{}
	values.Set("q", " algebra ")
	values.Set("department", " MATH ")
	values.Set("limit", "150")
	values.Set("cursor", token)

	filters, err := buildCourseFilters(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters.Query == nil || *filters.Query != "algebra" {
		t.Fatalf("query not trimmed: %+v", filters.Query)
	}
	if filters.Department == nil || *filters.Department != "MATH" {
		t.Fatalf("department parse failed: %+v", filters.Department)
	}
	if filters.Limit != 150 {
		t.Fatalf("limit not parsed: %d", filters.Limit)
	}
	if filters.Cursor == nil || filters.Cursor.ID != "CS-101" {
		t.Fatalf("cursor parse failed: %+v", filters.Cursor)
	}
}

func TestBuildCourseFilters_Invalid(t *testing.T) {
	for _, raw := range []string{"limit=abc", "limit=-5", "cursor=%%%", "cursor=bm90IGpzb24="} {
		values, err := url.ParseQuery(raw)
		if err != nil {
			values = url.Values{"cursor": {"%%%"}}
		}
		if _, err := buildCourseFilters(values); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
