package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/course-reviews/internal/domain"
)

func sampleCourses() []domain.Course {
	return []domain.Course{
		{ID: "MATH-201", Name: "Linear Algebra", Department: "MATH"},
		{ID: "CS-101", Name: "Intro to Programming", Department: "CS"},
		{ID: "CS-102-A", Name: "Data Structures", Department: "CS"},
		{ID: "CS-201", Name: "Algorithms", Department: "CS"},
	}
}

func ids(courses []domain.Course) []string {
	out := make([]string, len(courses))
	for i, c := range courses {
		out[i] = c.ID
	}
	return out
}

func TestFilterCourses(t *testing.T) {
	str := func(s string) *string { return &s }

	tests := []struct {
		name    string
		filters domain.CourseListFilters
		want    []string
	}{
		{
			name: "all ordered by id",
			want: []string{"CS-101", "CS-102-A", "CS-201", "MATH-201"},
		},
		{
			name:    "query matches name case-insensitively",
			filters: domain.CourseListFilters{Query: str("ALGO")},
			want:    []string{"CS-201", "MATH-201"},
		},
		{
			name:    "query matches id",
			filters: domain.CourseListFilters{Query: str("102")},
			want:    []string{"CS-102-A"},
		},
		{
			name:    "department",
			filters: domain.CourseListFilters{Department: str("cs")},
			want:    []string{"CS-101", "CS-102-A", "CS-201"},
		},
		{
			name:    "blank filters are ignored",
			filters: domain.CourseListFilters{Query: str("  "), Department: str("")},
			want:    []string{"CS-101", "CS-102-A", "CS-201", "MATH-201"},
		},
		{
			name:    "after cursor",
			filters: domain.CourseListFilters{Cursor: &domain.CourseCursor{ID: "CS-102-A"}},
			want:    []string{"CS-201", "MATH-201"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := filterCourses(sampleCourses(), tt.filters)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(res.Items))
			assert.Nil(t, res.NextCursor)
		})
	}
}

func TestFilterCourses_Pagination(t *testing.T) {
	filters := domain.CourseListFilters{Limit: 2}

	first, err := filterCourses(sampleCourses(), filters)
	require.NoError(t, err)
	assert.Equal(t, []string{"CS-101", "CS-102-A"}, ids(first.Items))
	require.NotNil(t, first.NextCursor)

	cursor, err := domain.DecodeCursor(*first.NextCursor)
	require.NoError(t, err)
	filters.Cursor = cursor

	second, err := filterCourses(sampleCourses(), filters)
	require.NoError(t, err)
	assert.Equal(t, []string{"CS-201", "MATH-201"}, ids(second.Items))
	require.NotNil(t, second.NextCursor)

	cursor, err = domain.DecodeCursor(*second.NextCursor)
	require.NoError(t, err)
	filters.Cursor = cursor

	third, err := filterCourses(sampleCourses(), filters)
	require.NoError(t, err)
	assert.Empty(t, third.Items)
	assert.Nil(t, third.NextCursor)
}
