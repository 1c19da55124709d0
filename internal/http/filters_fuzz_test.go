package httpserver

import (
	"net/url"
	"testing"
)

func FuzzBuildCourseFilters(f *testing.F) {
	seeds := []string{
		"q=algebra&department=MATH&limit=10",
		"limit=abc",
		"limit=200",
		"cursor=eyJpZCI6IkNTLTEwMSJ9",
		"",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, raw string) {
		values, err := url.ParseQuery(raw)
		if err != nil {
			return
		}
		_, _ = buildCourseFilters(values)
	})
}
