package httpserver

import (
	"net/http"
	"testing"
)

func BenchmarkHandleSubmitReview(b *testing.B) {
	srv := buildTestServer(b)
	mustCreateCourse(b, srv, "CS-101")

	body := `{"year":2022,"semester":1,"workload":10,"difficulty":3,"overall":4}`
	for b.Loop() {
		rec := do(b, srv, http.MethodPost, "/courses/CS-101/reviews", "bench", body)
		if rec.Code != http.StatusCreated {
			b.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
		}
	}
}

func BenchmarkHandleGetCourse(b *testing.B) {
	srv := buildTestServer(b)
	mustCreateCourse(b, srv, "CS-101")

	for b.Loop() {
		rec := do(b, srv, http.MethodGet, "/courses/CS-101", "", "")
		if rec.Code != http.StatusOK {
			b.Fatalf("unexpected status %d", rec.Code)
		}
	}
}
