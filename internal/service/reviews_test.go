package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Clark-Hu/course-reviews/internal/domain"
	"github.com/Clark-Hu/course-reviews/internal/service/mocks"
	"github.com/Clark-Hu/course-reviews/internal/stats"
)

func f(v float64) *float64 { return &v }

func validInput() ReviewInput {
	return ReviewInput{
		Year:     2022,
		Semester: 1,
		MetricsInput: MetricsInput{
			Workload:   f(10),
			Difficulty: f(3),
			Overall:    f(4),
			Body:       "solid course",
		},
	}
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func newMemoryService(t *testing.T, courseIDs ...string) (*ReviewService, *mocks.MemoryStore) {
	t.Helper()
	store := mocks.NewMemoryStore()
	for _, id := range courseIDs {
		_, err := store.Create(context.Background(), domain.CourseCreateParams{ID: id, Name: id})
		require.NoError(t, err)
	}
	return NewReviewService(store, store, zap.NewNop(), WithBackend("memory")), store
}

func TestNewReviewService(t *testing.T) {
	t.Run("nil repositories panic", func(t *testing.T) {
		assert.Panics(t, func() {
			NewReviewService(nil, &mocks.MockReviewRepository{}, zap.NewNop())
		})
		assert.Panics(t, func() {
			NewReviewService(&mocks.MockCourseRepository{}, nil, zap.NewNop())
		})
	})

	t.Run("options apply", func(t *testing.T) {
		svc := NewReviewService(&mocks.MockCourseRepository{}, &mocks.MockReviewRepository{}, nil,
			WithBackend("postgres"), WithRecentLimit(7))
		assert.Equal(t, "postgres", svc.backend)
		assert.Equal(t, 7, svc.recentLimit)
		assert.NotNil(t, svc.logger)
	})
}

func TestSubmitReview(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2022, time.April, 25, 12, 0, 0, 0, time.UTC)

	t.Run("first review sets the averages", func(t *testing.T) {
		svc, _ := newMemoryService(t, "CS-101")
		svc.now = fixedClock(at)

		in := validInput()
		in.StaffSupport = f(5)
		res, err := svc.SubmitReview(ctx, "CS-101", "alice", in)
		require.NoError(t, err)

		assert.Equal(t, "CS-101-2022-1-1650888000000", res.Review.ID)
		key, err := stats.ParseReviewID(res.Review.ID)
		require.NoError(t, err)
		assert.Equal(t, stats.ReviewKey{CourseID: "CS-101", Year: "2022", Semester: "1"}, key)

		agg := res.Course.Stats
		assert.InDelta(t, 10, *agg.Workload.Average, 1e-9)
		assert.InDelta(t, 4, *agg.Overall.Average, 1e-9)
		assert.InDelta(t, 5, *agg.StaffSupport.Average, 1e-9)
		assert.Equal(t, 1, agg.ReviewCounts["2022"]["1"])
	})

	t.Run("staff support counted only when given", func(t *testing.T) {
		svc, _ := newMemoryService(t, "CS-101")

		with := validInput()
		with.StaffSupport = f(2)
		_, err := svc.SubmitReview(ctx, "CS-101", "alice", with)
		require.NoError(t, err)

		without := validInput()
		without.Semester = 3
		without.Workload = f(20)
		res, err := svc.SubmitReview(ctx, "CS-101", "bob", without)
		require.NoError(t, err)

		agg := res.Course.Stats
		assert.Equal(t, 2, agg.Workload.Count)
		assert.Equal(t, 1, agg.StaffSupport.Count)
		assert.InDelta(t, 15, *agg.Workload.Average, 1e-9)
		assert.InDelta(t, 2, *agg.StaffSupport.Average, 1e-9)
		assert.Equal(t, map[string]map[string]int{"2022": {"1": 1, "3": 1}}, agg.ReviewCounts)
	})

	t.Run("same millisecond gets a fresh identifier", func(t *testing.T) {
		svc, _ := newMemoryService(t, "CS-101")
		svc.now = fixedClock(at)

		first, err := svc.SubmitReview(ctx, "CS-101", "alice", validInput())
		require.NoError(t, err)
		second, err := svc.SubmitReview(ctx, "CS-101", "bob", validInput())
		require.NoError(t, err)

		assert.NotEqual(t, first.Review.ID, second.Review.ID)
		assert.Equal(t, at.Add(time.Millisecond), second.Review.CreatedAt)
		assert.Equal(t, 2, second.Course.Stats.TotalReviews())
	})

	t.Run("unknown course", func(t *testing.T) {
		svc, _ := newMemoryService(t)
		_, err := svc.SubmitReview(ctx, "CS-404", "alice", validInput())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("storage failure is returned", func(t *testing.T) {
		boom := errors.New("connection reset")
		repo := &mocks.MockReviewRepository{
			CommitFunc: func(ctx context.Context, m domain.ReviewMutation, fn domain.AggregateFunc) (domain.CommitResult, error) {
				assert.Equal(t, domain.OpCreate, m.Op)
				return domain.CommitResult{}, boom
			},
		}
		svc := NewReviewService(&mocks.MockCourseRepository{}, repo, zap.NewNop())
		_, err := svc.SubmitReview(ctx, "CS-101", "alice", validInput())
		assert.ErrorIs(t, err, boom)
	})
}

func TestSubmitReview_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMemoryService(t, "CS-101")

	tests := []struct {
		name     string
		courseID string
		reviewer string
		mutate   func(in *ReviewInput)
		field    string
	}{
		{name: "missing workload", mutate: func(in *ReviewInput) { in.Workload = nil }, field: "workload"},
		{name: "workload too high", mutate: func(in *ReviewInput) { in.Workload = f(101) }, field: "workload"},
		{name: "difficulty out of range", mutate: func(in *ReviewInput) { in.Difficulty = f(6) }, field: "difficulty"},
		{name: "overall below one", mutate: func(in *ReviewInput) { in.Overall = f(0) }, field: "overall"},
		{name: "staff support out of range", mutate: func(in *ReviewInput) { in.StaffSupport = f(9) }, field: "staffSupport"},
		{name: "year too early", mutate: func(in *ReviewInput) { in.Year = 1999 }, field: "year"},
		{name: "unknown semester", mutate: func(in *ReviewInput) { in.Semester = 4 }, field: "semester"},
		{name: "body too long", mutate: func(in *ReviewInput) { in.Body = strings.Repeat("x", 10001) }, field: "body"},
		{name: "blank reviewer", reviewer: " "},
		{name: "course id with one field", courseID: "CS101"},
		{name: "course id with four fields", courseID: "CS-101-A-B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			if tt.mutate != nil {
				tt.mutate(&in)
			}
			courseID := tt.courseID
			if courseID == "" {
				courseID = "CS-101"
			}
			reviewer := tt.reviewer
			if reviewer == "" {
				reviewer = "alice"
			}

			_, err := svc.SubmitReview(ctx, courseID, reviewer, in)
			require.ErrorIs(t, err, ErrInvalidInput)

			if tt.field != "" {
				var verr *ValidationError
				require.True(t, errors.As(err, &verr))
				require.NotEmpty(t, verr.Fields)
				assert.Equal(t, tt.field, verr.Fields[0].Field)
			}
		})
	}
}

func TestEditReview(t *testing.T) {
	ctx := context.Background()

	t.Run("edit replaces the sample", func(t *testing.T) {
		svc, _ := newMemoryService(t, "CS-101")
		first, err := svc.SubmitReview(ctx, "CS-101", "alice", validInput())
		require.NoError(t, err)

		second := validInput()
		second.Workload = f(20)
		_, err = svc.SubmitReview(ctx, "CS-101", "bob", second)
		require.NoError(t, err)

		res, err := svc.EditReview(ctx, first.Review.ID, "alice", MetricsInput{
			Workload: f(30), Difficulty: f(3), Overall: f(4), StaffSupport: f(4), Body: "revised",
		})
		require.NoError(t, err)

		assert.Equal(t, "revised", res.Review.Body)
		assert.Equal(t, 2022, res.Review.Year)
		assert.InDelta(t, 25, *res.Course.Stats.Workload.Average, 1e-9)
		assert.Equal(t, 2, res.Course.Stats.Workload.Count)
		assert.Equal(t, 1, res.Course.Stats.StaffSupport.Count)
		assert.Equal(t, 2, res.Course.Stats.TotalReviews())
	})

	t.Run("only the author may edit", func(t *testing.T) {
		svc, store := newMemoryService(t, "CS-101")
		first, err := svc.SubmitReview(ctx, "CS-101", "alice", validInput())
		require.NoError(t, err)

		_, err = svc.EditReview(ctx, first.Review.ID, "mallory", validInput().MetricsInput)
		assert.ErrorIs(t, err, ErrForbidden)

		stored, err := store.Get(ctx, first.Review.ID)
		require.NoError(t, err)
		assert.Equal(t, first.Review.Metrics, stored.Metrics)
	})

	t.Run("malformed identifier", func(t *testing.T) {
		svc, _ := newMemoryService(t)
		_, err := svc.EditReview(ctx, "CS-101-2022", "alice", validInput().MetricsInput)
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.ErrorIs(t, err, stats.ErrInvalidReviewID)
	})

	t.Run("missing review", func(t *testing.T) {
		svc, _ := newMemoryService(t, "CS-101")
		_, err := svc.EditReview(ctx, "CS-101-2022-1-1650888000000", "alice", validInput().MetricsInput)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("invalid ratings", func(t *testing.T) {
		svc, _ := newMemoryService(t, "CS-101")
		in := validInput().MetricsInput
		in.Overall = f(5.5)
		_, err := svc.EditReview(ctx, "CS-101-2022-1-1650888000000", "alice", in)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestDeleteReview(t *testing.T) {
	ctx := context.Background()

	t.Run("deleting the last review empties the aggregate", func(t *testing.T) {
		svc, _ := newMemoryService(t, "CS-102-A")
		in := validInput()
		in.StaffSupport = f(3)
		res, err := svc.SubmitReview(ctx, "CS-102-A", "alice", in)
		require.NoError(t, err)

		course, err := svc.DeleteReview(ctx, res.Review.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, stats.Averages{}, course.Stats.Averages())
		assert.Equal(t, 0, course.Stats.TotalReviews())

		_, err = svc.GetReview(ctx, res.Review.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("only the author may delete", func(t *testing.T) {
		svc, _ := newMemoryService(t, "CS-101")
		res, err := svc.SubmitReview(ctx, "CS-101", "alice", validInput())
		require.NoError(t, err)

		_, err = svc.DeleteReview(ctx, res.Review.ID, "bob")
		assert.ErrorIs(t, err, ErrForbidden)

		_, err = svc.GetReview(ctx, res.Review.ID)
		assert.NoError(t, err)
	})

	t.Run("twice", func(t *testing.T) {
		svc, _ := newMemoryService(t, "CS-101")
		res, err := svc.SubmitReview(ctx, "CS-101", "alice", validInput())
		require.NoError(t, err)

		_, err = svc.DeleteReview(ctx, res.Review.ID, "alice")
		require.NoError(t, err)
		_, err = svc.DeleteReview(ctx, res.Review.ID, "alice")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestReviewService_ConcurrentSubmits(t *testing.T) {
	ctx := context.Background()
	svc, store := newMemoryService(t, "CS-101")

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := validInput()
			in.Year = 2000 + i
			in.Workload = f(float64(i))
			_, err := svc.SubmitReview(ctx, "CS-101", fmt.Sprintf("user-%d", i), in)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	course, err := store.GetByID(ctx, "CS-101")
	require.NoError(t, err)
	assert.Equal(t, workers, course.Stats.Workload.Count)
	assert.Equal(t, workers, course.Stats.TotalReviews())
	assert.Len(t, course.Stats.ReviewCounts, workers)
	assert.InDelta(t, 9.5, *course.Stats.Workload.Average, 1e-9)
}

func TestReviewQueries(t *testing.T) {
	ctx := context.Background()

	t.Run("course reviews require the course", func(t *testing.T) {
		svc, _ := newMemoryService(t)
		_, err := svc.CourseReviews(ctx, "CS-404")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("course reviews oldest first", func(t *testing.T) {
		svc, _ := newMemoryService(t, "CS-101")
		base := time.Date(2022, time.April, 25, 12, 0, 0, 0, time.UTC)
		for i, who := range []string{"alice", "bob"} {
			svc.now = fixedClock(base.Add(time.Duration(i) * time.Minute))
			_, err := svc.SubmitReview(ctx, "CS-101", who, validInput())
			require.NoError(t, err)
		}
		list, err := svc.CourseReviews(ctx, "CS-101")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "alice", list[0].ReviewerID)
	})

	t.Run("recent limit defaults and caps", func(t *testing.T) {
		var got []int
		repo := &mocks.MockReviewRepository{
			RecentFunc: func(ctx context.Context, limit int) ([]domain.Review, error) {
				got = append(got, limit)
				return nil, nil
			},
		}
		svc := NewReviewService(&mocks.MockCourseRepository{}, repo, zap.NewNop(), WithRecentLimit(15))

		for _, limit := range []int{0, -3, 5, 1000} {
			_, err := svc.RecentReviews(ctx, limit)
			require.NoError(t, err)
		}
		assert.Equal(t, []int{15, 15, 5, domain.MaxListLimit}, got)
	})

	t.Run("get rejects malformed identifiers", func(t *testing.T) {
		svc, _ := newMemoryService(t)
		_, err := svc.GetReview(ctx, "nope")
		assert.ErrorIs(t, err, stats.ErrInvalidReviewID)
	})
}

func BenchmarkSubmitReview(b *testing.B) {
	ctx := context.Background()
	store := mocks.NewMemoryStore()
	_, _ = store.Create(ctx, domain.CourseCreateParams{ID: "CS-101", Name: "Intro"})
	svc := NewReviewService(store, store, zap.NewNop())

	at := time.Date(2022, time.April, 25, 12, 0, 0, 0, time.UTC)
	i := 0
	svc.now = func() time.Time {
		i++
		return at.Add(time.Duration(i) * time.Second)
	}

	in := validInput()
	for b.Loop() {
		if _, err := svc.SubmitReview(ctx, "CS-101", "bench", in); err != nil {
			b.Fatalf("submit: %v", err)
		}
	}
}
