package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Clark-Hu/course-reviews/internal/domain"
	"github.com/Clark-Hu/course-reviews/internal/metrics"
)

// Reviews is the review view of a Store.
type Reviews struct {
	store *Store
}

// Get fetches a review document.
func (r *Reviews) Get(ctx context.Context, id string) (domain.Review, error) {
	var doc reviewDoc
	if err := getJSON(ctx, r.store.client, reviewKey(id), &doc); err != nil {
		if isNil(err) {
			return domain.Review{}, domain.ErrNotFound
		}
		return domain.Review{}, err
	}
	return doc.toDomain(), nil
}

// ListByCourse returns a course's reviews, oldest first.
func (r *Reviews) ListByCourse(ctx context.Context, courseID string) ([]domain.Review, error) {
	ids, err := r.store.client.ZRange(ctx, courseReviewsKey(courseID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return r.load(ctx, ids)
}

// Recent returns up to limit of the newest reviews.
func (r *Reviews) Recent(ctx context.Context, limit int) ([]domain.Review, error) {
	if limit <= 0 {
		return []domain.Review{}, nil
	}
	if limit > r.store.recentCap {
		limit = r.store.recentCap
	}
	ids, err := r.store.client.LRange(ctx, recentKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	return r.load(ctx, ids)
}

func (r *Reviews) load(ctx context.Context, ids []string) ([]domain.Review, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = reviewKey(id)
	}
	docs, err := mgetJSON[reviewDoc](ctx, r.store.client, keys)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Review, len(docs))
	for i, d := range docs {
		out[i] = d.toDomain()
	}
	return out, nil
}

// Commit applies a review mutation and the aggregate change computed by fn.
// The course and review keys are watched; if either changes before EXEC the
// whole read-compute-write is retried, and ErrContention is returned once
// the retry budget is spent.
func (r *Reviews) Commit(ctx context.Context, m domain.ReviewMutation, fn domain.AggregateFunc) (domain.CommitResult, error) {
	cKey := courseKey(m.Review.CourseID)
	rKey := reviewKey(m.Review.ID)

	var result domain.CommitResult
	txf := func(tx *redis.Tx) error {
		res, err := r.commitTx(ctx, tx, m, fn)
		if err != nil {
			return err
		}
		result = res
		return nil
	}

	for attempt := 1; attempt <= r.store.retries; attempt++ {
		err := r.store.client.Watch(ctx, txf, cKey, rKey)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return domain.CommitResult{}, err
		}
		metrics.RecordCommitRetry(Backend)
		r.store.logger.Debug("review commit lost a race, retrying",
			zap.String("review_id", m.Review.ID),
			zap.Int("attempt", attempt))
	}

	r.store.logger.Warn("review commit gave up",
		zap.String("review_id", m.Review.ID),
		zap.Int("attempts", r.store.retries))
	return domain.CommitResult{}, domain.ErrContention
}

func (r *Reviews) commitTx(ctx context.Context, tx *redis.Tx, m domain.ReviewMutation, fn domain.AggregateFunc) (domain.CommitResult, error) {
	cKey := courseKey(m.Review.CourseID)
	rKey := reviewKey(m.Review.ID)

	var course courseDoc
	if err := getJSON(ctx, tx, cKey, &course); err != nil {
		if isNil(err) {
			return domain.CommitResult{}, domain.ErrNotFound
		}
		return domain.CommitResult{}, fmt.Errorf("load course %s: %w", m.Review.CourseID, err)
	}

	var stored reviewDoc
	err := getJSON(ctx, tx, rKey, &stored)
	switch {
	case err != nil && !isNil(err):
		return domain.CommitResult{}, fmt.Errorf("load review %s: %w", m.Review.ID, err)
	case m.Op == domain.OpCreate && err == nil:
		return domain.CommitResult{}, domain.ErrConflict
	case m.Op != domain.OpCreate && err != nil:
		return domain.CommitResult{}, domain.ErrNotFound
	case m.Op != domain.OpCreate && stored.CourseID != m.Review.CourseID:
		return domain.CommitResult{}, domain.ErrNotFound
	}

	var previous *domain.Review
	if m.Op != domain.OpCreate {
		prev := stored.toDomain()
		previous = &prev
	}

	next, err := fn(course.Aggregate, previous)
	if err != nil {
		return domain.CommitResult{}, err
	}

	ts := now()
	course.Aggregate = next
	course.UpdatedAt = ts
	coursePayload, err := json.Marshal(course)
	if err != nil {
		return domain.CommitResult{}, fmt.Errorf("encode course: %w", err)
	}

	written, err := nextReview(m, previous, ts)
	if err != nil {
		return domain.CommitResult{}, err
	}
	var reviewPayload []byte
	if written != nil {
		if reviewPayload, err = json.Marshal(newReviewDoc(*written)); err != nil {
			return domain.CommitResult{}, fmt.Errorf("encode review: %w", err)
		}
	}

	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, cKey, coursePayload, 0)
		switch m.Op {
		case domain.OpCreate:
			pipe.Set(ctx, rKey, reviewPayload, 0)
			pipe.ZAdd(ctx, courseReviewsKey(m.Review.CourseID), redis.Z{
				Score:  float64(written.CreatedAt.UnixMilli()),
				Member: written.ID,
			})
			pipe.LPush(ctx, recentKey, written.ID)
			pipe.LTrim(ctx, recentKey, 0, int64(r.store.recentListLen()-1))
		case domain.OpUpdate:
			pipe.Set(ctx, rKey, reviewPayload, 0)
		case domain.OpDelete:
			pipe.Del(ctx, rKey)
			pipe.ZRem(ctx, courseReviewsKey(m.Review.CourseID), m.Review.ID)
			pipe.LRem(ctx, recentKey, 0, m.Review.ID)
		}
		return nil
	})
	if err != nil {
		return domain.CommitResult{}, err
	}

	return domain.CommitResult{Course: course.toDomain(), Review: written, Previous: previous}, nil
}

// nextReview is the review document as it will be stored after m, or nil
// for deletes. Updates keep the stored identity, author and term.
func nextReview(m domain.ReviewMutation, previous *domain.Review, ts time.Time) (*domain.Review, error) {
	switch m.Op {
	case domain.OpCreate:
		rv := m.Review
		if rv.CreatedAt.IsZero() {
			rv.CreatedAt = ts
		}
		rv.UpdatedAt = rv.CreatedAt
		return &rv, nil
	case domain.OpUpdate:
		rv := *previous
		rv.Metrics = m.Review.Metrics
		rv.Body = m.Review.Body
		rv.UpdatedAt = ts
		return &rv, nil
	case domain.OpDelete:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown review op %d", m.Op)
	}
}
