// Package stats maintains per-course running averages as reviews are added,
// edited and deleted, without rescanning the underlying reviews.
//
// Everything here is pure: callers read the current aggregate from storage,
// compute the next one with this package, and write it back.
package stats

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidCount is returned for impossible sample-count bookkeeping.
	ErrInvalidCount = errors.New("stats: invalid sample count")
	// ErrInvalidValue is matched by InvalidValueError.
	ErrInvalidValue = errors.New("stats: invalid metric value")
)

// InvalidValueError reports a non-finite number handed to the aggregator.
type InvalidValueError struct {
	Field string
	Value float64
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("stats: %s is not a finite number (%v)", e.Field, e.Value)
}

func (e *InvalidValueError) Is(target error) bool {
	return target == ErrInvalidValue
}

// AverageUpdate describes one change to a single metric.
//
// The operation is implied by the counts: NewCount = OldCount+1 adds NewValue,
// NewCount = OldCount edits OldValue into NewValue, and NewCount = OldCount-1
// removes OldValue. Nil values count as zero. OldAverage may be nil only
// when OldCount is zero.
type AverageUpdate struct {
	OldAverage *float64
	OldCount   int
	NewCount   int
	OldValue   *float64
	NewValue   *float64
}

// UpdateAverage returns the running average after applying p, or nil when no
// samples remain. A zero NewCount short-circuits before any other input is
// inspected.
func UpdateAverage(p AverageUpdate) (*float64, error) {
	if p.NewCount == 0 {
		return nil, nil
	}
	if err := checkCounts(p.OldCount, p.NewCount); err != nil {
		return nil, err
	}
	if p.OldAverage == nil && p.OldCount > 0 {
		return nil, fmt.Errorf("%w: no old average for %d samples", ErrInvalidCount, p.OldCount)
	}

	oldAverage, err := finite("old average", p.OldAverage)
	if err != nil {
		return nil, err
	}
	oldValue, err := finite("old value", p.OldValue)
	if err != nil {
		return nil, err
	}
	newValue, err := finite("new value", p.NewValue)
	if err != nil {
		return nil, err
	}

	result := (oldAverage*float64(p.OldCount) - oldValue + newValue) / float64(p.NewCount)
	return &result, nil
}

func checkCounts(oldCount, newCount int) error {
	if oldCount < 0 || newCount < 0 {
		return fmt.Errorf("%w: counts %d -> %d", ErrInvalidCount, oldCount, newCount)
	}
	if delta := newCount - oldCount; delta < -1 || delta > 1 {
		return fmt.Errorf("%w: counts %d -> %d change by more than one sample", ErrInvalidCount, oldCount, newCount)
	}
	return nil
}

func finite(field string, v *float64) (float64, error) {
	if v == nil {
		return 0, nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, &InvalidValueError{Field: field, Value: *v}
	}
	return *v, nil
}

// AveragesUpdate is the four-metric form of AverageUpdate. All metrics share
// the sample counts because they come from the same review.
type AveragesUpdate struct {
	OldCount int
	NewCount int

	AvgWorkload     *float64
	AvgDifficulty   *float64
	AvgOverall      *float64
	AvgStaffSupport *float64

	OldWorkload     *float64
	OldDifficulty   *float64
	OldOverall      *float64
	OldStaffSupport *float64

	NewWorkload     *float64
	NewDifficulty   *float64
	NewOverall      *float64
	NewStaffSupport *float64
}

// Averages holds the recomputed average of each metric; nil means no data.
type Averages struct {
	AvgWorkload     *float64 `json:"avgWorkload"`
	AvgDifficulty   *float64 `json:"avgDifficulty"`
	AvgOverall      *float64 `json:"avgOverall"`
	AvgStaffSupport *float64 `json:"avgStaffSupport"`
}

// UpdateAverages applies UpdateAverage to each metric independently. A metric
// with no average, old value or new value is left nil; it has no samples and
// this review does not carry it.
func UpdateAverages(in AveragesUpdate) (Averages, error) {
	var out Averages
	metrics := []struct {
		name      string
		avg       *float64
		old, next *float64
		out       **float64
	}{
		{"workload", in.AvgWorkload, in.OldWorkload, in.NewWorkload, &out.AvgWorkload},
		{"difficulty", in.AvgDifficulty, in.OldDifficulty, in.NewDifficulty, &out.AvgDifficulty},
		{"overall", in.AvgOverall, in.OldOverall, in.NewOverall, &out.AvgOverall},
		{"staff support", in.AvgStaffSupport, in.OldStaffSupport, in.NewStaffSupport, &out.AvgStaffSupport},
	}

	for _, m := range metrics {
		if m.avg == nil && m.old == nil && m.next == nil {
			continue
		}
		avg, err := UpdateAverage(AverageUpdate{
			OldAverage: m.avg,
			OldCount:   in.OldCount,
			NewCount:   in.NewCount,
			OldValue:   m.old,
			NewValue:   m.next,
		})
		if err != nil {
			return Averages{}, fmt.Errorf("%s: %w", m.name, err)
		}
		*m.out = avg
	}
	return out, nil
}
