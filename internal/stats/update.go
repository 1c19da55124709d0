package stats

import "fmt"

// RunningAverage is a metric's mean over Count samples. Average is nil
// exactly when Count is zero.
type RunningAverage struct {
	Average *float64 `json:"average"`
	Count   int      `json:"count"`
}

// Value returns the average and whether any samples exist.
func (r RunningAverage) Value() (float64, bool) {
	if r.Average == nil {
		return 0, false
	}
	return *r.Average, true
}

func (r RunningAverage) validate() error {
	if r.Count < 0 {
		return fmt.Errorf("%w: negative count %d", ErrInvalidCount, r.Count)
	}
	if (r.Average == nil) != (r.Count == 0) {
		return fmt.Errorf("%w: average presence does not match count %d", ErrInvalidCount, r.Count)
	}
	return nil
}

// Update is one sample change: Add, Edit or Delete.
type Update interface {
	averageUpdate(avg RunningAverage) AverageUpdate
}

// Add introduces a new sample.
type Add struct {
	Value float64
}

// Edit replaces a sample's value.
type Edit struct {
	Old float64
	New float64
}

// Delete removes a sample.
type Delete struct {
	Value float64
}

func (u Add) averageUpdate(avg RunningAverage) AverageUpdate {
	return AverageUpdate{
		OldAverage: avg.Average,
		OldCount:   avg.Count,
		NewCount:   avg.Count + 1,
		NewValue:   &u.Value,
	}
}

func (u Edit) averageUpdate(avg RunningAverage) AverageUpdate {
	return AverageUpdate{
		OldAverage: avg.Average,
		OldCount:   avg.Count,
		NewCount:   avg.Count,
		OldValue:   &u.Old,
		NewValue:   &u.New,
	}
}

func (u Delete) averageUpdate(avg RunningAverage) AverageUpdate {
	return AverageUpdate{
		OldAverage: avg.Average,
		OldCount:   avg.Count,
		NewCount:   avg.Count - 1,
		OldValue:   &u.Value,
	}
}

// ApplyUpdate returns avg after u. The input is never modified.
func ApplyUpdate(avg RunningAverage, u Update) (RunningAverage, error) {
	if err := avg.validate(); err != nil {
		return RunningAverage{}, err
	}
	if u == nil {
		return avg, nil
	}
	p := u.averageUpdate(avg)
	if p.NewCount < 0 {
		return RunningAverage{}, fmt.Errorf("%w: delete from an empty average", ErrInvalidCount)
	}
	if _, isEdit := u.(Edit); isEdit && avg.Count == 0 {
		return RunningAverage{}, fmt.Errorf("%w: edit of an empty average", ErrInvalidCount)
	}
	next, err := UpdateAverage(p)
	if err != nil {
		return RunningAverage{}, err
	}
	return RunningAverage{Average: next, Count: p.NewCount}, nil
}

// Change derives the update that turns before into after, where nil means the
// metric is absent. It returns nil when the metric is absent on both sides.
func Change(before, after *float64) Update {
	switch {
	case before == nil && after == nil:
		return nil
	case before == nil:
		return Add{Value: *after}
	case after == nil:
		return Delete{Value: *before}
	default:
		return Edit{Old: *before, New: *after}
	}
}
