package stats

import "fmt"

// Metrics are the rated values carried by one review. StaffSupport is
// optional.
type Metrics struct {
	Workload     float64  `json:"workload"`
	Difficulty   float64  `json:"difficulty"`
	Overall      float64  `json:"overall"`
	StaffSupport *float64 `json:"staffSupport,omitempty"`
}

// CourseAggregate is the set of running averages and per-term review counts
// kept for one course.
type CourseAggregate struct {
	Workload     RunningAverage `json:"workload"`
	Difficulty   RunningAverage `json:"difficulty"`
	Overall      RunningAverage `json:"overall"`
	StaffSupport RunningAverage `json:"staffSupport"`

	// ReviewCounts is keyed by year, then semester term.
	ReviewCounts map[string]map[string]int `json:"reviewCounts,omitempty"`
}

// Averages flattens the aggregate into its four averages.
func (a CourseAggregate) Averages() Averages {
	return Averages{
		AvgWorkload:     a.Workload.Average,
		AvgDifficulty:   a.Difficulty.Average,
		AvgOverall:      a.Overall.Average,
		AvgStaffSupport: a.StaffSupport.Average,
	}
}

// TotalReviews sums every (year, semester) bucket.
func (a CourseAggregate) TotalReviews() int {
	total := 0
	for _, terms := range a.ReviewCounts {
		for _, n := range terms {
			total += n
		}
	}
	return total
}

// Apply returns the aggregate after a review keyed by key changes from before
// to after. A nil before is a new review and a nil after is a deleted one.
// The receiver is left untouched.
func (a CourseAggregate) Apply(key ReviewKey, before, after *Metrics) (CourseAggregate, error) {
	if before == nil && after == nil {
		return a.clone(), nil
	}

	var b, n metricValues
	if before != nil {
		b = before.values()
	}
	if after != nil {
		n = after.values()
	}

	next := a.clone()
	targets := []struct {
		name string
		avg  *RunningAverage
		idx  int
	}{
		{"workload", &next.Workload, 0},
		{"difficulty", &next.Difficulty, 1},
		{"overall", &next.Overall, 2},
		{"staff support", &next.StaffSupport, 3},
	}
	for _, t := range targets {
		updated, err := ApplyUpdate(*t.avg, Change(b[t.idx], n[t.idx]))
		if err != nil {
			return CourseAggregate{}, fmt.Errorf("%s: %w", t.name, err)
		}
		*t.avg = updated
	}

	year, semester := key.Bucket()
	switch {
	case before == nil:
		if next.ReviewCounts == nil {
			next.ReviewCounts = make(map[string]map[string]int)
		}
		if next.ReviewCounts[year] == nil {
			next.ReviewCounts[year] = make(map[string]int)
		}
		next.ReviewCounts[year][semester]++
	case after == nil:
		if next.ReviewCounts[year][semester] <= 0 {
			return CourseAggregate{}, fmt.Errorf("%w: no reviews counted for %s-%s", ErrInvalidCount, year, semester)
		}
		next.ReviewCounts[year][semester]--
		if next.ReviewCounts[year][semester] == 0 {
			delete(next.ReviewCounts[year], semester)
		}
		if len(next.ReviewCounts[year]) == 0 {
			delete(next.ReviewCounts, year)
		}
	}
	return next, nil
}

type metricValues [4]*float64

func (m Metrics) values() metricValues {
	return metricValues{&m.Workload, &m.Difficulty, &m.Overall, m.StaffSupport}
}

func (a CourseAggregate) clone() CourseAggregate {
	out := a
	if a.ReviewCounts != nil {
		out.ReviewCounts = make(map[string]map[string]int, len(a.ReviewCounts))
		for year, terms := range a.ReviewCounts {
			copied := make(map[string]int, len(terms))
			for semester, n := range terms {
				copied[semester] = n
			}
			out.ReviewCounts[year] = copied
		}
	}
	return out
}
