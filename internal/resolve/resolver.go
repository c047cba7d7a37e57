package resolve

import (
	"context"
	"log"
	"time"

	"agridata/internal/domain"
)

// SeriesLister is the series-lookup side of the remote API.
type SeriesLister interface {
	GetDataSeries(ctx context.Context, filter domain.SeriesFilter) ([]domain.Series, error)
}

// CombinationResult records the outcome of one combination's series lookup.
type CombinationResult struct {
	Filter domain.SeriesFilter
	Series []domain.Series
	Err    error
}

// Report aggregates the outcomes of a resolution sweep.
type Report struct {
	Results []CombinationResult
}

// Series concatenates the series of all successful combinations in sweep
// order. Near-duplicates from overlapping combinations are not removed here;
// ranking surfaces them adjacently.
func (r Report) Series() []domain.Series {
	var all []domain.Series
	for _, res := range r.Results {
		all = append(all, res.Series...)
	}
	return all
}

// Failed returns how many combinations failed to resolve.
func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// Resolver sweeps entity-ID combinations through the series lookup.
type Resolver struct {
	lister SeriesLister
	logger *log.Logger
}

// NewResolver creates a Resolver. A nil logger disables logging.
func NewResolver(lister SeriesLister, logger *log.Logger) *Resolver {
	return &Resolver{lister: lister, logger: logger}
}

// Resolve looks up the available series for each combination. A failed
// lookup contributes zero series and is recorded in the report; the sweep
// never aborts on individual failures. When start/end are non-zero they are
// stamped onto every returned descriptor, since temporal coverage affects
// ranking.
func (r *Resolver) Resolve(ctx context.Context, combinations []domain.SeriesFilter, start, end time.Time) Report {
	report := Report{Results: make([]CombinationResult, 0, len(combinations))}

	for _, filter := range combinations {
		series, err := r.lister.GetDataSeries(ctx, filter)
		if err != nil {
			if r.logger != nil {
				r.logger.Printf("series lookup failed for %s: %v", filter, err)
			}
			report.Results = append(report.Results, CombinationResult{Filter: filter, Err: err})
			continue
		}

		for i := range series {
			if !start.IsZero() {
				series[i].StartDate = start
			}
			if !end.IsZero() {
				series[i].EndDate = end
			}
		}
		if r.logger != nil {
			r.logger.Printf("found %d distinct data series for %s", len(series), filter)
		}
		report.Results = append(report.Results, CombinationResult{Filter: filter, Series: series})
	}

	return report
}
