package resolve

import (
	"context"
	"fmt"
	"time"

	"agridata/internal/domain"
)

// DefaultMaxCombinationDepth bounds how many search candidates per dimension
// enter the combinatorial sweep. The product grows as depth^k for k supplied
// dimensions, so this is the sweep's only backpressure control.
const DefaultMaxCombinationDepth = 3

// Query is a name-based series request. Empty dimension names are unset.
// StartDate/EndDate narrow the requested time range; they affect ranking
// but not series identity.
type Query struct {
	Item          string
	Metric        string
	Region        string
	PartnerRegion string
	StartDate     time.Time
	EndDate       time.Time
}

// Empty reports whether no dimension name was supplied.
func (q Query) Empty() bool {
	return q.Item == "" && q.Metric == "" && q.Region == "" && q.PartnerRegion == ""
}

// Searcher resolves a free-text name to a ranked list of candidate entities.
type Searcher interface {
	Search(ctx context.Context, entityType domain.EntityType, text string) ([]domain.Entity, error)
}

// Expander turns name queries into concrete entity-ID combinations.
type Expander struct {
	searcher Searcher
	depth    int
}

// NewExpander creates an Expander with the default combination depth.
func NewExpander(searcher Searcher) *Expander {
	return &Expander{searcher: searcher, depth: DefaultMaxCombinationDepth}
}

// WithDepth sets the per-dimension truncation depth. Depth 0 yields zero
// combinations for any supplied dimension.
func (e *Expander) WithDepth(depth int) *Expander {
	e.depth = depth
	return e
}

// dimension pairs a search namespace with the filter field it constrains.
type dimension struct {
	entityType domain.EntityType
	text       string
	assign     func(*domain.SeriesFilter, int)
}

// Expand searches each supplied dimension, truncates each candidate list to
// the configured depth, and returns the Cartesian product of the truncated
// lists as series filters. Enumeration is dimension-major in item, metric,
// region, partner-region order; within a dimension the search engine's rank
// order is preserved, so output order is reproducible given reproducible
// search results. A query with no dimensions yields no combinations.
func (e *Expander) Expand(ctx context.Context, q Query) ([]domain.SeriesFilter, error) {
	var dims []dimension
	if q.Item != "" {
		dims = append(dims, dimension{domain.EntityItems, q.Item,
			func(f *domain.SeriesFilter, id int) { f.ItemID = &id }})
	}
	if q.Metric != "" {
		dims = append(dims, dimension{domain.EntityMetrics, q.Metric,
			func(f *domain.SeriesFilter, id int) { f.MetricID = &id }})
	}
	if q.Region != "" {
		dims = append(dims, dimension{domain.EntityRegions, q.Region,
			func(f *domain.SeriesFilter, id int) { f.RegionID = &id }})
	}
	if q.PartnerRegion != "" {
		dims = append(dims, dimension{domain.EntityRegions, q.PartnerRegion,
			func(f *domain.SeriesFilter, id int) { f.PartnerRegionID = &id }})
	}
	if len(dims) == 0 {
		return nil, nil
	}

	candidates := make([][]domain.Entity, len(dims))
	for i, dim := range dims {
		results, err := e.searcher.Search(ctx, dim.entityType, dim.text)
		if err != nil {
			return nil, fmt.Errorf("search %s %q: %w", dim.entityType, dim.text, err)
		}
		if len(results) > e.depth {
			results = results[:e.depth]
		}
		if len(results) == 0 {
			// A dimension with no candidates empties the whole product.
			return nil, nil
		}
		candidates[i] = results
	}

	var filters []domain.SeriesFilter
	indices := make([]int, len(dims))
	for {
		filter := domain.SeriesFilter{}
		for i, dim := range dims {
			dim.assign(&filter, candidates[i][indices[i]].ID)
		}
		filters = append(filters, filter)

		// Advance the odometer, last dimension fastest.
		i := len(dims) - 1
		for ; i >= 0; i-- {
			indices[i]++
			if indices[i] < len(candidates[i]) {
				break
			}
			indices[i] = 0
		}
		if i < 0 {
			return filters, nil
		}
	}
}
