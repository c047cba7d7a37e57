package resolve

import (
	"container/heap"
	"time"

	"agridata/internal/domain"
)

// RankOptions parameterize the ranking policy. SourceOrder is a total
// precedence order over source IDs, best first; sources not listed rank
// after all listed ones, ordered among themselves by source ID. When
// StartDate/EndDate are zero the coverage term degrades to raw span breadth.
type RankOptions struct {
	StartDate   time.Time
	EndDate     time.Time
	SourceOrder []int
}

// Rank orders candidate series best-first by temporal coverage, then source
// precedence, then a deterministic descriptor-field tiebreak. The result is
// a lazily drained priority sequence: taking the top N costs O(N log M)
// beyond the initial heapify, without sorting the full input. Rank is a pure
// function of its inputs and performs no I/O.
func Rank(candidates []domain.Series, opts RankOptions) *Ranked {
	sourceRank := make(map[int]int, len(opts.SourceOrder))
	for i, id := range opts.SourceOrder {
		sourceRank[id] = i
	}
	unknownRank := len(opts.SourceOrder)

	items := make([]rankedItem, len(candidates))
	for i, s := range candidates {
		rank, known := sourceRank[s.SourceID]
		if !known {
			rank = unknownRank
		}
		items[i] = rankedItem{
			series:     s,
			coverage:   coverage(s, opts.StartDate, opts.EndDate),
			sourceRank: rank,
		}
	}

	h := &seriesHeap{items: items}
	heap.Init(h)
	return &Ranked{heap: h}
}

// Ranked is a single-pass best-first sequence of series. Re-iteration is not
// supported; call Rank again to restart.
type Ranked struct {
	heap *seriesHeap
}

// Next pops the best remaining series. ok is false once drained.
func (r *Ranked) Next() (domain.Series, bool) {
	if r.heap.Len() == 0 {
		return domain.Series{}, false
	}
	item := heap.Pop(r.heap).(rankedItem)
	return item.series, true
}

// Take pops up to n series in rank order.
func (r *Ranked) Take(n int) []domain.Series {
	var out []domain.Series
	for len(out) < n {
		s, ok := r.Next()
		if !ok {
			break
		}
		out = append(out, s)
	}
	return out
}

// All drains the remaining sequence in rank order.
func (r *Ranked) All() []domain.Series {
	out := make([]domain.Series, 0, r.heap.Len())
	for {
		s, ok := r.Next()
		if !ok {
			return out
		}
		out = append(out, s)
	}
}

// Len returns how many series remain.
func (r *Ranked) Len() int {
	return r.heap.Len()
}

// coverage scores how well a series' bounds cover the requested range.
// With a requested range: the covered fraction of that range in [0, 1];
// series without date bounds score 0. Without one: the raw span breadth in
// days, so broader series rank higher.
func coverage(s domain.Series, start, end time.Time) float64 {
	if s.StartDate.IsZero() || s.EndDate.IsZero() || s.EndDate.Before(s.StartDate) {
		return 0
	}

	if start.IsZero() || end.IsZero() || !end.After(start) {
		return s.EndDate.Sub(s.StartDate).Hours() / 24
	}

	overlapStart := s.StartDate
	if start.After(overlapStart) {
		overlapStart = start
	}
	overlapEnd := s.EndDate
	if end.Before(overlapEnd) {
		overlapEnd = end
	}
	if !overlapEnd.After(overlapStart) {
		return 0
	}
	return overlapEnd.Sub(overlapStart).Hours() / end.Sub(start).Hours()
}

type rankedItem struct {
	series     domain.Series
	coverage   float64
	sourceRank int
}

// seriesHeap orders items best-first. container/heap pops the minimum, so
// Less returns true for the better-ranked item.
type seriesHeap struct {
	items []rankedItem
}

func (h *seriesHeap) Len() int { return len(h.items) }

func (h *seriesHeap) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if a.coverage != b.coverage {
		return a.coverage > b.coverage
	}
	if a.sourceRank != b.sourceRank {
		return a.sourceRank < b.sourceRank
	}
	// Unlisted sources order by source ID before the field tiebreak.
	if a.series.SourceID != b.series.SourceID {
		return a.series.SourceID < b.series.SourceID
	}
	return lessFields(a.series, b.series)
}

func (h *seriesHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *seriesHeap) Push(x interface{}) {
	h.items = append(h.items, x.(rankedItem))
}

func (h *seriesHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

// lessFields compares descriptors field by field in declaration order,
// giving ranking its stable final tiebreak.
func lessFields(a, b domain.Series) bool {
	if a.ItemID != b.ItemID {
		return a.ItemID < b.ItemID
	}
	if a.MetricID != b.MetricID {
		return a.MetricID < b.MetricID
	}
	if a.RegionID != b.RegionID {
		return a.RegionID < b.RegionID
	}
	if a.PartnerRegionID != b.PartnerRegionID {
		return a.PartnerRegionID < b.PartnerRegionID
	}
	return a.FrequencyID < b.FrequencyID
}
