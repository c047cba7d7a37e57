package reporting

import (
	"time"

	"agridata/internal/domain"
	"agridata/internal/frame"
	"agridata/internal/resolve"
)

// Generator assembles run reports.
type Generator struct {
	now func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate assembles a report from a query, its resolved series in rank
// order and the accumulated table.
func (g *Generator) Generate(q resolve.Query, combinations, failed int, series []domain.Series, f *frame.Frame) *Report {
	r := &Report{
		GeneratedAt:        g.now(),
		Item:               q.Item,
		Metric:             q.Metric,
		Region:             q.Region,
		PartnerRegion:      q.PartnerRegion,
		StartDate:          q.StartDate,
		EndDate:            q.EndDate,
		Combinations:       combinations,
		FailedCombinations: failed,
		Series:             series,
	}
	if f != nil {
		r.FrameRows = f.NumRows()
		r.FrameColumns = f.Columns()
	}
	return r
}
