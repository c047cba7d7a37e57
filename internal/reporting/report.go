// Package reporting renders query results for human consumption: the
// accumulated table as CSV and a run summary as Markdown.
package reporting

import (
	"time"

	"agridata/internal/domain"
)

// Report summarizes one query run: what was asked, what resolved and what
// the accumulated table holds.
type Report struct {
	GeneratedAt time.Time

	// Query echo
	Item          string
	Metric        string
	Region        string
	PartnerRegion string
	StartDate     time.Time
	EndDate       time.Time

	// Resolution outcome
	Combinations       int
	FailedCombinations int
	Series             []domain.Series // rank order, best first

	// Accumulated table shape
	FrameRows    int
	FrameColumns []string
}
