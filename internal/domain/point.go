package domain

import "time"

// Point is a single observation: a value tied to a time interval and unit,
// belonging to exactly one series. Value is nil for periods the source
// reported no data for (insert_null responses).
type Point struct {
	StartDate     time.Time
	EndDate       time.Time
	ReportingDate *time.Time // only present for revision-aware responses
	Value         *float64
	UnitID        int

	// Identity of the owning series. The data-points response omits the
	// source; the accumulator stamps it from the requested descriptor.
	ItemID          int
	MetricID        int
	RegionID        int
	PartnerRegionID int
	FrequencyID     int
	SourceID        int
}

// Float returns the point value, or 0 with ok=false when the value is null.
func (p Point) Float() (float64, bool) {
	if p.Value == nil {
		return 0, false
	}
	return *p.Value, true
}
