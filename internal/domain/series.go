package domain

import (
	"fmt"
	"time"
)

// Series identifies a retrievable stream of observations: a unique
// combination of item, metric, region, partner region, frequency and source.
// StartDate/EndDate are optional annotations; they affect ranking but not
// series identity.
type Series struct {
	ItemID          int
	MetricID        int
	RegionID        int
	PartnerRegionID int
	FrequencyID     int
	SourceID        int

	// Display names filled in by the series lookup when available.
	ItemName          string
	MetricName        string
	RegionName        string
	PartnerRegionName string
	SourceName        string

	StartDate time.Time // zero when unbounded
	EndDate   time.Time // zero when unbounded
}

// Key returns the series identity as a stable string over the six
// identifying fields. Two series with equal keys are the same series.
func (s Series) Key() string {
	return fmt.Sprintf("%d:%d:%d:%d:%d:%d",
		s.ItemID, s.MetricID, s.RegionID, s.PartnerRegionID, s.FrequencyID, s.SourceID)
}

// Same reports whether two descriptors identify the same series,
// ignoring the optional date annotations.
func (s Series) Same(other Series) bool {
	return s.ItemID == other.ItemID &&
		s.MetricID == other.MetricID &&
		s.RegionID == other.RegionID &&
		s.PartnerRegionID == other.PartnerRegionID &&
		s.FrequencyID == other.FrequencyID &&
		s.SourceID == other.SourceID
}

// SeriesFilter is a partial series descriptor used to constrain a series
// lookup. Nil fields are unconstrained.
type SeriesFilter struct {
	ItemID          *int
	MetricID        *int
	RegionID        *int
	PartnerRegionID *int
	FrequencyID     *int
	SourceID        *int
}

// String renders the filter for log lines, listing only set constraints.
func (f SeriesFilter) String() string {
	out := ""
	appendID := func(name string, v *int) {
		if v == nil {
			return
		}
		if out != "" {
			out += " "
		}
		out += fmt.Sprintf("%s=%d", name, *v)
	}
	appendID("item_id", f.ItemID)
	appendID("metric_id", f.MetricID)
	appendID("region_id", f.RegionID)
	appendID("partner_region_id", f.PartnerRegionID)
	appendID("frequency_id", f.FrequencyID)
	appendID("source_id", f.SourceID)
	if out == "" {
		return "<unconstrained>"
	}
	return out
}
