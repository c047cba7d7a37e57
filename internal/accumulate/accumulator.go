// Package accumulate maintains the client's working set of selected series
// and folds their observations into one wide table.
package accumulate

import (
	"context"
	"fmt"
	"log"
	"time"

	"agridata/internal/api"
	"agridata/internal/domain"
	"agridata/internal/frame"
	"agridata/internal/observability"
)

// PointFetcher is the observation-fetch side of the remote API.
type PointFetcher interface {
	GetDataPoints(ctx context.Context, series domain.Series, opts *api.PointOpts) ([]domain.Point, error)
}

// Accumulator holds the ordered list of selected series and the accumulated
// table. Series are added cheaply and fetched lazily on Materialize. Not
// safe for concurrent use; callers serialize access.
type Accumulator struct {
	fetcher PointFetcher
	logger  *log.Logger

	list  []domain.Series // every series ever added, in insertion order
	queue []domain.Series // added but not yet materialized, FIFO
	frame *frame.Frame
}

// NewAccumulator creates an empty accumulator. A nil logger disables logging.
func NewAccumulator(fetcher PointFetcher, logger *log.Logger) *Accumulator {
	return &Accumulator{
		fetcher: fetcher,
		logger:  logger,
		frame:   frame.New(),
	}
}

// Add appends a series to the selected list and the pending-fetch queue.
// Duplicates are permitted; deduplication is the caller's responsibility.
func (a *Accumulator) Add(series domain.Series) {
	a.list = append(a.list, series)
	a.queue = append(a.queue, series)
	observability.RecordSeriesAdded()
	if a.logger != nil {
		a.logger.Printf("added %s", series.Key())
	}
}

// SeriesList returns a copy of every series added so far, in insertion order.
func (a *Accumulator) SeriesList() []domain.Series {
	out := make([]domain.Series, len(a.list))
	copy(out, a.list)
	return out
}

// Pending returns how many series await materialization.
func (a *Accumulator) Pending() int {
	return len(a.queue)
}

// Frame returns the accumulated table. The caller must not merge into it
// concurrently with Materialize.
func (a *Accumulator) Frame() *frame.Frame {
	return a.frame
}

// Materialize drains the pending queue: fetches each pending series'
// observations, stamps the source ID the fetch response omits, and folds the
// batch into the accumulated table. A fetch failure propagates immediately —
// losing a whole series is significant enough to report — but already-folded
// batches are kept and the failed series stays queued for retry.
func (a *Accumulator) Materialize(ctx context.Context, opts *api.PointOpts) error {
	started := time.Now()
	fetched := 0
	defer func() {
		observability.RecordMaterialize(fetched, time.Since(started).Seconds(), a.frame.NumRows())
	}()

	for len(a.queue) > 0 {
		series := a.queue[0]

		points, err := a.fetcher.GetDataPoints(ctx, series, opts)
		if err != nil {
			return fmt.Errorf("fetch points for %s: %w", series.Key(), err)
		}
		a.queue = a.queue[1:]
		fetched += len(points)

		if len(points) == 0 {
			if a.logger != nil {
				a.logger.Printf("no points for %s", series.Key())
			}
			continue
		}

		batch := batchFrame(series, points)
		a.frame.Merge(batch)
		if a.logger != nil {
			a.logger.Printf("folded %d points for %s, table now %d rows",
				len(points), series.Key(), a.frame.NumRows())
		}
	}
	return nil
}

// batchColumns is the canonical column order of an observation batch.
var batchColumns = []string{
	"item_id", "metric_id",
	"region_id", "partner_region_id",
	"frequency_id", "source_id",
	"reporting_date", "start_date", "end_date",
	"value", "unit_id",
}

// batchFrame builds a one-series frame from fetched points. The source ID
// comes from the requested descriptor; date columns absent from every point
// are left out so merging keys only on columns actually present.
func batchFrame(series domain.Series, points []domain.Point) *frame.Frame {
	hasReporting := false
	for _, p := range points {
		if p.ReportingDate != nil {
			hasReporting = true
			break
		}
	}

	cols := make([]string, 0, len(batchColumns))
	for _, col := range batchColumns {
		if col == "reporting_date" && !hasReporting {
			continue
		}
		cols = append(cols, col)
	}

	f := frame.NewWithColumns(cols)
	for _, p := range points {
		row := map[string]interface{}{
			"item_id":           p.ItemID,
			"metric_id":         p.MetricID,
			"region_id":         p.RegionID,
			"partner_region_id": p.PartnerRegionID,
			"frequency_id":      p.FrequencyID,
			"source_id":         series.SourceID,
			"start_date":        p.StartDate,
			"end_date":          p.EndDate,
			"unit_id":           p.UnitID,
		}
		if hasReporting && p.ReportingDate != nil {
			row["reporting_date"] = *p.ReportingDate
		}
		if p.Value != nil {
			row["value"] = *p.Value
		}
		f.AppendRow(row)
	}
	return f
}
