package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"agridata/internal/domain"
	"agridata/internal/storage"
)

// epoch is the sentinel stored for an absent reporting date. MergeTree has no
// nullable ordering keys, so the column is non-nullable with a fixed default.
var epoch = time.Unix(0, 0).UTC()

// ObservationStore implements storage.ObservationStore using ClickHouse.
type ObservationStore struct {
	conn *Conn
}

// NewObservationStore creates a new ObservationStore.
func NewObservationStore(conn *Conn) *ObservationStore {
	return &ObservationStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ObservationStore = (*ObservationStore)(nil)

// identity is an observation's unique key within a batch.
type identity struct {
	item, metric, region, partner, frequency, source int
	reporting, start, end                            time.Time
}

func identityOf(p *domain.Point) identity {
	reporting := epoch
	if p.ReportingDate != nil {
		reporting = p.ReportingDate.UTC()
	}
	return identity{
		item: p.ItemID, metric: p.MetricID, region: p.RegionID,
		partner: p.PartnerRegionID, frequency: p.FrequencyID, source: p.SourceID,
		reporting: reporting, start: p.StartDate.UTC(), end: p.EndDate.UTC(),
	}
}

// InsertBulk adds multiple observations. MergeTree does not enforce
// uniqueness at insert time, so duplicates are detected with explicit checks
// before the batch is sent. Fails entire batch on any duplicate identity.
func (s *ObservationStore) InsertBulk(ctx context.Context, points []*domain.Point) error {
	if len(points) == 0 {
		return nil
	}

	seen := make(map[identity]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.ItemID == 0 || p.MetricID == 0 {
			return storage.ErrInvalidInput
		}
		id := identityOf(p)
		if _, exists := seen[id]; exists {
			return storage.ErrDuplicateKey
		}
		seen[id] = struct{}{}
	}

	for _, p := range points {
		exists, err := s.exists(ctx, identityOf(p))
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO observations (
			item_id, metric_id, region_id, partner_region_id, frequency_id, source_id,
			reporting_date, start_date, end_date, value, unit_id
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		id := identityOf(p)
		err = batch.Append(
			int32(p.ItemID), int32(p.MetricID), int32(p.RegionID),
			int32(p.PartnerRegionID), int32(p.FrequencyID), int32(p.SourceID),
			id.reporting, id.start, id.end,
			p.Value, int32(p.UnitID),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

const seriesPredicate = `
	item_id = ? AND metric_id = ? AND region_id = ?
	AND partner_region_id = ? AND frequency_id = ? AND source_id = ?
`

// GetBySeries retrieves all observations of a series, ordered by start date ASC.
func (s *ObservationStore) GetBySeries(ctx context.Context, series domain.Series) ([]*domain.Point, error) {
	query := `
		SELECT item_id, metric_id, region_id, partner_region_id, frequency_id, source_id,
		       reporting_date, start_date, end_date, value, unit_id
		FROM observations
		WHERE ` + seriesPredicate + `
		ORDER BY start_date ASC, end_date ASC
	`

	rows, err := s.conn.Query(ctx, query,
		int32(series.ItemID), int32(series.MetricID), int32(series.RegionID),
		int32(series.PartnerRegionID), int32(series.FrequencyID), int32(series.SourceID),
	)
	if err != nil {
		return nil, fmt.Errorf("query by series: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// GetByTimeRange retrieves a series' observations with start date within
// [start, end] (inclusive), ordered by start date ASC.
func (s *ObservationStore) GetByTimeRange(ctx context.Context, series domain.Series, start, end time.Time) ([]*domain.Point, error) {
	query := `
		SELECT item_id, metric_id, region_id, partner_region_id, frequency_id, source_id,
		       reporting_date, start_date, end_date, value, unit_id
		FROM observations
		WHERE ` + seriesPredicate + `
		AND start_date >= ? AND start_date <= ?
		ORDER BY start_date ASC, end_date ASC
	`

	rows, err := s.conn.Query(ctx, query,
		int32(series.ItemID), int32(series.MetricID), int32(series.RegionID),
		int32(series.PartnerRegionID), int32(series.FrequencyID), int32(series.SourceID),
		start.UTC(), end.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// exists checks if an observation with the given identity exists.
func (s *ObservationStore) exists(ctx context.Context, id identity) (bool, error) {
	query := `
		SELECT count(*) FROM observations
		WHERE ` + seriesPredicate + `
		AND reporting_date = ? AND start_date = ? AND end_date = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query,
		int32(id.item), int32(id.metric), int32(id.region),
		int32(id.partner), int32(id.frequency), int32(id.source),
		id.reporting, id.start, id.end,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanObservations scans multiple rows into a slice of Point.
func scanObservations(rows driver.Rows) ([]*domain.Point, error) {
	var points []*domain.Point

	for rows.Next() {
		var p domain.Point
		var item, metric, region, partner, frequency, source, unit int32
		var reporting time.Time

		err := rows.Scan(
			&item, &metric, &region, &partner, &frequency, &source,
			&reporting, &p.StartDate, &p.EndDate, &p.Value, &unit,
		)
		if err != nil {
			return nil, fmt.Errorf("scan observation row: %w", err)
		}

		p.ItemID = int(item)
		p.MetricID = int(metric)
		p.RegionID = int(region)
		p.PartnerRegionID = int(partner)
		p.FrequencyID = int(frequency)
		p.SourceID = int(source)
		p.UnitID = int(unit)
		if !reporting.Equal(epoch) {
			r := reporting
			p.ReportingDate = &r
		}
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observation rows: %w", err)
	}

	return points, nil
}
