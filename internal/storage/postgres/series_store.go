package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"agridata/internal/domain"
	"agridata/internal/storage"
)

// SeriesStore implements storage.SeriesStore using PostgreSQL.
type SeriesStore struct {
	pool *Pool
}

// NewSeriesStore creates a new SeriesStore.
func NewSeriesStore(pool *Pool) *SeriesStore {
	return &SeriesStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SeriesStore = (*SeriesStore)(nil)

const seriesColumns = `
	series_key, item_id, metric_id, region_id, partner_region_id, frequency_id, source_id,
	item_name, metric_name, region_name, source_name, start_date, end_date
`

// Insert adds a new series. Returns ErrDuplicateKey if its identity key exists.
func (s *SeriesStore) Insert(ctx context.Context, series *domain.Series) error {
	if series == nil || series.ItemID == 0 || series.MetricID == 0 {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO data_series (` + seriesColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := s.pool.Exec(ctx, query,
		series.Key(),
		series.ItemID,
		series.MetricID,
		series.RegionID,
		series.PartnerRegionID,
		series.FrequencyID,
		series.SourceID,
		series.ItemName,
		series.MetricName,
		series.RegionName,
		series.SourceName,
		nullableTime(series.StartDate),
		nullableTime(series.EndDate),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert series: %w", err)
	}
	return nil
}

// GetByKey retrieves a series by its identity key. Returns ErrNotFound if not exists.
func (s *SeriesStore) GetByKey(ctx context.Context, key string) (*domain.Series, error) {
	query := `SELECT ` + seriesColumns + ` FROM data_series WHERE series_key = $1`

	series, err := scanSeries(s.pool.QueryRow(ctx, query, key))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get series by key: %w", err)
	}
	return series, nil
}

// List retrieves all stored series, ordered by identity key.
func (s *SeriesStore) List(ctx context.Context) ([]*domain.Series, error) {
	query := `SELECT ` + seriesColumns + ` FROM data_series ORDER BY series_key ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()

	return scanSeriesRows(rows)
}

// GetBySource retrieves all series published by a source, ordered by identity key.
func (s *SeriesStore) GetBySource(ctx context.Context, sourceID int) ([]*domain.Series, error) {
	query := `SELECT ` + seriesColumns + ` FROM data_series WHERE source_id = $1 ORDER BY series_key ASC`

	rows, err := s.pool.Query(ctx, query, sourceID)
	if err != nil {
		return nil, fmt.Errorf("get series by source: %w", err)
	}
	defer rows.Close()

	return scanSeriesRows(rows)
}

// scanSeries scans a single row into a Series.
func scanSeries(row pgx.Row) (*domain.Series, error) {
	var series domain.Series
	var key string
	var start, end *time.Time

	err := row.Scan(
		&key,
		&series.ItemID,
		&series.MetricID,
		&series.RegionID,
		&series.PartnerRegionID,
		&series.FrequencyID,
		&series.SourceID,
		&series.ItemName,
		&series.MetricName,
		&series.RegionName,
		&series.SourceName,
		&start,
		&end,
	)
	if err != nil {
		return nil, err
	}

	if start != nil {
		series.StartDate = *start
	}
	if end != nil {
		series.EndDate = *end
	}
	return &series, nil
}

// scanSeriesRows scans multiple rows into a slice of Series.
func scanSeriesRows(rows pgx.Rows) ([]*domain.Series, error) {
	var result []*domain.Series

	for rows.Next() {
		series, err := scanSeries(rows)
		if err != nil {
			return nil, fmt.Errorf("scan series row: %w", err)
		}
		result = append(result, series)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate series rows: %w", err)
	}

	return result, nil
}

// nullableTime maps the zero time to SQL NULL.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
