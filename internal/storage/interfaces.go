package storage

import (
	"context"
	"time"

	"agridata/internal/domain"
)

// SeriesStore provides access to data_series storage: the catalog of series
// a collection run has selected.
type SeriesStore interface {
	// Insert adds a new series. Returns ErrDuplicateKey if its identity key exists.
	Insert(ctx context.Context, s *domain.Series) error

	// GetByKey retrieves a series by its identity key. Returns ErrNotFound if not exists.
	GetByKey(ctx context.Context, key string) (*domain.Series, error)

	// List retrieves all stored series, ordered by identity key.
	List(ctx context.Context) ([]*domain.Series, error)

	// GetBySource retrieves all series published by a source, ordered by identity key.
	GetBySource(ctx context.Context, sourceID int) ([]*domain.Series, error)
}

// ObservationStore provides access to observations storage.
type ObservationStore interface {
	// InsertBulk adds multiple observations atomically. Fails entire batch on
	// any duplicate identity.
	InsertBulk(ctx context.Context, points []*domain.Point) error

	// GetBySeries retrieves all observations of a series, ordered by start date ASC.
	GetBySeries(ctx context.Context, series domain.Series) ([]*domain.Point, error)

	// GetByTimeRange retrieves a series' observations with start date within
	// [start, end] (inclusive), ordered by start date ASC.
	GetByTimeRange(ctx context.Context, series domain.Series, start, end time.Time) ([]*domain.Point, error)
}
