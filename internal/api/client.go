package api

import (
	"context"
	"time"

	"agridata/internal/domain"
)

// Client is the remote statistical-data API surface the resolution engine
// depends on. Search results are ranked by the server's own relevance
// scoring; callers must preserve that order.
type Client interface {
	// Search resolves free text to a ranked list of candidate entities.
	Search(ctx context.Context, entityType domain.EntityType, text string) ([]domain.Entity, error)

	// Lookup retrieves the attributes of a single entity by ID.
	Lookup(ctx context.Context, entityType domain.EntityType, id int) (*domain.Entity, error)

	// GetDataSeries lists the series available under the given constraints.
	GetDataSeries(ctx context.Context, filter domain.SeriesFilter) ([]domain.Series, error)

	// GetDataPoints retrieves the observations of one series. The response
	// does not carry the source ID; callers stamp it from the descriptor.
	GetDataPoints(ctx context.Context, series domain.Series, opts *PointOpts) ([]domain.Point, error)

	// LookupConversionFactor retrieves the base-unit conversion factor of a
	// unit. Units without a defined factor return a zero Factor.
	LookupConversionFactor(ctx context.Context, unitID int) (domain.ConversionFactor, error)

	// GetDescendantRegions lists regions contained in regionID at the given
	// region level (0 for all levels).
	GetDescendantRegions(ctx context.Context, regionID, level int) ([]domain.Entity, error)

	// ListAvailable lists entity combinations with data available under the
	// given partial selection.
	ListAvailable(ctx context.Context, filter domain.SeriesFilter) ([]domain.Series, error)
}

// PointOpts carries the optional flags of a data-points request.
type PointOpts struct {
	ShowRevisions     bool      // all reported values per period, not just the latest
	InsertNull        bool      // emit a null point for periods without data
	IncludeHistorical bool      // include historical regions in the selection
	AtTime            time.Time // reconstruct data as of a past moment; zero disables
}
