// Package stub provides a deterministic in-memory api.Client for tests and
// offline runs.
package stub

import (
	"context"
	"errors"
	"strings"

	"agridata/internal/api"
	"agridata/internal/domain"
)

// ErrUnavailable is returned for lookups the stub has no fixture for.
var ErrUnavailable = errors.New("stub: no fixture for request")

// Client serves fixed fixtures. All methods return copies so callers cannot
// mutate the fixtures. Implements api.Client.
type Client struct {
	// SearchResults maps entity type to ranked candidates; candidates whose
	// name contains the query (case-insensitive) are returned in fixture
	// order, mirroring the server's rank order.
	SearchResults map[domain.EntityType][]domain.Entity

	// Series is the universe of available series; GetDataSeries returns the
	// ones matching the filter constraints.
	Series []domain.Series

	// Points maps series key to its observations.
	Points map[string][]domain.Point

	// Factors maps unit ID to its base conversion factor.
	Factors map[int]domain.ConversionFactor

	// SeriesErr, when set, makes GetDataSeries fail for filters whose string
	// form contains the given substring. Used to exercise partial-failure
	// sweeps.
	SeriesErr       error
	SeriesErrFilter string

	// PointsErr, when set, makes GetDataPoints fail for the series with the
	// given key.
	PointsErr    error
	PointsErrKey string
}

// Compile-time interface check.
var _ api.Client = (*Client)(nil)

// Search returns the fixtures of the given type matching the query.
func (c *Client) Search(_ context.Context, entityType domain.EntityType, text string) ([]domain.Entity, error) {
	var result []domain.Entity
	needle := strings.ToLower(text)
	for _, e := range c.SearchResults[entityType] {
		if strings.Contains(strings.ToLower(e.Name), needle) {
			result = append(result, e)
		}
	}
	return result, nil
}

// Lookup returns the fixture entity with the given ID.
func (c *Client) Lookup(_ context.Context, entityType domain.EntityType, id int) (*domain.Entity, error) {
	for _, e := range c.SearchResults[entityType] {
		if e.ID == id {
			entity := e
			return &entity, nil
		}
	}
	return nil, ErrUnavailable
}

// GetDataSeries returns the fixture series matching the filter.
func (c *Client) GetDataSeries(_ context.Context, filter domain.SeriesFilter) ([]domain.Series, error) {
	if c.SeriesErr != nil && (c.SeriesErrFilter == "" || strings.Contains(filter.String(), c.SeriesErrFilter)) {
		return nil, c.SeriesErr
	}

	var result []domain.Series
	for _, s := range c.Series {
		if matches(s, filter) {
			result = append(result, s)
		}
	}
	return result, nil
}

// GetDataPoints returns the fixture points of the series.
func (c *Client) GetDataPoints(_ context.Context, series domain.Series, _ *api.PointOpts) ([]domain.Point, error) {
	if c.PointsErr != nil && (c.PointsErrKey == "" || c.PointsErrKey == series.Key()) {
		return nil, c.PointsErr
	}

	points := c.Points[series.Key()]
	result := make([]domain.Point, len(points))
	copy(result, points)
	return result, nil
}

// LookupConversionFactor returns the fixture factor for the unit.
func (c *Client) LookupConversionFactor(_ context.Context, unitID int) (domain.ConversionFactor, error) {
	factor, ok := c.Factors[unitID]
	if !ok {
		return domain.ConversionFactor{}, nil
	}
	return factor, nil
}

// GetDescendantRegions returns the region fixtures contained in regionID.
func (c *Client) GetDescendantRegions(_ context.Context, regionID, level int) ([]domain.Entity, error) {
	var parent *domain.Entity
	for _, e := range c.SearchResults[domain.EntityRegions] {
		if e.ID == regionID {
			entity := e
			parent = &entity
			break
		}
	}
	if parent == nil {
		return nil, ErrUnavailable
	}

	contained := make(map[int]bool, len(parent.Contains))
	for _, id := range parent.Contains {
		contained[id] = true
	}

	var result []domain.Entity
	for _, e := range c.SearchResults[domain.EntityRegions] {
		if contained[e.ID] && (level == 0 || e.Level == level) {
			result = append(result, e)
		}
	}
	return result, nil
}

// ListAvailable returns the fixture series matching the filter that have
// at least one observation.
func (c *Client) ListAvailable(_ context.Context, filter domain.SeriesFilter) ([]domain.Series, error) {
	var result []domain.Series
	for _, s := range c.Series {
		if matches(s, filter) && len(c.Points[s.Key()]) > 0 {
			result = append(result, s)
		}
	}
	return result, nil
}

// matches reports whether a series satisfies all set filter constraints.
func matches(s domain.Series, f domain.SeriesFilter) bool {
	check := func(constraint *int, value int) bool {
		return constraint == nil || *constraint == value
	}
	return check(f.ItemID, s.ItemID) &&
		check(f.MetricID, s.MetricID) &&
		check(f.RegionID, s.RegionID) &&
		check(f.PartnerRegionID, s.PartnerRegionID) &&
		check(f.FrequencyID, s.FrequencyID) &&
		check(f.SourceID, s.SourceID)
}
