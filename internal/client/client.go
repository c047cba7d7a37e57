// Package client is the convenience layer over the remote API: name-based
// series resolution, ranked selection, unit conversion and accumulation of
// observations into a single table.
package client

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"agridata/internal/accumulate"
	"agridata/internal/api"
	"agridata/internal/domain"
	"agridata/internal/frame"
	"agridata/internal/observability"
	"agridata/internal/resolve"
	"agridata/internal/units"
)

// ErrNoResults is returned when a resolution yields no entity or series.
// Callers decide whether an empty resolution is fatal.
var ErrNoResults = errors.New("no matching results")

// Options configure a Client.
type Options struct {
	// Depth bounds the per-dimension candidate count in combinatorial
	// resolution. Zero means the default depth.
	Depth int

	// SourceOrder is the source precedence used for ranking, best first.
	SourceOrder []int

	// Seed seeds the RNG behind the random-picking helpers. Zero means
	// time-based.
	Seed int64

	// Logger receives progress lines. Nil disables logging.
	Logger *log.Logger
}

// Client wraps the remote API with resolution, ranking, conversion and
// accumulation. The selected-series list and accumulated table persist for
// the lifetime of the Client; everything else is per-call. Not safe for
// concurrent use.
type Client struct {
	api         api.Client
	expander    *resolve.Expander
	resolver    *resolve.Resolver
	converter   *units.Converter
	accumulator *accumulate.Accumulator
	sourceOrder []int
	rng         *rng
	logger      *log.Logger
}

// New creates a Client on top of the given API client.
func New(apiClient api.Client, opts Options) *Client {
	depth := opts.Depth
	if depth == 0 {
		depth = resolve.DefaultMaxCombinationDepth
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	c := &Client{
		api:         apiClient,
		expander:    resolve.NewExpander(apiClient).WithDepth(depth),
		resolver:    resolve.NewResolver(apiClient, opts.Logger),
		converter:   units.NewConverter(apiClient),
		sourceOrder: opts.SourceOrder,
		rng:         newRNG(seed),
		logger:      opts.Logger,
	}
	c.accumulator = accumulate.NewAccumulator(&stampingFetcher{api: apiClient}, opts.Logger)
	return c
}

// FindDataSeries resolves a name-based query into a ranked, best-first
// sequence of concrete series. The sequence is single-pass; call again to
// restart. Individual combination failures reduce the candidate set but do
// not fail the resolution.
func (c *Client) FindDataSeries(ctx context.Context, q resolve.Query) (*resolve.Ranked, error) {
	combinations, err := c.expander.Expand(ctx, q)
	if err != nil {
		return nil, err
	}

	report := c.resolver.Resolve(ctx, combinations, q.StartDate, q.EndDate)
	all := report.Series()
	observability.RecordResolution(len(combinations), report.Failed(), len(all))
	if c.logger != nil {
		c.logger.Printf("found %d distinct data series total for %+v (%d combinations failed)",
			len(all), q, report.Failed())
	}

	return resolve.Rank(all, resolve.RankOptions{
		StartDate:   q.StartDate,
		EndDate:     q.EndDate,
		SourceOrder: c.sourceOrder,
	}), nil
}

// AddDataSeries resolves the query and adds the top-ranked series to the
// selected list. Returns the added series, or ErrNoResults when the
// resolution was empty.
func (c *Client) AddDataSeries(ctx context.Context, q resolve.Query) (*domain.Series, error) {
	ranked, err := c.FindDataSeries(ctx, q)
	if err != nil {
		return nil, err
	}
	best, ok := ranked.Next()
	if !ok {
		return nil, ErrNoResults
	}
	c.AddSingleDataSeries(best)
	return &best, nil
}

// AddSingleDataSeries adds a concrete series to the selected list and the
// pending-fetch queue.
func (c *Client) AddSingleDataSeries(series domain.Series) {
	c.accumulator.Add(series)
}

// DataSeriesList returns a copy of the selected series, in insertion order.
func (c *Client) DataSeriesList() []domain.Series {
	return c.accumulator.SeriesList()
}

// DataFrame materializes all pending series and returns the accumulated
// table. A fetch failure propagates; already-accumulated content and the
// unfetched remainder of the queue are preserved for retry.
func (c *Client) DataFrame(ctx context.Context, opts *api.PointOpts) (*frame.Frame, error) {
	if err := c.accumulator.Materialize(ctx, opts); err != nil {
		return nil, err
	}
	return c.accumulator.Frame(), nil
}

// GetDataPoints fetches a series' observations, stamping the source ID the
// response omits. A non-zero targetUnitID converts every point into that
// unit; a non-convertible unit on either side fails the whole fetch rather
// than let relabeled raw values through.
func (c *Client) GetDataPoints(ctx context.Context, series domain.Series, opts *api.PointOpts, targetUnitID int) ([]domain.Point, error) {
	points, err := c.api.GetDataPoints(ctx, series, opts)
	if err != nil {
		return nil, err
	}
	stampSeries(series, points)

	if targetUnitID == 0 {
		return points, nil
	}
	return c.converter.ConvertAll(ctx, points, targetUnitID)
}

// ConvertUnit converts a single observation into the target unit.
func (c *Client) ConvertUnit(ctx context.Context, point domain.Point, targetUnitID int) (domain.Point, error) {
	return c.converter.Convert(ctx, point, targetUnitID)
}

// SearchForEntity returns the ID of the first search result for the given
// keywords, or ErrNoResults.
func (c *Client) SearchForEntity(ctx context.Context, entityType domain.EntityType, keywords string) (int, error) {
	results, err := c.api.Search(ctx, entityType, keywords)
	if err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("search %s %q: %w", entityType, keywords, ErrNoResults)
	}
	if c.logger != nil {
		c.logger.Printf("first result out of %d %s: %d", len(results), entityType, results[0].ID)
	}
	return results[0].ID, nil
}

// Provinces finds the province-level regions of the named country.
func (c *Client) Provinces(ctx context.Context, countryName string) ([]domain.Entity, error) {
	regions, err := c.api.Search(ctx, domain.EntityRegions, countryName)
	if err != nil {
		return nil, err
	}
	for _, region := range regions {
		if region.Level == domain.RegionLevelCountry {
			return c.api.GetDescendantRegions(ctx, region.ID, domain.RegionLevelProvince)
		}
	}
	return nil, fmt.Errorf("no country named %q: %w", countryName, ErrNoResults)
}

// WriteSeriesCSV fetches a series' observations and writes them as CSV rows
// of start date, end date, value and unit abbreviation.
func (c *Client) WriteSeriesCSV(ctx context.Context, w io.Writer, series domain.Series) error {
	points, err := c.GetDataPoints(ctx, series, nil, 0)
	if err != nil {
		return err
	}

	abbrevs := make(map[int]string)
	out := csv.NewWriter(w)
	for _, p := range points {
		value := ""
		if p.Value != nil {
			value = strconv.FormatFloat(*p.Value, 'f', -1, 64)
		}
		abbrev, err := c.unitAbbreviation(ctx, p.UnitID, abbrevs)
		if err != nil {
			return err
		}
		record := []string{
			p.StartDate.Format("2006-01-02"),
			p.EndDate.Format("2006-01-02"),
			value,
			abbrev,
		}
		if err := out.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	out.Flush()
	return out.Error()
}

// unitAbbreviation resolves a unit's display abbreviation, caching per call.
func (c *Client) unitAbbreviation(ctx context.Context, unitID int, cache map[int]string) (string, error) {
	if abbrev, ok := cache[unitID]; ok {
		return abbrev, nil
	}
	unit, err := c.api.Lookup(ctx, domain.EntityUnits, unitID)
	if err != nil {
		return "", fmt.Errorf("lookup unit %d: %w", unitID, err)
	}
	abbrev := unit.Name
	if a, ok := unit.Properties["abbreviation"]; ok && a != "" {
		abbrev = a
	}
	cache[unitID] = abbrev
	return abbrev, nil
}

// stampingFetcher adapts the API's data-points call for the accumulator,
// stamping the owning-series IDs the response omits.
type stampingFetcher struct {
	api api.Client
}

func (f *stampingFetcher) GetDataPoints(ctx context.Context, series domain.Series, opts *api.PointOpts) ([]domain.Point, error) {
	points, err := f.api.GetDataPoints(ctx, series, opts)
	if err != nil {
		return nil, err
	}
	stampSeries(series, points)
	return points, nil
}

// stampSeries fills in the owning-series fields the fetch response omits.
// The source ID is never present in responses; the remaining IDs are filled
// only when missing so revision-aware responses keep their own values.
func stampSeries(series domain.Series, points []domain.Point) {
	for i := range points {
		points[i].SourceID = series.SourceID
		if points[i].ItemID == 0 {
			points[i].ItemID = series.ItemID
		}
		if points[i].MetricID == 0 {
			points[i].MetricID = series.MetricID
		}
		if points[i].RegionID == 0 {
			points[i].RegionID = series.RegionID
		}
		if points[i].PartnerRegionID == 0 {
			points[i].PartnerRegionID = series.PartnerRegionID
		}
		if points[i].FrequencyID == 0 {
			points[i].FrequencyID = series.FrequencyID
		}
	}
}
