package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"agridata/internal/domain"
	"agridata/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 4
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
	DefaultUserAgent   = "agridata/0.1"
)

// HTTPClient implements Client against the REST API using bearer-token auth.
type HTTPClient struct {
	baseURL     string
	token       string
	client      *http.Client
	userAgent   string
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets the initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *HTTPClient) {
		c.userAgent = ua
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new API client for the given host and access token.
func NewHTTPClient(baseURL, token string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		token:       token,
		client:      &http.Client{Timeout: DefaultTimeout},
		userAgent:   DefaultUserAgent,
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// get performs a GET request with retries and exponential backoff, decoding
// the JSON response body into result. Auth and rate-limit failures are not
// retried past their usefulness: 401/403 fail immediately, 429 and 5xx back
// off and retry.
func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			observability.RecordAPIRetry()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.token)
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		started := time.Now()
		resp, err := c.client.Do(req)
		observability.RecordAPIRequest(path, time.Since(started).Seconds())
		if err != nil {
			observability.RecordAPIError(path, "transport")
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			observability.RecordAPIError(path, strconv.Itoa(resp.StatusCode))
			return fmt.Errorf("unauthorized (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
		case resp.StatusCode == http.StatusTooManyRequests:
			observability.RecordAPIError(path, "429")
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		case resp.StatusCode >= http.StatusInternalServerError:
			observability.RecordAPIError(path, strconv.Itoa(resp.StatusCode))
			lastErr = fmt.Errorf("server error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			continue
		case resp.StatusCode != http.StatusOK:
			observability.RecordAPIError(path, strconv.Itoa(resp.StatusCode))
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		if result != nil {
			if err := json.Unmarshal(body, result); err != nil {
				return fmt.Errorf("unmarshal response: %w", err)
			}
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// entityResult is the raw wire shape of an entity.
type entityResult struct {
	ID             int               `json:"id"`
	Name           string            `json:"name"`
	Level          int               `json:"level,omitempty"`
	Contains       []int             `json:"contains,omitempty"`
	BaseConvFactor *convFactorResult `json:"baseConvFactor,omitempty"`
	Properties     map[string]string `json:"properties,omitempty"`
}

type convFactorResult struct {
	Factor float64 `json:"factor"`
	Offset float64 `json:"offset"`
}

func (r entityResult) toEntity(entityType domain.EntityType) domain.Entity {
	return domain.Entity{
		ID:         r.ID,
		Name:       r.Name,
		Type:       entityType,
		Level:      r.Level,
		Contains:   r.Contains,
		Properties: r.Properties,
	}
}

// Search resolves free text to a ranked list of candidate entities.
func (c *HTTPClient) Search(ctx context.Context, entityType domain.EntityType, text string) ([]domain.Entity, error) {
	params := url.Values{}
	params.Set("q", text)

	var result []entityResult
	if err := c.get(ctx, "/v2/search/"+string(entityType), params, &result); err != nil {
		return nil, fmt.Errorf("search %s %q: %w", entityType, text, err)
	}

	entities := make([]domain.Entity, len(result))
	for i, r := range result {
		entities[i] = r.toEntity(entityType)
	}
	return entities, nil
}

// Lookup retrieves the attributes of a single entity by ID.
func (c *HTTPClient) Lookup(ctx context.Context, entityType domain.EntityType, id int) (*domain.Entity, error) {
	var result entityResult
	path := fmt.Sprintf("/v2/%s/%d", entityType, id)
	if err := c.get(ctx, path, nil, &result); err != nil {
		return nil, fmt.Errorf("lookup %s %d: %w", entityType, id, err)
	}

	e := result.toEntity(entityType)
	return &e, nil
}

// seriesResult is the raw wire shape of a series descriptor.
type seriesResult struct {
	ItemID            int    `json:"item_id"`
	MetricID          int    `json:"metric_id"`
	RegionID          int    `json:"region_id"`
	PartnerRegionID   int    `json:"partner_region_id"`
	FrequencyID       int    `json:"frequency_id"`
	SourceID          int    `json:"source_id"`
	ItemName          string `json:"item_name,omitempty"`
	MetricName        string `json:"metric_name,omitempty"`
	RegionName        string `json:"region_name,omitempty"`
	PartnerRegionName string `json:"partner_region_name,omitempty"`
	SourceName        string `json:"source_name,omitempty"`
	StartDate         string `json:"start_date,omitempty"`
	EndDate           string `json:"end_date,omitempty"`
}

func (r seriesResult) toSeries() domain.Series {
	return domain.Series{
		ItemID:            r.ItemID,
		MetricID:          r.MetricID,
		RegionID:          r.RegionID,
		PartnerRegionID:   r.PartnerRegionID,
		FrequencyID:       r.FrequencyID,
		SourceID:          r.SourceID,
		ItemName:          r.ItemName,
		MetricName:        r.MetricName,
		RegionName:        r.RegionName,
		PartnerRegionName: r.PartnerRegionName,
		SourceName:        r.SourceName,
		StartDate:         parseAPIDate(r.StartDate),
		EndDate:           parseAPIDate(r.EndDate),
	}
}

// filterParams renders the set constraints of a filter as query parameters.
func filterParams(filter domain.SeriesFilter) url.Values {
	params := url.Values{}
	set := func(name string, v *int) {
		if v != nil {
			params.Set(name, strconv.Itoa(*v))
		}
	}
	set("item_id", filter.ItemID)
	set("metric_id", filter.MetricID)
	set("region_id", filter.RegionID)
	set("partner_region_id", filter.PartnerRegionID)
	set("frequency_id", filter.FrequencyID)
	set("source_id", filter.SourceID)
	return params
}

// GetDataSeries lists the series available under the given constraints.
func (c *HTTPClient) GetDataSeries(ctx context.Context, filter domain.SeriesFilter) ([]domain.Series, error) {
	var result []seriesResult
	if err := c.get(ctx, "/v2/data_series/list", filterParams(filter), &result); err != nil {
		return nil, fmt.Errorf("get data series (%s): %w", filter, err)
	}

	series := make([]domain.Series, len(result))
	for i, r := range result {
		series[i] = r.toSeries()
	}
	return series, nil
}

// pointResult is the raw wire shape of an observation.
type pointResult struct {
	StartDate       string   `json:"start_date"`
	EndDate         string   `json:"end_date"`
	ReportingDate   *string  `json:"reporting_date"`
	Value           *float64 `json:"value"`
	UnitID          int      `json:"unit_id"`
	ItemID          int      `json:"item_id"`
	MetricID        int      `json:"metric_id"`
	RegionID        int      `json:"region_id"`
	PartnerRegionID int      `json:"partner_region_id"`
	FrequencyID     int      `json:"frequency_id"`
}

// GetDataPoints retrieves the observations of one series.
func (c *HTTPClient) GetDataPoints(ctx context.Context, series domain.Series, opts *PointOpts) ([]domain.Point, error) {
	params := url.Values{}
	params.Set("item_id", strconv.Itoa(series.ItemID))
	params.Set("metric_id", strconv.Itoa(series.MetricID))
	params.Set("region_id", strconv.Itoa(series.RegionID))
	params.Set("partner_region_id", strconv.Itoa(series.PartnerRegionID))
	params.Set("frequency_id", strconv.Itoa(series.FrequencyID))
	params.Set("source_id", strconv.Itoa(series.SourceID))
	if !series.StartDate.IsZero() {
		params.Set("start_date", series.StartDate.Format("2006-01-02"))
	}
	if !series.EndDate.IsZero() {
		params.Set("end_date", series.EndDate.Format("2006-01-02"))
	}
	if opts != nil {
		if opts.ShowRevisions {
			params.Set("show_revisions", "true")
		}
		if opts.InsertNull {
			params.Set("insert_null", "true")
		}
		if opts.IncludeHistorical {
			params.Set("include_historical", "true")
		}
		if !opts.AtTime.IsZero() {
			params.Set("at_time", opts.AtTime.Format(time.RFC3339))
		}
	}

	var result []pointResult
	if err := c.get(ctx, "/v2/data", params, &result); err != nil {
		return nil, fmt.Errorf("get data points %s: %w", series.Key(), err)
	}

	points := make([]domain.Point, len(result))
	for i, r := range result {
		p := domain.Point{
			StartDate:       parseAPIDate(r.StartDate),
			EndDate:         parseAPIDate(r.EndDate),
			Value:           r.Value,
			UnitID:          r.UnitID,
			ItemID:          r.ItemID,
			MetricID:        r.MetricID,
			RegionID:        r.RegionID,
			PartnerRegionID: r.PartnerRegionID,
			FrequencyID:     r.FrequencyID,
		}
		if r.ReportingDate != nil {
			if d := parseAPIDate(*r.ReportingDate); !d.IsZero() {
				p.ReportingDate = &d
			}
		}
		points[i] = p
	}
	return points, nil
}

// LookupConversionFactor retrieves the base-unit conversion factor of a unit.
func (c *HTTPClient) LookupConversionFactor(ctx context.Context, unitID int) (domain.ConversionFactor, error) {
	var result entityResult
	path := fmt.Sprintf("/v2/units/%d", unitID)
	if err := c.get(ctx, path, nil, &result); err != nil {
		return domain.ConversionFactor{}, fmt.Errorf("lookup unit %d: %w", unitID, err)
	}

	if result.BaseConvFactor == nil {
		return domain.ConversionFactor{}, nil
	}
	return domain.ConversionFactor{
		Factor: result.BaseConvFactor.Factor,
		Offset: result.BaseConvFactor.Offset,
	}, nil
}

// GetDescendantRegions lists regions contained in regionID at the given level.
func (c *HTTPClient) GetDescendantRegions(ctx context.Context, regionID, level int) ([]domain.Entity, error) {
	params := url.Values{}
	if level > 0 {
		params.Set("level", strconv.Itoa(level))
	}

	var result []entityResult
	path := fmt.Sprintf("/v2/regions/%d/contains", regionID)
	if err := c.get(ctx, path, params, &result); err != nil {
		return nil, fmt.Errorf("get descendant regions of %d: %w", regionID, err)
	}

	entities := make([]domain.Entity, len(result))
	for i, r := range result {
		entities[i] = r.toEntity(domain.EntityRegions)
	}
	return entities, nil
}

// ListAvailable lists series combinations with data under a partial selection.
func (c *HTTPClient) ListAvailable(ctx context.Context, filter domain.SeriesFilter) ([]domain.Series, error) {
	var result []seriesResult
	if err := c.get(ctx, "/v2/available", filterParams(filter), &result); err != nil {
		return nil, fmt.Errorf("list available (%s): %w", filter, err)
	}

	series := make([]domain.Series, len(result))
	for i, r := range result {
		series[i] = r.toSeries()
	}
	return series, nil
}

// parseAPIDate parses the date formats the API emits. Returns the zero time
// for empty or unparseable input; absent dates are modeled as zero times
// throughout.
func parseAPIDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05.000Z",
		time.RFC3339,
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
