// Package geocode resolves free-text place names through a Nominatim
// compatible search endpoint.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/woozymasta/geomap/internal/config"
	"github.com/woozymasta/geomap/internal/geo"
	"github.com/woozymasta/geomap/internal/metrics"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Lookup errors. Every transport, status or decoding failure wraps ErrRequest.
var (
	ErrEmptyQuery = errors.New("empty query")
	ErrNotFound   = errors.New("location not found")
	ErrRequest    = errors.New("geocoding request failed")
)

// searchResult mirrors the relevant parts of the Nominatim search payload.
type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// Client is a rate limited Nominatim search client.
// Concurrent lookups of the same query share one upstream request.
type Client struct {
	client    *http.Client
	limiter   *rate.Limiter
	group     singleflight.Group
	baseURL   string
	userAgent string
	email     string
	language  string
	timeout   time.Duration
}

// New creates a client from configuration. A nil httpClient uses a default one.
func New(cfg config.Geocoder, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		client:    httpClient,
		limiter:   rate.NewLimiter(limit, burst),
		baseURL:   strings.TrimRight(cfg.URL, "/"),
		userAgent: cfg.UserAgent,
		email:     cfg.Email,
		language:  cfg.Language,
		timeout:   timeout,
	}
}

// Search returns the best match for query.
// It returns ErrEmptyQuery without any request when query is blank.
func (c *Client) Search(ctx context.Context, query string) (geo.Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return geo.Place{}, ErrEmptyQuery
	}

	// the shared lookup outlives a cancelled caller so other waiters still get it
	ch := c.group.DoChan(query, func() (interface{}, error) {
		reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		return c.lookup(reqCtx, query)
	})

	select {
	case <-ctx.Done():
		return geo.Place{}, fmt.Errorf("%w: %w", ErrRequest, ctx.Err())
	case res := <-ch:
		if res.Shared {
			metrics.GeocodeRequests.WithLabelValues("shared").Inc()
		}
		if res.Err != nil {
			return geo.Place{}, res.Err
		}

		return res.Val.(geo.Place), nil
	}
}

func (c *Client) lookup(ctx context.Context, query string) (geo.Place, error) {
	start := time.Now()
	defer func() { metrics.GeocodeDuration.Observe(time.Since(start).Seconds()) }()

	if err := c.limiter.Wait(ctx); err != nil {
		metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return geo.Place{}, fmt.Errorf("%w: rate limit: %w", ErrRequest, err)
	}

	place, err := c.fetch(ctx, query)
	switch {
	case err == nil:
		metrics.GeocodeRequests.WithLabelValues("found").Inc()
		log.Debug().
			Str("query", query).
			Str("place", place.DisplayName).
			Stringer("coordinate", place.Coordinate).
			Msg("Geocoding match")
	case errors.Is(err, ErrNotFound):
		metrics.GeocodeRequests.WithLabelValues("not_found").Inc()
		log.Debug().Str("query", query).Msg("Geocoding returned no results")
	default:
		metrics.GeocodeRequests.WithLabelValues("error").Inc()
		log.Error().Err(err).Str("query", query).Msg("Geocoding request failed")
	}

	return place, err
}

func (c *Client) fetch(ctx context.Context, query string) (geo.Place, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	if c.email != "" {
		params.Set("email", c.email)
	}
	if c.language != "" {
		params.Set("accept-language", c.language)
	}

	reqURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return geo.Place{}, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return geo.Place{}, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return geo.Place{}, fmt.Errorf("%w: upstream status %d", ErrRequest, resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return geo.Place{}, fmt.Errorf("%w: decode: %w", ErrRequest, err)
	}

	if len(results) == 0 {
		return geo.Place{}, ErrNotFound
	}

	return parseResult(results[0])
}

func parseResult(r searchResult) (geo.Place, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(r.Lat), 64)
	if err != nil {
		return geo.Place{}, fmt.Errorf("%w: latitude %q: %w", ErrRequest, r.Lat, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(r.Lon), 64)
	if err != nil {
		return geo.Place{}, fmt.Errorf("%w: longitude %q: %w", ErrRequest, r.Lon, err)
	}

	c := geo.Coordinate{Lat: lat, Lon: lon}
	if err := c.Validate(); err != nil {
		return geo.Place{}, fmt.Errorf("%w: %w", ErrRequest, err)
	}

	return geo.Place{
		Coordinate:  c,
		Name:        r.Name,
		DisplayName: r.DisplayName,
	}, nil
}
