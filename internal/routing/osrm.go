// Package routing computes routes between two waypoints through an OSRM
// compatible HTTP service.
package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/woozymasta/geomap/internal/config"
	"github.com/woozymasta/geomap/internal/geo"
	"github.com/woozymasta/geomap/internal/metrics"

	"github.com/rs/zerolog/log"
)

// Routing errors. Transport, status and decoding failures wrap ErrRequest.
var (
	ErrNoRoute = errors.New("no route found")
	ErrRequest = errors.New("routing request failed")
)

// Route is a computed route between two waypoints.
type Route struct {
	Waypoints []geo.Coordinate `json:"waypoints"`
	Path      []geo.Coordinate `json:"path"`
	// Distance in meters.
	Distance float64 `json:"distance"`
	// Duration in seconds.
	Duration float64 `json:"duration"`
}

// OSRM API response structures
type osrmResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Routes  []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Geometry struct {
		Type        string      `json:"type"`
		Coordinates [][]float64 `json:"coordinates"`
	} `json:"geometry"`
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
}

// Client calls the OSRM route service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	profile    string
	userAgent  string
	timeout    time.Duration
}

// New creates a client from configuration. A nil httpClient uses a default one.
func New(cfg config.Router, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	profile := cfg.Profile
	if profile == "" {
		profile = "driving"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		profile:    profile,
		userAgent:  cfg.UserAgent,
		timeout:    timeout,
	}
}

// Route computes the route from origin to destination.
func (c *Client) Route(ctx context.Context, origin, destination geo.Coordinate) (Route, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	route, err := c.fetch(ctx, origin, destination)
	switch {
	case err == nil:
		metrics.RouteRequests.WithLabelValues("found").Inc()
		log.Debug().
			Stringer("from", origin).
			Stringer("to", destination).
			Float64("distance_m", route.Distance).
			Float64("duration_s", route.Duration).
			Int("points", len(route.Path)).
			Msg("Route computed")
	case errors.Is(err, ErrNoRoute):
		metrics.RouteRequests.WithLabelValues("not_found").Inc()
		log.Debug().Err(err).Stringer("from", origin).Stringer("to", destination).Msg("No route")
	default:
		metrics.RouteRequests.WithLabelValues("error").Inc()
		log.Error().Err(err).Stringer("from", origin).Stringer("to", destination).Msg("Routing request failed")
	}

	return route, err
}

func (c *Client) fetch(ctx context.Context, origin, destination geo.Coordinate) (Route, error) {
	// OSRM expects lon,lat;lon,lat
	url := fmt.Sprintf("%s/route/v1/%s/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson&alternatives=false&steps=false",
		c.baseURL, c.profile,
		origin.Lon, origin.Lat,
		destination.Lon, destination.Lat,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Route{}, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Route{}, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body osrmResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&body)

	// OSRM answers 400 with a code for unroutable input
	if body.Code == "NoRoute" || body.Code == "NoSegment" {
		return Route{}, fmt.Errorf("%w: %s", ErrNoRoute, body.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return Route{}, fmt.Errorf("%w: upstream status %d", ErrRequest, resp.StatusCode)
	}
	if decodeErr != nil {
		return Route{}, fmt.Errorf("%w: decode: %w", ErrRequest, decodeErr)
	}
	if body.Code != "Ok" || len(body.Routes) == 0 {
		return Route{}, fmt.Errorf("%w: code %q", ErrNoRoute, body.Code)
	}

	first := body.Routes[0]
	path := make([]geo.Coordinate, 0, len(first.Geometry.Coordinates))
	for _, p := range first.Geometry.Coordinates {
		if len(p) < 2 {
			continue
		}
		path = append(path, geo.Coordinate{Lat: p[1], Lon: p[0]})
	}

	return Route{
		Waypoints: []geo.Coordinate{origin, destination},
		Path:      path,
		Distance:  first.Distance,
		Duration:  first.Duration,
	}, nil
}
