// Package config handles configuration loading and shared data structures.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/woozymasta/geomap/internal/geo"

	"gopkg.in/yaml.v3"
)

// Defaults used by Normalize.
const (
	DefaultZoom        = 13
	DefaultAttribution = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`
	DefaultTilesURL    = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultGeocoderURL = "https://nominatim.openstreetmap.org"
	DefaultRouterURL   = "https://router.project-osrm.org"
	DefaultUserAgent   = "geomap/1.0"
)

// DefaultCenter is London, used when the config does not set a center.
var DefaultCenter = geo.Coordinate{Lat: 51.505, Lon: -0.09}

// Config represents the root configuration file structure.
type Config struct {
	Center      *geo.Coordinate `yaml:"center,omitempty" json:"center"`
	Attribution string          `yaml:"attribution,omitempty" json:"attribution"`
	Tiles       Tiles           `yaml:"tiles" json:"tiles"`
	Geocoder    Geocoder        `yaml:"geocoder" json:"-"`
	Router      Router          `yaml:"router" json:"-"`
	Route       Route           `yaml:"route" json:"route"`
	Views       Views           `yaml:"views" json:"-"`
	Zoom        int             `yaml:"zoom,omitempty" json:"zoom"`
}

// Tiles configures the tile layer and the local tile cache.
type Tiles struct {
	URL        string   `yaml:"url,omitempty" json:"-"`
	Cache      string   `yaml:"cache,omitempty" json:"-"`
	Subdomains []string `yaml:"subdomains,omitempty" json:"-"`
	MaxZoom    int      `yaml:"max_zoom,omitempty" json:"max_zoom"`
	Quality    int      `yaml:"quality,omitempty" json:"-"`
	// Proxy serves tiles through the local cache instead of the upstream URL.
	Proxy bool `yaml:"proxy,omitempty" json:"proxy"`
}

// Geocoder configures the Nominatim client.
type Geocoder struct {
	URL       string        `yaml:"url,omitempty"`
	UserAgent string        `yaml:"user_agent,omitempty"`
	Email     string        `yaml:"email,omitempty"`
	Language  string        `yaml:"language,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
	// Rate is the number of outbound requests per second.
	Rate  float64 `yaml:"rate,omitempty"`
	Burst int     `yaml:"burst,omitempty"`
}

// Router configures the OSRM client.
type Router struct {
	URL       string        `yaml:"url,omitempty"`
	Profile   string        `yaml:"profile,omitempty"`
	UserAgent string        `yaml:"user_agent,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
}

// Route holds route view defaults and the line style.
type Route struct {
	Start       Endpoint  `yaml:"start" json:"start"`
	Destination Endpoint  `yaml:"destination" json:"destination"`
	Line        LineStyle `yaml:"line" json:"line"`
}

// Endpoint is a default route endpoint.
type Endpoint struct {
	Coordinate *geo.Coordinate `yaml:"coordinate,omitempty" json:"coordinate"`
	Query      string          `yaml:"query,omitempty" json:"query"`
}

// LineStyle is the style of a drawn route.
type LineStyle struct {
	Color   string  `yaml:"color,omitempty" json:"color"`
	Weight  int     `yaml:"weight,omitempty" json:"weight"`
	Opacity float64 `yaml:"opacity,omitempty" json:"opacity"`
}

// Views configures view session lifetime.
type Views struct {
	IdleTimeout time.Duration `yaml:"idle_timeout,omitempty"`
	Limit       int           `yaml:"limit,omitempty"`
}

// Load reads and parses the YAML configuration file from the specified path.
// A missing file yields the default configuration.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}

	return &cfg, nil
}

// Normalize fills unset values with defaults.
func (c *Config) Normalize() {
	if c.Center == nil {
		center := DefaultCenter
		c.Center = &center
	}
	if c.Zoom <= 0 {
		c.Zoom = DefaultZoom
	}
	if c.Attribution == "" {
		c.Attribution = DefaultAttribution
	}

	if c.Tiles.URL == "" {
		c.Tiles.URL = DefaultTilesURL
	}
	if len(c.Tiles.Subdomains) == 0 {
		c.Tiles.Subdomains = []string{"a", "b", "c"}
	}
	if c.Tiles.Cache == "" {
		c.Tiles.Cache = "tiles"
	}
	if c.Tiles.MaxZoom <= 0 {
		c.Tiles.MaxZoom = 19
	}
	if c.Tiles.Quality <= 0 {
		c.Tiles.Quality = 80
	}

	if c.Geocoder.URL == "" {
		c.Geocoder.URL = DefaultGeocoderURL
	}
	if c.Geocoder.UserAgent == "" {
		c.Geocoder.UserAgent = DefaultUserAgent
	}
	if c.Geocoder.Timeout <= 0 {
		c.Geocoder.Timeout = 10 * time.Second
	}
	if c.Geocoder.Rate <= 0 {
		c.Geocoder.Rate = 1
	}
	if c.Geocoder.Burst <= 0 {
		c.Geocoder.Burst = 1
	}

	if c.Router.URL == "" {
		c.Router.URL = DefaultRouterURL
	}
	if c.Router.Profile == "" {
		c.Router.Profile = "driving"
	}
	if c.Router.UserAgent == "" {
		c.Router.UserAgent = c.Geocoder.UserAgent
	}
	if c.Router.Timeout <= 0 {
		c.Router.Timeout = 15 * time.Second
	}

	if c.Route.Start.Coordinate == nil {
		start := *c.Center
		c.Route.Start.Coordinate = &start
	}
	if c.Route.Destination.Coordinate == nil {
		dest := *c.Center
		c.Route.Destination.Coordinate = &dest
	}
	if c.Route.Line.Color == "" {
		c.Route.Line.Color = "#3388ff"
	}
	if c.Route.Line.Weight <= 0 {
		c.Route.Line.Weight = 5
	}
	if c.Route.Line.Opacity <= 0 {
		c.Route.Line.Opacity = 0.8
	}

	if c.Views.IdleTimeout <= 0 {
		c.Views.IdleTimeout = 30 * time.Minute
	}
	if c.Views.Limit <= 0 {
		c.Views.Limit = 1000
	}
}

// Validate checks values that have no sane default.
func (c *Config) Validate() error {
	if err := c.Center.Validate(); err != nil {
		return fmt.Errorf("center: %w", err)
	}
	if err := c.Route.Start.Coordinate.Validate(); err != nil {
		return fmt.Errorf("route start: %w", err)
	}
	if err := c.Route.Destination.Coordinate.Validate(); err != nil {
		return fmt.Errorf("route destination: %w", err)
	}
	if c.Zoom > geo.MaxTileZoom {
		return fmt.Errorf("zoom %d exceeds %d", c.Zoom, geo.MaxTileZoom)
	}
	if c.Tiles.MaxZoom > geo.MaxTileZoom {
		return fmt.Errorf("tiles max_zoom %d exceeds %d", c.Tiles.MaxZoom, geo.MaxTileZoom)
	}
	if c.Route.Line.Opacity > 1 {
		return fmt.Errorf("route line opacity %.2f exceeds 1", c.Route.Line.Opacity)
	}

	return nil
}
