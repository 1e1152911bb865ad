package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/woozymasta/geomap/internal/config"
	"github.com/woozymasta/geomap/internal/geo"
	"github.com/woozymasta/geomap/internal/logger"
	"github.com/woozymasta/geomap/internal/tiles"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile  string `short:"c" long:"config"      env:"CONFIG_FILE" description:"Path to configuration file" default:"config.yaml"`
	Center      string `short:"C" long:"center"      env:"CENTER"      description:"Center as lat,lon (defaults to the configured center)"`
	Concurrency int    `short:"p" long:"concurrency" env:"CONCURRENCY" description:"Concurrency" default:"8"`
	MinZoom     int    `short:"m" long:"min-zoom"    env:"MIN_ZOOM"    description:"First zoom level" default:"0"`
	ZoomLimit   int    `short:"z" long:"zoom-limit"  env:"ZOOM_LIMIT"  description:"Tiles zoom limit" default:"13"`
	Radius      int    `short:"r" long:"radius"      env:"RADIUS"      description:"Tiles around the center per zoom level" default:"2"`
	Force       bool   `short:"f" long:"force"       description:"Force overwrite of existing files"`
}

func main() {
	_ = godotenv.Load()

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	center, err := parseCenter(opts.Center, *cfg.Center)
	if err != nil {
		log.Fatal().Err(err).Str("center", opts.Center).Msg("Invalid center")
	}

	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.Radius < 0 {
		opts.Radius = 0
	}
	if opts.MinZoom < 0 {
		opts.MinZoom = 0
	}

	client := &http.Client{
		Transport: &http.Transport{
			TLSNextProto:        make(map[string]func(string, *tls.Conn) http.RoundTripper),
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
		Timeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Stringer("center", center).
		Int("min_zoom", opts.MinZoom).
		Int("zoom_limit", opts.ZoomLimit).
		Int("radius", opts.Radius).
		Str("cache", cfg.Tiles.Cache).
		Msg("Starting prefetch")

	start := time.Now()
	cache := tiles.NewCache(cfg.Tiles, cfg.Geocoder.UserAgent, client)
	stats, err := cache.Prefetch(ctx, center, opts.MinZoom, opts.ZoomLimit, opts.Radius, opts.Concurrency, opts.Force)

	event := log.Info()
	if err != nil {
		event = log.Warn().Err(err)
	}
	event.
		Int64("queued", stats.Queued).
		Int64("stored", stats.Stored).
		Int64("missing", stats.Missing).
		Int64("failed", stats.Failed).
		Dur("took", time.Since(start)).
		Msg("Prefetch finished")

	if err != nil {
		os.Exit(1)
	}
}

// parseCenter parses a "lat,lon" pair, falling back to def when text is blank.
func parseCenter(text string, def geo.Coordinate) (geo.Coordinate, error) {
	if strings.TrimSpace(text) == "" {
		return def, nil
	}

	lat, lon, ok := strings.Cut(text, ",")
	if !ok {
		return geo.Coordinate{}, fmt.Errorf("center %q: want lat,lon", text)
	}

	return geo.ParseCoordinate(lat, lon)
}
