package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/woozymasta/geomap/internal/config"
	"github.com/woozymasta/geomap/internal/geo"
	"github.com/woozymasta/geomap/internal/geocode"
	"github.com/woozymasta/geomap/internal/logger"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config" env:"CONFIG_FILE" description:"Path to configuration file" default:"config.yaml"`
	Input      string `short:"i" long:"in" description:"File with one query per line. Reads from stdin if empty and no queries given"`
	Output     string `short:"o" long:"out" description:"Output file path. Writes to stdout if empty"`
	Format     string `short:"f" long:"format" description:"Output format" choice:"json" choice:"yaml" default:"json"`

	Args struct {
		Queries []string `positional-arg-name:"query"`
	} `positional-args:"yes"`
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

	queries := opts.Args.Queries
	if len(queries) == 0 {
		var in io.Reader = os.Stdin
		if opts.Input != "" {
			f, err := os.Open(opts.Input)
			if err != nil {
				log.Fatal().Err(err).Str("path", opts.Input).Msg("Failed to open input file")
			}
			defer func() { _ = f.Close() }()
			in = f
		}

		if queries, err = readQueries(in); err != nil {
			log.Fatal().Err(err).Msg("Failed to read queries")
		}
	}

	client := geocode.New(cfg.Geocoder, &http.Client{})
	fc := resolve(context.Background(), client, queries)

	var outputData []byte
	if opts.Format == "yaml" {
		outputData, err = yaml.Marshal(fc)
	} else {
		outputData, err = json.MarshalIndent(fc, "", "  ")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to marshal locations")
	}

	if opts.Output == "" {
		fmt.Println(string(outputData))
		return
	}

	if err := os.WriteFile(opts.Output, outputData, 0644); err != nil {
		log.Fatal().Err(err).Str("path", opts.Output).Msg("Failed to write output file")
	}
	log.Info().
		Int("found", len(fc.Features)).
		Int("queries", len(queries)).
		Str("path", opts.Output).
		Str("format", opts.Format).
		Msg("Locations saved")
}

// readQueries returns the non-blank lines of r.
func readQueries(r io.Reader) ([]string, error) {
	var out []string

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if q := strings.TrimSpace(sc.Text()); q != "" {
			out = append(out, q)
		}
	}

	return out, sc.Err()
}

// resolve geocodes every query in order. Queries without a result are
// logged and skipped.
func resolve(ctx context.Context, client *geocode.Client, queries []string) geo.GeoJSONFeatureCollection {
	fc := geo.NewFeatureCollection(len(queries))

	for _, q := range queries {
		place, err := client.Search(ctx, q)
		switch {
		case errors.Is(err, geocode.ErrNotFound):
			log.Warn().Str("query", q).Msg("Location not found")
			continue
		case err != nil:
			log.Error().Err(err).Str("query", q).Msg("Geocoding failed")
			continue
		}

		fc.Features = append(fc.Features, geo.PointFeature(place.Coordinate, map[string]interface{}{
			"query":        q,
			"name":         place.Name,
			"display_name": place.DisplayName,
		}))
	}

	return fc
}
