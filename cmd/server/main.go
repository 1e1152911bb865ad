package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/woozymasta/geomap/assets"
	"github.com/woozymasta/geomap/internal/config"
	"github.com/woozymasta/geomap/internal/geocode"
	"github.com/woozymasta/geomap/internal/logger"
	"github.com/woozymasta/geomap/internal/page"
	"github.com/woozymasta/geomap/internal/routing"
	"github.com/woozymasta/geomap/internal/server"
	"github.com/woozymasta/geomap/internal/session"
	"github.com/woozymasta/geomap/internal/tiles"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string        `short:"c" long:"config"      env:"CONFIG_FILE"    description:"Path to configuration file" default:"config.yaml"`
	Addr       string        `short:"a" long:"addr"        env:"LISTEN_ADDRESS" description:"Address to listen on"       default:"0.0.0.0"`
	Title      string        `short:"t" long:"title"       env:"PAGE_TITLE"     description:"Page title"                 default:"geomap"`
	Port       int           `short:"p" long:"port"        env:"LISTEN_PORT"    description:"Port to listen on"          default:"8080"`
	Sweep      time.Duration `short:"s" long:"sweep"       env:"SWEEP_INTERVAL" description:"Idle view sweep interval"   default:"1m"`
	TilesProxy bool          `short:"P" long:"tiles-proxy" env:"TILES_PROXY"    description:"Serve tiles through the local webp cache"`
	NoMinify   bool          `long:"no-minify"             env:"NO_MINIFY"      description:"Serve page assets without minification"`
}

func main() {
	// a missing .env is fine
	_ = godotenv.Load()

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Setup Logging
	opts.Logger.Setup()

	// Load Config
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if opts.TilesProxy {
		cfg.Tiles.Proxy = true
	}

	client := &http.Client{
		Transport: &http.Transport{
			TLSNextProto:        make(map[string]func(string, *tls.Conn) http.RoundTripper),
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
	}

	views := session.NewStore(cfg,
		geocode.New(cfg.Geocoder, client),
		routing.New(cfg.Router, client))

	var tileCache *tiles.Cache
	if cfg.Tiles.Proxy {
		tileCache = tiles.NewCache(cfg.Tiles, cfg.Geocoder.UserAgent, &http.Client{
			Transport: client.Transport,
			Timeout:   15 * time.Second,
		})
	}

	transparent, err := tiles.TransparentTile(256)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode transparent tile")
	}

	p, err := page.Build(assets.FS, opts.Title, !opts.NoMinify)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build page")
	}

	srvCtx := server.NewServerContext(cfg, views, tileCache, p, transparent)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.Sweep <= 0 {
		opts.Sweep = time.Minute
	}
	go views.Run(ctx, opts.Sweep)

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           srvCtx.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info().Int("active_views", views.Len()).Msg("Shutting down web server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	log.Info().
		Str("addr", listenAddr).
		Stringer("center", cfg.Center).
		Int("zoom", cfg.Zoom).
		Bool("tile_proxy", cfg.Tiles.Proxy).
		Msg("Web server started")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}

	log.Info().Msg("Web server stopped")
}
