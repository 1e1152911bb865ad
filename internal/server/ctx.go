package server

import (
	"fmt"
	"hash/crc32"
	"net/http"

	"github.com/woozymasta/geomap/internal/config"
	"github.com/woozymasta/geomap/internal/metrics"
	"github.com/woozymasta/geomap/internal/page"
	"github.com/woozymasta/geomap/internal/session"
	"github.com/woozymasta/geomap/internal/tiles"

	"github.com/rs/zerolog/log"
)

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config          *config.Config
	Views           *session.Store
	Tiles           *tiles.Cache
	IndexHTML       []byte
	Favicon         []byte
	TransparentTile []byte
	indexETag       string
}

// NewServerContext wires the handler dependencies.
// A nil tile cache disables the tile proxy.
func NewServerContext(cfg *config.Config, views *session.Store, tileCache *tiles.Cache, p *page.Page, transparent []byte) *ServerContext {
	if tileCache == nil && cfg.Tiles.Proxy {
		log.Warn().Msg("Tile proxy enabled without a cache, serving upstream tiles directly")
		cfg.Tiles.Proxy = false
	}

	log.Info().
		Stringer("center", cfg.Center).
		Int("zoom", cfg.Zoom).
		Bool("tile_proxy", cfg.Tiles.Proxy).
		Msg("Server context initialized successfully")

	return &ServerContext{
		Config:          cfg,
		Views:           views,
		Tiles:           tileCache,
		IndexHTML:       p.Index,
		Favicon:         p.Favicon,
		TransparentTile: transparent,
		indexETag:       fmt.Sprintf(`"%x"`, crc32.ChecksumIEEE(p.Index)),
	}
}

// Routes returns the HTTP handler of the service.
func (s *ServerContext) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/config", s.HandleConfig)

	mux.HandleFunc("POST /api/views", s.HandleCreateView)
	mux.HandleFunc("GET /api/views/{id}", s.HandleGetView)
	mux.HandleFunc("DELETE /api/views/{id}", s.HandleDeleteView)

	// point view
	mux.HandleFunc("POST /api/views/{id}/query", s.pointAction(setQuery))
	mux.HandleFunc("POST /api/views/{id}/search", s.pointAction(search))
	mux.HandleFunc("POST /api/views/{id}/latitude", s.pointAction(setLatitude))
	mux.HandleFunc("POST /api/views/{id}/longitude", s.pointAction(setLongitude))
	mux.HandleFunc("POST /api/views/{id}/coordinates", s.pointAction(submitCoordinates))

	// route view
	mux.HandleFunc("POST /api/views/{id}/start/query", s.routeAction(setStartQuery))
	mux.HandleFunc("POST /api/views/{id}/start/search", s.routeAction(searchStart))
	mux.HandleFunc("POST /api/views/{id}/destination/query", s.routeAction(setDestinationQuery))
	mux.HandleFunc("POST /api/views/{id}/destination/search", s.routeAction(searchDestination))
	mux.HandleFunc("POST /api/views/{id}/swap", s.routeAction(swap))
	mux.HandleFunc("POST /api/views/{id}/route", s.routeAction(computeRoute))

	mux.HandleFunc("GET /api/", s.HandleAPINotFound)

	mux.HandleFunc("GET /tiles/{z}/{x}/{file}", s.HandleTile)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /favicon.ico", s.HandleFavicon)
	mux.HandleFunc("GET /", s.HandleIndex)

	return RequestLogger(mux)
}
