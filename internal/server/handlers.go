// Package server handles HTTP requests and middleware.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/woozymasta/geomap/internal/config"
	"github.com/woozymasta/geomap/internal/geo"
	"github.com/woozymasta/geomap/internal/tiles"

	"github.com/rs/zerolog/log"
)

const etagCap = 64

// proxyTileURL is the tile template handed to the page when tiles are proxied.
const proxyTileURL = "/tiles/{z}/{x}/{y}.webp"

// clientConfig is the page bootstrap configuration.
type clientConfig struct {
	Center      geo.Coordinate   `json:"center"`
	Attribution string           `json:"attribution"`
	TileURL     string           `json:"tile_url"`
	Line        config.LineStyle `json:"line"`
	Zoom        int              `json:"zoom"`
	MaxZoom     int              `json:"max_zoom"`
}

// HandleConfig serves the page bootstrap configuration.
func (s *ServerContext) HandleConfig(w http.ResponseWriter, r *http.Request) {
	tileURL := s.Config.Tiles.URL
	if s.Config.Tiles.Proxy {
		tileURL = proxyTileURL
	}

	writeJSON(w, http.StatusOK, clientConfig{
		Center:      *s.Config.Center,
		Zoom:        s.Config.Zoom,
		Attribution: s.Config.Attribution,
		TileURL:     tileURL,
		MaxZoom:     s.Config.Tiles.MaxZoom,
		Line:        s.Config.Route.Line,
	})
}

// HandleFavicon serves the site favicon.
func (s *ServerContext) HandleFavicon(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(s.Favicon)
}

// HandleIndex serves the main HTML application.
func (s *ServerContext) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && strings.Contains(r.URL.Path, ".") {
		http.NotFound(w, r)
		return
	}

	if match := r.Header.Get("If-None-Match"); match == s.indexETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("ETag", s.indexETag)
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(s.IndexHTML)
}

// HandleTile serves a cached webp tile, fetching it upstream on a miss.
// Path: /tiles/{z}/{x}/{y}.webp
func (s *ServerContext) HandleTile(w http.ResponseWriter, r *http.Request) {
	if s.Tiles == nil || !s.Config.Tiles.Proxy {
		http.NotFound(w, r)
		return
	}

	yStr, ok := strings.CutSuffix(r.PathValue("file"), ".webp")
	if !ok {
		http.NotFound(w, r)
		return
	}
	z, errZ := strconv.Atoi(r.PathValue("z"))
	x, errX := strconv.Atoi(r.PathValue("x"))
	y, errY := strconv.Atoi(yStr)
	if errZ != nil || errX != nil || errY != nil {
		http.NotFound(w, r)
		return
	}

	path, err := s.Tiles.Get(r.Context(), tiles.TileCoordinate{Z: z, X: x, Y: y}, false)
	switch {
	case err == nil:
		if s.serveFile(w, r, path, "image/webp") {
			return
		}
	case errors.Is(err, tiles.ErrInvalidTile):
		http.NotFound(w, r)
		return
	case errors.Is(err, tiles.ErrMissing):
		// cache transparent tile
		w.Header().Set("Content-Type", "image/webp")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_, _ = w.Write(s.TransparentTile)
		return
	case r.Context().Err() != nil:
		// client went away
		return
	default:
		log.Warn().Err(err).Int("z", z).Int("x", x).Int("y", y).Msg("Tile fetch failed")
	}

	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(s.TransparentTile)
}

// serveFile tries to serve a file from disk with ETag generation.
// It returns true if the file was found and served (or 304).
func (s *ServerContext) serveFile(w http.ResponseWriter, r *http.Request, path string, contentType string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return false
	}

	buf := make([]byte, 0, etagCap)
	buf = append(buf, '"')
	buf = strconv.AppendInt(buf, info.Size(), 16)
	buf = append(buf, '-')
	buf = strconv.AppendInt(buf, info.ModTime().UnixNano(), 16)
	buf = append(buf, '"')
	etag := string(buf)

	// check If-None-Match (client sent ETag)
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	http.ServeFile(w, r, path)
	return true
}

type errorResponse struct {
	State interface{} `json:"state,omitempty"`
	Error string      `json:"error"`
	Field string      `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
