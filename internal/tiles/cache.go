// Package tiles proxies a slippy map tile server and keeps the tiles on disk
// re-encoded as webp.
package tiles

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/woozymasta/geomap/internal/config"
	"github.com/woozymasta/geomap/internal/geo"
	"github.com/woozymasta/geomap/internal/metrics"

	"github.com/chai2010/webp"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"
)

// Tile errors.
var (
	ErrInvalidTile = errors.New("invalid tile coordinate")
	// ErrMissing means the upstream has no data for the tile.
	ErrMissing = errors.New("tile not available")
)

// TileCoordinate represents a specific tile.
type TileCoordinate struct {
	Z, X, Y int
}

// Cache fetches tiles from an upstream template into a directory.
type Cache struct {
	client     *http.Client
	group      singleflight.Group
	dir        string
	template   string
	userAgent  string
	subdomains []string
	timeout    time.Duration
	maxZoom    int
	quality    float32
}

// downloadTimeout bounds one shared upstream tile download.
const downloadTimeout = 30 * time.Second

// NewCache creates a tile cache from configuration.
func NewCache(cfg config.Tiles, userAgent string, client *http.Client) *Cache {
	if client == nil {
		client = &http.Client{}
	}

	return &Cache{
		client:     client,
		dir:        cfg.Cache,
		template:   cfg.URL,
		userAgent:  userAgent,
		subdomains: cfg.Subdomains,
		timeout:    downloadTimeout,
		maxZoom:    cfg.MaxZoom,
		quality:    float32(cfg.Quality),
	}
}

// Path returns the cache file path of a tile.
func (c *Cache) Path(t TileCoordinate) string {
	return filepath.Join(
		c.dir,
		strconv.Itoa(t.Z),
		strconv.Itoa(t.X),
		strconv.Itoa(t.Y)+".webp")
}

// Get returns the path of the cached tile, downloading it first if needed.
// force re-downloads an existing tile.
func (c *Cache) Get(ctx context.Context, t TileCoordinate, force bool) (string, error) {
	if !geo.ValidTile(t.Z, t.X, t.Y) || t.Z > c.maxZoom {
		return "", ErrInvalidTile
	}

	outPath := c.Path(t)

	// Check existence if not forcing overwrite
	if !force {
		if info, err := os.Stat(outPath); err == nil && info.Size() > 0 {
			metrics.TileRequests.WithLabelValues("cache").Inc()
			return outPath, nil
		}
	}

	// the shared download outlives a cancelled caller so other waiters still get it
	ch := c.group.DoChan(outPath, func() (interface{}, error) {
		dlCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		return nil, c.downloadAndConvert(dlCtx, t, outPath)
	})

	var err error
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		err = res.Err
	}

	switch {
	case err == nil:
		metrics.TileRequests.WithLabelValues("upstream").Inc()
		return outPath, nil
	case errors.Is(err, ErrMissing):
		metrics.TileRequests.WithLabelValues("missing").Inc()
	default:
		metrics.TileRequests.WithLabelValues("error").Inc()
	}

	return "", err
}

func (c *Cache) downloadAndConvert(ctx context.Context, t TileCoordinate, outPath string) error {
	url := c.buildURL(t)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		log.Trace().Str("url", url).Msg("Tile not found (404)")
		return ErrMissing
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status code %d", resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	img, _, err := image.Decode(bytes.NewReader(bodyBytes))
	if err != nil {
		log.Trace().Err(err).Str("url", url).Msg("Failed to decode image")
		return ErrMissing // Not an image or corrupted
	}

	// Filter out empty/1px tiles often returned by map servers for OOB areas
	if img.Bounds().Dx() <= 1 {
		log.Trace().Str("url", url).Msg("Filtered empty tile")
		return ErrMissing
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return err
	}

	// write aside and rename so readers never see a partial tile
	tmp, err := os.CreateTemp(filepath.Dir(outPath), ".tile-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := webp.Encode(tmp, img, &webp.Options{Lossless: false, Quality: c.quality}); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), outPath)
}

func (c *Cache) buildURL(t TileCoordinate) string {
	s := strings.ReplaceAll(c.template, "{z}", strconv.Itoa(t.Z))
	s = strings.ReplaceAll(s, "{x}", strconv.Itoa(t.X))
	s = strings.ReplaceAll(s, "{y}", strconv.Itoa(t.Y))

	if strings.Contains(s, "{tms_y}") {
		maxCoord := (1 << t.Z) - 1
		tmsY := maxCoord - t.Y
		s = strings.ReplaceAll(s, "{tms_y}", strconv.Itoa(tmsY))
	}

	if strings.Contains(s, "{s}") {
		sub := "a"
		if len(c.subdomains) > 0 {
			sub = c.subdomains[(t.X+t.Y)%len(c.subdomains)]
		}
		s = strings.ReplaceAll(s, "{s}", sub)
	}

	return s
}

// TransparentTile encodes an empty square tile served for missing data.
func TransparentTile(size int) ([]byte, error) {
	var buf bytes.Buffer
	img := image.NewNRGBA(image.Rect(0, 0, size, size))

	if err := webp.Encode(&buf, img, &webp.Options{Lossless: true}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
