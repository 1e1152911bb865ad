package tiles

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/woozymasta/geomap/internal/geo"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// PrefetchStats summarizes a prefetch run.
type PrefetchStats struct {
	Queued  int64
	Stored  int64
	Missing int64
	Failed  int64
}

// Area returns the tiles within radius tiles of center at zoom z.
func Area(center geo.Coordinate, z, radius int) []TileCoordinate {
	cx, cy := geo.LatLonToTile(center, z)
	n := geo.TileCount(z)

	var out []TileCoordinate
	for x := cx - radius; x <= cx+radius; x++ {
		for y := cy - radius; y <= cy+radius; y++ {
			if x < 0 || y < 0 || x >= n || y >= n {
				continue
			}
			out = append(out, TileCoordinate{Z: z, X: x, Y: y})
		}
	}

	return out
}

// Prefetch warms the cache for every zoom level from minZoom to maxZoom
// around center with a bounded worker pool.
func (c *Cache) Prefetch(ctx context.Context, center geo.Coordinate, minZoom, maxZoom, radius, concurrency int, force bool) (PrefetchStats, error) {
	var stats PrefetchStats
	if concurrency <= 0 {
		concurrency = 4
	}
	if maxZoom > c.maxZoom {
		maxZoom = c.maxZoom
	}

	for z := minZoom; z <= maxZoom; z++ {
		tiles := Area(center, z, radius)
		log.Debug().Int("zoom", z).Int("count", len(tiles)).Msg("Processing zoom level")

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		for _, t := range tiles {
			atomic.AddInt64(&stats.Queued, 1)

			g.Go(func() error {
				_, err := c.Get(gctx, t, force)
				switch {
				case err == nil:
					atomic.AddInt64(&stats.Stored, 1)
				case errors.Is(err, ErrMissing):
					atomic.AddInt64(&stats.Missing, 1)
				default:
					atomic.AddInt64(&stats.Failed, 1)
					log.Trace().
						Err(err).
						Str("url", c.buildURL(t)).
						Msg("Failed to download tile")
				}

				// only cancellation stops the pool, single tile failures do not
				return gctx.Err()
			})
		}

		if err := g.Wait(); err != nil {
			return stats, err
		}
	}

	return stats, nil
}
