// Package session keeps the mounted map views of the page in memory.
// A view lives until it is deleted (unmounted) or stays idle too long.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/woozymasta/geomap/internal/config"
	"github.com/woozymasta/geomap/internal/mapview"
	"github.com/woozymasta/geomap/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Store errors.
var (
	ErrNotFound = errors.New("view not found")
	ErrKind     = errors.New("unsupported view kind")
	ErrLimit    = errors.New("too many views")
)

// Kind is the variant of a view.
type Kind string

// View kinds.
const (
	KindPoint Kind = "point"
	KindRoute Kind = "route"
)

// Store holds views by id.
type Store struct {
	views    map[string]*View
	cfg      *config.Config
	geocoder mapview.Geocoder
	router   mapview.Router
	now      func() time.Time
	idle     time.Duration
	limit    int
	mu       sync.RWMutex
}

// NewStore creates a store creating views from cfg defaults.
func NewStore(cfg *config.Config, geocoder mapview.Geocoder, router mapview.Router) *Store {
	return &Store{
		views:    make(map[string]*View),
		cfg:      cfg,
		geocoder: geocoder,
		router:   router,
		now:      time.Now,
		idle:     cfg.Views.IdleTimeout,
		limit:    cfg.Views.Limit,
	}
}

// Create mounts a new view of the given kind.
func (s *Store) Create(kind Kind) (*View, error) {
	if kind != KindPoint && kind != KindRoute {
		return nil, fmt.Errorf("%w: %q", ErrKind, kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.limit > 0 && len(s.views) >= s.limit {
		return nil, ErrLimit
	}

	v := &View{
		ID:      uuid.NewString(),
		Kind:    kind,
		Created: s.now(),
		Scene:   mapview.NewScene(*s.cfg.Center, s.cfg.Zoom),
	}
	v.touch(v.Created)

	switch kind {
	case KindPoint:
		v.Point = mapview.NewPointView(mapview.PointOptions{
			Center: *s.cfg.Center,
			Zoom:   s.cfg.Zoom,
		}, v.Scene, s.geocoder, v)
	case KindRoute:
		v.Route = mapview.NewRouteView(mapview.RouteOptions{
			Start:       endpoint(s.cfg.Route.Start),
			Destination: endpoint(s.cfg.Route.Destination),
			Style:       s.cfg.Route.Line,
			Center:      *s.cfg.Center,
			Zoom:        s.cfg.Zoom,
		}, v.Scene, s.geocoder, s.router, v)
	}

	s.views[v.ID] = v
	metrics.ActiveViews.Set(float64(len(s.views)))
	log.Debug().Str("id", v.ID).Str("kind", string(kind)).Msg("View mounted")

	return v, nil
}

// Get returns a view and marks it as used.
func (s *Store) Get(id string) (*View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.views[id]
	if !ok {
		return nil, ErrNotFound
	}
	// touched under the lock so Sweep never removes a view handed out here
	v.touch(s.now())

	return v, nil
}

// Delete unmounts a view.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.views[id]; !ok {
		return ErrNotFound
	}
	delete(s.views, id)
	metrics.ActiveViews.Set(float64(len(s.views)))
	log.Debug().Str("id", id).Msg("View unmounted")

	return nil
}

// Len returns the number of mounted views.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.views)
}

// Sweep removes views idle for longer than the idle timeout.
func (s *Store) Sweep() int {
	if s.idle <= 0 {
		return 0
	}
	deadline := s.now().Add(-s.idle)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, v := range s.views {
		if v.lastSeen().Before(deadline) {
			delete(s.views, id)
			removed++
		}
	}
	if removed > 0 {
		metrics.ActiveViews.Set(float64(len(s.views)))
		log.Info().Int("removed", removed).Int("active", len(s.views)).Msg("Expired idle views")
	}

	return removed
}

// Run sweeps idle views every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func endpoint(e config.Endpoint) mapview.Endpoint {
	ep := mapview.Endpoint{Query: e.Query}
	if e.Coordinate != nil {
		ep.Coordinate = *e.Coordinate
	}

	return ep
}
