// Package mapview holds the state of the interactive map views and keeps a
// map canvas in sync with it.
//
// A PointView centers the map on a searched place or on manually entered
// coordinates. A RouteView resolves a start and a destination and draws the
// route between them. Views never read back from the canvas.
package mapview

import (
	"sync"

	"github.com/woozymasta/geomap/internal/config"
	"github.com/woozymasta/geomap/internal/geo"
)

// OverlayID is the handle of an overlay added to a canvas. Zero is never a
// valid handle.
type OverlayID uint64

// Canvas is the map rendering capability used by the views.
type Canvas interface {
	// SetView centers the map, optionally with an animated transition.
	SetView(center geo.Coordinate, zoom int, animate bool)
	AddOverlay(o Overlay) OverlayID
	// RemoveOverlay reports whether the overlay was present.
	RemoveOverlay(id OverlayID) bool
}

// Overlay is a visual layer of a canvas.
type Overlay interface {
	features(id OverlayID) []geo.GeoJSONFeature
}

// Marker is a point marker with a popup.
type Marker struct {
	Popup    string
	Position geo.Coordinate
}

func (m Marker) features(id OverlayID) []geo.GeoJSONFeature {
	return []geo.GeoJSONFeature{
		geo.PointFeature(m.Position, map[string]interface{}{
			"overlay": uint64(id),
			"kind":    "marker",
			"popup":   m.Popup,
		}),
	}
}

// RouteLine is a drawn route: a styled line plus a marker at each waypoint.
type RouteLine struct {
	Waypoints []geo.Coordinate
	Path      []geo.Coordinate
	Style     config.LineStyle
	Distance  float64
	Duration  float64
}

func (r RouteLine) features(id OverlayID) []geo.GeoJSONFeature {
	out := make([]geo.GeoJSONFeature, 0, len(r.Waypoints)+1)
	out = append(out, geo.LineFeature(r.Path, map[string]interface{}{
		"overlay":  uint64(id),
		"kind":     "route",
		"color":    r.Style.Color,
		"weight":   r.Style.Weight,
		"opacity":  r.Style.Opacity,
		"distance": r.Distance,
		"duration": r.Duration,
	}))

	for i, w := range r.Waypoints {
		out = append(out, geo.PointFeature(w, map[string]interface{}{
			"overlay": uint64(id),
			"kind":    "waypoint",
			"index":   i,
		}))
	}

	return out
}

// SceneState is a JSON ready snapshot of a Scene.
type SceneState struct {
	Overlays geo.GeoJSONFeatureCollection `json:"overlays"`
	Center   geo.Coordinate               `json:"center"`
	Zoom     int                          `json:"zoom"`
	Revision uint64                       `json:"revision"`
	Animate  bool                         `json:"animate"`
}

// Scene is an in-memory Canvas. The page renders its snapshots.
type Scene struct {
	overlays map[OverlayID]Overlay
	order    []OverlayID
	center   geo.Coordinate
	zoom     int
	nextID   OverlayID
	revision uint64
	animate  bool
	mu       sync.Mutex
}

// NewScene returns an empty scene centered on center.
func NewScene(center geo.Coordinate, zoom int) *Scene {
	return &Scene{
		overlays: make(map[OverlayID]Overlay),
		center:   center,
		zoom:     zoom,
	}
}

// SetView implements Canvas.
func (s *Scene) SetView(center geo.Coordinate, zoom int, animate bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.center = center
	s.zoom = zoom
	s.animate = animate
	s.revision++
}

// AddOverlay implements Canvas.
func (s *Scene) AddOverlay(o Overlay) OverlayID {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.overlays[id] = o
	s.order = append(s.order, id)
	s.revision++

	return id
}

// RemoveOverlay implements Canvas.
func (s *Scene) RemoveOverlay(id OverlayID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.overlays[id]; !ok {
		return false
	}

	delete(s.overlays, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.revision++

	return true
}

// Overlays returns the overlays in insertion order.
func (s *Scene) Overlays() []Overlay {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Overlay, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.overlays[id])
	}

	return out
}

// Center returns the current center and zoom.
func (s *Scene) Center() (geo.Coordinate, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.center, s.zoom
}

// Snapshot returns the current scene state.
func (s *Scene) Snapshot() SceneState {
	s.mu.Lock()
	defer s.mu.Unlock()

	fc := geo.NewFeatureCollection(len(s.order))
	for _, id := range s.order {
		fc.Features = append(fc.Features, s.overlays[id].features(id)...)
	}

	return SceneState{
		Overlays: fc,
		Center:   s.center,
		Zoom:     s.zoom,
		Revision: s.revision,
		Animate:  s.animate,
	}
}
