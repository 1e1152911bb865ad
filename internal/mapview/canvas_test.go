package mapview

import (
	"testing"

	"github.com/woozymasta/geomap/internal/config"
	"github.com/woozymasta/geomap/internal/geo"
)

func TestSceneOverlays(t *testing.T) {
	s := NewScene(london, 13)

	a := s.AddOverlay(Marker{Position: london, Popup: "a"})
	b := s.AddOverlay(RouteLine{
		Waypoints: []geo.Coordinate{paris, lyon},
		Path:      []geo.Coordinate{paris, lyon},
		Style:     config.LineStyle{Color: "blue", Weight: 4, Opacity: 0.5},
	})
	if a == 0 || b == 0 || a == b {
		t.Fatalf("bad overlay ids %d %d", a, b)
	}

	snap := s.Snapshot()
	// marker + line + two waypoints
	if n := len(snap.Overlays.Features); n != 4 {
		t.Fatalf("features = %d, want 4", n)
	}
	line := snap.Overlays.Features[1]
	if line.Geometry.Type != "LineString" || line.Properties["color"] != "blue" {
		t.Errorf("unexpected line feature %+v", line)
	}
	pt := snap.Overlays.Features[0].Geometry.Coordinates.([]float64)
	if pt[0] != london.Lon || pt[1] != london.Lat {
		t.Errorf("point must be [lon, lat], got %v", pt)
	}

	if !s.RemoveOverlay(a) {
		t.Error("RemoveOverlay(a) = false")
	}
	if s.RemoveOverlay(a) {
		t.Error("second RemoveOverlay(a) = true")
	}
	if got := len(s.Overlays()); got != 1 {
		t.Errorf("overlays = %d, want 1", got)
	}
}

func TestSceneRevision(t *testing.T) {
	s := NewScene(london, 13)
	r0 := s.Snapshot().Revision

	s.SetView(paris, 10, true)
	snap := s.Snapshot()
	if snap.Revision <= r0 || !snap.Animate || snap.Center != paris || snap.Zoom != 10 {
		t.Errorf("SetView not applied: %+v", snap)
	}
}
