package mapview

import (
	"context"
	"errors"
	"testing"

	"github.com/woozymasta/geomap/internal/config"
	"github.com/woozymasta/geomap/internal/geo"
	"github.com/woozymasta/geomap/internal/routing"
)

func newRouteView(g Geocoder, r Router) (*RouteView, *Scene, *noticeRecorder) {
	scene := NewScene(london, 13)
	rec := &noticeRecorder{}
	v := NewRouteView(RouteOptions{
		Start:       Endpoint{Query: "London", Coordinate: london},
		Destination: Endpoint{Coordinate: london},
		Style:       config.LineStyle{Color: "#3388ff", Weight: 5, Opacity: 0.8},
		Center:      london,
		Zoom:        13,
	}, scene, g, r, rec)

	return v, scene, rec
}

func resolvedRouteView(t *testing.T, r Router) (*RouteView, *Scene, *noticeRecorder) {
	t.Helper()

	g := placesGeocoder(map[string]geo.Coordinate{"Paris": paris, "Lyon": lyon})
	v, scene, rec := newRouteView(g, r)

	v.SetStartQuery("Paris")
	v.SetDestinationQuery("Lyon")
	if err := v.SearchStart(context.Background()); err != nil {
		t.Fatalf("SearchStart: %v", err)
	}
	if err := v.SearchDestination(context.Background()); err != nil {
		t.Fatalf("SearchDestination: %v", err)
	}

	return v, scene, rec
}

func routeOverlays(s *Scene) int {
	n := 0
	for _, o := range s.Overlays() {
		if _, ok := o.(RouteLine); ok {
			n++
		}
	}

	return n
}

func TestRouteSearchEndpoints(t *testing.T) {
	v, scene, _ := resolvedRouteView(t, &fakeRouter{})

	st := v.State()
	if !st.Start.Resolved || st.Start.Coordinate != paris || st.Start.Query != "Paris" {
		t.Errorf("start = %+v", st.Start)
	}
	if !st.Destination.Resolved || st.Destination.Coordinate != lyon {
		t.Errorf("destination = %+v", st.Destination)
	}
	if c, _ := scene.Center(); c != lyon {
		t.Errorf("canvas should follow the last resolved endpoint, got %v", c)
	}
}

func TestRouteSearchNotFoundKeepsEndpoint(t *testing.T) {
	g := placesGeocoder(map[string]geo.Coordinate{})
	v, _, rec := newRouteView(g, &fakeRouter{})
	before := v.State().Start

	v.SetStartQuery("zzzzznotreal")
	if err := v.SearchStart(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	after := v.State().Start
	if after.Coordinate != before.Coordinate || after.Resolved {
		t.Errorf("start changed: %+v", after)
	}
	if msgs := rec.Messages(); len(msgs) != 1 || msgs[0] != MsgNotFound {
		t.Errorf("notices = %v", msgs)
	}
}

func TestComputeRouteReplacesOverlay(t *testing.T) {
	router := &fakeRouter{}
	v, scene, _ := resolvedRouteView(t, router)

	for i := 0; i < 2; i++ {
		if err := v.ComputeRoute(context.Background()); err != nil {
			t.Fatalf("ComputeRoute #%d: %v", i, err)
		}
	}

	if n := routeOverlays(scene); n != 1 {
		t.Errorf("route overlays = %d, want 1", n)
	}
	if router.Calls() != 2 {
		t.Errorf("router calls = %d", router.Calls())
	}

	line := scene.Overlays()[0].(RouteLine)
	if len(line.Waypoints) != 2 || line.Waypoints[0] != paris || line.Waypoints[1] != lyon {
		t.Errorf("waypoints = %v", line.Waypoints)
	}
	if line.Style.Color != "#3388ff" {
		t.Errorf("style = %+v", line.Style)
	}

	st := v.State()
	if st.Route == nil || st.Route.Distance != 1000 || st.Route.Points != 3 {
		t.Errorf("summary = %+v", st.Route)
	}
	if c, _ := scene.Center(); c != geo.Midpoint(paris, lyon) {
		t.Errorf("canvas center = %v", c)
	}
}

func TestComputeRouteBlockedWhenUnresolved(t *testing.T) {
	router := &fakeRouter{}
	v, scene, rec := newRouteView(placesGeocoder(map[string]geo.Coordinate{"Paris": paris}), router)

	if err := v.ComputeRoute(context.Background()); !errors.Is(err, ErrUnresolved) {
		t.Fatalf("ComputeRoute() = %v, want ErrUnresolved", err)
	}

	v.SetStartQuery("Paris")
	_ = v.SearchStart(context.Background())
	if err := v.ComputeRoute(context.Background()); !errors.Is(err, ErrUnresolved) {
		t.Fatalf("ComputeRoute() with one endpoint = %v, want ErrUnresolved", err)
	}

	if router.Calls() != 0 {
		t.Errorf("router called %d times", router.Calls())
	}
	if routeOverlays(scene) != 0 {
		t.Error("unexpected route overlay")
	}
	if msgs := rec.Messages(); len(msgs) != 2 || msgs[0] != MsgUnresolvedPath {
		t.Errorf("notices = %v", msgs)
	}
}

func TestComputeRouteFailure(t *testing.T) {
	fail := false
	router := &fakeRouter{}
	router.routeFn = func(ctx context.Context, origin, destination geo.Coordinate) (routing.Route, error) {
		if fail {
			return routing.Route{}, routing.ErrRequest
		}
		return routing.Route{Path: []geo.Coordinate{origin, destination}}, nil
	}
	v, scene, rec := resolvedRouteView(t, router)

	if err := v.ComputeRoute(context.Background()); err != nil {
		t.Fatal(err)
	}

	fail = true
	if err := v.ComputeRoute(context.Background()); !errors.Is(err, routing.ErrRequest) {
		t.Fatalf("ComputeRoute() = %v", err)
	}

	// the previous route is removed before the request is made
	if n := routeOverlays(scene); n != 0 {
		t.Errorf("route overlays = %d, want 0", n)
	}
	if v.State().Route != nil {
		t.Error("summary kept after failure")
	}
	if msgs := rec.Messages(); len(msgs) != 1 || msgs[0] != MsgRouteFailed {
		t.Errorf("notices = %v", msgs)
	}
}

func TestComputeRouteSuperseded(t *testing.T) {
	entered := make(chan struct{})
	first := true

	router := &fakeRouter{}
	router.routeFn = func(ctx context.Context, origin, destination geo.Coordinate) (routing.Route, error) {
		if first {
			first = false
			close(entered)
			<-ctx.Done()
			return routing.Route{}, ctx.Err()
		}
		return routing.Route{Path: []geo.Coordinate{origin, destination}}, nil
	}
	v, scene, rec := resolvedRouteView(t, router)

	done := make(chan error, 1)
	go func() { done <- v.ComputeRoute(context.Background()) }()
	<-entered

	if err := v.ComputeRoute(context.Background()); err != nil {
		t.Fatalf("second ComputeRoute: %v", err)
	}
	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Errorf("first ComputeRoute() = %v, want ErrSuperseded", err)
	}

	if n := routeOverlays(scene); n != 1 {
		t.Errorf("route overlays = %d, want 1", n)
	}
	if len(rec.Messages()) != 0 {
		t.Errorf("notices = %v", rec.Messages())
	}
}

func TestSwapIsItsOwnInverse(t *testing.T) {
	router := &fakeRouter{}
	v, scene, _ := resolvedRouteView(t, router)
	if err := v.ComputeRoute(context.Background()); err != nil {
		t.Fatal(err)
	}
	rev := scene.Snapshot().Revision
	orig := v.State()

	v.Swap()
	swapped := v.State()
	if swapped.Start != orig.Destination || swapped.Destination != orig.Start {
		t.Errorf("swap did not exchange endpoints: %+v", swapped)
	}
	if router.Calls() != 1 || scene.Snapshot().Revision != rev {
		t.Error("swap must not recompute or redraw")
	}

	v.Swap()
	again := v.State()
	if again.Start != orig.Start || again.Destination != orig.Destination {
		t.Errorf("double swap = %+v, want %+v", again, orig)
	}
}

func TestSwapSupersedesPendingSearch(t *testing.T) {
	entered := make(chan struct{})
	g := &fakeGeocoder{searchFn: func(ctx context.Context, query string) (geo.Place, error) {
		close(entered)
		<-ctx.Done()
		return geo.Place{Coordinate: paris}, nil
	}}
	v, _, _ := newRouteView(g, &fakeRouter{})

	v.SetStartQuery("Paris")
	done := make(chan error, 1)
	go func() { done <- v.SearchStart(context.Background()) }()
	<-entered

	v.Swap()
	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Errorf("SearchStart() = %v, want ErrSuperseded", err)
	}

	st := v.State()
	if st.Start.Resolved || st.Destination.Resolved {
		t.Errorf("stale search resolved an endpoint: %+v", st)
	}
	if st.Destination.Query != "Paris" {
		t.Errorf("destination query = %q", st.Destination.Query)
	}
}

func TestSwapDiscardsPendingRoute(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	router := &fakeRouter{}
	router.routeFn = func(ctx context.Context, origin, destination geo.Coordinate) (routing.Route, error) {
		close(entered)
		<-release
		return routing.Route{Path: []geo.Coordinate{origin, destination}}, nil
	}
	v, scene, rec := resolvedRouteView(t, router)

	done := make(chan error, 1)
	go func() { done <- v.ComputeRoute(context.Background()) }()
	<-entered

	v.Swap()
	close(release)

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Errorf("ComputeRoute() = %v, want ErrSuperseded", err)
	}
	if n := routeOverlays(scene); n != 0 {
		t.Errorf("route overlays = %d, want 0", n)
	}
	if st := v.State(); st.Route != nil || st.Routing {
		t.Errorf("state after swap = %+v", st)
	}
	if len(rec.Messages()) != 0 {
		t.Errorf("notices = %v", rec.Messages())
	}
}
