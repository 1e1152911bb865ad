package mapview

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/woozymasta/geomap/internal/geo"
	"github.com/woozymasta/geomap/internal/geocode"
	"github.com/woozymasta/geomap/internal/routing"
)

type fakeGeocoder struct {
	searchFn func(ctx context.Context, query string) (geo.Place, error)
	calls    int32
}

func (f *fakeGeocoder) Search(ctx context.Context, query string) (geo.Place, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.searchFn != nil {
		return f.searchFn(ctx, query)
	}

	return geo.Place{}, nil
}

func (f *fakeGeocoder) Calls() int { return int(atomic.LoadInt32(&f.calls)) }

// placesGeocoder answers from a fixed table and reports unknown queries as not found.
func placesGeocoder(places map[string]geo.Coordinate) *fakeGeocoder {
	return &fakeGeocoder{
		searchFn: func(ctx context.Context, query string) (geo.Place, error) {
			c, ok := places[query]
			if !ok {
				return geo.Place{}, geocode.ErrNotFound
			}

			return geo.Place{Coordinate: c, DisplayName: query}, nil
		},
	}
}

type fakeRouter struct {
	routeFn func(ctx context.Context, origin, destination geo.Coordinate) (routing.Route, error)
	calls   int32
}

func (f *fakeRouter) Route(ctx context.Context, origin, destination geo.Coordinate) (routing.Route, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.routeFn != nil {
		return f.routeFn(ctx, origin, destination)
	}

	return routing.Route{
		Waypoints: []geo.Coordinate{origin, destination},
		Path:      []geo.Coordinate{origin, geo.Midpoint(origin, destination), destination},
		Distance:  1000,
		Duration:  60,
	}, nil
}

type noticeRecorder struct {
	notices []Notice
	mu      sync.Mutex
}

func (r *noticeRecorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notices = append(r.notices, n)
}

func (r *noticeRecorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.notices))
	for _, n := range r.notices {
		out = append(out, n.Message)
	}

	return out
}

var (
	london = geo.Coordinate{Lat: 51.505, Lon: -0.09}
	paris  = geo.Coordinate{Lat: 48.8566, Lon: 2.3522}
	lyon   = geo.Coordinate{Lat: 45.764, Lon: 4.8357}
)

func (f *fakeRouter) Calls() int { return int(atomic.LoadInt32(&f.calls)) }
