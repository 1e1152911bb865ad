package mapview

import (
	"context"
	"strings"
	"sync"

	"github.com/woozymasta/geomap/internal/config"
	"github.com/woozymasta/geomap/internal/geo"
	"github.com/woozymasta/geomap/internal/metrics"

	"github.com/rs/zerolog/log"
)

// Endpoint is one named location of a route view.
type Endpoint struct {
	Query       string         `json:"query"`
	DisplayName string         `json:"display_name,omitempty"`
	Coordinate  geo.Coordinate `json:"coordinate"`
	// Resolved is set once a search succeeded for this endpoint.
	Resolved bool `json:"resolved"`
}

// RouteOptions configures a RouteView at mount.
type RouteOptions struct {
	Start       Endpoint
	Destination Endpoint
	Style       config.LineStyle
	Center      geo.Coordinate
	Zoom        int
}

// RouteSummary describes the drawn route.
type RouteSummary struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Points   int     `json:"points"`
}

// RouteState is a snapshot of a RouteView.
type RouteState struct {
	Route       *RouteSummary `json:"route,omitempty"`
	Start       Endpoint      `json:"start"`
	Destination Endpoint      `json:"destination"`
	Routing     bool          `json:"routing"`
}

// RouteView holds a start and a destination, each geocoded on its own,
// and the route overlay drawn between them.
type RouteView struct {
	canvas    Canvas
	geocoder  Geocoder
	router    Router
	notifier  Notifier
	summary   *RouteSummary
	style     config.LineStyle
	start     Endpoint
	dest      Endpoint
	startSlot slot
	destSlot  slot
	routeSlot slot
	zoom      int
	overlay   OverlayID
	mu        sync.Mutex
}

// NewRouteView mounts a route view on canvas.
// The option endpoints are defaults and are never treated as resolved.
func NewRouteView(opts RouteOptions, canvas Canvas, geocoder Geocoder, router Router, notifier Notifier) *RouteView {
	v := &RouteView{
		canvas:   canvas,
		geocoder: geocoder,
		router:   router,
		notifier: notifier,
		style:    opts.Style,
		start:    opts.Start,
		dest:     opts.Destination,
		zoom:     opts.Zoom,
	}
	v.start.Resolved = false
	v.dest.Resolved = false

	canvas.SetView(opts.Center, opts.Zoom, false)

	return v
}

// SetStartQuery replaces the start search text.
func (v *RouteView) SetStartQuery(query string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.start.Query = query
}

// SetDestinationQuery replaces the destination search text.
func (v *RouteView) SetDestinationQuery(query string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.dest.Query = query
}

// SearchStart geocodes the start query. See PointView.Search for the contract.
func (v *RouteView) SearchStart(ctx context.Context) error {
	return v.searchEndpoint(ctx, "start", &v.start, &v.startSlot)
}

// SearchDestination geocodes the destination query.
func (v *RouteView) SearchDestination(ctx context.Context) error {
	return v.searchEndpoint(ctx, "destination", &v.dest, &v.destSlot)
}

// searchEndpoint resolves *ep. ep and sl point into v and are only touched under mu.
func (v *RouteView) searchEndpoint(ctx context.Context, name string, ep *Endpoint, sl *slot) error {
	v.mu.Lock()
	query := strings.TrimSpace(ep.Query)
	if query == "" {
		v.mu.Unlock()
		return nil
	}
	ctx, gen := sl.begin(ctx)
	v.mu.Unlock()

	place, err := v.geocoder.Search(ctx, query)

	v.mu.Lock()
	defer v.mu.Unlock()

	if !sl.finish(gen) {
		metrics.StaleResults.WithLabelValues("search").Inc()
		log.Debug().Str("endpoint", name).Str("query", query).Msg("Discarding superseded search result")
		return ErrSuperseded
	}

	if err != nil {
		log.Warn().Err(err).Str("endpoint", name).Str("query", query).Msg("Search failed")
		v.notifier.Notify(geocodeNotice(err))
		return err
	}

	ep.Coordinate = place.Coordinate
	ep.DisplayName = place.DisplayName
	ep.Resolved = true
	v.canvas.SetView(place.Coordinate, v.zoom, true)

	return nil
}

// Swap exchanges start and destination, queries and coordinates together.
// No request is made and the route is not recomputed. A route still in
// flight is discarded.
func (v *RouteView) Swap() {
	v.mu.Lock()
	defer v.mu.Unlock()

	// pending searches and routes belong to the old orientation
	v.startSlot.supersede()
	v.destSlot.supersede()
	v.routeSlot.supersede()

	v.start, v.dest = v.dest, v.start
}

// ComputeRoute replaces the drawn route with a new one between start and
// destination. Both endpoints must have been resolved by a search,
// otherwise ErrUnresolved is returned and the current route is kept.
func (v *RouteView) ComputeRoute(ctx context.Context) error {
	v.mu.Lock()
	if !v.start.Resolved || !v.dest.Resolved {
		v.mu.Unlock()
		v.notifier.Notify(Notice{Level: LevelInfo, Message: MsgUnresolvedPath})
		return ErrUnresolved
	}

	v.removeRoute()
	from, to := v.start.Coordinate, v.dest.Coordinate
	ctx, gen := v.routeSlot.begin(ctx)
	v.mu.Unlock()

	route, err := v.router.Route(ctx, from, to)

	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.routeSlot.finish(gen) {
		metrics.StaleResults.WithLabelValues("route").Inc()
		log.Debug().Msg("Discarding superseded route result")
		return ErrSuperseded
	}

	if err != nil {
		log.Warn().Err(err).Stringer("from", from).Stringer("to", to).Msg("Route computation failed")
		v.notifier.Notify(routeNotice(err))
		return err
	}

	v.overlay = v.canvas.AddOverlay(RouteLine{
		Waypoints: []geo.Coordinate{from, to},
		Path:      route.Path,
		Style:     v.style,
		Distance:  route.Distance,
		Duration:  route.Duration,
	})
	v.summary = &RouteSummary{
		Distance: route.Distance,
		Duration: route.Duration,
		Points:   len(route.Path),
	}
	v.canvas.SetView(geo.Midpoint(from, to), v.zoom, true)

	return nil
}

// State returns a snapshot of the view.
func (v *RouteView) State() RouteState {
	v.mu.Lock()
	defer v.mu.Unlock()

	st := RouteState{
		Start:       v.start,
		Destination: v.dest,
		Routing:     v.routeSlot.busy,
	}
	if v.summary != nil {
		summary := *v.summary
		st.Route = &summary
	}

	return st
}

// removeRoute drops the current route overlay. Callers hold mu.
func (v *RouteView) removeRoute() {
	if v.overlay == 0 {
		return
	}

	v.canvas.RemoveOverlay(v.overlay)
	v.overlay = 0
	v.summary = nil
}
