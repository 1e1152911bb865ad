package mapview

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/woozymasta/geomap/internal/geo"
	"github.com/woozymasta/geomap/internal/metrics"

	"github.com/rs/zerolog/log"
)

// PointOptions configures a PointView at mount.
type PointOptions struct {
	Center geo.Coordinate
	Zoom   int
}

// FieldState is the rendered state of a manual entry field.
type FieldState struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// PointState is a snapshot of a PointView.
type PointState struct {
	Center    geo.Coordinate `json:"center"`
	Query     string         `json:"query"`
	Latitude  FieldState     `json:"latitude"`
	Longitude FieldState     `json:"longitude"`
	Searching bool           `json:"searching"`
}

// PointView is the single-point map view: one center, a search query and
// two manual coordinate fields committed on submit.
type PointView struct {
	canvas   Canvas
	geocoder Geocoder
	notifier Notifier
	lat      geo.CoordinateInput
	lng      geo.CoordinateInput
	query    string
	center   geo.Coordinate
	search   slot
	zoom     int
	marker   OverlayID
	mu       sync.Mutex
}

// NewPointView mounts a point view on canvas.
func NewPointView(opts PointOptions, canvas Canvas, geocoder Geocoder, notifier Notifier) *PointView {
	v := &PointView{
		canvas:   canvas,
		geocoder: geocoder,
		notifier: notifier,
		center:   opts.Center,
		zoom:     opts.Zoom,
		lat:      geo.NewCoordinateInput(geo.FieldLatitude, opts.Center.Lat),
		lng:      geo.NewCoordinateInput(geo.FieldLongitude, opts.Center.Lon),
	}

	canvas.SetView(v.center, v.zoom, false)
	v.marker = canvas.AddOverlay(v.markerOverlay())

	return v
}

// SetQuery replaces the search text.
func (v *PointView) SetQuery(query string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.query = query
}

// Search geocodes the current query and recenters on the first match.
// A blank query is a no-op. Lookup failures are notified and leave state
// unchanged. A search replaced by a newer one returns ErrSuperseded.
func (v *PointView) Search(ctx context.Context) error {
	v.mu.Lock()
	query := strings.TrimSpace(v.query)
	if query == "" {
		v.mu.Unlock()
		return nil
	}
	ctx, gen := v.search.begin(ctx)
	v.mu.Unlock()

	place, err := v.geocoder.Search(ctx, query)

	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.search.finish(gen) {
		metrics.StaleResults.WithLabelValues("search").Inc()
		log.Debug().Str("query", query).Msg("Discarding superseded search result")
		return ErrSuperseded
	}

	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("Search failed")
		v.notifier.Notify(geocodeNotice(err))
		return err
	}

	v.lat.SetValue(place.Lat)
	v.lng.SetValue(place.Lon)
	v.setCenter(place.Coordinate)

	return nil
}

// SetLatitudeText edits the latitude field. The returned field error is
// also kept in the state until the text becomes valid.
func (v *PointView) SetLatitudeText(text string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.lat.Set(text)
}

// SetLongitudeText edits the longitude field.
func (v *PointView) SetLongitudeText(text string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.lng.Set(text)
}

// SubmitCoordinates commits both manual fields to the center.
// It is rejected with the field error if either field is invalid.
func (v *PointView) SubmitCoordinates() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.submit()
}

// SubmitCoordinateText replaces both manual field texts and commits them
// under one lock.
func (v *PointView) SubmitCoordinateText(lat, lon string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	// field errors are kept in the inputs and reported by submit
	_ = v.lat.Set(lat)
	_ = v.lng.Set(lon)

	return v.submit()
}

// submit commits the field values. Callers hold mu.
func (v *PointView) submit() error {
	lat, latErr := v.lat.Value()
	lon, lonErr := v.lng.Value()
	if err := errors.Join(latErr, lonErr); err != nil {
		return err
	}

	// a manual position wins over a search still in flight
	v.search.supersede()
	v.setCenter(geo.Coordinate{Lat: lat, Lon: lon})

	return nil
}

// State returns a snapshot of the view.
func (v *PointView) State() PointState {
	v.mu.Lock()
	defer v.mu.Unlock()

	return PointState{
		Center:    v.center,
		Query:     v.query,
		Latitude:  fieldState(v.lat),
		Longitude: fieldState(v.lng),
		Searching: v.search.busy,
	}
}

// setCenter updates the authoritative position and syncs the canvas. Callers hold mu.
func (v *PointView) setCenter(c geo.Coordinate) {
	v.center = c
	v.canvas.SetView(c, v.zoom, true)
	v.canvas.RemoveOverlay(v.marker)
	v.marker = v.canvas.AddOverlay(v.markerOverlay())
}

func (v *PointView) markerOverlay() Marker {
	return Marker{
		Position: v.center,
		Popup:    "Location: " + v.center.String(),
	}
}

func fieldState(in geo.CoordinateInput) FieldState {
	fs := FieldState{Text: in.Text()}
	if err := in.Err(); err != nil {
		fs.Error = err.Error()
	}

	return fs
}
