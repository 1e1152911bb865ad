package mapview

import (
	"context"
	"errors"

	"github.com/woozymasta/geomap/internal/geo"
	"github.com/woozymasta/geomap/internal/geocode"
	"github.com/woozymasta/geomap/internal/routing"
)

// User facing messages.
const (
	MsgNotFound       = "Location not found"
	MsgGeocodeFailed  = "Error fetching location"
	MsgRouteFailed    = "Error fetching route"
	MsgNoRoute        = "No route found"
	MsgUnresolvedPath = "Search both locations first"
)

// View errors.
var (
	// ErrSuperseded is returned when a newer request replaced this one.
	ErrSuperseded = errors.New("superseded by a newer request")
	// ErrUnresolved is returned when a route endpoint was never resolved by a search.
	ErrUnresolved = errors.New("route endpoints are not resolved")
)

// Level is the severity of a notice.
type Level string

// Notice levels.
const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notice is a user-visible notification.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier receives notices from a view.
type Notifier interface {
	Notify(n Notice)
}

// Geocoder resolves a free-text query to its best match.
type Geocoder interface {
	Search(ctx context.Context, query string) (geo.Place, error)
}

// Router computes a route between two waypoints.
type Router interface {
	Route(ctx context.Context, origin, destination geo.Coordinate) (routing.Route, error)
}

// slot tracks the generation of the latest request of one kind.
// It must be used under the owning view's lock.
type slot struct {
	cancel context.CancelFunc
	gen    uint64
	busy   bool
}

// begin starts a new generation and cancels the previous request.
func (s *slot) begin(parent context.Context) (context.Context, uint64) {
	s.supersede()

	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.busy = true

	return ctx, s.gen
}

// supersede invalidates any request in flight.
func (s *slot) supersede() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.busy = false
}

// finish reports whether gen is still current and releases it if so.
func (s *slot) finish(gen uint64) bool {
	if gen != s.gen {
		return false
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.busy = false

	return true
}

func geocodeNotice(err error) Notice {
	if errors.Is(err, geocode.ErrNotFound) {
		return Notice{Level: LevelInfo, Message: MsgNotFound}
	}

	return Notice{Level: LevelError, Message: MsgGeocodeFailed}
}

func routeNotice(err error) Notice {
	if errors.Is(err, routing.ErrNoRoute) {
		return Notice{Level: LevelInfo, Message: MsgNoRoute}
	}

	return Notice{Level: LevelError, Message: MsgRouteFailed}
}
