package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/woozymasta/geomap/internal/geo"
	"github.com/woozymasta/geomap/internal/mapview"
	"github.com/woozymasta/geomap/internal/session"

	"github.com/rs/zerolog/log"
)

const maxBodySize = 4 << 10

var (
	errWrongKind   = errors.New("action not supported by this view")
	errUnknownPath = errors.New("unknown api path")
)

type createRequest struct {
	Kind session.Kind `json:"kind"`
}

// textRequest carries the text of an input field. Text is optional for searches.
// The coordinates action takes the two field texts instead.
type textRequest struct {
	Text      *string `json:"text"`
	Latitude  *string `json:"latitude"`
	Longitude *string `json:"longitude"`
}

type pointActionFunc func(ctx context.Context, v *mapview.PointView, req textRequest) error

type routeActionFunc func(ctx context.Context, v *mapview.RouteView, req textRequest) error

// HandleCreateView mounts a new view.
func (s *ServerContext) HandleCreateView(w http.ResponseWriter, r *http.Request) {
	req := createRequest{Kind: session.KindPoint}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	v, err := s.Views.Create(req.Kind)
	switch {
	case errors.Is(err, session.ErrKind):
		writeError(w, http.StatusBadRequest, err)
		return
	case errors.Is(err, session.ErrLimit):
		writeError(w, http.StatusServiceUnavailable, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusCreated, v.State())
}

// HandleGetView returns the current view state.
func (s *ServerContext) HandleGetView(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, v.State())
}

// HandleDeleteView unmounts a view.
func (s *ServerContext) HandleDeleteView(w http.ResponseWriter, r *http.Request) {
	if err := s.Views.Delete(r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleAPINotFound answers unknown api paths instead of the page.
func (s *ServerContext) HandleAPINotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, errUnknownPath)
}

func (s *ServerContext) pointAction(fn pointActionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, req, ok := s.prepare(w, r)
		if !ok {
			return
		}
		if v.Point == nil {
			writeError(w, http.StatusConflict, errWrongKind)
			return
		}

		s.finish(w, v, fn(detach(r), v.Point, req))
	}
}

func (s *ServerContext) routeAction(fn routeActionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, req, ok := s.prepare(w, r)
		if !ok {
			return
		}
		if v.Route == nil {
			writeError(w, http.StatusConflict, errWrongKind)
			return
		}

		s.finish(w, v, fn(detach(r), v.Route, req))
	}
}

func (s *ServerContext) lookup(w http.ResponseWriter, r *http.Request) (*session.View, bool) {
	v, err := s.Views.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return nil, false
	}

	return v, true
}

func (s *ServerContext) prepare(w http.ResponseWriter, r *http.Request) (*session.View, textRequest, bool) {
	var req textRequest

	v, ok := s.lookup(w, r)
	if !ok {
		return nil, req, false
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil, req, false
	}

	return v, req, true
}

// finish writes the view state. Field validation errors answer 422, lookup
// failures were already turned into notices and answer 200.
func (s *ServerContext) finish(w http.ResponseWriter, v *session.View, err error) {
	var fe *geo.FieldError
	if errors.As(err, &fe) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: err.Error(),
			Field: string(fe.Field),
			State: v.State(),
		})
		return
	}

	if err != nil && !errors.Is(err, mapview.ErrSuperseded) {
		log.Debug().Err(err).Str("id", v.ID).Msg("View action failed")
	}

	writeJSON(w, http.StatusOK, v.State())
}

// detach keeps a lookup running when the page goes away mid request.
// The geocoder and router timeouts still bound it.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}

	return nil
}

func setQuery(_ context.Context, v *mapview.PointView, req textRequest) error {
	if req.Text != nil {
		v.SetQuery(*req.Text)
	}
	return nil
}

func search(ctx context.Context, v *mapview.PointView, req textRequest) error {
	if req.Text != nil {
		v.SetQuery(*req.Text)
	}
	return v.Search(ctx)
}

func setLatitude(_ context.Context, v *mapview.PointView, req textRequest) error {
	return v.SetLatitudeText(text(req))
}

func setLongitude(_ context.Context, v *mapview.PointView, req textRequest) error {
	return v.SetLongitudeText(text(req))
}

func submitCoordinates(_ context.Context, v *mapview.PointView, req textRequest) error {
	if req.Latitude == nil && req.Longitude == nil {
		return v.SubmitCoordinates()
	}

	st := v.State()
	lat, lon := st.Latitude.Text, st.Longitude.Text
	if req.Latitude != nil {
		lat = *req.Latitude
	}
	if req.Longitude != nil {
		lon = *req.Longitude
	}

	return v.SubmitCoordinateText(lat, lon)
}

func setStartQuery(_ context.Context, v *mapview.RouteView, req textRequest) error {
	v.SetStartQuery(text(req))
	return nil
}

func searchStart(ctx context.Context, v *mapview.RouteView, req textRequest) error {
	if req.Text != nil {
		v.SetStartQuery(*req.Text)
	}
	return v.SearchStart(ctx)
}

func setDestinationQuery(_ context.Context, v *mapview.RouteView, req textRequest) error {
	v.SetDestinationQuery(text(req))
	return nil
}

func searchDestination(ctx context.Context, v *mapview.RouteView, req textRequest) error {
	if req.Text != nil {
		v.SetDestinationQuery(*req.Text)
	}
	return v.SearchDestination(ctx)
}

func swap(_ context.Context, v *mapview.RouteView, _ textRequest) error {
	v.Swap()
	return nil
}

func computeRoute(ctx context.Context, v *mapview.RouteView, _ textRequest) error {
	return v.ComputeRoute(ctx)
}

func text(req textRequest) string {
	if req.Text == nil {
		return ""
	}
	return *req.Text
}
