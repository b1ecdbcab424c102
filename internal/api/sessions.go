package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"

	"field-geo/internal/drawing"
	"field-geo/internal/fields"
	"field-geo/internal/geo"
	"field-geo/internal/locate"
	"field-geo/internal/logger"
	"field-geo/internal/metrics"
	"field-geo/internal/middleware"
	"field-geo/internal/region"
)

type sessionHandler func(r *http.Request, ss *session) (int, any, error)

// withSession resolves {id} and runs h under the session lock.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ss, err := s.sessions.get(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		ss.mu.Lock()
		ss.seen = time.Now()
		code, out, err := h(r, ss)
		ss.mu.Unlock()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, code, out)
	}
}

type viewRequest struct {
	Width  float64  `json:"width"`
	Height float64  `json:"height"`
	Lat    *float64 `json:"lat"`
	Lng    *float64 `json:"lng"`
	Zoom   *float64 `json:"zoom"`
}

type sessionResponse struct {
	ID          string           `json:"id"`
	View        viewState        `json:"view"`
	Origin      *locate.Origin   `json:"origin,omitempty"`
	State       drawing.Snapshot `json:"state"`
	Highlighted []string         `json:"highlighted"`
	Fields      map[int]string   `json:"fields"`
	Highlight   []region.Command `json:"highlight,omitempty"`
}

func (ss *session) response() sessionResponse {
	fs := make(map[int]string, len(ss.fields))
	for k, v := range ss.fields {
		fs[k] = v
	}
	return sessionResponse{
		ID:          ss.id,
		View:        ss.viewState(),
		Origin:      ss.origin,
		State:       ss.draw.State(),
		Highlighted: ss.hl.Highlighted(),
		Fields:      fs,
	}
}

// createSession opens a drawing surface. Without an explicit centre the view
// starts at the located client position, else at the configured default.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	ss := newSession(s.opt.Regions, drawing.Config{Territory: s.opt.Territory, TolerancePx: s.opt.TolerancePx})
	lat, lng, zoom := s.opt.DefaultLat, s.opt.DefaultLng, s.opt.DefaultZoom
	if o, ok := s.opt.Locator.Locate(middleware.ClientIP(r)); ok {
		ss.origin = &o
		if o.HasPoint {
			lat, lng = o.Point.Lat, o.Point.Lng
		}
	}
	if req.Lat != nil && req.Lng != nil {
		lat, lng = *req.Lat, *req.Lng
	}
	if req.Zoom != nil {
		zoom = *req.Zoom
	}
	ss.view.SetView(lat, lng, zoom)
	if req.Width > 0 && req.Height > 0 {
		ss.view.Resize(req.Width, req.Height)
	}
	s.sessions.add(ss)
	logger.L().Info("session_created", "id", ss.id, "lat", lat, "lng", lng, "zoom", zoom, "located", ss.origin != nil)
	writeJSON(w, http.StatusCreated, ss.response())
}

func (s *Server) sessionState(r *http.Request, ss *session) (int, any, error) {
	return http.StatusOK, ss.response(), nil
}

// deleteSession drops the session and any enrichment still running for it.
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	ss, ok := s.sessions.remove(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, ErrNoSession)
		return
	}
	s.closeSession(ss)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) closeSession(ss *session) {
	n := s.opt.Fields.Discard(ss.id)
	ss.hub.close()
	logger.L().Info("session_closed", "id", ss.id, "discarded_enrichment", n)
}

// SweepIdle closes sessions without requests for longer than maxIdle.
func (s *Server) SweepIdle(maxIdle time.Duration) int {
	gone := s.sessions.sweep(time.Now().Add(-maxIdle))
	for _, ss := range gone {
		s.closeSession(ss)
	}
	if len(gone) > 0 {
		logger.L().Info("session_sweep", "closed", len(gone), "open", s.sessions.len())
	}
	return len(gone)
}

func (s *Server) setViewport(r *http.Request, ss *session) (int, any, error) {
	var req viewRequest
	if err := decodeJSON(r, &req); err != nil {
		return 0, nil, err
	}
	if req.Width < 0 || req.Height < 0 {
		return 0, nil, fmt.Errorf("%w: negative size", errBadRequest)
	}
	ss.view.Resize(req.Width, req.Height)
	if req.Lat != nil || req.Lng != nil || req.Zoom != nil {
		c := ss.view.Center()
		lat, lng, zoom := c.Lat, c.Lng, ss.view.Zoom()
		if req.Lat != nil {
			lat = *req.Lat
		}
		if req.Lng != nil {
			lng = *req.Lng
		}
		if req.Zoom != nil {
			zoom = *req.Zoom
		}
		ss.view.SetView(lat, lng, zoom)
	}
	out := ss.response()
	out.Highlight = ss.flush()
	return http.StatusOK, out, nil
}

type panRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

func (s *Server) pan(r *http.Request, ss *session) (int, any, error) {
	var req panRequest
	if err := decodeJSON(r, &req); err != nil {
		return 0, nil, err
	}
	ss.view.PanBy(req.DX, req.DY)
	out := ss.response()
	out.Highlight = ss.flush()
	return http.StatusOK, out, nil
}

type zoomRequest struct {
	Zoom float64  `json:"zoom"`
	X    *float64 `json:"x"`
	Y    *float64 `json:"y"`
}

// zoom keeps the anchor pixel fixed when one is given.
func (s *Server) zoom(r *http.Request, ss *session) (int, any, error) {
	var req zoomRequest
	if err := decodeJSON(r, &req); err != nil {
		return 0, nil, err
	}
	if req.X != nil && req.Y != nil {
		ss.view.ZoomAround(geo.PixelPoint{X: *req.X, Y: *req.Y}, req.Zoom)
	} else {
		ss.view.ZoomTo(req.Zoom)
	}
	out := ss.response()
	out.Highlight = ss.flush()
	return http.StatusOK, out, nil
}

type pointerRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type clickResponse struct {
	drawing.Result
	Field     *fields.Record   `json:"field,omitempty"`
	State     drawing.Snapshot `json:"state"`
	Highlight []region.Command `json:"highlight,omitempty"`
}

// click feeds one pointer click to the drawing session. A closing click
// completes a field record and highlights the region it lies in. A click
// outside the territory is answered 200 with a warning and changes nothing.
func (s *Server) click(r *http.Request, ss *session) (int, any, error) {
	var req pointerRequest
	if err := decodeJSON(r, &req); err != nil {
		return 0, nil, err
	}
	res, err := ss.draw.Click(geo.PixelPoint{X: req.X, Y: req.Y})
	metrics.ClicksTotal.WithLabelValues(res.Action.String()).Inc()
	switch {
	case errors.Is(err, drawing.ErrProjectorNotReady):
		return http.StatusConflict, errorBody{Error: err.Error()}, nil
	case err != nil && !errors.Is(err, drawing.ErrOutOfBounds):
		return 0, nil, err
	}
	out := clickResponse{Result: res}
	if res.Action == drawing.Closed {
		rec := s.opt.Fields.Complete(r.Context(), ss.id, res.Shape)
		ss.fields[res.ShapeIndex] = rec.ID
		out.Field = &rec
		if rec.RegionID != nil {
			ss.hl.Highlight(*rec.RegionID)
		} else {
			ss.hl.ClearHighlight()
		}
	}
	out.State = ss.draw.State()
	out.Highlight = ss.flush()
	return http.StatusOK, out, nil
}

type moveResponse struct {
	Tracking   bool               `json:"tracking"`
	RubberBand *[2]geo.PixelPoint `json:"rubberBand,omitempty"`
}

func (s *Server) move(r *http.Request, ss *session) (int, any, error) {
	var req pointerRequest
	if err := decodeJSON(r, &req); err != nil {
		return 0, nil, err
	}
	out := moveResponse{Tracking: ss.draw.Move(geo.PixelPoint{X: req.X, Y: req.Y})}
	if from, to, ok := ss.draw.RubberBand(); ok {
		out.RubberBand = &[2]geo.PixelPoint{from, to}
	}
	if out.Tracking {
		ss.flush()
	}
	return http.StatusOK, out, nil
}

func (s *Server) leave(r *http.Request, ss *session) (int, any, error) {
	ss.draw.Leave()
	ss.flush()
	return http.StatusOK, ss.draw.State(), nil
}

type clearResponse struct {
	State     drawing.Snapshot `json:"state"`
	Discarded int              `json:"discardedEnrichment"`
	Highlight []region.Command `json:"highlight,omitempty"`
}

// clear wipes the drawing and cancels enrichment that has not landed yet.
// Stored field records are kept.
func (s *Server) clear(r *http.Request, ss *session) (int, any, error) {
	ss.draw.Clear()
	ss.hl.ClearHighlight()
	ss.fields = make(map[int]string)
	n := s.opt.Fields.Discard(ss.id)
	return http.StatusOK, clearResponse{State: ss.draw.State(), Discarded: n, Highlight: ss.flush()}, nil
}

type clearShapeResponse struct {
	Cleared bool             `json:"cleared"`
	State   drawing.Snapshot `json:"state"`
}

func (s *Server) clearShape(r *http.Request, ss *session) (int, any, error) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: shape index must be an integer", errBadRequest)
	}
	ok := ss.draw.ClearShape(i)
	if ok {
		delete(ss.fields, i)
		ss.flush()
	}
	return http.StatusOK, clearShapeResponse{Cleared: ok, State: ss.draw.State()}, nil
}

type projectResponse struct {
	Ready bool           `json:"ready"`
	Pixel geo.PixelPoint `json:"pixel"`
}

func (s *Server) project(r *http.Request, ss *session) (int, any, error) {
	v, err := queryFloats(r, "lat", "lng")
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, projectResponse{Ready: ss.view.Ready(), Pixel: ss.view.ToPixel(v[0], v[1])}, nil
}

type unprojectResponse struct {
	Ready bool         `json:"ready"`
	Point geo.GeoPoint `json:"point"`
}

func (s *Server) unproject(r *http.Request, ss *session) (int, any, error) {
	v, err := queryFloats(r, "x", "y")
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, unprojectResponse{Ready: ss.view.Ready(), Point: ss.view.ToGeo(v[0], v[1])}, nil
}
