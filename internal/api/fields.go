package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"field-geo/internal/fields"
	"field-geo/internal/geo"
	"field-geo/internal/geometry"
)

type areaRequest struct {
	Sides []float64 `json:"sides"`
}

type areaResponse struct {
	AreaHectares float64 `json:"areaHectares"`
	Degenerate   bool    `json:"degenerate"`
}

// area computes hectares from side lengths in metres. Degenerate input is
// not an error: the area is 0 and flagged.
func (s *Server) area(w http.ResponseWriter, r *http.Request) {
	var req areaRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	a, err := geometry.AreaFromSidesChecked(req.Sides)
	writeJSON(w, http.StatusOK, areaResponse{AreaHectares: a, Degenerate: errors.Is(err, geometry.ErrDegenerate)})
}

func listLimit(r *http.Request) (int, error) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return 100, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > 1000 {
		return 0, fmt.Errorf("%w: limit must be 1..1000", errBadRequest)
	}
	return n, nil
}

func (s *Server) listFields(w http.ResponseWriter, r *http.Request) {
	limit, err := listLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}
	recs, err := s.opt.Fields.List(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if recs == nil {
		recs = []fields.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) fieldsGeoJSON(w http.ResponseWriter, r *http.Request) {
	limit, err := listLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}
	recs, err := s.opt.Fields.List(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	b, err := fields.FeatureCollection(recs).MarshalJSON()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("content-type", "application/geo+json")
	w.Header().Set("cache-control", "no-store")
	_, _ = w.Write(b)
}

func (s *Server) getField(w http.ResponseWriter, r *http.Request) {
	rec, err := s.opt.Fields.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFieldError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type sidesRequest struct {
	SideLengths []geo.SideLength `json:"sideLengths"`
}

// updateSides applies an operator override of the side lengths. Vertices
// are kept as drawn.
func (s *Server) updateSides(w http.ResponseWriter, r *http.Request) {
	var req sidesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	for _, sl := range req.SideLengths {
		if sl.LengthMeters < 0 {
			writeError(w, fmt.Errorf("%w: negative side length", errBadRequest))
			return
		}
	}
	rec, err := s.opt.Fields.UpdateSideLengths(r.Context(), chi.URLParam(r, "id"), req.SideLengths)
	if err != nil {
		writeFieldError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeFieldError(w http.ResponseWriter, err error) {
	if errors.Is(err, fields.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
		return
	}
	writeError(w, err)
}
