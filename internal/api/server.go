// Package api exposes drawing sessions, region lookups and stored fields over
// HTTP. Each session owns its viewport, its drawing state and its highlight
// state; requests for one session are serialised by the session lock.
package api

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"field-geo/internal/drawing"
	"field-geo/internal/fields"
	"field-geo/internal/locate"
	"field-geo/internal/metrics"
	"field-geo/internal/region"
)

// Options wires the collaborators. Everything except Fields may be nil.
type Options struct {
	Regions        *region.Index
	Fields         *fields.Service
	Locator        *locate.Locator
	Redis          *redis.Client
	Territory      drawing.Territory
	TolerancePx    float64
	RegionCacheTTL time.Duration
	// DefaultView is the viewport centre for sessions whose client cannot
	// be located.
	DefaultLat, DefaultLng, DefaultZoom float64
}

type Server struct {
	opt      Options
	sessions *registry
}

func New(opt Options) *Server {
	if opt.Fields == nil {
		opt.Fields = fields.NewService(fields.NewBuilder(opt.Regions), nil, nil, 0)
	}
	if opt.RegionCacheTTL <= 0 {
		opt.RegionCacheTTL = time.Hour
	}
	if opt.DefaultZoom <= 0 {
		opt.DefaultZoom = 15
	}
	return &Server{opt: opt, sessions: newRegistry()}
}

// OptionsFromEnv reads SNAP_TOLERANCE_PX, REGION_CACHE_TTL_S and
// DEFAULT_VIEW (lat,lng,zoom) into o.
func OptionsFromEnv(o Options) Options {
	if s := os.Getenv("SNAP_TOLERANCE_PX"); s != "" {
		if v, e := strconv.ParseFloat(s, 64); e == nil && v > 0 {
			o.TolerancePx = v
		}
	}
	if s := os.Getenv("REGION_CACHE_TTL_S"); s != "" {
		if n, e := strconv.Atoi(s); e == nil && n > 0 {
			o.RegionCacheTTL = time.Duration(n) * time.Second
		}
	}
	if s := os.Getenv("DEFAULT_VIEW"); s != "" {
		parts := strings.Split(s, ",")
		if len(parts) == 3 {
			lat, e1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
			lng, e2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
			z, e3 := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
			if e1 == nil && e2 == nil && e3 == nil {
				o.DefaultLat, o.DefaultLng, o.DefaultZoom = lat, lng, z
			}
		}
	}
	return o
}

// Routes builds the API router. CORS_ORIGINS is a comma separated allow
// list, "*" when unset.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	origins := []string{"*"}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		origins = strings.Split(v, ",")
	}
	r.Use(cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", timed("session_create", s.createSession))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", timed("session_state", s.withSession(s.sessionState)))
			r.Delete("/", timed("session_delete", s.deleteSession))
			r.Put("/viewport", timed("session_viewport", s.withSession(s.setViewport)))
			r.Post("/pan", timed("session_pan", s.withSession(s.pan)))
			r.Post("/zoom", timed("session_zoom", s.withSession(s.zoom)))
			r.Post("/click", timed("session_click", s.withSession(s.click)))
			r.Post("/move", timed("session_move", s.withSession(s.move)))
			r.Post("/leave", timed("session_leave", s.withSession(s.leave)))
			r.Post("/clear", timed("session_clear", s.withSession(s.clear)))
			r.Delete("/shapes/{index}", timed("session_clear_shape", s.withSession(s.clearShape)))
			r.Get("/project", timed("session_project", s.withSession(s.project)))
			r.Get("/unproject", timed("session_unproject", s.withSession(s.unproject)))
			r.Get("/events", s.events)
		})
	})
	r.Get("/regions/lookup", timed("region_lookup", s.regionLookup))
	r.Post("/area", timed("area", s.area))
	r.Get("/fields", timed("fields_list", s.listFields))
	r.Get("/fields.geojson", timed("fields_geojson", s.fieldsGeoJSON))
	r.Get("/fields/{id}", timed("field_get", s.getField))
	r.Put("/fields/{id}/sides", timed("field_sides", s.updateSides))
	return r
}

func timed(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t0 := time.Now()
		h(w, r)
		metrics.RequestDurationMs.WithLabelValues(route).Observe(float64(time.Since(t0).Milliseconds()))
	}
}

// Sessions returns the number of open drawing sessions.
func (s *Server) Sessions() int { return s.sessions.len() }
