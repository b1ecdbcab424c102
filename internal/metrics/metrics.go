package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fieldgeo_request_duration_ms",
		Help:    "HTTP request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"route"})
	ClicksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldgeo_clicks_total",
		Help: "Pointer clicks by resulting transition",
	}, []string{"action"})
	ShapesClosedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fieldgeo_shapes_closed_total",
		Help: "Total closed field boundaries",
	})
	DegenerateAreasTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fieldgeo_degenerate_areas_total",
		Help: "Area computations whose side lengths could not form a polygon",
	})
	RegionLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldgeo_region_lookups_total",
		Help: "Region containment lookups by result",
	}, []string{"result"})
	RedisHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fieldgeo_redis_hits_total",
		Help: "Total redis cache hits",
	})
	RedisMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fieldgeo_redis_misses_total",
		Help: "Total redis cache misses",
	})
	PersistFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fieldgeo_persist_fail_total",
		Help: "Field records that could not be written to the store",
	})
	EnrichRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldgeo_enrich_requests_total",
		Help: "Enrichment source queries",
	}, []string{"source"})
	EnrichFallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldgeo_enrich_fallback_total",
		Help: "Enrichment answers replaced by placeholder values",
	}, []string{"source", "reason"})
	EnrichDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fieldgeo_enrich_duration_ms",
		Help:    "Enrichment query duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 2000},
	}, []string{"source"})
	EnrichHeartbeatTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldgeo_enrich_heartbeat_total",
		Help: "Enrichment source heartbeats by status",
	}, []string{"source", "status"})
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fieldgeo_sessions_active",
		Help: "Open drawing sessions",
	})
)

func init() {
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(ClicksTotal)
	prometheus.MustRegister(ShapesClosedTotal)
	prometheus.MustRegister(DegenerateAreasTotal)
	prometheus.MustRegister(RegionLookupsTotal)
	prometheus.MustRegister(RedisHitsTotal)
	prometheus.MustRegister(RedisMissesTotal)
	prometheus.MustRegister(PersistFailTotal)
	prometheus.MustRegister(EnrichRequestsTotal)
	prometheus.MustRegister(EnrichFallbackTotal)
	prometheus.MustRegister(EnrichDurationMs)
	prometheus.MustRegister(EnrichHeartbeatTotal)
	prometheus.MustRegister(SessionsActive)
}

// Handler exposes the registered collectors for scraping at /metrics.
func Handler() http.Handler { return promhttp.Handler() }
