package fields

import (
	"context"
	"errors"
	"sync"
	"time"

	"field-geo/internal/enrich"
	"field-geo/internal/geo"
	"field-geo/internal/geometry"
	"field-geo/internal/logger"
	"field-geo/internal/metrics"
)

// Enricher fetches auxiliary data for a point. It must not fail; missing
// data comes back as placeholders.
type Enricher interface {
	Collect(ctx context.Context, lat, lng float64) []enrich.Result
}

// Service completes fields. Geometry work is synchronous; persistence
// failures are logged and enrichment runs in the background, so neither can
// block a shape from closing.
type Service struct {
	builder  *Builder
	store    Store
	enricher Enricher
	timeout  time.Duration

	mu       sync.Mutex
	inflight map[string]map[string]context.CancelFunc // session -> record -> cancel
	wg       sync.WaitGroup
}

// NewService wires the collaborators. A nil store falls back to memory, a
// nil enricher disables enrichment. timeout bounds one enrichment round.
func NewService(b *Builder, st Store, en Enricher, timeout time.Duration) *Service {
	if st == nil {
		st = NewMemoryStore()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{builder: b, store: st, enricher: en, timeout: timeout, inflight: make(map[string]map[string]context.CancelFunc)}
}

// Complete builds and stores the record for a closed polygon and starts
// enrichment. The returned record carries no enrichment yet.
func (s *Service) Complete(ctx context.Context, sessionID string, poly geo.Polygon) Record {
	rec := s.builder.Build(poly)
	rec.SessionID = sessionID
	metrics.ShapesClosedTotal.Inc()
	if err := s.store.Save(ctx, rec); err != nil {
		metrics.PersistFailTotal.Inc()
		logger.L().Warn("field_persist_fail", "id", rec.ID, "err", err)
	}
	logger.L().Info("field_completed", "id", rec.ID, "session", sessionID, "vertices", len(rec.Vertices), "area_ha", rec.AreaHectares, "region", rec.RegionLabel())
	s.startEnrichment(sessionID, rec)
	return rec
}

func (s *Service) startEnrichment(sessionID string, rec Record) {
	if s.enricher == nil {
		return
	}
	c, ok := geometry.Centroid(rec.Vertices)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	s.mu.Lock()
	if s.inflight[sessionID] == nil {
		s.inflight[sessionID] = make(map[string]context.CancelFunc)
	}
	s.inflight[sessionID][rec.ID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.forget(sessionID, rec.ID)
		defer cancel()
		res := s.enricher.Collect(ctx, c.Lat, c.Lng)
		if errors.Is(ctx.Err(), context.Canceled) {
			logger.L().Debug("field_enrich_discarded", "id", rec.ID, "session", sessionID)
			return
		}
		if err := s.store.SetEnrichment(context.Background(), rec.ID, res); err != nil {
			logger.L().Warn("field_enrich_store_fail", "id", rec.ID, "err", err)
			return
		}
		logger.L().Debug("field_enriched", "id", rec.ID, "sources", len(res))
	}()
}

func (s *Service) forget(sessionID, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m := s.inflight[sessionID]; m != nil {
		delete(m, id)
		if len(m) == 0 {
			delete(s.inflight, sessionID)
		}
	}
}

// Discard cancels the in-flight enrichment of a session, e.g. when the user
// clears the drawing. Results that arrive afterwards are dropped.
func (s *Service) Discard(sessionID string) int {
	s.mu.Lock()
	m := s.inflight[sessionID]
	delete(s.inflight, sessionID)
	s.mu.Unlock()
	for _, cancel := range m {
		cancel()
	}
	return len(m)
}

// Pending counts enrichment rounds still running for a session.
func (s *Service) Pending(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight[sessionID])
}

// Wait blocks until all enrichment goroutines have returned.
func (s *Service) Wait() { s.wg.Wait() }

// UpdateSideLengths applies an operator override and returns the updated
// record.
func (s *Service) UpdateSideLengths(ctx context.Context, id string, sides []geo.SideLength) (Record, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	rec = rec.WithSideLengths(sides)
	if err := s.store.UpdateSideLengths(ctx, id, rec.SideLengths, rec.AreaHectares); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id string) (Record, error) { return s.store.Get(ctx, id) }

func (s *Service) List(ctx context.Context, limit int) ([]Record, error) {
	return s.store.List(ctx, limit)
}
