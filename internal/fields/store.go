package fields

import (
	"context"
	"sort"
	"sync"

	"field-geo/internal/enrich"
	"field-geo/internal/geo"
)

// Store persists field records. Implementations return ErrNotFound for
// unknown ids.
type Store interface {
	Save(ctx context.Context, r Record) error
	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context, limit int) ([]Record, error)
	UpdateSideLengths(ctx context.Context, id string, sides []geo.SideLength, areaHectares float64) error
	SetEnrichment(ctx context.Context, id string, res []enrich.Result) error
}

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[string]Record
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{recs: make(map[string]Record)} }

func (m *MemoryStore) Save(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[r.ID] = r
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.recs[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

// List returns the newest records first.
func (m *MemoryStore) List(_ context.Context, limit int) ([]Record, error) {
	m.mu.RLock()
	out := make([]Record, 0, len(m.recs))
	for _, r := range m.recs {
		out = append(out, r)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) UpdateSideLengths(_ context.Context, id string, sides []geo.SideLength, area float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recs[id]
	if !ok {
		return ErrNotFound
	}
	r.SideLengths = sides
	r.AreaHectares = area
	m.recs[id] = r
	return nil
}

func (m *MemoryStore) SetEnrichment(_ context.Context, id string, res []enrich.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recs[id]
	if !ok {
		return ErrNotFound
	}
	r.Enrichment = res
	m.recs[id] = r
	return nil
}
