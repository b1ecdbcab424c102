package enrich

import (
	"context"
	"errors"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"field-geo/internal/logger"
	"field-geo/internal/metrics"
)

type status struct {
	healthy bool
	last    time.Time
}

// Manager keeps the registered sources, their health and the heartbeat
// schedule. Safe for concurrent use.
//
// ENRICH_TIMEOUT_MS bounds each query (default 2000).
// ENRICH_HEARTBEAT_SPEC is a cron spec for health probes (default "@every 10s").
type Manager struct {
	mu      sync.RWMutex
	srcs    map[string]Source
	st      map[string]status
	timeout time.Duration
	hbSpec  string
}

func NewManager() *Manager {
	timeout := 2000
	if s := os.Getenv("ENRICH_TIMEOUT_MS"); s != "" {
		if n, e := strconv.Atoi(s); e == nil && n > 0 {
			timeout = n
		}
	}
	spec := os.Getenv("ENRICH_HEARTBEAT_SPEC")
	if spec == "" {
		spec = "@every 10s"
	}
	return &Manager{
		srcs:    make(map[string]Source),
		st:      make(map[string]status),
		timeout: time.Duration(timeout) * time.Millisecond,
		hbSpec:  spec,
	}
}

// SetTimeout overrides the per-source query timeout.
func (m *Manager) SetTimeout(d time.Duration) {
	m.mu.Lock()
	m.timeout = d
	m.mu.Unlock()
}

// Register adds a source. New sources start healthy so they are queried
// before the first heartbeat.
func (m *Manager) Register(s Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.srcs[s.Name()] = s
	m.st[s.Name()] = status{healthy: true, last: time.Now()}
	logger.L().Info("enrich_source_registered", "name", s.Name())
}

// Healthy reports the last known health of a source.
func (m *Manager) Healthy(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st[name].healthy
}

// Len returns the number of registered sources.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.srcs)
}

func (m *Manager) sources() []Source {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Source, 0, len(m.srcs))
	for _, s := range m.srcs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Start schedules heartbeats until ctx is cancelled.
func (m *Manager) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(m.hbSpec, func() { m.Heartbeat(ctx) }); err != nil {
		return err
	}
	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	logger.L().Info("enrich_heartbeat_started", "spec", m.hbSpec, "sources", m.Len())
	return nil
}

// Heartbeat probes every source once and updates its health. Probes run
// without holding the lock.
func (m *Manager) Heartbeat(ctx context.Context) {
	for _, s := range m.sources() {
		hctx, cancel := context.WithTimeout(ctx, m.queryTimeout())
		err := s.Heartbeat(hctx)
		cancel()
		m.mu.Lock()
		m.st[s.Name()] = status{healthy: err == nil, last: time.Now()}
		m.mu.Unlock()
		if err != nil {
			logger.L().Debug("enrich_heartbeat_fail", "name", s.Name(), "err", err)
			metrics.EnrichHeartbeatTotal.WithLabelValues(s.Name(), "fail").Inc()
		} else {
			logger.L().Debug("enrich_heartbeat_ok", "name", s.Name())
			metrics.EnrichHeartbeatTotal.WithLabelValues(s.Name(), "ok").Inc()
		}
	}
}

func (m *Manager) queryTimeout() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.timeout
}

// Collect asks every source for data at a point, concurrently and each under
// its own timeout. The result has one entry per source in name order; a source
// that is unhealthy, fails or is too slow contributes its placeholder. Collect
// never fails.
func (m *Manager) Collect(ctx context.Context, lat, lng float64) []Result {
	srcs := m.sources()
	out := make([]Result, len(srcs))
	timeout := m.queryTimeout()
	var g errgroup.Group
	for i, s := range srcs {
		if !m.Healthy(s.Name()) {
			out[i] = placeholder(s, ReasonUnhealthy)
			metrics.EnrichFallbackTotal.WithLabelValues(s.Name(), ReasonUnhealthy).Inc()
			continue
		}
		i, s := i, s
		g.Go(func() error {
			out[i] = m.query(ctx, s, lat, lng, timeout)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (m *Manager) query(ctx context.Context, s Source, lat, lng float64, timeout time.Duration) Result {
	qctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	t0 := time.Now()
	metrics.EnrichRequestsTotal.WithLabelValues(s.Name()).Inc()
	vals, err := s.Query(qctx, lat, lng)
	metrics.EnrichDurationMs.WithLabelValues(s.Name()).Observe(float64(time.Since(t0).Milliseconds()))
	if err == nil && qctx.Err() == nil {
		if vals == nil {
			vals = map[string]any{}
		}
		return Result{Source: s.Name(), Values: vals}
	}
	reason := ReasonError
	switch {
	case ctx.Err() != nil:
		reason = ReasonCanceled
	case errors.Is(qctx.Err(), context.DeadlineExceeded):
		reason = ReasonTimeout
	}
	metrics.EnrichFallbackTotal.WithLabelValues(s.Name(), reason).Inc()
	logger.L().Debug("enrich_fallback", "name", s.Name(), "reason", reason, "err", err)
	return placeholder(s, reason)
}
