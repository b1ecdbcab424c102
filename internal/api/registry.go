package api

import (
	"sync"
	"time"

	"field-geo/internal/drawing"
	"field-geo/internal/geo"
	"field-geo/internal/locate"
	"field-geo/internal/metrics"
	"field-geo/internal/projector"
	"field-geo/internal/region"
)

// session is one drawing surface. mu guards every field below it.
type session struct {
	id      string
	created time.Time
	hub     *hub

	mu     sync.Mutex
	view   *projector.Viewport
	draw   *drawing.Session
	hl     *region.Highlighter
	rec    *region.Recorder
	origin *locate.Origin
	fields map[int]string // shape index -> field record id
	seen   time.Time
}

func newSession(ix *region.Index, cfg drawing.Config) *session {
	view := projector.NewViewport()
	ds := drawing.NewSession(view, cfg)
	view.OnChange(ds.InvalidatePixels)
	rec := &region.Recorder{}
	return &session{
		id:      geo.NewID(),
		created: time.Now(),
		hub:     newHub(),
		view:    view,
		draw:    ds,
		hl:      region.NewHighlighter(ix, rec),
		rec:     rec,
		fields:  make(map[int]string),
		seen:    time.Now(),
	}
}

// flush drains queued highlight commands and pushes them, together with the
// current state, to event subscribers. Callers hold mu.
func (ss *session) flush() []region.Command {
	cmds := ss.rec.Drain()
	if len(cmds) > 0 {
		ss.hub.publish(event{Type: "highlight", Commands: cmds})
	}
	st := ss.draw.State()
	ss.hub.publish(event{Type: "state", State: &st})
	return cmds
}

type viewState struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Zoom   float64 `json:"zoom"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Ready  bool    `json:"ready"`
}

func (ss *session) viewState() viewState {
	c := ss.view.Center()
	w, h := ss.view.Size()
	return viewState{Lat: c.Lat, Lng: c.Lng, Zoom: ss.view.Zoom(), Width: w, Height: h, Ready: ss.view.Ready()}
}

type registry struct {
	mu sync.RWMutex
	m  map[string]*session
}

func newRegistry() *registry { return &registry{m: make(map[string]*session)} }

func (g *registry) add(ss *session) {
	g.mu.Lock()
	g.m[ss.id] = ss
	g.mu.Unlock()
	metrics.SessionsActive.Inc()
}

func (g *registry) get(id string) (*session, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ss, ok := g.m[id]
	if !ok {
		return nil, ErrNoSession
	}
	return ss, nil
}

func (g *registry) remove(id string) (*session, bool) {
	g.mu.Lock()
	ss, ok := g.m[id]
	delete(g.m, id)
	g.mu.Unlock()
	if ok {
		metrics.SessionsActive.Dec()
	}
	return ss, ok
}

func (g *registry) len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.m)
}

// sweep removes sessions untouched since before cutoff.
func (g *registry) sweep(cutoff time.Time) []*session {
	g.mu.Lock()
	var out []*session
	for id, ss := range g.m {
		ss.mu.Lock()
		idle := ss.seen.Before(cutoff)
		ss.mu.Unlock()
		if idle {
			delete(g.m, id)
			out = append(out, ss)
		}
	}
	g.mu.Unlock()
	metrics.SessionsActive.Sub(float64(len(out)))
	return out
}
