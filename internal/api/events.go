package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/gorilla/websocket"

	"field-geo/internal/drawing"
	"field-geo/internal/logger"
	"field-geo/internal/region"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64
)

// event is one message on a session's event stream: highlight commands for
// the region layer or a fresh drawing snapshot.
type event struct {
	Type     string            `json:"type"`
	Commands []region.Command  `json:"commands,omitempty"`
	State    *drawing.Snapshot `json:"state,omitempty"`
}

type subscriber struct {
	conn *websocket.Conn
	send chan event
}

// hub fans events out to the websocket subscribers of one session. A
// subscriber that cannot keep up is dropped instead of blocking the session.
type hub struct {
	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

func newHub() *hub { return &hub{subs: make(map[*subscriber]struct{})} }

func (h *hub) add(sub *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.subs[sub] = struct{}{}
	return true
}

func (h *hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.send)
	}
}

func (h *hub) publish(ev event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.send <- ev:
		default:
			delete(h.subs, sub)
			close(sub.send)
			logger.L().Debug("event_subscriber_dropped")
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub.send)
	}
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// events upgrades to a websocket and streams the session's events, starting
// with the current state and highlights.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	ss, err := s.sessions.get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	// Register before upgrading so nothing published after the handshake
	// is missed; the buffer holds events until the writer starts.
	sub := &subscriber{send: make(chan event, sendBuffer)}
	ss.mu.Lock()
	st := ss.draw.State()
	sub.send <- event{Type: "state", State: &st}
	if ids := ss.hl.Highlighted(); len(ids) > 0 {
		sub.send <- event{Type: "highlight", Commands: []region.Command{{Op: "highlight", IDs: ids}}}
	}
	ok := ss.hub.add(sub)
	ss.mu.Unlock()
	if !ok {
		writeError(w, ErrNoSession)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ss.hub.remove(sub)
		logger.L().Debug("event_upgrade_fail", "session", ss.id, "err", err)
		return
	}
	sub.conn = conn
	logger.L().Debug("event_subscriber_added", "session", ss.id)
	go writePump(sub)
	go readPump(ss.hub, sub)
}

// readPump only watches for the client going away; inbound messages are
// discarded.
func readPump(h *hub, sub *subscriber) {
	defer func() {
		h.remove(sub)
		_ = sub.conn.Close()
	}()
	sub.conn.SetReadLimit(512)
	_ = sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.L().Debug("event_read_fail", "err", err)
			}
			return
		}
	}
}

func writePump(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = sub.conn.Close()
	}()
	for {
		select {
		case ev, ok := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sub.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
