package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/obsidianstack/rcsclean/internal/api"
	"github.com/obsidianstack/rcsclean/internal/store"
)

const (
	writeTimeout = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10 // must stay below pongWait
	outboxSize   = 16

	// MaxReports caps the results carried by one message.
	MaxReports = 50

	// EventReports tags every message sent by the hub.
	EventReports = "reports"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 8192,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Message is the JSON envelope sent on connect and on every tick.
type Message struct {
	Event    string              `json:"event"`
	SeriesID string              `json:"series_id,omitempty"`
	Data     api.ReportsSnapshot `json:"data"`
}

// Hub pushes recent processing results to WebSocket subscribers. A
// subscriber may follow one series with ?series=<id>; without it every
// result is sent.
type Hub struct {
	store    *store.Store
	interval time.Duration

	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	conn     *websocket.Conn
	seriesID string
	outbox   chan []byte
}

// New creates a Hub that reads from st and broadcasts every interval.
func New(st *store.Store, interval time.Duration) *Hub {
	return &Hub{
		store:    st,
		interval: interval,
		subs:     make(map[*subscriber]struct{}),
	}
}

// Run broadcasts every interval until ctx is cancelled, then disconnects
// every subscriber.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.dropAll()
			return
		case <-t.C:
			h.broadcast()
		}
	}
}

// ServeHTTP upgrades the request and streams to it until either side closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s := &subscriber{
		conn:     conn,
		seriesID: r.URL.Query().Get("series"),
		outbox:   make(chan []byte, outboxSize),
	}
	if msg, err := h.encode(s.seriesID); err == nil {
		s.outbox <- msg
	}
	h.add(s)
	defer h.remove(s)

	slog.Debug("ws: subscriber connected", "remote", r.RemoteAddr, "series", s.seriesID)
	go s.write()
	s.read()
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) add(s *subscriber) {
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.outbox)
	}
	h.mu.Unlock()
}

// broadcast encodes one message per distinct series filter and queues it
// without blocking. Subscribers with a full outbox are dropped afterwards.
func (h *Hub) broadcast() {
	encoded := make(map[string][]byte)
	var lagging []*subscriber

	h.mu.RLock()
	for s := range h.subs {
		msg, ok := encoded[s.seriesID]
		if !ok {
			var err error
			if msg, err = h.encode(s.seriesID); err != nil {
				slog.Error("ws: encode message", "series", s.seriesID, "err", err)
				continue
			}
			encoded[s.seriesID] = msg
		}
		select {
		case s.outbox <- msg:
		default:
			lagging = append(lagging, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range lagging {
		slog.Warn("ws: dropping lagging subscriber", "series", s.seriesID)
		h.remove(s)
	}
}

func (h *Hub) encode(seriesID string) ([]byte, error) {
	return json.Marshal(Message{
		Event:    EventReports,
		SeriesID: seriesID,
		Data:     api.BuildSeriesReports(h.store, seriesID, MaxReports),
	})
}

func (h *Hub) dropAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		close(s.outbox)
		delete(h.subs, s)
	}
}

// write drains the outbox and keeps the connection alive with pings.
func (s *subscriber) write() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		s.conn.Close()
	}()

	for {
		var (
			kind    = websocket.PingMessage
			payload []byte
		)
		select {
		case msg, ok := <-s.outbox:
			if !ok {
				kind = websocket.CloseMessage
			} else {
				kind, payload = websocket.TextMessage, msg
			}
		case <-ping.C:
		}

		s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
		if err := s.conn.WriteMessage(kind, payload); err != nil || kind == websocket.CloseMessage {
			return
		}
	}
}

// read discards inbound frames so pongs and close frames get processed.
func (s *subscriber) read() {
	defer s.conn.Close()
	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
