package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sequoia-server/internal/util"
	"sequoia-server/internal/widget"
)

const (
	eventsWriteWait  = 10 * time.Second
	eventsPongWait   = 60 * time.Second
	eventsPingPeriod = (eventsPongWait * 9) / 10
	eventsBuffer     = 16
)

// eventHub fans widget events out to websocket listeners. It implements
// widget.Emitter. Each listener follows exactly one instance, named by
// ?instance=; the unguessable instance ID is what scopes events to the page
// that rendered the widget.
type eventHub struct {
	upgrader websocket.Upgrader

	mu        sync.RWMutex
	listeners map[*eventListener]struct{}
}

type eventListener struct {
	instance string
	send     chan []byte
}

func newEventHub() *eventHub {
	return &eventHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Widgets are embedded on third-party sites.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		listeners: make(map[*eventListener]struct{}),
	}
}

// Emit never blocks: a listener whose buffer is full misses the event.
func (h *eventHub) Emit(e widget.Event) {
	frame, err := json.Marshal(e)
	if err != nil {
		slog.Error("failed to encode widget event", "type", e.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for l := range h.listeners {
		if l.instance == "" || l.instance != e.Instance {
			continue
		}
		select {
		case l.send <- frame:
		default:
			eventsDroppedTotal.Add(1)
		}
	}
}

func (h *eventHub) register(l *eventListener) {
	h.mu.Lock()
	h.listeners[l] = struct{}{}
	h.mu.Unlock()
	eventsListenersActive.Add(1)
}

func (h *eventHub) unregister(l *eventListener) {
	h.mu.Lock()
	_, ok := h.listeners[l]
	delete(h.listeners, l)
	h.mu.Unlock()
	if ok {
		close(l.send)
		eventsListenersActive.Add(-1)
	}
}

// ServeHTTP upgrades the request and streams events until the peer leaves.
func (h *eventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	instance := r.URL.Query().Get("instance")
	if instance == "" {
		util.RespondBadRequest(w, "Missing instance parameter")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		LoggerFromContext(r.Context()).Debug("events upgrade failed", "error", err)
		return
	}

	l := &eventListener{
		instance: instance,
		send:     make(chan []byte, eventsBuffer),
	}
	h.register(l)

	go h.writeLoop(conn, l)
	h.readLoop(conn, l)
}

// readLoop discards client frames; it exists to notice disconnects and pongs.
func (h *eventHub) readLoop(conn *websocket.Conn, l *eventListener) {
	defer h.unregister(l)

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(eventsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(eventsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *eventHub) writeLoop(conn *websocket.Conn, l *eventListener) {
	ticker := time.NewTicker(eventsPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case frame, ok := <-l.send:
			conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// closeAll disconnects every listener; used on shutdown.
func (h *eventHub) closeAll() {
	h.mu.RLock()
	listeners := make([]*eventListener, 0, len(h.listeners))
	for l := range h.listeners {
		listeners = append(listeners, l)
	}
	h.mu.RUnlock()
	for _, l := range listeners {
		h.unregister(l)
	}
}
