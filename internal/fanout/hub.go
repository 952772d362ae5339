package fanout

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/bus"
)

// envelope is the wire format pushed to dashboard clients.
type envelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Hub drains the telemetry queue and broadcasts every event to the
// connected websocket clients. A slow client is disconnected rather
// than buffered.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

// Serve exposes the websocket endpoint at /ws on addr.
func (h *Hub) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logs.Warnf("fanout server stopped: %+v", err)
		}
	}()
	return srv
}

// Run consumes the queue until the context is done.
func (h *Hub) Run(ctx context.Context, queue *bus.Queue) {
	queue.Run(ctx, func(e bus.Event) {
		h.broadcast(e)
	})
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logs.Warnf("websocket upgrade failed: %+v", err)
		return
	}
	send := make(chan []byte, 256)

	h.mu.Lock()
	h.clients[conn] = send
	h.mu.Unlock()

	go h.writeLoop(r.Context(), conn, send)
}

func (h *Hub) writeLoop(ctx context.Context, conn *websocket.Conn, send chan []byte) {
	defer h.detach(conn)
	for {
		select {
		case <-sys.Shutdown():
			return
		case <-ctx.Done():
			return
		case msg, ok := <-send:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

func (h *Hub) detach(conn *websocket.Conn) {
	h.mu.Lock()
	if send, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(send)
	}
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *Hub) broadcast(e bus.Event) {
	msg, err := json.Marshal(envelope{Kind: e.Kind, Data: e.Data})
	if err != nil {
		return
	}

	h.mu.Lock()
	var stale []*websocket.Conn
	for conn, send := range h.clients {
		select {
		case send <- msg:
		default:
			stale = append(stale, conn)
		}
	}
	h.mu.Unlock()

	for _, conn := range stale {
		h.detach(conn)
	}
}
