// Package control serves live parameter editing over a websocket. Clients
// send partial parameter updates and receive the accepted parameters and
// periodic window stats.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/slime/systems"
	"github.com/pthm-cable/slime/telemetry"
)

// Message types.
const (
	TypeGet    = "get"    // client: request current params
	TypeSet    = "set"    // client: apply a params patch
	TypeParams = "params" // server: params in effect
	TypeStats  = "stats"  // server: a flushed stats window
	TypeError  = "error"  // server: request rejected
)

// writeTimeout bounds every write so a stalled client cannot hold the hub
// lock, and through BroadcastStats the frame loop, for long.
const writeTimeout = 2 * time.Second

// Message is the JSON envelope in both directions.
type Message struct {
	Type   string                 `json:"type"`
	Params *systems.Params        `json:"params,omitempty"`
	Patch  *Patch                 `json:"patch,omitempty"`
	Stats  *telemetry.WindowStats `json:"stats,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

// Patch is a partial parameter update. Absent fields keep their value.
type Patch struct {
	MoveSpeed      *float32 `json:"move_speed,omitempty"`
	FadeSpeed      *float32 `json:"fade_speed,omitempty"`
	DiffuseSpeed   *float32 `json:"diffuse_speed,omitempty"`
	SensorSize     *int     `json:"sensor_size,omitempty"`
	SensorDistance *float32 `json:"sensor_distance,omitempty"`
	TurningSpeed   *float32 `json:"turning_speed,omitempty"`
}

// Apply copies the set fields onto p.
func (pt *Patch) Apply(p *systems.Params) {
	if pt.MoveSpeed != nil {
		p.MoveSpeed = *pt.MoveSpeed
	}
	if pt.FadeSpeed != nil {
		p.FadeSpeed = *pt.FadeSpeed
	}
	if pt.DiffuseSpeed != nil {
		p.DiffuseSpeed = *pt.DiffuseSpeed
	}
	if pt.SensorSize != nil {
		p.SensorSize = *pt.SensorSize
	}
	if pt.SensorDistance != nil {
		p.SensorDistance = *pt.SensorDistance
	}
	if pt.TurningSpeed != nil {
		p.TurningSpeed = *pt.TurningSpeed
	}
}

// Hub tracks connected control clients and applies their edits to a
// parameter store.
type Hub struct {
	store *systems.ParamStore

	// mu guards clients and serializes all writes to them
	mu           sync.Mutex
	clients      map[*websocket.Conn]struct{}
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
}

// NewHub creates a hub editing store.
func NewHub(store *systems.ParamStore) *Hub {
	return &Hub{
		store:        store,
		clients:      make(map[*websocket.Conn]struct{}),
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *Hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = struct{}{}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
	conn.Close()
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// send writes msg to one client.
func (h *Hub) send(conn *websocket.Conn, msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		slog.Warn("control write failed", "remote", conn.RemoteAddr().String(), "error", err)
	}
}

// broadcast writes msg to every client, dropping any that fail or miss
// the write deadline.
func (h *Hub) broadcast(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal control message", "type", msg.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			slog.Warn("control write failed", "remote", conn.RemoteAddr().String(), "error", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// BroadcastStats pushes a stats window to every client. It matches the
// game's stats callback signature.
func (h *Hub) BroadcastStats(stats telemetry.WindowStats) {
	h.broadcast(Message{Type: TypeStats, Stats: &stats})
}

// BroadcastParams pushes the params in effect to every client.
func (h *Hub) BroadcastParams() {
	p := h.store.Params()
	h.broadcast(Message{Type: TypeParams, Params: &p})
}

// Handler upgrades requests to websocket control sessions.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "error", err)
			return
		}
		h.add(conn)
		defer h.remove(conn)

		// Send the current params immediately
		p := h.store.Params()
		h.send(conn, Message{Type: TypeParams, Params: &p})

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					slog.Debug("control stream read error", "error", err)
				}
				return
			}
			h.handle(conn, data)
		}
	}
}

// handle processes one client message.
func (h *Hub) handle(conn *websocket.Conn, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		h.send(conn, Message{Type: TypeError, Error: fmt.Sprintf("decoding message: %v", err)})
		return
	}

	switch msg.Type {
	case TypeGet:
		p := h.store.Params()
		h.send(conn, Message{Type: TypeParams, Params: &p})

	case TypeSet:
		if msg.Patch == nil {
			h.send(conn, Message{Type: TypeError, Error: "set without patch"})
			return
		}
		p, err := h.store.Update(msg.Patch.Apply)
		if err != nil {
			slog.Warn("remote parameter update rejected", "error", err)
			h.send(conn, Message{Type: TypeError, Error: err.Error(), Params: &p})
			return
		}
		slog.Info("remote parameter update", "params", p)
		h.broadcast(Message{Type: TypeParams, Params: &p})

	default:
		h.send(conn, Message{Type: TypeError, Error: fmt.Sprintf("unknown message type %q", msg.Type)})
	}
}

// Serve runs the control endpoint on addr at /ws/control until ctx ends.
func (h *Hub) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws/control", h.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("control server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("control server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		h.closeAll()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// closeAll disconnects every client; hijacked connections are not closed
// by http.Server.Shutdown.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
		delete(h.clients, conn)
	}
}
