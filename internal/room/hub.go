// Package room carries realtime traffic between the agent and the participants
// of each room over WebSockets.
package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/coder/websocket"
)

// Envelope is the frame a participant receives for published data.
type Envelope struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// Hub tracks the WebSocket connection of every participant, per room.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]*websocket.Conn
	logger *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:  make(map[string]map[string]*websocket.Conn),
		logger: logger,
	}
}

// Register adds conn for participant, replacing an older connection of the same participant.
func (h *Hub) Register(room, participant string, conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[string]*websocket.Conn)
	}
	existing, replaced := h.rooms[room][participant]
	h.rooms[room][participant] = conn
	h.mu.Unlock()

	h.logger.Info("Participant connected", "room", room, "participant", participant)

	// Close waits for the peer's close frame, so it must not hold the hub lock.
	if replaced && existing != conn {
		go func() {
			_ = existing.Close(websocket.StatusNormalClosure, "participant replaced")
		}()
	}
}

// Unregister removes conn if it is still the participant's current connection.
// It reports whether the connection was removed.
func (h *Hub) Unregister(room, participant string, conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.rooms[room]
	if !ok {
		return false
	}
	if current, ok := conns[participant]; !ok || current != conn {
		return false
	}
	delete(conns, participant)
	if len(conns) == 0 {
		delete(h.rooms, room)
	}
	h.logger.Info("Participant disconnected", "room", room, "participant", participant)
	return true
}

// Conn returns the participant's current connection.
func (h *Hub) Conn(room, participant string) *websocket.Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[room][participant]
}

// Participants returns the sorted participants connected to room.
func (h *Hub) Participants(room string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.rooms[room]))
	for p := range h.rooms[room] {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Rooms returns the number of rooms with at least one connection.
func (h *Hub) Rooms() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// PublishData sends payload under topic to every participant of room. A room
// without participants is not an error.
func (h *Hub) PublishData(ctx context.Context, room, topic string, payload []byte) error {
	frame, err := json.Marshal(Envelope{Topic: topic, Payload: payload})
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", topic, err)
	}

	h.mu.RLock()
	targets := make(map[string]*websocket.Conn, len(h.rooms[room]))
	for p, c := range h.rooms[room] {
		targets[p] = c
	}
	h.mu.RUnlock()

	var errs []error
	for p, c := range targets {
		if err := c.Write(ctx, websocket.MessageText, frame); err != nil {
			errs = append(errs, fmt.Errorf("publish %s to %s: %w", topic, p, err))
		}
	}
	return errors.Join(errs...)
}

// Room returns a publisher bound to one room.
func (h *Hub) Room(room string) *Publisher {
	return &Publisher{hub: h, room: room}
}

// CloseRoom closes every connection of room.
func (h *Hub) CloseRoom(room string) {
	h.mu.Lock()
	conns := h.rooms[room]
	delete(h.rooms, room)
	h.mu.Unlock()

	for p, c := range conns {
		_ = c.Close(websocket.StatusNormalClosure, "room closed")
		h.logger.Info("Participant connection closed", "room", room, "participant", p)
	}
}

// Publisher publishes to a single room.
type Publisher struct {
	hub  *Hub
	room string
}

// PublishData sends payload under topic to the bound room.
func (p *Publisher) PublishData(ctx context.Context, topic string, payload []byte) error {
	return p.hub.PublishData(ctx, p.room, topic, payload)
}
