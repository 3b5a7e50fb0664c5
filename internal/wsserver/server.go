// Package wsserver implements the WebSocket capability: a fan-out server
// that accepts peer connections, tracks each peer's group subscriptions,
// and delivers binary-framed events either to all peers or to a
// group-filtered subset. It generalises the teacher's Hub/Client pattern
// (internal/websocket/hub.go) — org-scoped broadcast becomes group-scoped
// broadcast, and a blocked peer is silently dropped with a counter instead
// of being disconnected, matching the canonical behaviour this
// specification picks over the reference host's per-peer failure
// aggregation.
package wsserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sandhost/capahost/internal/capability"
	"github.com/sandhost/capahost/internal/logger"
)

// MaxConnections caps the number of simultaneously connected peers. Past
// this limit, new connections are rejected before the WebSocket handshake
// completes.
const MaxConnections = 1024

const sendBufferSize = 256

// Event is an inbound message from a peer, handed to the event handler for
// dispatch to a guest instance.
type Event struct {
	ConnectionID uint64
	Data         []byte
	Binary       bool
}

// EventHandler processes an inbound peer event. It is invoked on its own
// goroutine per message; slow handling only delays that one message.
type EventHandler func(Event)

type subscribeControlFrame struct {
	Type   string   `json:"type"`
	Groups []string `json:"groups"`
}

// Connection is one accepted peer.
type Connection struct {
	id   uint64
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	groups map[string]struct{}
}

func (c *Connection) hasGroup(group string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.groups[group]
	return ok
}

func (c *Connection) setGroups(groups []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groups = make(map[string]struct{}, len(groups))
	for _, g := range groups {
		c.groups[g] = struct{}{}
	}
}

// Server is the WebSocket fan-out server.
type Server struct {
	upgrader websocket.Upgrader
	onEvent  EventHandler

	mu          sync.RWMutex
	connections map[uint64]*Connection
	nextID      uint64

	dropped atomic.Uint64
}

// New creates a Server. onEvent is invoked for every inbound peer message
// that is not a subscribe control frame; it may be nil to discard events.
func New(onEvent EventHandler) *Server {
	return &Server{
		upgrader:    websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
		onEvent:     onEvent,
		connections: make(map[uint64]*Connection),
	}
}

// Handler returns the HTTP handler that performs the WebSocket handshake.
// Connections beyond MaxConnections are rejected with 503 before the
// handshake is attempted.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		full := len(s.connections) >= MaxConnections
		s.mu.RUnlock()
		if full {
			http.Error(w, "max connections reached", http.StatusServiceUnavailable)
			return
		}

		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.WebSocket().Warn().Err(err).Msg("handshake failed")
			return
		}
		s.accept(conn)
	})
}

func (s *Server) accept(wsConn *websocket.Conn) *Connection {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	conn := &Connection{id: id, conn: wsConn, send: make(chan []byte, sendBufferSize), groups: make(map[string]struct{})}
	s.connections[id] = conn
	total := len(s.connections)
	s.mu.Unlock()

	logger.WebSocket().Info().Uint64("connection_id", id).Int("total", total).Msg("peer connected")

	go s.writePump(conn)
	go s.readPump(conn)
	return conn
}

func (s *Server) remove(conn *Connection) {
	s.mu.Lock()
	if _, ok := s.connections[conn.id]; ok {
		delete(s.connections, conn.id)
	}
	s.mu.Unlock()
	close(conn.send)
}

func (s *Server) writePump(conn *Connection) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		conn.conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.send:
			conn.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				conn.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			conn.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) readPump(conn *Connection) {
	defer func() {
		s.remove(conn)
		conn.conn.Close()
		logger.WebSocket().Info().Uint64("connection_id", conn.id).Msg("peer disconnected")
	}()

	conn.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.conn.SetPongHandler(func(string) error {
		conn.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		msgType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.WebSocket().Warn().Err(err).Uint64("connection_id", conn.id).Msg("read error")
			}
			return
		}
		conn.conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		if msgType == websocket.TextMessage {
			var frame subscribeControlFrame
			if err := json.Unmarshal(data, &frame); err == nil && frame.Type == "subscribe" {
				conn.setGroups(frame.Groups)
				continue
			}
		}

		if s.onEvent != nil {
			go s.onEvent(Event{ConnectionID: conn.id, Data: data, Binary: msgType == websocket.BinaryMessage})
		}
	}
}

// Send delivers payload to peers subscribed to any of groups (or every
// connected peer when groups is empty), binary-framed. Peers whose send
// buffer is full are silently skipped and counted rather than blocking the
// caller or being disconnected.
func (s *Server) Send(payload []byte, groups []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, conn := range s.connections {
		if len(groups) > 0 && !anyGroupMatches(conn, groups) {
			continue
		}
		select {
		case conn.send <- payload:
		default:
			n := s.dropped.Add(1)
			logger.WebSocket().Warn().Uint64("connection_id", conn.id).Uint64("dropped_total", n).Msg("send buffer full, dropping")
		}
	}
}

func anyGroupMatches(conn *Connection, groups []string) bool {
	for _, g := range groups {
		if conn.hasGroup(g) {
			return true
		}
	}
	return false
}

// ConnectionCount returns the number of currently connected peers.
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}

// DroppedCount returns the cumulative number of sends dropped due to a full
// peer send buffer.
func (s *Server) DroppedCount() uint64 {
	return s.dropped.Load()
}

// ErrMaxConnections is returned by callers that need to surface the
// capacity error through the capability taxonomy (the HTTP handler itself
// replies with a plain 503, matching the reference host's hard reject).
var ErrMaxConnections = capability.New(capability.KindMaxConnections, "maximum connections reached")
