// Package testserver runs a scriptable in-process game server for tests.
// It records every frame the client sends and lets tests push frames back
// or drop the connection to simulate transport loss.
package testserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdem-client/internal/protocol"
)

// Test constants
const (
	EventTimeout = 2 * time.Second
)

// Server is a websocket endpoint at /ws backed by httptest
type Server struct {
	t        testing.TB
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conn     *websocket.Conn
	writeMu  sync.Mutex
	connects int

	received  chan protocol.Message
	connected chan struct{}
	closeOnce sync.Once

	// upgrades wait on gate while it is non-nil
	gate chan struct{}
}

// New starts a server and registers its shutdown with t.Cleanup
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		t: t,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		received:  make(chan protocol.Message, 256),
		connected: make(chan struct{}, 16),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// URL returns the ws:// address of the endpoint
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws"
}

// Close drops any live connection and stops the listener
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.openGate()
		s.Drop()
		s.srv.Close()
	})
}

// Connections returns how many connections have been accepted
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects
}

// WaitConnected blocks until the next connection is accepted
func (s *Server) WaitConnected() {
	s.t.Helper()
	select {
	case <-s.connected:
	case <-time.After(EventTimeout):
		s.t.Fatalf("timed out waiting for a client connection")
	}
}

// Next returns the next frame the client sent
func (s *Server) Next() protocol.Message {
	s.t.Helper()
	select {
	case msg := <-s.received:
		return msg
	case <-time.After(EventTimeout):
		s.t.Fatalf("timed out waiting for a client message")
		return protocol.Message{}
	}
}

// Expect returns the next frame and fails unless it has the given type
func (s *Server) Expect(msgType protocol.MessageType) protocol.Message {
	s.t.Helper()
	msg := s.Next()
	require.Equal(s.t, msgType, msg.Type, "unexpected message type")
	return msg
}

// AssertNoMessage fails if the client sends anything within d
func (s *Server) AssertNoMessage(d time.Duration) {
	s.t.Helper()
	select {
	case msg := <-s.received:
		s.t.Fatalf("unexpected client message %s", msg.Type)
	case <-time.After(d):
	}
}

// Send pushes a typed frame to the connected client
func (s *Server) Send(msgType protocol.MessageType, data interface{}) {
	s.t.Helper()
	msg, err := protocol.NewMessage(msgType, data)
	require.NoError(s.t, err)

	payload, err := json.Marshal(msg)
	require.NoError(s.t, err)
	s.SendRaw(payload)
}

// SendRaw pushes bytes to the connected client unchanged
func (s *Server) SendRaw(payload []byte) {
	s.t.Helper()

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	require.NotNil(s.t, conn, "no client connected")

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	require.NoError(s.t, conn.WriteMessage(websocket.TextMessage, payload))
}

// Hold stalls every websocket handshake until the returned release func is
// called, so a client stays in its connecting state.
func (s *Server) Hold() (release func()) {
	s.mu.Lock()
	if s.gate == nil {
		s.gate = make(chan struct{})
	}
	s.mu.Unlock()
	return s.openGate
}

func (s *Server) openGate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gate != nil {
		close(s.gate)
		s.gate = nil
	}
}

// Drop closes the live connection without a close handshake
func (s *Server) Drop() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.conn = conn
	s.connects++
	s.mu.Unlock()

	select {
	case s.connected <- struct{}{}:
	default:
	}

	go s.readPump(conn)
}

func (s *Server) readPump(conn *websocket.Conn) {
	for {
		var msg protocol.Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		select {
		case s.received <- msg:
		default:
		}
	}
}
