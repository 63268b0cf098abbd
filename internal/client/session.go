package client

import (
	"time"

	"github.com/lox/holdem-client/internal/protocol"
)

// ConnState is the connection manager's lifecycle state
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateJoinPending
	StateJoined
	StateJoinFailed
	StateFailed
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateJoinPending:
		return "join_pending"
	case StateJoined:
		return "joined"
	case StateJoinFailed:
		return "join_failed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends the connection loop for good
func (s ConnState) Terminal() bool {
	return s == StateJoinFailed || s == StateFailed
}

// Session describes one open transport connection. It is created when the
// transport opens and discarded when it closes; nothing carries over to the
// next connection.
type Session struct {
	ID         string
	Started    time.Time
	RoomID     string
	PlayerName string
	// PlayerID is the server-assigned stable identifier of the local player,
	// set once from the join or game-start acknowledgement
	PlayerID string
}

type joinRequest struct {
	roomID     string
	playerName string
}

// session is the loop's private record of the live connection
type session struct {
	Session
	send     chan *protocol.Message
	joinSent bool
}
