// Package events defines the high-level events produced by the client and
// the dispatcher that delivers them to subscribers in arrival order.
package events

import (
	"github.com/lox/holdem-client/internal/state"
	"github.com/lox/holdem-client/internal/table"
)

// Event is one of the concrete event types below. Consumers type-switch on it.
type Event interface {
	Name() string
	isEvent()
}

// Snapshot pairs a decoded game state with the local player's stable id
// at the moment the event was produced.
type Snapshot struct {
	State    *table.GameState
	PlayerID string
}

// View evaluates the snapshot from the local player's seat
func (s Snapshot) View() state.View {
	return state.ViewOf(s.State, s.PlayerID)
}

// Connected fires when the transport is open and a new session exists
type Connected struct {
	SessionID string
	Attempt   int // 1 for the first successful dial of an outage
}

// Disconnected fires when a session ends. Err is nil for an explicit disconnect.
type Disconnected struct {
	SessionID string
	Err       error
}

// JoinResult carries the server's answer to a join request. State is nil on
// rejection or when the server sent no usable snapshot.
type JoinResult struct {
	Snapshot
	Success bool
	Message string
}

// PlayerJoined fires when another player takes a seat. Player is nil when the
// server did not describe the newcomer.
type PlayerJoined struct {
	Snapshot
	Player *table.Player
}

// PlayerLeft fires when a player leaves the room
type PlayerLeft struct {
	Snapshot
	LeftPlayerID string
}

// GameStarted fires when a hand is dealt after startGame
type GameStarted struct {
	Snapshot
}

// StateUpdated fires for every gameStateUpdated frame
type StateUpdated struct {
	Snapshot
}

// ErrorKind classifies Error events
type ErrorKind string

const (
	ErrorDecode       ErrorKind = "decode"
	ErrorConnection   ErrorKind = "connection"
	ErrorJoinRejected ErrorKind = "join_rejected"
	ErrorServer       ErrorKind = "server"
)

// Error reports a problem. Fatal errors end the session for good and the
// consumer should return the user to a pre-session state.
type Error struct {
	Kind  ErrorKind
	Err   error
	Fatal bool
}

func (Connected) Name() string    { return "connected" }
func (Disconnected) Name() string { return "disconnected" }
func (JoinResult) Name() string   { return "joined_room" }
func (PlayerJoined) Name() string { return "player_joined" }
func (PlayerLeft) Name() string   { return "player_left" }
func (GameStarted) Name() string  { return "game_started" }
func (StateUpdated) Name() string { return "state_updated" }
func (Error) Name() string        { return "error" }

func (Connected) isEvent()    {}
func (Disconnected) isEvent() {}
func (JoinResult) isEvent()   {}
func (PlayerJoined) isEvent() {}
func (PlayerLeft) isEvent()   {}
func (GameStarted) isEvent()  {}
func (StateUpdated) isEvent() {}
func (Error) isEvent()        {}

// SnapshotOf returns the snapshot carried by ev, if any
func SnapshotOf(ev Event) (Snapshot, bool) {
	switch e := ev.(type) {
	case JoinResult:
		return e.Snapshot, e.State != nil
	case PlayerJoined:
		return e.Snapshot, e.State != nil
	case PlayerLeft:
		return e.Snapshot, e.State != nil
	case GameStarted:
		return e.Snapshot, e.State != nil
	case StateUpdated:
		return e.Snapshot, e.State != nil
	default:
		return Snapshot{}, false
	}
}
