// Package protocol defines the JSON wire contract spoken with the game server.
package protocol

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrUnknownAction is returned when a betting action is not part of the catalogue.
var ErrUnknownAction = errors.New("unknown betting action")

// MessageType names an event on the wire
type MessageType string

const (
	// Client -> Server
	TypeJoinRoom  MessageType = "joinRoom"
	TypeStartGame MessageType = "startGame"
	TypeMakeBet   MessageType = "makeBet"

	// Server -> Client
	TypeJoinedRoom       MessageType = "joinedRoom"
	TypePlayerJoined     MessageType = "playerJoined"
	TypePlayerLeft       MessageType = "playerLeft"
	TypeGameStarted      MessageType = "gameStarted"
	TypeGameStateUpdated MessageType = "gameStateUpdated"
	TypeError            MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}

// Message is the envelope every frame is wrapped in
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Action is a betting action sent with makeBet
type Action string

const (
	ActionFold  Action = "fold"
	ActionCall  Action = "call"
	ActionRaise Action = "raise"
	ActionAllIn Action = "allIn"
)

// ParseAction converts a wire string into an Action
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionFold, ActionCall, ActionRaise, ActionAllIn:
		return a, nil
	default:
		return "", ErrUnknownAction
	}
}

// Client → Server payloads

type JoinRoomData struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
}

type StartGameData struct {
	RoomID string `json:"roomId"`
}

// MakeBetData carries Amount only for raises; zero amounts are omitted.
type MakeBetData struct {
	RoomID string `json:"roomId"`
	Action Action `json:"action"`
	Amount int    `json:"amount,omitempty"`
}

// Server → Client payloads. Game states stay raw so the snapshot decoder can
// check field presence itself.

type JoinedRoomData struct {
	Success         bool            `json:"success"`
	Message         string          `json:"message,omitempty"`
	GameState       json.RawMessage `json:"gameState,omitempty"`
	PlayerID        string          `json:"playerId,omitempty"`
	CurrentPlayerID string          `json:"currentPlayerId,omitempty"`
}

type PlayerJoinedData struct {
	Player    json.RawMessage `json:"player,omitempty"`
	GameState json.RawMessage `json:"gameState"`
}

type PlayerLeftData struct {
	PlayerID  string          `json:"playerId"`
	GameState json.RawMessage `json:"gameState"`
}

// GameUpdateData is the payload of both gameStarted and gameStateUpdated
type GameUpdateData struct {
	GameState       json.RawMessage `json:"gameState"`
	CurrentPlayerID string          `json:"currentPlayerId,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
