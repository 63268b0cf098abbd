package client

import (
	"encoding/json"
	"fmt"

	"github.com/lox/holdem-client/internal/events"
	"github.com/lox/holdem-client/internal/protocol"
	"github.com/lox/holdem-client/internal/snapshot"
	"github.com/lox/holdem-client/internal/table"
)

// handleFrame decodes one inbound frame, updates the snapshot slot and
// publishes the resulting events. It returns a non-nil error only when the
// server rejected the join, which ends the session.
func (c *Client) handleFrame(sess *session, data []byte) error {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.decodeFailed("", fmt.Errorf("invalid frame: %w", err))
		return nil
	}

	c.logger.Debug("Received message", "type", msg.Type)

	switch msg.Type {
	case protocol.TypeJoinedRoom:
		return c.handleJoinedRoom(sess, msg)
	case protocol.TypePlayerJoined:
		c.handlePlayerJoined(sess, msg)
	case protocol.TypePlayerLeft:
		c.handlePlayerLeft(sess, msg)
	case protocol.TypeGameStarted:
		c.handleGameStarted(sess, msg)
	case protocol.TypeGameStateUpdated:
		c.handleGameStateUpdated(sess, msg)
	case protocol.TypeError:
		c.handleServerError(msg)
	default:
		c.logger.Debug("No handler for message type", "type", msg.Type)
	}
	return nil
}

func (c *Client) handleJoinedRoom(sess *session, msg protocol.Message) error {
	var data protocol.JoinedRoomData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.decodeFailed(msg.Type, err)
		return nil
	}

	if !data.Success {
		reason := data.Message
		if reason == "" {
			reason = "no reason given"
		}
		rejected := &JoinRejectedError{Message: reason}

		c.logger.Error("Join rejected", "reason", reason)
		c.publish(events.JoinResult{Success: false, Message: data.Message})
		c.publish(events.Error{Kind: events.ErrorJoinRejected, Err: rejected, Fatal: true})
		return rejected
	}

	playerID := data.PlayerID
	if playerID == "" {
		playerID = data.CurrentPlayerID
	}

	c.mu.Lock()
	c.state = StateJoined
	if c.join != nil {
		sess.RoomID = c.join.roomID
		sess.PlayerName = c.join.playerName
	}
	c.setPlayerIDLocked(sess, playerID)
	id := sess.PlayerID
	c.mu.Unlock()

	c.logger.Info("Joined room", "room", sess.RoomID, "player_id", id)

	result := events.JoinResult{Success: true, Message: data.Message}
	result.PlayerID = id
	if !snapshot.IsAbsent(data.GameState) {
		gs, err := snapshot.DecodeGameState(data.GameState)
		if err != nil {
			c.decodeFailed(msg.Type, err)
		} else {
			c.reconciler.Apply(gs)
			result.State = gs
		}
	}
	c.publish(result)
	return nil
}

func (c *Client) handlePlayerJoined(sess *session, msg protocol.Message) {
	var data protocol.PlayerJoinedData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.decodeFailed(msg.Type, err)
		return
	}

	var player *table.Player
	if !snapshot.IsAbsent(data.Player) {
		p, err := snapshot.DecodePlayer(data.Player)
		if err != nil {
			c.decodeFailed(msg.Type, err)
			return
		}
		player = &p
	}

	gs, ok := c.decodeState(msg.Type, data.GameState)
	if !ok {
		return
	}
	c.publish(events.PlayerJoined{Snapshot: c.snapshotFor(sess, gs), Player: player})
}

func (c *Client) handlePlayerLeft(sess *session, msg protocol.Message) {
	var data protocol.PlayerLeftData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.decodeFailed(msg.Type, err)
		return
	}

	gs, ok := c.decodeState(msg.Type, data.GameState)
	if !ok {
		return
	}
	c.publish(events.PlayerLeft{Snapshot: c.snapshotFor(sess, gs), LeftPlayerID: data.PlayerID})
}

func (c *Client) handleGameStarted(sess *session, msg protocol.Message) {
	var data protocol.GameUpdateData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.decodeFailed(msg.Type, err)
		return
	}

	gs, ok := c.decodeState(msg.Type, data.GameState)
	if !ok {
		return
	}

	// A join acknowledgement without an id leaves identity to the game start
	c.mu.Lock()
	if sess.PlayerID == "" {
		c.setPlayerIDLocked(sess, data.CurrentPlayerID)
	}
	c.mu.Unlock()

	c.publish(events.GameStarted{Snapshot: c.snapshotFor(sess, gs)})
}

func (c *Client) handleGameStateUpdated(sess *session, msg protocol.Message) {
	var data protocol.GameUpdateData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.decodeFailed(msg.Type, err)
		return
	}

	// Identity is captured once at join or start; later ids are not consulted
	gs, ok := c.decodeState(msg.Type, data.GameState)
	if !ok {
		return
	}
	c.publish(events.StateUpdated{Snapshot: c.snapshotFor(sess, gs)})
}

func (c *Client) handleServerError(msg protocol.Message) {
	var data protocol.ErrorData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.decodeFailed(msg.Type, err)
		return
	}

	serverErr := &ServerError{Code: data.Code, Message: data.Message}
	c.logger.Warn("Server reported an error", "code", data.Code, "message", data.Message)
	c.publish(events.Error{Kind: events.ErrorServer, Err: serverErr})
}

// decodeState decodes and applies a snapshot. On failure the previous
// snapshot stays current and a non-fatal error is published.
func (c *Client) decodeState(msgType protocol.MessageType, raw json.RawMessage) (*table.GameState, bool) {
	gs, err := snapshot.DecodeGameState(raw)
	if err != nil {
		c.decodeFailed(msgType, err)
		return nil, false
	}
	c.reconciler.Apply(gs)
	return gs, true
}

func (c *Client) decodeFailed(msgType protocol.MessageType, err error) {
	if msgType != "" {
		err = fmt.Errorf("%s: %w", msgType, err)
	}
	c.logger.Warn("Dropping undecodable message", "error", err)
	c.publish(events.Error{Kind: events.ErrorDecode, Err: err})
}

func (c *Client) snapshotFor(sess *session, gs *table.GameState) events.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return events.Snapshot{State: gs, PlayerID: sess.PlayerID}
}

// setPlayerIDLocked records the local identity once per session
func (c *Client) setPlayerIDLocked(sess *session, id string) {
	if id == "" {
		return
	}
	if sess.PlayerID == "" {
		sess.PlayerID = id
		return
	}
	if sess.PlayerID != id {
		c.logger.Warn("Ignoring conflicting player id", "current", sess.PlayerID, "received", id)
	}
}
