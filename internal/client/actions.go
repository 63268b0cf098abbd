package client

import (
	"github.com/google/uuid"
	"github.com/lox/holdem-client/internal/protocol"
)

// Join asks to sit at roomID as playerName. If the transport is already open
// the request goes out now; otherwise it is sent as soon as the connection
// loop reports Connected, and again after every reconnect.
func (c *Client) Join(roomID, playerName string) error {
	if roomID == "" || playerName == "" {
		return ErrInvalidJoin
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return ErrNotConnected
	}
	if c.sess != nil && c.sess.joinSent {
		return ErrAlreadyJoined
	}

	c.join = &joinRequest{roomID: roomID, playerName: playerName}
	if c.sess == nil {
		c.logger.Debug("Deferring join until connected", "room", roomID)
		return nil
	}
	return c.sendJoinLocked(c.sess, c.join)
}

func (c *Client) sendJoinLocked(sess *session, req *joinRequest) error {
	msg, err := newMessage(protocol.TypeJoinRoom, protocol.JoinRoomData{
		RoomID:     req.roomID,
		PlayerName: req.playerName,
	})
	if err != nil {
		return err
	}

	if err := enqueue(sess, msg); err != nil {
		return err
	}
	sess.joinSent = true
	c.state = StateJoinPending
	c.logger.Info("Joining room", "room", req.roomID, "player", req.playerName)
	return nil
}

// StartGame asks the server to deal a hand in the joined room
func (c *Client) StartGame() error {
	return c.sendInRoom(protocol.TypeStartGame, func(roomID string) interface{} {
		return protocol.StartGameData{RoomID: roomID}
	})
}

// MakeBet sends a betting action. The amount is only sent with raises and
// must be positive there. Legality is the server's call; nothing is
// changed locally until the next snapshot arrives.
func (c *Client) MakeBet(action protocol.Action, amount int) error {
	if _, err := protocol.ParseAction(string(action)); err != nil {
		return err
	}
	if action == protocol.ActionRaise {
		if amount <= 0 {
			return ErrInvalidAmount
		}
	} else {
		amount = 0
	}

	return c.sendInRoom(protocol.TypeMakeBet, func(roomID string) interface{} {
		return protocol.MakeBetData{RoomID: roomID, Action: action, Amount: amount}
	})
}

func (c *Client) Fold() error { return c.MakeBet(protocol.ActionFold, 0) }

func (c *Client) Call() error { return c.MakeBet(protocol.ActionCall, 0) }

func (c *Client) Raise(amount int) error { return c.MakeBet(protocol.ActionRaise, amount) }

func (c *Client) AllIn() error { return c.MakeBet(protocol.ActionAllIn, 0) }

func (c *Client) sendInRoom(msgType protocol.MessageType, payload func(roomID string) interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil {
		return ErrNotConnected
	}
	if c.state != StateJoined {
		return ErrNotJoined
	}

	msg, err := newMessage(msgType, payload(c.sess.RoomID))
	if err != nil {
		return err
	}
	return enqueue(c.sess, msg)
}

func enqueue(sess *session, msg *protocol.Message) error {
	select {
	case sess.send <- msg:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func newMessage(msgType protocol.MessageType, data interface{}) (*protocol.Message, error) {
	msg, err := protocol.NewMessage(msgType, data)
	if err != nil {
		return nil, err
	}
	msg.RequestID = uuid.NewString()
	return msg, nil
}
