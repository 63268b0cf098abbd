package client

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned when sending without an open transport
	ErrNotConnected = errors.New("not connected to server")
	// ErrNotJoined is returned when a room action is sent before a successful join
	ErrNotJoined = errors.New("not joined to a room")
	// ErrAlreadyConnected is returned by Connect while a connection loop is running
	ErrAlreadyConnected = errors.New("already connected")
	// ErrAlreadyJoined is returned by Join once a join has been sent for the session
	ErrAlreadyJoined = errors.New("join already requested")
	// ErrJoinRejected is matched by JoinRejectedError
	ErrJoinRejected = errors.New("join rejected")
	// ErrReconnectExhausted is the terminal error after the last reconnect attempt fails
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
	// ErrSendBufferFull is returned when the outbound queue cannot take another message
	ErrSendBufferFull = errors.New("send buffer full")
	// ErrInvalidJoin is returned for a join without a room or player name
	ErrInvalidJoin = errors.New("room id and player name are required")
	// ErrInvalidAmount is returned for a raise that is not positive
	ErrInvalidAmount = errors.New("raise amount must be positive")
)

// JoinRejectedError carries the server's reason for refusing a join
type JoinRejectedError struct {
	Message string
}

func (e *JoinRejectedError) Error() string {
	return fmt.Sprintf("join rejected: %s", e.Message)
}

func (e *JoinRejectedError) Is(target error) bool {
	return target == ErrJoinRejected
}

// ServerError is an error frame sent by the server
type ServerError struct {
	Code    string
	Message string
}

func (e *ServerError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server error: %s", e.Message)
	}
	return fmt.Sprintf("server error %s: %s", e.Code, e.Message)
}
