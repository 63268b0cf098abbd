package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lox/holdem-client/internal/events"
)

// Sender is satisfied by *tea.Program
type Sender interface {
	Send(msg tea.Msg)
}

// Pump forwards every event from sub to the program, one at a time and in
// order, until the subscription ends or ctx is cancelled.
func Pump(ctx context.Context, sub *events.Subscription, program Sender) error {
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				program.Send(StreamClosedMsg{})
				return nil
			}
			program.Send(EventMsg{Event: ev})
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
