package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/lox/holdem-client/internal/client"
	"github.com/lox/holdem-client/internal/events"
)

type WatchCmd struct {
	Start bool `help:"Ask the server to deal a hand once joined"`
}

func (w *WatchCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig(nil, nil)
	if err != nil {
		return err
	}

	logger, closer, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	ctx, cancel := setupSignalHandler(logger)
	defer cancel()

	out := log.NewWithOptions(os.Stdout, log.Options{
		ReportTimestamp: true,
		Prefix:          "watch",
	})

	c := client.New(cfg.ClientOptions(), logger)
	defer func() { _ = c.Close() }()

	return watch(ctx, c, cfg.Player.Room, cfg.Player.Name, w.Start, out)
}

// watch joins the room and prints every event until ctx ends or the
// session fails for good
func watch(ctx context.Context, c *client.Client, room, name string, start bool, out *log.Logger) error {
	sub := c.Subscribe()
	defer sub.Close()

	if err := c.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	if err := c.Join(room, name); err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-sub.Events():
			if !ok {
				return c.Err()
			}

			msg, keyvals := describeEvent(ev)
			if e, isErr := ev.(events.Error); isErr {
				out.Error(msg, keyvals...)
				if e.Fatal {
					return fmt.Errorf("session ended: %w", e.Err)
				}
				continue
			}
			out.Info(msg, keyvals...)

			if result, isJoin := ev.(events.JoinResult); isJoin && result.Success && start {
				if err := c.StartGame(); err != nil {
					out.Warn("Could not start game", "error", err)
				}
			}
		}
	}
}

// describeEvent turns an event into a log message and key/value pairs
func describeEvent(ev events.Event) (string, []interface{}) {
	switch e := ev.(type) {
	case events.Connected:
		return "Connected", []interface{}{"session", e.SessionID, "attempt", e.Attempt}
	case events.Disconnected:
		if e.Err != nil {
			return "Disconnected", []interface{}{"session", e.SessionID, "error", e.Err}
		}
		return "Disconnected", []interface{}{"session", e.SessionID}
	case events.JoinResult:
		if !e.Success {
			return "Join rejected", []interface{}{"reason", e.Message}
		}
		return "Joined room", []interface{}{"player_id", e.PlayerID}
	case events.PlayerJoined:
		if e.Player != nil {
			return "Player joined", []interface{}{"name", e.Player.Name, "chips", e.Player.Chips}
		}
		return "Player joined", nil
	case events.PlayerLeft:
		return "Player left", []interface{}{"player_id", e.LeftPlayerID}
	case events.GameStarted:
		return "Game started", snapshotFields(e.Snapshot)
	case events.StateUpdated:
		return "State updated", snapshotFields(e.Snapshot)
	case events.Error:
		return "Error", []interface{}{"kind", string(e.Kind), "fatal", e.Fatal, "error", e.Err}
	default:
		return ev.Name(), nil
	}
}

func snapshotFields(snap events.Snapshot) []interface{} {
	if snap.State == nil {
		return nil
	}

	view := snap.View()
	fields := []interface{}{
		"phase", string(snap.State.Phase),
		"pot", snap.State.Pot,
		"current_bet", snap.State.CurrentBet,
	}
	if p, ok := snap.State.CurrentPlayer(); ok {
		fields = append(fields, "to_act", p.Name)
	}
	if view.IsMyTurn() {
		legal := view.Legality
		fields = append(fields,
			"fold", legal.Fold,
			"call", legal.Call,
			"call_amount", legal.CallAmount,
			"raise", legal.Raise,
			"all_in", legal.AllIn)
	}
	return fields
}
