// Package table models the authoritative table snapshot received from the server.
//
// A GameState is built once by the snapshot decoder and is never modified
// afterwards: every update from the server is a complete snapshot that
// replaces the previous one. Callers must treat the slices reachable from a
// GameState as read-only.
package table

import "fmt"

// NoSeat is the sentinel index meaning "no applicable player"
const NoSeat = -1

// MaxCommunityCards is the size of a full board
const MaxCommunityCards = 5

// Phase is the stage of the hand
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhasePreflop  Phase = "preflop"
	PhaseFlop     Phase = "flop"
	PhaseTurn     Phase = "turn"
	PhaseRiver    Phase = "river"
	PhaseShowdown Phase = "showdown"
)

// ParsePhase validates a wire phase name
func ParsePhase(s string) (Phase, error) {
	switch p := Phase(s); p {
	case PhaseWaiting, PhasePreflop, PhaseFlop, PhaseTurn, PhaseRiver, PhaseShowdown:
		return p, nil
	default:
		return "", fmt.Errorf("invalid game phase: %q", s)
	}
}

// IsActive reports whether betting can happen in this phase
func (p Phase) IsActive() bool {
	return p != PhaseWaiting && p != PhaseShowdown
}

// Title returns a display label for the phase
func (p Phase) Title() string {
	switch p {
	case PhaseWaiting:
		return "Waiting for players"
	case PhasePreflop:
		return "Pre-flop"
	case PhaseFlop:
		return "Flop"
	case PhaseTurn:
		return "Turn"
	case PhaseRiver:
		return "River"
	case PhaseShowdown:
		return "Showdown"
	default:
		return string(p)
	}
}

// Player is one seat in a snapshot
type Player struct {
	ID              string
	Name            string
	Chips           int
	Bet             int // bet placed in the current round
	Hand            []Card
	Folded          bool
	AllIn           bool
	IsCurrentPlayer bool
	IsDealer        bool
}

// CanAct returns true if the player is still able to take betting actions
func (p Player) CanAct() bool {
	return !p.Folded && !p.AllIn
}

// Status returns a short description of the player's state in the hand
func (p Player) Status() string {
	switch {
	case p.Folded:
		return "folded"
	case p.AllIn:
		return "all-in"
	case p.Bet > 0:
		return fmt.Sprintf("bet %d", p.Bet)
	default:
		return "waiting"
	}
}

// GameState is one complete snapshot of a table
type GameState struct {
	RoomID             string
	Players            []Player // seat order
	CommunityCards     []Card
	Pot                int
	CurrentBet         int
	CurrentPlayerIndex int // NoSeat when nobody is to act
	DealerIndex        int // NoSeat when there is no dealer
	Phase              Phase
}

// IsActive reports whether a hand is in progress
func (gs *GameState) IsActive() bool {
	return gs != nil && gs.Phase.IsActive()
}

// ValidSeat reports whether i indexes a player in this snapshot
func (gs *GameState) ValidSeat(i int) bool {
	return gs != nil && i >= 0 && i < len(gs.Players)
}

// PlayerAt returns a copy of the player in seat i
func (gs *GameState) PlayerAt(i int) (Player, bool) {
	if !gs.ValidSeat(i) {
		return Player{}, false
	}
	return gs.Players[i], true
}

// CurrentPlayer returns the player whose turn it is, if any
func (gs *GameState) CurrentPlayer() (Player, bool) {
	if gs == nil {
		return Player{}, false
	}
	return gs.PlayerAt(gs.CurrentPlayerIndex)
}

// Dealer returns the player holding the button, if any
func (gs *GameState) Dealer() (Player, bool) {
	if gs == nil {
		return Player{}, false
	}
	return gs.PlayerAt(gs.DealerIndex)
}

// PlayerIndex returns the seat of the player with the given stable id, or NoSeat
func (gs *GameState) PlayerIndex(id string) int {
	if gs == nil || id == "" {
		return NoSeat
	}
	for i, p := range gs.Players {
		if p.ID == id {
			return i
		}
	}
	return NoSeat
}

// ActivePlayerCount returns the number of players who have not folded
func (gs *GameState) ActivePlayerCount() int {
	if gs == nil {
		return 0
	}
	count := 0
	for _, p := range gs.Players {
		if !p.Folded {
			count++
		}
	}
	return count
}
