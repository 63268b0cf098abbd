// Package legality computes which betting actions the local player may take
// in a snapshot. Everything here is a pure function of its inputs.
package legality

import "github.com/lox/holdem-client/internal/table"

// Legality is the set of actions open to one player in one snapshot.
// The zero value allows nothing.
type Legality struct {
	Fold       bool
	Call       bool
	CallAmount int
	Raise      bool
	AllIn      bool
}

// Any reports whether at least one action is allowed
func (l Legality) Any() bool {
	return l.Fold || l.Call || l.Raise || l.AllIn
}

// IsMyTurn reports whether seat is the player to act. It is false for the
// sentinel index and for any seat outside the player list.
func IsMyTurn(gs *table.GameState, seat int) bool {
	return gs.ValidSeat(seat) && seat == gs.CurrentPlayerIndex
}

// CallAmount returns max(0, currentBet - bet) for the player in seat,
// regardless of whose turn it is. Unknown seats owe nothing.
func CallAmount(gs *table.GameState, seat int) int {
	p, ok := gs.PlayerAt(seat)
	if !ok {
		return 0
	}
	return max(0, gs.CurrentBet-p.Bet)
}

// Evaluate returns the actions available to the player in seat. Nothing is
// allowed outside an active hand, off turn, or for a folded or all-in player.
func Evaluate(gs *table.GameState, seat int) Legality {
	if !gs.IsActive() || !IsMyTurn(gs, seat) {
		return Legality{}
	}

	p := gs.Players[seat]
	if !p.CanAct() {
		return Legality{}
	}

	toCall := CallAmount(gs, seat)
	return Legality{
		Fold:       true,
		Call:       toCall <= p.Chips,
		CallAmount: toCall,
		Raise:      p.Chips > gs.CurrentBet,
		AllIn:      p.Chips > 0,
	}
}

// ForPlayer resolves the player by stable id and evaluates their legality.
// A player missing from the snapshot gets the empty result.
func ForPlayer(gs *table.GameState, playerID string) Legality {
	return Evaluate(gs, gs.PlayerIndex(playerID))
}
