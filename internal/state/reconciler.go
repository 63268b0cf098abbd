// Package state holds the single current snapshot for a session.
package state

import (
	"sync/atomic"

	"github.com/lox/holdem-client/internal/legality"
	"github.com/lox/holdem-client/internal/table"
)

// Reconciler owns the current snapshot slot. Apply swaps the whole snapshot
// in one store, so readers always see either the old or the new state and
// never a mix of both.
type Reconciler struct {
	current atomic.Pointer[table.GameState]
}

// NewReconciler returns an empty reconciler
func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// Apply replaces the current snapshot. Nil states are ignored.
func (r *Reconciler) Apply(gs *table.GameState) {
	if gs == nil {
		return
	}
	r.current.Store(gs)
}

// Current returns the current snapshot, or nil before the first update
func (r *Reconciler) Current() *table.GameState {
	return r.current.Load()
}

// Reset discards the current snapshot, used when a session ends
func (r *Reconciler) Reset() {
	r.current.Store(nil)
}

// View is the local player's perspective on one snapshot
type View struct {
	State    *table.GameState
	Seat     int // table.NoSeat when the local player is not seated
	Legality legality.Legality
}

// Me returns the local player's record, if seated
func (v View) Me() (table.Player, bool) {
	return v.State.PlayerAt(v.Seat)
}

// IsMyTurn reports whether the local player is the one to act
func (v View) IsMyTurn() bool {
	return legality.IsMyTurn(v.State, v.Seat)
}

// ViewOf builds the view of gs for the player with the stable id playerID.
// Identity is only ever matched on id; display names may repeat.
func ViewOf(gs *table.GameState, playerID string) View {
	seat := gs.PlayerIndex(playerID)
	return View{
		State:    gs,
		Seat:     seat,
		Legality: legality.Evaluate(gs, seat),
	}
}

// View returns the local player's view of the current snapshot
func (r *Reconciler) View(playerID string) View {
	return ViewOf(r.Current(), playerID)
}
