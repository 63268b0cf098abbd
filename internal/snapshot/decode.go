// Package snapshot decodes server game-state payloads into table.GameState values.
//
// Decoding is all-or-nothing: a payload that is missing a required field or
// carries an invalid value produces a *DecodeError naming the field and no
// state at all, so callers can keep their previous snapshot.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lox/holdem-client/internal/table"
)

// Defaults for player fields the server may omit in its compact encoding
const (
	DefaultChips = 1000
	DefaultBet   = 0
)

var (
	// ErrMissingField is wrapped by DecodeError when a required field is absent or null
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidValue is wrapped by DecodeError when a field is present but not acceptable
	ErrInvalidValue = errors.New("invalid value")
)

// DecodeError reports the field that made a payload undecodable
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func missing(field string) error {
	return &DecodeError{Field: field, Err: ErrMissingField}
}

func invalid(field string, format string, args ...interface{}) error {
	return &DecodeError{Field: field, Err: fmt.Errorf("%w: %s", ErrInvalidValue, fmt.Sprintf(format, args...))}
}

type wireCard struct {
	Suit  *string `json:"suit"`
	Rank  *string `json:"rank"`
	Value *int    `json:"value"`
}

type wirePlayer struct {
	ID              *string           `json:"id"`
	Name            *string           `json:"name"`
	Chips           *int              `json:"chips"`
	Bet             *int              `json:"bet"`
	Folded          *bool             `json:"folded"`
	AllIn           *bool             `json:"allIn"`
	IsCurrentPlayer *bool             `json:"isCurrentPlayer"`
	IsDealer        *bool             `json:"isDealer"`
	Hand            []json.RawMessage `json:"hand"`
}

type wireGameState struct {
	RoomID             *string           `json:"roomId"`
	Pot                *int              `json:"pot"`
	CurrentBet         *int              `json:"currentBet"`
	CurrentPlayerIndex *int              `json:"currentPlayerIndex"`
	DealerIndex        *int              `json:"dealerIndex"`
	GamePhase          *string           `json:"gamePhase"`
	Players            []json.RawMessage `json:"players"`
	CommunityCards     []json.RawMessage `json:"communityCards"`
}

// IsAbsent reports whether a raw payload is empty or JSON null
func IsAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// DecodeGameState decodes a complete gameState payload
func DecodeGameState(raw json.RawMessage) (*table.GameState, error) {
	const field = "gameState"
	if IsAbsent(raw) {
		return nil, missing(field)
	}

	var w wireGameState
	if err := unmarshal(raw, &w, field); err != nil {
		return nil, err
	}

	switch {
	case w.RoomID == nil:
		return nil, missing("roomId")
	case w.Pot == nil:
		return nil, missing("pot")
	case w.CurrentBet == nil:
		return nil, missing("currentBet")
	case w.CurrentPlayerIndex == nil:
		return nil, missing("currentPlayerIndex")
	case w.GamePhase == nil:
		return nil, missing("gamePhase")
	case w.DealerIndex == nil:
		return nil, missing("dealerIndex")
	}

	phase, err := table.ParsePhase(*w.GamePhase)
	if err != nil {
		return nil, invalid("gamePhase", "%q", *w.GamePhase)
	}
	if *w.Pot < 0 {
		return nil, invalid("pot", "%d is negative", *w.Pot)
	}
	if *w.CurrentBet < 0 {
		return nil, invalid("currentBet", "%d is negative", *w.CurrentBet)
	}
	if len(w.CommunityCards) > table.MaxCommunityCards {
		return nil, invalid("communityCards", "%d cards, at most %d allowed", len(w.CommunityCards), table.MaxCommunityCards)
	}

	players := make([]table.Player, 0, len(w.Players))
	seen := make(map[string]int, len(w.Players))
	for i, rawPlayer := range w.Players {
		prefix := fmt.Sprintf("players[%d]", i)
		p, err := decodePlayer(rawPlayer, prefix)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[p.ID]; dup {
			return nil, invalid(prefix+".id", "%q already used by players[%d]", p.ID, prev)
		}
		seen[p.ID] = i
		players = append(players, p)
	}

	community, err := decodeCards(w.CommunityCards, "communityCards")
	if err != nil {
		return nil, err
	}

	return &table.GameState{
		RoomID:             *w.RoomID,
		Players:            players,
		CommunityCards:     community,
		Pot:                *w.Pot,
		CurrentBet:         *w.CurrentBet,
		CurrentPlayerIndex: seatOrSentinel(*w.CurrentPlayerIndex, len(players)),
		DealerIndex:        seatOrSentinel(*w.DealerIndex, len(players)),
		Phase:              phase,
	}, nil
}

// DecodePlayer decodes a single player payload, as carried by playerJoined
func DecodePlayer(raw json.RawMessage) (table.Player, error) {
	if IsAbsent(raw) {
		return table.Player{}, missing("player")
	}
	return decodePlayer(raw, "player")
}

func decodePlayer(raw json.RawMessage, prefix string) (table.Player, error) {
	var w wirePlayer
	if err := unmarshal(raw, &w, prefix); err != nil {
		return table.Player{}, err
	}

	if w.ID == nil || *w.ID == "" {
		return table.Player{}, missing(prefix + ".id")
	}
	if w.Name == nil {
		return table.Player{}, missing(prefix + ".name")
	}

	p := table.Player{
		ID:              *w.ID,
		Name:            *w.Name,
		Chips:           intOr(w.Chips, DefaultChips),
		Bet:             intOr(w.Bet, DefaultBet),
		Folded:          boolOr(w.Folded, false),
		AllIn:           boolOr(w.AllIn, false),
		IsCurrentPlayer: boolOr(w.IsCurrentPlayer, false),
		IsDealer:        boolOr(w.IsDealer, false),
	}

	if p.Chips < 0 {
		return table.Player{}, invalid(prefix+".chips", "%d is negative", p.Chips)
	}
	if p.Bet < 0 {
		return table.Player{}, invalid(prefix+".bet", "%d is negative", p.Bet)
	}
	if n := len(w.Hand); n != 0 && n != 2 {
		return table.Player{}, invalid(prefix+".hand", "%d cards, want 0 or 2", n)
	}

	hand, err := decodeCards(w.Hand, prefix+".hand")
	if err != nil {
		return table.Player{}, err
	}
	p.Hand = hand

	return p, nil
}

func decodeCards(raws []json.RawMessage, field string) ([]table.Card, error) {
	cards := make([]table.Card, 0, len(raws))
	for i, raw := range raws {
		c, err := decodeCard(raw, fmt.Sprintf("%s[%d]", field, i))
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

func decodeCard(raw json.RawMessage, field string) (table.Card, error) {
	if IsAbsent(raw) {
		return table.Card{}, missing(field)
	}

	var w wireCard
	if err := unmarshal(raw, &w, field); err != nil {
		return table.Card{}, err
	}

	switch {
	case w.Suit == nil:
		return table.Card{}, missing(field + ".suit")
	case w.Rank == nil:
		return table.Card{}, missing(field + ".rank")
	case w.Value == nil:
		return table.Card{}, missing(field + ".value")
	}

	suit, err := table.ParseSuit(*w.Suit)
	if err != nil {
		return table.Card{}, invalid(field+".suit", "%q", *w.Suit)
	}

	return table.Card{
		Suit:    suit,
		Rank:    *w.Rank,
		Value:   *w.Value,
		Visible: true,
	}, nil
}

// unmarshal decodes raw into v, naming the offending field on type errors
func unmarshal(raw json.RawMessage, v interface{}, field string) error {
	err := json.Unmarshal(raw, v)
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return &DecodeError{Field: field + "." + typeErr.Field, Err: fmt.Errorf("%w: %v", ErrInvalidValue, err)}
	}
	return &DecodeError{Field: field, Err: fmt.Errorf("%w: %v", ErrInvalidValue, err)}
}

// seatOrSentinel maps any index outside the player list to table.NoSeat
func seatOrSentinel(i, players int) int {
	if i < 0 || i >= players {
		return table.NoSeat
	}
	return i
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
