package table

import (
	"fmt"
	"strings"
)

// Suit represents a card suit
type Suit int

const (
	Hearts Suit = iota
	Diamonds
	Clubs
	Spades
)

// ParseSuit converts the wire name of a suit ("hearts", "spades", ...) into a Suit
func ParseSuit(s string) (Suit, error) {
	switch strings.ToLower(s) {
	case "hearts":
		return Hearts, nil
	case "diamonds":
		return Diamonds, nil
	case "clubs":
		return Clubs, nil
	case "spades":
		return Spades, nil
	default:
		return 0, fmt.Errorf("invalid suit: %q", s)
	}
}

// Name returns the wire name of the suit
func (s Suit) Name() string {
	switch s {
	case Hearts:
		return "hearts"
	case Diamonds:
		return "diamonds"
	case Clubs:
		return "clubs"
	case Spades:
		return "spades"
	default:
		return "unknown"
	}
}

// String returns the suit symbol
func (s Suit) String() string {
	switch s {
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	case Spades:
		return "♠"
	default:
		return "?"
	}
}

// IsRed returns true if the suit is red (Hearts or Diamonds)
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// Card is a card as reported by the server. Rank is the server's label ("A",
// "10", ...) and Value its numeric weight. Visible only controls whether this
// client shows the face.
type Card struct {
	Suit    Suit
	Rank    string
	Value   int
	Visible bool
}

// String returns the short form of the card (e.g. "A♠")
func (c Card) String() string {
	return c.Rank + c.Suit.String()
}

// DisplayName returns "?" for hidden cards and "<rank> of <suit>" otherwise
func (c Card) DisplayName() string {
	if !c.Visible {
		return "?"
	}
	return c.Rank + " of " + c.Suit.Name()
}

// Hidden returns a copy of the card with its face hidden
func (c Card) Hidden() Card {
	c.Visible = false
	return c
}

// IsRed returns true if the card is red
func (c Card) IsRed() bool {
	return c.Suit.IsRed()
}
