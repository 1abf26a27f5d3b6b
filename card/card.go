package card

import (
	"fmt"
	"strings"
)

// Card is a single card of a standard 52-card deck.
//
// Encoding:
// - high 4 bits: suit (0:Club, 1:Diamond, 2:Heart, 3:Spade)
// - low 4 bits: rank (2..10, 11:J, 12:Q, 13:K, 14:A)
type Card byte

const CardInvalid Card = 0

// New builds a card from suit and rank, returning CardInvalid for out of range input.
func New(s Suit, r Rank) Card {
	if !s.Valid() || !r.Valid() {
		return CardInvalid
	}
	return Card(byte(s)<<4 | byte(r))
}

func (c Card) Rank() Rank {
	if c == CardInvalid {
		return 0
	}
	return Rank(c & 0x0F)
}

func (c Card) Suit() Suit {
	return Suit(c >> 4)
}

func (c Card) Valid() bool {
	return c.Suit().Valid() && c.Rank().Valid()
}

func (c Card) String() string {
	if !c.Valid() {
		return "Invalid"
	}
	return c.Rank().Short() + c.Suit().Short()
}

// MarshalText encodes the card the way Parse reads it ("AS", "10H").
func (c Card) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid card: 0x%02x", byte(c))
	}
	return []byte(c.String()), nil
}

func (c *Card) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Parse converts strings such as "As", "Td", "10h" or "QC" into a Card.
func Parse(cardStr string) (Card, error) {
	cardStr = strings.TrimSpace(cardStr)
	if len(cardStr) < 2 {
		return CardInvalid, fmt.Errorf("invalid card string: %q", cardStr)
	}

	// suit is always the last character
	var suit Suit
	switch suitChar := cardStr[len(cardStr)-1]; suitChar {
	case 'c', 'C':
		suit = Club
	case 'd', 'D':
		suit = Diamond
	case 'h', 'H':
		suit = Heart
	case 's', 'S':
		suit = Spade
	default:
		return CardInvalid, fmt.Errorf("invalid suit: %c", suitChar)
	}

	var rank Rank
	switch strings.ToUpper(cardStr[:len(cardStr)-1]) {
	case "2":
		rank = Two
	case "3":
		rank = Three
	case "4":
		rank = Four
	case "5":
		rank = Five
	case "6":
		rank = Six
	case "7":
		rank = Seven
	case "8":
		rank = Eight
	case "9":
		rank = Nine
	case "T", "10":
		rank = Ten
	case "J":
		rank = Jack
	case "Q":
		rank = Queen
	case "K":
		rank = King
	case "A":
		rank = Ace
	default:
		return CardInvalid, fmt.Errorf("invalid rank: %s", cardStr[:len(cardStr)-1])
	}

	return New(suit, rank), nil
}
