package card

type Suit byte

const (
	Club    Suit = iota // ♣️
	Diamond             // ♦️
	Heart               // ♥️
	Spade               // ♠️
)

var Suits = []Suit{Club, Diamond, Heart, Spade}

func (s Suit) Valid() bool { return s <= Spade }

// Short is the single-letter suit code used on the engine wire.
func (s Suit) Short() string {
	switch s {
	case Club:
		return "C"
	case Diamond:
		return "D"
	case Heart:
		return "H"
	case Spade:
		return "S"
	}
	return "?"
}

func (s Suit) String() string {
	switch s {
	case Club:
		return "♣️"
	case Diamond:
		return "♦️"
	case Heart:
		return "♥️"
	case Spade:
		return "♠️"
	}
	return "?"
}
