package card

import "strconv"

// Rank is the pip value of a card; aces are high.
type Rank byte

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

var rankNames = map[Rank]string{
	Two:   "two",
	Three: "three",
	Four:  "four",
	Five:  "five",
	Six:   "six",
	Seven: "seven",
	Eight: "eight",
	Nine:  "nine",
	Ten:   "ten",
	Jack:  "jack",
	Queen: "queen",
	King:  "king",
	Ace:   "ace",
}

func (r Rank) Valid() bool { return r >= Two && r <= Ace }

func (r Rank) IsFace() bool { return r >= Jack }

// Name is the lowercase English word for the rank ("two", "queen").
func (r Rank) Name() string {
	if name, ok := rankNames[r]; ok {
		return name
	}
	return "invalid"
}

// Short is the rank code used on the engine wire ("2".."10", "J", "Q", "K", "A").
func (r Rank) Short() string {
	switch r {
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Ace:
		return "A"
	}
	return strconv.Itoa(int(r))
}

func (r Rank) String() string { return r.Short() }
