package spades

import "strconv"

// ActionKind is the kind of move a player submits to the engine.
type ActionKind byte

const (
	ActionDeal ActionKind = 1
	ActionBet  ActionKind = 2
	ActionPlay ActionKind = 3
)

var ActionKindDictionary = map[ActionKind]string{
	ActionDeal: "DEAL",
	ActionBet:  "BET",
	ActionPlay: "PLAY",
}

func (a ActionKind) String() string {
	if s, ok := ActionKindDictionary[a]; ok {
		return s
	}
	return "UNKNOWN"
}

// Bet is a player's bid. Numeric bids use their book count (1..13); the
// special bids sit outside that range.
type Bet int

const (
	BetNone          Bet = -1
	BetNil           Bet = 0
	BetTenTwoHundred Bet = 100

	MaxNumericBet = 13
)

func (b Bet) Numeric() bool { return b >= 1 && b <= MaxNumericBet }

func (b Bet) Valid() bool {
	return b == BetNone || b == BetNil || b == BetTenTwoHundred || b.Numeric()
}

// Books is the number of books the bid commits to, as counted toward a
// team's aggregate bet.
func (b Bet) Books() int {
	switch {
	case b.Numeric():
		return int(b)
	case b == BetTenTwoHundred:
		return 10
	}
	return 0
}

func (b Bet) String() string {
	switch b {
	case BetNone:
		return "NONE"
	case BetNil:
		return "NIL"
	case BetTenTwoHundred:
		return "TTH"
	}
	return strconv.Itoa(int(b))
}
