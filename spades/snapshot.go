package spades

import "spadesbot/card"

type TeamScore struct {
	Name      string
	Score     int
	Overbooks int
}

type ScoreInfo struct {
	Teams []TeamScore
}

type TurnInfo struct {
	Turn         *Player
	Dealer       *Player
	SpadesBroken bool
}

// PileInfo is the current trick, in play order.
type PileInfo struct {
	Cards []card.Card
}

type PlayerBetting struct {
	Name  string
	Books int
	Bet   Bet
}

type TeamBetting struct {
	Name    string
	Books   int
	Bet     int
	Players [2]PlayerBetting
}

type BettingInfo struct {
	Teams []TeamBetting
}
