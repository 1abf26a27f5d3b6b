// Package present renders engine snapshots as Discord message text.
package present

import (
	"fmt"
	"strconv"
	"strings"

	"spadesbot/card"
	"spadesbot/spades"
)

// Formatter holds the suit emoji of the deploying server. The zero value
// falls back to the Unicode suit symbols.
type Formatter struct {
	Suits map[card.Suit]string
}

func New(clubs, diamonds, hearts, spadesGlyph string) *Formatter {
	return &Formatter{Suits: map[card.Suit]string{
		card.Club:    clubs,
		card.Diamond: diamonds,
		card.Heart:   hearts,
		card.Spade:   spadesGlyph,
	}}
}

// Wrap turns text into a Discord block quote.
func Wrap(text string) string {
	return ">>> " + text
}

// RankGlyph is the emoji shortcode for a rank: word emoji for 2..9, the ten
// keycap, and the regional indicator of the first letter for faces and aces.
func RankGlyph(r card.Rank) string {
	switch {
	case r >= card.Two && r <= card.Nine:
		return ":" + r.Name() + ":"
	case r == card.Ten:
		return ":keycap_ten:"
	case r.Valid():
		return ":regional_indicator_" + r.Name()[:1] + ":"
	}
	return ":question:"
}

func (f *Formatter) SuitGlyph(s card.Suit) string {
	if f != nil {
		if g := f.Suits[s]; g != "" {
			return g
		}
	}
	return s.String()
}

// Cards lists cards as "(1):two: <suit>\t(2)...", numbered from 1.
func (f *Formatter) Cards(cards []card.Card) string {
	var b strings.Builder
	for i, c := range cards {
		fmt.Fprintf(&b, "(%d)%s %s\t", i+1, RankGlyph(c.Rank()), f.SuitGlyph(c.Suit()))
	}
	return b.String()
}

func (f *Formatter) Hand(cards []card.Card) string {
	return "Here's your hand, sport:\n" + f.Cards(cards)
}

// Score renders "A  (score|overbooks)    :vs:    B  (score|overbooks)".
func Score(info spades.ScoreInfo) string {
	parts := make([]string, 0, 2)
	for _, t := range info.Teams {
		parts = append(parts, fmt.Sprintf("%s  (%d|%d)", t.Name, t.Score, t.Overbooks))
	}
	for len(parts) < 2 {
		parts = append(parts, "?")
	}
	return fmt.Sprintf("%s    :vs:    %s\n", parts[0], parts[1])
}

func Turn(info spades.TurnInfo) string {
	return fmt.Sprintf("Turn: %s\tDealer: %s\tSpades Broken? %s\n",
		info.Turn, info.Dealer, strconv.FormatBool(info.SpadesBroken))
}

// Board is the "show" view: score, turn line and the current trick.
func (f *Formatter) Board(score spades.ScoreInfo, turn spades.TurnInfo, pile spades.PileInfo) string {
	return Score(score) + Turn(turn) + f.Cards(pile.Cards)
}

func Betting(info spades.BettingInfo) string {
	var b strings.Builder
	b.WriteString("Here's the current booking and betting info:\n")
	for _, t := range info.Teams {
		p1, p2 := t.Players[0], t.Players[1]
		fmt.Fprintf(&b, "__**%s (%d/%d):**__    %s (%d/%s)    %s (%d/%s)\n",
			t.Name, t.Books, t.Bet,
			p1.Name, p1.Books, p1.Bet,
			p2.Name, p2.Books, p2.Bet)
	}
	return b.String()
}
