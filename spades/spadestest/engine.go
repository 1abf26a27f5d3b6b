// Package spadestest provides a scripted in-memory spades.Engine for tests.
package spadestest

import (
	"context"
	"fmt"
	"sync"

	"spadesbot/card"
	"spadesbot/spades"
)

// Action is one PlayerAction call recorded by a Game.
type Action struct {
	Seat    spades.Seat
	Player  *spades.Player
	Kind    spades.ActionKind
	Payload int
}

// Engine hands out Games and remembers them in creation order.
type Engine struct {
	mu    sync.Mutex
	games []*Game

	// Err, when set, is returned by NewGame.
	Err error
	// Accept decides whether an action is accepted. Nil accepts everything.
	Accept func(a Action) bool
}

func NewEngine() *Engine { return &Engine{} }

func (e *Engine) NewGame(_ context.Context, setup spades.Setup) (spades.Game, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.Err != nil {
		return nil, e.Err
	}
	if err := setup.Validate(); err != nil {
		return nil, err
	}
	g := &Game{
		setup:        setup,
		accept:       e.Accept,
		notification: fmt.Sprintf("New game to %d: %s vs %s", setup.MaxScore, setup.Teams[0].Name, setup.Teams[1].Name),
		hands:        make(map[string][]card.Card),
		seatHands:    make(map[spades.Seat][]card.Card),
	}
	e.games = append(e.games, g)
	return g, nil
}

// Games returns every game created so far.
func (e *Engine) Games() []*Game {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Game(nil), e.games...)
}

// Last returns the most recent game or nil.
func (e *Engine) Last() *Game {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.games) == 0 {
		return nil
	}
	return e.games[len(e.games)-1]
}

// Game is a scripted spades.Game. Snapshot fields are returned verbatim.
type Game struct {
	mu sync.Mutex

	setup        spades.Setup
	accept       func(Action) bool
	notification string
	actions      []Action
	hands        map[string][]card.Card
	seatHands    map[spades.Seat][]card.Card

	Score   spades.ScoreInfo
	Turn    spades.TurnInfo
	Pile    spades.PileInfo
	Betting spades.BettingInfo
	// QueryErr, when set, fails every snapshot query.
	QueryErr error
}

// Setup is the setup the game was created with.
func (g *Game) Setup() spades.Setup { return g.setup }

func (g *Game) MaxScore() int          { return g.setup.MaxScore }
func (g *Game) Teams() [2]*spades.Team { return g.setup.Teams }

func (g *Game) Notification() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.notification
}

func (g *Game) SetNotification(s string) {
	g.mu.Lock()
	g.notification = s
	g.mu.Unlock()
}

// SetAccept replaces the acceptance rule of this game.
func (g *Game) SetAccept(accept func(Action) bool) {
	g.mu.Lock()
	g.accept = accept
	g.mu.Unlock()
}

// SetHand sets the hand of every seat held by playerID.
func (g *Game) SetHand(playerID string, cards ...card.Card) {
	g.mu.Lock()
	g.hands[playerID] = cards
	g.mu.Unlock()
}

// SetSeatHand sets the hand of one seat. It wins over SetHand.
func (g *Game) SetSeatHand(seat spades.Seat, cards ...card.Card) {
	g.mu.Lock()
	g.seatHands[seat] = cards
	g.mu.Unlock()
}

func (g *Game) Actions() []Action {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Action(nil), g.actions...)
}

func (g *Game) PlayerAction(_ context.Context, p *spades.Player, kind spades.ActionKind, payload int) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	a := Action{Seat: g.setup.SeatOf(p), Player: p, Kind: kind, Payload: payload}
	g.actions = append(g.actions, a)
	ok := g.accept == nil || g.accept(a)
	if ok {
		g.notification = fmt.Sprintf("%s: %s %d", p.Name, kind, payload)
	} else {
		g.notification = fmt.Sprintf("%s can't %s right now", p.Name, kind)
	}
	return ok, nil
}

func (g *Game) ScoreInfo(context.Context) (spades.ScoreInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Score, g.QueryErr
}

func (g *Game) TurnInfo(context.Context) (spades.TurnInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Turn, g.QueryErr
}

func (g *Game) PileInfo(context.Context) (spades.PileInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Pile, g.QueryErr
}

func (g *Game) BettingInfo(context.Context) (spades.BettingInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Betting, g.QueryErr
}

func (g *Game) Hand(_ context.Context, p *spades.Player) ([]card.Card, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.QueryErr != nil {
		return nil, g.QueryErr
	}
	if cards, ok := g.seatHands[g.setup.SeatOf(p)]; ok {
		return append([]card.Card(nil), cards...), nil
	}
	return append([]card.Card(nil), g.hands[p.ID]...), nil
}
