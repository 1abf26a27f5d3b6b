package enginelink

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"spadesbot/card"
	"spadesbot/spades"
)

// NewGame asks the engine to start a game and returns a handle to it.
func (c *Client) NewGame(ctx context.Context, setup spades.Setup) (spades.Game, error) {
	if err := setup.Validate(); err != nil {
		return nil, err
	}
	var res newGameResult
	err := c.call(ctx, opNewGame, "", newGameArgs{
		MaxScore: setup.MaxScore,
		Teams:    toWireTeams(setup.Teams),
		Practice: setup.Practice,
	}, &res)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.Game) == "" {
		return nil, spades.EngineError("new_game returned no game id")
	}

	g := &remoteGame{
		client: c,
		id:     res.Game,
		setup:  setup,
	}
	if res.Notification != nil {
		g.notification = *res.Notification
	} else {
		g.notification = fmt.Sprintf("New game to %d: %s vs %s", setup.MaxScore, setup.Teams[0].Name, setup.Teams[1].Name)
	}
	c.log.WithField("game", g.id).Infof("game started: %s vs %s to %d",
		setup.Teams[0].Name, setup.Teams[1].Name, setup.MaxScore)
	return g, nil
}

type remoteGame struct {
	client *Client
	id     string
	setup  spades.Setup

	mu           sync.Mutex
	notification string
}

func (g *remoteGame) ID() string { return g.id }
func (g *remoteGame) MaxScore() int { return g.setup.MaxScore }
func (g *remoteGame) Teams() [2]*spades.Team { return g.setup.Teams }

func (g *remoteGame) Notification() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.notification
}

func (g *remoteGame) setNotification(n *string) {
	if n == nil {
		return
	}
	g.mu.Lock()
	g.notification = *n
	g.mu.Unlock()
}

// seat finds the seat of p. Only the handles passed in the setup are seated.
func (g *remoteGame) seat(p *spades.Player) (int, error) {
	s := g.setup.SeatOf(p)
	if s == spades.NoSeat {
		return 0, fmt.Errorf("%s is not seated in game %s", p, g.id)
	}
	return int(s), nil
}

func (g *remoteGame) PlayerAction(ctx context.Context, p *spades.Player, kind spades.ActionKind, payload int) (bool, error) {
	seat, err := g.seat(p)
	if err != nil {
		return false, err
	}
	var res actionResult
	err = g.client.call(ctx, opAction, g.id, actionArgs{
		Seat:    seat,
		Player:  p.ID,
		Kind:    strings.ToLower(kind.String()),
		Payload: payload,
	}, &res)
	if err != nil {
		return false, err
	}
	g.setNotification(res.Notification)
	return res.Accepted, nil
}

func (g *remoteGame) ScoreInfo(ctx context.Context) (spades.ScoreInfo, error) {
	var res scoreResult
	if err := g.client.call(ctx, opScore, g.id, nil, &res); err != nil {
		return spades.ScoreInfo{}, err
	}
	info := spades.ScoreInfo{Teams: make([]spades.TeamScore, 0, len(res.Teams))}
	for _, t := range res.Teams {
		info.Teams = append(info.Teams, spades.TeamScore{Name: t.Name, Score: t.Score, Overbooks: t.Overbooks})
	}
	return info, nil
}

func (g *remoteGame) TurnInfo(ctx context.Context) (spades.TurnInfo, error) {
	var res turnResult
	if err := g.client.call(ctx, opTurn, g.id, nil, &res); err != nil {
		return spades.TurnInfo{}, err
	}
	turn, err := g.player(res.Turn)
	if err != nil {
		return spades.TurnInfo{}, err
	}
	dealer, err := g.player(res.Dealer)
	if err != nil {
		return spades.TurnInfo{}, err
	}
	return spades.TurnInfo{Turn: turn, Dealer: dealer, SpadesBroken: res.SpadesBroken}, nil
}

// player maps a seat from the engine back to the seated Player.
func (g *remoteGame) player(seat *int) (*spades.Player, error) {
	if seat == nil {
		return nil, nil
	}
	p := g.setup.Player(spades.Seat(*seat))
	if p == nil {
		return nil, spades.EngineError(fmt.Sprintf("turn names unknown seat %d", *seat))
	}
	return p, nil
}

func (g *remoteGame) PileInfo(ctx context.Context) (spades.PileInfo, error) {
	var res cardsResult
	if err := g.client.call(ctx, opPile, g.id, nil, &res); err != nil {
		return spades.PileInfo{}, err
	}
	return spades.PileInfo{Cards: res.Cards}, nil
}

func (g *remoteGame) BettingInfo(ctx context.Context) (spades.BettingInfo, error) {
	var res bettingResult
	if err := g.client.call(ctx, opBetting, g.id, nil, &res); err != nil {
		return spades.BettingInfo{}, err
	}
	info := spades.BettingInfo{Teams: make([]spades.TeamBetting, 0, len(res.Teams))}
	for _, t := range res.Teams {
		tb := spades.TeamBetting{Name: t.Name, Books: t.Books, Bet: t.Bet}
		for i, p := range t.Players {
			tb.Players[i] = spades.PlayerBetting{Name: p.Name, Books: p.Books, Bet: spades.Bet(p.Bet)}
		}
		info.Teams = append(info.Teams, tb)
	}
	return info, nil
}

func (g *remoteGame) Hand(ctx context.Context, p *spades.Player) ([]card.Card, error) {
	seat, err := g.seat(p)
	if err != nil {
		return nil, err
	}
	var res cardsResult
	if err := g.client.call(ctx, opHand, g.id, playerArgs{Seat: seat, Player: p.ID}, &res); err != nil {
		return nil, err
	}
	return res.Cards, nil
}
