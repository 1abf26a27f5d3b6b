package spades

import (
	"context"
	"fmt"

	"spadesbot/card"
)

// Setup describes a new game for the engine. Practice games may seat one
// user more than once.
type Setup struct {
	Teams    [2]*Team
	MaxScore int
	Practice bool
}

func (s Setup) Validate() error {
	if s.MaxScore <= 0 {
		return fmt.Errorf("max score must be > 0, got %d", s.MaxScore)
	}
	seen := make(map[string]bool, 4)
	for i, t := range s.Teams {
		if t == nil {
			return fmt.Errorf("team %d is missing", i+1)
		}
		for _, p := range t.Players {
			if p == nil {
				return fmt.Errorf("team %s has an empty seat", t.Name)
			}
			if seen[p.ID] && !s.Practice {
				return fmt.Errorf("%s: %w", p.Name, ErrDuplicatePlayer)
			}
			seen[p.ID] = true
		}
	}
	return nil
}

// Seat numbers the four chairs of a game: team index times two plus the
// slot within the team. It is the only unambiguous way to name a player in
// practice games, where one user may hold two seats.
type Seat int

const NoSeat Seat = -1

// SeatOf returns the seat p occupies, matching the player handle itself
// rather than its user id.
func (s Setup) SeatOf(p *Player) Seat {
	if p == nil {
		return NoSeat
	}
	for i, t := range s.Teams {
		if t == nil {
			continue
		}
		for j, q := range t.Players {
			if q == p {
				return Seat(i*2 + j)
			}
		}
	}
	return NoSeat
}

// Player returns the player in seat, or nil.
func (s Setup) Player(seat Seat) *Player {
	if seat < 0 || seat > 3 {
		return nil
	}
	t := s.Teams[seat/2]
	if t == nil {
		return nil
	}
	return t.Players[seat%2]
}

// Engine creates games. Rules, dealing, legality and scoring live behind it.
type Engine interface {
	NewGame(ctx context.Context, setup Setup) (Game, error)
}

// Game is a running game held by the engine. Notification reflects the
// engine's latest message after every state change.
type Game interface {
	MaxScore() int
	Teams() [2]*Team
	Notification() string

	// PlayerAction submits a move. The bool reports whether the engine
	// accepted it; an illegal move is not an error.
	PlayerAction(ctx context.Context, p *Player, kind ActionKind, payload int) (bool, error)

	ScoreInfo(ctx context.Context) (ScoreInfo, error)
	TurnInfo(ctx context.Context) (TurnInfo, error)
	PileInfo(ctx context.Context) (PileInfo, error)
	BettingInfo(ctx context.Context) (BettingInfo, error)
	Hand(ctx context.Context, p *Player) ([]card.Card, error)
}
