package spades

import (
	"errors"
	"fmt"
	"strings"
)

var ErrDuplicatePlayer = errors.New("player seated twice")

// Player is the domain handle for a seated user. Hand, bet and books are
// owned by the engine and read back through snapshots.
type Player struct {
	ID   string
	Name string
}

func NewPlayer(id, name string) (*Player, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("player id must not be empty")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "user_" + id
	}
	return &Player{ID: id, Name: name}, nil
}

func (p *Player) String() string {
	if p == nil {
		return "<nobody>"
	}
	return p.Name
}

// Team is a named partnership of exactly two players.
type Team struct {
	Name    string
	Players [2]*Player
}

func NewTeam(name string, p1, p2 *Player) (*Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("team name must not be empty")
	}
	if p1 == nil || p2 == nil {
		return nil, fmt.Errorf("team %s needs two players", name)
	}
	if p1.ID == p2.ID {
		return nil, fmt.Errorf("team %s: %s: %w", name, p1.Name, ErrDuplicatePlayer)
	}
	return &Team{Name: name, Players: [2]*Player{p1, p2}}, nil
}

func (t *Team) Has(playerID string) bool {
	for _, p := range t.Players {
		if p != nil && p.ID == playerID {
			return true
		}
	}
	return false
}
