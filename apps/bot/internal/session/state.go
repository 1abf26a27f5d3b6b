package session

import "spadesbot/spades"

// MaxTeams is the number of teams a spades game seats.
const MaxTeams = 2

// User is a platform identity taking part in a session.
type User struct {
	ID   string
	Name string
}

// State is the roster and game of one session. It is only touched from the
// session's actor goroutine.
type State struct {
	Converter map[string]*spades.Player // user id -> player
	Teams     []*spades.Team
	Players   []*spades.Player
	Users     []User
	Game      spades.Game
}

func NewState() *State {
	s := &State{}
	s.Reset()
	return s
}

// Reset drops the roster, identity mapping and game.
func (s *State) Reset() {
	s.Converter = make(map[string]*spades.Player)
	s.Teams = nil
	s.Players = nil
	s.Users = nil
	s.Game = nil
}

// ResetForRematch keeps teams, players and the identity mapping, drops the
// game and replaces the notified users with users.
func (s *State) ResetForRematch(users []User) {
	s.Game = nil
	s.Users = append([]User(nil), users...)
}

// AddTeam seats a team and its two users. When the table already holds two
// teams everything is reset first. It reports the team count afterwards and
// whether a reset happened.
func (s *State) AddTeam(team *spades.Team, users [2]User) (count int, reset bool) {
	if len(s.Teams) >= MaxTeams {
		s.Reset()
		reset = true
	}
	s.Users = append(s.Users, users[0], users[1])
	for i, p := range team.Players {
		s.Players = append(s.Players, p)
		s.Register(users[i], p)
	}
	s.Teams = append(s.Teams, team)
	return len(s.Teams), reset
}

// HasGame reports whether a game is running. A game without two teams is
// treated as absent.
func (s *State) HasGame() bool {
	return s.Game != nil && len(s.Teams) == MaxTeams
}

// Seated reports whether the user already sits on one of the teams.
func (s *State) Seated(userID string) bool {
	for _, t := range s.Teams {
		if t.Has(userID) {
			return true
		}
	}
	return false
}
