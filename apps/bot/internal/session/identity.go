package session

import (
	"errors"
	"regexp"

	"spadesbot/spades"
)

var ErrUnknownUser = errors.New("user is not in this game")

// mentionPattern matches a nickname mention (<@!123>) and the plain user
// mention (<@123>) newer clients send.
var mentionPattern = regexp.MustCompile(`^<@!?(\d+)>$`)

// StripMention extracts the user id from a mention token.
func StripMention(token string) (string, bool) {
	m := mentionPattern.FindStringSubmatch(token)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Register maps a platform user onto a player.
func (s *State) Register(u User, p *spades.Player) {
	s.Converter[u.ID] = p
}

// Resolve returns the player a user was registered as.
func (s *State) Resolve(userID string) (*spades.Player, error) {
	p, ok := s.Converter[userID]
	if !ok {
		return nil, ErrUnknownUser
	}
	return p, nil
}

// DistinctUsers is the number of users with a player mapping.
func (s *State) DistinctUsers() int {
	return len(s.Converter)
}
