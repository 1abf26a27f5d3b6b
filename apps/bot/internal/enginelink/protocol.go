package enginelink

import (
	"encoding/json"
	"errors"
	"strings"

	"spadesbot/card"
	"spadesbot/spades"
)

const (
	opNewGame = "new_game"
	opAction  = "action"
	opScore   = "score"
	opTurn    = "turn"
	opPile    = "pile"
	opBetting = "betting"
	opHand    = "hand"
)

// request is one frame sent to the engine. Game is empty for new_game.
type request struct {
	ID   string          `json:"id"`
	Op   string          `json:"op"`
	Game string          `json:"game,omitempty"`
	Args json.RawMessage `json:"args,omitempty"`
}

// response answers the request with the same ID.
type response struct {
	ID     string          `json:"id"`
	OK     bool            `json:"ok"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

type wirePlayer struct {
	Seat int    `json:"seat"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

type wireTeam struct {
	Name    string        `json:"name"`
	Players [2]wirePlayer `json:"players"`
}

type newGameArgs struct {
	MaxScore int        `json:"max_score"`
	Teams    []wireTeam `json:"teams"`
	Practice bool       `json:"practice,omitempty"`
}

type newGameResult struct {
	Game         string  `json:"game"`
	Notification *string `json:"notification,omitempty"`
}

type actionArgs struct {
	Seat    int    `json:"seat"`
	Player  string `json:"player"`
	Kind    string `json:"kind"`
	Payload int    `json:"payload"`
}

type actionResult struct {
	Accepted     bool    `json:"accepted"`
	Notification *string `json:"notification,omitempty"`
}

type playerArgs struct {
	Seat   int    `json:"seat"`
	Player string `json:"player"`
}

type scoreResult struct {
	Teams []struct {
		Name      string `json:"name"`
		Score     int    `json:"score"`
		Overbooks int    `json:"overbooks"`
	} `json:"teams"`
}

// turnResult names players by seat. Nil seats mean nobody.
type turnResult struct {
	Turn         *int `json:"turn"`
	Dealer       *int `json:"dealer"`
	SpadesBroken bool `json:"spades_broken"`
}

type cardsResult struct {
	Cards []card.Card `json:"cards"`
}

type bettingPlayer struct {
	Name  string `json:"name"`
	Books int    `json:"books"`
	Bet   int    `json:"bet"`
}

type bettingResult struct {
	Teams []struct {
		Name    string           `json:"name"`
		Books   int              `json:"books"`
		Bet     int              `json:"bet"`
		Players [2]bettingPlayer `json:"players"`
	} `json:"teams"`
}

func toWireTeams(teams [2]*spades.Team) []wireTeam {
	out := make([]wireTeam, 0, len(teams))
	for i, t := range teams {
		wt := wireTeam{Name: t.Name}
		for j, p := range t.Players {
			wt.Players[j] = wirePlayer{Seat: i*2 + j, ID: p.ID, Name: p.Name}
		}
		out = append(out, wt)
	}
	return out
}

// engineError maps an error string from the engine to the matching sentinel
// so callers can test with errors.Is.
func engineError(msg string) error {
	msg = strings.TrimSpace(msg)
	switch strings.ToLower(msg) {
	case "unknown game", "unknown_game":
		return spades.ErrUnknownGame
	case "game finished", "game_finished", "game already finished":
		return spades.ErrGameFinished
	case "":
		return spades.EngineError("request failed")
	}
	return spades.EngineError(msg)
}

var errUnexpectedFrame = errors.New("unexpected frame")
