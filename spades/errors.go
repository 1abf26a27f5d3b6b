package spades

import "errors"

var (
	ErrNoGame       = errors.New("game not started")
	ErrUnknownGame  = errors.New("unknown game")
	ErrGameFinished = errors.New("game already finished")
)

// EngineError is a failure reported by the engine itself, as opposed to a
// transport problem reaching it.
type EngineError string

func (e EngineError) Error() string { return "engine: " + string(e) }
