package spades

import (
	"errors"
	"strconv"
	"strings"
)

var ErrBetOutOfRange = errors.New("bet out of range")

// ParseBet reads a chat bid. Numbers 0..13 are numeric bids (0 is a nil bid),
// "n" is nil and "tth" is ten-for-two-hundred. Any other word is BetNone.
// Numbers outside 0..13 return BetNone together with ErrBetOutOfRange so the
// caller can reject them instead of silently passing.
func ParseBet(input string) (Bet, error) {
	input = strings.ToLower(strings.TrimSpace(input))

	if n, err := strconv.Atoi(input); err == nil {
		if n < 0 || n > MaxNumericBet {
			return BetNone, ErrBetOutOfRange
		}
		return Bet(n), nil
	}

	switch input {
	case "n":
		return BetNil, nil
	case "tth":
		return BetTenTwoHundred, nil
	}
	return BetNone, nil
}
