package game

import (
	"errors"
	"fmt"

	"github.com/pmquest/pmgame-server/internal/game/rules"
)

var (
	// ErrInvalidRoll is returned for die values outside 1-6.
	ErrInvalidRoll = errors.New("roll must be between 1 and 6")
	// ErrNotYourTurn is returned when a player acts out of turn.
	ErrNotYourTurn = errors.New("not your turn")
	// ErrGameNotFound is returned by the engine for unknown game ids.
	ErrGameNotFound = errors.New("game not found")
	// ErrReplayNotFound is returned when no replay is recorded or saved for
	// a game, or replays are not enabled.
	ErrReplayNotFound = errors.New("replay not found")
)

// IllegalTransitionError rejects an operation the turn state does not allow.
// The controller state is unchanged when it is returned.
type IllegalTransitionError struct {
	Op     string
	State  rules.TurnState
	Reason string
}

func (e *IllegalTransitionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s not allowed in state %s", e.Op, e.State)
	}
	return fmt.Sprintf("%s not allowed in state %s: %s", e.Op, e.State, e.Reason)
}

func illegal(op string, state rules.TurnState, reason string) error {
	return &IllegalTransitionError{Op: op, State: state, Reason: reason}
}
