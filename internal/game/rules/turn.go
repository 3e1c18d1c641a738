package rules

import (
	"fmt"
	"strings"
)

// TurnState is the turn controller's lifecycle state.
type TurnState int

const (
	StateAwaitingMoveSelection TurnState = iota
	StateAwaitingRoll
	StateRollResolved
	StateMoveConfirmed
	StateTurnCommitted
	StateGameOver
)

var turnStateNames = map[TurnState]string{
	StateAwaitingMoveSelection: "AWAITING_MOVE_SELECTION",
	StateAwaitingRoll:          "AWAITING_ROLL",
	StateRollResolved:          "ROLL_RESOLVED",
	StateMoveConfirmed:         "MOVE_CONFIRMED",
	StateTurnCommitted:         "TURN_COMMITTED",
	StateGameOver:              "GAME_OVER",
}

func (s TurnState) String() string {
	if name, ok := turnStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATE_%d", int(s))
}

// ParseTurnState is the inverse of String, used when restoring snapshots.
func ParseTurnState(s string) (TurnState, error) {
	for state, name := range turnStateNames {
		if name == strings.ToUpper(strings.TrimSpace(s)) {
			return state, nil
		}
	}
	return StateAwaitingMoveSelection, fmt.Errorf("unknown turn state %q", s)
}

// TurnManager tracks seating order, the active player and the turn ordinal.
type TurnManager struct {
	order       []string
	activeIndex int
	turnNumber  int
	state       TurnState
}

// NewTurnManager creates a manager at turn 1 with the first seat active.
func NewTurnManager(order []string) *TurnManager {
	seats := make([]string, 0, len(order))
	for _, id := range order {
		if id = strings.TrimSpace(id); id != "" {
			seats = append(seats, id)
		}
	}
	return &TurnManager{
		order:      seats,
		turnNumber: 1,
		state:      StateAwaitingMoveSelection,
	}
}

// RestoreTurnManager rebuilds a manager from persisted fields.
func RestoreTurnManager(order []string, activeIndex, turnNumber int, state TurnState) *TurnManager {
	tm := NewTurnManager(order)
	if activeIndex >= 0 && activeIndex < len(tm.order) {
		tm.activeIndex = activeIndex
	}
	if turnNumber > 0 {
		tm.turnNumber = turnNumber
	}
	tm.state = state
	return tm
}

// Order returns the seating order.
func (tm *TurnManager) Order() []string {
	out := make([]string, len(tm.order))
	copy(out, tm.order)
	return out
}

// ActivePlayer returns the player who currently has the turn.
func (tm *TurnManager) ActivePlayer() string {
	if len(tm.order) == 0 {
		return ""
	}
	return tm.order[tm.activeIndex]
}

// ActiveIndex returns the seat index of the active player.
func (tm *TurnManager) ActiveIndex() int {
	return tm.activeIndex
}

// TurnNumber returns the current turn ordinal (1-based). Every committed
// turn of every player increments it.
func (tm *TurnManager) TurnNumber() int {
	return tm.turnNumber
}

// State returns the lifecycle state.
func (tm *TurnManager) State() TurnState {
	return tm.state
}

// SetState moves the lifecycle to s.
func (tm *TurnManager) SetState(s TurnState) {
	tm.state = s
}

// Advance rotates to the next seat, wrapping, skipping seats for which skip
// returns true. It returns false when every seat is skipped; the active
// player is then left unchanged.
func (tm *TurnManager) Advance(skip func(playerID string) bool) (string, bool) {
	n := len(tm.order)
	if n == 0 {
		return "", false
	}
	for step := 1; step <= n; step++ {
		idx := (tm.activeIndex + step) % n
		if skip != nil && skip(tm.order[idx]) {
			continue
		}
		tm.activeIndex = idx
		tm.turnNumber++
		tm.state = StateAwaitingMoveSelection
		return tm.order[idx], true
	}
	return "", false
}
