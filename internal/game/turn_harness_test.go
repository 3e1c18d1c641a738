package game

import (
	"testing"

	"github.com/pmquest/pmgame-server/internal/data"
	"github.com/pmquest/pmgame-server/internal/game/board"
	"github.com/pmquest/pmgame-server/internal/game/moves"
	"github.com/pmquest/pmgame-server/internal/game/outcomes"
	"github.com/pmquest/pmgame-server/internal/game/player"
	"github.com/pmquest/pmgame-server/internal/game/rules"
	"go.uber.org/zap/zaptest"
)

// TurnHarness drives a controller over the bundled board and records every
// event it publishes.
type TurnHarness struct {
	t      *testing.T
	ctx    *Context
	ctrl   *Controller
	events []rules.Event
}

// NewTurnHarness starts a game on the embedded board with the given seats.
func NewTurnHarness(t *testing.T, seats ...string) *TurnHarness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	ds, err := data.LoadEmbedded(logger)
	if err != nil {
		t.Fatalf("failed to load board: %v", err)
	}
	ctx, err := NewContext(ds, DefaultSettings(), logger)
	if err != nil {
		t.Fatalf("failed to build context: %v", err)
	}
	return newHarness(t, ctx, seats...)
}

// newCustomHarness starts a game on a hand-built board.
func newCustomHarness(t *testing.T, rows []board.SpaceRow, outcomeRows []outcomes.Row, settings Settings, seats ...string) *TurnHarness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	graph, err := board.NewGraph(rows, logger)
	if err != nil {
		t.Fatalf("failed to build graph: %v", err)
	}
	ds := &data.Dataset{
		SpaceRows:   rows,
		OutcomeRows: outcomeRows,
		Graph:       graph,
		Outcomes:    outcomes.NewTable(outcomeRows, logger),
	}
	ctx, err := NewContext(ds, settings, logger)
	if err != nil {
		t.Fatalf("failed to build context: %v", err)
	}
	return newHarness(t, ctx, seats...)
}

func newHarness(t *testing.T, ctx *Context, seats ...string) *TurnHarness {
	t.Helper()
	ctx.Dice = rules.NewFixedDice(4)

	list := make([]Seat, 0, len(seats))
	for _, id := range seats {
		list = append(list, Seat{ID: id, Name: id})
	}
	ctrl, err := NewController(ctx, "test-game", list)
	if err != nil {
		t.Fatalf("failed to start game: %v", err)
	}
	h := &TurnHarness{t: t, ctx: ctx, ctrl: ctrl}
	ctrl.Events().Subscribe(func(e rules.Event) {
		h.events = append(h.events, e)
	})
	return h
}

// Place moves the active player onto spaceID and restarts the turn there.
func (h *TurnHarness) Place(playerID, spaceID string) View {
	h.t.Helper()
	if h.ctrl.ActivePlayerID() != playerID {
		h.t.Fatalf("cannot place %s: %s is active", playerID, h.ctrl.ActivePlayerID())
	}
	h.Player(playerID).Position = spaceID
	h.ctrl.used.Clear()
	h.ctrl.startTurn()
	return h.ctrl.AvailableMoves()
}

// Player returns a seated player.
func (h *TurnHarness) Player(id string) *player.Player {
	h.t.Helper()
	p, ok := h.ctrl.Player(id)
	if !ok {
		h.t.Fatalf("unknown player %s", id)
	}
	return p
}

// Roll submits value and fails the test on error.
func (h *TurnHarness) Roll(value int) View {
	h.t.Helper()
	v, err := h.ctrl.SubmitRoll(value)
	if err != nil {
		h.t.Fatalf("roll %d: %v", value, err)
	}
	return v
}

// Move selects spaceID and ends the turn.
func (h *TurnHarness) Move(spaceID string) TurnSummary {
	h.t.Helper()
	if _, err := h.ctrl.SelectMove(spaceID); err != nil {
		h.t.Fatalf("select %s: %v", spaceID, err)
	}
	summary, err := h.ctrl.EndTurn()
	if err != nil {
		h.t.Fatalf("end turn: %v", err)
	}
	return summary
}

// EventsOf returns the recorded events of type et.
func (h *TurnHarness) EventsOf(et rules.EventType) []rules.Event {
	var out []rules.Event
	for _, e := range h.events {
		if e.Type == et {
			out = append(out, e)
		}
	}
	return out
}

func candidateIDs(cands []moves.Candidate) []string {
	ids := make([]string, 0, len(cands))
	for _, c := range cands {
		ids = append(ids, c.SpaceID)
	}
	return ids
}
