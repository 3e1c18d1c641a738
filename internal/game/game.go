package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/pmquest/pmgame-server/internal/game/rules"
)

// Game serializes access to one controller. Events published while an
// operation runs are delivered to the listener after the lock is released,
// in publication order, so listeners may call back into the game.
//
// revision counts successful operations. Snapshots handed out carry the
// revision they were taken at so writers can drop stale ones.
type Game struct {
	mu        sync.Mutex
	ctrl      *Controller
	createdAt time.Time
	pending   []rules.Event
	revision  uint64

	listener func(rules.Event)
	onCommit func(s *Snapshot, revision uint64)
}

func newGame(ctrl *Controller) *Game {
	g := &Game{ctrl: ctrl, createdAt: time.Now().UTC()}
	ctrl.Events().Subscribe(func(e rules.Event) {
		g.pending = append(g.pending, e)
	})
	return g
}

// ID returns the game id.
func (g *Game) ID() string {
	return g.ctrl.GameID()
}

// CreatedAt returns when the game was created or restored in this process.
func (g *Game) CreatedAt() time.Time {
	return g.createdAt
}

// HasPlayer reports whether playerID is seated in the game.
func (g *Game) HasPlayer(playerID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.ctrl.Player(playerID)
	return ok
}

// View returns the current turn view.
func (g *Game) View() View {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ctrl.AvailableMoves()
}

// Snapshot captures the game for persistence.
func (g *Game) Snapshot() *Snapshot {
	s, _ := g.capture()
	return s
}

func (g *Game) capture() (*Snapshot, uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ctrl.Snapshot(), g.revision
}

// Roll submits value for the active player. A zero value rolls the server's
// die instead.
func (g *Game) Roll(playerID string, value int) (View, error) {
	var view View
	err := g.do(playerID, func(c *Controller) error {
		var err error
		if value == 0 {
			view, err = c.RollDice()
		} else {
			view, err = c.SubmitRoll(value)
		}
		return err
	})
	return view, err
}

// SelectMove picks the active player's destination.
func (g *Game) SelectMove(playerID, spaceID string) (View, error) {
	var view View
	err := g.do(playerID, func(c *Controller) error {
		var err error
		view, err = c.SelectMove(spaceID)
		return err
	})
	return view, err
}

// Negotiate ends the active player's turn in place.
func (g *Game) Negotiate(playerID string) (TurnSummary, error) {
	var summary TurnSummary
	err := g.do(playerID, func(c *Controller) error {
		var err error
		summary, err = c.Negotiate()
		return err
	})
	return summary, err
}

// EndTurn commits the active player's turn.
func (g *Game) EndTurn(playerID string) (TurnSummary, error) {
	var summary TurnSummary
	err := g.do(playerID, func(c *Controller) error {
		var err error
		summary, err = c.EndTurn()
		return err
	})
	return summary, err
}

func (g *Game) do(playerID string, op func(c *Controller) error) error {
	g.mu.Lock()
	var err error
	var committed *Snapshot
	if active := g.ctrl.ActivePlayerID(); playerID != active {
		err = fmt.Errorf("%w: %s is to play", ErrNotYourTurn, active)
	} else {
		before := g.ctrl.TurnNumber()
		err = op(g.ctrl)
		if err == nil {
			g.revision++
		}
		if err == nil && (g.ctrl.TurnNumber() != before || g.ctrl.State() == rules.StateGameOver) && g.onCommit != nil {
			committed = g.ctrl.Snapshot()
		}
	}
	revision := g.revision
	events := g.pending
	g.pending = nil
	listener := g.listener
	onCommit := g.onCommit
	g.mu.Unlock()

	if committed != nil {
		onCommit(committed, revision)
	}
	if listener != nil {
		for _, e := range events {
			listener(e)
		}
	}
	return err
}
