package moves

import (
	"github.com/pmquest/pmgame-server/internal/game/board"
	"github.com/pmquest/pmgame-server/internal/game/outcomes"
	"github.com/pmquest/pmgame-server/internal/game/player"
	"go.uber.org/zap"
)

// Effects lets a handler mutate resources as part of resolution. The turn
// controller implements it and guarantees each (space, key) pair is applied
// at most once per visit.
type Effects interface {
	// ApplyFee charges the fee described by rule. It reports the amount
	// charged and whether this call applied it.
	ApplyFee(p *player.Player, space *board.Space, key, rule string) (int, bool)
}

// Request asks for the moves available to a player.
type Request struct {
	Player *player.Player
	// Roll is the current turn's die value, 0 when none has been made.
	Roll int
	// Effects is nil for side-effect free previews.
	Effects Effects
}

// Context is what strategies and special-case handlers see.
type Context struct {
	Player   *player.Player
	Space    *board.Space
	Roll     int
	Graph    *board.Graph
	Outcomes *outcomes.Table
	Visits   player.VisitTracker
	Effects  Effects

	logger      *zap.Logger
	diagnostics []error
}

// HasRoll reports whether a die has been rolled this turn.
func (c *Context) HasRoll() bool {
	return c.Roll > 0
}

// Logger returns the resolver's logger.
func (c *Context) Logger() *zap.Logger {
	return c.logger
}

// Diagnostics returns the problems recorded so far.
func (c *Context) Diagnostics() []error {
	return c.diagnostics
}

func (c *Context) dataGap(name string) {
	err := &DataGapError{Name: name, SpaceID: c.Space.ID}
	c.diagnostics = append(c.diagnostics, err)
	c.logger.Warn("successor does not resolve to a space",
		zap.String("space_id", c.Space.ID),
		zap.String("successor", name),
	)
}

// Destination cleans raw, resolves the variant from the player's history and
// returns the matching candidate. Unknown names are recorded as data gaps.
func (c *Context) Destination(raw string) (Candidate, bool) {
	name := board.CleanName(raw)
	return c.DestinationWithVariant(name, c.Visits.ResolveVariant(c.Player, name))
}

// DestinationWithVariant resolves name with a forced variant.
func (c *Context) DestinationWithVariant(name string, variant board.Variant) (Candidate, bool) {
	space, ok := c.Graph.ResolveDestination(name, variant)
	if !ok {
		c.dataGap(name)
		return Candidate{}, false
	}
	return Candidate{SpaceID: space.ID, Name: space.Name, Variant: space.Variant}, true
}

// SuccessorNames returns the cleaned, resolvable names in space's successor
// list, in order. Sentinels and explanatory entries are skipped.
func SuccessorNames(space *board.Space) []string {
	var names []string
	for _, raw := range space.Successors {
		if kind, name := board.ClassifySuccessor(raw); kind == board.SuccessorSpace {
			names = append(names, name)
		}
	}
	return names
}

// SuccessorMoves runs the generic successor walk for the current space. It
// returns a pending result when the space needs a roll that has not been made.
func (c *Context) SuccessorMoves() Result {
	var candidates []Candidate
	for _, raw := range c.Space.Successors {
		kind, name := board.ClassifySuccessor(raw)
		switch kind {
		case board.SuccessorDiceRoll:
			if !c.HasRoll() {
				return PendingRoll(c.Space)
			}
		case board.SuccessorSpace:
			if cand, ok := c.DestinationWithVariant(name, c.Visits.ResolveVariant(c.Player, name)); ok {
				candidates = appendUnique(candidates, cand)
			}
		}
	}
	return Moves(candidates)
}

// OutcomeMoves looks up the NextStep outcome for the current roll and
// resolves every alternative it lists.
func (c *Context) OutcomeMoves() []Candidate {
	if !c.HasRoll() {
		return nil
	}
	value, ok := c.Outcomes.Lookup(c.Space.Name, c.Space.Variant, outcomes.NextStep, c.Roll)
	if !ok {
		return nil
	}
	var candidates []Candidate
	for _, alt := range outcomes.SplitAlternatives(value) {
		if cand, ok := c.Destination(alt); ok {
			candidates = appendUnique(candidates, cand)
		}
	}
	return candidates
}

// Generic is the full non-special resolution: successors, then the dice
// outcome when a roll exists.
func (c *Context) Generic() Result {
	res := c.SuccessorMoves()
	if res.IsPending() {
		return res
	}
	res.Moves = appendUnique(res.Moves, c.OutcomeMoves()...)
	return res
}
