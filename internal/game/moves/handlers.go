package moves

import (
	"github.com/pmquest/pmgame-server/internal/game/board"
	"github.com/pmquest/pmgame-server/internal/game/outcomes"
	"github.com/pmquest/pmgame-server/internal/game/player"
	"go.uber.org/zap"
)

// FeeOutcomeKey is the used-instruction key for a dice fee outcome. The fee
// review handler and turn commit share it so the fee is charged once.
const FeeOutcomeKey = "fee-outcome"

// SpecialSpaces names the spaces that get bespoke handlers.
type SpecialSpaces struct {
	DecisionCheck string
	FeeReview     string
	DiceGated     []string
}

// DefaultSpecialSpaces matches the bundled board data.
func DefaultSpecialSpaces() SpecialSpaces {
	return SpecialSpaces{
		DecisionCheck: "PM-DECISION-CHECK",
		FeeReview:     "REG-FDNY-FEE-REVIEW",
		DiceGated:     []string{"OWNER-FUND-INITIATION"},
	}
}

// NewDefaultRegistry registers the standard handlers under the given names.
// Blank names are skipped.
func NewDefaultRegistry(names SpecialSpaces) *Registry {
	r := NewRegistry()
	if names.DecisionCheck != "" {
		r.Register(names.DecisionCheck, DecisionCheckHandler{})
	}
	if names.FeeReview != "" {
		r.Register(names.FeeReview, FeeReviewHandler{})
	}
	for _, name := range names.DiceGated {
		if name != "" {
			r.Register(name, DiceGatedHandler{})
		}
	}
	return r
}

// DecisionCheckHandler offers the space's branches on a first visit. Later
// visits offer the same branches as subsequent visits plus a way back to the
// space the player stood on before first arriving. A return is detected from
// the player's arrival history as well as the record variant, since a name
// with only a FIRST record resolves to it on every visit.
type DecisionCheckHandler struct{}

func (DecisionCheckHandler) Handle(c *Context) Result {
	if c.Space.Variant == board.VariantFirst && !c.Visits.Revisiting(c.Player) {
		var candidates []Candidate
		for _, name := range SuccessorNames(c.Space) {
			if cand, ok := c.Destination(name); ok {
				candidates = appendUnique(candidates, cand)
			}
		}
		return Moves(candidates)
	}

	// The branch set is defined by the first-visit record.
	branches := c.Space
	if first, ok := c.Graph.ResolveDestination(c.Space.Name, board.VariantFirst); ok {
		branches = first
	}

	var candidates []Candidate
	for _, name := range SuccessorNames(branches) {
		if cand, ok := c.DestinationWithVariant(name, board.VariantSubsequent); ok {
			candidates = appendUnique(candidates, cand)
		}
	}

	originID, ok := c.Player.OriginalSpace(c.Space.Name)
	if !ok {
		c.Logger().Warn("decision space revisited without a recorded origin",
			zap.String("player_id", c.Player.ID),
			zap.String("space_id", c.Space.ID),
		)
		return Moves(candidates)
	}
	origin, err := c.Graph.FindByID(originID)
	if err != nil {
		c.dataGap(originID)
		return Moves(candidates)
	}

	for i := range candidates {
		if candidates[i].SpaceID == origin.ID {
			candidates[i].Origin = true
			return Moves(candidates)
		}
	}
	return Moves(append(candidates, Candidate{
		SpaceID: origin.ID,
		Name:    origin.Name,
		Variant: origin.Variant,
		Origin:  true,
	}))
}

// CaptureOrigin records the departure space the first time a player moves
// onto the decision space.
func (DecisionCheckHandler) CaptureOrigin(p *player.Player, from, to *board.Space) (OriginCapture, bool) {
	if from.Name == to.Name {
		return OriginCapture{}, false
	}
	var vt player.VisitTracker
	if vt.HasVisited(p, to.Name) {
		return OriginCapture{}, false
	}
	if _, recorded := p.OriginalSpace(to.Name); recorded {
		return OriginCapture{}, false
	}
	return OriginCapture{SpaceName: to.Name, OriginID: from.ID}, true
}

// FeeReviewHandler is a cost space whose dice fee must be charged before
// moves are offered.
type FeeReviewHandler struct{}

func (FeeReviewHandler) Handle(c *Context) Result {
	if !c.HasRoll() {
		return PendingRoll(c.Space)
	}
	if fee, ok := c.Outcomes.Lookup(c.Space.Name, c.Space.Variant, outcomes.FeeOutcome, c.Roll); ok && c.Effects != nil {
		if charged, applied := c.Effects.ApplyFee(c.Player, c.Space, FeeOutcomeKey, fee); applied {
			c.Logger().Info("fee review charged",
				zap.String("player_id", c.Player.ID),
				zap.String("space_id", c.Space.ID),
				zap.Int("roll", c.Roll),
				zap.Int("fee", charged),
			)
		}
	}
	return c.Generic()
}

// DiceGatedHandler requires a roll before any move is legal, whatever the
// successor data says.
type DiceGatedHandler struct{}

func (DiceGatedHandler) Handle(c *Context) Result {
	if !c.HasRoll() {
		return PendingRoll(c.Space)
	}
	return c.Generic()
}
