package moves

import (
	"fmt"

	"github.com/pmquest/pmgame-server/internal/game/board"
)

// ResultKind tags what a strategy or handler produced.
type ResultKind int

const (
	// ResultDefer means "no opinion, ask the next strategy".
	ResultDefer ResultKind = iota
	// ResultMoves carries a concrete candidate list (possibly empty).
	ResultMoves
	// ResultPendingRoll means moves cannot be computed until a die is rolled.
	ResultPendingRoll
)

var resultKindNames = map[ResultKind]string{
	ResultDefer:       "DEFER",
	ResultMoves:       "MOVES",
	ResultPendingRoll: "PENDING_ROLL",
}

func (k ResultKind) String() string {
	if name, ok := resultKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("RESULT_%d", int(k))
}

// Candidate is one legal destination.
type Candidate struct {
	SpaceID string        `json:"space_id"`
	Name    string        `json:"name"`
	Variant board.Variant `json:"variant"`
	// Origin marks the synthetic "return to where you came from" move.
	Origin bool `json:"origin,omitempty"`
}

// PendingDiceRequest says which space is waiting for a roll.
type PendingDiceRequest struct {
	SpaceName string        `json:"space_name"`
	Variant   board.Variant `json:"variant"`
}

// Result is the tagged outcome of move resolution.
type Result struct {
	Kind    ResultKind
	Moves   []Candidate
	Pending *PendingDiceRequest
	// Final stops the strategy chain after this result is merged.
	Final bool
	// Diagnostics holds non-fatal problems met while resolving, such as
	// *DataGapError and *InvalidPositionError.
	Diagnostics []error
}

// Defer returns the "try the next strategy" result.
func Defer() Result {
	return Result{Kind: ResultDefer}
}

// Moves returns a move-list result.
func Moves(candidates []Candidate) Result {
	return Result{Kind: ResultMoves, Moves: candidates}
}

// PendingRoll returns a result waiting on a roll at space.
func PendingRoll(space *board.Space) Result {
	return Result{
		Kind:    ResultPendingRoll,
		Pending: &PendingDiceRequest{SpaceName: space.Name, Variant: space.Variant},
	}
}

// IsPending reports whether a roll is required.
func (r Result) IsPending() bool {
	return r.Kind == ResultPendingRoll
}

// IDs returns the candidate space ids in order.
func (r Result) IDs() []string {
	out := make([]string, 0, len(r.Moves))
	for _, c := range r.Moves {
		out = append(out, c.SpaceID)
	}
	return out
}

// Find returns the candidate for spaceID.
func (r Result) Find(spaceID string) (Candidate, bool) {
	for _, c := range r.Moves {
		if c.SpaceID == spaceID {
			return c, true
		}
	}
	return Candidate{}, false
}

// appendUnique adds candidates whose id is not yet present. The first
// occurrence wins.
func appendUnique(dst []Candidate, src ...Candidate) []Candidate {
	for _, c := range src {
		dup := false
		for _, existing := range dst {
			if existing.SpaceID == c.SpaceID {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, c)
		}
	}
	return dst
}
