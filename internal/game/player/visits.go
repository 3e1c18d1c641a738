package player

import "github.com/pmquest/pmgame-server/internal/game/board"

// VisitTracker answers visit-history questions about a player. History is
// keyed by space name, never by variant id.
type VisitTracker struct{}

// HasVisited reports whether the player has committed a move onto spaceName.
func (VisitTracker) HasVisited(p *Player, spaceName string) bool {
	if p == nil || p.visited == nil {
		return false
	}
	_, ok := p.visited[spaceName]
	return ok
}

// RecordVisit marks spaceName as visited. Recording twice is a no-op.
func (VisitTracker) RecordVisit(p *Player, spaceName string) {
	if p.visited == nil {
		p.visited = make(map[string]struct{})
	}
	p.visited[spaceName] = struct{}{}
}

// RecordArrival records a committed move onto spaceName and remembers
// whether the player had been there before.
func (vt VisitTracker) RecordArrival(p *Player, spaceName string) {
	p.revisiting = vt.HasVisited(p, spaceName)
	vt.RecordVisit(p, spaceName)
}

// Revisiting reports whether the player's current stay is a return to a
// space name visited on an earlier move.
func (VisitTracker) Revisiting(p *Player) bool {
	return p != nil && p.revisiting
}

// ResolveVariant returns SUBSEQUENT iff the name was visited before this call.
// Callers resolve before recording the visit they are about to make.
func (vt VisitTracker) ResolveVariant(p *Player, spaceName string) board.Variant {
	if vt.HasVisited(p, spaceName) {
		return board.VariantSubsequent
	}
	return board.VariantFirst
}
