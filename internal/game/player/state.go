package player

import (
	"sort"

	"github.com/pmquest/pmgame-server/internal/game/cards"
)

// State is the serializable form of a Player.
type State struct {
	ID                string                      `json:"id"`
	Name              string                      `json:"name"`
	Color             string                      `json:"color"`
	Position          string                      `json:"position"`
	VisitedSpaceNames []string                    `json:"visited_space_names"`
	Resources         Resources                   `json:"resources"`
	Cards             map[cards.Type][]cards.Card `json:"cards"`
	OriginalSpaces    map[string]string           `json:"original_spaces,omitempty"`
	Finished          bool                        `json:"finished,omitempty"`
	Revisiting        bool                        `json:"revisiting,omitempty"`
}

// State captures the player for persistence. Visited names are sorted so the
// encoding is deterministic.
func (p *Player) State() State {
	c := p.Clone()
	return State{
		ID:                c.ID,
		Name:              c.Name,
		Color:             c.Color,
		Position:          c.Position,
		VisitedSpaceNames: c.VisitedNames(),
		Resources:         c.Resources,
		Cards:             c.Cards,
		OriginalSpaces:    c.originalSpaces,
		Finished:          c.Finished,
		Revisiting:        c.revisiting,
	}
}

// FromState rebuilds a player from a persisted state.
func FromState(s State) *Player {
	p := New(s.ID, s.Name, s.Color, s.Position, s.Resources)
	p.Finished = s.Finished
	p.revisiting = s.Revisiting

	types := make([]cards.Type, 0, len(s.Cards))
	for t := range s.Cards {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, t := range types {
		for _, c := range s.Cards[t] {
			p.AddCards(c.Clone())
		}
	}

	for name, id := range s.OriginalSpaces {
		p.originalSpaces[name] = id
	}
	for _, name := range s.VisitedSpaceNames {
		p.visited[name] = struct{}{}
	}
	return p
}
