package player

import (
	"sort"

	"github.com/pmquest/pmgame-server/internal/game/cards"
)

// Resources is a player's money balance and elapsed project time in days.
// Fees lower Money; time rules raise Time.
type Resources struct {
	Money int `json:"money"`
	Time  int `json:"time"`
}

// Player is the mutable per-player game state. Position, Resources and Cards
// are only changed by the turn controller and the card draw coordinator while
// the player is current.
type Player struct {
	ID        string
	Name      string
	Color     string
	Position  string
	Resources Resources
	Cards     map[cards.Type][]cards.Card
	Finished  bool

	// originalSpaces maps a decision space name to the id of the space the
	// player occupied right before first arriving there. Entries are write-once.
	originalSpaces map[string]string
	visited        map[string]struct{}
	// revisiting is set when the move onto the current position landed on a
	// name that was already in visited.
	revisiting bool
}

// New creates a player standing on position with the given starting resources.
func New(id, name, color, position string, start Resources) *Player {
	return &Player{
		ID:             id,
		Name:           name,
		Color:          color,
		Position:       position,
		Resources:      start,
		Cards:          make(map[cards.Type][]cards.Card),
		originalSpaces: make(map[string]string),
		visited:        make(map[string]struct{}),
	}
}

// AddCards appends cards to the player's hand, grouped by type.
func (p *Player) AddCards(drawn ...cards.Card) {
	if p.Cards == nil {
		p.Cards = make(map[cards.Type][]cards.Card)
	}
	for _, c := range drawn {
		p.Cards[c.Type] = append(p.Cards[c.Type], c)
	}
}

// CardCount returns how many cards of type t the player holds.
func (p *Player) CardCount(t cards.Type) int {
	return len(p.Cards[t])
}

// TotalCards returns the size of the whole hand.
func (p *Player) TotalCards() int {
	total := 0
	for _, hand := range p.Cards {
		total += len(hand)
	}
	return total
}

// WorkCosts returns the cost estimates of every work card in hand.
func (p *Player) WorkCosts() []int {
	hand := p.Cards[cards.TypeWork]
	out := make([]int, 0, len(hand))
	for _, c := range hand {
		out = append(out, c.Cost)
	}
	return out
}

// OriginalSpace returns the recorded origin for a decision space.
func (p *Player) OriginalSpace(spaceName string) (string, bool) {
	id, ok := p.originalSpaces[spaceName]
	return id, ok
}

// SetOriginalSpace records the origin for a decision space. The first write
// wins; later calls report false and leave the entry unchanged.
func (p *Player) SetOriginalSpace(spaceName, spaceID string) bool {
	if p.originalSpaces == nil {
		p.originalSpaces = make(map[string]string)
	}
	if _, exists := p.originalSpaces[spaceName]; exists {
		return false
	}
	p.originalSpaces[spaceName] = spaceID
	return true
}

// VisitedNames returns the visited space names, sorted.
func (p *Player) VisitedNames() []string {
	names := make([]string, 0, len(p.visited))
	for name := range p.visited {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of the player.
func (p *Player) Clone() *Player {
	out := *p
	out.Cards = make(map[cards.Type][]cards.Card, len(p.Cards))
	for t, hand := range p.Cards {
		copied := make([]cards.Card, len(hand))
		for i, c := range hand {
			copied[i] = c.Clone()
		}
		out.Cards[t] = copied
	}
	out.originalSpaces = make(map[string]string, len(p.originalSpaces))
	for k, v := range p.originalSpaces {
		out.originalSpaces[k] = v
	}
	out.visited = make(map[string]struct{}, len(p.visited))
	for k := range p.visited {
		out.visited[k] = struct{}{}
	}
	return &out
}
