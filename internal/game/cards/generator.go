package cards

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Deck hands out new cards of a given type.
type Deck interface {
	Draw(t Type) Card
}

// Generator is an infinite-supply deck. Drawing never depletes a shared pool;
// each draw synthesizes a new card from the catalog templates in rotation.
type Generator struct {
	mu      sync.Mutex
	catalog Catalog
	next    map[Type]int
	now     func() time.Time
}

// NewGenerator creates a generator over the given catalog.
func NewGenerator(catalog Catalog) *Generator {
	if catalog == nil {
		catalog = Catalog{}
	}
	return &Generator{
		catalog: catalog,
		next:    make(map[Type]int),
		now:     time.Now,
	}
}

// Draw synthesizes a card of type t. It always succeeds.
func (g *Generator) Draw(t Type) Card {
	g.mu.Lock()
	defer g.mu.Unlock()

	card := Card{
		ID:      newCardID(),
		Type:    t,
		Title:   t.Name() + " card",
		DrawnAt: g.now().UTC(),
	}

	templates := g.catalog[t]
	if len(templates) == 0 {
		return card
	}

	idx := g.next[t] % len(templates)
	g.next[t] = idx + 1

	tmpl := templates[idx]
	card.Title = tmpl.Title
	card.Cost = tmpl.Cost
	if len(tmpl.Fields) > 0 {
		card.Fields = make(map[string]string, len(tmpl.Fields))
		for k, v := range tmpl.Fields {
			card.Fields[k] = v
		}
	}
	return card
}

// newCardID returns a time-ordered UUIDv7 so ids sort by generation time.
func newCardID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
