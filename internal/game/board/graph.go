package board

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pmquest/pmgame-server/internal/game/cards"
	"go.uber.org/zap"
)

// ErrSpaceNotFound is returned when a space id is unknown.
var ErrSpaceNotFound = errors.New("space not found")

// Graph is the immutable set of board spaces, indexed by id and by name.
type Graph struct {
	logger *zap.Logger
	spaces []*Space
	byID   map[string]*Space
	byName map[string][]*Space
}

// NewGraph builds the graph from parsed rows. Rows keep their order; the
// first row for a name is the fallback record for that name.
func NewGraph(rows []SpaceRow, logger *zap.Logger) (*Graph, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(rows) == 0 {
		return nil, errors.New("board: no spaces")
	}

	g := &Graph{
		logger: logger,
		spaces: make([]*Space, 0, len(rows)),
		byID:   make(map[string]*Space, len(rows)),
		byName: make(map[string][]*Space),
	}

	for i, row := range rows {
		name := strings.TrimSpace(row.Name)
		if name == "" {
			return nil, fmt.Errorf("board: row %d has no space name", i)
		}

		id := SpaceID(name, row.Variant)
		if _, exists := g.byID[id]; exists {
			// Keep duplicate rows addressable instead of silently dropping them.
			dup := 2
			for {
				candidate := fmt.Sprintf("%s#%d", id, dup)
				if _, taken := g.byID[candidate]; !taken {
					id = candidate
					break
				}
				dup++
			}
			logger.Warn("duplicate space variant",
				zap.String("space_name", name),
				zap.String("variant", row.Variant.String()),
				zap.String("space_id", id),
			)
		}

		space := &Space{
			ID:                 id,
			Name:               name,
			Variant:            row.Variant,
			Description:        row.Description,
			Successors:         append([]string(nil), row.Successors...),
			FeeRule:            strings.TrimSpace(row.Fee),
			TimeRule:           strings.TrimSpace(row.Time),
			CardRules:          copyRules(row.CardRules),
			NegotiationAllowed: row.NegotiationAllowed,
		}
		g.spaces = append(g.spaces, space)
		g.byID[id] = space
		g.byName[name] = append(g.byName[name], space)
	}

	for name, records := range g.byName {
		if len(records) < 2 {
			continue
		}
		firsts := 0
		for _, s := range records {
			if s.Variant == VariantFirst {
				firsts++
			}
		}
		if firsts != 1 {
			logger.Warn("space name should have exactly one first-visit record",
				zap.String("space_name", name),
				zap.Int("records", len(records)),
				zap.Int("first_records", firsts),
			)
		}
	}

	return g, nil
}

// SpaceID builds the id of the record for name/variant.
func SpaceID(name string, variant Variant) string {
	return name + ":" + variant.idSuffix()
}

// FindByName returns every record sharing name, in load order.
func (g *Graph) FindByName(name string) []*Space {
	records := g.byName[name]
	out := make([]*Space, len(records))
	copy(out, records)
	return out
}

// FindByID returns the space with the given id.
func (g *Graph) FindByID(id string) (*Space, error) {
	if space, ok := g.byID[id]; ok {
		return space, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrSpaceNotFound, id)
}

// ResolveDestination picks the record of name matching variant. When no
// record matches exactly the first record for the name is returned; this is
// best effort and logged because it usually means a missing data row.
func (g *Graph) ResolveDestination(name string, variant Variant) (*Space, bool) {
	records := g.byName[name]
	if len(records) == 0 {
		return nil, false
	}
	for _, s := range records {
		if s.Variant == variant {
			return s, true
		}
	}

	g.logger.Warn("no exact visit variant, using first record",
		zap.String("space_name", name),
		zap.String("wanted_variant", variant.String()),
		zap.String("space_id", records[0].ID),
	)
	return records[0], true
}

// Spaces returns every record in load order.
func (g *Graph) Spaces() []*Space {
	out := make([]*Space, len(g.spaces))
	copy(out, g.spaces)
	return out
}

// Names returns the distinct space names, sorted.
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.byName))
	for name := range g.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasName reports whether any record carries name.
func (g *Graph) HasName(name string) bool {
	return len(g.byName[name]) > 0
}

func copyRules(in map[cards.Type]string) map[cards.Type]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[cards.Type]string, len(in))
	for k, v := range in {
		if strings.TrimSpace(v) == "" {
			continue
		}
		out[k] = strings.TrimSpace(v)
	}
	return out
}
