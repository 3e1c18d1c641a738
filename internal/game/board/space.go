package board

import (
	"fmt"
	"strings"

	"github.com/pmquest/pmgame-server/internal/game/cards"
)

// Variant selects which behaviour record of a named space applies.
type Variant int

const (
	// VariantFirst applies on a player's first visit to a space name.
	VariantFirst Variant = iota
	// VariantSubsequent applies on every later visit.
	VariantSubsequent
)

var variantNames = map[Variant]string{
	VariantFirst:      "FIRST",
	VariantSubsequent: "SUBSEQUENT",
}

func (v Variant) String() string {
	if name, ok := variantNames[v]; ok {
		return name
	}
	return fmt.Sprintf("VARIANT_%d", int(v))
}

// idSuffix is the lower-case token used in space ids.
func (v Variant) idSuffix() string {
	return strings.ToLower(v.String())
}

// ParseVariant reads the visit type column ("First", "Subsequent").
func ParseVariant(s string) (Variant, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FIRST", "1ST":
		return VariantFirst, nil
	case "SUBSEQUENT", "SUB", "LATER":
		return VariantSubsequent, nil
	default:
		return VariantFirst, fmt.Errorf("unknown visit type %q", s)
	}
}

// Space is one visit-variant record of a named board space. Spaces are
// immutable once the graph is built.
type Space struct {
	ID                 string
	Name               string
	Variant            Variant
	Description        string
	Successors         []string
	FeeRule            string
	TimeRule           string
	CardRules          map[cards.Type]string
	NegotiationAllowed bool
}

// CardRule returns the raw instruction for a card type, or "".
func (s *Space) CardRule(t cards.Type) string {
	if s == nil || s.CardRules == nil {
		return ""
	}
	return s.CardRules[t]
}

// SpaceRow is the shape each row of the spaces table must be parsed into
// before it is handed to NewGraph.
type SpaceRow struct {
	Name               string
	Variant            Variant
	Description        string
	Successors         []string
	Fee                string
	Time               string
	CardRules          map[cards.Type]string
	NegotiationAllowed bool
}
