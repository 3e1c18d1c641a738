package outcomes

import (
	"fmt"
	"strings"

	"github.com/pmquest/pmgame-server/internal/game/cards"
)

// Kind is the broad outcome category of a dice table row.
type Kind int

const (
	KindNextStep Kind = iota
	KindTime
	KindFee
	KindCards
	KindQuality
	KindMultiplier
)

var kindNames = map[Kind]string{
	KindNextStep:   "NEXT_STEP",
	KindTime:       "TIME_OUTCOME",
	KindFee:        "FEE_OUTCOME",
	KindCards:      "CARD_OUTCOME",
	KindQuality:    "QUALITY",
	KindMultiplier: "MULTIPLIER",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("KIND_%d", int(k))
}

// Category identifies a row's meaning. CardType is set only for KindCards.
type Category struct {
	Kind     Kind
	CardType cards.Type
}

var (
	NextStep    = Category{Kind: KindNextStep}
	TimeOutcome = Category{Kind: KindTime}
	FeeOutcome  = Category{Kind: KindFee}
	Quality     = Category{Kind: KindQuality}
	Multiplier  = Category{Kind: KindMultiplier}
)

// CardOutcome returns the card-draw category for t.
func CardOutcome(t cards.Type) Category {
	return Category{Kind: KindCards, CardType: t}
}

func (c Category) String() string {
	if c.Kind == KindCards {
		return fmt.Sprintf("%s(%s)", c.Kind, c.CardType)
	}
	return c.Kind.String()
}

// ParseCategory reads the category column of the outcomes table
// ("Next Step", "Time outcomes", "Fees Paid", "W Cards", "Quality", "Multiplier").
func ParseCategory(s string) (Category, error) {
	norm := strings.ToLower(strings.Join(strings.Fields(s), " "))
	switch {
	case norm == "":
		return Category{}, fmt.Errorf("empty outcome category")
	case strings.HasPrefix(norm, "next step"):
		return NextStep, nil
	case strings.HasPrefix(norm, "time"):
		return TimeOutcome, nil
	case strings.HasPrefix(norm, "fee"):
		return FeeOutcome, nil
	case strings.HasPrefix(norm, "quality"):
		return Quality, nil
	case strings.HasPrefix(norm, "multiplier"):
		return Multiplier, nil
	case strings.HasSuffix(norm, "cards") || strings.HasSuffix(norm, "card"):
		if t, ok := cards.ParseType(norm); ok {
			return CardOutcome(t), nil
		}
	}
	return Category{}, fmt.Errorf("unknown outcome category %q", s)
}
