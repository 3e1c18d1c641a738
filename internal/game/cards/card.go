package cards

import (
	"fmt"
	"strings"
	"time"
)

// Type identifies one of the five card decks.
type Type string

const (
	// TypeWork is a work-scope card carrying a job cost estimate.
	TypeWork Type = "W"
	// TypeBank is a bank loan card.
	TypeBank Type = "B"
	// TypeInvestor is an investor funding card.
	TypeInvestor Type = "I"
	// TypeLife is a life event card.
	TypeLife Type = "L"
	// TypeExpeditor is an expeditor card.
	TypeExpeditor Type = "E"
)

// AllTypes lists the card types in their canonical column order.
var AllTypes = []Type{TypeWork, TypeBank, TypeInvestor, TypeLife, TypeExpeditor}

var typeNames = map[Type]string{
	TypeWork:      "WORK",
	TypeBank:      "BANK",
	TypeInvestor:  "INVESTOR",
	TypeLife:      "LIFE",
	TypeExpeditor: "EXPEDITOR",
}

// Name returns the long name of the card type.
func (t Type) Name() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TYPE_%s", string(t))
}

// Valid reports whether t is one of the known card types.
func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// ParseType parses a card type code ("W", "w", "W Cards").
func ParseType(s string) (Type, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}
	t := Type(s[:1])
	if !t.Valid() {
		return "", false
	}
	return t, true
}

// Card is a single drawn card. A card lives in exactly one player's hand.
type Card struct {
	ID      string            `json:"id"`
	Type    Type              `json:"type"`
	Title   string            `json:"title"`
	Cost    int               `json:"cost,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	DrawnAt time.Time         `json:"drawn_at"`
}

// Clone returns a deep copy of the card.
func (c Card) Clone() Card {
	out := c
	if c.Fields != nil {
		out.Fields = make(map[string]string, len(c.Fields))
		for k, v := range c.Fields {
			out.Fields[k] = v
		}
	}
	return out
}
