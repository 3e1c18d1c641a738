package outcomes

import (
	"regexp"
	"strings"

	"github.com/pmquest/pmgame-server/internal/game/board"
	"go.uber.org/zap"
)

// Sides is the number of faces on the game die.
const Sides = 6

// Row is one dice outcome row: the value for each roll 1..6 of a
// (space, variant, category) triple.
type Row struct {
	SpaceName string
	Variant   board.Variant
	Category  Category
	Values    [Sides]string
}

// Value returns the cell for roll, or "" when roll is out of range.
func (r Row) Value(roll int) string {
	if roll < 1 || roll > Sides {
		return ""
	}
	return r.Values[roll-1]
}

type rowKey struct {
	name     string
	variant  board.Variant
	category Category
}

type spaceKey struct {
	name    string
	variant board.Variant
}

// Table indexes outcome rows by (space name, variant, category).
type Table struct {
	rows    map[rowKey]Row
	bySpace map[spaceKey][]rowKey
}

// NewTable indexes rows. A later row for the same triple replaces the earlier one.
func NewTable(rows []Row, logger *zap.Logger) *Table {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Table{
		rows:    make(map[rowKey]Row, len(rows)),
		bySpace: make(map[spaceKey][]rowKey),
	}
	for _, row := range rows {
		key := rowKey{name: row.SpaceName, variant: row.Variant, category: row.Category}
		if _, exists := t.rows[key]; exists {
			logger.Warn("duplicate outcome row replaced",
				zap.String("space_name", row.SpaceName),
				zap.String("variant", row.Variant.String()),
				zap.String("category", row.Category.String()),
			)
		} else {
			sk := spaceKey{name: row.SpaceName, variant: row.Variant}
			t.bySpace[sk] = append(t.bySpace[sk], key)
		}
		t.rows[key] = row
	}
	return t
}

// Rows returns every row for a space variant in load order.
func (t *Table) Rows(spaceName string, variant board.Variant) []Row {
	if t == nil {
		return nil
	}
	keys := t.bySpace[spaceKey{name: spaceName, variant: variant}]
	out := make([]Row, 0, len(keys))
	for _, k := range keys {
		out = append(out, t.rows[k])
	}
	return out
}

// HasRows reports whether the space variant has any dice outcomes.
func (t *Table) HasRows(spaceName string, variant board.Variant) bool {
	if t == nil {
		return false
	}
	return len(t.bySpace[spaceKey{name: spaceName, variant: variant}]) > 0
}

// Lookup returns the outcome for a roll. A missing row and a "no effect"
// cell both report ok == false.
func (t *Table) Lookup(spaceName string, variant board.Variant, category Category, roll int) (string, bool) {
	if t == nil || roll < 1 || roll > Sides {
		return "", false
	}
	row, ok := t.rows[rowKey{name: spaceName, variant: variant, category: category}]
	if !ok {
		return "", false
	}
	value := strings.TrimSpace(row.Value(roll))
	if IsNoEffect(value) {
		return "", false
	}
	return value, true
}

// IsNoEffect reports whether a cell means "nothing happens".
func IsNoEffect(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "n/a", "na", "-", "none", "no change", "no effect":
		return true
	}
	return false
}

var alternativeSeparator = regexp.MustCompile(`(?i)\s+or\s+`)

// SplitAlternatives splits "A or B" into its alternatives, dropping blanks.
func SplitAlternatives(value string) []string {
	parts := alternativeSeparator.Split(strings.TrimSpace(value), -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
