package outcomes

import (
	"testing"

	"github.com/pmquest/pmgame-server/internal/game/board"
	"github.com/pmquest/pmgame-server/internal/game/cards"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestTable(t *testing.T) *Table {
	t.Helper()
	return NewTable([]Row{
		{
			SpaceName: "ARCH-SCOPE-CHECK",
			Variant:   board.VariantFirst,
			Category:  NextStep,
			Values:    [Sides]string{"CON-INITIATION", "CON-INITIATION", "ARCH-INITIATION - redesign", "CON-INITIATION or REG-FDNY-FEE-REVIEW", "n/a", "CON-INITIATION"},
		},
		{
			SpaceName: "ARCH-SCOPE-CHECK",
			Variant:   board.VariantFirst,
			Category:  CardOutcome(cards.TypeWork),
			Values:    [Sides]string{"", "", "Draw 1", "", "", "Draw 2"},
		},
		{
			SpaceName: "ARCH-SCOPE-CHECK",
			Variant:   board.VariantSubsequent,
			Category:  TimeOutcome,
			Values:    [Sides]string{"1", "2", "3", "4", "5", "6"},
		},
	}, zaptest.NewLogger(t))
}

func TestLookup(t *testing.T) {
	table := newTestTable(t)

	value, ok := table.Lookup("ARCH-SCOPE-CHECK", board.VariantFirst, NextStep, 4)
	require.True(t, ok)
	assert.Equal(t, "CON-INITIATION or REG-FDNY-FEE-REVIEW", value)

	value, ok = table.Lookup("ARCH-SCOPE-CHECK", board.VariantFirst, CardOutcome(cards.TypeWork), 6)
	require.True(t, ok)
	assert.Equal(t, "Draw 2", value)
}

func TestLookupAbsentAndNoEffectAreTheSame(t *testing.T) {
	table := newTestTable(t)

	// "n/a" cell
	_, ok := table.Lookup("ARCH-SCOPE-CHECK", board.VariantFirst, NextStep, 5)
	assert.False(t, ok)
	// empty cell
	_, ok = table.Lookup("ARCH-SCOPE-CHECK", board.VariantFirst, CardOutcome(cards.TypeWork), 1)
	assert.False(t, ok)
	// no such row
	_, ok = table.Lookup("ARCH-SCOPE-CHECK", board.VariantFirst, FeeOutcome, 1)
	assert.False(t, ok)
	// no such space
	_, ok = table.Lookup("NOWHERE", board.VariantFirst, NextStep, 1)
	assert.False(t, ok)
	// out of range rolls
	_, ok = table.Lookup("ARCH-SCOPE-CHECK", board.VariantFirst, NextStep, 0)
	assert.False(t, ok)
	_, ok = table.Lookup("ARCH-SCOPE-CHECK", board.VariantFirst, NextStep, 7)
	assert.False(t, ok)
}

func TestRowsAndHasRows(t *testing.T) {
	table := newTestTable(t)

	rows := table.Rows("ARCH-SCOPE-CHECK", board.VariantFirst)
	require.Len(t, rows, 2)
	assert.Equal(t, NextStep, rows[0].Category)
	assert.Equal(t, CardOutcome(cards.TypeWork), rows[1].Category)

	assert.True(t, table.HasRows("ARCH-SCOPE-CHECK", board.VariantSubsequent))
	assert.False(t, table.HasRows("CON-INITIATION", board.VariantFirst))
	assert.Empty(t, table.Rows("CON-INITIATION", board.VariantFirst))

	var nilTable *Table
	assert.False(t, nilTable.HasRows("ARCH-SCOPE-CHECK", board.VariantFirst))
}

func TestDuplicateRowReplacesEarlier(t *testing.T) {
	table := NewTable([]Row{
		{SpaceName: "X", Category: Quality, Values: [Sides]string{"low"}},
		{SpaceName: "X", Category: Quality, Values: [Sides]string{"high"}},
	}, zaptest.NewLogger(t))

	value, ok := table.Lookup("X", board.VariantFirst, Quality, 1)
	require.True(t, ok)
	assert.Equal(t, "high", value)
	assert.Len(t, table.Rows("X", board.VariantFirst), 1)
}

func TestSplitAlternatives(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, SplitAlternatives("A or B"))
	assert.Equal(t, []string{"CON-INITIATION", "REG-FDNY-FEE-REVIEW - pay fee"}, SplitAlternatives("CON-INITIATION OR REG-FDNY-FEE-REVIEW - pay fee"))
	assert.Equal(t, []string{"ARCH-INITIATION"}, SplitAlternatives(" ARCH-INITIATION "))
	assert.Empty(t, SplitAlternatives(""))
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input    string
		expected Category
	}{
		{"Next Step", NextStep},
		{"next  step", NextStep},
		{"Time outcomes", TimeOutcome},
		{"Fees Paid", FeeOutcome},
		{"W Cards", CardOutcome(cards.TypeWork)},
		{"E cards", CardOutcome(cards.TypeExpeditor)},
		{"Quality", Quality},
		{"Multiplier", Multiplier},
	}
	for _, tt := range tests {
		got, err := ParseCategory(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.expected, got, tt.input)
	}

	_, err := ParseCategory("Z Cards")
	assert.Error(t, err)
	_, err = ParseCategory("")
	assert.Error(t, err)
}
