package board

import (
	"errors"
	"testing"

	"github.com/pmquest/pmgame-server/internal/game/cards"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testRows() []SpaceRow {
	return []SpaceRow{
		{
			Name:       "OWNER-SCOPE-INITIATION",
			Variant:    VariantFirst,
			Successors: []string{"OWNER-FUND-INITIATION", "PM-DECISION-CHECK - if scope is unclear"},
			Time:       " 1 ",
			CardRules:  map[cards.Type]string{cards.TypeWork: "Draw 3", cards.TypeBank: "  "},
		},
		{
			Name:       "OWNER-SCOPE-INITIATION",
			Variant:    VariantSubsequent,
			Successors: []string{"OWNER-FUND-INITIATION"},
		},
		{
			Name:       "PM-DECISION-CHECK",
			Variant:    VariantFirst,
			Successors: []string{"OWNER-SCOPE-INITIATION"},
		},
		{
			Name:       "OWNER-FUND-INITIATION",
			Variant:    VariantSubsequent,
			Successors: []string{"Outcome from rolled dice"},
		},
	}
}

func TestNewGraphIndexesSpaces(t *testing.T) {
	g, err := NewGraph(testRows(), zaptest.NewLogger(t))
	require.NoError(t, err)

	records := g.FindByName("OWNER-SCOPE-INITIATION")
	require.Len(t, records, 2)
	assert.Equal(t, "OWNER-SCOPE-INITIATION:first", records[0].ID)
	assert.Equal(t, "OWNER-SCOPE-INITIATION:subsequent", records[1].ID)
	assert.Equal(t, "1", records[0].TimeRule)
	assert.Equal(t, "Draw 3", records[0].CardRule(cards.TypeWork))
	assert.Equal(t, "", records[0].CardRule(cards.TypeBank), "blank rules are dropped")

	space, err := g.FindByID("PM-DECISION-CHECK:first")
	require.NoError(t, err)
	assert.Equal(t, "PM-DECISION-CHECK", space.Name)

	assert.Equal(t, []string{"OWNER-FUND-INITIATION", "OWNER-SCOPE-INITIATION", "PM-DECISION-CHECK"}, g.Names())
	assert.Empty(t, g.FindByName("NOWHERE"))
}

func TestFindByIDNotFound(t *testing.T) {
	g, err := NewGraph(testRows(), nil)
	require.NoError(t, err)

	_, err = g.FindByID("NOWHERE:first")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSpaceNotFound))
}

func TestResolveDestination(t *testing.T) {
	g, err := NewGraph(testRows(), zaptest.NewLogger(t))
	require.NoError(t, err)

	first, ok := g.ResolveDestination("OWNER-SCOPE-INITIATION", VariantFirst)
	require.True(t, ok)
	assert.Equal(t, VariantFirst, first.Variant)

	sub, ok := g.ResolveDestination("OWNER-SCOPE-INITIATION", VariantSubsequent)
	require.True(t, ok)
	assert.Equal(t, VariantSubsequent, sub.Variant)

	// Only a first-visit record exists; the subsequent lookup falls back to it.
	fallback, ok := g.ResolveDestination("PM-DECISION-CHECK", VariantSubsequent)
	require.True(t, ok)
	assert.Equal(t, "PM-DECISION-CHECK:first", fallback.ID)

	// Only a subsequent record exists; the first-visit lookup falls back to it.
	fund, ok := g.ResolveDestination("OWNER-FUND-INITIATION", VariantFirst)
	require.True(t, ok)
	assert.Equal(t, "OWNER-FUND-INITIATION:subsequent", fund.ID)

	_, ok = g.ResolveDestination("NOWHERE", VariantFirst)
	assert.False(t, ok)
}

func TestNewGraphDuplicateVariantGetsDistinctID(t *testing.T) {
	rows := append(testRows(), SpaceRow{Name: "PM-DECISION-CHECK", Variant: VariantFirst})
	g, err := NewGraph(rows, zaptest.NewLogger(t))
	require.NoError(t, err)

	records := g.FindByName("PM-DECISION-CHECK")
	require.Len(t, records, 2)
	assert.Equal(t, "PM-DECISION-CHECK:first#2", records[1].ID)
}

func TestNewGraphRejectsBadInput(t *testing.T) {
	_, err := NewGraph(nil, nil)
	assert.Error(t, err)

	_, err = NewGraph([]SpaceRow{{Name: "  "}}, nil)
	assert.Error(t, err)
}

func TestClassifySuccessor(t *testing.T) {
	tests := []struct {
		raw  string
		kind SuccessorKind
		name string
	}{
		{"", SuccessorBlank, ""},
		{"   ", SuccessorBlank, ""},
		{"ARCH-INITIATION", SuccessorSpace, "ARCH-INITIATION"},
		{"PM-DECISION-CHECK - if scope is unclear", SuccessorSpace, "PM-DECISION-CHECK"},
		{"CON-INITIATION - roll dice later", SuccessorSpace, "CON-INITIATION"},
		{"ARCH-SCOPE-CHECK - negotiate the design fee", SuccessorSpace, "ARCH-SCOPE-CHECK"},
		{"Outcome from rolled dice", SuccessorDiceRoll, ""},
		{"Roll dice for the review fee", SuccessorDiceRoll, ""},
		{"Roll dice to see where you go", SuccessorDiceRoll, ""},
		{"Depends on visit history", SuccessorVisitHistory, ""},
		{"Negotiate for a better price", SuccessorNegotiation, ""},
		{"You may negotiate with the architect", SuccessorNegotiation, ""},
		{"Review the scope with the owner", SuccessorExplanatory, ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			kind, name := ClassifySuccessor(tt.raw)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestCleanNameKeepsInnerDashes(t *testing.T) {
	assert.Equal(t, "REG-FDNY-FEE-REVIEW", CleanName("REG-FDNY-FEE-REVIEW"))
	assert.Equal(t, "CON-INITIATION", CleanName(" CON-INITIATION - rework "))
}

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant("First")
	require.NoError(t, err)
	assert.Equal(t, VariantFirst, v)

	v, err = ParseVariant("subsequent")
	require.NoError(t, err)
	assert.Equal(t, VariantSubsequent, v)

	_, err = ParseVariant("sometimes")
	assert.Error(t, err)
}

func TestRequiresDiceRoll(t *testing.T) {
	g, err := NewGraph(testRows(), nil)
	require.NoError(t, err)

	fund, err := g.FindByID("OWNER-FUND-INITIATION:subsequent")
	require.NoError(t, err)
	assert.True(t, fund.RequiresDiceRoll())

	scope, err := g.FindByID("OWNER-SCOPE-INITIATION:first")
	require.NoError(t, err)
	assert.False(t, scope.RequiresDiceRoll())
}
