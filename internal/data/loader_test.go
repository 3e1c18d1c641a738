package data

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pmquest/pmgame-server/internal/game/board"
	"github.com/pmquest/pmgame-server/internal/game/cards"
	"github.com/pmquest/pmgame-server/internal/game/outcomes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestLoadEmbedded(t *testing.T) {
	ds, err := LoadEmbedded(zaptest.NewLogger(t))
	require.NoError(t, err)

	scope, err := ds.Graph.FindByID("OWNER-SCOPE-INITIATION:first")
	require.NoError(t, err)
	assert.False(t, scope.NegotiationAllowed)
	assert.Equal(t, "Draw 3", scope.CardRule(cards.TypeWork))
	assert.Equal(t, "1", scope.TimeRule)
	assert.Equal(t, []string{
		"OWNER-FUND-INITIATION",
		"PM-DECISION-CHECK - if the scope is unclear",
		"Meet with the owner to agree the scope",
	}, scope.Successors)

	arch, err := ds.Graph.FindByID("ARCH-INITIATION:first")
	require.NoError(t, err)
	assert.True(t, arch.NegotiationAllowed)
	assert.Equal(t, "$2,500", arch.FeeRule)

	value, ok := ds.Outcomes.Lookup("ARCH-SCOPE-CHECK", board.VariantFirst, outcomes.NextStep, 4)
	require.True(t, ok)
	assert.Equal(t, "CON-INITIATION or REG-FDNY-FEE-REVIEW", value)

	fee, ok := ds.Outcomes.Lookup("REG-FDNY-FEE-REVIEW", board.VariantFirst, outcomes.FeeOutcome, 3)
	require.True(t, ok)
	assert.Equal(t, "$1,000", fee)

	_, ok = ds.Outcomes.Lookup("REG-FDNY-FEE-REVIEW", board.VariantFirst, outcomes.FeeOutcome, 6)
	assert.False(t, ok, "no change is no effect")

	for _, t2 := range cards.AllTypes {
		assert.NotEmpty(t, ds.Catalog[t2], "catalog has %s templates", t2)
	}
}

func TestEmbeddedSuccessorsResolve(t *testing.T) {
	ds, err := LoadEmbedded(zaptest.NewLogger(t))
	require.NoError(t, err)

	for _, space := range ds.Graph.Spaces() {
		for _, raw := range space.Successors {
			kind, name := board.ClassifySuccessor(raw)
			if kind != board.SuccessorSpace {
				continue
			}
			assert.True(t, ds.Graph.HasName(name), "%s references unknown %s", space.ID, name)
		}
	}
	for _, row := range ds.OutcomeRows {
		if row.Category != outcomes.NextStep {
			continue
		}
		for _, v := range row.Values {
			if outcomes.IsNoEffect(v) {
				continue
			}
			for _, alt := range outcomes.SplitAlternatives(v) {
				assert.True(t, ds.Graph.HasName(board.CleanName(alt)), "%s outcome %q", row.SpaceName, alt)
			}
		}
	}
}

func TestParseSpacesSkipsMalformedRows(t *testing.T) {
	input := "\ufeffSpace Name,Visit Type,space_1,space_2,Fee,Time,W_Card,negotiate\n" +
		"A,First,B \u2013 detour,C,\"$1,000\",2,Draw 1,yes\n" +
		",First,B,,,,,\n" +
		"B,Sometimes,C,,,,,\n" +
		"B,Subsequent,,,,,,no\n" +
		"C,First\n"

	rows, err := ParseSpaces(strings.NewReader(input), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "A", rows[0].Name)
	assert.Equal(t, []string{"B - detour", "C"}, rows[0].Successors)
	assert.Equal(t, "$1,000", rows[0].Fee)
	assert.Equal(t, "2", rows[0].Time)
	assert.Equal(t, "Draw 1", rows[0].CardRules[cards.TypeWork])
	assert.True(t, rows[0].NegotiationAllowed)

	assert.Equal(t, board.VariantSubsequent, rows[1].Variant)
	assert.Empty(t, rows[1].Successors)
	assert.False(t, rows[1].NegotiationAllowed)

	assert.Equal(t, "C", rows[2].Name, "short rows are padded with blanks")
}

func TestParseSpacesRequiresColumns(t *testing.T) {
	_, err := ParseSpaces(strings.NewReader("name,visit\nA,First\n"), nil)
	assert.Error(t, err)
	_, err = ParseSpaces(strings.NewReader(""), nil)
	assert.Error(t, err)
}

func TestParseOutcomes(t *testing.T) {
	input := "space_name,visit_type,die_roll,1,2,3,4,5,6\n" +
		"A,First,Next Step,B,B,C,C,B or C,n/a\n" +
		"A,First,Weather,1,2,3,4,5,6\n" +
		"A,Subsequent,L Cards,1,,,,,\n"

	rows, err := ParseOutcomes(strings.NewReader(input), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, outcomes.NextStep, rows[0].Category)
	assert.Equal(t, "B or C", rows[0].Value(5))
	assert.Equal(t, outcomes.CardOutcome(cards.TypeLife), rows[1].Category)
	assert.Equal(t, board.VariantSubsequent, rows[1].Variant)

	_, err = ParseOutcomes(strings.NewReader("space_name,visit_type,die_roll,1,2,3\n"), nil)
	assert.Error(t, err)
}

func TestLoadFromDisk(t *testing.T) {
	dir := t.TempDir()
	spaces := filepath.Join(dir, "spaces.csv")
	require.NoError(t, os.WriteFile(spaces, []byte("space_name,visit_type,space_1\nSTART,First,END\nEND,First,\n"), 0o644))

	ds, err := Load(Paths{Spaces: spaces}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"END", "START"}, ds.Graph.Names())
	assert.NotEmpty(t, ds.OutcomeRows, "outcomes fall back to the embedded table")

	_, err = Load(Paths{Spaces: filepath.Join(dir, "missing.csv")}, nil)
	assert.Error(t, err)
}
