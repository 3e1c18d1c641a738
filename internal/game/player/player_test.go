package player

import (
	"testing"

	"github.com/pmquest/pmgame-server/internal/game/board"
	"github.com/pmquest/pmgame-server/internal/game/cards"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveVariantFlipsAfterRecordVisit(t *testing.T) {
	var vt VisitTracker
	p := New("p1", "Alice", "red", "OWNER-SCOPE-INITIATION:first", Resources{})

	assert.False(t, vt.HasVisited(p, "X"))
	assert.Equal(t, board.VariantFirst, vt.ResolveVariant(p, "X"))

	vt.RecordVisit(p, "X")
	assert.True(t, vt.HasVisited(p, "X"))
	assert.Equal(t, board.VariantSubsequent, vt.ResolveVariant(p, "X"))

	vt.RecordVisit(p, "X")
	assert.Equal(t, []string{"X"}, p.VisitedNames(), "recording twice is a no-op")

	assert.Equal(t, board.VariantFirst, vt.ResolveVariant(p, "Y"), "history is per name")
}

func TestRecordArrivalTracksReturns(t *testing.T) {
	var vt VisitTracker
	p := New("p1", "Alice", "red", "START:first", Resources{})
	vt.RecordVisit(p, "START")
	assert.False(t, vt.Revisiting(p))

	vt.RecordArrival(p, "DECIDE")
	assert.False(t, vt.Revisiting(p), "first arrival")
	vt.RecordArrival(p, "LEFT")
	assert.False(t, vt.Revisiting(p))
	vt.RecordArrival(p, "DECIDE")
	assert.True(t, vt.Revisiting(p), "second arrival on the same name")

	restored := FromState(p.State())
	assert.True(t, vt.Revisiting(restored))
	assert.True(t, vt.Revisiting(p.Clone()))

	vt.RecordArrival(p, "RIGHT")
	assert.False(t, vt.Revisiting(p))
	assert.False(t, vt.Revisiting(nil))
}

func TestVisitTrackerNilPlayer(t *testing.T) {
	var vt VisitTracker
	assert.False(t, vt.HasVisited(nil, "X"))
	assert.Equal(t, board.VariantFirst, vt.ResolveVariant(nil, "X"))
}

func TestOriginalSpaceIsWriteOnce(t *testing.T) {
	p := New("p1", "Alice", "red", "", Resources{})

	_, ok := p.OriginalSpace("PM-DECISION-CHECK")
	assert.False(t, ok)

	assert.True(t, p.SetOriginalSpace("PM-DECISION-CHECK", "OWNER-SCOPE-INITIATION:first"))
	assert.False(t, p.SetOriginalSpace("PM-DECISION-CHECK", "ARCH-INITIATION:first"))

	id, ok := p.OriginalSpace("PM-DECISION-CHECK")
	require.True(t, ok)
	assert.Equal(t, "OWNER-SCOPE-INITIATION:first", id)
}

func TestAddCardsAndWorkCosts(t *testing.T) {
	p := New("p1", "Alice", "red", "", Resources{})
	p.AddCards(
		cards.Card{ID: "w1", Type: cards.TypeWork, Cost: 100000},
		cards.Card{ID: "b1", Type: cards.TypeBank},
		cards.Card{ID: "w2", Type: cards.TypeWork, Cost: 50000},
	)

	assert.Equal(t, 2, p.CardCount(cards.TypeWork))
	assert.Equal(t, 1, p.CardCount(cards.TypeBank))
	assert.Equal(t, 0, p.CardCount(cards.TypeLife))
	assert.Equal(t, 3, p.TotalCards())
	assert.Equal(t, []int{100000, 50000}, p.WorkCosts())
}

func TestCloneIsDeep(t *testing.T) {
	var vt VisitTracker
	p := New("p1", "Alice", "red", "A:first", Resources{Money: 10})
	p.AddCards(cards.Card{ID: "w1", Type: cards.TypeWork, Fields: map[string]string{"job": "roof"}})
	vt.RecordVisit(p, "A")
	p.SetOriginalSpace("D", "A:first")

	c := p.Clone()
	c.Resources.Money = 99
	c.Cards[cards.TypeWork][0].Fields["job"] = "walls"
	c.AddCards(cards.Card{ID: "w2", Type: cards.TypeWork})
	vt.RecordVisit(c, "B")
	c.SetOriginalSpace("E", "B:first")

	assert.Equal(t, 10, p.Resources.Money)
	assert.Equal(t, "roof", p.Cards[cards.TypeWork][0].Fields["job"])
	assert.Equal(t, 1, p.CardCount(cards.TypeWork))
	assert.False(t, vt.HasVisited(p, "B"))
	_, ok := p.OriginalSpace("E")
	assert.False(t, ok)
}

func TestStateRoundTrip(t *testing.T) {
	var vt VisitTracker
	p := New("p1", "Alice", "red", "ARCH-INITIATION:first", Resources{Money: 2500, Time: 6})
	p.AddCards(cards.Card{ID: "w1", Type: cards.TypeWork, Cost: 1000})
	vt.RecordVisit(p, "OWNER-SCOPE-INITIATION")
	vt.RecordVisit(p, "ARCH-INITIATION")
	p.SetOriginalSpace("PM-DECISION-CHECK", "OWNER-SCOPE-INITIATION:first")
	p.Finished = true

	state := p.State()
	assert.Equal(t, []string{"ARCH-INITIATION", "OWNER-SCOPE-INITIATION"}, state.VisitedSpaceNames)

	restored := FromState(state)
	assert.Equal(t, p.Position, restored.Position)
	assert.Equal(t, p.Resources, restored.Resources)
	assert.True(t, restored.Finished)
	assert.True(t, vt.HasVisited(restored, "ARCH-INITIATION"))
	assert.Equal(t, 1, restored.CardCount(cards.TypeWork))
	id, ok := restored.OriginalSpace("PM-DECISION-CHECK")
	require.True(t, ok)
	assert.Equal(t, "OWNER-SCOPE-INITIATION:first", id)
}
