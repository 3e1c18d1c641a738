package game

import (
	"testing"

	"github.com/pmquest/pmgame-server/internal/game/cards"
	"github.com/pmquest/pmgame-server/internal/game/rules"
	"github.com/pmquest/pmgame-server/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, h *TurnHarness) *Controller {
	t.Helper()
	data, err := MarshalSnapshot(h.ctrl.Snapshot())
	require.NoError(t, err)
	s, err := UnmarshalSnapshot(data)
	require.NoError(t, err)
	restored, err := RestoreController(h.ctx, s)
	require.NoError(t, err)
	return restored
}

func TestSnapshotChecksumIsDeterministic(t *testing.T) {
	h := NewTurnHarness(t, "alice", "bob")
	h.Move("PM-DECISION-CHECK:first")

	first := h.ctrl.Snapshot()
	second := h.ctrl.Snapshot()
	assert.NotEmpty(t, first.Checksum)
	assert.Equal(t, first.Checksum, second.Checksum)
	assert.NoError(t, first.VerifyChecksum())

	h.Move("OWNER-FUND-INITIATION:first")
	assert.NotEqual(t, first.Checksum, h.ctrl.Snapshot().Checksum)
}

func TestSnapshotDetectsTampering(t *testing.T) {
	h := NewTurnHarness(t, "alice")
	h.Move("OWNER-FUND-INITIATION:first")

	s := h.ctrl.Snapshot()
	s.Players[0].Resources.Money += 50000
	_, err := RestoreController(h.ctx, s)
	assert.ErrorIs(t, err, ErrChecksumMismatch)

	data, err := MarshalSnapshot(s)
	require.NoError(t, err)
	_, err = UnmarshalSnapshot(data)
	assert.ErrorIs(t, err, ErrChecksumMismatch)

	s.Checksum = ""
	_, err = RestoreController(h.ctx, s)
	assert.NoError(t, err, "snapshots without a checksum are trusted")

	s = h.ctrl.Snapshot()
	s.Version = SnapshotVersion + 1
	_, err = RestoreController(h.ctx, s)
	assert.Error(t, err)
}

func TestRestoreMidTurnDoesNotRepeatEffects(t *testing.T) {
	h := NewTurnHarness(t, "alice")
	h.Place("alice", "REG-FDNY-FEE-REVIEW:first")
	h.Roll(3)
	require.Equal(t, -1000, h.Player("alice").Resources.Money)

	restored := roundTrip(t, h)
	assert.Equal(t, rules.StateAwaitingMoveSelection, restored.State())
	alice, ok := restored.Player("alice")
	require.True(t, ok)
	assert.Equal(t, -1000, alice.Resources.Money, "the fee review is not charged again")

	v := restored.AvailableMoves()
	assert.Equal(t, 3, v.Roll)
	assert.Equal(t, []string{"CON-INITIATION:first", "PM-DECISION-CHECK:first"}, candidateIDs(v.Moves))

	_, err := restored.SelectMove("CON-INITIATION:first")
	require.NoError(t, err)
	summary, err := restored.EndTurn()
	require.NoError(t, err)
	assert.Equal(t, -1000, summary.MoneyDelta)
	assert.Equal(t, 5, summary.TimeDelta)
	assert.Equal(t, -1000, alice.Resources.Money)
}

func TestRestoreKeepsRolledDraws(t *testing.T) {
	h := NewTurnHarness(t, "alice")
	h.Place("alice", "OWNER-FUND-INITIATION:first")
	h.Roll(2)
	require.Equal(t, 1, h.Player("alice").CardCount(cards.TypeBank))

	restored := roundTrip(t, h)
	_, err := restored.SelectMove("ARCH-INITIATION:first")
	require.NoError(t, err)
	summary, err := restored.EndTurn()
	require.NoError(t, err)

	alice, _ := restored.Player("alice")
	assert.Equal(t, 1, alice.CardCount(cards.TypeBank), "the ledger survives the restore")
	assert.Len(t, summary.Cards, 1)
}

func TestRestorePendingRoll(t *testing.T) {
	h := NewTurnHarness(t, "alice")
	h.Place("alice", "ARCH-SCOPE-CHECK:first")

	restored := roundTrip(t, h)
	assert.Equal(t, rules.StateAwaitingRoll, restored.State())
	v, err := restored.SubmitRoll(6)
	require.NoError(t, err)
	assert.Equal(t, []string{"CON-INITIATION:first"}, candidateIDs(v.Moves))
}

func TestRestoreConfirmedMoveKeepsOriginCapture(t *testing.T) {
	h := NewTurnHarness(t, "alice")
	_, err := h.ctrl.SelectMove("PM-DECISION-CHECK:first")
	require.NoError(t, err)

	restored := roundTrip(t, h)
	assert.Equal(t, rules.StateMoveConfirmed, restored.State())
	assert.Equal(t, "PM-DECISION-CHECK:first", restored.AvailableMoves().Selected)

	_, err = restored.EndTurn()
	require.NoError(t, err)
	alice, _ := restored.Player("alice")
	origin, ok := alice.OriginalSpace("PM-DECISION-CHECK")
	require.True(t, ok)
	assert.Equal(t, "OWNER-SCOPE-INITIATION:first", origin)
}

func TestRestoreFinishedGame(t *testing.T) {
	h := NewTurnHarness(t, "alice")
	h.Place("alice", "CON-INSPECTION:first")
	h.Roll(4)
	h.Move("FINISH:first")
	require.Equal(t, rules.StateGameOver, h.ctrl.State())

	restored := roundTrip(t, h)
	assert.Equal(t, rules.StateGameOver, restored.State())
	last, ok := restored.LastSummary()
	require.True(t, ok)
	assert.True(t, last.Finished)
}

func TestSnapshotMatchesStoredSchema(t *testing.T) {
	h := NewTurnHarness(t, "alice", "bob")
	h.Move("PM-DECISION-CHECK:first")
	_, err := h.ctrl.SelectMove("OWNER-FUND-INITIATION:first")
	require.NoError(t, err)

	codec, err := store.NewCodec(true)
	require.NoError(t, err)
	defer codec.Close()

	data, err := MarshalSnapshot(h.ctrl.Snapshot())
	require.NoError(t, err)
	assert.NoError(t, codec.Validate(data))
}
