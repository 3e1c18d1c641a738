package game

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/pmquest/pmgame-server/internal/game/cards"
	"github.com/pmquest/pmgame-server/internal/game/draws"
	"github.com/pmquest/pmgame-server/internal/game/moves"
	"github.com/pmquest/pmgame-server/internal/game/player"
	"github.com/pmquest/pmgame-server/internal/game/rules"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// SnapshotVersion is bumped whenever the snapshot layout changes.
const SnapshotVersion = 1

// ErrChecksumMismatch is returned when a snapshot's content does not match
// its recorded checksum.
var ErrChecksumMismatch = errors.New("snapshot checksum mismatch")

// Snapshot is everything needed to resume a game: the players, the turn
// position and the transient state of the turn in progress, including the
// idempotency records that stop effects from firing twice.
type Snapshot struct {
	Version       int                  `json:"version"`
	GameID        string               `json:"game_id"`
	Order         []string             `json:"order"`
	ActiveIndex   int                  `json:"active_index"`
	TurnNumber    int                  `json:"turn_number"`
	State         string               `json:"state"`
	Players       []player.State       `json:"players"`
	Roll          int                  `json:"roll,omitempty"`
	Selected      string               `json:"selected,omitempty"`
	PendingOrigin *moves.OriginCapture `json:"pending_origin,omitempty"`
	Used          []string             `json:"used,omitempty"`
	Ledger        []draws.Entry        `json:"ledger,omitempty"`
	Summary       TurnSummary          `json:"summary"`
	LastTurn      *TurnSummary         `json:"last_turn,omitempty"`
	Timestamp     time.Time            `json:"timestamp"`
	Checksum      string               `json:"checksum,omitempty"`
}

// Snapshot captures the controller. The result shares no memory with it.
func (c *Controller) Snapshot() *Snapshot {
	s := &Snapshot{
		Version:     SnapshotVersion,
		GameID:      c.gameID,
		Order:       c.turns.Order(),
		ActiveIndex: c.turns.ActiveIndex(),
		TurnNumber:  c.turns.TurnNumber(),
		State:       c.turns.State().String(),
		Roll:        c.roll,
		Selected:    c.selected,
		Used:        c.used.Keys(),
		Ledger:      c.coordinator.Ledger().Entries(),
		Summary:     c.summary,
		Timestamp:   time.Now().UTC(),
	}
	for _, p := range c.Players() {
		s.Players = append(s.Players, p.State())
	}
	if c.pendingOrigin != nil {
		origin := *c.pendingOrigin
		s.PendingOrigin = &origin
	}
	if c.lastSummary != nil {
		last := *c.lastSummary
		s.LastTurn = &last
	}
	s.Checksum = s.ComputeChecksum()
	return s
}

// RestoreController rebuilds a controller from a snapshot taken on the same
// board. The checksum is verified when present.
func RestoreController(ctx *Context, s *Snapshot) (*Controller, error) {
	if ctx == nil || s == nil {
		return nil, errors.New("restore: context and snapshot are required")
	}
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("restore: unsupported snapshot version %d", s.Version)
	}
	if err := s.VerifyChecksum(); err != nil {
		return nil, fmt.Errorf("restore %s: %w", s.GameID, err)
	}
	state, err := rules.ParseTurnState(s.State)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", s.GameID, err)
	}

	c := newController(ctx, s.GameID)
	for _, ps := range s.Players {
		c.players[ps.ID] = player.FromState(ps)
	}
	for _, id := range s.Order {
		if _, ok := c.players[id]; !ok {
			return nil, fmt.Errorf("restore %s: seat %s has no player state", s.GameID, id)
		}
	}
	c.turns = rules.RestoreTurnManager(s.Order, s.ActiveIndex, s.TurnNumber, state)
	c.used = rules.RestoreUsedInstructions(s.Used)
	c.coordinator.SetLedger(draws.RestoreLedger(s.Ledger))
	c.summary = s.Summary
	if s.LastTurn != nil {
		last := *s.LastTurn
		c.lastSummary = &last
	}

	if state == rules.StateGameOver {
		return c, nil
	}

	c.roll = s.Roll
	if s.PendingOrigin != nil {
		origin := *s.PendingOrigin
		c.pendingOrigin = &origin
	}
	c.resolve()

	switch {
	case c.result.IsPending():
		c.turns.SetState(rules.StateAwaitingRoll)
	case state == rules.StateMoveConfirmed:
		if _, ok := c.result.Find(s.Selected); ok {
			c.selected = s.Selected
		} else {
			c.logger.Warn("selected move no longer available after restore", zap.String("selected", s.Selected))
			c.pendingOrigin = nil
			c.turns.SetState(rules.StateAwaitingMoveSelection)
		}
	default:
		c.turns.SetState(rules.StateAwaitingMoveSelection)
	}

	c.logger.Info("game restored",
		zap.Int("turn", c.turns.TurnNumber()),
		zap.String("state", c.turns.State().String()),
	)
	return c, nil
}

// ComputeChecksum returns a BLAKE2b-256 digest of the snapshot's
// deterministic representation. Timestamp and Checksum are excluded.
func (s *Snapshot) ComputeChecksum() string {
	sum := blake2b.Sum256([]byte(s.buildDeterministicRepresentation()))
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum reports ErrChecksumMismatch when the recorded checksum does
// not match the content. An empty checksum is accepted.
func (s *Snapshot) VerifyChecksum() error {
	if s.Checksum == "" {
		return nil
	}
	if got := s.ComputeChecksum(); got != s.Checksum {
		return fmt.Errorf("%w: recorded %s, computed %s", ErrChecksumMismatch, s.Checksum, got)
	}
	return nil
}

// buildDeterministicRepresentation renders the snapshot independent of map
// iteration order.
func (s *Snapshot) buildDeterministicRepresentation() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "GAME:%s|%d|%s|%d|%d|%d|%s\n",
		s.GameID, s.Version, s.State, s.ActiveIndex, s.TurnNumber, s.Roll, s.Selected)
	for _, id := range s.Order {
		fmt.Fprintf(&buf, "SEAT:%s\n", id)
	}

	players := append([]player.State(nil), s.Players...)
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	for _, p := range players {
		fmt.Fprintf(&buf, "PLAYER:%s|%s|%s|%s|%d|%d|%t\n",
			p.ID, p.Name, p.Color, p.Position, p.Resources.Money, p.Resources.Time, p.Finished)

		visited := append([]string(nil), p.VisitedSpaceNames...)
		sort.Strings(visited)
		for _, name := range visited {
			fmt.Fprintf(&buf, "  VISITED:%s\n", name)
		}

		origins := make([]string, 0, len(p.OriginalSpaces))
		for name := range p.OriginalSpaces {
			origins = append(origins, name)
		}
		sort.Strings(origins)
		for _, name := range origins {
			fmt.Fprintf(&buf, "  ORIGIN:%s=%s\n", name, p.OriginalSpaces[name])
		}

		for _, t := range cards.AllTypes {
			for _, card := range p.Cards[t] {
				fmt.Fprintf(&buf, "  CARD:%s|%s|%s|%d\n", t, card.ID, card.Title, card.Cost)
			}
		}
	}

	if s.PendingOrigin != nil {
		fmt.Fprintf(&buf, "PENDING_ORIGIN:%s=%s\n", s.PendingOrigin.SpaceName, s.PendingOrigin.OriginID)
	}

	used := append([]string(nil), s.Used...)
	sort.Strings(used)
	for _, key := range used {
		fmt.Fprintf(&buf, "USED:%s\n", key)
	}

	for _, e := range s.Ledger {
		fmt.Fprintf(&buf, "LEDGER:%s|%s|%d|%d\n", e.Key.PlayerID, e.Key.SpaceID, e.Key.TurnOrdinal, e.Roll)
		for _, card := range e.Cards {
			fmt.Fprintf(&buf, "  DRAWN:%s\n", card.ID)
		}
	}

	fmt.Fprintf(&buf, "SUMMARY:%s|%d|%s|%d|%d|%d\n",
		s.Summary.PlayerID, s.Summary.Turn, s.Summary.From, s.Summary.Roll, s.Summary.MoneyDelta, s.Summary.TimeDelta)
	return buf.String()
}

// MarshalSnapshot encodes a snapshot as JSON.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot decodes a snapshot and verifies its checksum.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if err := s.VerifyChecksum(); err != nil {
		return nil, err
	}
	return &s, nil
}
