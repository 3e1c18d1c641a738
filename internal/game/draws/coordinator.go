package draws

import (
	"errors"
	"fmt"

	"github.com/pmquest/pmgame-server/internal/game/board"
	"github.com/pmquest/pmgame-server/internal/game/cards"
	"github.com/pmquest/pmgame-server/internal/game/outcomes"
	"github.com/pmquest/pmgame-server/internal/game/player"
	"go.uber.org/zap"
)

// Draw is how many cards of one type a visit yields.
type Draw struct {
	Type  cards.Type `json:"type"`
	Count int        `json:"count"`
}

// Coordinator decides and applies card draws for a space visit. It merges the
// space's static card rules with the dice outcome rows and guarantees each
// Key is applied at most once.
type Coordinator struct {
	table  *outcomes.Table
	deck   cards.Deck
	ledger *Ledger
	logger *zap.Logger
}

// NewCoordinator creates a coordinator. A nil ledger starts empty.
func NewCoordinator(table *outcomes.Table, deck cards.Deck, ledger *Ledger, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ledger == nil {
		ledger = NewLedger()
	}
	return &Coordinator{
		table:  table,
		deck:   deck,
		ledger: ledger,
		logger: logger,
	}
}

// Ledger exposes the committed-draw record for persistence.
func (c *Coordinator) Ledger() *Ledger {
	return c.ledger
}

// SetLedger replaces the ledger, used when restoring a snapshot.
func (c *Coordinator) SetLedger(l *Ledger) {
	if l == nil {
		l = NewLedger()
	}
	c.ledger = l
}

// Preview computes the draws for a visit without touching any hand. roll is
// 0 when no roll has been made.
func (c *Coordinator) Preview(space *board.Space, roll int) []Draw {
	if space == nil {
		return nil
	}
	var out []Draw
	for _, t := range cards.AllTypes {
		count := 0
		if rule := space.CardRule(t); rule != "" {
			instr, ok := cards.ParseInstruction(rule)
			if !ok {
				c.logger.Warn("unparseable card rule",
					zap.String("space_id", space.ID),
					zap.String("card_type", string(t)),
					zap.String("rule", rule),
				)
			} else if instr.Applies(roll) {
				count += instr.Count
			}
		}
		if roll > 0 {
			if value, ok := c.table.Lookup(space.Name, space.Variant, outcomes.CardOutcome(t), roll); ok {
				if instr, ok := cards.ParseInstruction(value); ok && instr.Applies(roll) {
					count += instr.Count
				} else if !ok {
					c.logger.Warn("unparseable card outcome",
						zap.String("space_id", space.ID),
						zap.String("card_type", string(t)),
						zap.Int("roll", roll),
						zap.String("value", value),
					)
				}
			}
		}
		if count > 0 {
			out = append(out, Draw{Type: t, Count: count})
		}
	}
	return out
}

// ResolveCardDraws applies the draws for key to p. When key was already
// committed the cached result is returned and p is not touched again.
func (c *Coordinator) ResolveCardDraws(p *player.Player, space *board.Space, roll int, key Key) ([]Draw, []cards.Card, error) {
	if p == nil || space == nil {
		return nil, nil, errors.New("draws: player and space are required")
	}
	if key.PlayerID != p.ID || key.SpaceID != space.ID {
		return nil, nil, fmt.Errorf("draws: key %+v does not match player %s at %s", key, p.ID, space.ID)
	}

	if entry, ok := c.ledger.Get(key); ok {
		c.logger.Debug("card draws already applied",
			zap.String("player_id", key.PlayerID),
			zap.String("space_id", key.SpaceID),
			zap.Int("turn", key.TurnOrdinal),
		)
		return entry.Draws, entry.Cards, nil
	}

	planned := c.Preview(space, roll)
	var drawn []cards.Card
	if c.deck != nil {
		for _, d := range planned {
			for i := 0; i < d.Count; i++ {
				drawn = append(drawn, c.deck.Draw(d.Type))
			}
		}
	} else if len(planned) > 0 {
		return nil, nil, errors.New("draws: no deck configured")
	}

	entry := Entry{Key: key, Roll: roll, Draws: planned, Cards: drawn}
	if !c.ledger.Record(entry) {
		existing, _ := c.ledger.Get(key)
		return existing.Draws, existing.Cards, nil
	}
	p.AddCards(drawn...)

	if len(drawn) > 0 {
		c.logger.Info("cards drawn",
			zap.String("player_id", p.ID),
			zap.String("space_id", space.ID),
			zap.Int("turn", key.TurnOrdinal),
			zap.Int("roll", roll),
			zap.Int("cards", len(drawn)),
		)
	}
	return planned, drawn, nil
}

// Prune drops ledger entries older than beforeTurn.
func (c *Coordinator) Prune(beforeTurn int) int {
	return c.ledger.Prune(beforeTurn)
}
