package game

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pmquest/pmgame-server/internal/game/board"
	"github.com/pmquest/pmgame-server/internal/game/cards"
	"github.com/pmquest/pmgame-server/internal/game/costs"
	"github.com/pmquest/pmgame-server/internal/game/draws"
	"github.com/pmquest/pmgame-server/internal/game/moves"
	"github.com/pmquest/pmgame-server/internal/game/outcomes"
	"github.com/pmquest/pmgame-server/internal/game/player"
	"github.com/pmquest/pmgame-server/internal/game/rules"
	"go.uber.org/zap"
)

// Used-instruction keys for the effects a visit can fire. The fee outcome key
// is shared with the fee review handler.
const (
	staticFeeKey   = "fee"
	staticTimeKey  = "time"
	timeOutcomeKey = "time-outcome"
)

// Seat describes a player joining a game.
type Seat struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// TurnSummary is the display record of one committed turn.
type TurnSummary struct {
	PlayerID   string       `json:"player_id"`
	Turn       int          `json:"turn"`
	From       string       `json:"from"`
	To         string       `json:"to"`
	Roll       int          `json:"roll,omitempty"`
	MoneyDelta int          `json:"money_delta"`
	TimeDelta  int          `json:"time_delta"`
	Draws      []draws.Draw `json:"draws,omitempty"`
	Cards      []cards.Card `json:"cards,omitempty"`
	Negotiated bool         `json:"negotiated,omitempty"`
	Finished   bool         `json:"finished,omitempty"`
}

// View is what a client needs to render the current turn.
type View struct {
	GameID       string                    `json:"game_id"`
	Turn         int                       `json:"turn"`
	State        string                    `json:"state"`
	ActivePlayer string                    `json:"active_player"`
	Position     string                    `json:"position"`
	Roll         int                       `json:"roll,omitempty"`
	Moves        []moves.Candidate         `json:"moves"`
	Pending      *moves.PendingDiceRequest `json:"pending,omitempty"`
	Selected     string                    `json:"selected,omitempty"`
	CanRoll      bool                      `json:"can_roll"`
	CanNegotiate bool                      `json:"can_negotiate"`
	Preview      []draws.Draw              `json:"preview,omitempty"`
	Players      []player.State            `json:"players"`
	Diagnostics  []string                  `json:"diagnostics,omitempty"`
	LastTurn     *TurnSummary              `json:"last_turn,omitempty"`
}

// Controller runs the turn state machine for one game. It is not safe for
// concurrent use; Game serializes access to it.
type Controller struct {
	ctx         *Context
	gameID      string
	logger      *zap.Logger
	bus         *rules.EventBus
	players     map[string]*player.Player
	turns       *rules.TurnManager
	coordinator *draws.Coordinator
	used        *rules.UsedInstructions
	visits      player.VisitTracker

	// Transient per-turn state, reset at every turn start.
	roll          int
	result        moves.Result
	selected      string
	pendingOrigin *moves.OriginCapture
	summary       TurnSummary

	lastSummary *TurnSummary
}

func newController(ctx *Context, gameID string) *Controller {
	return &Controller{
		ctx:         ctx,
		gameID:      gameID,
		logger:      ctx.Logger.With(zap.String("game_id", gameID)),
		bus:         rules.NewEventBus(),
		players:     make(map[string]*player.Player),
		coordinator: draws.NewCoordinator(ctx.Outcomes, ctx.Deck, nil, ctx.Logger.Named("draws")),
		used:        rules.NewUsedInstructions(),
	}
}

// NewController seats players on the start space and opens the first turn.
func NewController(ctx *Context, gameID string, seats []Seat) (*Controller, error) {
	if ctx == nil {
		return nil, errors.New("controller: context is required")
	}
	if len(seats) == 0 {
		return nil, errors.New("controller: at least one player is required")
	}
	if limit := ctx.Settings.MaxPlayers; limit > 0 && len(seats) > limit {
		return nil, fmt.Errorf("controller: %d players exceeds the maximum of %d", len(seats), limit)
	}

	c := newController(ctx, gameID)
	start := ctx.startSpaceID()
	order := make([]string, 0, len(seats))
	for _, seat := range seats {
		id := strings.TrimSpace(seat.ID)
		if id == "" {
			return nil, errors.New("controller: player id is required")
		}
		if _, dup := c.players[id]; dup {
			return nil, fmt.Errorf("controller: duplicate player id %s", id)
		}
		name := seat.Name
		if name == "" {
			name = id
		}
		p := player.New(id, name, seat.Color, start, ctx.Settings.Start)
		c.visits.RecordVisit(p, ctx.Settings.StartSpace)
		c.players[id] = p
		order = append(order, id)
	}
	c.turns = rules.NewTurnManager(order)

	c.logger.Info("game started",
		zap.Strings("players", order),
		zap.String("start_space", start),
	)
	c.startTurn()
	return c, nil
}

// GameID returns the id of the game this controller runs.
func (c *Controller) GameID() string {
	return c.gameID
}

// Events returns the bus every turn event is published on.
func (c *Controller) Events() *rules.EventBus {
	return c.bus
}

// State returns the current turn state.
func (c *Controller) State() rules.TurnState {
	return c.turns.State()
}

// TurnNumber returns the current turn ordinal.
func (c *Controller) TurnNumber() int {
	return c.turns.TurnNumber()
}

// ActivePlayerID returns the id of the player whose turn it is.
func (c *Controller) ActivePlayerID() string {
	return c.turns.ActivePlayer()
}

// Player returns a player by id.
func (c *Controller) Player(id string) (*player.Player, bool) {
	p, ok := c.players[id]
	return p, ok
}

// Players returns the players in seat order.
func (c *Controller) Players() []*player.Player {
	order := c.turns.Order()
	out := make([]*player.Player, 0, len(order))
	for _, id := range order {
		out = append(out, c.players[id])
	}
	return out
}

// LastSummary returns the summary of the most recently committed turn.
func (c *Controller) LastSummary() (TurnSummary, bool) {
	if c.lastSummary == nil {
		return TurnSummary{}, false
	}
	return *c.lastSummary, true
}

func (c *Controller) current() *player.Player {
	return c.players[c.turns.ActivePlayer()]
}

func (c *Controller) currentSpace() *board.Space {
	p := c.current()
	if p == nil {
		return nil
	}
	space, err := c.ctx.Graph.FindByID(p.Position)
	if err != nil {
		return nil
	}
	return space
}

func (c *Controller) publish(e rules.Event) {
	e.GameID = c.gameID
	c.bus.Publish(e)
}

func (c *Controller) resetTransient() {
	c.roll = 0
	c.result = moves.Result{}
	c.selected = ""
	c.pendingOrigin = nil
}

func (c *Controller) startTurn() {
	p := c.current()
	turn := c.turns.TurnNumber()
	c.resetTransient()
	c.summary = TurnSummary{PlayerID: p.ID, Turn: turn, From: p.Position}

	c.publish(rules.NewEvent(rules.EventTurnStarted, p.ID, p.Position, turn))
	c.resolve()

	if c.result.IsPending() {
		c.turns.SetState(rules.StateAwaitingRoll)
		c.publish(rules.NewEvent(rules.EventRollRequired, p.ID, p.Position, turn))
	} else {
		c.turns.SetState(rules.StateAwaitingMoveSelection)
	}
	c.logger.Debug("turn started",
		zap.String("player_id", p.ID),
		zap.String("space_id", p.Position),
		zap.Int("turn", turn),
		zap.String("state", c.turns.State().String()),
		zap.Int("moves", len(c.result.Moves)),
	)
}

// resolve recomputes the current player's moves for the current roll.
func (c *Controller) resolve() {
	p := c.current()
	c.result = c.ctx.Resolver.AvailableMoves(moves.Request{Player: p, Roll: c.roll, Effects: c})
	for _, diag := range c.result.Diagnostics {
		var gap *moves.DataGapError
		var invalid *moves.InvalidPositionError
		switch {
		case errors.As(diag, &gap):
			evt := rules.NewEvent(rules.EventDataGap, p.ID, gap.SpaceID, c.turns.TurnNumber())
			evt.Data = gap.Name
			evt.Description = diag.Error()
			c.publish(evt)
		case errors.As(diag, &invalid):
			evt := rules.NewEvent(rules.EventDataGap, p.ID, invalid.Position, c.turns.TurnNumber())
			evt.Description = diag.Error()
			c.publish(evt)
		}
	}
}

// AvailableMoves returns the current turn view. Moves are only listed when
// no roll is pending.
func (c *Controller) AvailableMoves() View {
	return c.view()
}

// RollDice rolls the context's die and submits the result.
func (c *Controller) RollDice() (View, error) {
	if !c.canRoll() {
		return View{}, illegal("roll", c.turns.State(), "no roll is expected")
	}
	return c.SubmitRoll(c.ctx.Dice.Roll())
}

func (c *Controller) canRoll() bool {
	switch c.turns.State() {
	case rules.StateAwaitingRoll:
		return true
	case rules.StateAwaitingMoveSelection:
		space := c.currentSpace()
		if c.roll != 0 || space == nil {
			return false
		}
		return c.ctx.Outcomes.HasRows(space.Name, space.Variant) || hasRollConditionalRule(space)
	}
	return false
}

// hasRollConditionalRule reports whether a static card rule on space only
// applies for some die values ("Draw 1 if you roll a 6").
func hasRollConditionalRule(space *board.Space) bool {
	for _, rule := range space.CardRules {
		if instr, ok := cards.ParseInstruction(rule); ok && instr.Conditional() {
			return true
		}
	}
	return false
}

// SubmitRoll records the turn's die value, applies the card draws it
// unlocks and recomputes the moves.
func (c *Controller) SubmitRoll(value int) (View, error) {
	state := c.turns.State()
	if !c.canRoll() {
		reason := "no roll is expected"
		if c.roll > 0 {
			reason = fmt.Sprintf("already rolled %d this turn", c.roll)
		}
		return View{}, illegal("submit roll", state, reason)
	}
	if !rules.ValidRoll(value) {
		return View{}, fmt.Errorf("submit roll %d: %w", value, ErrInvalidRoll)
	}

	p := c.current()
	space := c.currentSpace()
	if space == nil {
		return View{}, illegal("submit roll", state, "player is not on a known space")
	}
	turn := c.turns.TurnNumber()

	c.roll = value
	c.summary.Roll = value
	c.turns.SetState(rules.StateRollResolved)
	c.publish(rules.NewEventWithAmount(rules.EventDiceRolled, p.ID, space.ID, turn, value))
	c.logger.Info("dice rolled",
		zap.String("player_id", p.ID),
		zap.String("space_id", space.ID),
		zap.Int("turn", turn),
		zap.Int("roll", value),
	)

	c.noteOutcomes(p, space)
	c.drawCards(p, space)
	c.resolve()
	c.turns.SetState(rules.StateAwaitingMoveSelection)
	return c.view(), nil
}

// noteOutcomes publishes the informational outcome rows for the roll.
func (c *Controller) noteOutcomes(p *player.Player, space *board.Space) {
	for _, cat := range []outcomes.Category{outcomes.Quality, outcomes.Multiplier} {
		value, ok := c.ctx.Outcomes.Lookup(space.Name, space.Variant, cat, c.roll)
		if !ok {
			continue
		}
		evt := rules.NewEvent(rules.EventOutcomeNote, p.ID, space.ID, c.turns.TurnNumber())
		evt.Data = value
		evt.Metadata["category"] = cat.String()
		c.publish(evt)
	}
}

// SelectMove picks a destination from the current move list. It may be
// called again to change the choice before the turn ends.
func (c *Controller) SelectMove(spaceID string) (View, error) {
	state := c.turns.State()
	if state != rules.StateAwaitingMoveSelection && state != rules.StateMoveConfirmed {
		return View{}, illegal("select move", state, "")
	}
	if _, ok := c.result.Find(spaceID); !ok {
		return View{}, illegal("select move", state, fmt.Sprintf("%s is not an available move", spaceID))
	}
	dest, err := c.ctx.Graph.FindByID(spaceID)
	if err != nil {
		return View{}, fmt.Errorf("select move: %w", err)
	}

	p := c.current()
	c.selected = dest.ID
	c.pendingOrigin = nil
	if capture, ok := c.ctx.Resolver.Registry().CaptureOrigin(p, c.currentSpace(), dest); ok {
		c.pendingOrigin = &capture
	}
	c.turns.SetState(rules.StateMoveConfirmed)

	evt := rules.NewEvent(rules.EventMoveSelected, p.ID, p.Position, c.turns.TurnNumber())
	evt.Data = dest.ID
	c.publish(evt)
	return c.view(), nil
}

// Negotiate ends the turn in place, applying only the space's time rule.
func (c *Controller) Negotiate() (TurnSummary, error) {
	state := c.turns.State()
	if state != rules.StateAwaitingMoveSelection && state != rules.StateMoveConfirmed {
		return TurnSummary{}, illegal("negotiate", state, "")
	}
	space := c.currentSpace()
	if space == nil || !space.NegotiationAllowed {
		return TurnSummary{}, illegal("negotiate", state, "negotiation is not allowed on this space")
	}

	p := c.current()
	c.applyTime(p, space, staticTimeKey, space.TimeRule)
	c.summary.Negotiated = true
	c.publish(rules.NewEvent(rules.EventNegotiated, p.ID, space.ID, c.turns.TurnNumber()))
	c.logger.Info("player negotiated",
		zap.String("player_id", p.ID),
		zap.String("space_id", space.ID),
		zap.Int("turn", c.turns.TurnNumber()),
	)
	return c.commit(nil, false), nil
}

// EndTurn commits the selected move. With no moves at all the turn ends in
// place, unless the space offers negotiation.
func (c *Controller) EndTurn() (TurnSummary, error) {
	state := c.turns.State()
	switch state {
	case rules.StateMoveConfirmed:
		dest, err := c.ctx.Graph.FindByID(c.selected)
		if err != nil {
			return TurnSummary{}, fmt.Errorf("end turn: %w", err)
		}
		return c.commit(dest, true), nil

	case rules.StateAwaitingMoveSelection:
		if len(c.result.Moves) > 0 {
			return TurnSummary{}, illegal("end turn", state, "select a move first")
		}
		space := c.currentSpace()
		if space != nil && space.NegotiationAllowed {
			return TurnSummary{}, illegal("end turn", state, "no moves available; negotiate instead")
		}
		p := c.current()
		c.logger.Error("no moves available; ending turn in place",
			zap.String("player_id", p.ID),
			zap.String("space_id", p.Position),
			zap.Int("turn", c.turns.TurnNumber()),
		)
		c.publish(rules.NewEvent(rules.EventNoMovesFound, p.ID, p.Position, c.turns.TurnNumber()))
		return c.commit(nil, true), nil
	}
	return TurnSummary{}, illegal("end turn", state, "")
}

// commit applies outstanding effects, moves the player to dest (nil stays in
// place), clears the turn and hands over to the next player.
func (c *Controller) commit(dest *board.Space, effects bool) TurnSummary {
	p := c.current()
	space := c.currentSpace()
	turn := c.turns.TurnNumber()

	if effects && space != nil {
		c.applySpaceEffects(p, space)
	}

	if dest != nil {
		if c.pendingOrigin != nil && p.SetOriginalSpace(c.pendingOrigin.SpaceName, c.pendingOrigin.OriginID) {
			c.logger.Debug("original space recorded",
				zap.String("player_id", p.ID),
				zap.String("space_name", c.pendingOrigin.SpaceName),
				zap.String("origin_id", c.pendingOrigin.OriginID),
			)
		}
		p.Position = dest.ID
		c.visits.RecordArrival(p, dest.Name)
		if dest.Name == c.ctx.Settings.FinishSpace {
			p.Finished = true
			c.summary.Finished = true
			c.publish(rules.NewEvent(rules.EventPlayerFinished, p.ID, dest.ID, turn))
		}
	}
	c.summary.To = p.Position

	c.turns.SetState(rules.StateTurnCommitted)
	committed := rules.NewEvent(rules.EventMoveCommitted, p.ID, p.Position, turn)
	committed.Data = c.summary.From
	c.publish(committed)

	summary := c.summary
	c.lastSummary = &summary
	c.used.Clear()
	c.resetTransient()

	if keep := c.ctx.Settings.LedgerRetentionTurns; keep > 0 && turn > keep {
		if pruned := c.coordinator.Prune(turn - keep); pruned > 0 {
			c.logger.Debug("pruned draw ledger", zap.Int("entries", pruned))
		}
	}

	c.logger.Info("turn committed",
		zap.String("player_id", p.ID),
		zap.Int("turn", turn),
		zap.String("from", summary.From),
		zap.String("to", summary.To),
		zap.Int("money_delta", summary.MoneyDelta),
		zap.Int("time_delta", summary.TimeDelta),
		zap.Int("cards", len(summary.Cards)),
	)

	c.advance()
	return summary
}

func (c *Controller) advance() {
	_, ok := c.turns.Advance(func(id string) bool {
		return c.players[id].Finished
	})
	if !ok {
		c.turns.SetState(rules.StateGameOver)
		c.publish(rules.NewEvent(rules.EventGameOver, "", "", c.turns.TurnNumber()))
		c.logger.Info("game over", zap.Int("turn", c.turns.TurnNumber()))
		return
	}
	c.startTurn()
}

// applySpaceEffects fires every effect of the visit that has not fired yet.
func (c *Controller) applySpaceEffects(p *player.Player, space *board.Space) {
	c.ApplyFee(p, space, staticFeeKey, space.FeeRule)
	c.applyTime(p, space, staticTimeKey, space.TimeRule)
	if c.roll > 0 {
		if fee, ok := c.ctx.Outcomes.Lookup(space.Name, space.Variant, outcomes.FeeOutcome, c.roll); ok {
			c.ApplyFee(p, space, moves.FeeOutcomeKey, fee)
		}
		if days, ok := c.ctx.Outcomes.Lookup(space.Name, space.Variant, outcomes.TimeOutcome, c.roll); ok {
			c.applyTime(p, space, timeOutcomeKey, days)
		}
	}
	c.drawCards(p, space)
}

// ApplyFee charges rule to p once per visit and key. Percentage fees are
// taken of the player's project scope.
func (c *Controller) ApplyFee(p *player.Player, space *board.Space, key, rule string) (int, bool) {
	if outcomes.IsNoEffect(rule) {
		return 0, false
	}
	if !c.used.MarkOnce(space.ID, key) {
		return 0, false
	}
	amount, err := costs.Parse(rule)
	if err != nil {
		c.logger.Warn("unparseable fee rule",
			zap.String("space_id", space.ID),
			zap.String("rule", rule),
			zap.Error(err),
		)
		return 0, false
	}
	fee := amount.Resolve(costs.ProjectScope(p.WorkCosts()))
	if fee == 0 {
		return 0, true
	}
	p.Resources.Money -= fee
	c.summary.MoneyDelta -= fee

	evt := rules.NewEventWithAmount(rules.EventFeeCharged, p.ID, space.ID, c.turns.TurnNumber(), fee)
	evt.Data = rule
	c.publish(evt)
	return fee, true
}

func (c *Controller) applyTime(p *player.Player, space *board.Space, key, rule string) {
	if outcomes.IsNoEffect(rule) {
		return
	}
	if !c.used.MarkOnce(space.ID, key) {
		return
	}
	amount, err := costs.Parse(rule)
	if err != nil {
		c.logger.Warn("unparseable time rule",
			zap.String("space_id", space.ID),
			zap.String("rule", rule),
			zap.Error(err),
		)
		return
	}
	days := amount.Resolve(p.Resources.Time)
	if days == 0 {
		return
	}
	p.Resources.Time += days
	c.summary.TimeDelta += days

	evt := rules.NewEventWithAmount(rules.EventTimeSpent, p.ID, space.ID, c.turns.TurnNumber(), days)
	evt.Data = rule
	c.publish(evt)
}

func (c *Controller) drawCards(p *player.Player, space *board.Space) {
	key := draws.Key{PlayerID: p.ID, SpaceID: space.ID, TurnOrdinal: c.turns.TurnNumber()}
	_, seen := c.coordinator.Ledger().Get(key)

	planned, drawn, err := c.coordinator.ResolveCardDraws(p, space, c.roll, key)
	if err != nil {
		c.logger.Warn("card draws failed", zap.String("space_id", space.ID), zap.Error(err))
		return
	}
	c.summary.Draws = planned
	c.summary.Cards = drawn
	if seen || len(drawn) == 0 {
		return
	}

	evt := rules.NewEventWithAmount(rules.EventCardsDrawn, p.ID, space.ID, key.TurnOrdinal, len(drawn))
	for _, card := range drawn {
		evt.Targets = append(evt.Targets, card.ID)
	}
	c.publish(evt)
}

func (c *Controller) view() View {
	v := View{
		GameID:       c.gameID,
		Turn:         c.turns.TurnNumber(),
		State:        c.turns.State().String(),
		ActivePlayer: c.turns.ActivePlayer(),
		Roll:         c.roll,
		Selected:     c.selected,
		LastTurn:     c.lastSummary,
	}
	for _, p := range c.Players() {
		v.Players = append(v.Players, p.State())
	}
	if c.turns.State() == rules.StateGameOver {
		return v
	}

	if p := c.current(); p != nil {
		v.Position = p.Position
	}
	if c.result.IsPending() {
		v.Pending = c.result.Pending
	} else {
		v.Moves = append([]moves.Candidate(nil), c.result.Moves...)
	}
	v.CanRoll = c.canRoll()
	if space := c.currentSpace(); space != nil {
		v.CanNegotiate = space.NegotiationAllowed && !c.result.IsPending()
		v.Preview = c.coordinator.Preview(space, c.roll)
	}
	for _, diag := range c.result.Diagnostics {
		v.Diagnostics = append(v.Diagnostics, diag.Error())
	}
	return v
}
