package game

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pmquest/pmgame-server/internal/game/rules"
	"github.com/pmquest/pmgame-server/internal/store"
	"go.uber.org/zap"
)

// autosaveTimeout bounds the store write made after every committed turn.
const autosaveTimeout = 5 * time.Second

// EventHandler receives every event of every game the engine runs.
type EventHandler func(rules.Event)

// Engine manages the games running in this process. Snapshots are written
// to the store after every committed turn and recorded for replay when a
// recorder is configured.
type Engine struct {
	ctx      *Context
	store    store.Store
	codec    *store.Codec
	recorder *ReplayRecorder
	logger   *zap.Logger

	mu      sync.RWMutex
	games   map[string]*Game
	saves   map[string]*saveSlot
	handler EventHandler
}

// saveSlot orders the writes of one game. rev is the game revision of the
// newest snapshot written so far.
type saveSlot struct {
	mu      sync.Mutex
	rev     uint64
	written bool
}

// NewEngine creates an engine. st, codec and recorder may be nil.
func NewEngine(ctx *Context, st store.Store, codec *store.Codec, recorder *ReplayRecorder, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		ctx:      ctx,
		store:    st,
		codec:    codec,
		recorder: recorder,
		logger:   logger,
		games:    make(map[string]*Game),
		saves:    make(map[string]*saveSlot),
	}
}

// Context returns the application context games are built on.
func (e *Engine) Context() *Context {
	return e.ctx
}

// SetEventHandler installs the handler for game events.
func (e *Engine) SetEventHandler(h EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handler = h
}

func (e *Engine) emit(evt rules.Event) {
	e.mu.RLock()
	h := e.handler
	e.mu.RUnlock()
	if h != nil {
		h(evt)
	}
}

// StartGame creates a game with a fresh id.
func (e *Engine) StartGame(seats []Seat) (*Game, error) {
	return e.StartGameWithID(uuid.NewString(), seats)
}

// StartGameWithID creates a game under gameID.
func (e *Engine) StartGameWithID(gameID string, seats []Seat) (*Game, error) {
	if gameID == "" {
		return nil, errors.New("game id is required")
	}
	e.mu.RLock()
	_, exists := e.games[gameID]
	e.mu.RUnlock()
	if exists {
		return nil, fmt.Errorf("game %s already exists", gameID)
	}

	ctrl, err := NewController(e.ctx, gameID, seats)
	if err != nil {
		return nil, err
	}
	g, err := e.register(ctrl)
	if err != nil {
		return nil, err
	}
	if e.recorder != nil {
		e.recorder.StartRecording(gameID)
		e.recorder.RecordState(gameID, g.Snapshot())
	}
	e.logger.Info("engine started game",
		zap.String("game_id", gameID),
		zap.Int("players", len(seats)),
	)
	return g, nil
}

func (e *Engine) register(ctrl *Controller) (*Game, error) {
	g := newGame(ctrl)
	g.listener = e.emit
	g.onCommit = e.committed

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.games[ctrl.GameID()]; exists {
		return nil, fmt.Errorf("game %s already exists", ctrl.GameID())
	}
	e.games[ctrl.GameID()] = g
	e.saves[ctrl.GameID()] = &saveSlot{}
	return g, nil
}

func (e *Engine) slotFor(gameID string) *saveSlot {
	e.mu.Lock()
	defer e.mu.Unlock()
	slot, ok := e.saves[gameID]
	if !ok {
		slot = &saveSlot{}
		e.saves[gameID] = slot
	}
	return slot
}

// committed runs after every committed turn, outside the game lock. Commits
// of one game may arrive out of order from different connections; a
// snapshot older than one already written is dropped.
func (e *Engine) committed(s *Snapshot, revision uint64) {
	slot := e.slotFor(s.GameID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.written && revision <= slot.rev {
		e.logger.Debug("dropping stale snapshot",
			zap.String("game_id", s.GameID),
			zap.Int("turn", s.TurnNumber),
			zap.Uint64("revision", revision),
			zap.Uint64("written_revision", slot.rev),
		)
		return
	}
	slot.rev = revision
	slot.written = true

	if e.recorder != nil {
		e.recorder.RecordState(s.GameID, s)
	}
	if e.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), autosaveTimeout)
	defer cancel()
	if err := e.persist(ctx, s); err != nil {
		e.logger.Warn("autosave failed", zap.String("game_id", s.GameID), zap.Error(err))
	}
}

// Get returns a running game.
func (e *Engine) Get(gameID string) (*Game, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	g, ok := e.games[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	return g, nil
}

// List returns the ids of the running games, sorted.
func (e *Engine) List() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.games))
	for id := range e.games {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Remove drops a game from memory. A recorded replay is written out first.
func (e *Engine) Remove(gameID string) error {
	e.mu.Lock()
	_, ok := e.games[gameID]
	delete(e.games, gameID)
	delete(e.saves, gameID)
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}

	if e.recorder != nil {
		if _, recording := e.recorder.GetReplay(gameID); recording {
			if err := e.recorder.SaveReplay(gameID); err != nil {
				e.logger.Warn("failed to save replay", zap.String("game_id", gameID), zap.Error(err))
			}
		}
	}
	e.logger.Info("engine removed game", zap.String("game_id", gameID))
	return nil
}

// Save writes the game's current snapshot to the store unless a newer one
// is already there.
func (e *Engine) Save(ctx context.Context, gameID string) error {
	g, err := e.Get(gameID)
	if err != nil {
		return err
	}
	s, revision := g.capture()

	slot := e.slotFor(gameID)
	slot.mu.Lock()
	defer slot.mu.Unlock()
	if slot.written && revision < slot.rev {
		return nil
	}
	if err := e.persist(ctx, s); err != nil {
		return err
	}
	slot.rev = revision
	slot.written = true
	return nil
}

func (e *Engine) persist(ctx context.Context, s *Snapshot) error {
	if e.store == nil {
		return errors.New("no snapshot store configured")
	}
	doc, err := MarshalSnapshot(s)
	if err != nil {
		return err
	}
	blob := doc
	if e.codec != nil {
		if blob, err = e.codec.Encode(doc); err != nil {
			return err
		}
	}
	if err := e.store.Save(ctx, s.GameID, blob); err != nil {
		return err
	}
	e.logger.Debug("snapshot persisted",
		zap.String("game_id", s.GameID),
		zap.Int("turn", s.TurnNumber),
		zap.Int("bytes", len(blob)),
	)
	return nil
}

// Load returns the running game, or restores it from the store.
func (e *Engine) Load(ctx context.Context, gameID string) (*Game, error) {
	if g, err := e.Get(gameID); err == nil {
		return g, nil
	}
	if e.store == nil {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}

	blob, err := e.store.Load(ctx, gameID)
	if errors.Is(err, store.ErrSnapshotNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	if err != nil {
		return nil, err
	}
	doc := blob
	if e.codec != nil {
		if doc, err = e.codec.Decode(blob); err != nil {
			return nil, err
		}
	}
	s, err := UnmarshalSnapshot(doc)
	if err != nil {
		return nil, err
	}
	ctrl, err := RestoreController(e.ctx, s)
	if err != nil {
		return nil, err
	}
	g, err := e.register(ctrl)
	if err != nil {
		// Lost a race with a concurrent Load.
		return e.Get(gameID)
	}
	if e.recorder != nil && !e.recorder.IsRecording(gameID) {
		e.recorder.StartRecording(gameID)
		e.recorder.RecordState(gameID, s)
	}
	e.logger.Info("engine restored game", zap.String("game_id", gameID), zap.Int("turn", s.TurnNumber))
	return g, nil
}

// Replay returns the recording of gameID: the live one while the game runs,
// otherwise the one saved when it was removed.
func (e *Engine) Replay(gameID string) (*Replay, error) {
	if e.recorder == nil {
		return nil, fmt.Errorf("%w: recording is disabled", ErrReplayNotFound)
	}
	if r, ok := e.recorder.GetReplay(gameID); ok {
		return r, nil
	}
	return e.recorder.LoadReplay(gameID)
}

// Delete removes a game from memory and from the store.
func (e *Engine) Delete(ctx context.Context, gameID string) error {
	removeErr := e.Remove(gameID)
	if e.store == nil {
		return removeErr
	}
	err := e.store.Delete(ctx, gameID)
	if errors.Is(err, store.ErrSnapshotNotFound) {
		return removeErr
	}
	return err
}
