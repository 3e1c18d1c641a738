package moves

import (
	"github.com/pmquest/pmgame-server/internal/game/board"
	"github.com/pmquest/pmgame-server/internal/game/outcomes"
	"github.com/pmquest/pmgame-server/internal/game/player"
	"go.uber.org/zap"
)

// Resolver computes the legal moves for a player. It runs a fixed chain of
// strategies: special-case handlers, the successor graph, then the dice
// outcome table.
type Resolver struct {
	graph      *board.Graph
	outcomes   *outcomes.Table
	registry   *Registry
	visits     player.VisitTracker
	strategies []Strategy
	logger     *zap.Logger
}

// NewResolver wires the default strategy chain. A nil registry disables
// special cases.
func NewResolver(graph *board.Graph, table *outcomes.Table, registry *Registry, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = NewRegistry()
	}
	return &Resolver{
		graph:    graph,
		outcomes: table,
		registry: registry,
		strategies: []Strategy{
			specialCaseStrategy{registry: registry},
			successorStrategy{},
			outcomeStrategy{},
		},
		logger: logger,
	}
}

// Registry returns the special-case registry.
func (r *Resolver) Registry() *Registry {
	return r.registry
}

// Graph returns the space graph.
func (r *Resolver) Graph() *board.Graph {
	return r.graph
}

// Outcomes returns the outcome table.
func (r *Resolver) Outcomes() *outcomes.Table {
	return r.outcomes
}

// AvailableMoves returns the moves for req.Player at its current position,
// or a pending roll request. Invalid positions yield an empty list and an
// *InvalidPositionError diagnostic.
func (r *Resolver) AvailableMoves(req Request) Result {
	p := req.Player
	if p == nil {
		return Moves(nil)
	}

	space, err := r.graph.FindByID(p.Position)
	if err != nil {
		r.logger.Error("player position is not a known space",
			zap.String("player_id", p.ID),
			zap.String("position", p.Position),
			zap.Error(err),
		)
		res := Moves(nil)
		res.Diagnostics = []error{&InvalidPositionError{PlayerID: p.ID, Position: p.Position}}
		return res
	}

	c := &Context{
		Player:   p,
		Space:    space,
		Roll:     req.Roll,
		Graph:    r.graph,
		Outcomes: r.outcomes,
		Visits:   r.visits,
		Effects:  req.Effects,
		logger:   r.logger,
	}

	acc := Moves(nil)
	for _, s := range r.strategies {
		res := s.Resolve(c)
		switch res.Kind {
		case ResultDefer:
			continue
		case ResultPendingRoll:
			res.Diagnostics = c.Diagnostics()
			r.logger.Debug("moves pending roll",
				zap.String("player_id", p.ID),
				zap.String("space_id", space.ID),
				zap.String("strategy", s.Name()),
			)
			return res
		case ResultMoves:
			acc.Moves = appendUnique(acc.Moves, res.Moves...)
		}
		if res.Final {
			break
		}
	}

	acc.Diagnostics = c.Diagnostics()
	r.logger.Debug("moves resolved",
		zap.String("player_id", p.ID),
		zap.String("space_id", space.ID),
		zap.Int("roll", req.Roll),
		zap.Strings("moves", acc.IDs()),
	)
	return acc
}
