package game

import (
	"fmt"

	"github.com/pmquest/pmgame-server/internal/config"
	"github.com/pmquest/pmgame-server/internal/data"
	"github.com/pmquest/pmgame-server/internal/game/board"
	"github.com/pmquest/pmgame-server/internal/game/cards"
	"github.com/pmquest/pmgame-server/internal/game/moves"
	"github.com/pmquest/pmgame-server/internal/game/outcomes"
	"github.com/pmquest/pmgame-server/internal/game/player"
	"github.com/pmquest/pmgame-server/internal/game/rules"
	"go.uber.org/zap"
)

// Settings are the rule knobs shared by every game on a board.
type Settings struct {
	Start                player.Resources
	StartSpace           string
	FinishSpace          string
	MaxPlayers           int
	LedgerRetentionTurns int
	Special              moves.SpecialSpaces
}

// DefaultSettings matches the bundled board.
func DefaultSettings() Settings {
	return Settings{
		StartSpace:           "OWNER-SCOPE-INITIATION",
		FinishSpace:          "FINISH",
		MaxPlayers:           6,
		LedgerRetentionTurns: 50,
		Special:              moves.DefaultSpecialSpaces(),
	}
}

// SettingsFromConfig maps the game section of the server configuration.
func SettingsFromConfig(cfg config.GameConfig) Settings {
	return Settings{
		Start:                player.Resources{Money: cfg.StartingMoney, Time: cfg.StartingTime},
		StartSpace:           cfg.StartSpace,
		FinishSpace:          cfg.FinishSpace,
		MaxPlayers:           cfg.MaxPlayers,
		LedgerRetentionTurns: cfg.LedgerRetentionTurns,
		Special: moves.SpecialSpaces{
			DecisionCheck: cfg.DecisionCheck,
			FeeReview:     cfg.FeeReview,
			DiceGated:     append([]string(nil), cfg.DiceGated...),
		},
	}
}

// Context is the explicitly constructed application context: the loaded
// board, the move resolver built over it, and the shared deck and dice.
// Nothing in the game core reads package-level state.
type Context struct {
	Settings Settings
	Graph    *board.Graph
	Outcomes *outcomes.Table
	Resolver *moves.Resolver
	Deck     cards.Deck
	Dice     rules.Dice
	Logger   *zap.Logger
}

// NewContext wires a context over a loaded dataset.
func NewContext(ds *data.Dataset, settings Settings, logger *zap.Logger) (*Context, error) {
	if ds == nil || ds.Graph == nil {
		return nil, fmt.Errorf("game context: dataset is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	start, ok := ds.Graph.ResolveDestination(settings.StartSpace, board.VariantFirst)
	if !ok {
		return nil, fmt.Errorf("game context: start space %q: %w", settings.StartSpace, board.ErrSpaceNotFound)
	}
	if settings.FinishSpace != "" && !ds.Graph.HasName(settings.FinishSpace) {
		logger.Warn("finish space is not on the board; games will not end",
			zap.String("finish_space", settings.FinishSpace),
		)
	}

	registry := moves.NewDefaultRegistry(settings.Special)
	for _, name := range registry.Names() {
		if !ds.Graph.HasName(name) {
			logger.Warn("special-case handler registered for unknown space", zap.String("space_name", name))
		}
	}

	logger.Info("game context ready",
		zap.String("start_space", start.ID),
		zap.String("finish_space", settings.FinishSpace),
		zap.Strings("special_spaces", registry.Names()),
	)

	return &Context{
		Settings: settings,
		Graph:    ds.Graph,
		Outcomes: ds.Outcomes,
		Resolver: moves.NewResolver(ds.Graph, ds.Outcomes, registry, logger.Named("moves")),
		Deck:     cards.NewGenerator(ds.Catalog),
		Dice:     rules.NewRandomDice(),
		Logger:   logger,
	}, nil
}

// startSpaceID is the id every new player is placed on.
func (c *Context) startSpaceID() string {
	if space, ok := c.Graph.ResolveDestination(c.Settings.StartSpace, board.VariantFirst); ok {
		return space.ID
	}
	return board.SpaceID(c.Settings.StartSpace, board.VariantFirst)
}
