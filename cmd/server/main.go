package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pmquest/pmgame-server/internal/config"
	"github.com/pmquest/pmgame-server/internal/data"
	"github.com/pmquest/pmgame-server/internal/game"
	"github.com/pmquest/pmgame-server/internal/server"
	"github.com/pmquest/pmgame-server/internal/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath = flag.String("config", "", "path to configuration file (defaults and PMGAME_ environment when empty)")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting pmgame server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Load the board
	ds, err := data.Load(data.Paths{
		Spaces:   cfg.Data.SpacesPath,
		Outcomes: cfg.Data.OutcomesPath,
		Cards:    cfg.Data.CardsPath,
	}, logger.Named("data"))
	if err != nil {
		logger.Fatal("failed to load board data", zap.Error(err))
	}
	logger.Info("board loaded",
		zap.Int("spaces", len(ds.SpaceRows)),
		zap.Int("outcome_rows", len(ds.OutcomeRows)),
	)

	gameCtx, err := game.NewContext(ds, game.SettingsFromConfig(cfg.Game), logger.Named("game"))
	if err != nil {
		logger.Fatal("failed to build game context", zap.Error(err))
	}

	// Snapshot persistence
	st, err := store.Open(ctx, cfg.Store, logger.Named("store"))
	if err != nil {
		logger.Fatal("failed to open snapshot store", zap.Error(err))
	}
	defer st.Close()

	codec, err := store.NewCodec(cfg.Store.Compress)
	if err != nil {
		logger.Fatal("failed to build snapshot codec", zap.Error(err))
	}
	defer codec.Close()

	var recorder *game.ReplayRecorder
	if cfg.Store.ReplayDir != "" {
		recorder = game.NewReplayRecorder(logger, cfg.Store.ReplayDir)
		logger.Info("replay recording enabled", zap.String("dir", cfg.Store.ReplayDir))
	}

	engine := game.NewEngine(gameCtx, st, codec, recorder, logger.Named("engine"))

	hub := server.NewHub(engine, logger)
	go hub.Run(ctx)

	var wsServer *server.WebSocketServer
	if cfg.Server.WebSocket.Address != "" {
		wsServer = server.NewWebSocketServer(cfg.Server.WebSocket, hub, logger)
		go func() {
			if wsErr := wsServer.ListenAndServe(); wsErr != nil {
				logger.Error("WebSocket server error", zap.Error(wsErr))
			}
		}()
	}

	var grpcServer *server.GRPCServer
	if cfg.Server.GRPC.Address != "" {
		grpcServer = server.NewGRPCServer(cfg.Server.GRPC, engine, logger)
		go func() {
			if serveErr := grpcServer.ListenAndServe(); serveErr != nil {
				logger.Error("gRPC server error", zap.Error(serveErr))
			}
		}()
	}

	logger.Info("pmgame server initialized",
		zap.String("version", version),
		zap.String("grpc_address", cfg.Server.GRPC.Address),
		zap.String("websocket_address", cfg.Server.WebSocket.Address),
		zap.String("store_driver", cfg.Store.Driver),
	)

	// Wait for termination signal
	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	// Graceful shutdown
	logger.Info("shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if wsServer != nil {
		if err := wsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("websocket shutdown failed", zap.Error(err))
		}
	}
	if grpcServer != nil {
		grpcServer.Stop()
	}

	for _, id := range engine.List() {
		if err := engine.Save(shutdownCtx, id); err != nil {
			logger.Warn("failed to save game on shutdown", zap.String("game_id", id), zap.Error(err))
		}
		if err := engine.Remove(id); err != nil {
			logger.Warn("failed to remove game on shutdown", zap.String("game_id", id), zap.Error(err))
		}
	}
	cancel()

	logger.Info("pmgame server stopped")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
