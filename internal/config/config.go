// Package config loads server configuration from a YAML file, PMGAME_
// environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PMGAME_LOGGING_LEVEL.
const EnvPrefix = "PMGAME"

// Config is the root configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Data    DataConfig    `mapstructure:"data"`
	Store   StoreConfig   `mapstructure:"store"`
	Game    GameConfig    `mapstructure:"game"`
}

// ServerConfig holds the listener settings.
type ServerConfig struct {
	GRPC            GRPCConfig      `mapstructure:"grpc"`
	WebSocket       WebSocketConfig `mapstructure:"websocket"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
}

// GRPCConfig configures the health/admin endpoint.
type GRPCConfig struct {
	Address              string `mapstructure:"address"`
	MaxConcurrentStreams int    `mapstructure:"max_concurrent_streams"`
}

// WebSocketConfig configures the client transport.
type WebSocketConfig struct {
	Address         string        `mapstructure:"address"`
	Path            string        `mapstructure:"path"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
}

// LoggingConfig selects the zap level and encoder.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DataConfig points at board files. Empty paths use the embedded board.
type DataConfig struct {
	SpacesPath   string `mapstructure:"spaces_path"`
	OutcomesPath string `mapstructure:"outcomes_path"`
	CardsPath    string `mapstructure:"cards_path"`
}

// StoreConfig selects snapshot persistence.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	DSN       string `mapstructure:"dsn"`
	Compress  bool   `mapstructure:"compress"`
	ReplayDir string `mapstructure:"replay_dir"`
}

// GameConfig holds the rules knobs.
type GameConfig struct {
	StartingMoney        int      `mapstructure:"starting_money"`
	StartingTime         int      `mapstructure:"starting_time"`
	StartSpace           string   `mapstructure:"start_space"`
	FinishSpace          string   `mapstructure:"finish_space"`
	MaxPlayers           int      `mapstructure:"max_players"`
	LedgerRetentionTurns int      `mapstructure:"ledger_retention_turns"`
	DecisionCheck        string   `mapstructure:"decision_check"`
	FeeReview            string   `mapstructure:"fee_review"`
	DiceGated            []string `mapstructure:"dice_gated"`
}

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.grpc.address", ":9090")
	v.SetDefault("server.grpc.max_concurrent_streams", 100)
	v.SetDefault("server.websocket.address", ":8080")
	v.SetDefault("server.websocket.path", "/ws")
	v.SetDefault("server.websocket.read_buffer_size", 1024)
	v.SetDefault("server.websocket.write_buffer_size", 1024)
	v.SetDefault("server.websocket.allowed_origins", []string{})
	v.SetDefault("server.websocket.ping_interval", 30*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("data.spaces_path", "")
	v.SetDefault("data.outcomes_path", "")
	v.SetDefault("data.cards_path", "")

	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.compress", true)
	v.SetDefault("store.replay_dir", "")

	v.SetDefault("game.starting_money", 0)
	v.SetDefault("game.starting_time", 0)
	v.SetDefault("game.start_space", "OWNER-SCOPE-INITIATION")
	v.SetDefault("game.finish_space", "FINISH")
	v.SetDefault("game.max_players", 6)
	v.SetDefault("game.ledger_retention_turns", 50)
	v.SetDefault("game.decision_check", "PM-DECISION-CHECK")
	v.SetDefault("game.fee_review", "REG-FDNY-FEE-REVIEW")
	v.SetDefault("game.dice_gated", []string{"OWNER-FUND-INITIATION"})
}

// Default returns the configuration with no file and no environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	// Defaults always decode.
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load reads path (optional; empty means defaults plus environment),
// applies PMGAME_ overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be json or console", c.Logging.Format))
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for driver %s", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not supported", c.Store.Driver))
	}

	if c.Game.StartSpace == "" {
		errs = append(errs, errors.New("game.start_space is required"))
	}
	if c.Game.MaxPlayers < 1 {
		errs = append(errs, errors.New("game.max_players must be at least 1"))
	}
	if c.Game.LedgerRetentionTurns < 0 {
		errs = append(errs, errors.New("game.ledger_retention_turns must not be negative"))
	}
	if c.Server.WebSocket.Address == "" && c.Server.GRPC.Address == "" {
		errs = append(errs, errors.New("at least one of server.websocket.address and server.grpc.address is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
