// Package store persists game snapshots. Snapshots are opaque blobs here;
// the Codec handles compression and schema validation.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/pmquest/pmgame-server/internal/config"
	"go.uber.org/zap"
)

// ErrSnapshotNotFound is returned when no snapshot exists for a game.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Store saves and loads the latest snapshot of each game.
type Store interface {
	Save(ctx context.Context, gameID string, blob []byte) error
	Load(ctx context.Context, gameID string) ([]byte, error)
	Delete(ctx context.Context, gameID string) error
	List(ctx context.Context) ([]string, error)
	Close() error
}

// Open returns the store selected by cfg.
func Open(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Driver {
	case config.DriverMemory, "":
		logger.Info("using in-memory snapshot store")
		return NewMemoryStore(), nil
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.DSN, logger)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.DSN, logger)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
