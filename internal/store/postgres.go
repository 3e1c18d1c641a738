package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresStore keeps snapshots in PostgreSQL, shared by every server
// instance pointed at the same database.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// OpenPostgres connects to dsn and creates the snapshot table.
func OpenPostgres(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres: empty dsn")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS pmgame_snapshots (
		game_id TEXT PRIMARY KEY,
		data BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: create schema: %w", err)
	}

	logger.Info("postgres snapshot store opened")
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func (s *PostgresStore) Save(ctx context.Context, gameID string, blob []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pmgame_snapshots (game_id, data, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (game_id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		gameID, blob,
	)
	if err != nil {
		return fmt.Errorf("postgres: save %s: %w", gameID, err)
	}
	s.logger.Debug("snapshot saved", zap.String("game_id", gameID), zap.Int("bytes", len(blob)))
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, gameID string) ([]byte, error) {
	var blob []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM pmgame_snapshots WHERE game_id = $1`, gameID).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: load %s: %w", gameID, err)
	}
	return blob, nil
}

func (s *PostgresStore) Delete(ctx context.Context, gameID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM pmgame_snapshots WHERE game_id = $1`, gameID)
	if err != nil {
		return fmt.Errorf("postgres: delete %s: %w", gameID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSnapshotNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT game_id FROM pmgame_snapshots ORDER BY game_id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres: list: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
