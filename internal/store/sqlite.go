package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps snapshots in a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLite opens (creating if needed) the database at dsn. A plain file
// path gets its parent directory created.
func OpenSQLite(ctx context.Context, dsn string, logger *zap.Logger) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, errors.New("sqlite: empty dsn")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if !strings.HasPrefix(dsn, "file:") && !strings.Contains(dsn, ":memory:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS snapshots (
		game_id TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		updated_at TEXT NOT NULL
	);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}

	logger.Info("sqlite snapshot store opened", zap.String("dsn", dsn))
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, gameID string, blob []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (game_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(game_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		gameID, blob, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save %s: %w", gameID, err)
	}
	s.logger.Debug("snapshot saved", zap.String("game_id", gameID), zap.Int("bytes", len(blob)))
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, gameID string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE game_id = ?`, gameID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: load %s: %w", gameID, err)
	}
	return blob, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, gameID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE game_id = ?`, gameID)
	if err != nil {
		return fmt.Errorf("sqlite: delete %s: %w", gameID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSnapshotNotFound
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT game_id FROM snapshots ORDER BY game_id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: list: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
