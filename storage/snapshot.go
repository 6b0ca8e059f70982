// Package storage persists Scene node snapshots to Postgres for crash
// recovery: a node's interface Values, JSON-encoded and content-addressed
// the way a content-addressed blob store keys entries by the hash of their
// bytes rather than by caller-assigned identity.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lyzr/notf/common/config"
	"github.com/lyzr/notf/common/logger"
)

// Store wraps a Postgres connection pool with the snapshot schema's
// read/write operations.
type Store struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// New opens a connection pool per cfg and verifies it with a ping.
func New(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("storage: parse database url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("storage: create connection pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ping database: %w", err)
	}
	log.Info("storage connected", "host", cfg.Host, "db", cfg.Database)
	return &Store{pool: pool, log: log}, nil
}

// Close releases the connection pool.
func (s *Store) Close() { s.pool.Close() }

// Health pings the pool.
func (s *Store) Health(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.pool.Ping(pingCtx)
}

// EnsureSchema creates the snapshot table if it does not already exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS node_snapshot (
	content_hash TEXT PRIMARY KEY,
	snapshot_id  UUID NOT NULL,
	node_path    TEXT NOT NULL,
	interface_json JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("storage: ensure schema: %w", err)
	}
	return nil
}

// Save content-addresses interfaceJSON (a node's interface Values already
// encoded via value.AsJSON) by its sha256 and upserts it keyed by that
// hash, so repeated snapshots of an unchanged node are a no-op write.
func (s *Store) Save(ctx context.Context, nodePath, interfaceJSON string) (string, error) {
	sum := sha256.Sum256([]byte(interfaceJSON))
	hash := hex.EncodeToString(sum[:])
	id := uuid.New()
	_, err := s.pool.Exec(ctx, `
INSERT INTO node_snapshot (content_hash, snapshot_id, node_path, interface_json, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (content_hash) DO NOTHING`,
		hash, id, nodePath, interfaceJSON, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("storage: save snapshot for %q: %w", nodePath, err)
	}
	return hash, nil
}

// Diff computes the JSON merge patch that turns before into after, for
// logging what changed about a node between two snapshots without
// persisting either full document a second time.
func (s *Store) Diff(before, after string) ([]byte, error) {
	patch, err := jsonpatch.CreateMergePatch([]byte(before), []byte(after))
	if err != nil {
		return nil, fmt.Errorf("storage: compute merge patch: %w", err)
	}
	return patch, nil
}

// Latest returns the most recently written snapshot JSON for nodePath, or
// false if none exists.
func (s *Store) Latest(ctx context.Context, nodePath string) (string, bool, error) {
	var interfaceJSON string
	err := s.pool.QueryRow(ctx, `
SELECT interface_json FROM node_snapshot
WHERE node_path = $1
ORDER BY created_at DESC
LIMIT 1`, nodePath).Scan(&interfaceJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("storage: load snapshot for %q: %w", nodePath, err)
	}
	return interfaceJSON, true, nil
}
