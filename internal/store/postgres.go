package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/uno/internal/database"
	"github.com/jason-s-yu/uno/internal/game"
)

// PostgresStore keeps sessions in the uno_sessions table as JSONB.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an open pool and makes sure the schema exists.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if err := database.EnsureSchema(ctx, pool); err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Save(ctx context.Context, sess *game.Session) error {
	data, err := encodeSession(sess)
	if err != nil {
		return err
	}
	err = database.BeginTxFunc(ctx, s.pool, func(tx pgx.Tx) error {
		q := `
			INSERT INTO uno_sessions (id, phase, winner, state, updated_at)
			VALUES ($1, $2, NULLIF($3, ''), $4, $5)
			ON CONFLICT (id)
			DO UPDATE SET phase = EXCLUDED.phase, winner = EXCLUDED.winner,
				state = EXCLUDED.state, updated_at = EXCLUDED.updated_at
		`
		_, e := tx.Exec(ctx, q, sess.ID, string(sess.Phase), sess.Winner, data, sess.UpdatedAt)
		return e
	})
	if err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, id uuid.UUID) (*game.Session, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT state FROM uno_sessions WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return decodeSession(data)
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM uno_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
