package historian

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/database"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ActionGameEnd is the record type that closes a session's history row.
const ActionGameEnd = string(game.EventGameEnd)

// RedisSource pops records from the Redis list the dispatcher publishes to.
type RedisSource struct {
	rdb    *redis.Client
	queue  string
	logger logrus.FieldLogger
}

// NewRedisSource reads from queue; an empty name selects cache.DefaultQueueName.
func NewRedisSource(rdb *redis.Client, queue string, logger logrus.FieldLogger) *RedisSource {
	if queue == "" {
		queue = cache.DefaultQueueName
	}
	return &RedisSource{rdb: rdb, queue: queue, logger: logger}
}

// Next BLPops one record. Malformed payloads are logged and skipped.
func (r *RedisSource) Next(ctx context.Context, wait time.Duration) (cache.ActionRecord, bool, error) {
	res, err := r.rdb.BLPop(ctx, wait, r.queue).Result()
	if errors.Is(err, redis.Nil) {
		return cache.ActionRecord{}, false, nil
	}
	if err != nil {
		return cache.ActionRecord{}, false, fmt.Errorf("BLPop %s: %w", r.queue, err)
	}
	// res[0] is the queue name and res[1] the payload.
	if len(res) < 2 {
		return cache.ActionRecord{}, false, nil
	}
	var rec cache.ActionRecord
	if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
		r.logger.Warnf("invalid action record: %v", err)
		return cache.ActionRecord{}, false, nil
	}
	return rec, true, nil
}

// PostgresSink writes records into uno_session_actions and maintains uno_session_history.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink wraps an open pool and makes sure the schema exists.
func NewPostgresSink(ctx context.Context, pool *pgxpool.Pool) (*PostgresSink, error) {
	if err := database.EnsureSchema(ctx, pool); err != nil {
		return nil, err
	}
	return &PostgresSink{pool: pool}, nil
}

func (p *PostgresSink) WriteBatch(ctx context.Context, records []cache.ActionRecord) error {
	return database.BeginTxFunc(ctx, p.pool, func(tx pgx.Tx) error {
		for _, rec := range records {
			if err := insertActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insert action %s/%d/%d: %w", rec.SessionID, rec.ActionIndex, rec.EventIndex, err)
			}
		}
		return nil
	})
}

// MarkAbandoned closes a history row that is still in progress.
func (p *PostgresSink) MarkAbandoned(ctx context.Context, sessionID uuid.UUID) error {
	return database.BeginTxFunc(ctx, p.pool, func(tx pgx.Tx) error {
		q := `
			UPDATE uno_session_history
			SET status = 'abandoned', end_time = NOW()
			WHERE session_id = $1 AND status = 'in_progress'
		`
		_, err := tx.Exec(ctx, q, sessionID)
		return err
	})
}

// insertActionTx upserts the history row, inserts the action and finalizes the
// history row when the record ends the game. Replayed records are ignored.
func insertActionTx(ctx context.Context, tx pgx.Tx, rec cache.ActionRecord) error {
	upsertHistoryQ := `
		INSERT INTO uno_session_history (session_id, status, start_time)
		VALUES ($1, 'in_progress', $2)
		ON CONFLICT (session_id) DO NOTHING
	`
	ts := time.UnixMilli(rec.Timestamp).UTC()
	if _, err := tx.Exec(ctx, upsertHistoryQ, rec.SessionID, ts); err != nil {
		return err
	}

	payload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	actionInsertQ := `
		INSERT INTO uno_session_actions (
			session_id, action_index, event_index, actor, action_type, action_payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT DO NOTHING
	`
	_, err = tx.Exec(ctx, actionInsertQ,
		rec.SessionID, rec.ActionIndex, rec.EventIndex, rec.Actor, rec.ActionType, payload, ts,
	)
	if err != nil {
		return err
	}

	if rec.ActionType == ActionGameEnd {
		status, winner := finalStatus(rec)
		finalizeQ := `
			UPDATE uno_session_history
			SET status = $2, winner = NULLIF($3, ''), end_time = $4
			WHERE session_id = $1 AND status = 'in_progress'
		`
		if _, err := tx.Exec(ctx, finalizeQ, rec.SessionID, status, winner, ts); err != nil {
			return err
		}
	}
	return nil
}

// finalStatus reads the outcome of a game_end record: a named winner completes the
// session, no winner means it was abandoned.
func finalStatus(rec cache.ActionRecord) (status, winner string) {
	if w, ok := rec.ActionPayload["user"].(string); ok && w != "" {
		return "completed", w
	}
	return "abandoned", ""
}
