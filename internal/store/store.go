// Package store holds the Storage Adapters that load and save whole sessions by key.
// Every adapter persists a session as one JSON record, so a save is all-or-nothing.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/game"
)

// ErrNotFound is returned by Load when no session is stored under the key.
var ErrNotFound = errors.New("session not found")

// SessionStore loads and saves session records by id.
type SessionStore interface {
	Load(ctx context.Context, id uuid.UUID) (*game.Session, error)
	Save(ctx context.Context, s *game.Session) error
	Delete(ctx context.Context, id uuid.UUID) error
	Close() error
}

func encodeSession(s *game.Session) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal session %s: %w", s.ID, err)
	}
	return data, nil
}

func decodeSession(data []byte) (*game.Session, error) {
	var s game.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &s, nil
}
