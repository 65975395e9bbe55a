// internal/game/summary.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/models"
)

// PlayerSummary is the public view of one seat. Hand contents are never included.
type PlayerSummary struct {
	ID            string `json:"id"`
	HandSize      int    `json:"handSize"`
	IsCurrentTurn bool   `json:"isCurrentTurn"`
}

// Summary is the read-only projection returned to any observer.
type Summary struct {
	SessionID   uuid.UUID       `json:"sessionId"`
	Players     []PlayerSummary `json:"players"`
	CurrentTurn int             `json:"currentTurn"`
	Direction   int             `json:"direction"`
	Phase       Phase           `json:"phase"`
	Winner      string          `json:"winner,omitempty"`
	ActiveColor models.Color    `json:"activeColor,omitempty"`
	DiscardTop  *models.Card    `json:"discardTop,omitempty"`
	DeckSize    int             `json:"deckSize"`
	DiscardSize int             `json:"discardSize"`
	ActionIndex int             `json:"actionIndex"`
}

// Summary builds the public projection of the session.
func (s *Session) Summary() Summary {
	sum := Summary{
		SessionID:   s.ID,
		Players:     make([]PlayerSummary, 0, len(s.Players)),
		CurrentTurn: s.CurrentTurn,
		Direction:   s.Direction,
		Phase:       s.Phase,
		Winner:      s.Winner,
		ActiveColor: s.ActiveColor,
		DeckSize:    len(s.Deck),
		DiscardSize: len(s.DiscardPile),
		ActionIndex: s.ActionIndex,
	}
	if top, ok := s.TopCard(); ok {
		sum.DiscardTop = &top
	}
	for i, p := range s.Players {
		sum.Players = append(sum.Players, PlayerSummary{
			ID:            p.ID,
			HandSize:      len(p.Hand),
			IsCurrentTurn: s.Phase == PhaseActive && i == s.CurrentTurn,
		})
	}
	return sum
}

// Hand returns a copy of identity's hand.
func (s *Session) Hand(identity string) ([]models.Card, error) {
	p, ok := s.Player(identity)
	if !ok {
		return nil, ruleErrorf(KindPlayerNotFound, "player %s is not seated", identity)
	}
	return p.Clone().Hand, nil
}
