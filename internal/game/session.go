// internal/game/session.go
package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/models"
)

// Phase governs which operations a session accepts.
type Phase string

const (
	PhaseWaitingForPlayers Phase = "waiting_for_players"
	PhaseActive            Phase = "active"
	PhaseFinished          Phase = "finished"
)

// Session is the aggregate root of one game. Operations never mutate the receiver:
// each one works on a clone and returns it, so a failed request leaves the caller's
// copy exactly as it was.
type Session struct {
	ID    uuid.UUID `json:"id"`
	Rules Rules     `json:"rules"`

	Deck        []models.Card   `json:"deck"`
	DiscardPile []models.Card   `json:"discardPile"`
	Players     []models.Player `json:"players"`

	CurrentTurn int          `json:"currentTurn"`
	Direction   int          `json:"direction"`
	ActiveColor models.Color `json:"activeColor,omitempty"`

	Phase  Phase  `json:"phase"`
	Winner string `json:"winner,omitempty"` // set only when a play emptied a hand

	// Voided counts cards that left play with departing players.
	Voided int `json:"voided"`
	// ActionIndex increments on every successful mutation.
	ActionIndex int `json:"actionIndex"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewSession builds a session seated with its founder, holding a freshly built deck
// permuted by shuffler. A nil shuffler keeps construction order.
func NewSession(founder string, rules Rules, shuffler Shuffler) (*Session, error) {
	if founder == "" {
		return nil, fmt.Errorf("founder identity is required")
	}
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	if shuffler == nil {
		shuffler = NoShuffle
	}

	deck := BuildInitialDeck()
	shuffler.Shuffle(deck)

	now := time.Now().UTC()
	return &Session{
		ID:          uuid.New(),
		Rules:       rules,
		Deck:        deck,
		DiscardPile: []models.Card{},
		Players:     []models.Player{{ID: founder, Hand: []models.Card{}}},
		CurrentTurn: 0,
		Direction:   1,
		Phase:       PhaseWaitingForPlayers,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Clone returns a deep copy; no slice of the clone aliases the original.
func (s *Session) Clone() *Session {
	c := *s
	c.Deck = append([]models.Card(nil), s.Deck...)
	c.DiscardPile = append([]models.Card(nil), s.DiscardPile...)
	c.Players = make([]models.Player, len(s.Players))
	for i, p := range s.Players {
		c.Players[i] = p.Clone()
	}
	return &c
}

// Inventory returns |deck| + |discard| + sum of hands + voided cards. It equals
// InitialDeckSize for every reachable session.
func (s *Session) Inventory() int {
	total := len(s.Deck) + len(s.DiscardPile) + s.Voided
	for _, p := range s.Players {
		total += len(p.Hand)
	}
	return total
}

// TopCard returns the last discarded card, if any.
func (s *Session) TopCard() (models.Card, bool) {
	if len(s.DiscardPile) == 0 {
		return models.Card{}, false
	}
	return s.DiscardPile[len(s.DiscardPile)-1], true
}

// CurrentPlayer returns the player whose action is valid, or nil when nobody is seated.
func (s *Session) CurrentPlayer() *models.Player {
	if len(s.Players) == 0 || s.CurrentTurn < 0 || s.CurrentTurn >= len(s.Players) {
		return nil
	}
	return &s.Players[s.CurrentTurn]
}

// PlayerIndex returns the seat of identity, or -1.
func (s *Session) PlayerIndex(identity string) int {
	for i := range s.Players {
		if s.Players[i].ID == identity {
			return i
		}
	}
	return -1
}

// Player returns the seated player with the given identity.
func (s *Session) Player(identity string) (*models.Player, bool) {
	idx := s.PlayerIndex(identity)
	if idx < 0 {
		return nil, false
	}
	return &s.Players[idx], true
}

// Finished reports whether the session reached its terminal phase.
func (s *Session) Finished() bool {
	return s.Phase == PhaseFinished
}

// Abandoned reports a session that finished through attrition rather than a win.
func (s *Session) Abandoned() bool {
	return s.Phase == PhaseFinished && s.Winner == ""
}

// commit stamps a successful mutation.
func (s *Session) commit() {
	s.ActionIndex++
	s.UpdatedAt = time.Now().UTC()
}
