package game

import (
	"fmt"
	"testing"

	"github.com/jason-s-yu/uno/internal/models"
	"github.com/stretchr/testify/require"
)

func card(t *testing.T, s string) models.Card {
	t.Helper()
	c, err := models.ParseCard(s)
	require.NoError(t, err)
	return c
}

// setupTestSession seats numPlayers players named p0..pN-1 on an unshuffled deck.
// With the default rules the second join deals the hands and activates the game.
func setupTestSession(t *testing.T, numPlayers int, rules *Rules) *Session {
	t.Helper()
	r := DefaultRules()
	if rules != nil {
		r = *rules
	}
	s, err := NewSession("p0", r, NoShuffle)
	require.NoError(t, err)
	for i := 1; i < numPlayers; i++ {
		next, _, err := s.Join(fmt.Sprintf("p%d", i))
		require.NoError(t, err)
		s = next
	}
	return s
}

// takeFromDeck removes one copy of c from the deck, keeping the inventory closed.
func takeFromDeck(t *testing.T, s *Session, c models.Card) models.Card {
	t.Helper()
	for i, d := range s.Deck {
		if d == c {
			s.Deck = append(s.Deck[:i], s.Deck[i+1:]...)
			return c
		}
	}
	t.Fatalf("card %s not in deck", c)
	return models.Card{}
}

// setHand returns seat's current hand to the deck and replaces it with cards drawn from the deck.
func setHand(t *testing.T, s *Session, seat int, cards ...string) {
	t.Helper()
	s.Deck = append(s.Deck, s.Players[seat].Hand...)
	s.Players[seat].Hand = []models.Card{}
	for _, name := range cards {
		c := takeFromDeck(t, s, card(t, name))
		s.Players[seat].Hand = append(s.Players[seat].Hand, c)
	}
}

// seedDiscard moves a card from the deck to the top of the discard pile.
func seedDiscard(t *testing.T, s *Session, name string) {
	t.Helper()
	c := takeFromDeck(t, s, card(t, name))
	s.DiscardPile = append(s.DiscardPile, c)
	if !c.IsWild() {
		s.ActiveColor = c.Color
	}
}

func requireInventory(t *testing.T, s *Session) {
	t.Helper()
	require.Equal(t, InitialDeckSize, s.Inventory(), "closed inventory violated")
}

func hasEvent(events []GameEvent, typ GameEventType, user string) bool {
	for _, ev := range events {
		if ev.Type == typ && (user == "" || ev.User == user) {
			return true
		}
	}
	return false
}
