// internal/game/validator.go
package game

import "github.com/jason-s-yu/uno/internal/models"

// checkTurn enforces the shared preconditions of Play and Draw in order:
// the game is not over, it has started, and identity holds the turn.
func (s *Session) checkTurn(identity string) error {
	if s.Finished() {
		return ErrGameOver
	}
	if s.Phase != PhaseActive {
		return ruleErrorf(KindNotStarted, "waiting for %d players, %d seated", s.Rules.MinPlayers, len(s.Players))
	}
	if current := s.CurrentPlayer(); current == nil || current.ID != identity {
		return ruleErrorf(KindNotYourTurn, "player %s cannot act out of turn", identity)
	}
	return nil
}

// CanPlay reports whether card may be laid on the current discard top. Wild cards are
// always playable; otherwise the card must match the active color or the top rank.
// An empty discard pile accepts any card.
func (s *Session) CanPlay(card models.Card) bool {
	if card.IsWild() {
		return true
	}
	top, ok := s.TopCard()
	if !ok {
		return true
	}
	return card.Color == s.ActiveColor || card.Rank == top.Rank
}

// Play validates and applies a card from identity's hand. declared is the color chosen
// for a wild card and is ignored for colored cards.
func (s *Session) Play(identity string, card models.Card, declared models.Color) (*Session, []GameEvent, error) {
	if err := s.checkTurn(identity); err != nil {
		return nil, nil, err
	}
	if s.CurrentPlayer().IndexOf(card) < 0 {
		return nil, nil, ruleErrorf(KindCardNotInHand, "%s does not hold %s", identity, card)
	}
	if card.IsWild() {
		if !declared.Concrete() {
			return nil, nil, ruleErrorf(KindMissingColorDeclaration, "%s needs a declared color", card)
		}
	} else if !s.CanPlay(card) {
		top, _ := s.TopCard()
		return nil, nil, ruleErrorf(KindIllegalPlay, "%s does not match %s on active color %s", card, top, s.ActiveColor)
	}

	next := s.Clone()
	var log eventLog
	seat := next.CurrentTurn
	next.Players[seat].RemoveCard(card)
	next.DiscardPile = append(next.DiscardPile, card)
	log.add(GameEvent{Type: EventCardPlayed, User: identity, Card: cardRef(card)})

	if card.IsWild() {
		next.ActiveColor = declared
		log.add(GameEvent{Type: EventColorDeclared, User: identity, Color: declared})
	} else {
		next.ActiveColor = card.Color
	}

	steps := next.resolveEffect(card, &log)

	if len(next.Players[seat].Hand) == 0 {
		next.finish(identity, &log)
	} else {
		next.advance(steps, &log)
	}

	next.commit()
	return next, log, nil
}

// resolveEffect applies the card's rank effect and returns how many seats the turn
// pointer moves at the end of the play.
func (s *Session) resolveEffect(card models.Card, log *eventLog) int {
	switch card.Rank {
	case models.RankSkip:
		s.skipNext(log)
		return 2
	case models.RankReverse:
		s.Direction = -s.Direction
		log.add(GameEvent{Type: EventDirectionReversed, Payload: map[string]interface{}{"direction": s.Direction}})
		if len(s.Players) == 2 {
			// heads-up reverse behaves as a skip
			s.skipNext(log)
			return 2
		}
		return 1
	case models.RankDrawTwo:
		s.forceDraw(2, log)
		return 2
	case models.RankWildDrawFour:
		s.forceDraw(4, log)
		return 2
	default:
		return 1
	}
}

func (s *Session) skipNext(log *eventLog) {
	victim := s.seatAfter(s.CurrentTurn, 1)
	log.add(GameEvent{Type: EventPlayerSkipped, User: s.Players[victim].ID})
}

// forceDraw makes the next player draw n cards and loses them their turn. Running out of
// cards shortens the penalty rather than aborting the play.
func (s *Session) forceDraw(n int, log *eventLog) {
	victim := s.seatAfter(s.CurrentTurn, 1)
	id := s.Players[victim].ID
	drawn := s.drawInto(victim, n)
	log.add(GameEvent{Type: EventForcedDraw, User: id, Count: drawn, Wanted: n})
	if drawn < n {
		log.add(GameEvent{
			Type:    EventShortDraw,
			User:    id,
			Count:   drawn,
			Wanted:  n,
			Payload: map[string]interface{}{"reason": "forced_draw"},
		})
	}
	log.add(GameEvent{Type: EventPlayerSkipped, User: id})
}

// Draw moves one card from the deck into identity's hand. It does not pass the turn
// unless the table plays with EndTurnOnDraw.
func (s *Session) Draw(identity string) (*Session, []GameEvent, error) {
	if err := s.checkTurn(identity); err != nil {
		return nil, nil, err
	}
	if len(s.Deck) == 0 {
		return nil, nil, ruleErrorf(KindDeckEmpty, "no cards left to draw")
	}

	next := s.Clone()
	var log eventLog
	seat := next.CurrentTurn
	next.drawInto(seat, 1)
	log.add(GameEvent{Type: EventPlayerDraw, User: identity, Count: 1, Payload: map[string]interface{}{"deckSize": len(next.Deck)}})

	if next.Rules.EndTurnOnDraw {
		next.advance(1, &log)
	}

	next.commit()
	return next, log, nil
}
