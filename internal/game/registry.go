// internal/game/registry.go
package game

import "github.com/jason-s-yu/uno/internal/models"

// Join seats identity at the end of the turn order. Reaching MinPlayers deals the
// initial hands and starts the game; a player joining an already active table is
// dealt a hand on the spot.
func (s *Session) Join(identity string) (*Session, []GameEvent, error) {
	if s.Finished() {
		return nil, nil, ErrGameOver
	}
	if len(s.Players) >= s.Rules.MaxPlayers {
		return nil, nil, ruleErrorf(KindSessionFull, "table holds at most %d players", s.Rules.MaxPlayers)
	}
	if s.PlayerIndex(identity) >= 0 {
		return nil, nil, ruleErrorf(KindAlreadyJoined, "player %s already seated", identity)
	}

	next := s.Clone()
	var log eventLog
	next.Players = append(next.Players, models.Player{ID: identity, Hand: []models.Card{}})
	log.add(GameEvent{Type: EventPlayerJoined, User: identity, Payload: map[string]interface{}{"seat": len(next.Players) - 1}})

	switch {
	case next.Phase == PhaseWaitingForPlayers && len(next.Players) == next.Rules.MinPlayers:
		next.start(&log)
	case next.Phase == PhaseActive:
		next.dealInitialHand(len(next.Players)-1, &log)
	}

	next.commit()
	return next, log, nil
}

// Leave removes identity from the table. The departing hand is void: those cards leave
// play for good and are only tracked through Voided. Dropping below MinPlayers while
// active, or emptying the table, ends the session without a winner.
func (s *Session) Leave(identity string) (*Session, []GameEvent, error) {
	if s.Finished() {
		return nil, nil, ErrGameOver
	}
	seat := s.PlayerIndex(identity)
	if seat < 0 {
		return nil, nil, ruleErrorf(KindPlayerNotFound, "player %s is not seated", identity)
	}

	next := s.Clone()
	var log eventLog
	voided := len(next.Players[seat].Hand)
	wasCurrent := seat == next.CurrentTurn
	next.Voided += voided
	next.removeSeat(seat)
	log.add(GameEvent{Type: EventPlayerLeft, User: identity, Count: voided})

	switch {
	case len(next.Players) == 0:
		next.finish("", &log)
	case next.Phase == PhaseActive && len(next.Players) < next.Rules.MinPlayers:
		next.finish("", &log)
	case next.Phase == PhaseActive && wasCurrent:
		next.announceTurn(&log)
	}

	next.commit()
	return next, log, nil
}
