// internal/game/turn.go
package game

// Turn engine. All helpers operate on a working copy and assume the caller
// already checked the phase preconditions.

// start deals the initial hands and flips the session to Active.
// A deck exhausted mid-deal leaves short hands instead of failing the transition.
func (s *Session) start(log *eventLog) {
	for i := range s.Players {
		s.dealInitialHand(i, log)
	}
	s.Phase = PhaseActive
	s.CurrentTurn = 0
	s.Direction = 1
	log.add(GameEvent{
		Type:    EventGameStarted,
		Payload: map[string]interface{}{"players": len(s.Players), "deckSize": len(s.Deck)},
	})
	s.announceTurn(log)
}

func (s *Session) dealInitialHand(seat int, log *eventLog) {
	dealt := s.drawInto(seat, s.Rules.InitialHandSize)
	if dealt < s.Rules.InitialHandSize {
		log.add(GameEvent{
			Type:    EventShortDraw,
			User:    s.Players[seat].ID,
			Count:   dealt,
			Wanted:  s.Rules.InitialHandSize,
			Payload: map[string]interface{}{"reason": "initial_deal"},
		})
	}
}

// drawInto pops up to n cards into the hand at seat and returns how many were drawn.
func (s *Session) drawInto(seat, n int) int {
	drawn := 0
	for ; drawn < n; drawn++ {
		card, rest, err := PopDraw(s.Deck)
		if err != nil {
			break
		}
		s.Deck = rest
		s.Players[seat].Hand = append(s.Players[seat].Hand, card)
	}
	return drawn
}

// seatAfter returns the seat reached by moving steps seats in the current direction.
func (s *Session) seatAfter(from, steps int) int {
	n := len(s.Players)
	if n == 0 {
		return 0
	}
	return ((from+s.Direction*steps)%n + n) % n
}

// advance moves the turn pointer by steps seats in the current direction.
func (s *Session) advance(steps int, log *eventLog) {
	s.CurrentTurn = s.seatAfter(s.CurrentTurn, steps)
	s.announceTurn(log)
}

func (s *Session) announceTurn(log *eventLog) {
	if p := s.CurrentPlayer(); p != nil {
		log.add(GameEvent{Type: EventGamePlayerTurn, User: p.ID})
	}
}

// finish moves the session to its terminal phase. An empty winner marks an abandoned game.
func (s *Session) finish(winner string, log *eventLog) {
	s.Phase = PhaseFinished
	s.Winner = winner
	ev := GameEvent{Type: EventGameEnd, User: winner}
	if winner == "" {
		ev.Payload = map[string]interface{}{"reason": "abandoned", "players": len(s.Players)}
	}
	log.add(ev)
}

// removeSeat drops the player at seat and re-indexes the turn pointer: a seat before the
// current one shifts the pointer down, the current seat hands the turn to its new occupant,
// and the result is always reduced modulo the remaining player count.
func (s *Session) removeSeat(seat int) {
	s.Players = append(s.Players[:seat], s.Players[seat+1:]...)
	if seat < s.CurrentTurn {
		s.CurrentTurn--
	}
	if len(s.Players) == 0 {
		s.CurrentTurn = 0
		return
	}
	s.CurrentTurn %= len(s.Players)
}
