package models

// Player is a seated participant. ID is an opaque, already-authenticated identity token.
type Player struct {
	ID   string `json:"id"`
	Hand []Card `json:"hand"`
}

// IndexOf returns the position of a card equal to c in the hand, or -1.
func (p *Player) IndexOf(c Card) int {
	for i, held := range p.Hand {
		if held == c {
			return i
		}
	}
	return -1
}

// RemoveCard removes one copy of c from the hand. It reports whether a copy was found.
func (p *Player) RemoveCard(c Card) bool {
	idx := p.IndexOf(c)
	if idx < 0 {
		return false
	}
	p.Hand = append(p.Hand[:idx], p.Hand[idx+1:]...)
	return true
}

// Clone returns a copy of the player whose hand does not alias the original.
func (p Player) Clone() Player {
	hand := make([]Card, len(p.Hand))
	copy(hand, p.Hand)
	return Player{ID: p.ID, Hand: hand}
}
