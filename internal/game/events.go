// internal/game/events.go
package game

import "github.com/jason-s-yu/uno/internal/models"

// GameEventType names something that happened while applying a request.
type GameEventType string

const (
	EventPlayerJoined      GameEventType = "player_joined"
	EventPlayerLeft        GameEventType = "player_left"
	EventGameStarted       GameEventType = "game_started"
	EventPlayerDraw        GameEventType = "player_draw"
	EventCardPlayed        GameEventType = "card_played"
	EventColorDeclared     GameEventType = "color_declared"
	EventPlayerSkipped     GameEventType = "player_skipped"
	EventDirectionReversed GameEventType = "direction_reversed"
	EventForcedDraw        GameEventType = "forced_draw"
	EventShortDraw         GameEventType = "short_draw" // deck ran out mid-deal or mid-penalty
	EventGamePlayerTurn    GameEventType = "game_player_turn"
	EventGameEnd           GameEventType = "game_end"
)

// GameEvent is one entry of the effect log returned by every successful operation.
type GameEvent struct {
	Type   GameEventType `json:"type"`
	User   string        `json:"user,omitempty"`
	Card   *models.Card  `json:"card,omitempty"`
	Color  models.Color  `json:"color,omitempty"`
	Count  int           `json:"count,omitempty"`
	Wanted int           `json:"wanted,omitempty"`

	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Warning reports whether the event describes a degraded outcome the host should surface.
func (ev GameEvent) Warning() bool {
	return ev.Type == EventShortDraw
}

// eventLog collects events while an operation mutates its working copy.
type eventLog []GameEvent

func (l *eventLog) add(ev GameEvent) {
	*l = append(*l, ev)
}

func cardRef(c models.Card) *models.Card {
	return &c
}
