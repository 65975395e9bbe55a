// internal/game/rules.go
package game

import "fmt"

// Rules holds the per-session table configuration.
type Rules struct {
	MinPlayers      int  `json:"minPlayers"`      // seated players needed before cards are dealt
	MaxPlayers      int  `json:"maxPlayers"`      // seats available; joins beyond this fail with SessionFull
	InitialHandSize int  `json:"initialHandSize"` // cards dealt to each player on start
	EndTurnOnDraw   bool `json:"endTurnOnDraw"`   // drawing also passes the turn
}

// DefaultRules returns the standard two-to-four player table with seven-card hands.
func DefaultRules() Rules {
	return Rules{
		MinPlayers:      2,
		MaxPlayers:      4,
		InitialHandSize: 7,
		EndTurnOnDraw:   false,
	}
}

// Validate checks that the bounds describe a playable table.
func (rules Rules) Validate() error {
	if rules.MinPlayers < 2 {
		return fmt.Errorf("minPlayers must be at least 2, got %d", rules.MinPlayers)
	}
	if rules.MaxPlayers < rules.MinPlayers {
		return fmt.Errorf("maxPlayers (%d) must be >= minPlayers (%d)", rules.MaxPlayers, rules.MinPlayers)
	}
	if rules.InitialHandSize < 1 {
		return fmt.Errorf("initialHandSize must be positive, got %d", rules.InitialHandSize)
	}
	return nil
}

// Update applies the keys present in newRules; absent or nil keys keep their old value.
func (rules *Rules) Update(newRules map[string]interface{}) error {
	var ok bool

	assignBool := func(field *bool, key string) error {
		if val, exists := newRules[key]; exists && val != nil {
			*field, ok = val.(bool)
			if !ok {
				return fmt.Errorf("invalid type for %s", key)
			}
		}
		return nil
	}

	assignInt := func(field *int, key string) error {
		if val, exists := newRules[key]; exists && val != nil {
			// JSON numbers decode as float64
			switch v := val.(type) {
			case float64:
				*field = int(v)
			case int:
				*field = v
			default:
				return fmt.Errorf("invalid type for %s", key)
			}
		}
		return nil
	}

	if err := assignInt(&rules.MinPlayers, "minPlayers"); err != nil {
		return err
	}
	if err := assignInt(&rules.MaxPlayers, "maxPlayers"); err != nil {
		return err
	}
	if err := assignInt(&rules.InitialHandSize, "initialHandSize"); err != nil {
		return err
	}
	if err := assignBool(&rules.EndTurnOnDraw, "endTurnOnDraw"); err != nil {
		return err
	}
	return rules.Validate()
}

// ParseRules applies a rule map on top of current and returns the result without modifying current.
func ParseRules(newRules map[string]interface{}, current Rules) (Rules, error) {
	parsed := current
	err := parsed.Update(newRules)
	return parsed, err
}
