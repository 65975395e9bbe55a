// internal/game/errors.go
package game

import (
	"errors"
	"fmt"
)

// ErrorKind is a machine-readable rule failure code.
type ErrorKind string

const (
	KindSessionFull             ErrorKind = "SESSION_FULL"
	KindAlreadyJoined           ErrorKind = "ALREADY_JOINED"
	KindPlayerNotFound          ErrorKind = "PLAYER_NOT_FOUND"
	KindNotStarted              ErrorKind = "NOT_STARTED"
	KindNotYourTurn             ErrorKind = "NOT_YOUR_TURN"
	KindCardNotInHand           ErrorKind = "CARD_NOT_IN_HAND"
	KindIllegalPlay             ErrorKind = "ILLEGAL_PLAY"
	KindMissingColorDeclaration ErrorKind = "MISSING_COLOR_DECLARATION"
	KindDeckEmpty               ErrorKind = "DECK_EMPTY"
	KindGameOver                ErrorKind = "GAME_OVER"
)

// RuleError is a request-local failure. The session it was raised against is left untouched.
type RuleError struct {
	Kind    ErrorKind
	Message string
}

func (e *RuleError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches any RuleError of the same kind, so errors.Is(err, ErrNotYourTurn) works on detailed errors.
func (e *RuleError) Is(target error) bool {
	var re *RuleError
	if !errors.As(target, &re) {
		return false
	}
	return re.Kind == e.Kind
}

var (
	ErrSessionFull             = &RuleError{Kind: KindSessionFull}
	ErrAlreadyJoined           = &RuleError{Kind: KindAlreadyJoined}
	ErrPlayerNotFound          = &RuleError{Kind: KindPlayerNotFound}
	ErrNotStarted              = &RuleError{Kind: KindNotStarted}
	ErrNotYourTurn             = &RuleError{Kind: KindNotYourTurn}
	ErrCardNotInHand           = &RuleError{Kind: KindCardNotInHand}
	ErrIllegalPlay             = &RuleError{Kind: KindIllegalPlay}
	ErrMissingColorDeclaration = &RuleError{Kind: KindMissingColorDeclaration}
	ErrDeckEmpty               = &RuleError{Kind: KindDeckEmpty}
	ErrGameOver                = &RuleError{Kind: KindGameOver}
)

func ruleErrorf(kind ErrorKind, format string, args ...interface{}) *RuleError {
	return &RuleError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the rule kind from err, or "" when err is not a rule failure.
func KindOf(err error) ErrorKind {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}
