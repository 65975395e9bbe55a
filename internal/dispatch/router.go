package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/jason-s-yu/uno/internal/store"
)

// Request types accepted by Handle.
const (
	RequestCreate  = "create"
	RequestJoin    = "join"
	RequestLeave   = "leave"
	RequestDraw    = "draw"
	RequestPlay    = "play"
	RequestSummary = "summary"
	RequestHand    = "hand"
	RequestDelete  = "delete"
)

// Error codes outside the engine's rule kinds.
const (
	CodeBadRequest = "BAD_REQUEST"
	CodeNotFound   = "SESSION_NOT_FOUND"
	CodeInternal   = "INTERNAL"
)

// ErrBadRequest marks malformed requests.
var ErrBadRequest = errors.New("bad request")

// Request is one client instruction. Player is the caller's identity; the host
// authenticates it before the request gets here.
type Request struct {
	Type      string       `json:"type"`
	SessionID uuid.UUID    `json:"sessionId"`
	Player    string       `json:"player"`
	Card      *models.Card `json:"card,omitempty"`
	Color     models.Color `json:"color,omitempty"`

	// Rules overrides the table rules on create.
	Rules map[string]interface{} `json:"rules,omitempty"`
}

// UnmarshalJSON reads sessionId leniently: absent or "" is uuid.Nil, a malformed id
// is a bad request.
func (r *Request) UnmarshalJSON(b []byte) error {
	type requestFields Request
	aux := struct {
		*requestFields
		SessionID string `json:"sessionId"`
	}{requestFields: (*requestFields)(r)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	r.SessionID = uuid.Nil
	if strings.TrimSpace(aux.SessionID) == "" {
		return nil
	}
	id, err := uuid.Parse(aux.SessionID)
	if err != nil {
		return fmt.Errorf("%w: invalid sessionId %q", ErrBadRequest, aux.SessionID)
	}
	r.SessionID = id
	return nil
}

// Response carries the result of a handled Request.
type Response struct {
	Type      string           `json:"type"`
	SessionID uuid.UUID        `json:"sessionId"`
	Summary   *game.Summary    `json:"summary,omitempty"`
	Hand      []models.Card    `json:"hand,omitempty"`
	Events    []game.GameEvent `json:"events,omitempty"`
}

// ErrorBody is the wire shape of a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HandlerFunc processes one request.
type HandlerFunc func(ctx context.Context, req Request) (Response, error)

// Handle routes req to the matching dispatcher operation.
func (d *Dispatcher) Handle(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.Player) == "" {
		return Response{}, fmt.Errorf("%w: player is required", ErrBadRequest)
	}
	if req.Type != RequestCreate && req.SessionID == uuid.Nil {
		return Response{}, fmt.Errorf("%w: sessionId is required for %q", ErrBadRequest, req.Type)
	}

	var (
		sess   *game.Session
		events []game.GameEvent
		err    error
	)
	switch req.Type {
	case RequestCreate:
		sess, err = d.CreateSession(ctx, req.Player, req.Rules)
	case RequestJoin:
		sess, events, err = d.Join(ctx, req.SessionID, req.Player)
	case RequestLeave:
		sess, events, err = d.Leave(ctx, req.SessionID, req.Player)
	case RequestDraw:
		sess, events, err = d.Draw(ctx, req.SessionID, req.Player)
	case RequestPlay:
		if req.Card == nil {
			return Response{}, fmt.Errorf("%w: card is required to play", ErrBadRequest)
		}
		sess, events, err = d.Play(ctx, req.SessionID, req.Player, *req.Card, req.Color)
	case RequestSummary:
		summary, err := d.GetSessionSummary(ctx, req.SessionID)
		if err != nil {
			return Response{}, err
		}
		return Response{Type: req.Type, SessionID: req.SessionID, Summary: &summary}, nil
	case RequestHand:
		hand, err := d.GetPlayerHand(ctx, req.SessionID, req.Player)
		if err != nil {
			return Response{}, err
		}
		return Response{Type: req.Type, SessionID: req.SessionID, Hand: hand}, nil
	case RequestDelete:
		if err := d.DeleteSession(ctx, req.SessionID, req.Player); err != nil {
			return Response{}, err
		}
		return Response{Type: req.Type, SessionID: req.SessionID}, nil
	default:
		return Response{}, fmt.Errorf("%w: unknown request type %q", ErrBadRequest, req.Type)
	}
	if err != nil {
		return Response{}, err
	}

	summary := sess.Summary()
	return Response{
		Type:      req.Type,
		SessionID: sess.ID,
		Summary:   &summary,
		Events:    events,
	}, nil
}

// ErrorCode maps err onto a stable wire code.
func ErrorCode(err error) string {
	if kind := game.KindOf(err); kind != "" {
		return string(kind)
	}
	switch {
	case errors.Is(err, ErrBadRequest):
		return CodeBadRequest
	case errors.Is(err, store.ErrNotFound):
		return CodeNotFound
	default:
		return CodeInternal
	}
}

// NewErrorBody renders err for the client.
func NewErrorBody(err error) ErrorBody {
	return ErrorBody{Code: ErrorCode(err), Message: err.Error()}
}
