package dispatch

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleRoutesRequests(t *testing.T) {
	d, _, _, _ := newTestDispatcher(t)
	ctx := context.Background()

	created, err := d.Handle(ctx, Request{Type: RequestCreate, Player: "p0"})
	require.NoError(t, err)
	require.NotNil(t, created.Summary)
	assert.Equal(t, game.PhaseWaitingForPlayers, created.Summary.Phase)
	id := created.SessionID

	joined, err := d.Handle(ctx, Request{Type: RequestJoin, SessionID: id, Player: "p1"})
	require.NoError(t, err)
	assert.Equal(t, game.PhaseActive, joined.Summary.Phase)
	assert.NotEmpty(t, joined.Events)

	wild := mustCard(t, "wild")
	played, err := d.Handle(ctx, Request{Type: RequestPlay, SessionID: id, Player: "p0", Card: &wild, Color: models.ColorYellow})
	require.NoError(t, err)
	assert.Equal(t, models.ColorYellow, played.Summary.ActiveColor)

	drawn, err := d.Handle(ctx, Request{Type: RequestDraw, SessionID: id, Player: "p1"})
	require.NoError(t, err)
	assert.Equal(t, 8, drawn.Summary.Players[1].HandSize)

	hand, err := d.Handle(ctx, Request{Type: RequestHand, SessionID: id, Player: "p1"})
	require.NoError(t, err)
	assert.Len(t, hand.Hand, 8)
	assert.Nil(t, hand.Summary)

	summary, err := d.Handle(ctx, Request{Type: RequestSummary, SessionID: id, Player: "observer"})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Summary.ActionIndex)

	left, err := d.Handle(ctx, Request{Type: RequestLeave, SessionID: id, Player: "p1"})
	require.NoError(t, err)
	assert.Equal(t, game.PhaseFinished, left.Summary.Phase)
	assert.Empty(t, left.Summary.Winner)

	deleted, err := d.Handle(ctx, Request{Type: RequestDelete, SessionID: id, Player: "p0"})
	require.NoError(t, err)
	assert.Equal(t, id, deleted.SessionID)

	_, err = d.Handle(ctx, Request{Type: RequestSummary, SessionID: id, Player: "observer"})
	assert.Equal(t, CodeNotFound, ErrorCode(err))
}

func TestHandleRejectsMalformedRequests(t *testing.T) {
	d, _, _, _ := newTestDispatcher(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  Request
	}{
		{"missing player", Request{Type: RequestCreate}},
		{"missing session", Request{Type: RequestJoin, Player: "p1"}},
		{"unknown type", Request{Type: "shuffle", SessionID: uuid.New(), Player: "p1"}},
		{"play without card", Request{Type: RequestPlay, SessionID: uuid.New(), Player: "p1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Handle(ctx, tt.req)
			assert.ErrorIs(t, err, ErrBadRequest)
			assert.Equal(t, CodeBadRequest, NewErrorBody(err).Code)
		})
	}
}

func TestErrorCodeUsesRuleKind(t *testing.T) {
	d, _, _, _ := newTestDispatcher(t)
	id := startGame(t, d)

	_, err := d.Handle(context.Background(), Request{Type: RequestDraw, SessionID: id, Player: "p1"})
	require.Error(t, err)
	body := NewErrorBody(err)
	assert.Equal(t, "NOT_YOUR_TURN", body.Code)
	assert.NotEmpty(t, body.Message)
}

func TestRequestDecodesWireFormat(t *testing.T) {
	raw := `{"type":"play","sessionId":"6f1c2a4e-3b8d-4f7a-9c2e-1d5b7a9e0f11","player":"p0","card":{"color":"wild","rank":"wild"},"color":"red"}`
	var req Request
	require.NoError(t, json.Unmarshal([]byte(raw), &req))
	assert.Equal(t, RequestPlay, req.Type)
	require.NotNil(t, req.Card)
	assert.True(t, req.Card.IsWild())
	assert.Equal(t, models.ColorRed, req.Color)
}

func TestCreateAppliesRuleOverrides(t *testing.T) {
	d, _, _, _ := newTestDispatcher(t)
	ctx := context.Background()

	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{"type":"create","player":"p0","rules":{"minPlayers":3,"initialHandSize":5}}`), &req))
	created, err := d.Handle(ctx, req)
	require.NoError(t, err)
	id := created.SessionID

	joined, err := d.Handle(ctx, Request{Type: RequestJoin, SessionID: id, Player: "p1"})
	require.NoError(t, err)
	assert.Equal(t, game.PhaseWaitingForPlayers, joined.Summary.Phase, "two players must not start a three-player table")

	_, err = d.Handle(ctx, Request{Type: RequestDraw, SessionID: id, Player: "p0"})
	assert.ErrorIs(t, err, game.ErrNotStarted)

	started, err := d.Handle(ctx, Request{Type: RequestJoin, SessionID: id, Player: "p2"})
	require.NoError(t, err)
	assert.Equal(t, game.PhaseActive, started.Summary.Phase)
	for _, p := range started.Summary.Players {
		assert.Equal(t, 5, p.HandSize)
	}
}

func TestCreateRejectsInvalidRules(t *testing.T) {
	d, _, pub, _ := newTestDispatcher(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		rules map[string]interface{}
	}{
		{"below two players", map[string]interface{}{"minPlayers": float64(1)}},
		{"max below min", map[string]interface{}{"minPlayers": float64(4), "maxPlayers": float64(3)}},
		{"wrong type", map[string]interface{}{"endTurnOnDraw": "yes"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Handle(ctx, Request{Type: RequestCreate, Player: "p0", Rules: tt.rules})
			assert.ErrorIs(t, err, ErrBadRequest)
			assert.Equal(t, CodeBadRequest, ErrorCode(err))
		})
	}
	assert.Zero(t, pub.count(), "rejected creates must not store or announce a session")
}

func TestRequestSessionIDDecoding(t *testing.T) {
	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{"type":"create","player":"p0","sessionId":""}`), &req))
	assert.Equal(t, uuid.Nil, req.SessionID)
	assert.Equal(t, "p0", req.Player)

	require.NoError(t, json.Unmarshal([]byte(`{"type":"create","player":"p0"}`), &req))
	assert.Equal(t, uuid.Nil, req.SessionID)

	err := json.Unmarshal([]byte(`{"type":"join","player":"p1","sessionId":"table-7"}`), &req)
	assert.ErrorIs(t, err, ErrBadRequest)
	assert.Equal(t, CodeBadRequest, ErrorCode(err))
}
