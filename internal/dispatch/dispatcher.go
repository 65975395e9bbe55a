// Package dispatch routes typed requests to the rules engine. Each mutating request
// loads the session, applies one pure engine operation and saves the result; a failed
// operation saves nothing.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/jason-s-yu/uno/internal/store"
	"github.com/sirupsen/logrus"
)

// ActionPublisher receives the event log of every committed request.
type ActionPublisher interface {
	Publish(ctx context.Context, records ...cache.ActionRecord) error
}

// ShufflerFactory supplies the shuffler for each newly created session.
type ShufflerFactory func() (game.Shuffler, error)

// Dispatcher is the request host around one SessionStore.
type Dispatcher struct {
	store       store.SessionStore
	publisher   ActionPublisher
	rules       game.Rules
	newShuffler ShufflerFactory
	logger      logrus.FieldLogger

	mu    sync.Mutex
	locks map[uuid.UUID]*sessionLock
}

// sessionLock is dropped from the map once no request holds or waits on it.
type sessionLock struct {
	sync.Mutex
	refs int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPublisher sends committed events to p.
func WithPublisher(p ActionPublisher) Option {
	return func(d *Dispatcher) { d.publisher = p }
}

// WithRules sets the rules used for new sessions.
func WithRules(r game.Rules) Option {
	return func(d *Dispatcher) { d.rules = r }
}

// WithShuffler sets the shuffler factory used for new sessions.
func WithShuffler(f ShufflerFactory) Option {
	return func(d *Dispatcher) { d.newShuffler = f }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// SeededShufflers returns a factory yielding a deterministic shuffler per session.
func SeededShufflers(seed int64) ShufflerFactory {
	return func() (game.Shuffler, error) { return game.NewSeededShuffler(seed), nil }
}

// New builds a dispatcher with default rules, crypto-seeded shuffling and the standard logger.
func New(st store.SessionStore, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:       st,
		rules:       game.DefaultRules(),
		newShuffler: game.NewRandomShuffler,
		logger:      logrus.StandardLogger(),
		locks:       make(map[uuid.UUID]*sessionLock),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// lock serializes mutations of one session; at most one is in flight per id.
func (d *Dispatcher) lock(id uuid.UUID) func() {
	d.mu.Lock()
	l, ok := d.locks[id]
	if !ok {
		l = &sessionLock{}
		d.locks[id] = l
	}
	l.refs++
	d.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		d.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(d.locks, id)
		}
		d.mu.Unlock()
	}
}

// CreateSession builds and stores a new session seated with founder. overrides holds
// rule keys (minPlayers, maxPlayers, initialHandSize, endTurnOnDraw) applied on top of
// the dispatcher's rules; nil keeps them as they are.
func (d *Dispatcher) CreateSession(ctx context.Context, founder string, overrides map[string]interface{}) (*game.Session, error) {
	rules, err := game.ParseRules(overrides, d.rules)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	shuffler, err := d.newShuffler()
	if err != nil {
		return nil, fmt.Errorf("create shuffler: %w", err)
	}
	s, err := game.NewSession(founder, rules, shuffler)
	if err != nil {
		return nil, err
	}
	if err := d.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("persist new session: %w", err)
	}

	d.logger.WithFields(logrus.Fields{
		"session":    s.ID,
		"founder":    founder,
		"minPlayers": rules.MinPlayers,
		"maxPlayers": rules.MaxPlayers,
	}).Info("session created")
	d.publish(ctx, s, founder, []game.GameEvent{{Type: game.EventPlayerJoined, User: founder, Payload: map[string]interface{}{"seat": 0}}})
	return s, nil
}

type operation func(s *game.Session) (*game.Session, []game.GameEvent, error)

// mutate runs op against the stored session under the session lock and commits the
// result. Errors from op leave the stored record untouched.
func (d *Dispatcher) mutate(ctx context.Context, id uuid.UUID, actor, action string, op operation) (*game.Session, []game.GameEvent, error) {
	unlock := d.lock(id)
	defer unlock()

	fields := logrus.Fields{"session": id, "player": actor, "action": action}

	current, err := d.store.Load(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load session %s: %w", id, err)
	}

	next, events, err := op(current)
	if err != nil {
		d.logger.WithFields(fields).WithField("reason", game.KindOf(err)).Debugf("%s rejected: %v", action, err)
		return nil, nil, err
	}

	if err := d.store.Save(ctx, next); err != nil {
		return nil, nil, fmt.Errorf("persist session %s: %w", id, err)
	}

	for _, ev := range events {
		if ev.Warning() {
			d.logger.WithFields(fields).WithFields(logrus.Fields{
				"target": ev.User,
				"drawn":  ev.Count,
				"wanted": ev.Wanted,
			}).Warn("deck exhausted, short draw")
		}
	}
	d.logger.WithFields(fields).WithField("phase", next.Phase).Debugf("%s applied", action)
	if next.Finished() && !current.Finished() {
		if next.Abandoned() {
			d.logger.WithFields(fields).Info("session abandoned")
		} else {
			d.logger.WithFields(fields).WithField("winner", next.Winner).Info("session finished")
		}
	}

	d.publish(ctx, next, actor, events)
	return next, events, nil
}

// publish hands the committed events to the action queue. The session is already saved,
// so failures are logged and otherwise ignored.
func (d *Dispatcher) publish(ctx context.Context, s *game.Session, actor string, events []game.GameEvent) {
	if d.publisher == nil || len(events) == 0 {
		return
	}
	now := time.Now().UnixMilli()
	records := make([]cache.ActionRecord, 0, len(events))
	for i, ev := range events {
		records = append(records, cache.ActionRecord{
			SessionID:     s.ID,
			ActionIndex:   s.ActionIndex,
			EventIndex:    i,
			Actor:         actor,
			ActionType:    string(ev.Type),
			ActionPayload: eventPayload(ev),
			Timestamp:     now,
		})
	}
	if err := d.publisher.Publish(ctx, records...); err != nil {
		d.logger.WithField("session", s.ID).Errorf("failed to publish %d actions: %v", len(records), err)
	}
}

func eventPayload(ev game.GameEvent) map[string]interface{} {
	payload := make(map[string]interface{}, len(ev.Payload)+4)
	for k, v := range ev.Payload {
		payload[k] = v
	}
	if ev.User != "" {
		payload["user"] = ev.User
	}
	if ev.Card != nil {
		payload["card"] = ev.Card.String()
	}
	if ev.Color != models.ColorNone {
		payload["color"] = ev.Color.String()
	}
	if ev.Count != 0 || ev.Wanted != 0 {
		payload["count"] = ev.Count
	}
	if ev.Wanted != 0 {
		payload["wanted"] = ev.Wanted
	}
	return payload
}

// Join seats identity in the session.
func (d *Dispatcher) Join(ctx context.Context, id uuid.UUID, identity string) (*game.Session, []game.GameEvent, error) {
	return d.mutate(ctx, id, identity, "join", func(s *game.Session) (*game.Session, []game.GameEvent, error) {
		return s.Join(identity)
	})
}

// Leave removes identity from the session.
func (d *Dispatcher) Leave(ctx context.Context, id uuid.UUID, identity string) (*game.Session, []game.GameEvent, error) {
	return d.mutate(ctx, id, identity, "leave", func(s *game.Session) (*game.Session, []game.GameEvent, error) {
		return s.Leave(identity)
	})
}

// Draw draws one card for identity.
func (d *Dispatcher) Draw(ctx context.Context, id uuid.UUID, identity string) (*game.Session, []game.GameEvent, error) {
	return d.mutate(ctx, id, identity, "draw", func(s *game.Session) (*game.Session, []game.GameEvent, error) {
		return s.Draw(identity)
	})
}

// Play plays card from identity's hand; declared is required for wild cards.
func (d *Dispatcher) Play(ctx context.Context, id uuid.UUID, identity string, card models.Card, declared models.Color) (*game.Session, []game.GameEvent, error) {
	return d.mutate(ctx, id, identity, "play", func(s *game.Session) (*game.Session, []game.GameEvent, error) {
		return s.Play(identity, card, declared)
	})
}

// DeleteSession removes a finished session from the store. Sessions still waiting or
// in play are refused.
func (d *Dispatcher) DeleteSession(ctx context.Context, id uuid.UUID, identity string) error {
	unlock := d.lock(id)
	defer unlock()

	s, err := d.store.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("load session %s: %w", id, err)
	}
	if !s.Finished() {
		return fmt.Errorf("%w: session %s is still %s", ErrBadRequest, id, s.Phase)
	}
	if err := d.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	d.logger.WithFields(logrus.Fields{"session": id, "player": identity}).Info("session deleted")
	return nil
}

// GetSessionSummary returns the public projection of the session.
func (d *Dispatcher) GetSessionSummary(ctx context.Context, id uuid.UUID) (game.Summary, error) {
	s, err := d.store.Load(ctx, id)
	if err != nil {
		return game.Summary{}, fmt.Errorf("load session %s: %w", id, err)
	}
	return s.Summary(), nil
}

// GetPlayerHand returns identity's hand, or a PlayerNotFound rule error.
func (d *Dispatcher) GetPlayerHand(ctx context.Context, id uuid.UUID, identity string) ([]models.Card, error) {
	s, err := d.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return s.Hand(identity)
}
