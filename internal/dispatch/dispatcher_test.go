package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/jason-s-yu/uno/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu      sync.Mutex
	records []cache.ActionRecord
	err     error
}

func (f *fakePublisher) Publish(_ context.Context, records ...cache.ActionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, records...)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func (d *Dispatcher) heldLocks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.locks)
}

func unshuffled() (game.Shuffler, error) { return game.NoShuffle, nil }

func newTestDispatcher(t *testing.T) (*Dispatcher, *store.MemoryStore, *fakePublisher, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	st := store.NewMemoryStore()
	pub := &fakePublisher{}
	d := New(st, WithPublisher(pub), WithShuffler(unshuffled), WithLogger(logger))
	return d, st, pub, hook
}

// startGame creates a two-player table. On the unshuffled deck p0 holds four wild draw
// fours and three wilds, p1 holds one wild and green action cards.
func startGame(t *testing.T, d *Dispatcher) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	s, err := d.CreateSession(ctx, "p0", nil)
	require.NoError(t, err)
	s, events, err := d.Join(ctx, s.ID, "p1")
	require.NoError(t, err)
	require.Equal(t, game.PhaseActive, s.Phase)
	require.NotEmpty(t, events)
	return s.ID
}

func mustCard(t *testing.T, s string) models.Card {
	t.Helper()
	c, err := models.ParseCard(s)
	require.NoError(t, err)
	return c
}

func TestCreateAndJoinPersistAndPublish(t *testing.T) {
	d, st, pub, _ := newTestDispatcher(t)
	id := startGame(t, d)

	stored, err := st.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, game.PhaseActive, stored.Phase)
	assert.Equal(t, 1, stored.ActionIndex)
	assert.Len(t, stored.Players[0].Hand, 7)
	assert.Len(t, stored.Players[1].Hand, 7)
	assert.Len(t, stored.Deck, 58)

	require.NotEmpty(t, pub.records)
	assert.Equal(t, "player_joined", pub.records[0].ActionType)
	assert.Equal(t, 0, pub.records[0].ActionIndex)

	var sawStart bool
	for _, rec := range pub.records[1:] {
		assert.Equal(t, id, rec.SessionID)
		assert.Equal(t, 1, rec.ActionIndex)
		if rec.ActionType == string(game.EventGameStarted) {
			sawStart = true
		}
	}
	assert.True(t, sawStart, "game_started should be published")
}

func TestRejectedActionSavesNothing(t *testing.T) {
	d, st, pub, hook := newTestDispatcher(t)
	id := startGame(t, d)
	ctx := context.Background()
	before, err := st.Load(ctx, id)
	require.NoError(t, err)
	published := pub.count()

	_, _, err = d.Play(ctx, id, "p1", mustCard(t, "wild"), models.ColorRed)
	assert.ErrorIs(t, err, game.ErrNotYourTurn)

	_, _, err = d.Play(ctx, id, "p0", mustCard(t, "red:5"), models.ColorNone)
	assert.ErrorIs(t, err, game.ErrCardNotInHand)

	_, _, err = d.Play(ctx, id, "p0", mustCard(t, "wild"), models.ColorNone)
	assert.ErrorIs(t, err, game.ErrMissingColorDeclaration)

	after, err := st.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before.ActionIndex, after.ActionIndex)
	assert.Equal(t, before.Clone().Players, after.Clone().Players)
	assert.Equal(t, published, pub.count())
	assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
}

func TestPlayAdvancesStoredSession(t *testing.T) {
	d, _, _, _ := newTestDispatcher(t)
	id := startGame(t, d)
	ctx := context.Background()

	s, events, err := d.Play(ctx, id, "p0", mustCard(t, "wild"), models.ColorGreen)
	require.NoError(t, err)
	assert.Equal(t, models.ColorGreen, s.ActiveColor)
	assert.Equal(t, 1, s.CurrentTurn)
	assert.Equal(t, game.EventCardPlayed, events[0].Type)

	summary, err := d.GetSessionSummary(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ActionIndex)
	assert.Equal(t, 6, summary.Players[0].HandSize)
	assert.True(t, summary.Players[1].IsCurrentTurn)

	hand, err := d.GetPlayerHand(ctx, id, "p1")
	require.NoError(t, err)
	assert.Len(t, hand, 7)

	_, err = d.GetPlayerHand(ctx, id, "stranger")
	assert.ErrorIs(t, err, game.ErrPlayerNotFound)
}

func TestShortDrawLogsWarning(t *testing.T) {
	d, st, _, hook := newTestDispatcher(t)
	id := startGame(t, d)
	ctx := context.Background()

	// leave a single card in the deck so the wild draw four comes up short
	s, err := st.Load(ctx, id)
	require.NoError(t, err)
	s.Deck = s.Deck[:1]
	require.NoError(t, st.Save(ctx, s))

	_, events, err := d.Play(ctx, id, "p0", mustCard(t, "wild_draw_four"), models.ColorBlue)
	require.NoError(t, err)

	var short bool
	for _, ev := range events {
		short = short || ev.Type == game.EventShortDraw
	}
	assert.True(t, short)

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			warned = true
			assert.Equal(t, "p1", entry.Data["target"])
			assert.Equal(t, 1, entry.Data["drawn"])
			assert.Equal(t, 4, entry.Data["wanted"])
		}
	}
	assert.True(t, warned, "short draw should log a warning")
}

func TestPublishFailureIsLoggedOnly(t *testing.T) {
	d, st, pub, hook := newTestDispatcher(t)
	id := startGame(t, d)
	pub.err = errors.New("queue down")

	s, _, err := d.Draw(context.Background(), id, "p0")
	require.NoError(t, err)
	assert.Len(t, s.Players[0].Hand, 8)

	stored, err := st.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, s.ActionIndex, stored.ActionIndex)

	var logged bool
	for _, entry := range hook.AllEntries() {
		logged = logged || entry.Level == logrus.ErrorLevel
	}
	assert.True(t, logged)
}

func TestConcurrentMutationsAreSerialized(t *testing.T) {
	d, st, _, _ := newTestDispatcher(t)
	id := startGame(t, d)
	ctx := context.Background()

	const draws = 20
	var wg sync.WaitGroup
	for i := 0; i < draws; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := d.Draw(ctx, id, "p0")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s, err := st.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1+draws, s.ActionIndex)
	assert.Len(t, s.Players[0].Hand, 7+draws)
	assert.Equal(t, game.InitialDeckSize, s.Inventory())
	assert.Zero(t, d.heldLocks(), "session locks are released after the last request")
}

func TestUnknownSession(t *testing.T) {
	d, _, _, _ := newTestDispatcher(t)
	_, _, err := d.Join(context.Background(), uuid.New(), "p9")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, CodeNotFound, ErrorCode(err))
	assert.Zero(t, d.heldLocks())
}

func TestSessionLocksDoNotAccumulate(t *testing.T) {
	d, _, _, _ := newTestDispatcher(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		id := startGame(t, d)
		_, _, err := d.Leave(ctx, id, "p1")
		require.NoError(t, err)
		_, _, err = d.Draw(ctx, id, "p0")
		assert.ErrorIs(t, err, game.ErrGameOver)
	}
	assert.Zero(t, d.heldLocks())
}

func TestAbandonedSessionIsLoggedAndDeletable(t *testing.T) {
	d, st, _, hook := newTestDispatcher(t)
	id := startGame(t, d)
	ctx := context.Background()

	err := d.DeleteSession(ctx, id, "p0")
	assert.ErrorIs(t, err, ErrBadRequest, "a session in play cannot be deleted")
	_, err = st.Load(ctx, id)
	require.NoError(t, err)

	s, _, err := d.Leave(ctx, id, "p1")
	require.NoError(t, err)
	require.True(t, s.Abandoned())

	var abandoned bool
	for _, entry := range hook.AllEntries() {
		abandoned = abandoned || entry.Message == "session abandoned"
	}
	assert.True(t, abandoned)

	require.NoError(t, d.DeleteSession(ctx, id, "p0"))
	_, err = st.Load(ctx, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Zero(t, d.heldLocks())
}
