package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/jason-s-yu/uno/internal/config"
	"github.com/jason-s-yu/uno/internal/dispatch"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/jason-s-yu/uno/internal/store"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeWritesOneLinePerRequest(t *testing.T) {
	logger, _ := test.NewNullLogger()
	d := dispatch.New(store.NewMemoryStore(), dispatch.WithLogger(logger), dispatch.WithShuffler(dispatch.SeededShufflers(7)))

	var out bytes.Buffer
	in := strings.NewReader(`{"type":"create","player":"alice"}` + "\n" + `not json` + "\n\n" + `{"type":"draw","player":"alice","sessionId":"00000000-0000-0000-0000-000000000001"}` + "\n")
	require.NoError(t, serve(context.Background(), d.Handle, in, &out))

	scanner := bufio.NewScanner(&out)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 3)

	var created dispatch.Response
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &created))
	assert.Equal(t, "create", created.Type)
	require.NotNil(t, created.Summary)
	assert.Equal(t, game.PhaseWaitingForPlayers, created.Summary.Phase)

	var bad errorLine
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &bad))
	assert.Equal(t, dispatch.CodeBadRequest, bad.Error.Code)

	var missing errorLine
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &missing))
	assert.Equal(t, dispatch.CodeNotFound, missing.Error.Code)
}

func TestOpenStoreDefaultsToMemory(t *testing.T) {
	st, err := openStore(context.Background(), config.Config{Store: config.StoreMemory}, nil)
	require.NoError(t, err)
	defer st.Close()
	_, ok := st.(*store.MemoryStore)
	assert.True(t, ok)
}

func TestOpenStoreSQLite(t *testing.T) {
	cfg := config.Config{Store: config.StoreSQLite, SQLitePath: t.TempDir() + "/uno.db"}
	st, err := openStore(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer st.Close()
	_, ok := st.(*store.SQLiteStore)
	assert.True(t, ok)
}

func runConfig() config.Config {
	return config.Config{Store: config.StoreMemory, MinPlayers: 2, MaxPlayers: 4, HandSize: 7}
}

func TestRunServesUntilInputEnds(t *testing.T) {
	logger, _ := test.NewNullLogger()
	var out bytes.Buffer
	in := strings.NewReader(`{"type":"create","player":"alice"}` + "\n")

	require.NoError(t, run(context.Background(), runConfig(), logger, in, &out))
	assert.Contains(t, out.String(), `"type":"create"`)
}

func TestRunTreatsCancellationAsCleanExit(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	in := strings.NewReader(`{"type":"create","player":"alice"}` + "\n")
	assert.NoError(t, run(ctx, runConfig(), logger, in, &out))
	assert.Empty(t, out.String())
}

func TestRunReturnsReadError(t *testing.T) {
	logger, hook := test.NewNullLogger()
	broken := errors.New("stdin closed")

	err := run(context.Background(), runConfig(), logger, iotest.ErrReader(broken), &bytes.Buffer{})
	assert.ErrorIs(t, err, broken)

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, "client detached", last.Message)
	assert.Equal(t, broken, last.Data["error"])
}

func TestRunReturnsStoreError(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := runConfig()
	cfg.Store = config.StoreSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "missing", "uno.db")

	err := run(context.Background(), cfg, logger, strings.NewReader(""), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store:")
}

func TestRunReturnsRulesError(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := runConfig()
	cfg.MinPlayers = 1

	err := run(context.Background(), cfg, logger, strings.NewReader(""), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rules:")
}
