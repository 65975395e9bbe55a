// cmd/uno/main.go
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/config"
	"github.com/jason-s-yu/uno/internal/database"
	"github.com/jason-s-yu/uno/internal/dispatch"
	"github.com/jason-s-yu/uno/internal/middleware"
	"github.com/jason-s-yu/uno/internal/store"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// errorLine is written in place of a Response when a request fails.
type errorLine struct {
	Error dispatch.ErrorBody `json:"error"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := cfg.NewLogger()
	logger.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, logger, os.Stdin, os.Stdout)
	stop()
	if err != nil {
		logger.Errorf("uno exited: %v", err)
		os.Exit(1)
	}
}

// run serves requests from in until it is exhausted or ctx is cancelled. Every
// connection it opens is closed before it returns.
func run(ctx context.Context, cfg config.Config, logger *logrus.Logger, in io.Reader, out io.Writer) error {
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		var err error
		rdb, err = cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
	}

	st, err := openStore(ctx, cfg, rdb)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer st.Close()

	rules, err := cfg.Rules()
	if err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	opts := []dispatch.Option{
		dispatch.WithRules(rules),
		dispatch.WithLogger(logger),
	}
	if cfg.ShuffleSeed != 0 {
		opts = append(opts, dispatch.WithShuffler(dispatch.SeededShufflers(cfg.ShuffleSeed)))
	}
	if rdb != nil {
		queue := cache.NewActionQueue(rdb, cfg.QueueName)
		opts = append(opts, dispatch.WithPublisher(queue))
		logger.Infof("publishing actions to %s", queue.Name())
	}
	d := dispatch.New(st, opts...)

	handler := middleware.LogRequests(logger)(d.Handle)
	logger.WithField("store", cfg.Store).Info("uno engine ready, reading requests from stdin")

	middleware.LogClientAttached(logger, "stdin")
	err = serve(ctx, handler, in, out)
	middleware.LogClientDetached(logger, "stdin", err)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// openStore builds the session store selected by cfg.Store.
func openStore(ctx context.Context, cfg config.Config, rdb *redis.Client) (store.SessionStore, error) {
	switch cfg.Store {
	case config.StoreRedis:
		return store.NewRedisStore(rdb, cfg.SessionExpiry()), nil
	case config.StorePostgres:
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		st, err := store.NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return st, nil
	case config.StoreSQLite:
		return store.OpenSQLite(cfg.SQLitePath)
	default:
		return store.NewMemoryStore(), nil
	}
}

// serve reads one JSON request per line from in and writes one JSON line per result to out.
func serve(ctx context.Context, handle dispatch.HandlerFunc, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	enc := json.NewEncoder(out)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req dispatch.Request
		if err := json.Unmarshal(line, &req); err != nil {
			if encErr := enc.Encode(errorLine{Error: dispatch.ErrorBody{Code: dispatch.CodeBadRequest, Message: err.Error()}}); encErr != nil {
				return encErr
			}
			continue
		}

		resp, err := handle(ctx, req)
		if err != nil {
			if encErr := enc.Encode(errorLine{Error: dispatch.NewErrorBody(err)}); encErr != nil {
				return encErr
			}
			continue
		}
		if err := enc.Encode(resp); err != nil {
			return err
		}
	}
	return scanner.Err()
}
