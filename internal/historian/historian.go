// Package historian drains the action queue written by the dispatcher and persists the
// records to PostgreSQL in batches.
package historian

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/sirupsen/logrus"
)

// Source yields queued action records. Next blocks for at most wait and reports
// ok=false when nothing arrived in time.
type Source interface {
	Next(ctx context.Context, wait time.Duration) (rec cache.ActionRecord, ok bool, err error)
}

// Sink persists action records.
type Sink interface {
	WriteBatch(ctx context.Context, records []cache.ActionRecord) error
	MarkAbandoned(ctx context.Context, sessionID uuid.UUID) error
}

// Options tunes batching and inactivity tracking.
type Options struct {
	BatchSize     int
	FlushInterval time.Duration
	Inactivity    time.Duration // idle time after which an open session is marked abandoned
	PollWait      time.Duration
}

// DefaultOptions mirrors the environment defaults.
func DefaultOptions() Options {
	return Options{
		BatchSize:     20,
		FlushInterval: 500 * time.Millisecond,
		Inactivity:    10 * time.Minute,
		PollWait:      3 * time.Second,
	}
}

// Service moves records from a Source into a Sink.
type Service struct {
	source Source
	sink   Sink
	opts   Options
	logger logrus.FieldLogger

	batch        []cache.ActionRecord
	lastActivity map[uuid.UUID]time.Time
	now          func() time.Time
}

// NewService builds a historian. Zero option fields take their defaults.
func NewService(source Source, sink Sink, opts Options, logger logrus.FieldLogger) *Service {
	def := DefaultOptions()
	if opts.BatchSize <= 0 {
		opts.BatchSize = def.BatchSize
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = def.FlushInterval
	}
	if opts.Inactivity <= 0 {
		opts.Inactivity = def.Inactivity
	}
	if opts.PollWait <= 0 {
		opts.PollWait = def.PollWait
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		source:       source,
		sink:         sink,
		opts:         opts,
		logger:       logger,
		batch:        make([]cache.ActionRecord, 0, opts.BatchSize),
		lastActivity: make(map[uuid.UUID]time.Time),
		now:          time.Now,
	}
}

// Run reads until ctx is cancelled, then flushes whatever is still pending.
// The batch is owned by this goroutine; a separate reader feeds it records.
func (s *Service) Run(ctx context.Context) error {
	records := make(chan cache.ActionRecord)
	leftover := make(chan []cache.ActionRecord, 1)
	go s.readLoop(ctx, records, leftover)

	ticker := time.NewTicker(s.opts.FlushInterval)
	defer ticker.Stop()

	// popped records must reach the sink even if shutdown starts mid-write
	writeCtx := context.WithoutCancel(ctx)

	s.logger.Info("historian started")
	for {
		select {
		case <-ctx.Done():
			// records already popped from the queue but never delivered
			s.batch = append(s.batch, <-leftover...)
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			s.flush(flushCtx)
			cancel()
			s.logger.Info("historian shutting down")
			return nil

		case <-ticker.C:
			s.flush(writeCtx)
			s.sweepInactive(ctx)

		case rec := <-records:
			s.track(rec)
			s.batch = append(s.batch, rec)
			if len(s.batch) >= s.opts.BatchSize {
				s.flush(writeCtx)
			}
		}
	}
}

func (s *Service) readLoop(ctx context.Context, out chan<- cache.ActionRecord, leftover chan<- []cache.ActionRecord) {
	var undelivered []cache.ActionRecord
	defer func() { leftover <- undelivered }()

	for ctx.Err() == nil {
		rec, ok, err := s.source.Next(ctx, s.opts.PollWait)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Errorf("read action queue: %v", err)
			// back off so a dead queue does not spin
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if !ok {
			continue
		}
		select {
		case out <- rec:
		case <-ctx.Done():
			undelivered = append(undelivered, rec)
			return
		}
	}
}

// track records activity; a game_end closes the session for inactivity purposes.
func (s *Service) track(rec cache.ActionRecord) {
	if rec.ActionType == ActionGameEnd {
		delete(s.lastActivity, rec.SessionID)
		return
	}
	s.lastActivity[rec.SessionID] = s.now()
}

// flush writes the pending batch in one transaction. A failed batch is logged and dropped.
func (s *Service) flush(ctx context.Context) {
	if len(s.batch) == 0 {
		return
	}
	pending := make([]cache.ActionRecord, len(s.batch))
	copy(pending, s.batch)
	s.batch = s.batch[:0]

	if err := s.sink.WriteBatch(ctx, pending); err != nil {
		s.logger.WithField("records", len(pending)).Errorf("flush batch: %v", err)
		return
	}
	s.logger.Debugf("flushed %d actions", len(pending))
}

func (s *Service) sweepInactive(ctx context.Context) {
	now := s.now()
	for id, last := range s.lastActivity {
		if now.Sub(last) <= s.opts.Inactivity {
			continue
		}
		delete(s.lastActivity, id)
		if err := s.sink.MarkAbandoned(ctx, id); err != nil {
			s.logger.WithField("session", id).Errorf("mark abandoned: %v", err)
			continue
		}
		s.logger.WithField("session", id).Info("session marked abandoned after inactivity")
	}
}
