// Package scheduler drives the shared poll tick for in-flight remote tasks.
//
// A Scheduler is Idle until its registry reports the first tracked task and
// returns to Idle when the registry empties. While Active and started it
// takes a snapshot of the registry every interval and hands each id to the
// Poller without waiting for the result.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"storyflow/internal/logging"
	"storyflow/internal/services"
)

// State is the scheduler activity state.
type State string

const (
	StateIdle   State = "idle"
	StateActive State = "active"
)

// Source supplies the ids to poll on each tick.
type Source interface {
	Snapshot() []string
}

// Poller issues one status request. Implementations must return promptly and
// deliver the outcome asynchronously.
type Poller interface {
	Poll(ctx context.Context, taskID string)
}

// Scheduler implements registry.ActivityListener.
type Scheduler struct {
	source   Source
	poller   Poller
	interval time.Duration
	logger   *slog.Logger

	mu         sync.Mutex
	state      State
	runCtx     context.Context
	cancelRun  context.CancelFunc
	cancelTick context.CancelFunc
	wg         sync.WaitGroup

	ticks atomic.Int64
}

// New constructs an idle scheduler. The source is usually set after
// construction with SetSource because the registry needs the scheduler as
// its listener.
func New(poller Poller, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{
		poller:   poller,
		interval: interval,
		logger:   logging.NewComponentLogger(logger, "scheduler"),
		state:    StateIdle,
	}
}

// SetSource attaches the snapshot source. It must be called before Start.
func (s *Scheduler) SetSource(source Source) {
	s.mu.Lock()
	s.source = source
	s.mu.Unlock()
}

// Start enables ticking. An activation received earlier takes effect now.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runCtx != nil {
		return
	}
	s.runCtx, s.cancelRun = context.WithCancel(ctx)
	if s.state == StateActive {
		s.startTickerLocked()
	}
}

// Stop halts ticking and waits for the tick goroutine to exit. Polls already
// handed to the Poller are not waited for.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.runCtx == nil {
		s.mu.Unlock()
		return
	}
	s.stopTickerLocked()
	s.cancelRun()
	s.runCtx = nil
	s.cancelRun = nil
	s.mu.Unlock()
	s.wg.Wait()
}

// Activate moves the scheduler to Active. It never blocks.
func (s *Scheduler) Activate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateActive {
		return
	}
	s.state = StateActive
	s.logger.Debug("scheduler active", logging.String(logging.FieldEventType, "scheduler_active"))
	if s.runCtx != nil {
		s.startTickerLocked()
	}
}

// Deactivate moves the scheduler to Idle. A tick already in progress may
// still complete against an empty snapshot.
func (s *Scheduler) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateIdle {
		return
	}
	s.state = StateIdle
	s.logger.Debug("scheduler idle", logging.String(logging.FieldEventType, "scheduler_idle"))
	s.stopTickerLocked()
}

// State reports the current activity state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ticks reports how many ticks have fired since construction.
func (s *Scheduler) Ticks() int64 {
	return s.ticks.Load()
}

func (s *Scheduler) startTickerLocked() {
	if s.cancelTick != nil {
		return
	}
	tickCtx, cancel := context.WithCancel(s.runCtx)
	s.cancelTick = cancel
	s.wg.Add(1)
	go s.run(tickCtx, s.source)
}

func (s *Scheduler) stopTickerLocked() {
	if s.cancelTick == nil {
		return
	}
	s.cancelTick()
	s.cancelTick = nil
}

func (s *Scheduler) run(ctx context.Context, source Source) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, source)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, source Source) {
	if source == nil || s.poller == nil {
		return
	}
	ids := source.Snapshot()
	s.ticks.Add(1)
	if len(ids) == 0 {
		return
	}
	tickCtx := services.WithRequestID(ctx, uuid.NewString())
	logging.WithContext(tickCtx, s.logger).Debug("poll tick", logging.Int("tasks", len(ids)))
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		s.poller.Poll(services.WithTaskID(tickCtx, id), id)
	}
}
