package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"crypto_search/internal/domain"
	"crypto_search/internal/infra"
)

// ErrAlreadyRunning is returned by Start on a loop that has not been stopped.
var ErrAlreadyRunning = errors.New("refresh loop already running")

// RefreshConfig holds refresh loop timing.
type RefreshConfig struct {
	Interval time.Duration // Time between cycles (default: 30s)
	Timeout  time.Duration // Per-fetch timeout (default: one interval)
}

// DefaultRefreshConfig returns sensible defaults.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Interval: 30 * time.Second,
		Timeout:  30 * time.Second,
	}
}

// State is a consistent view of the loop for presentation code.
type State struct {
	Snapshot *domain.Snapshot // Last published snapshot, nil before the first success
	Err      error            // Error of the most recent cycle, nil after a success
	Loading  bool             // True until the first cycle after Start completes
	Version  uint64           // Incremented on every publish
}

// RefreshLoop periodically fetches, ranks and publishes market snapshots.
//
// A cycle's result is only published when it differs from the previously
// fetched records; otherwise the current snapshot keeps its identity.
type RefreshLoop struct {
	fetcher domain.Fetcher
	cfg     RefreshConfig
	logger  *slog.Logger
	metrics *infra.Metrics
	now     func() time.Time

	snapshot atomic.Pointer[domain.Snapshot]
	cycleSeq atomic.Uint64

	mu          sync.Mutex // Guards everything below and serializes commits
	lastFetched []domain.AssetRecord
	lastErr     error
	loading     bool
	version     uint64
	running     bool
	runID       uint64
	run         *cycleRun // Current run, nil when stopped
	committed   uint64    // Highest cycle sequence committed
	subs        map[int]chan *domain.Snapshot
	stateSubs   map[int]chan State
	nextSubID   int
}

// RefreshOption configures a RefreshLoop.
type RefreshOption func(*RefreshLoop)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RefreshOption {
	return func(l *RefreshLoop) {
		l.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *infra.Metrics) RefreshOption {
	return func(l *RefreshLoop) {
		l.metrics = m
	}
}

// WithClock overrides time.Now for snapshot timestamps.
func WithClock(now func() time.Time) RefreshOption {
	return func(l *RefreshLoop) {
		l.now = now
	}
}

// NewRefreshLoop creates a stopped loop around fetcher.
func NewRefreshLoop(fetcher domain.Fetcher, cfg RefreshConfig, opts ...RefreshOption) *RefreshLoop {
	defaults := DefaultRefreshConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = cfg.Interval
	}

	l := &RefreshLoop{
		fetcher:   fetcher,
		cfg:       cfg,
		logger:    slog.Default(),
		metrics:   &infra.Metrics{},
		now:       time.Now,
		subs:      make(map[int]chan *domain.Snapshot),
		stateSubs: make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("module", "refresh_loop")
	return l
}

// cycleRun is per-Start scheduling state.
type cycleRun struct {
	id       uint64
	cancel   context.CancelFunc
	wg       sync.WaitGroup // Scheduler plus in-flight cycles
	inFlight atomic.Bool
}

// Start fetches immediately, then once per interval until Stop or ctx ends.
func (l *RefreshLoop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return ErrAlreadyRunning
	}
	l.running = true
	l.loading = true
	l.lastErr = nil
	if l.run != nil {
		// Previous run ended on its parent context.
		l.run.cancel()
	}
	l.runID++
	run := &cycleRun{id: l.runID}
	ctx, run.cancel = context.WithCancel(ctx)
	run.wg.Add(1)
	l.run = run
	l.notifyState(l.stateLocked())
	l.mu.Unlock()

	go l.schedule(ctx, run)

	l.logger.Info("refresh loop started",
		slog.Duration("interval", l.cfg.Interval),
		slog.Duration("timeout", l.cfg.Timeout),
	)
	return nil
}

// Stop cancels the schedule and any in-flight fetch, then waits for both to
// return. No fetch begins after Stop returns; a result that arrives while
// stopping is discarded. It is safe to call more than once.
// Fetchers must honor ctx cancellation.
func (l *RefreshLoop) Stop() {
	l.mu.Lock()
	run := l.run
	if run == nil {
		l.mu.Unlock()
		return
	}
	l.run = nil
	l.running = false
	l.mu.Unlock()

	run.cancel()
	run.wg.Wait()
	l.logger.Info("refresh loop stopped")
}

// schedule is the timer goroutine.
func (l *RefreshLoop) schedule(ctx context.Context, run *cycleRun) {
	defer run.wg.Done()
	defer l.finishRun(run)

	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	// Fetch immediately on start.
	l.tick(ctx, run)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.tick(ctx, run)
		}
	}
}

// finishRun marks the loop stopped when the run ends on its parent context,
// so a later Start is not refused.
func (l *RefreshLoop) finishRun(run *cycleRun) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.runID == run.id {
		l.running = false
	}
}

// tick launches one fetch cycle unless the previous one is still running.
func (l *RefreshLoop) tick(ctx context.Context, run *cycleRun) {
	if ctx.Err() != nil {
		return
	}
	if !run.inFlight.CompareAndSwap(false, true) {
		l.metrics.RecordSkippedTick()
		l.logger.Debug("previous cycle still in flight, tick skipped")
		return
	}

	seq := l.cycleSeq.Add(1)
	run.wg.Add(1)
	go func() {
		defer run.wg.Done()
		defer run.inFlight.Store(false)
		if ctx.Err() != nil {
			return
		}
		l.cycle(ctx, run.id, seq)
	}()
}

// cycle runs fetch and commit. Panics are turned into cycle errors so the
// schedule keeps going.
func (l *RefreshLoop) cycle(ctx context.Context, runID, seq uint64) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("refresh cycle panic recovered", slog.Any("panic", r))
			l.commit(runID, seq, nil, fmt.Errorf("refresh cycle panic: %v", r))
		}
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	records, err := l.fetcher.Fetch(fetchCtx)
	l.metrics.RecordCycle(time.Since(start))

	// Stopped or parent context ended while fetching
	if ctx.Err() != nil {
		l.metrics.RecordDiscarded()
		return
	}
	l.commit(runID, seq, records, err)
}

// commit applies one cycle's outcome against the state current at publish time.
func (l *RefreshLoop) commit(runID, seq uint64, records []domain.AssetRecord, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running || runID != l.runID {
		l.metrics.RecordDiscarded()
		l.logger.Debug("cycle result discarded, loop stopped", slog.Uint64("seq", seq))
		return
	}
	if seq < l.committed {
		l.metrics.RecordDiscarded()
		l.logger.Debug("stale cycle result discarded",
			slog.Uint64("seq", seq),
			slog.Uint64("committed", l.committed),
		)
		return
	}
	l.committed = seq
	wasLoading, hadErr := l.loading, l.lastErr != nil
	l.loading = false

	if err != nil {
		l.lastErr = err
		l.metrics.RecordError(err)
		l.logger.Warn("refresh cycle failed",
			slog.String("kind", domain.Kind(err)),
			slog.Bool("retriable", domain.IsRetriable(err)),
			slog.Any("error", err),
		)
		l.notifyState(l.stateLocked())
		return
	}
	l.lastErr = nil

	if l.snapshot.Load() != nil && domain.EqualRecords(l.lastFetched, records) {
		l.metrics.RecordUnchanged()
		l.logger.Debug("listing unchanged, snapshot kept", slog.Int("records", len(records)))
		if wasLoading || hadErr {
			l.notifyState(l.stateLocked())
		}
		return
	}

	snap := domain.NewSnapshot(records, l.now())
	l.lastFetched = records
	l.snapshot.Store(snap)
	l.version++
	l.metrics.RecordPublish(snap.Len())
	l.logger.Info("snapshot published",
		slog.Int("records", snap.Len()),
		slog.Uint64("version", l.version),
	)
	l.notify(snap)
	l.notifyState(l.stateLocked())
}

// notify delivers snap to every subscriber, replacing any undelivered one.
// Must be called with lock held
func (l *RefreshLoop) notify(snap *domain.Snapshot) {
	for _, ch := range l.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

// notifyState delivers st to every state subscriber, latest wins.
// Must be called with lock held
func (l *RefreshLoop) notifyState(st State) {
	for _, ch := range l.stateSubs {
		select {
		case ch <- st:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- st
		}
	}
}

// Snapshot returns the last published snapshot without locking.
func (l *RefreshLoop) Snapshot() *domain.Snapshot {
	return l.snapshot.Load()
}

// State returns snapshot, error and loading flags as one consistent view.
func (l *RefreshLoop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stateLocked()
}

func (l *RefreshLoop) stateLocked() State {
	return State{
		Snapshot: l.snapshot.Load(),
		Err:      l.lastErr,
		Loading:  l.loading,
		Version:  l.version,
	}
}

// Subscribe returns a channel receiving each newly published snapshot.
// Slow readers only see the latest one. Call the returned func to unsubscribe.
func (l *RefreshLoop) Subscribe() (<-chan *domain.Snapshot, func()) {
	ch := make(chan *domain.Snapshot, 1)

	l.mu.Lock()
	id := l.nextSubID
	l.nextSubID++
	l.subs[id] = ch
	l.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, id)
			close(ch)
			l.mu.Unlock()
		})
	}
}

// SubscribeState returns a channel receiving the loop state after every
// change: a publish, a failed cycle, the end of loading, a recovery that
// kept the snapshot, and Start. Slow readers only see the latest state.
func (l *RefreshLoop) SubscribeState() (<-chan State, func()) {
	ch := make(chan State, 1)

	l.mu.Lock()
	id := l.nextSubID
	l.nextSubID++
	l.stateSubs[id] = ch
	l.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.stateSubs, id)
			close(ch)
			l.mu.Unlock()
		})
	}
}
