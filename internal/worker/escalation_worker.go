package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper runs one escalation pass and reports how many tickets it
// escalated. Satisfied by the ticket engine.
type Sweeper interface {
	EscalateBreached(ctx context.Context) (int, error)
}

// EscalationWorker periodically triggers the SLA escalation sweep. The
// sweep itself is serialized inside the engine; the worker only provides
// the cadence. It runs once immediately at start so tickets that breached
// while the process was down are caught without waiting a full period.
type EscalationWorker struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewEscalationWorker builds the worker. Intervals below one second are
// clamped to one second.
func NewEscalationWorker(sweeper Sweeper, interval time.Duration, logger *zap.Logger) *EscalationWorker {
	if interval < time.Second {
		interval = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EscalationWorker{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the sweep loop in its own goroutine. Calling Start on a
// running worker is a no-op.
func (w *EscalationWorker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		w.logger.Warn("escalation worker already running")
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.logger.Info("escalation worker started", zap.Duration("interval", w.interval))

	go w.run(ctx, w.stopCh, w.doneCh)
}

// Stop halts the loop and waits for the in-flight sweep, if any, to
// finish.
func (w *EscalationWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	w.mu.Unlock()

	<-done
	w.logger.Info("escalation worker stopped")
}

func (w *EscalationWorker) run(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ticker.C:
			w.sweep(ctx)
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *EscalationWorker) sweep(ctx context.Context) {
	start := time.Now()
	escalated, err := w.sweeper.EscalateBreached(ctx)
	if err != nil {
		w.logger.Error("escalation sweep failed", zap.Error(err))
		return
	}
	if escalated > 0 {
		w.logger.Info("escalation sweep",
			zap.Int("escalated", escalated),
			zap.Duration("duration", time.Since(start)))
	}
}
