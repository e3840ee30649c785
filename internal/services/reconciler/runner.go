package reconciler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

type batcher interface {
	ReconcileBatch(ctx context.Context) (BatchResult, error)
}

// Runner drives ReconcileBatch on a fixed interval for ship-worker.
type Runner struct {
	rec      batcher
	interval time.Duration
	logger   *zap.Logger

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalBatches        atomic.Int64
	totalOrders         atomic.Int64
	totalUpdated        atomic.Int64
	totalFailed         atomic.Int64
	running             atomic.Bool
	lastErrorMu         sync.Mutex
	lastError           string
}

func NewRunner(rec batcher, interval time.Duration, logger *zap.Logger) *Runner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		rec:               rec,
		interval:          interval,
		logger:            logger,
		triggerCh:         make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

// Trigger asks for an immediate batch. It never blocks; triggers that
// arrive while one is pending are merged.
func (r *Runner) Trigger() {
	r.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case r.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt     time.Time  `json:"startedAt"`
	LastCycleAt   *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt *time.Time `json:"lastTriggerAt,omitempty"`
	TotalBatches  int64      `json:"totalBatches"`
	TotalOrders   int64      `json:"totalOrders"`
	TotalUpdated  int64      `json:"totalUpdated"`
	TotalFailed   int64      `json:"totalFailed"`
	Running       bool       `json:"running"`
	LastError     string     `json:"lastError,omitempty"`
}

func (r *Runner) Stats() Stats {
	st := Stats{
		StartedAt:    time.Unix(0, r.startedAtUnixNano).UTC(),
		TotalBatches: r.totalBatches.Load(),
		TotalOrders:  r.totalOrders.Load(),
		TotalUpdated: r.totalUpdated.Load(),
		TotalFailed:  r.totalFailed.Load(),
		Running:      r.running.Load(),
	}
	if n := r.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := r.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	r.lastErrorMu.Lock()
	st.LastError = r.lastError
	r.lastErrorMu.Unlock()
	return st
}

// Run blocks until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			r.RunOnce(ctx)
		case <-r.triggerCh:
			r.RunOnce(ctx)
		}
	}
}

func (r *Runner) RunOnce(ctx context.Context) (BatchResult, error) {
	r.running.Store(true)
	defer r.running.Store(false)
	r.lastCycleUnixNano.Store(time.Now().UTC().UnixNano())

	res, err := r.rec.ReconcileBatch(ctx)
	r.totalBatches.Add(1)
	if err != nil {
		r.logger.Error("reconcile batch", zap.Error(err))
		r.lastErrorMu.Lock()
		r.lastError = err.Error()
		r.lastErrorMu.Unlock()
		return res, err
	}
	r.totalOrders.Add(int64(res.Total))
	r.totalUpdated.Add(int64(res.Updated))
	r.totalFailed.Add(int64(res.Failed))
	return res, nil
}
