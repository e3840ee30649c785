package reconciler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingBatcher struct {
	calls atomic.Int64
	err   error
}

func (b *countingBatcher) ReconcileBatch(ctx context.Context) (BatchResult, error) {
	b.calls.Add(1)
	return BatchResult{Total: 2, Updated: 1, Unchanged: 1}, b.err
}

func TestRunner_Run_StopsOnContextCancel(t *testing.T) {
	b := &countingBatcher{}
	r := NewRunner(b, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	err := r.Run(ctx)
	require.Error(t, err)
	require.GreaterOrEqual(t, b.calls.Load(), int64(1))
}

func TestRunner_TriggerRunsImmediately(t *testing.T) {
	b := &countingBatcher{}
	r := NewRunner(b, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = r.Run(ctx)
		close(done)
	}()

	r.Trigger()
	r.Trigger()
	require.Eventually(t, func() bool { return b.calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	st := r.Stats()
	require.NotNil(t, st.LastTriggerAt)
	require.NotNil(t, st.LastCycleAt)
	require.False(t, st.Running)
}

func TestRunner_RunOnceStats(t *testing.T) {
	b := &countingBatcher{}
	r := NewRunner(b, 0, nil)

	_, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	st := r.Stats()
	require.Equal(t, int64(1), st.TotalBatches)
	require.Equal(t, int64(2), st.TotalOrders)
	require.Equal(t, int64(1), st.TotalUpdated)

	b.err = errors.New("list failed")
	_, err = r.RunOnce(context.Background())
	require.Error(t, err)
	require.Equal(t, "list failed", r.Stats().LastError)
}
