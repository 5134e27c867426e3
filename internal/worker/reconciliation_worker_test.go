package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeReconciler struct {
	mu     sync.Mutex
	calls  int
	limits []int
	err    error
}

func (f *fakeReconciler) ReconcileOpen(_ context.Context, limit int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.limits = append(f.limits, limit)
	return 1, f.err
}

func (f *fakeReconciler) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestReconciliationWorker_RunsUntilCanceled(t *testing.T) {
	rec := &fakeReconciler{}
	w := NewReconciliationWorker(rec, 5*time.Millisecond, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return rec.callCount() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
	rec.mu.Lock()
	assert.Equal(t, 100, rec.limits[0])
	rec.mu.Unlock()
}

func TestReconciliationWorker_ZeroIntervalDisabled(t *testing.T) {
	rec := &fakeReconciler{}
	w := NewReconciliationWorker(rec, 0, 10)

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled worker should return immediately")
	}
	assert.Zero(t, rec.callCount())
}

func TestReconciliationWorker_ErrorDoesNotStopLoop(t *testing.T) {
	rec := &fakeReconciler{err: errors.New("store down")}
	w := NewReconciliationWorker(rec, 5*time.Millisecond, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	assert.Eventually(t, func() bool { return rec.callCount() >= 3 }, time.Second, time.Millisecond)
}
