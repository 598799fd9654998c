package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type countingTarget struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingTarget) SweepExpired(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return 2, c.err
}

func (c *countingTarget) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type stubRecorder struct {
	mu      sync.Mutex
	removed int64
	errs    int
}

func (r *stubRecorder) ObserveSweep(removed int64, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed += removed
	if err != nil {
		r.errs++
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSweeper_RunsOnStartAndOnTick(t *testing.T) {
	target := &countingTarget{}
	rec := &stubRecorder{}
	s := NewSweeper(target, 10*time.Millisecond, rec, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	waitFor(t, func() bool { return target.Calls() >= 3 })
	cancel()

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.removed < 6 {
		t.Fatalf("expected recorder to see removals, got %d", rec.removed)
	}
}

func TestSweeper_KeepsRunningAfterFailure(t *testing.T) {
	target := &countingTarget{err: errors.New("store down")}
	rec := &stubRecorder{}
	s := NewSweeper(target, 10*time.Millisecond, rec, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	waitFor(t, func() bool { return target.Calls() >= 2 })

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.errs == 0 {
		t.Fatal("expected failures to be recorded")
	}
}

func TestNewSweeper_DefaultInterval(t *testing.T) {
	s := NewSweeper(&countingTarget{}, 0, nil, zerolog.Nop())
	if s.interval != defaultInterval {
		t.Fatalf("interval = %s, want %s", s.interval, defaultInterval)
	}
}
