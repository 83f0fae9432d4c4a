package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

type countingProcessor struct {
	calls atomic.Int64
}

func (p *countingProcessor) ProcessScheduledDrafts(_ context.Context) error {
	p.calls.Add(1)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerTicks(t *testing.T) {
	proc := &countingProcessor{}
	s := New(proc, 10*time.Millisecond, testLogger())

	s.Start(context.Background())
	time.Sleep(35 * time.Millisecond)
	s.Stop()

	// One immediate pass plus at least two ticks.
	if got := proc.calls.Load(); got < 3 {
		t.Errorf("processor ran %d times, want at least 3", got)
	}
}

func TestSchedulerRunsImmediatelyOnStart(t *testing.T) {
	proc := &countingProcessor{}
	s := New(proc, time.Hour, testLogger())

	s.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	s.Stop()

	if got := proc.calls.Load(); got != 1 {
		t.Errorf("processor ran %d times, want exactly the startup pass", got)
	}
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	proc := &countingProcessor{}
	s := New(proc, time.Hour, testLogger())

	s.Start(context.Background())
	s.Stop()
	s.Stop() // must not panic or block

	after := proc.calls.Load()
	time.Sleep(20 * time.Millisecond)
	if got := proc.calls.Load(); got != after {
		t.Error("processor kept running after Stop")
	}
}

func TestSchedulerStartTwice(t *testing.T) {
	proc := &countingProcessor{}
	s := New(proc, time.Hour, testLogger())

	s.Start(context.Background())
	s.Start(context.Background()) // second start is a no-op
	time.Sleep(20 * time.Millisecond)
	s.Stop()

	if got := proc.calls.Load(); got != 1 {
		t.Errorf("processor ran %d times, want 1", got)
	}
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	proc := &countingProcessor{}
	s := New(proc, 5*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	time.Sleep(12 * time.Millisecond)
	cancel()
	time.Sleep(12 * time.Millisecond)

	after := proc.calls.Load()
	time.Sleep(20 * time.Millisecond)
	if got := proc.calls.Load(); got != after {
		t.Error("processor kept running after context cancellation")
	}
}
