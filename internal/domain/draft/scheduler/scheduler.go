package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DueDraftProcessor defines the interface for publishing due scheduled drafts
type DueDraftProcessor interface {
	ProcessScheduledDrafts(ctx context.Context) error
}

// Scheduler is the long-lived polling loop that promotes time-deferred
// drafts to published. One instance runs per process; deployments that
// prefer an external cron disable it in config and hit the process
// endpoint instead.
type Scheduler struct {
	processor DueDraftProcessor
	interval  time.Duration
	logger    *slog.Logger
	stopCh    chan struct{}
	wg        sync.WaitGroup
	running   bool
	mu        sync.Mutex
}

// New creates a new draft scheduler
func New(processor DueDraftProcessor, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		processor: processor,
		interval:  interval,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

// Start starts the polling loop
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("draft scheduler started", "interval", s.interval)

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop stops the loop and waits for an in-flight tick to finish. The stop
// signal is observed between ticks; a publish already in progress is
// allowed to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("draft scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// First pass immediately so a restart picks up overdue drafts without
	// waiting a full interval.
	s.tick(ctx)

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	s.logger.Debug("processing due scheduled drafts")

	if err := s.processor.ProcessScheduledDrafts(ctx); err != nil {
		s.logger.Error("failed to process scheduled drafts", "error", err)
	}
}
