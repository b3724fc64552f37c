// Package schedule runs periodic background jobs such as the stale-order
// reconciler and the outbox relay.
//
//	s := schedule.New()
//	s.Every("reconcile", 5*time.Minute, sweeper.Run).WithoutOverlapping()
//	s.Start(ctx)
//	defer s.Stop()
package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shashiranjanraj/storefront/pkg/logger"
)

// Task is a scheduled job. It receives the scheduler's context.
type Task func(ctx context.Context) error

// Entry is a registered job.
type Entry struct {
	name      string
	interval  time.Duration
	task      Task
	noOverlap bool

	mu      sync.Mutex
	running bool
	lastRun time.Time
}

// WithoutOverlapping skips a tick while the previous run is still going.
func (e *Entry) WithoutOverlapping() *Entry {
	e.noOverlap = true
	return e
}

// Scheduler dispatches entries on their intervals.
type Scheduler struct {
	mu      sync.Mutex
	entries []*Entry
	tick    time.Duration
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New returns a scheduler that checks for due entries every second.
func New() *Scheduler {
	return &Scheduler{tick: time.Second}
}

// Every registers task to run every interval, starting on the first tick.
func (s *Scheduler) Every(name string, interval time.Duration, task Task) *Entry {
	e := &Entry{name: name, interval: interval, task: task}
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
	return e
}

// Start runs the dispatch loop in the background until ctx is cancelled or
// Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.tick)
		defer ticker.Stop()

		logger.Info("schedule: started", "entries", len(s.List()))
		for {
			select {
			case <-ctx.Done():
				logger.Info("schedule: stopped")
				return
			case now := <-ticker.C:
				s.mu.Lock()
				current := append([]*Entry(nil), s.entries...)
				s.mu.Unlock()
				for _, e := range current {
					s.dispatch(ctx, e, now)
				}
			}
		}
	}()
}

// Stop cancels the loop and waits for in-flight runs.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) dispatch(ctx context.Context, e *Entry, now time.Time) {
	e.mu.Lock()
	if !e.lastRun.IsZero() && now.Sub(e.lastRun) < e.interval {
		e.mu.Unlock()
		return
	}
	if e.noOverlap && e.running {
		e.mu.Unlock()
		logger.Warn("schedule: skipping overlapping run", "name", e.name)
		return
	}
	e.running = true
	e.lastRun = now
	e.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("schedule: task panicked", "name", e.name, "panic", r)
			}
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
		}()

		if err := e.task(ctx); err != nil {
			logger.Error("schedule: task failed", "name", e.name, "error", err)
		}
	}()
}

// List describes the registered entries, for the CLI.
func (s *Scheduler) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, fmt.Sprintf("%s  [every %s]", e.name, e.interval))
	}
	sort.Strings(out)
	return out
}
