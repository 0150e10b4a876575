// Package scheduler runs persisted one-shot jobs at their fire time. Jobs are
// written to the job store before a timer is armed, so a restarted process
// can re-arm everything still pending with Recover. A job runs at most once:
// the firing side must win a pending-to-fired transition in the store first.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/victorivanov/huddle/internal/database"
	"github.com/victorivanov/huddle/internal/metrics"
	"github.com/victorivanov/huddle/internal/models"
)

const defaultTimeout = 30 * time.Second

// Handler executes a fired job. Its error has no caller to return to and is
// only logged and counted.
type Handler func(ctx context.Context, job *models.Job) error

type Scheduler struct {
	jobs    database.JobRepository
	clock   Clock
	timeout time.Duration

	mu       sync.Mutex
	handlers map[models.JobKind]Handler
	timers   map[string]Timer
	stopped  bool
}

// New creates a Scheduler. A zero timeout uses the default per-job deadline.
func New(jobs database.JobRepository, clock Clock, timeout time.Duration) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Scheduler{
		jobs:     jobs,
		clock:    clock,
		timeout:  timeout,
		handlers: make(map[models.JobKind]Handler),
		timers:   make(map[string]Timer),
	}
}

// Now returns the scheduler's clock reading.
func (s *Scheduler) Now() time.Time { return s.clock.Now() }

// Register installs the handler for a job kind, replacing any previous one.
func (s *Scheduler) Register(kind models.JobKind, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[kind] = h
}

// Schedule persists job as pending and arms its timer. An empty ID is
// filled with a fresh UUID.
func (s *Scheduler) Schedule(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.State = models.JobPending
	if job.CreatedAt.IsZero() {
		job.CreatedAt = s.clock.Now()
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return fmt.Errorf("persisting job: %w", err)
	}
	metrics.JobsScheduled.WithLabelValues(string(job.Kind)).Inc()

	s.arm(job.ID, job.FireAt)
	return nil
}

// Recover re-arms every pending job in the store and returns how many it
// found. Overdue jobs become due immediately.
func (s *Scheduler) Recover(ctx context.Context) (int, error) {
	pending, err := s.jobs.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing pending jobs: %w", err)
	}
	for _, job := range pending {
		s.arm(job.ID, job.FireAt)
	}
	return len(pending), nil
}

// Cancel moves a pending job to cancelled and disarms its timer. It reports
// false when the job had already fired or been cancelled.
func (s *Scheduler) Cancel(ctx context.Context, job *models.Job) (bool, error) {
	ok, err := s.jobs.Cancel(ctx, job.ID)
	if err != nil {
		return false, fmt.Errorf("cancelling job: %w", err)
	}
	if !ok {
		return false, nil
	}
	s.disarm(job.ID, true)
	metrics.JobsCancelled.WithLabelValues(string(job.Kind)).Inc()
	return true, nil
}

// Stop disarms every timer. Pending rows stay pending for the next Recover.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
		metrics.TimersArmed.Dec()
	}
}

func (s *Scheduler) arm(id string, fireAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if old, ok := s.timers[id]; ok {
		old.Stop()
		metrics.TimersArmed.Dec()
	}
	delay := fireAt.Sub(s.clock.Now())
	s.timers[id] = s.clock.AfterFunc(delay, func() { s.fire(id) })
	metrics.TimersArmed.Inc()
}

func (s *Scheduler) disarm(id string, stop bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timers[id]
	if !ok {
		return
	}
	if stop {
		t.Stop()
	}
	delete(s.timers, id)
	metrics.TimersArmed.Dec()
}

func (s *Scheduler) fire(id string) {
	s.disarm(id, false)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	won, err := s.jobs.Claim(ctx, id)
	if err != nil {
		slog.Error("failed to claim job", "jobID", id, "error", err)
		return
	}
	if !won {
		slog.Debug("job no longer pending", "jobID", id)
		return
	}

	job, err := s.jobs.GetByID(ctx, id)
	if err != nil || job == nil {
		slog.Error("failed to load claimed job", "jobID", id, "error", err)
		return
	}

	s.mu.Lock()
	h := s.handlers[job.Kind]
	s.mu.Unlock()

	metrics.JobsFired.WithLabelValues(string(job.Kind)).Inc()
	if h == nil {
		slog.Error("no handler for job kind", "jobID", id, "kind", job.Kind)
		metrics.JobsFailed.WithLabelValues(string(job.Kind)).Inc()
		return
	}
	if err := h(ctx, job); err != nil {
		slog.Error("job handler failed", "jobID", id, "kind", job.Kind, "error", err)
		metrics.JobsFailed.WithLabelValues(string(job.Kind)).Inc()
		return
	}
	slog.Debug("job fired", "jobID", id, "kind", job.Kind)
}
