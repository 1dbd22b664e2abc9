package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/R3E-Network/djcomponent/pkg/metrics"
)

// stallJob wraps the cron.Cron instance backing one armed period of stall
// reporting, so it can be stopped without racing a fresh arm.
type stallJob struct {
	cron *cron.Cron
}

// StallInterval is the default cadence at which the stall reporter scans the
// queue, matching spec.md's "implementation-defined, default 5s".
const StallInterval = "@every 5s"

// armStallReporter starts a recurring cron job scanning the queue for
// non-ready entries, if one is not already running. It is idempotent: a
// second call while already armed is a no-op.
func (s *Scheduler) armStallReporter() {
	s.stallMu.Lock()
	defer s.stallMu.Unlock()
	if s.stallJob != nil {
		return
	}

	c := cron.New()
	c.AddFunc(StallInterval, s.reportStalls)
	c.Start()
	s.stallJob = &stallJob{cron: c}
}

// disarmStallReporter stops the stall reporter's cron job, if armed.
func (s *Scheduler) disarmStallReporter() {
	s.stallMu.Lock()
	job := s.stallJob
	s.stallJob = nil
	s.stallMu.Unlock()

	if job != nil {
		job.cron.Stop()
	}
}

// reportStalls scans the queue for activations whose readiness predicate is
// false and, if any exist, emits a single diagnostic identifying the count
// of blocked activations and the oldest blocked activation's identity and
// wait duration. It is observational only: it never mutates scheduler state.
func (s *Scheduler) reportStalls() {
	s.mu.Lock()
	var blocked []*Activation
	for _, a := range s.queue {
		if !s.isReady(a) {
			blocked = append(blocked, a)
		}
	}
	s.mu.Unlock()

	if len(blocked) == 0 {
		return
	}

	oldest := blocked[0]
	for _, a := range blocked[1:] {
		if a.EnqueuedAt.Before(oldest.EnqueuedAt) {
			oldest = a
		}
	}

	metrics.RecordStall(oldest.ClassID)
	if s.logger != nil {
		s.logger.WithFields(map[string]interface{}{
			"blocked_count":    len(blocked),
			"class_id":         oldest.ClassID,
			"instance_id":      oldest.InstanceID,
			"blocked_duration": time.Since(oldest.EnqueuedAt).String(),
		}).Warn("scheduler: activation queue stalled")
	}
}
