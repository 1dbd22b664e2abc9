// Package scheduler implements the ordered, dependency-gated activation
// queue: the single serial processor that drains ready activations from
// the head, in strict FIFO submission order, across asynchronous asset
// loads and data-factory registrations.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/R3E-Network/djcomponent/infrastructure/errors"
	"github.com/R3E-Network/djcomponent/internal/host"
	"github.com/R3E-Network/djcomponent/internal/registry"
	"github.com/R3E-Network/djcomponent/pkg/future"
	"github.com/R3E-Network/djcomponent/pkg/logger"
	"github.com/R3E-Network/djcomponent/pkg/metrics"
)

// Config holds the dependencies a Scheduler needs.
type Config struct {
	Registry *registry.Registry
	Host     host.Host
	Logger   *logger.Logger

	// OnFatalError receives the ScriptLoadFailed error surfaced when a
	// drain flushes the queue after an upstream wait-future rejection.
	// Spec §4.3.3 requires this error "propagate out of the current drain
	// call"; since registrations and wait-future settlements can trigger a
	// drain from any goroutine, this hook is the Go analogue of that
	// propagation. A nil hook means fatal errors are only logged.
	OnFatalError func(error)
}

// Scheduler is the single serial processor over the activation queue.
type Scheduler struct {
	registry *registry.Registry
	host     host.Host
	logger   *logger.Logger
	onFatal  func(error)

	mu       sync.Mutex
	queue    []*Activation
	nextSeq  uint64
	draining atomic.Bool
	rerun    atomic.Bool

	stallMu  sync.Mutex
	stallJob *stallJob
}

// New builds a Scheduler and attaches it to registry as that registry's
// DrainNotifier, so callback/data-factory registrations request a drain
// the same way enqueue and wait-future settlement do.
func New(cfg Config) *Scheduler {
	s := &Scheduler{
		registry: cfg.Registry,
		host:     cfg.Host,
		logger:   cfg.Logger,
		onFatal:  cfg.OnFatalError,
	}
	if s.registry != nil {
		s.registry.SetNotifier(s)
	}
	return s
}

// RequestDrain implements registry.DrainNotifier.
func (s *Scheduler) RequestDrain() {
	s.drain()
}

// Enqueue constructs an Activation and appends it to the queue, arming the
// stall reporter and, when wait is non-nil, requesting a drain once wait
// settles; readiness reads wait's status directly (spec §9: a first-class
// settled primitive makes the side-table ledger redundant).
func (s *Scheduler) Enqueue(classID, instanceID string, dataHash *string, wait *future.Future[struct{}]) *future.Future[interface{}] {
	s.mu.Lock()
	s.nextSeq++
	a := &Activation{
		seq:        s.nextSeq,
		ClassID:    classID,
		InstanceID: instanceID,
		DataHash:   dataHash,
		EnqueuedAt: time.Now(),
		Wait:       wait,
		Observing:  future.New[interface{}](),
		state:      Queued,
	}
	s.queue = append(s.queue, a)
	queueLen := len(s.queue)
	s.mu.Unlock()

	metrics.SetQueueDepth(queueLen)
	s.armStallReporter()

	if wait != nil {
		go func() {
			<-wait.Done()
			s.drain()
		}()
	}

	s.drain()
	return a.Observing
}

// QueueDepth returns the number of activations currently queued.
func (s *Scheduler) QueueDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Scheduler) isReady(a *Activation) bool {
	if !s.registry.HasCallback(a.ClassID) {
		return false
	}
	if a.DataHash != nil && !s.registry.HasDataFactory(a.ClassID, *a.DataHash) {
		return false
	}
	if a.Wait != nil {
		status, _, _ := a.Wait.Peek()
		if status != future.Resolved {
			return false
		}
	}
	return true
}

// drain is the re-entrant-guarded serial processor. Concurrent callers
// collapse into a single running drain: the guard is a CAS flag that stays
// set while execute runs (so at most one activation executes at a time),
// and the queue mutex is released before execute, which can block on
// I/O-bound callbacks. A caller that loses the CAS sets rerun instead
// of giving up, so a registration or wait-future settlement that lands
// between the running drain's last isReady check and its draining.Store(false)
// is never dropped: the running drain re-checks rerun before it clears the
// guard and loops again if anything asked for another pass.
func (s *Scheduler) drain() {
	if !s.draining.CompareAndSwap(false, true) {
		s.rerun.Store(true)
		return
	}

	for {
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				s.disarmStallReporter()
				break
			}
			head := s.queue[0]

			if head.Wait != nil {
				if status, _, waitErr := head.Wait.Peek(); status == future.Rejected {
					flushed := s.queue
					s.queue = nil
					s.mu.Unlock()

					fatal := errors.ScriptLoadFailed(head.ClassID, head.InstanceID, waitErr)
					for _, a := range flushed {
						a.state = FlushedByUpstreamFailure
					}
					metrics.SetQueueDepth(0)
					s.disarmStallReporter()
					s.reportFatal(fatal)
					break
				}
			}

			if !s.isReady(head) {
				s.mu.Unlock()
				break
			}

			s.queue = s.queue[1:]
			metrics.SetQueueDepth(len(s.queue))
			s.mu.Unlock()

			head.state = Ready
			s.execute(head)
		}

		if s.rerun.CompareAndSwap(true, false) {
			continue
		}

		// No rerun was pending at the check above, but a RequestDrain could
		// still land in the gap between that check and clearing draining
		// below. Clear first, then look again; if one snuck in, try to
		// reclaim ownership and loop rather than leave it stranded.
		s.draining.Store(false)
		if s.rerun.CompareAndSwap(true, false) && s.draining.CompareAndSwap(false, true) {
			continue
		}
		return
	}
}

func (s *Scheduler) reportFatal(err error) {
	if s.logger != nil {
		s.logger.WithField("error", err).Error("scheduler: fatal drain error, queue flushed")
	}
	if s.onFatal != nil {
		s.onFatal(err)
	}
}

// execute runs one ready activation's callback chain to completion,
// blocking the drain loop until it finishes (the mechanism by which
// submission order is preserved across async work within an activation).
func (s *Scheduler) execute(a *Activation) {
	start := time.Now()
	a.state = Executing

	callbacks := s.registry.Callbacks(a.ClassID)
	if len(callbacks) == 0 {
		s.fail(a, start, errors.NoCallback(a.ClassID))
		return
	}

	ctx := context.Background()
	elements, err := s.host.QueryInstanceElements(ctx, a.ClassID, a.InstanceID)
	if err != nil {
		s.fail(a, start, err)
		return
	}
	if len(elements) == 0 {
		s.fail(a, start, errors.NoElements(a.InstanceID))
		return
	}
	elementValues := make([]interface{}, len(elements))
	for i, el := range elements {
		elementValues[i] = el
	}

	var data interface{}
	if a.DataHash != nil {
		factory, ok := s.registry.DataFactory(a.ClassID, *a.DataHash)
		if !ok {
			s.fail(a, start, errors.NoDataFactory(a.ClassID, *a.DataHash))
			return
		}
		data, err = factory()
		if err != nil {
			s.fail(a, start, errors.CallbackFailed(a.ClassID, a.InstanceID, err))
			return
		}
	}

	actCtx := registry.ActivationContext{Name: a.ClassID, ID: a.InstanceID, Elements: elementValues}

	var value interface{}
	for _, cb := range callbacks {
		value, err = cb(data, actCtx)
		if err != nil {
			s.fail(a, start, errors.CallbackFailed(a.ClassID, a.InstanceID, err))
			return
		}
	}

	a.state = Resolved
	a.Observing.Resolve(value)
	metrics.RecordActivation(a.ClassID, "resolved", time.Since(start))
}

func (s *Scheduler) fail(a *Activation, start time.Time, err error) {
	a.state = Rejected
	a.Observing.Reject(err)
	if s.host != nil {
		s.host.ConsoleError("activation %s/%s failed: %v", a.ClassID, a.InstanceID, err)
	}
	metrics.RecordActivation(a.ClassID, "rejected", time.Since(start))
}
