package scheduler

import (
	"time"

	"github.com/R3E-Network/djcomponent/pkg/future"
)

// State is a point in an Activation's lifecycle. Transitions are monotone:
// no activation returns to Queued once it has left it.
type State int

const (
	// Queued is the initial state: enqueued, not yet inspected for readiness.
	Queued State = iota
	// Ready means the activation satisfied every readiness condition the
	// last time the drain loop inspected it.
	Ready
	// Executing means the activation's callback chain is currently running.
	Executing
	// Resolved is a terminal state: every callback succeeded.
	Resolved
	// Rejected is a terminal state: a callback failed, or a prerequisite
	// disappeared between readiness and execution.
	Rejected
	// FlushedByUpstreamFailure is a terminal state for activations dropped
	// because an earlier activation's wait-future rejected.
	FlushedByUpstreamFailure
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Executing:
		return "executing"
	case Resolved:
		return "resolved"
	case Rejected:
		return "rejected"
	case FlushedByUpstreamFailure:
		return "flushed_by_upstream_failure"
	default:
		return "queued"
	}
}

// Activation is a request to run class-id's callback chain for one
// component instance, gated on the registries and an optional wait-future.
type Activation struct {
	seq uint64

	ClassID    string
	InstanceID string
	DataHash   *string // nil means no associated data factory

	EnqueuedAt time.Time

	// Wait is the external future the activation must observe succeed
	// before it is ready. Nil means the activation has no such dependency.
	Wait *future.Future[struct{}]

	// Observing is resolved with the final callback's value, or rejected,
	// once the activation finishes executing. An activation flushed by an
	// upstream failure leaves Observing pending.
	Observing *future.Future[interface{}]

	state State
}

// State returns the activation's current lifecycle state.
func (a *Activation) State() State {
	return a.state
}

// Seq is the monotonic activation identifier assigned at enqueue, unique
// even when the same (class-id,instance-id,data-hash) tuple is enqueued
// twice. The scheduler keeps no side table keyed by it.
func (a *Activation) Seq() uint64 {
	return a.seq
}
