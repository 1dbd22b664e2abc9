// Package host abstracts the document/runtime capabilities the scheduler
// needs from whatever environment an activation ultimately runs against: a
// browser DOM, a headless test double, or a remote renderer reached over a
// WebSocket control channel. Core scheduling logic never touches a concrete
// environment directly, only this interface.
package host

import (
	"context"

	"github.com/R3E-Network/djcomponent/pkg/wire"
)

// ElementID identifies an element the host knows about, analogous to a DOM
// node reference. Hosts are free to choose their own ID scheme as long as it
// is stable for the lifetime of the element.
type ElementID string

// Element is a host-resident node associated with one component instance.
type Element struct {
	ID         ElementID
	ClassID    string
	InstanceID string
}

// MutationKind classifies a change reported by Mutations.
type MutationKind int

const (
	// MutationElementAdded reports a new component-instance root element
	// appearing in the host (spec §4: ongoing mutation observation).
	MutationElementAdded MutationKind = iota
	// MutationEnvelopeAdded reports a new activation envelope attribute
	// appearing on an already-known or newly-added element.
	MutationEnvelopeAdded
)

// Mutation is a single host-reported change relevant to the ingestor.
type Mutation struct {
	Kind     MutationKind
	Element  Element
	Envelope string // envelope JSON text, present for MutationEnvelopeAdded
}

// Host is the capability surface the scheduler and ingestor depend on.
// Implementations must be safe for concurrent use.
type Host interface {
	// InsertScript inserts a <script> analogue described by tag into the
	// document and returns once the host has accepted the insertion. It does
	// not wait for the referenced asset to finish loading and reports no
	// load completion; the asset registry treats the URL as loaded once the
	// insertion is accepted.
	InsertScript(ctx context.Context, tag wire.TagDescriptor) error

	// InsertStylesheet inserts a <link rel="stylesheet"> analogue.
	InsertStylesheet(ctx context.Context, tag wire.TagDescriptor) error

	// QueryInstanceElements returns every element currently known to the host
	// for the given component instance, in document order.
	QueryInstanceElements(ctx context.Context, classID, instanceID string) ([]Element, error)

	// Mutations streams host-reported changes until ctx is cancelled. The
	// returned channel is closed when the stream ends.
	Mutations(ctx context.Context) (<-chan Mutation, error)

	// ScanEnvelopes performs the startup scan: every envelope-bearing
	// element already present in the document, in order of appearance, as
	// MutationEnvelopeAdded entries. Called once, before Mutations is
	// subscribed to, so every envelope is seen exactly once across the two.
	ScanEnvelopes(ctx context.Context) ([]Mutation, error)

	// ConsoleError reports a callback or script failure to the host's
	// console-equivalent (spec §9: errors surface, they never crash the
	// scheduler).
	ConsoleError(format string, args ...interface{})
}
