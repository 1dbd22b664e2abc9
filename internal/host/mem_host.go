package host

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/R3E-Network/djcomponent/pkg/wire"
)

// MemHost is an in-process Host used by tests and by cmd/djcomponentd's
// standalone mode, where there is no real browser on the other end of the
// control channel. It keeps elements and inserted tags in memory and lets
// callers feed it mutations directly via AddElement and FeedEnvelope.
type MemHost struct {
	mu         sync.Mutex
	nextID     uint64
	elements   map[ElementID]Element
	byInstance map[string][]ElementID // "classID/instanceID" -> element IDs
	scripts    []wire.TagDescriptor
	stylesheet []wire.TagDescriptor
	errors     []string
	seed       []Mutation

	subMu sync.Mutex
	subs  []chan Mutation
}

// NewMemHost creates an empty in-memory host.
func NewMemHost() *MemHost {
	return &MemHost{
		elements:   make(map[ElementID]Element),
		byInstance: make(map[string][]ElementID),
	}
}

func instanceKey(classID, instanceID string) string {
	return classID + "/" + instanceID
}

// AddElement registers a new element for a component instance and notifies
// any active Mutations subscribers, mirroring a host discovering a fresh
// component root in the document.
func (h *MemHost) AddElement(classID, instanceID string) Element {
	h.mu.Lock()
	h.nextID++
	el := Element{ID: ElementID(fmt.Sprintf("el-%d", h.nextID)), ClassID: classID, InstanceID: instanceID}
	h.elements[el.ID] = el
	key := instanceKey(classID, instanceID)
	h.byInstance[key] = append(h.byInstance[key], el.ID)
	h.mu.Unlock()

	h.publish(Mutation{Kind: MutationElementAdded, Element: el})
	return el
}

// FeedEnvelope simulates a data-djc attribute appearing on an element,
// notifying any active Mutations subscribers.
func (h *MemHost) FeedEnvelope(el Element, envelopeB64 string) {
	h.publish(Mutation{Kind: MutationEnvelopeAdded, Element: el, Envelope: envelopeB64})
}

// SeedEnvelope registers an envelope as already present "on page load", to
// be returned once by ScanEnvelopes rather than delivered through the live
// Mutations stream.
func (h *MemHost) SeedEnvelope(el Element, envelopeB64 string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seed = append(h.seed, Mutation{Kind: MutationEnvelopeAdded, Element: el, Envelope: envelopeB64})
}

// ScanEnvelopes implements Host.
func (h *MemHost) ScanEnvelopes(ctx context.Context) ([]Mutation, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Mutation, len(h.seed))
	copy(out, h.seed)
	return out, nil
}

func (h *MemHost) publish(m Mutation) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- m:
		default:
		}
	}
}

// InsertScript implements Host.
func (h *MemHost) InsertScript(ctx context.Context, tag wire.TagDescriptor) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scripts = append(h.scripts, tag)
	return nil
}

// InsertStylesheet implements Host.
func (h *MemHost) InsertStylesheet(ctx context.Context, tag wire.TagDescriptor) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stylesheet = append(h.stylesheet, tag)
	return nil
}

// InsertedScripts returns a copy of every script tag inserted so far.
func (h *MemHost) InsertedScripts() []wire.TagDescriptor {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]wire.TagDescriptor, len(h.scripts))
	copy(out, h.scripts)
	return out
}

// InsertedStylesheets returns a copy of every stylesheet tag inserted so far.
func (h *MemHost) InsertedStylesheets() []wire.TagDescriptor {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]wire.TagDescriptor, len(h.stylesheet))
	copy(out, h.stylesheet)
	return out
}

// QueryInstanceElements implements Host.
func (h *MemHost) QueryInstanceElements(ctx context.Context, classID, instanceID string) ([]Element, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := h.byInstance[instanceKey(classID, instanceID)]
	out := make([]Element, 0, len(ids))
	for _, id := range ids {
		out = append(out, h.elements[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Mutations implements Host.
func (h *MemHost) Mutations(ctx context.Context) (<-chan Mutation, error) {
	ch := make(chan Mutation, 32)
	h.subMu.Lock()
	h.subs = append(h.subs, ch)
	h.subMu.Unlock()

	go func() {
		<-ctx.Done()
		h.subMu.Lock()
		defer h.subMu.Unlock()
		for i, sub := range h.subs {
			if sub == ch {
				h.subs = append(h.subs[:i], h.subs[i+1:]...)
				break
			}
		}
		close(ch)
	}()

	return ch, nil
}

// ConsoleError implements Host.
func (h *MemHost) ConsoleError(format string, args ...interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, fmt.Sprintf(format, args...))
}

// Errors returns every message reported through ConsoleError so far.
func (h *MemHost) Errors() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.errors))
	copy(out, h.errors)
	return out
}

var _ Host = (*MemHost)(nil)
