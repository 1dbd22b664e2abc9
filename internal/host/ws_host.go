package host

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/R3E-Network/djcomponent/pkg/wire"
)

// wsCommand is the wire shape of a host-bound instruction sent over a WSHost
// control connection.
type wsCommand struct {
	Op         string              `json:"op"` // "insertScript" | "insertStylesheet" | "queryInstance" | "console"
	Tag        *wire.TagDescriptor `json:"tag,omitempty"`
	ClassID    string              `json:"classId,omitempty"`
	InstanceID string              `json:"instanceId,omitempty"`
	Message    string              `json:"message,omitempty"`
}

// wsEvent is the wire shape of a host-originated report received over a
// WSHost control connection: mutation notices and query responses.
type wsEvent struct {
	Type     string    `json:"type"` // "mutation" | "elements"
	Kind     string    `json:"kind,omitempty"` // "elementAdded" | "envelopeAdded"
	Element  *Element  `json:"element,omitempty"`
	Envelope string    `json:"envelope,omitempty"`
	Elements []Element `json:"elements,omitempty"`
}

// WSHost is a Host backed by a single gorilla/websocket connection to a real
// renderer (a browser tab, or any process that speaks the control protocol).
// Writes are serialized through a mutex; reads are pumped by a single
// goroutine that fans mutation events out to subscribers.
type WSHost struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	writeMu sync.Mutex

	subMu sync.Mutex
	subs  []chan Mutation

	pendingMu sync.Mutex
	pending   map[string]chan []Element
	nextReqID uint64
}

// NewWSHost wraps an already-established WebSocket connection.
func NewWSHost(conn *websocket.Conn, writeTimeout time.Duration) *WSHost {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	h := &WSHost{
		conn:         conn,
		writeTimeout: writeTimeout,
		pending:      make(map[string]chan []Element),
	}
	go h.readLoop()
	return h
}

func (h *WSHost) readLoop() {
	for {
		_, data, err := h.conn.ReadMessage()
		if err != nil {
			h.subMu.Lock()
			for _, ch := range h.subs {
				close(ch)
			}
			h.subs = nil
			h.subMu.Unlock()
			return
		}

		var ev wsEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}

		switch ev.Type {
		case "mutation":
			h.dispatchMutation(ev)
		case "elements":
			h.dispatchElements(ev)
		}
	}
}

func (h *WSHost) dispatchMutation(ev wsEvent) {
	if ev.Element == nil {
		return
	}
	var kind MutationKind
	switch ev.Kind {
	case "envelopeAdded":
		kind = MutationEnvelopeAdded
	default:
		kind = MutationElementAdded
	}

	m := Mutation{Kind: kind, Element: *ev.Element, Envelope: ev.Envelope}
	h.subMu.Lock()
	defer h.subMu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- m:
		default:
		}
	}
}

func (h *WSHost) dispatchElements(ev wsEvent) {
	// Elements responses carry no request key: the reply goes to whichever
	// pending waiter map iteration yields first, which is the right one only
	// while a single QueryInstanceElements or ScanEnvelopes request is
	// outstanding.
	h.pendingMu.Lock()
	defer h.pendingMu.Unlock()
	for key, ch := range h.pending {
		ch <- ev.Elements
		delete(h.pending, key)
		return
	}
}

func (h *WSHost) send(cmd wsCommand) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal ws command: %w", err)
	}
	h.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	return h.conn.WriteMessage(websocket.TextMessage, data)
}

// InsertScript implements Host.
func (h *WSHost) InsertScript(ctx context.Context, tag wire.TagDescriptor) error {
	return h.send(wsCommand{Op: "insertScript", Tag: &tag})
}

// InsertStylesheet implements Host.
func (h *WSHost) InsertStylesheet(ctx context.Context, tag wire.TagDescriptor) error {
	return h.send(wsCommand{Op: "insertStylesheet", Tag: &tag})
}

// QueryInstanceElements implements Host.
func (h *WSHost) QueryInstanceElements(ctx context.Context, classID, instanceID string) ([]Element, error) {
	h.pendingMu.Lock()
	h.nextReqID++
	key := fmt.Sprintf("%s/%s#%d", classID, instanceID, h.nextReqID)
	ch := make(chan []Element, 1)
	h.pending[key] = ch
	h.pendingMu.Unlock()

	if err := h.send(wsCommand{Op: "queryInstance", ClassID: classID, InstanceID: instanceID}); err != nil {
		h.pendingMu.Lock()
		delete(h.pending, key)
		h.pendingMu.Unlock()
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case elements := <-ch:
		return elements, nil
	}
}

// Mutations implements Host.
func (h *WSHost) Mutations(ctx context.Context) (<-chan Mutation, error) {
	ch := make(chan Mutation, 64)
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
				close(ch)
				break
			}
		}
	}()

	return ch, nil
}

// ScanEnvelopes implements Host. The control protocol's "scan" op is
// answered with a single "elements" event; WSHost reuses the same
// pending-request plumbing as QueryInstanceElements under a "scan#N" key.
// Each element in the reply is returned as a MutationElementAdded entry
// with no envelope text: the reply does not carry envelopes.
func (h *WSHost) ScanEnvelopes(ctx context.Context) ([]Mutation, error) {
	h.pendingMu.Lock()
	h.nextReqID++
	key := fmt.Sprintf("scan#%d", h.nextReqID)
	ch := make(chan []Element, 1)
	h.pending[key] = ch
	h.pendingMu.Unlock()

	if err := h.send(wsCommand{Op: "scan"}); err != nil {
		h.pendingMu.Lock()
		delete(h.pending, key)
		h.pendingMu.Unlock()
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case elements := <-ch:
		out := make([]Mutation, len(elements))
		for i, el := range elements {
			out[i] = Mutation{Kind: MutationElementAdded, Element: el}
		}
		return out, nil
	}
}

// ConsoleError implements Host.
func (h *WSHost) ConsoleError(format string, args ...interface{}) {
	h.send(wsCommand{Op: "console", Message: fmt.Sprintf(format, args...)})
}

var _ Host = (*WSHost)(nil)
