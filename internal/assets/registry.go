// Package assets tracks which script and stylesheet URLs are already loaded
// into the host document, and lets callers wait for URLs that are not yet
// loaded to become so.
package assets

import (
	"sync"
	"time"

	"github.com/R3E-Network/djcomponent/infrastructure/errors"
	"github.com/R3E-Network/djcomponent/pkg/future"
	"github.com/R3E-Network/djcomponent/pkg/metrics"
)

// Kind is the closed set of asset kinds this registry tracks.
type Kind string

const (
	// Script identifies a JS asset.
	Script Kind = "script"
	// Stylesheet identifies a CSS asset.
	Stylesheet Kind = "stylesheet"
)

func validKind(kind Kind) bool {
	return kind == Script || kind == Stylesheet
}

type waiterKey struct {
	kind Kind
	url  string
}

// Registry is the process-lifetime set of loaded asset URLs, plus the
// waiters for URLs that callers are awaiting but have not yet loaded.
type Registry struct {
	mu      sync.Mutex
	loaded  map[waiterKey]struct{}
	waiters map[waiterKey]*future.Future[struct{}]
}

// NewRegistry returns an empty asset registry.
func NewRegistry() *Registry {
	return &Registry{
		loaded:  make(map[waiterKey]struct{}),
		waiters: make(map[waiterKey]*future.Future[struct{}]),
	}
}

// MarkLoaded records url as loaded for kind. If a waiter is already waiting
// on (kind,url), it is resolved. Membership is monotonic: marking an
// already-loaded URL loaded again is a no-op.
func (r *Registry) MarkLoaded(kind Kind, url string) error {
	if !validKind(kind) {
		return errors.BadKind(string(kind))
	}

	r.mu.Lock()
	key := waiterKey{kind: kind, url: url}
	r.loaded[key] = struct{}{}
	waiter := r.waiters[key]
	r.mu.Unlock()

	if waiter != nil {
		waiter.Resolve(struct{}{})
	}
	return nil
}

// IsLoaded reports whether url is already loaded for kind.
func (r *Registry) IsLoaded(kind Kind, url string) (bool, error) {
	if !validKind(kind) {
		return false, errors.BadKind(string(kind))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.loaded[waiterKey{kind: kind, url: url}]
	return ok, nil
}

// waiterFor returns the shared future for (kind,url), creating it if it
// does not already exist. If the URL is already loaded, the returned future
// is pre-resolved.
func (r *Registry) waiterFor(kind Kind, url string) *future.Future[struct{}] {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := waiterKey{kind: kind, url: url}
	if _, ok := r.loaded[key]; ok {
		return future.NewResolved(struct{}{})
	}
	if w, ok := r.waiters[key]; ok {
		return w
	}
	w := future.New[struct{}]()
	r.waiters[key] = w
	return w
}

// WaitFor returns a future that resolves once every listed URL is loaded
// for kind. Each URL independently contributes a resolved future if already
// loaded, or the shared pending waiter otherwise. The time from this call
// until the combined future settles is recorded as that kind's asset-wait
// latency, whether or not any URL was actually still pending.
func (r *Registry) WaitFor(kind Kind, urls []string) (*future.Future[struct{}], error) {
	if !validKind(kind) {
		return nil, errors.BadKind(string(kind))
	}
	futures := make([]*future.Future[struct{}], 0, len(urls))
	for _, url := range urls {
		futures = append(futures, r.waiterFor(kind, url))
	}
	combined := future.All(futures...)

	start := time.Now()
	go func() {
		<-combined.Done()
		metrics.RecordAssetWait(string(kind), time.Since(start))
	}()

	return combined, nil
}
