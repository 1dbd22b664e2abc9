// Package djcomponent wires an asset registry, a callback/data-factory
// registry, an activation scheduler, a script-callback engine, and an
// envelope ingestor into the single public surface described by the
// manager operations: registerCallback, registerDataFactory,
// callComponent/enqueue, loadScript, loadStylesheet, markLoaded, isLoaded,
// waitFor.
package djcomponent

import (
	"context"

	"github.com/R3E-Network/djcomponent/internal/assets"
	"github.com/R3E-Network/djcomponent/internal/host"
	"github.com/R3E-Network/djcomponent/internal/ingestor"
	"github.com/R3E-Network/djcomponent/internal/registry"
	"github.com/R3E-Network/djcomponent/internal/scheduler"
	"github.com/R3E-Network/djcomponent/internal/script"
	"github.com/R3E-Network/djcomponent/pkg/future"
	"github.com/R3E-Network/djcomponent/pkg/logger"
	"github.com/R3E-Network/djcomponent/pkg/wire"
)

const (
	// ServiceID identifies this module among the daemon's components.
	ServiceID = "djcomponent"
	// ServiceName is the human-readable name.
	ServiceName = "Component Bootstrap Manager"
	// Version is this module's semantic version.
	Version = "1.0.0"
)

// Config holds the dependencies a Manager needs. Host is the only required
// field; Logger and OnFatalError may be left nil, in which case nothing is
// logged through a Logger and fatal errors go to no hook.
type Config struct {
	Host   host.Host
	Logger *logger.Logger

	// OnFatalError receives a ScriptLoadFailed error surfaced by a queue
	// flush (spec.md §4.3.3, §7).
	OnFatalError func(error)
}

// Manager is the single entry point a host process or test embeds: it owns
// the asset registry, callback registry, scheduler, script engine, and
// ingestor, and exposes the public manager operations spec.md §6 names.
type Manager struct {
	assets    *assets.Registry
	loader    *assets.Loader
	callbacks *registry.Registry
	scheduler *scheduler.Scheduler
	scripts   *script.Engine
	ingestor  *ingestor.Ingestor
}

// New builds a Manager over cfg. It does not start envelope discovery;
// call Run for that once the caller is ready to process mutations.
func New(cfg Config) *Manager {
	assetRegistry := assets.NewRegistry()
	loader := assets.NewLoader(assetRegistry, cfg.Host)
	callbackRegistry := registry.New(nil)
	sched := scheduler.New(scheduler.Config{
		Registry:     callbackRegistry,
		Host:         cfg.Host,
		Logger:       cfg.Logger,
		OnFatalError: cfg.OnFatalError,
	})
	scriptEngine := script.NewEngine()

	ing := ingestor.New(ingestor.Config{
		Host:      cfg.Host,
		Assets:    assetRegistry,
		Loader:    loader,
		Registry:  callbackRegistry,
		Scheduler: sched,
		Logger:    cfg.Logger,
	})

	return &Manager{
		assets:    assetRegistry,
		loader:    loader,
		callbacks: callbackRegistry,
		scheduler: sched,
		scripts:   scriptEngine,
		ingestor:  ing,
	}
}

// Run performs the ingestor's startup scan and then watches for further
// host mutations until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	return m.ingestor.Run(ctx)
}

// RegisterCallback registers a native Go callback for class-id.
func (m *Manager) RegisterCallback(classID string, fn registry.CallbackFunc) {
	m.callbacks.RegisterCallback(classID, fn)
}

// RegisterScriptCallback registers a JS-sourced callback for class-id,
// compiling and running it in an isolated goja VM on every invocation.
func (m *Manager) RegisterScriptCallback(classID, source string) error {
	index := m.scripts.RegisterScriptCallback(classID, source)
	cb, err := m.scripts.CallbackFor(classID, index)
	if err != nil {
		return err
	}
	m.callbacks.RegisterCallback(classID, cb)
	return nil
}

// RegisterDataFactory registers a data factory for (class-id, data-hash).
func (m *Manager) RegisterDataFactory(classID, dataHash string, fn registry.DataFactory) {
	m.callbacks.RegisterDataFactory(classID, dataHash, fn)
}

// Enqueue is callComponent: it requests that class-id's callback chain run
// against instance-id, optionally gated on wait resolving first, and
// returns a future observing the final callback's value.
func (m *Manager) Enqueue(classID, instanceID string, dataHash *string, wait *future.Future[struct{}]) *future.Future[interface{}] {
	return m.scheduler.Enqueue(classID, instanceID, dataHash, wait)
}

// LoadScript inserts a script tag through the Host, de-duplicating by URL.
func (m *Manager) LoadScript(ctx context.Context, tag wire.TagDescriptor) (assets.LoadResult, error) {
	return m.loader.LoadScript(ctx, tag)
}

// LoadStylesheet inserts a stylesheet tag through the Host, de-duplicating
// by URL; fire-and-forget per spec.md §4.1.
func (m *Manager) LoadStylesheet(ctx context.Context, tag wire.TagDescriptor) error {
	return m.loader.LoadStylesheet(ctx, tag)
}

// MarkLoaded records a URL as already loaded without touching the Host.
func (m *Manager) MarkLoaded(kind assets.Kind, url string) error {
	return m.assets.MarkLoaded(kind, url)
}

// IsLoaded reports whether a URL is already loaded.
func (m *Manager) IsLoaded(kind assets.Kind, url string) (bool, error) {
	return m.assets.IsLoaded(kind, url)
}

// WaitFor returns a future resolving once every listed URL is loaded.
func (m *Manager) WaitFor(kind assets.Kind, urls []string) (*future.Future[struct{}], error) {
	return m.assets.WaitFor(kind, urls)
}

// QueueDepth reports the scheduler's current queue length, for health
// checks and metrics scraping.
func (m *Manager) QueueDepth() int {
	return m.scheduler.QueueDepth()
}
