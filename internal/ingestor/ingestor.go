// Package ingestor discovers activation envelopes in a Host — once on
// startup, then continuously as new ones are reported — decodes each
// exactly once, and translates its contents into assets, registry, and
// scheduler calls in the order spec.md §4.4 lays out.
package ingestor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/R3E-Network/djcomponent/internal/assets"
	"github.com/R3E-Network/djcomponent/internal/host"
	"github.com/R3E-Network/djcomponent/internal/registry"
	"github.com/R3E-Network/djcomponent/internal/scheduler"
	"github.com/R3E-Network/djcomponent/internal/worker"
	"github.com/R3E-Network/djcomponent/pkg/future"
	"github.com/R3E-Network/djcomponent/pkg/logger"
	"github.com/R3E-Network/djcomponent/pkg/metrics"
	"github.com/R3E-Network/djcomponent/pkg/wire"
)

// Config holds the dependencies an Ingestor needs.
type Config struct {
	Host      host.Host
	Assets    *assets.Registry
	Loader    *assets.Loader
	Registry  *registry.Registry
	Scheduler *scheduler.Scheduler
	Logger    *logger.Logger
}

// Ingestor watches a Host for envelope-bearing elements and drives the
// manager from their contents.
type Ingestor struct {
	host      host.Host
	assets    *assets.Registry
	loader    *assets.Loader
	registry  *registry.Registry
	scheduler *scheduler.Scheduler
	logger    *logger.Logger

	mu   sync.Mutex
	seen map[host.ElementID]struct{}
}

// New builds an Ingestor over cfg's dependencies.
func New(cfg Config) *Ingestor {
	return &Ingestor{
		host:      cfg.Host,
		assets:    cfg.Assets,
		loader:    cfg.Loader,
		registry:  cfg.Registry,
		scheduler: cfg.Scheduler,
		logger:    cfg.Logger,
		seen:      make(map[host.ElementID]struct{}),
	}
}

// Run performs the startup scan, then watches for further mutations until
// ctx is cancelled. It blocks until the mutation stream ends.
func (in *Ingestor) Run(ctx context.Context) error {
	scanned, err := in.host.ScanEnvelopes(ctx)
	if err != nil {
		return err
	}
	for _, m := range scanned {
		in.processMutation(ctx, "scan", m)
	}

	mutations, err := in.host.Mutations(ctx)
	if err != nil {
		return err
	}

	worker.ChannelLoop(ctx, ctx.Done(), mutations, func(ctx context.Context, m host.Mutation) {
		in.processMutation(ctx, "mutation", m)
	})
	return nil
}

func (in *Ingestor) processMutation(ctx context.Context, source string, m host.Mutation) {
	if m.Kind != host.MutationEnvelopeAdded {
		return
	}

	in.mu.Lock()
	if _, dup := in.seen[m.Element.ID]; dup {
		in.mu.Unlock()
		return
	}
	in.seen[m.Element.ID] = struct{}{}
	in.mu.Unlock()

	if err := in.processEnvelope(ctx, m.Envelope); err != nil {
		in.host.ConsoleError("ingestor: envelope on %s failed: %v", m.Element.ID, err)
		return
	}
	metrics.RecordEnvelopeIngested(source)
}

// processEnvelope decodes and translates one envelope's text, following
// the exact order spec.md §4.4 prescribes: data factories, then already-
// loaded asset URLs, then stylesheets, then scripts, then the combined
// wait-future, then enqueue, then drain.
func (in *Ingestor) processEnvelope(ctx context.Context, text string) error {
	env, vars, err := wire.ParseEnvelope(text)
	if err != nil {
		return err
	}

	// Step 2: register data factories. Each factory closes over its own
	// jsonText and re-parses on every call so every activation sharing a
	// data-hash gets an independent object.
	for _, v := range vars {
		jsonText := v.JSONText
		in.registerDataFactory(v.ClassID, v.DataHash, jsonText)
	}

	// Step 3: already-embedded assets are marked loaded directly.
	for _, url := range env.CSSUrlsMarkAsLoaded {
		if err := in.assets.MarkLoaded(assets.Stylesheet, url); err != nil {
			in.host.ConsoleError("ingestor: markLoaded stylesheet %s: %v", url, err)
		}
	}
	for _, url := range env.JSUrlsMarkAsLoaded {
		if err := in.assets.MarkLoaded(assets.Script, url); err != nil {
			in.host.ConsoleError("ingestor: markLoaded script %s: %v", url, err)
		}
	}

	// Step 4: stylesheets are fetched fire-and-forget; errors are logged,
	// never fatal to the envelope.
	for _, b64 := range env.CSSTagsToFetch {
		tag, err := wire.DecodeTagDescriptor(b64)
		if err != nil {
			in.host.ConsoleError("ingestor: decode stylesheet tag: %v", err)
			continue
		}
		if err := in.loader.LoadStylesheet(ctx, tag); err != nil {
			in.host.ConsoleError("ingestor: loadStylesheet %v: %v", tag, err)
		}
	}

	// Step 5: scripts are fetched and their per-call waits collected.
	scriptWaits := make([]*future.Future[struct{}], 0, len(env.JSTagsToFetch))
	for _, b64 := range env.JSTagsToFetch {
		tag, err := wire.DecodeTagDescriptor(b64)
		if err != nil {
			in.host.ConsoleError("ingestor: decode script tag: %v", err)
			continue
		}
		result, err := in.loader.LoadScript(ctx, tag)
		if err != nil {
			in.host.ConsoleError("ingestor: loadScript %v: %v", tag, err)
			continue
		}
		scriptWaits = append(scriptWaits, result.Wait)
	}

	// Step 6: combined wait-future over the script waits above and
	// waitFor(script, jsUrls__markAsLoaded). Step 3 has already marked those
	// URLs loaded, so that second wait is resolved when it is created; no
	// wait on a script that only a different envelope loads is formed here.
	crossEnvelopeWait, err := in.assets.WaitFor(assets.Script, env.JSUrlsMarkAsLoaded)
	if err != nil {
		return err
	}
	combined := future.All(append(scriptWaits, crossEnvelopeWait)...)

	// Step 7: enqueue every activation request against the combined wait.
	for _, call := range env.ComponentJSCalls {
		in.scheduler.Enqueue(call.ClassID, call.InstanceID, call.DataHash, combined)
	}

	// Step 8: most of the steps above already requested a drain through
	// their own registrations/enqueues; nothing further to do here.
	return nil
}

// registerDataFactory wires a registry.DataFactory that re-parses jsonText
// on every call, so two activations sharing a data-hash each receive an
// independent object (spec.md §4.4 step 2, §8 "fresh data").
func (in *Ingestor) registerDataFactory(classID, dataHash, jsonText string) {
	in.registry.RegisterDataFactory(classID, dataHash, func() (interface{}, error) {
		var v interface{}
		if err := json.Unmarshal([]byte(jsonText), &v); err != nil {
			return nil, fmt.Errorf("parse data for %s/%s: %w", classID, dataHash, err)
		}
		return v, nil
	})
}
