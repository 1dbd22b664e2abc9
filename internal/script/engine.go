// Package script runs component callbacks whose body is JS source text, as
// the original envelopes carry for inline component callbacks, using an
// embedded pure-Go JS runtime rather than a real browser.
package script

import (
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/R3E-Network/djcomponent/internal/registry"
	"github.com/R3E-Network/djcomponent/pkg/metrics"
)

// Engine compiles and runs JS-sourced component callbacks. Each invocation
// gets a fresh, isolated goja VM: scripts never share state across calls or
// across component instances.
type Engine struct {
	mu       sync.RWMutex
	sources  map[string][]string // classID -> ordered list of script bodies
	recorder *metrics.Recorder
}

// NewEngine returns an Engine with no registered scripts. Invocation counts
// and durations are recorded through a Recorder, since the engine cannot
// declare a metric vector per class id up front without knowing the set of
// classes that will ever register a script callback.
func NewEngine() *Engine {
	return &Engine{
		sources:  make(map[string][]string),
		recorder: metrics.NewRecorder(nil),
	}
}

// RegisterScriptCallback appends source to class-id's ordered list of
// script-sourced callback bodies and returns its index, for passing
// straight to CallbackFor. Each body must define a function named
// EntryPoint ("onComponentCallback") that receives (data, context) and
// returns the activation's value.
func (e *Engine) RegisterScriptCallback(classID, source string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sources[classID] = append(e.sources[classID], source)
	return len(e.sources[classID]) - 1
}

// EntryPoint is the name every registered script body must define.
const EntryPoint = "onComponentCallback"

// CallbackFor compiles class-id's i-th script-sourced callback into a
// registry.CallbackFunc, suitable for handing to registry.Registry via
// RegisterCallback at the call site that wires script-sourced callbacks in.
func (e *Engine) CallbackFor(classID string, index int) (registry.CallbackFunc, error) {
	e.mu.RLock()
	sources := e.sources[classID]
	e.mu.RUnlock()

	if index < 0 || index >= len(sources) {
		return nil, fmt.Errorf("script: no source registered for class %q at index %d", classID, index)
	}
	source := sources[index]

	return func(data interface{}, ctx registry.ActivationContext) (interface{}, error) {
		return e.run(source, data, ctx)
	}, nil
}

// run executes source in a fresh VM, injecting console, data, and context,
// then invoking EntryPoint(data, context) and converting its return value
// to a Go value with goja's Export. A returned Promise is exported as is;
// it is not awaited.
func (e *Engine) run(source string, data interface{}, ctx registry.ActivationContext) (result interface{}, err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		e.recorder.Counter("script_invocations_total", map[string]string{"class_id": ctx.Name, "outcome": outcome}, 1)
		e.recorder.Histogram("script_duration_seconds", map[string]string{"class_id": ctx.Name}, time.Since(start).Seconds())
	}()

	vm := goja.New()

	console := vm.NewObject()
	_ = console.Set("log", func(call goja.FunctionCall) goja.Value { return goja.Undefined() })
	_ = console.Set("error", func(call goja.FunctionCall) goja.Value { return goja.Undefined() })
	_ = vm.Set("console", console)

	_ = vm.Set("data", vm.ToValue(data))
	_ = vm.Set("context", vm.ToValue(map[string]interface{}{
		"name": ctx.Name,
		"id":   ctx.ID,
		"els":  ctx.Elements,
	}))

	if _, err := vm.RunString(source); err != nil {
		return nil, fmt.Errorf("compile script for %q: %w", ctx.Name, err)
	}

	entry, ok := goja.AssertFunction(vm.Get(EntryPoint))
	if !ok {
		return nil, fmt.Errorf("script for %q does not define %s", ctx.Name, EntryPoint)
	}

	retVal, err := entry(goja.Undefined(), vm.Get("data"), vm.Get("context"))
	if err != nil {
		return nil, fmt.Errorf("run %s for %q: %w", EntryPoint, ctx.Name, err)
	}

	if retVal == nil || goja.IsUndefined(retVal) || goja.IsNull(retVal) {
		return nil, nil
	}
	return retVal.Export(), nil
}
