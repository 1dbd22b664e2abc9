package script

import (
	"testing"

	"github.com/R3E-Network/djcomponent/internal/registry"
)

func TestRegisterAndRunScriptCallback(t *testing.T) {
	e := NewEngine()
	e.RegisterScriptCallback("table", `
		function onComponentCallback(data, context) {
			return { doubled: data.v * 2, name: context.name, id: context.id };
		}
	`)

	cb, err := e.CallbackFor("table", 0)
	if err != nil {
		t.Fatalf("CallbackFor() error = %v", err)
	}

	result, err := cb(map[string]interface{}{"v": 21}, registry.ActivationContext{Name: "table", ID: "i1"})
	if err != nil {
		t.Fatalf("callback error = %v", err)
	}

	out := result.(map[string]interface{})
	if out["doubled"] != int64(42) && out["doubled"] != float64(42) {
		t.Fatalf("doubled = %v, want 42", out["doubled"])
	}
	if out["name"] != "table" || out["id"] != "i1" {
		t.Fatalf("unexpected context fields: %v", out)
	}
}

func TestCallbackForMissingSourceErrors(t *testing.T) {
	e := NewEngine()
	if _, err := e.CallbackFor("table", 0); err == nil {
		t.Fatal("expected error for unregistered class id")
	}
}

func TestScriptMissingEntryPointErrors(t *testing.T) {
	e := NewEngine()
	e.RegisterScriptCallback("broken", `var x = 1;`)

	cb, err := e.CallbackFor("broken", 0)
	if err != nil {
		t.Fatalf("CallbackFor() error = %v", err)
	}
	if _, err := cb(nil, registry.ActivationContext{Name: "broken", ID: "i1"}); err == nil {
		t.Fatal("expected error for missing entry point")
	}
}

func TestScriptReturningUndefinedYieldsNilValue(t *testing.T) {
	e := NewEngine()
	e.RegisterScriptCallback("void", `function onComponentCallback(data, context) {}`)

	cb, _ := e.CallbackFor("void", 0)
	result, err := cb(nil, registry.ActivationContext{Name: "void", ID: "i1"})
	if err != nil {
		t.Fatalf("callback error = %v", err)
	}
	if result != nil {
		t.Fatalf("result = %v, want nil", result)
	}
}

func TestIsolatedVMsDoNotShareState(t *testing.T) {
	e := NewEngine()
	e.RegisterScriptCallback("counter", `
		var n = (typeof n === "undefined") ? 0 : n;
		function onComponentCallback(data, context) {
			n += 1;
			return n;
		}
	`)

	cb, _ := e.CallbackFor("counter", 0)
	first, _ := cb(nil, registry.ActivationContext{Name: "counter", ID: "i1"})
	second, _ := cb(nil, registry.ActivationContext{Name: "counter", ID: "i2"})

	if first != second {
		t.Fatalf("expected each invocation to get a fresh VM: first=%v second=%v", first, second)
	}
}
