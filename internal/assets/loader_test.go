package assets

import (
	"context"
	"testing"

	"github.com/R3E-Network/djcomponent/internal/host"
	"github.com/R3E-Network/djcomponent/pkg/wire"
)

func TestLoadScriptInsertsOnceAndDedupes(t *testing.T) {
	h := host.NewMemHost()
	r := NewRegistry()
	l := NewLoader(r, h)
	ctx := context.Background()

	tag := wire.TagDescriptor{Tag: "script", Attrs: map[string]interface{}{"src": "/a.js"}}

	result, err := l.LoadScript(ctx, tag)
	if err != nil {
		t.Fatalf("LoadScript() error = %v", err)
	}
	if !result.Inserted {
		t.Fatal("expected first LoadScript call to insert")
	}

	loaded, _ := r.IsLoaded(Script, "/a.js")
	if !loaded {
		t.Fatal("expected URL marked loaded at insertion time")
	}

	result, err = l.LoadScript(ctx, tag)
	if err != nil {
		t.Fatalf("LoadScript() second call error = %v", err)
	}
	if result.Inserted {
		t.Fatal("expected second LoadScript call to be a de-dup hit")
	}

	if len(h.InsertedScripts()) != 1 {
		t.Fatalf("expected exactly one script node appended, got %d", len(h.InsertedScripts()))
	}
}

func TestLoadScriptInlineOnly(t *testing.T) {
	h := host.NewMemHost()
	r := NewRegistry()
	l := NewLoader(r, h)

	tag := wire.TagDescriptor{Tag: "script", Attrs: map[string]interface{}{}, Content: "console.log(1)"}
	result, err := l.LoadScript(context.Background(), tag)
	if err != nil {
		t.Fatalf("LoadScript() error = %v", err)
	}
	if !result.Inserted {
		t.Fatal("expected inline script to be inserted")
	}
	select {
	case <-result.Wait.Done():
	default:
		t.Fatal("expected inline script's wait to resolve immediately")
	}
	if len(h.InsertedScripts()) != 1 {
		t.Fatalf("expected inline script appended, got %d", len(h.InsertedScripts()))
	}
}

func TestLoadScriptBadTag(t *testing.T) {
	h := host.NewMemHost()
	l := NewLoader(NewRegistry(), h)
	_, err := l.LoadScript(context.Background(), wire.TagDescriptor{Tag: "link"})
	if err == nil {
		t.Fatal("expected BadTag error")
	}
}

func TestLoadStylesheetDedupesByHref(t *testing.T) {
	h := host.NewMemHost()
	r := NewRegistry()
	l := NewLoader(r, h)
	tag := wire.TagDescriptor{Tag: "link", Attrs: map[string]interface{}{"href": "/a.css"}}

	if err := l.LoadStylesheet(context.Background(), tag); err != nil {
		t.Fatalf("LoadStylesheet() error = %v", err)
	}
	if err := l.LoadStylesheet(context.Background(), tag); err != nil {
		t.Fatalf("LoadStylesheet() second call error = %v", err)
	}

	if len(h.InsertedStylesheets()) != 1 {
		t.Fatalf("expected exactly one stylesheet appended, got %d", len(h.InsertedStylesheets()))
	}
}

func TestLoadStylesheetBadTag(t *testing.T) {
	h := host.NewMemHost()
	l := NewLoader(NewRegistry(), h)
	err := l.LoadStylesheet(context.Background(), wire.TagDescriptor{Tag: "script"})
	if err == nil {
		t.Fatal("expected BadTag error")
	}
}
