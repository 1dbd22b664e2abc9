package wire

import (
	"testing"

	"github.com/R3E-Network/djcomponent/infrastructure/errors"
)

func TestParseEnvelopeRoundTrip(t *testing.T) {
	text := `{
		"cssUrls__markAsLoaded": ["` + EncodeBase64("/a.css") + `"],
		"jsUrls__markAsLoaded": ["` + EncodeBase64("/a.js") + `"],
		"cssTags__toFetch": [],
		"jsTags__toFetch": [],
		"componentJsVars": [["` + EncodeBase64("table") + `","` + EncodeBase64("h1") + `","` + EncodeBase64(`{"v":1}`) + `"]],
		"componentJsCalls": [["` + EncodeBase64("table") + `","` + EncodeBase64("i1") + `","` + EncodeBase64("h1") + `"], ["` + EncodeBase64("table") + `","` + EncodeBase64("i2") + `", null]]
	}`

	env, vars, err := ParseEnvelope(text)
	if err != nil {
		t.Fatalf("ParseEnvelope() error = %v", err)
	}

	if len(env.CSSUrlsMarkAsLoaded) != 1 || env.CSSUrlsMarkAsLoaded[0] != "/a.css" {
		t.Fatalf("CSSUrlsMarkAsLoaded = %v", env.CSSUrlsMarkAsLoaded)
	}
	if len(env.JSUrlsMarkAsLoaded) != 1 || env.JSUrlsMarkAsLoaded[0] != "/a.js" {
		t.Fatalf("JSUrlsMarkAsLoaded = %v", env.JSUrlsMarkAsLoaded)
	}

	if len(vars) != 1 || vars[0].ClassID != "table" || vars[0].DataHash != "h1" || vars[0].JSONText != `{"v":1}` {
		t.Fatalf("vars = %+v", vars)
	}

	if len(env.ComponentJSCalls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(env.ComponentJSCalls))
	}
	first := env.ComponentJSCalls[0]
	if first.ClassID != "table" || first.InstanceID != "i1" || first.DataHash == nil || *first.DataHash != "h1" {
		t.Fatalf("first call = %+v", first)
	}
	second := env.ComponentJSCalls[1]
	if second.DataHash != nil {
		t.Fatalf("expected nil data hash for second call, got %v", *second.DataHash)
	}
}

func TestParseEnvelopeTolerantOfUnknownFields(t *testing.T) {
	text := `{"cssUrls__markAsLoaded": [], "jsUrls__markAsLoaded": [], "cssTags__toFetch": [], "jsTags__toFetch": [], "componentJsVars": [], "componentJsCalls": [], "someFutureField": {"nested": true}}`
	if _, _, err := ParseEnvelope(text); err != nil {
		t.Fatalf("ParseEnvelope() error = %v, want nil", err)
	}
}

func TestParseEnvelopeInvalidJSON(t *testing.T) {
	_, _, err := ParseEnvelope("not json")
	if err == nil {
		t.Fatalf("expected error for invalid JSON")
	}
	if se := errors.GetServiceError(err); se == nil || se.Code != errors.ErrCodeInvalidEnvelope {
		t.Fatalf("expected ErrCodeInvalidEnvelope, got %+v", se)
	}
}

func TestParseEnvelopeInvalidBase64Field(t *testing.T) {
	text := `{"cssUrls__markAsLoaded": ["not-valid-base64!!"], "jsUrls__markAsLoaded": [], "cssTags__toFetch": [], "jsTags__toFetch": [], "componentJsVars": [], "componentJsCalls": []}`
	_, _, err := ParseEnvelope(text)
	if err == nil {
		t.Fatalf("expected error for invalid base64 field")
	}
	if se := errors.GetServiceError(err); se == nil || se.Code != errors.ErrCodeInvalidBase64 {
		t.Fatalf("expected ErrCodeInvalidBase64, got %+v", se)
	}
}

func TestDecodeTagDescriptor(t *testing.T) {
	raw := `{"tag":"script","attrs":{"src":"/a.js","async":true,"defer":false},"content":""}`
	b64 := EncodeBase64(raw)

	tag, err := DecodeTagDescriptor(b64)
	if err != nil {
		t.Fatalf("DecodeTagDescriptor() error = %v", err)
	}
	if tag.Tag != "script" {
		t.Fatalf("Tag = %q, want script", tag.Tag)
	}
	url, ok := tag.URL()
	if !ok || url != "/a.js" {
		t.Fatalf("URL() = %q, %v", url, ok)
	}
	rendered := tag.RenderAttrs()
	if rendered != ` async src="/a.js"` {
		t.Fatalf("RenderAttrs() = %q", rendered)
	}
}

func TestTagDescriptorInlineOnly(t *testing.T) {
	tag := TagDescriptor{Tag: "script", Attrs: map[string]interface{}{}, Content: "console.log(1)"}
	if _, ok := tag.URL(); ok {
		t.Fatalf("expected inline-only script to have no URL")
	}
}
