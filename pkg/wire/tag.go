// Package wire defines the JSON wire format emitted by the server-side
// templating layer: tag descriptors and activation envelopes (spec §6).
package wire

import (
	"fmt"
	"sort"
	"strings"
)

// TagDescriptor is the JSON shape of a script or link tag as emitted by the
// template layer: {tag, attrs, content}.
type TagDescriptor struct {
	Tag     string                 `json:"tag"`
	Attrs   map[string]interface{} `json:"attrs"`
	Content string                 `json:"content"`
}

// SourceAttr is the attribute name holding a tag's asset URL: "src" for
// script tags, "href" for link tags.
func (t TagDescriptor) SourceAttr() string {
	switch t.Tag {
	case "script":
		return "src"
	case "link":
		return "href"
	default:
		return ""
	}
}

// URL returns the tag's source URL and whether it carries one at all. A
// script tag missing "src" is inline-only (spec §4.1 edge case).
func (t TagDescriptor) URL() (string, bool) {
	attr := t.SourceAttr()
	if attr == "" {
		return "", false
	}
	raw, ok := t.Attrs[attr]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// RenderAttrs renders the attrs map into HTML attribute syntax, honoring the
// boolean-attribute convention from spec §6: true renders valueless, false
// omits the attribute, strings render as name="value".
func (t TagDescriptor) RenderAttrs() string {
	if len(t.Attrs) == 0 {
		return ""
	}
	names := make([]string, 0, len(t.Attrs))
	for name := range t.Attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		switch v := t.Attrs[name].(type) {
		case bool:
			if v {
				b.WriteString(" ")
				b.WriteString(name)
			}
		case string:
			b.WriteString(" ")
			b.WriteString(name)
			b.WriteString(fmt.Sprintf("=%q", v))
		default:
			b.WriteString(" ")
			b.WriteString(name)
			b.WriteString(fmt.Sprintf("=%q", fmt.Sprint(v)))
		}
	}
	return b.String()
}
