package wire

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/R3E-Network/djcomponent/infrastructure/errors"
)

// RawEnvelope is an activation envelope (spec §6) as ParseEnvelope returns
// it: URL lists and activation tuples are base64-decoded, while the tag
// descriptor lists still hold their base64 wire strings. Fields are read
// permissively with gjson so an envelope carrying unknown sibling fields
// never fails to parse.
type RawEnvelope struct {
	CSSUrlsMarkAsLoaded []string    `json:"cssUrls__markAsLoaded"`
	JSUrlsMarkAsLoaded  []string    `json:"jsUrls__markAsLoaded"`
	CSSTagsToFetch      []string    `json:"cssTags__toFetch"`
	JSTagsToFetch       []string    `json:"jsTags__toFetch"`
	ComponentJSCalls    []CallTuple `json:"-"`
}

// CallTuple is a decoded (classID, instanceID, dataHash|nil) activation
// request. DataHash is nil when the envelope slot carried JSON null.
type CallTuple struct {
	ClassID    string
	InstanceID string
	DataHash   *string
}

// VarsTuple is a decoded (classID, dataHash, jsonText) data-factory binding.
type VarsTuple struct {
	ClassID  string
	DataHash string
	JSONText string
}

// ParseEnvelope decodes an envelope's raw JSON text using gjson path queries,
// tolerating unknown sibling fields, then base64-decodes every listed string
// field except the tag descriptors, which are left for DecodeTagDescriptor
// (spec §6: "All strings are base64-encoded on the wire").
func ParseEnvelope(text string) (*RawEnvelope, []VarsTuple, error) {
	if !gjson.Valid(text) {
		return nil, nil, errors.InvalidEnvelope("not valid JSON")
	}
	root := gjson.Parse(text)

	env := &RawEnvelope{}
	var err error

	env.CSSUrlsMarkAsLoaded, err = decodeStringArray(root, "cssUrls__markAsLoaded")
	if err != nil {
		return nil, nil, err
	}
	env.JSUrlsMarkAsLoaded, err = decodeStringArray(root, "jsUrls__markAsLoaded")
	if err != nil {
		return nil, nil, err
	}
	// Tag descriptors keep their base64 wire form; DecodeTagDescriptor
	// decodes each one when it is loaded.
	for _, v := range root.Get("cssTags__toFetch").Array() {
		env.CSSTagsToFetch = append(env.CSSTagsToFetch, v.String())
	}
	for _, v := range root.Get("jsTags__toFetch").Array() {
		env.JSTagsToFetch = append(env.JSTagsToFetch, v.String())
	}

	vars := make([]VarsTuple, 0)
	for _, tuple := range root.Get("componentJsVars").Array() {
		items := tuple.Array()
		if len(items) != 3 {
			return nil, nil, errors.InvalidEnvelope(fmt.Sprintf("componentJsVars: expected 3-tuple, got %d", len(items)))
		}
		classID, err := decodeBase64Field("componentJsVars[].0", items[0].String())
		if err != nil {
			return nil, nil, err
		}
		dataHash, err := decodeBase64Field("componentJsVars[].1", items[1].String())
		if err != nil {
			return nil, nil, err
		}
		jsonText, err := decodeBase64Field("componentJsVars[].2", items[2].String())
		if err != nil {
			return nil, nil, err
		}
		vars = append(vars, VarsTuple{ClassID: classID, DataHash: dataHash, JSONText: jsonText})
	}

	calls := make([]CallTuple, 0)
	for _, tuple := range root.Get("componentJsCalls").Array() {
		items := tuple.Array()
		if len(items) != 3 {
			return nil, nil, errors.InvalidEnvelope(fmt.Sprintf("componentJsCalls: expected 3-tuple, got %d", len(items)))
		}
		classID, err := decodeBase64Field("componentJsCalls[].0", items[0].String())
		if err != nil {
			return nil, nil, err
		}
		instanceID, err := decodeBase64Field("componentJsCalls[].1", items[1].String())
		if err != nil {
			return nil, nil, err
		}
		var dataHash *string
		if items[2].Type != gjson.Null {
			decoded, err := decodeBase64Field("componentJsCalls[].2", items[2].String())
			if err != nil {
				return nil, nil, err
			}
			dataHash = &decoded
		}
		calls = append(calls, CallTuple{ClassID: classID, InstanceID: instanceID, DataHash: dataHash})
	}
	env.ComponentJSCalls = calls

	return env, vars, nil
}

func decodeStringArray(root gjson.Result, path string) ([]string, error) {
	arr := root.Get(path).Array()
	out := make([]string, 0, len(arr))
	for i, v := range arr {
		decoded, err := decodeBase64Field(fmt.Sprintf("%s[%d]", path, i), v.String())
		if err != nil {
			return nil, err
		}
		out = append(out, decoded)
	}
	return out, nil
}

func decodeBase64Field(field, raw string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", errors.InvalidBase64(field, err)
	}
	return string(data), nil
}

// DecodeTagDescriptor base64-decodes and JSON-unmarshals a tag descriptor
// string as carried in cssTags__toFetch / jsTags__toFetch.
func DecodeTagDescriptor(b64 string) (TagDescriptor, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return TagDescriptor{}, errors.InvalidBase64("tagDescriptor", err)
	}
	var tag TagDescriptor
	if err := json.Unmarshal(data, &tag); err != nil {
		return TagDescriptor{}, errors.InvalidEnvelope("tag descriptor: " + err.Error())
	}
	return tag, nil
}

// EncodeBase64 is the inverse of the per-field base64 decoding above, used
// by tests asserting the round-trip property from spec §8.
func EncodeBase64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}
