package value

import (
	"encoding/json"

	"github.com/fxamacker/cbor/v2"
)

// StructuredKind is the type tag of a StructuredValue (spec §3).
type StructuredKind string

const (
	KindText   StructuredKind = "text"
	KindArray  StructuredKind = "array"
	KindObject StructuredKind = "object"
)

// StructuredValue is the {type, text, data, ctx?, metadata?} wrapper
// produced whenever an executable or transformer returns a
// non-primitive, and whenever JSON-valued text is re-parsed (spec §3).
type StructuredValue struct {
	Type     StructuredKind
	Text     string
	Data     interface{}
	Ctx      *SecurityDescriptor
	Metadata map[string]interface{}
}

// WrapOptions carries provenance for wrapExecResult (spec §4.2).
type WrapOptions struct {
	// SourceType, when non-empty, is attached to Metadata["type"] so
	// downstream pipeline stages can see what produced this value
	// (e.g. "command-result", "transformer").
	SourceType string
}

// WrapExecResult implements spec §4.2 wrapExecResult: already
// structured values pass through; primitives become a text wrapper;
// objects/arrays get a canonical-JSON text projection.
func WrapExecResult(v interface{}, opts WrapOptions) *StructuredValue {
	if sv, ok := v.(*StructuredValue); ok {
		return sv
	}
	sv := wrapRaw(v)
	if opts.SourceType != "" {
		if sv.Metadata == nil {
			sv.Metadata = map[string]interface{}{}
		}
		sv.Metadata["type"] = opts.SourceType
	}
	return sv
}

func wrapRaw(v interface{}) *StructuredValue {
	switch t := v.(type) {
	case nil:
		return &StructuredValue{Type: KindText, Text: "null", Data: nil}
	case string:
		return &StructuredValue{Type: KindText, Text: t, Data: t}
	case bool, int, int64, float64:
		return &StructuredValue{Type: KindText, Text: canonicalScalarText(t), Data: t}
	case []interface{}:
		return &StructuredValue{Type: KindArray, Text: canonicalJSON(t), Data: t}
	case map[string]interface{}:
		return &StructuredValue{Type: KindObject, Text: canonicalJSON(t), Data: t}
	default:
		// Fallback for any other Go value (e.g. typed slices/maps from
		// adapters): round-trip through JSON to normalize into the
		// plain interface{} shape the rest of the evaluator expects.
		b, err := json.Marshal(t)
		if err != nil {
			return &StructuredValue{Type: KindText, Text: "", Data: nil}
		}
		var generic interface{}
		_ = json.Unmarshal(b, &generic)
		return wrapRaw(generic)
	}
}

func canonicalScalarText(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func canonicalJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// ParseAndWrapJSON implements spec §4.2 parseAndWrapJson: attempts a
// JSON parse and wraps the parsed data on success, or returns nil so
// the caller keeps the raw string.
func ParseAndWrapJSON(text string) *StructuredValue {
	var data interface{}
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil
	}
	sv := wrapRaw(data)
	sv.Text = text
	return sv
}

// AsText is the text projection (spec §4.2 asText): arrays/objects
// serialize to canonical JSON; text wrappers return their raw text.
func AsText(v interface{}) string {
	switch t := v.(type) {
	case *StructuredValue:
		return t.Text
	case string:
		return t
	case nil:
		return ""
	default:
		return canonicalScalarText(t)
	}
}

// AsData is the data projection (spec §4.2 asData): a text wrapper's
// data is re-parsed lazily if it looks like JSON, else the raw text
// string is returned.
func AsData(v interface{}) interface{} {
	sv, ok := v.(*StructuredValue)
	if !ok {
		return v
	}
	if sv.Type != KindText {
		return sv.Data
	}
	if sv.Data != nil {
		return sv.Data
	}
	if parsed := ParseAndWrapJSON(sv.Text); parsed != nil {
		return parsed.Data
	}
	return sv.Text
}

// Fingerprint returns a stable CBOR-encoded byte fingerprint of a
// structured value's data projection, used to check the idempotence
// property (spec §8): re-invoking a side-effect-free executable via
// pipeline retry must yield the same structured output. CBOR is used
// instead of re-serializing to JSON text twice because it canonically
// orders map keys without a second JSON round-trip allocation.
func Fingerprint(v interface{}) ([]byte, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	return em.Marshal(AsData(WrapExecResult(v, WrapOptions{})))
}
