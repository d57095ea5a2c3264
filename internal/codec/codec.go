// ============================================================================
// KVS Tag Codec
// ============================================================================
//
// Package: internal/codec
// File: codec.go
// Purpose: Map kvs.Value <-> the {"t": <tag>, "v": <payload>} JSON shape,
//          recursing through arr/obj containers.
//
// This package is deliberately NOT a json.Marshaler/Unmarshaler on
// kvs.Value itself: encoding/json's struct-tag machinery can't express
// "fail with InvalidValueType iff any of: root not an object, t missing
// or not a string, v missing, t unknown, v doesn't fit t, or any nested
// decode fails" as precisely as a hand-walked tree does, and the package
// boundary keeps the wire format a replaceable detail instead of a
// property of the Value type.
//
// Encode produces a JSON-tree (map[string]any et al.) ready to hand to
// encoding/json.Marshal. Decode consumes a JSON-tree as produced by
// encoding/json's decoder in UseNumber() mode (see internal/persistence),
// which is required to keep i64/u64 precision across the round trip —
// a plain json.Unmarshal into interface{} collapses every number to
// float64 and would silently truncate wide integers.
//
// ============================================================================

package codec

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/chuliyu-labs/kvstore-core/pkg/kvs"
)

// Encode converts v into the {"t", "v"} JSON-tree shape.
func Encode(v kvs.Value) (any, error) {
	switch v.Tag() {
	case kvs.TagI32:
		i, _ := v.AsI32()
		return wrap("i32", i), nil
	case kvs.TagU32:
		u, _ := v.AsU32()
		return wrap("u32", u), nil
	case kvs.TagI64:
		i, _ := v.AsI64()
		return wrap("i64", i), nil
	case kvs.TagU64:
		u, _ := v.AsU64()
		return wrap("u64", u), nil
	case kvs.TagF64:
		f, _ := v.AsF64()
		return wrap("f64", f), nil
	case kvs.TagBool:
		b, _ := v.AsBool()
		return wrap("bool", b), nil
	case kvs.TagStr:
		s, _ := v.AsStr()
		return wrap("str", s), nil
	case kvs.TagNull:
		return wrap("null", nil), nil
	case kvs.TagArr:
		elems, _ := v.AsArr()
		encoded := make([]any, len(elems))
		for i, e := range elems {
			enc, err := Encode(e)
			if err != nil {
				return nil, err
			}
			encoded[i] = enc
		}
		return wrap("arr", encoded), nil
	case kvs.TagObj:
		fields, _ := v.AsObj()
		encoded := make(map[string]any, len(fields))
		for k, e := range fields {
			enc, err := Encode(e)
			if err != nil {
				return nil, err
			}
			encoded[k] = enc
		}
		return wrap("obj", encoded), nil
	default:
		return nil, kvs.WrapInvalidValueType("unrecognized tag on encode", nil)
	}
}

// EncodeMap encodes an entire key->Value map into the top-level object
// shape the store persists: each value individually tag-wrapped, keys
// carried as plain JSON object keys.
func EncodeMap(m map[string]kvs.Value) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		enc, err := Encode(v)
		if err != nil {
			return nil, fmt.Errorf("encode key %q: %w", k, err)
		}
		out[k] = enc
	}
	return out, nil
}

func wrap(tag string, payload any) map[string]any {
	return map[string]any{"t": tag, "v": payload}
}

// Decode converts a JSON-tree node (as produced by a json.Decoder in
// UseNumber mode) back into a kvs.Value.
func Decode(tree any) (kvs.Value, error) {
	obj, ok := tree.(map[string]any)
	if !ok {
		return kvs.Value{}, kvs.WrapInvalidValueType("root is not an object", nil)
	}

	tagAny, ok := obj["t"]
	if !ok {
		return kvs.Value{}, kvs.WrapInvalidValueType("missing \"t\" field", nil)
	}
	tag, ok := tagAny.(string)
	if !ok {
		return kvs.Value{}, kvs.WrapInvalidValueType("\"t\" field is not a string", nil)
	}

	payload, ok := obj["v"]
	if !ok {
		return kvs.Value{}, kvs.WrapInvalidValueType("missing \"v\" field", nil)
	}

	switch tag {
	case "i32":
		n, err := asInt(payload)
		if err != nil {
			return kvs.Value{}, kvs.WrapInvalidValueType("i32 payload", err)
		}
		return kvs.NewI32(int32(n)), nil
	case "u32":
		n, err := asUint(payload)
		if err != nil {
			return kvs.Value{}, kvs.WrapInvalidValueType("u32 payload", err)
		}
		return kvs.NewU32(uint32(n)), nil
	case "i64":
		n, err := asInt(payload)
		if err != nil {
			return kvs.Value{}, kvs.WrapInvalidValueType("i64 payload", err)
		}
		return kvs.NewI64(n), nil
	case "u64":
		n, err := asUint(payload)
		if err != nil {
			return kvs.Value{}, kvs.WrapInvalidValueType("u64 payload", err)
		}
		return kvs.NewU64(n), nil
	case "f64":
		f, err := asFloat(payload)
		if err != nil {
			return kvs.Value{}, kvs.WrapInvalidValueType("f64 payload", err)
		}
		return kvs.NewF64(f), nil
	case "bool":
		b, ok := payload.(bool)
		if !ok {
			return kvs.Value{}, kvs.WrapInvalidValueType("bool payload is not a boolean", nil)
		}
		return kvs.NewBool(b), nil
	case "str":
		s, ok := payload.(string)
		if !ok {
			return kvs.Value{}, kvs.WrapInvalidValueType("str payload is not a string", nil)
		}
		return kvs.NewStr(s), nil
	case "null":
		if payload != nil {
			return kvs.Value{}, kvs.WrapInvalidValueType("null payload must be JSON null", nil)
		}
		return kvs.NewNull(), nil
	case "arr":
		elems, ok := payload.([]any)
		if !ok {
			return kvs.Value{}, kvs.WrapInvalidValueType("arr payload is not an array", nil)
		}
		out := make([]kvs.Value, len(elems))
		for i, e := range elems {
			dv, err := Decode(e)
			if err != nil {
				return kvs.Value{}, fmt.Errorf("arr[%d]: %w", i, err)
			}
			out[i] = dv
		}
		return kvs.NewArr(out), nil
	case "obj":
		fields, ok := payload.(map[string]any)
		if !ok {
			return kvs.Value{}, kvs.WrapInvalidValueType("obj payload is not an object", nil)
		}
		out := make(map[string]kvs.Value, len(fields))
		for k, e := range fields {
			dv, err := Decode(e)
			if err != nil {
				return kvs.Value{}, fmt.Errorf("obj[%q]: %w", k, err)
			}
			out[k] = dv
		}
		return kvs.NewObj(out), nil
	default:
		return kvs.Value{}, kvs.WrapInvalidValueType(fmt.Sprintf("unknown tag %q", tag), nil)
	}
}

// DecodeMap decodes the top-level key->wrapped-value object produced by
// EncodeMap / stored on disk.
func DecodeMap(tree any) (map[string]kvs.Value, error) {
	obj, ok := tree.(map[string]any)
	if !ok {
		return nil, kvs.WrapInvalidValueType("top-level document is not an object", nil)
	}
	out := make(map[string]kvs.Value, len(obj))
	for k, node := range obj {
		v, err := Decode(node)
		if err != nil {
			return nil, fmt.Errorf("decode key %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// asInt accepts json.Number (from a UseNumber decoder) or float64 (from a
// plain decoder, tolerated for payloads built directly in memory/tests).
func asInt(payload any) (int64, error) {
	switch p := payload.(type) {
	case json.Number:
		return strconv.ParseInt(p.String(), 10, 64)
	case float64:
		return int64(p), nil
	case int64:
		return p, nil
	case int:
		return int64(p), nil
	default:
		return 0, fmt.Errorf("not a number: %T", payload)
	}
}

func asUint(payload any) (uint64, error) {
	switch p := payload.(type) {
	case json.Number:
		return strconv.ParseUint(p.String(), 10, 64)
	case float64:
		return uint64(p), nil
	case uint64:
		return p, nil
	case int:
		return uint64(p), nil
	default:
		return 0, fmt.Errorf("not a number: %T", payload)
	}
}

func asFloat(payload any) (float64, error) {
	switch p := payload.(type) {
	case json.Number:
		return p.Float64()
	case float64:
		return p, nil
	default:
		return 0, fmt.Errorf("not a number: %T", payload)
	}
}
