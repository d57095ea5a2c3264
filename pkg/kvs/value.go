// ============================================================================
// KVS Value Model
// ============================================================================
//
// Package: pkg/kvs
// File: value.go
// Purpose: Tagged sum type carrying the dynamically-typed values a store
//          holds, with deep-copy and structural-equality semantics.
//
// Design:
//   Value is a closed tagged union over {i32, u32, i64, u64, f64, bool,
//   str, null, arr, obj}. The tag and payload must always agree; an
//   observed mismatch is a programming error, distinct from
//   InvalidValueType which is data-driven and returned as an error by
//   the codec layer (internal/codec), never here.
//
//   Containers (arr, obj) own their elements: Clone() walks the tree and
//   duplicates every nested Value, so no two Value trees ever alias
//   mutable state through a shared slice or map.
//
// ============================================================================

package kvs

// Tag identifies which payload a Value currently holds.
type Tag int

const (
	TagNull Tag = iota
	TagI32
	TagU32
	TagI64
	TagU64
	TagF64
	TagBool
	TagStr
	TagArr
	TagObj
)

// String renders the tag using the short wire alphabet (this repo picked
// the short names, not the historical long ones).
func (t Tag) String() string {
	switch t {
	case TagI32:
		return "i32"
	case TagU32:
		return "u32"
	case TagI64:
		return "i64"
	case TagU64:
		return "u64"
	case TagF64:
		return "f64"
	case TagBool:
		return "bool"
	case TagStr:
		return "str"
	case TagNull:
		return "null"
	case TagArr:
		return "arr"
	case TagObj:
		return "obj"
	default:
		return "unknown"
	}
}

// Value is a dynamically-typed, tagged value. The zero Value is a null.
type Value struct {
	tag Tag

	i32 int32
	u32 uint32
	i64 int64
	u64 uint64
	f64 float64
	b   bool
	str string
	arr []Value
	obj map[string]Value
}

func NewI32(v int32) Value   { return Value{tag: TagI32, i32: v} }
func NewU32(v uint32) Value  { return Value{tag: TagU32, u32: v} }
func NewI64(v int64) Value   { return Value{tag: TagI64, i64: v} }
func NewU64(v uint64) Value  { return Value{tag: TagU64, u64: v} }
func NewF64(v float64) Value { return Value{tag: TagF64, f64: v} }
func NewBool(v bool) Value   { return Value{tag: TagBool, b: v} }
func NewStr(v string) Value  { return Value{tag: TagStr, str: v} }
func NewNull() Value         { return Value{tag: TagNull} }

// NewArr takes ownership of a fresh slice built from the given elements,
// each deep-copied so the caller's originals can still be mutated freely.
func NewArr(elems []Value) Value {
	out := make([]Value, len(elems))
	for i, e := range elems {
		out[i] = e.Clone()
	}
	return Value{tag: TagArr, arr: out}
}

// NewObj takes ownership of a fresh map built from the given entries,
// each deep-copied so the caller's originals can still be mutated freely.
func NewObj(fields map[string]Value) Value {
	out := make(map[string]Value, len(fields))
	for k, v := range fields {
		out[k] = v.Clone()
	}
	return Value{tag: TagObj, obj: out}
}

// Tag reports the payload currently held.
func (v Value) Tag() Tag { return v.tag }

func (v Value) AsI32() (int32, bool) {
	if v.tag != TagI32 {
		return 0, false
	}
	return v.i32, true
}

func (v Value) AsU32() (uint32, bool) {
	if v.tag != TagU32 {
		return 0, false
	}
	return v.u32, true
}

func (v Value) AsI64() (int64, bool) {
	if v.tag != TagI64 {
		return 0, false
	}
	return v.i64, true
}

func (v Value) AsU64() (uint64, bool) {
	if v.tag != TagU64 {
		return 0, false
	}
	return v.u64, true
}

func (v Value) AsF64() (float64, bool) {
	if v.tag != TagF64 {
		return 0, false
	}
	return v.f64, true
}

func (v Value) AsBool() (bool, bool) {
	if v.tag != TagBool {
		return false, false
	}
	return v.b, true
}

func (v Value) AsStr() (string, bool) {
	if v.tag != TagStr {
		return "", false
	}
	return v.str, true
}

// AsArr returns the element slice. The caller must not mutate it in
// place; use Clone() first if an independent copy is needed.
func (v Value) AsArr() ([]Value, bool) {
	if v.tag != TagArr {
		return nil, false
	}
	return v.arr, true
}

// AsObj returns the field map. The caller must not mutate it in place;
// use Clone() first if an independent copy is needed.
func (v Value) AsObj() (map[string]Value, bool) {
	if v.tag != TagObj {
		return nil, false
	}
	return v.obj, true
}

// IsNull reports whether v holds the null tag.
func (v Value) IsNull() bool { return v.tag == TagNull }

// Clone returns a deep copy: nested arrays and objects are duplicated
// recursively so mutating the clone never affects the original.
func (v Value) Clone() Value {
	switch v.tag {
	case TagArr:
		out := make([]Value, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Clone()
		}
		return Value{tag: TagArr, arr: out}
	case TagObj:
		out := make(map[string]Value, len(v.obj))
		for k, e := range v.obj {
			out[k] = e.Clone()
		}
		return Value{tag: TagObj, obj: out}
	default:
		return v
	}
}

// Equal reports structural equality, including integer width: a TagI32
// and a TagI64 holding the same numeric value are not equal.
func (v Value) Equal(other Value) bool {
	if v.tag != other.tag {
		return false
	}
	switch v.tag {
	case TagI32:
		return v.i32 == other.i32
	case TagU32:
		return v.u32 == other.u32
	case TagI64:
		return v.i64 == other.i64
	case TagU64:
		return v.u64 == other.u64
	case TagF64:
		return v.f64 == other.f64
	case TagBool:
		return v.b == other.b
	case TagStr:
		return v.str == other.str
	case TagNull:
		return true
	case TagArr:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case TagObj:
		if len(v.obj) != len(other.obj) {
			return false
		}
		for k, e := range v.obj {
			oe, ok := other.obj[k]
			if !ok || !e.Equal(oe) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
