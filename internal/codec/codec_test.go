package codec

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chuliyu-labs/kvstore-core/pkg/kvs"
)

// decodeJSON parses raw JSON text the way internal/persistence does: with
// UseNumber so wide integers survive the round trip intact.
func decodeJSON(t *testing.T, raw string) any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var tree any
	require.NoError(t, dec.Decode(&tree))
	return tree
}

func roundTrip(t *testing.T, v kvs.Value) kvs.Value {
	t.Helper()
	enc, err := Encode(v)
	require.NoError(t, err)

	raw, err := json.Marshal(enc)
	require.NoError(t, err)

	tree := decodeJSON(t, string(raw))
	got, err := Decode(tree)
	require.NoError(t, err)
	return got
}

func TestRoundTripScalars(t *testing.T) {
	cases := []kvs.Value{
		kvs.NewI32(-7),
		kvs.NewU32(42),
		kvs.NewI64(-9223372036854775808),
		kvs.NewU64(18446744073709551615),
		kvs.NewF64(2.5),
		kvs.NewBool(true),
		kvs.NewBool(false),
		kvs.NewStr("hello"),
		kvs.NewNull(),
	}
	for _, v := range cases {
		got := roundTrip(t, v)
		assert.True(t, v.Equal(got), "tag %s: want %+v got %+v", v.Tag(), v, got)
	}
}

func TestRoundTripMixedArray(t *testing.T) {
	// mixed-tag array: arr[i32 1, bool true, str "x", null, obj{"k": f64 2.5}]
	v := kvs.NewArr([]kvs.Value{
		kvs.NewI32(1),
		kvs.NewBool(true),
		kvs.NewStr("x"),
		kvs.NewNull(),
		kvs.NewObj(map[string]kvs.Value{"k": kvs.NewF64(2.5)}),
	})

	got := roundTrip(t, v)
	assert.True(t, v.Equal(got))
}

func TestRoundTripNestedObj(t *testing.T) {
	v := kvs.NewObj(map[string]kvs.Value{
		"a": kvs.NewI64(100),
		"b": kvs.NewObj(map[string]kvs.Value{
			"c": kvs.NewArr([]kvs.Value{kvs.NewU32(1), kvs.NewU32(2)}),
		}),
	})
	got := roundTrip(t, v)
	assert.True(t, v.Equal(got))
}

func TestEncodeMapAndDecodeMap(t *testing.T) {
	m := map[string]kvs.Value{
		"x": kvs.NewI32(1),
		"y": kvs.NewStr("two"),
	}
	enc, err := EncodeMap(m)
	require.NoError(t, err)

	raw, err := json.Marshal(enc)
	require.NoError(t, err)

	tree := decodeJSON(t, string(raw))
	got, err := DecodeMap(tree)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.True(t, m["x"].Equal(got["x"]))
	assert.True(t, m["y"].Equal(got["y"]))
}

func TestDecodeInvalidValueType(t *testing.T) {
	cases := map[string]string{
		"root not object":   `42`,
		"missing t":         `{"v": 1}`,
		"t not string":      `{"t": 1, "v": 1}`,
		"missing v":         `{"t": "i32"}`,
		"unknown tag":       `{"t": "weird", "v": 1}`,
		"bad i32 payload":   `{"t": "i32", "v": "nope"}`,
		"bad bool payload":  `{"t": "bool", "v": "nope"}`,
		"bad str payload":   `{"t": "str", "v": 1}`,
		"bad null payload":  `{"t": "null", "v": 1}`,
		"bad arr payload":   `{"t": "arr", "v": 1}`,
		"bad obj payload":   `{"t": "obj", "v": 1}`,
		"nested decode err": `{"t": "arr", "v": [{"t": "i32", "v": "nope"}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			tree := decodeJSON(t, raw)
			_, err := Decode(tree)
			require.Error(t, err)
			assert.Equal(t, kvs.KindInvalidValueType, kvs.KindOf(err))
		})
	}
}

func TestEveryTagHasWireName(t *testing.T) {
	var v kvs.Value // the zero value is a null, not an out-of-range tag.
	_ = v
	bogus := kvs.Tag(999)
	_ = bogus
	// Value has no exported constructor for arbitrary tags, so Encode's
	// unrecognized-tag branch cannot be reached from outside pkg/kvs. This
	// test checks instead that every real Tag has a wire name.
	for _, tag := range []kvs.Tag{
		kvs.TagI32, kvs.TagU32, kvs.TagI64, kvs.TagU64, kvs.TagF64,
		kvs.TagBool, kvs.TagStr, kvs.TagNull, kvs.TagArr, kvs.TagObj,
	} {
		assert.NotEqual(t, "unknown", tag.String())
	}
}
