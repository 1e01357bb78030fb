package wire

import (
	"bytes"
	"math"
	"reflect"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

// The low-level codecs must agree byte-for-byte with the reference
// implementation.
func TestVarintMatchesProtowire(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 1 << 21, 1 << 42, math.MaxUint64}
	for _, v := range values {
		e := NewEncoder()
		e.EncodeVarint(v)
		want := protowire.AppendVarint(nil, v)
		if !bytes.Equal(e.Bytes(), want) {
			t.Errorf("EncodeVarint(%d) = %x, protowire = %x", v, e.Bytes(), want)
		}
		if VarintSize(v) != protowire.SizeVarint(v) {
			t.Errorf("VarintSize(%d) = %d, protowire = %d", v, VarintSize(v), protowire.SizeVarint(v))
		}
	}
}

func TestKeyMatchesProtowire(t *testing.T) {
	for _, num := range []FieldNumber{1, 15, 16, 100, 2048, MaxFieldNumber} {
		for _, wt := range []WireType{WireVarint, WireFixed64, WireBytes, WireFixed32} {
			e := NewEncoder()
			e.EncodeKey(num, wt)
			want := protowire.AppendTag(nil, protowire.Number(num), protowire.Type(wt))
			if !bytes.Equal(e.Bytes(), want) {
				t.Errorf("EncodeKey(%d, %d) = %x, protowire = %x", num, wt, e.Bytes(), want)
			}
		}
	}
}

func TestZigZagMatchesProtowire(t *testing.T) {
	for _, v := range []int64{0, -1, 1, math.MinInt64, math.MaxInt64, -123456} {
		if got, want := EncodeZigZag64(v), protowire.EncodeZigZag(v); got != want {
			t.Errorf("EncodeZigZag64(%d) = %d, protowire = %d", v, got, want)
		}
		if got, want := DecodeZigZag64(uint64(protowire.EncodeZigZag(v))), v; got != want {
			t.Errorf("DecodeZigZag64 round trip %d -> %d", v, got)
		}
	}
}

func TestFixedMatchesProtowire(t *testing.T) {
	e := NewEncoder()
	e.EncodeFixed32(0xCAFEBABE)
	if want := protowire.AppendFixed32(nil, 0xCAFEBABE); !bytes.Equal(e.Bytes(), want) {
		t.Errorf("EncodeFixed32 = %x, protowire = %x", e.Bytes(), want)
	}

	e = NewEncoder()
	e.EncodeFixed64(0xDEADBEEFCAFEF00D)
	if want := protowire.AppendFixed64(nil, 0xDEADBEEFCAFEF00D); !bytes.Equal(e.Bytes(), want) {
		t.Errorf("EncodeFixed64 = %x, protowire = %x", e.Bytes(), want)
	}
}

func TestBytesMatchesProtowire(t *testing.T) {
	payloads := [][]byte{nil, {}, {0x01}, bytes.Repeat([]byte{0xAB}, 200)}
	for _, p := range payloads {
		e := NewEncoder()
		e.EncodeBytes(p)
		want := protowire.AppendBytes(nil, p)
		if !bytes.Equal(e.Bytes(), want) {
			t.Errorf("EncodeBytes(%d bytes) = %x..., protowire = %x...", len(p), e.Bytes(), want)
		}
	}
}

// A message built field-by-field with protowire must decode through the
// schema decoder, and our encoding of the same data must reproduce
// protowire's bytes.
func TestMessageAgainstProtowire(t *testing.T) {
	reg, msg := newScalarsSchema(t)

	var ref []byte
	ref = protowire.AppendTag(ref, 3, protowire.VarintType) // f_int32
	ref = protowire.AppendVarint(ref, uint64(uint32(4294967254))) // two's complement of -42 in 32 bits
	ref = protowire.AppendTag(ref, 14, protowire.BytesType) // f_string
	ref = protowire.AppendString(ref, "interop")
	ref = protowire.AppendTag(ref, 9, protowire.Fixed32Type) // f_fixed32
	ref = protowire.AppendFixed32(ref, 77)

	decoded, err := DecodeMessage(ref, msg, reg)
	if err != nil {
		t.Fatalf("decode protowire bytes: %v", err)
	}
	want := map[string]interface{}{
		"f_int32":   int32(-42),
		"f_string":  "interop",
		"f_fixed32": uint32(77),
	}
	if !reflect.DeepEqual(decoded, want) {
		t.Errorf("decoded %v, want %v", decoded, want)
	}
}

func TestNegativeInt32MatchesProtowireFraming(t *testing.T) {
	reg, msg := newScalarsSchema(t)

	// negative int32 sign-extends to a 10-byte varint like int64
	encoded, err := EncodeMessage(map[string]interface{}{"f_int32": int32(-1)}, msg, reg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	negative := int64(-1)
	want := protowire.AppendTag(nil, 3, protowire.VarintType)
	want = protowire.AppendVarint(want, uint64(negative))
	if !bytes.Equal(encoded, want) {
		t.Errorf("encoded %x, want %x", encoded, want)
	}
}
