package wire

import (
	"errors"
	"reflect"
	"testing"

	"github.com/tanayagrawal/protoshade/registry"
	"github.com/tanayagrawal/protoshade/schema"
)

func newRepeatedSchema(t *testing.T) (*registry.Registry, *schema.Message) {
	t.Helper()
	msg := &schema.Message{
		Name: "Sample",
		Fields: []*schema.Field{
			{Name: "id", Number: 1, Label: schema.LabelOptional, Type: prim(schema.TypeInt32)},
			{Name: "values", Number: 2, Label: schema.LabelRepeated, Type: prim(schema.TypeInt32)},
			{Name: "names", Number: 3, Label: schema.LabelRepeated, Type: prim(schema.TypeString)},
			{Name: "floats", Number: 4, Label: schema.LabelRepeated, Type: prim(schema.TypeFloat)},
			{Name: "doubles", Number: 5, Label: schema.LabelRepeated, Type: prim(schema.TypeDouble)},
		},
	}
	reg := registry.NewRegistry()
	if err := reg.RegisterMessage("test", msg); err != nil {
		t.Fatal(err)
	}
	return reg, msg
}

func TestPackedEncodeKnownBytes(t *testing.T) {
	reg, msg := newRepeatedSchema(t)

	data := map[string]interface{}{
		"id":     int32(42),
		"values": []interface{}{int32(1), int32(2), int32(3)},
	}
	encoded, err := EncodeMessage(data, msg, reg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	// field 1 varint 42, then field 2 as one packed run of three varints
	want := []byte{0x08, 0x2A, 0x12, 0x03, 0x01, 0x02, 0x03}
	if !reflect.DeepEqual(encoded, want) {
		t.Errorf("encoded %x, want %x", encoded, want)
	}
}

func TestPackedRoundTrip(t *testing.T) {
	reg, msg := newRepeatedSchema(t)

	data := map[string]interface{}{
		"values":  []interface{}{int32(-1), int32(0), int32(300)},
		"floats":  []interface{}{float32(1.5), float32(-2.5)},
		"doubles": []interface{}{float64(3.25)},
	}
	encoded, err := EncodeMessage(data, msg, reg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeMessage(encoded, msg, reg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(data, decoded) {
		t.Errorf("round trip mismatch:\n in:  %v\n out: %v", data, decoded)
	}
}

func TestUnpackedStringsRoundTrip(t *testing.T) {
	reg, msg := newRepeatedSchema(t)

	data := map[string]interface{}{
		"names": []interface{}{"a", "", "long string value"},
	}
	encoded, err := EncodeMessage(data, msg, reg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeMessage(encoded, msg, reg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(data, decoded) {
		t.Errorf("round trip mismatch:\n in:  %v\n out: %v", data, decoded)
	}
}

// A packed-eligible field must decode from the unpacked representation too,
// and elements from mixed representations append in wire order.
func TestDecodeToleratesBothRepresentations(t *testing.T) {
	reg, msg := newRepeatedSchema(t)

	e := NewEncoder()
	// unpacked element
	e.EncodeKey(2, WireVarint)
	e.EncodeVarint(1)
	// packed run
	e.EncodeKey(2, WireBytes)
	e.EncodeBytes([]byte{0x02, 0x03})
	// another unpacked element
	e.EncodeKey(2, WireVarint)
	e.EncodeVarint(4)

	decoded, err := DecodeMessage(e.Bytes(), msg, reg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []interface{}{int32(1), int32(2), int32(3), int32(4)}
	if !reflect.DeepEqual(decoded["values"], want) {
		t.Errorf("values = %v, want %v", decoded["values"], want)
	}
}

func TestEmptyRepeatedEncodesToNothing(t *testing.T) {
	reg, msg := newRepeatedSchema(t)

	encoded, err := EncodeMessage(map[string]interface{}{
		"values": []interface{}{},
		"names":  []interface{}{},
	}, msg, reg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(encoded) != 0 {
		t.Errorf("empty lists encoded to %x, want empty", encoded)
	}
}

func TestPackedRunWithTrailingBytes(t *testing.T) {
	reg, msg := newRepeatedSchema(t)

	// packed float run of 6 bytes: one full fixed32 plus 2 leftover bytes
	e := NewEncoder()
	e.EncodeKey(4, WireBytes)
	e.EncodeBytes([]byte{0x00, 0x00, 0xC0, 0x3F, 0xAA, 0xBB})

	if _, err := DecodeMessage(e.Bytes(), msg, reg); !errors.Is(err, ErrTrailingBytes) {
		t.Errorf("got %v, want ErrTrailingBytes", err)
	}
}

func TestTypedSliceAccepted(t *testing.T) {
	reg, msg := newRepeatedSchema(t)

	// typed slices (as the shadow projection produces) normalize on encode
	encoded, err := EncodeMessage(map[string]interface{}{
		"values": []int32{10, 20},
	}, msg, reg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeMessage(encoded, msg, reg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []interface{}{int32(10), int32(20)}
	if !reflect.DeepEqual(decoded["values"], want) {
		t.Errorf("values = %v, want %v", decoded["values"], want)
	}
}
