package wire

import (
	"reflect"
	"testing"

	"github.com/tanayagrawal/protoshade/registry"
	"github.com/tanayagrawal/protoshade/schema"
)

func newMapSchema(t *testing.T) (*registry.Registry, *schema.Message) {
	t.Helper()
	stringKey := prim(schema.TypeString)
	int32Key := prim(schema.TypeInt32)
	int64Value := prim(schema.TypeInt64)
	stringValue := prim(schema.TypeString)

	msg := &schema.Message{
		Name: "Catalog",
		Fields: []*schema.Field{
			{Name: "prices", Number: 1, Label: schema.LabelOptional,
				Type: schema.FieldType{Kind: schema.KindMap, MapKey: &stringKey, MapValue: &int64Value}},
			{Name: "labels", Number: 2, Label: schema.LabelOptional,
				Type: schema.FieldType{Kind: schema.KindMap, MapKey: &int32Key, MapValue: &stringValue}},
		},
	}
	reg := registry.NewRegistry()
	if err := reg.RegisterMessage("test", msg); err != nil {
		t.Fatal(err)
	}
	return reg, msg
}

func TestMapRoundTrip(t *testing.T) {
	reg, msg := newMapSchema(t)

	data := map[string]interface{}{
		"prices": map[interface{}]interface{}{
			"apple":  int64(120),
			"banana": int64(50),
		},
		"labels": map[interface{}]interface{}{
			int32(1): "one",
			int32(2): "two",
		},
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

func TestMapEncodeIsDeterministic(t *testing.T) {
	reg, msg := newMapSchema(t)

	data := map[string]interface{}{
		"prices": map[interface{}]interface{}{
			"c": int64(3), "a": int64(1), "b": int64(2), "d": int64(4),
		},
	}
	first, err := EncodeMessage(data, msg, reg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := EncodeMessage(data, msg, reg)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("encode not deterministic: %x vs %x", first, again)
		}
	}
}

func TestMapEntryKnownBytes(t *testing.T) {
	reg, msg := newMapSchema(t)

	encoded, err := EncodeMessage(map[string]interface{}{
		"prices": map[interface{}]interface{}{"ab": int64(7)},
	}, msg, reg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// field 1 LD, entry = {1: "ab", 2: 7}
	want := []byte{
		0x0A, 0x06, // prices entry, 6 bytes
		0x0A, 0x02, 'a', 'b', // key field
		0x10, 0x07, // value field
	}
	if !reflect.DeepEqual(encoded, want) {
		t.Errorf("encoded %x, want %x", encoded, want)
	}
}

func TestMapEntryDefaultsElidedAndRestored(t *testing.T) {
	reg, msg := newMapSchema(t)

	// zero key and zero value both vanish inside the entry
	encoded, err := EncodeMessage(map[string]interface{}{
		"prices": map[interface{}]interface{}{"": int64(0)},
	}, msg, reg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// the entry itself is still framed, as an empty submessage
	want := []byte{0x0A, 0x00}
	if !reflect.DeepEqual(encoded, want) {
		t.Errorf("encoded %x, want %x", encoded, want)
	}

	decoded, err := DecodeMessage(encoded, msg, reg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	prices := decoded["prices"].(map[interface{}]interface{})
	if v, ok := prices[""]; !ok || v != int64(0) {
		t.Errorf("prices = %v, want {\"\": 0}", prices)
	}
}

func TestMapDuplicateKeyLastWins(t *testing.T) {
	reg, msg := newMapSchema(t)

	entry := func(key string, value int64) []byte {
		inner := NewEncoder()
		inner.EncodeKey(1, WireBytes)
		inner.EncodeString(key)
		inner.EncodeKey(2, WireVarint)
		inner.EncodeVarint(uint64(value))
		return inner.Bytes()
	}

	e := NewEncoder()
	e.EncodeKey(1, WireBytes)
	e.EncodeBytes(entry("k", 1))
	e.EncodeKey(1, WireBytes)
	e.EncodeBytes(entry("k", 2))

	decoded, err := DecodeMessage(e.Bytes(), msg, reg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	prices := decoded["prices"].(map[interface{}]interface{})
	if prices["k"] != int64(2) {
		t.Errorf("prices[k] = %v, want 2 (last occurrence)", prices["k"])
	}
}

func TestTypedMapAccepted(t *testing.T) {
	reg, msg := newMapSchema(t)

	encoded, err := EncodeMessage(map[string]interface{}{
		"prices": map[string]int64{"x": 9},
	}, msg, reg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeMessage(encoded, msg, reg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	prices := decoded["prices"].(map[interface{}]interface{})
	if prices["x"] != int64(9) {
		t.Errorf("prices = %v, want {x: 9}", prices)
	}
}
