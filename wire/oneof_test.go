package wire

import (
	"reflect"
	"testing"

	"github.com/tanayagrawal/protoshade/registry"
	"github.com/tanayagrawal/protoshade/schema"
)

// newOneofSchema builds a message with a payload oneof: a designated default
// case (a unit message), a scalar case, and a message case.
func newOneofSchema(t *testing.T) (*registry.Registry, *schema.Message) {
	t.Helper()
	reg := registry.NewRegistry()

	none := &schema.Message{Name: "None"}
	detail := &schema.Message{
		Name: "Detail",
		Fields: []*schema.Field{
			{Name: "text", Number: 1, Label: schema.LabelOptional, Type: prim(schema.TypeString)},
		},
	}
	msg := &schema.Message{
		Name: "Event",
		Fields: []*schema.Field{
			{Name: "id", Number: 1, Label: schema.LabelOptional, Type: prim(schema.TypeUint32)},
		},
		OneofGroups: []*schema.Oneof{
			{
				Name:        "payload",
				DefaultCase: "none",
				Fields: []*schema.Field{
					{Name: "none", Number: 2, Label: schema.LabelOptional,
						Type: schema.FieldType{Kind: schema.KindMessage, MessageType: "None"}},
					{Name: "count", Number: 3, Label: schema.LabelOptional, Type: prim(schema.TypeInt64)},
					{Name: "detail", Number: 4, Label: schema.LabelOptional,
						Type: schema.FieldType{Kind: schema.KindMessage, MessageType: "Detail"}},
				},
			},
		},
	}
	for _, m := range []*schema.Message{none, detail, msg} {
		if err := reg.RegisterMessage("test", m); err != nil {
			t.Fatal(err)
		}
	}
	return reg, msg
}

func TestOneofScalarVariantRoundTrip(t *testing.T) {
	reg, msg := newOneofSchema(t)

	data := map[string]interface{}{
		"id":      uint32(9),
		"payload": Variant{Case: "count", Value: int64(5)},
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

func TestOneofMessageVariantRoundTrip(t *testing.T) {
	reg, msg := newOneofSchema(t)

	data := map[string]interface{}{
		"payload": Variant{Case: "detail", Value: map[string]interface{}{"text": "hi"}},
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

func TestOneofDefaultCaseEncodesToNothing(t *testing.T) {
	reg, msg := newOneofSchema(t)

	encoded, err := EncodeMessage(map[string]interface{}{
		"payload": Variant{Case: "none"},
	}, msg, reg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(encoded) != 0 {
		t.Errorf("default case encoded to %x, want empty", encoded)
	}
}

func TestOneofUnitVariantFramesEmptySubmessage(t *testing.T) {
	reg := registry.NewRegistry()
	unit := &schema.Message{Name: "Ping"}
	msg := &schema.Message{
		Name: "Packet",
		OneofGroups: []*schema.Oneof{
			{
				Name: "kind",
				Fields: []*schema.Field{
					{Name: "ping", Number: 1, Label: schema.LabelOptional,
						Type: schema.FieldType{Kind: schema.KindMessage, MessageType: "Ping"}},
				},
			},
		},
	}
	for _, m := range []*schema.Message{unit, msg} {
		if err := reg.RegisterMessage("test", m); err != nil {
			t.Fatal(err)
		}
	}

	data := map[string]interface{}{"kind": Variant{Case: "ping"}}
	encoded, err := EncodeMessage(data, msg, reg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// key + zero-length frame: presence on the wire with no payload
	want := []byte{0x0A, 0x00}
	if !reflect.DeepEqual(encoded, want) {
		t.Errorf("encoded %x, want %x", encoded, want)
	}

	decoded, err := DecodeMessage(encoded, msg, reg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(data, decoded) {
		t.Errorf("round trip mismatch:\n in:  %v\n out: %v", data, decoded)
	}
}

func TestOneofLastWinsAcrossVariants(t *testing.T) {
	reg, msg := newOneofSchema(t)

	// count=5 then detail{} on the wire: the later variant replaces the
	// earlier one even though the tags differ.
	e := NewEncoder()
	e.EncodeKey(3, WireVarint)
	e.EncodeVarint(5)
	e.EncodeKey(4, WireBytes)
	inner := NewEncoder()
	inner.EncodeKey(1, WireBytes)
	inner.EncodeString("late")
	e.EncodeBytes(inner.Bytes())

	decoded, err := DecodeMessage(e.Bytes(), msg, reg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := Variant{Case: "detail", Value: map[string]interface{}{"text": "late"}}
	if !reflect.DeepEqual(decoded["payload"], want) {
		t.Errorf("payload = %v, want %v", decoded["payload"], want)
	}
}

func TestOneofPrimitiveVariantKeepsPresenceAtDefault(t *testing.T) {
	reg, msg := newOneofSchema(t)

	// a selected scalar variant at its zero value still hits the wire
	data := map[string]interface{}{"payload": Variant{Case: "count", Value: int64(0)}}
	encoded, err := EncodeMessage(data, msg, reg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(encoded) == 0 {
		t.Fatal("selected variant with zero payload encoded to nothing")
	}
	decoded, err := DecodeMessage(encoded, msg, reg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(data, decoded) {
		t.Errorf("round trip mismatch:\n in:  %v\n out: %v", data, decoded)
	}
}
