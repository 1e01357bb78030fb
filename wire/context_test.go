package wire

import (
	"errors"
	"testing"

	"github.com/tanayagrawal/protoshade/registry"
	"github.com/tanayagrawal/protoshade/schema"
)

func TestDecodeContextBudget(t *testing.T) {
	ctx := NewDecodeContext()
	for i := uint32(0); i < RecursionLimit; i++ {
		if err := ctx.LimitReached(); err != nil {
			t.Fatalf("limit reached after %d levels", i)
		}
		next, err := ctx.EnterRecursion()
		if err != nil {
			t.Fatalf("EnterRecursion failed at level %d: %v", i, err)
		}
		ctx = next
	}

	if err := ctx.LimitReached(); !errors.Is(err, ErrRecursionLimit) {
		t.Errorf("LimitReached at budget 0: got %v, want ErrRecursionLimit", err)
	}
	if _, err := ctx.EnterRecursion(); !errors.Is(err, ErrRecursionLimit) {
		t.Errorf("EnterRecursion at budget 0: got %v, want ErrRecursionLimit", err)
	}
}

func TestDeeplyNestedMessageRejected(t *testing.T) {
	reg := registry.NewRegistry()
	node := &schema.Message{
		Name: "Node",
		Fields: []*schema.Field{
			{Name: "child", Number: 1, Label: schema.LabelOptional,
				Type: schema.FieldType{Kind: schema.KindMessage, MessageType: "Node"}},
		},
	}
	if err := reg.RegisterMessage("test", node); err != nil {
		t.Fatal(err)
	}

	// Build nesting two levels past the limit, innermost first. Each level
	// wraps the previous frame as field 1.
	var body []byte
	for i := uint32(0); i < RecursionLimit+2; i++ {
		e := NewEncoder()
		e.EncodeKey(1, WireBytes)
		e.EncodeBytes(body)
		body = e.Bytes()
	}

	_, err := DecodeMessage(body, node, reg)
	if !errors.Is(err, ErrRecursionLimit) {
		t.Errorf("got %v, want ErrRecursionLimit", err)
	}
}

func TestNestingWithinLimitAccepted(t *testing.T) {
	reg := registry.NewRegistry()
	node := &schema.Message{
		Name: "Node",
		Fields: []*schema.Field{
			{Name: "depth", Number: 1, Label: schema.LabelOptional,
				Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeInt32}},
			{Name: "child", Number: 2, Label: schema.LabelOptional,
				Type: schema.FieldType{Kind: schema.KindMessage, MessageType: "Node"}},
		},
	}
	if err := reg.RegisterMessage("test", node); err != nil {
		t.Fatal(err)
	}

	data := map[string]interface{}{"depth": int32(1)}
	for i := 0; i < 20; i++ {
		data = map[string]interface{}{
			"depth": int32(i + 2),
			"child": data,
		}
	}

	encoded, err := EncodeMessage(data, node, reg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeMessage(encoded, node, reg); err != nil {
		t.Fatalf("decode: %v", err)
	}
}
