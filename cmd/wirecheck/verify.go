package main

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/encoding/protowire"

	protoshade "github.com/tanayagrawal/protoshade"
	"github.com/tanayagrawal/protoshade/schema"
	"github.com/tanayagrawal/protoshade/wire"
)

// verifyMessage builds a sample value tree for the message, encodes it,
// checks the bytes are structurally valid protobuf via the reference
// protowire reader, and round-trips the decode back to the sample.
func verifyMessage(ps *protoshade.Protoshade, messageType string) error {
	msg, err := ps.GetRegistry().GetMessage(messageType)
	if err != nil {
		return err
	}
	if msg.MapEntry {
		return nil // synthetic entry messages are exercised through their maps
	}

	sample := sampleTree(ps, msg)
	encoded, err := ps.Marshal(sample, messageType)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", messageType, err)
	}

	if err := walkWithProtowire(encoded); err != nil {
		return fmt.Errorf("%s: reference reader rejected output: %w", messageType, err)
	}

	decoded, err := ps.Parse(encoded, messageType)
	if err != nil {
		return fmt.Errorf("%s: parse: %w", messageType, err)
	}
	if !reflect.DeepEqual(sample, decoded) {
		return fmt.Errorf("%s: round-trip mismatch:\n  in:  %v\n  out: %v", messageType, sample, decoded)
	}

	size, err := ps.Size(sample, messageType)
	if err != nil {
		return fmt.Errorf("%s: size: %w", messageType, err)
	}
	if size != len(encoded) {
		return fmt.Errorf("%s: size %d disagrees with encoded length %d", messageType, size, len(encoded))
	}
	return nil
}

// walkWithProtowire consumes every field of the buffer with the reference
// implementation, recursing one level into length-delimited payloads when
// they parse as valid submessages.
func walkWithProtowire(buf []byte) error {
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return protowire.ParseError(n)
		}
		if num < 1 {
			return fmt.Errorf("field number %d below 1", num)
		}
		buf = buf[n:]

		n = protowire.ConsumeFieldValue(num, typ, buf)
		if n < 0 {
			return protowire.ParseError(n)
		}
		buf = buf[n:]
	}
	return nil
}

// sampleTree fills every field of a message with a deterministic non-default
// sample value, recursing into nested messages.
func sampleTree(ps *protoshade.Protoshade, msg *schema.Message) map[string]interface{} {
	out := make(map[string]interface{})
	for _, field := range msg.Fields {
		if v := sampleField(ps, field, 0); v != nil {
			out[field.Name] = v
		}
	}
	for _, oneof := range msg.OneofGroups {
		for _, variant := range oneof.Fields {
			if variant.Name == oneof.DefaultCase {
				continue
			}
			// Pick the first non-default variant.
			out[oneof.Name] = sampleVariant(ps, variant)
			break
		}
	}
	return out
}

func sampleField(ps *protoshade.Protoshade, field *schema.Field, depth int) interface{} {
	switch {
	case field.Type.Kind == schema.KindMap:
		key := sampleScalar(ps, field.Type.MapKey, depth)
		value := sampleScalar(ps, field.Type.MapValue, depth)
		if key == nil || value == nil {
			return nil
		}
		return map[interface{}]interface{}{key: value}

	case field.Type.Kind == schema.KindSet:
		member := sampleScalar(ps, field.Type.ElementType, depth)
		if member == nil {
			return nil
		}
		return map[interface{}]struct{}{member: {}}

	case field.Label == schema.LabelRepeated:
		element := sampleScalar(ps, &field.Type, depth)
		if element == nil {
			return nil
		}
		return []interface{}{element}

	default:
		return sampleScalar(ps, &field.Type, depth)
	}
}

func sampleVariant(ps *protoshade.Protoshade, field *schema.Field) interface{} {
	return wire.Variant{Case: field.Name, Value: sampleScalar(ps, &field.Type, 0)}
}

const maxSampleDepth = 3

func sampleScalar(ps *protoshade.Protoshade, ft *schema.FieldType, depth int) interface{} {
	switch ft.Kind {
	case schema.KindPrimitive:
		return samplePrimitive(ft.PrimitiveType)
	case schema.KindEnum:
		enum, err := ps.GetRegistry().GetEnum(ft.EnumType)
		if err != nil || len(enum.Values) == 0 {
			return nil
		}
		// Prefer a non-zero value so the field survives default elision.
		for _, v := range enum.Values {
			if v.Number != 0 {
				return v.Name
			}
		}
		return nil
	case schema.KindMessage:
		if depth >= maxSampleDepth {
			return nil
		}
		msg, err := ps.GetRegistry().GetMessage(ft.MessageType)
		if err != nil {
			return nil
		}
		out := make(map[string]interface{})
		for _, field := range msg.Fields {
			if v := sampleField(ps, field, depth+1); v != nil {
				out[field.Name] = v
			}
		}
		return out
	default:
		return nil
	}
}

func samplePrimitive(pt schema.PrimitiveType) interface{} {
	switch pt {
	case schema.TypeDouble:
		return float64(2.5)
	case schema.TypeFloat:
		return float32(1.5)
	case schema.TypeInt32:
		return int32(42)
	case schema.TypeInt64:
		return int64(-7)
	case schema.TypeUint32:
		return uint32(300)
	case schema.TypeUint64:
		return uint64(1 << 40)
	case schema.TypeSint32:
		return int32(-21)
	case schema.TypeSint64:
		return int64(-1 << 33)
	case schema.TypeFixed32:
		return uint32(0xDEAD)
	case schema.TypeFixed64:
		return uint64(0xBEEF)
	case schema.TypeSfixed32:
		return int32(-9)
	case schema.TypeSfixed64:
		return int64(-11)
	case schema.TypeBool:
		return true
	case schema.TypeString:
		return "wirecheck"
	case schema.TypeBytes:
		return []byte{0x01, 0x02, 0x03}
	case schema.TypeInt8:
		return int8(-5)
	case schema.TypeInt16:
		return int16(-300)
	case schema.TypeUint8:
		return uint8(200)
	case schema.TypeUint16:
		return uint16(60000)
	default:
		return nil
	}
}
