package wire

import (
	"fmt"

	"github.com/tanayagrawal/protoshade/schema"
)

// encodeOneofVariant writes the active variant of a oneof as a plain field
// of the variant's tag. Variants carrying no payload still need presence on
// the wire, so a message variant with a nil payload is written as an empty
// length-delimited frame rather than elided.
func (me *MessageEncoder) encodeOneofVariant(field *schema.Field, value interface{}) error {
	e := me.encoder

	switch field.Type.Kind {
	case schema.KindPrimitive:
		// Presence is carried by the key itself, so the variant is written
		// even when its payload is the default value.
		e.EncodeKey(FieldNumber(field.Number), WireTypeForPrimitive(field.Type.PrimitiveType))
		if value == nil {
			value = defaultPrimitive(field.Type.PrimitiveType)
		}
		return e.encodePrimitiveValue(field.Type.PrimitiveType, value)

	case schema.KindMessage:
		e.EncodeKey(FieldNumber(field.Number), WireBytes)
		return e.encodeNestedMessage(field.Type.MessageType, value)

	case schema.KindEnum:
		discriminant, err := e.enumNumber(field.Type.EnumType, value)
		if err != nil {
			return err
		}
		e.EncodeKey(FieldNumber(field.Number), WireVarint)
		e.EncodeVarint(uint64(uint32(discriminant)))
		return nil

	default:
		return fmt.Errorf("unsupported oneof variant kind: %s", field.Type.Kind)
	}
}

// decodeOneofVariant decodes the payload of one variant tag into a Variant
// value. A message variant whose schema declares no fields decodes with a
// nil payload: the case name alone carries the information.
func (d *Decoder) decodeOneofVariant(field *schema.Field, wireType WireType, ctx DecodeContext) (Variant, error) {
	value, err := d.decodeSingular(&field.Type, wireType, ctx)
	if err != nil {
		return Variant{}, err
	}

	if field.Type.Kind == schema.KindMessage && d.registry != nil {
		if msg, merr := d.registry.GetMessage(field.Type.MessageType); merr == nil && len(msg.Fields) == 0 && len(msg.OneofGroups) == 0 {
			if m, ok := value.(map[string]interface{}); ok && len(m) == 0 {
				value = nil
			}
		}
	}

	return Variant{Case: field.Name, Value: value}, nil
}

// defaultPrimitive returns the zero value used when a primitive oneof
// variant is selected without an explicit payload.
func defaultPrimitive(primType schema.PrimitiveType) interface{} {
	switch primType {
	case schema.TypeString:
		return ""
	case schema.TypeBytes:
		return []byte{}
	case schema.TypeBool:
		return false
	case schema.TypeFloat:
		return float32(0)
	case schema.TypeDouble:
		return float64(0)
	case schema.TypeInt32, schema.TypeSint32, schema.TypeSfixed32:
		return int32(0)
	case schema.TypeInt64, schema.TypeSint64, schema.TypeSfixed64:
		return int64(0)
	case schema.TypeUint32, schema.TypeFixed32:
		return uint32(0)
	case schema.TypeUint64, schema.TypeFixed64:
		return uint64(0)
	case schema.TypeInt8:
		return int8(0)
	case schema.TypeInt16:
		return int16(0)
	case schema.TypeUint8:
		return uint8(0)
	case schema.TypeUint16:
		return uint16(0)
	default:
		return nil
	}
}
