package wire

import (
	"errors"
	"fmt"

	"github.com/tanayagrawal/protoshade/schema"
)

// encodeRepeatedField encodes a repeated field. Numeric element types use
// packed encoding: a single key, then one length-delimited run holding every
// element back to back. Strings, bytes and messages are written one key per
// element. An empty list produces no bytes.
func (me *MessageEncoder) encodeRepeatedField(field *schema.Field, value interface{}) error {
	elements, err := toInterfaceSlice(value)
	if err != nil {
		return err
	}
	if len(elements) == 0 {
		return nil
	}

	if field.Type.IsPacked() {
		return me.encodePackedRun(field, elements)
	}
	return me.encodeUnpackedElements(field, elements)
}

// encodePackedRun writes key + length + concatenated element payloads.
func (me *MessageEncoder) encodePackedRun(field *schema.Field, elements []interface{}) error {
	e := me.encoder

	run := NewEncoderWithRegistry(e.registry)
	for _, element := range elements {
		if err := run.encodePackedElement(&field.Type, element); err != nil {
			return err
		}
	}

	e.EncodeKey(FieldNumber(field.Number), WireBytes)
	e.EncodeBytes(run.Bytes())
	return nil
}

// encodePackedElement writes one element's payload bytes without a key.
func (e *Encoder) encodePackedElement(fieldType *schema.FieldType, element interface{}) error {
	switch fieldType.Kind {
	case schema.KindPrimitive:
		return e.encodePrimitiveValue(fieldType.PrimitiveType, element)
	case schema.KindEnum:
		number, err := e.enumNumber(fieldType.EnumType, element)
		if err != nil {
			return err
		}
		e.EncodeVarint(uint64(uint32(number)))
		return nil
	default:
		return fmt.Errorf("field kind %s cannot be packed", fieldType.Kind)
	}
}

// encodeUnpackedElements writes one key+value pair per element.
func (me *MessageEncoder) encodeUnpackedElements(field *schema.Field, elements []interface{}) error {
	e := me.encoder
	wireType := WireTypeFor(&field.Type)

	for _, element := range elements {
		e.EncodeKey(FieldNumber(field.Number), wireType)
		switch field.Type.Kind {
		case schema.KindPrimitive:
			if err := e.encodePrimitiveValue(field.Type.PrimitiveType, element); err != nil {
				return err
			}
		case schema.KindMessage:
			if err := e.encodeNestedMessage(field.Type.MessageType, element); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported repeated element kind: %s", field.Type.Kind)
		}
	}
	return nil
}

// mergeRepeatedField decodes one occurrence of a repeated field's tag and
// appends the decoded element(s) to list. Packed-eligible fields accept both
// representations regardless of how this encoder would have written them: a
// length-delimited key is treated as a packed run, the element's native wire
// type as a single element.
func (d *Decoder) mergeRepeatedField(field *schema.Field, wireType WireType, list []interface{}, ctx DecodeContext) ([]interface{}, error) {
	if field.Type.IsPacked() && wireType == WireBytes {
		return d.decodePackedRun(&field.Type, list)
	}

	element, err := d.decodeSingular(&field.Type, wireType, ctx)
	if err != nil {
		return nil, err
	}
	return append(list, element), nil
}

// decodePackedRun decodes a length-delimited run of packed elements. The run
// must contain a whole number of elements; leftover bytes that cannot form
// one more element fail the decode.
func (d *Decoder) decodePackedRun(fieldType *schema.FieldType, list []interface{}) ([]interface{}, error) {
	bd := NewBytesDecoder(d)
	raw, err := bd.DecodeRawBytes()
	if err != nil {
		return nil, err
	}

	sub := d.subDecoder(raw)
	for sub.pos < len(sub.buf) {
		var element interface{}
		switch fieldType.Kind {
		case schema.KindPrimitive:
			element, err = sub.decodePrimitiveValue(fieldType.PrimitiveType)
		case schema.KindEnum:
			element, err = sub.decodeEnum(fieldType.EnumType, WireVarint)
		default:
			return nil, fmt.Errorf("field kind %s cannot be packed", fieldType.Kind)
		}
		if err != nil {
			if errors.Is(err, ErrUnexpectedEOF) {
				return nil, fmt.Errorf("packed run ends mid-element: %w", ErrTrailingBytes)
			}
			return nil, err
		}
		list = append(list, element)
	}
	return list, nil
}
