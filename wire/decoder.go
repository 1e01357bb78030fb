package wire

import (
	"fmt"

	"github.com/tanayagrawal/protoshade/registry"
	"github.com/tanayagrawal/protoshade/schema"
)

// Decoder handles low-level protobuf wire format decoding. A Decoder is
// bound to one buffer; nested length-delimited regions get their own bounded
// sub-decoder so an inner decode can never read past its frame.
type Decoder struct {
	buf      []byte
	pos      int
	registry *registry.Registry
}

// NewDecoder creates a new wire format decoder
func NewDecoder(data []byte) *Decoder {
	return &Decoder{
		buf: data,
		pos: 0,
	}
}

// NewDecoderWithRegistry creates a decoder with schema registry
func NewDecoderWithRegistry(data []byte, registry *registry.Registry) *Decoder {
	return &Decoder{
		buf:      data,
		pos:      0,
		registry: registry,
	}
}

// subDecoder returns a decoder bounded to the given region, sharing the
// parent's registry.
func (d *Decoder) subDecoder(region []byte) *Decoder {
	return &Decoder{buf: region, registry: d.registry}
}

// Remaining returns the number of undecoded bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// DecodeKey decodes a field key: the varint (tag<<3)|wire_type pair. The low
// 3 bits must map to one of the four legal wire types and the field number
// must be at least 1.
func (d *Decoder) DecodeKey() (FieldNumber, WireType, error) {
	tag, err := d.DecodeVarint()
	if err != nil {
		return 0, 0, err
	}

	fieldNumber, wireType := ParseTag(Tag(tag))
	if !wireType.IsValid() {
		return 0, 0, fmt.Errorf("wire type %d: %w", wireType, ErrInvalidWireType)
	}
	if fieldNumber < MinFieldNumber {
		return 0, 0, fmt.Errorf("field number %d: %w", fieldNumber, ErrInvalidFieldNumber)
	}

	return fieldNumber, wireType, nil
}

// DecodeMessage decodes protobuf bytes using schema - main entry point
func DecodeMessage(data []byte, msg *schema.Message, registry *registry.Registry) (map[string]interface{}, error) {
	decoder := NewDecoderWithRegistry(data, registry)
	return decoder.DecodeWithSchema(msg)
}

// DecodeWithSchema decodes the buffer as one message of the given schema.
// It creates the decode context for this top-level call; nested messages
// derive theirs through EnterRecursion.
func (d *Decoder) DecodeWithSchema(msg *schema.Message) (map[string]interface{}, error) {
	return d.decodeMessageFields(msg, NewDecodeContext())
}

// decodeMessageFields runs the merge loop: decode a key, dispatch on the
// field descriptor, repeat until the buffer (or the enclosing frame) is
// exhausted. Unknown tags are skipped for forward compatibility.
func (d *Decoder) decodeMessageFields(msg *schema.Message, ctx DecodeContext) (map[string]interface{}, error) {
	result := make(map[string]interface{})
	mapCollector := make(map[string]map[interface{}]interface{})
	setCollector := make(map[string]map[interface{}]struct{})
	repeatedCollector := make(map[string][]interface{})

	for d.pos < len(d.buf) {
		fieldNumber, wireType, err := d.DecodeKey()
		if err != nil {
			return nil, fmt.Errorf("failed to decode message %s: %w", msg.Name, err)
		}

		field := msg.FieldByNumber(int32(fieldNumber))
		if field == nil {
			// Unknown field - skip it
			if err := d.SkipField(wireType, ctx); err != nil {
				return nil, fmt.Errorf("failed to decode message %s: %w", msg.Name, err)
			}
			continue
		}

		if oneof := msg.OneofByFieldNumber(int32(fieldNumber)); oneof != nil {
			// Any tag belonging to the oneof overwrites whatever variant was
			// decoded before it.
			variant, err := d.decodeOneofVariant(field, wireType, ctx)
			if err != nil {
				return nil, wrapWithField(err, field.Name)
			}
			result[oneof.Name] = variant
			continue
		}

		switch {
		case field.Type.Kind == schema.KindMap:
			if mapCollector[field.Name] == nil {
				mapCollector[field.Name] = make(map[interface{}]interface{})
			}
			key, value, err := d.decodeMapEntryInto(field.Type.MapKey, field.Type.MapValue, ctx)
			if err != nil {
				return nil, wrapWithField(err, field.Name)
			}
			// Duplicate keys: last occurrence wins.
			mapCollector[field.Name][key] = value

		case field.Type.Kind == schema.KindSet:
			if setCollector[field.Name] == nil {
				setCollector[field.Name] = make(map[interface{}]struct{})
			}
			if err := d.mergeSetField(field, wireType, setCollector[field.Name], ctx); err != nil {
				return nil, wrapWithField(err, field.Name)
			}

		case field.Label == schema.LabelRepeated:
			list, err := d.mergeRepeatedField(field, wireType, repeatedCollector[field.Name], ctx)
			if err != nil {
				return nil, wrapWithField(err, field.Name)
			}
			repeatedCollector[field.Name] = list

		default:
			value, err := d.decodeSingular(&field.Type, wireType, ctx)
			if err != nil {
				return nil, wrapWithField(err, field.Name)
			}
			// Non-repeated fields follow last-one-wins.
			result[field.Name] = value
		}
	}

	for fieldName, mapData := range mapCollector {
		result[fieldName] = mapData
	}
	for fieldName, setData := range setCollector {
		result[fieldName] = setData
	}
	for fieldName, repeatedData := range repeatedCollector {
		result[fieldName] = repeatedData
	}

	// Required message fields must have been framed at least once.
	for _, field := range msg.Fields {
		if field.Label != schema.LabelRequired {
			continue
		}
		if _, ok := result[field.Name]; !ok {
			return nil, wrapWithField(ErrMissingRequiredField, field.Name)
		}
	}

	return result, nil
}

// decodeSingular routes a single value to the appropriate decoder based on
// the field type.
func (d *Decoder) decodeSingular(fieldType *schema.FieldType, wireType WireType, ctx DecodeContext) (interface{}, error) {
	switch fieldType.Kind {
	case schema.KindPrimitive:
		return d.decodePrimitive(fieldType.PrimitiveType, wireType)
	case schema.KindMessage:
		return d.decodeNestedMessage(fieldType.MessageType, wireType, ctx)
	case schema.KindEnum:
		return d.decodeEnum(fieldType.EnumType, wireType)
	default:
		return nil, fmt.Errorf("unsupported singular field kind: %s", fieldType.Kind)
	}
}

// decodeNestedMessage consumes one length-delimited frame and decodes it as
// a nested message, entering one recursion level.
func (d *Decoder) decodeNestedMessage(messageType string, wireType WireType, ctx DecodeContext) (interface{}, error) {
	if err := CheckWireType(WireBytes, wireType); err != nil {
		return nil, err
	}
	if err := ctx.LimitReached(); err != nil {
		return nil, err
	}

	bd := NewBytesDecoder(d)
	messageBytes, err := bd.DecodeRawBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to decode message bytes: %w", err)
	}

	if d.registry == nil {
		// No registry available, return raw bytes (copied: the caller owns
		// the result, the decoder does not retain the input buffer).
		out := make([]byte, len(messageBytes))
		copy(out, messageBytes)
		return out, nil
	}

	msg, err := d.registry.GetMessage(messageType)
	if err != nil {
		out := make([]byte, len(messageBytes))
		copy(out, messageBytes)
		return out, nil
	}

	nested, err := ctx.EnterRecursion()
	if err != nil {
		return nil, err
	}
	return d.subDecoder(messageBytes).decodeMessageFields(msg, nested)
}

// decodeEnum decodes a varint discriminant and resolves it to the enum value
// name. An unrecognized discriminant fails the decode.
func (d *Decoder) decodeEnum(enumType string, wireType WireType) (interface{}, error) {
	if err := CheckWireType(WireVarint, wireType); err != nil {
		return nil, err
	}
	raw, err := d.DecodeVarint()
	if err != nil {
		return nil, err
	}
	number := int32(raw)

	if d.registry == nil {
		return number, nil
	}
	enum, err := d.registry.GetEnum(enumType)
	if err != nil {
		return number, nil
	}
	if v := enum.ValueByNumber(number); v != nil {
		return v.Name, nil
	}
	return nil, fmt.Errorf("enum %s number %d: %w", enumType, number, ErrInvalidEnumValue)
}

// SkipField consumes exactly the bytes of one field of the given wire type
// so that subsequent fields remain byte-aligned.
func (d *Decoder) SkipField(wireType WireType, ctx DecodeContext) error {
	if err := ctx.LimitReached(); err != nil {
		return err
	}
	switch wireType {
	case WireVarint:
		vd := NewVarintDecoder(d)
		return vd.SkipVarint()
	case WireFixed64:
		if d.pos+8 > len(d.buf) {
			return fmt.Errorf("not enough data to skip fixed64: %w", ErrUnexpectedEOF)
		}
		d.pos += 8
		return nil
	case WireBytes:
		bd := NewBytesDecoder(d)
		return bd.SkipBytes()
	case WireFixed32:
		if d.pos+4 > len(d.buf) {
			return fmt.Errorf("not enough data to skip fixed32: %w", ErrUnexpectedEOF)
		}
		d.pos += 4
		return nil
	default:
		return fmt.Errorf("wire type %d: %w", wireType, ErrInvalidWireType)
	}
}

// DecodeField decodes a single field from the current position without
// schema information, surfacing the raw value.
func (d *Decoder) DecodeField() (*Value, error) {
	if d.pos >= len(d.buf) {
		return nil, nil
	}

	fieldNumber, wireType, err := d.DecodeKey()
	if err != nil {
		return nil, err
	}

	data, err := d.decodeRawValue(wireType)
	if err != nil {
		return nil, err
	}

	return &Value{
		FieldNumber: fieldNumber,
		WireType:    wireType,
		Data:        data,
	}, nil
}

// decodeRawValue decodes without type information
func (d *Decoder) decodeRawValue(wireType WireType) (interface{}, error) {
	switch wireType {
	case WireVarint:
		return d.DecodeVarint()
	case WireFixed64:
		return d.DecodeFixed64()
	case WireBytes:
		return d.DecodeBytes()
	case WireFixed32:
		return d.DecodeFixed32()
	default:
		return nil, fmt.Errorf("wire type %d: %w", wireType, ErrInvalidWireType)
	}
}
