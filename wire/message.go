package wire

import (
	"fmt"
	"sort"

	"github.com/tanayagrawal/protoshade/schema"
)

// MessageEncoder handles schema-driven message encoding
type MessageEncoder struct {
	encoder *Encoder
}

// MessageDecoder handles schema-driven message decoding
type MessageDecoder struct {
	decoder *Decoder
}

// NewMessageEncoder creates a new message encoder
func NewMessageEncoder(e *Encoder) *MessageEncoder {
	return &MessageEncoder{encoder: e}
}

// NewMessageDecoder creates a new message decoder
func NewMessageDecoder(d *Decoder) *MessageDecoder {
	return &MessageDecoder{decoder: d}
}

// DecodeMessage decodes the remaining buffer as one message of the given
// schema.
func (md *MessageDecoder) DecodeMessage(msg *schema.Message) (map[string]interface{}, error) {
	return md.decoder.DecodeWithSchema(msg)
}

// EncodeMessage encodes the data map against the message schema. Fields are
// written in ascending field number order so equal inputs always produce
// identical bytes. Singular fields holding their default value are skipped;
// a message whose fields are all defaults encodes to zero bytes.
func (me *MessageEncoder) EncodeMessage(data map[string]interface{}, msg *schema.Message) error {
	type fieldEntry struct {
		number int32
		field  *schema.Field
		oneof  *schema.Oneof
		value  interface{}
	}

	entries := make([]fieldEntry, 0, len(data))
	for name, value := range data {
		if field := msg.FieldByName(name); field != nil {
			if msg.OneofByFieldNumber(field.Number) != nil {
				return fmt.Errorf("field %s belongs to a oneof; set the oneof by group name", name)
			}
			entries = append(entries, fieldEntry{number: field.Number, field: field, value: value})
			continue
		}
		if oneof := oneofByName(msg, name); oneof != nil {
			variant, err := asVariant(value)
			if err != nil {
				return wrapWithField(err, name)
			}
			if variant == nil || variant.Case == "" || variant.Case == oneof.DefaultCase {
				// The default case is the group's zero value: no bytes at all.
				continue
			}
			field := oneof.FieldByCase(variant.Case)
			if field == nil {
				return wrapWithField(fmt.Errorf("unknown oneof case %q", variant.Case), name)
			}
			entries = append(entries, fieldEntry{number: field.Number, field: field, oneof: oneof, value: variant.Value})
			continue
		}
		return fmt.Errorf("unknown field %s in message %s", name, msg.Name)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].number < entries[j].number
	})

	for _, entry := range entries {
		if entry.oneof != nil {
			if err := me.encodeOneofVariant(entry.field, entry.value); err != nil {
				return wrapWithField(err, entry.field.Name)
			}
			continue
		}
		if err := me.encodeField(entry.field, entry.value); err != nil {
			return wrapWithField(err, entry.field.Name)
		}
	}

	// Required fields must be present even when holding a default value
	// would otherwise elide them.
	for _, field := range msg.Fields {
		if field.Label != schema.LabelRequired {
			continue
		}
		if _, ok := data[field.Name]; !ok {
			return wrapWithField(ErrMissingRequiredField, field.Name)
		}
	}

	return nil
}

// encodeField encodes a single non-oneof field, applying default elision for
// singular fields and empty-collection elision for repeated, map and set
// fields.
func (me *MessageEncoder) encodeField(field *schema.Field, value interface{}) error {
	e := me.encoder

	switch {
	case field.Type.Kind == schema.KindMap:
		return me.encodeMapField(field, value)

	case field.Type.Kind == schema.KindSet:
		return me.encodeSetField(field, value)

	case field.Label == schema.LabelRepeated:
		return me.encodeRepeatedField(field, value)

	case field.Type.Kind == schema.KindMessage:
		if value == nil && field.Label != schema.LabelRequired {
			return nil
		}
		e.EncodeKey(FieldNumber(field.Number), WireBytes)
		return e.encodeNestedMessage(field.Type.MessageType, value)

	case field.Type.Kind == schema.KindEnum:
		number, err := e.enumNumber(field.Type.EnumType, value)
		if err != nil {
			return err
		}
		if number == 0 && field.Label != schema.LabelRequired {
			// First declared enum value is the default; elided like any zero.
			return nil
		}
		e.EncodeKey(FieldNumber(field.Number), WireVarint)
		e.EncodeVarint(uint64(uint32(number)))
		return nil

	default:
		// Required fields are written even at their default value so the
		// peer sees them as present.
		if isDefaultValue(value) && field.Label != schema.LabelRequired {
			return nil
		}
		e.EncodeKey(FieldNumber(field.Number), WireTypeForPrimitive(field.Type.PrimitiveType))
		return e.encodePrimitiveValue(field.Type.PrimitiveType, value)
	}
}

// encodeNestedMessage writes one length-delimited message frame. The value
// may be a decoded map or pre-encoded raw bytes.
func (e *Encoder) encodeNestedMessage(messageType string, value interface{}) error {
	switch v := value.(type) {
	case []byte:
		// Already-encoded message body, framed as-is.
		e.EncodeBytes(v)
		return nil

	case map[string]interface{}:
		if e.registry == nil {
			return fmt.Errorf("cannot encode message %s: no registry available", messageType)
		}
		msg, err := e.registry.GetMessage(messageType)
		if err != nil {
			return fmt.Errorf("cannot encode message %s: %w", messageType, err)
		}
		nested := NewEncoderWithRegistry(e.registry)
		if err := NewMessageEncoder(nested).EncodeMessage(v, msg); err != nil {
			return err
		}
		e.EncodeBytes(nested.Bytes())
		return nil

	case nil:
		// Present but empty message: a zero-length frame.
		e.EncodeVarint(0)
		return nil

	default:
		return fmt.Errorf("expected map or []byte for message %s, got %T", messageType, value)
	}
}

// enumNumber resolves an enum value (name string or numeric discriminant) to
// its wire number.
func (e *Encoder) enumNumber(enumType string, value interface{}) (int32, error) {
	switch v := value.(type) {
	case string:
		if e.registry == nil {
			return 0, fmt.Errorf("cannot resolve enum %s value %q: no registry available", enumType, v)
		}
		enum, err := e.registry.GetEnum(enumType)
		if err != nil {
			return 0, err
		}
		ev := enum.ValueByName(v)
		if ev == nil {
			return 0, fmt.Errorf("enum %s value %q: %w", enumType, v, ErrInvalidEnumValue)
		}
		return ev.Number, nil
	case int32:
		return v, nil
	case int:
		return int32(v), nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("expected enum name or number for %s, got %T", enumType, value)
	}
}

// oneofByName finds a oneof group by its group name.
func oneofByName(msg *schema.Message, name string) *schema.Oneof {
	for _, o := range msg.OneofGroups {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// asVariant normalizes a oneof value to *Variant.
func asVariant(value interface{}) (*Variant, error) {
	switch v := value.(type) {
	case Variant:
		return &v, nil
	case *Variant:
		return v, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("expected wire.Variant for oneof, got %T", value)
	}
}
