package wire

import (
	"fmt"

	"github.com/tanayagrawal/protoshade/registry"
	"github.com/tanayagrawal/protoshade/schema"
)

// MessageSize returns the exact number of bytes EncodeMessage would produce
// for the data, without encoding. Sizing applies the same elision rules as
// encoding, so a size of zero means the encode would be empty too.
func MessageSize(data map[string]interface{}, msg *schema.Message, reg *registry.Registry) (int, error) {
	return messageSize(data, msg, reg)
}

func messageSize(data map[string]interface{}, msg *schema.Message, reg *registry.Registry) (int, error) {
	total := 0
	for name, value := range data {
		if field := msg.FieldByName(name); field != nil {
			if msg.OneofByFieldNumber(field.Number) != nil {
				return 0, fmt.Errorf("field %s belongs to a oneof; set the oneof by group name", name)
			}
			n, err := fieldSize(field, value, reg)
			if err != nil {
				return 0, wrapWithField(err, name)
			}
			total += n
			continue
		}
		if oneof := oneofByName(msg, name); oneof != nil {
			n, err := oneofSize(oneof, value, reg)
			if err != nil {
				return 0, wrapWithField(err, name)
			}
			total += n
			continue
		}
		return 0, fmt.Errorf("unknown field %s in message %s", name, msg.Name)
	}

	// Sizing rejects exactly what encoding rejects, so a successful Size
	// guarantees a successful EncodeMessage of the same length.
	for _, field := range msg.Fields {
		if field.Label != schema.LabelRequired {
			continue
		}
		if _, ok := data[field.Name]; !ok {
			return 0, wrapWithField(ErrMissingRequiredField, field.Name)
		}
	}
	return total, nil
}

func fieldSize(field *schema.Field, value interface{}, reg *registry.Registry) (int, error) {
	switch {
	case field.Type.Kind == schema.KindMap:
		return mapFieldSize(field, value, reg)

	case field.Type.Kind == schema.KindSet:
		return setFieldSize(field, value, reg)

	case field.Label == schema.LabelRepeated:
		return repeatedFieldSize(field, value, reg)

	case field.Type.Kind == schema.KindMessage:
		if value == nil && field.Label != schema.LabelRequired {
			return 0, nil
		}
		n, err := nestedMessageSize(field.Type.MessageType, value, reg)
		if err != nil {
			return 0, err
		}
		return KeySize(FieldNumber(field.Number)) + n, nil

	case field.Type.Kind == schema.KindEnum:
		discriminant, err := enumNumberFor(field.Type.EnumType, value, reg)
		if err != nil {
			return 0, err
		}
		if discriminant == 0 && field.Label != schema.LabelRequired {
			return 0, nil
		}
		return KeySize(FieldNumber(field.Number)) + VarintSize(uint64(uint32(discriminant))), nil

	default:
		if isDefaultValue(value) && field.Label != schema.LabelRequired {
			return 0, nil
		}
		n, err := primitiveValueSize(field.Type.PrimitiveType, value)
		if err != nil {
			return 0, err
		}
		return KeySize(FieldNumber(field.Number)) + n, nil
	}
}

// nestedMessageSize returns the framed size of one message field value: the
// length prefix plus the body.
func nestedMessageSize(messageType string, value interface{}, reg *registry.Registry) (int, error) {
	switch v := value.(type) {
	case []byte:
		return BytesSize(v), nil
	case map[string]interface{}:
		if reg == nil {
			return 0, fmt.Errorf("cannot size message %s: no registry available", messageType)
		}
		msg, err := reg.GetMessage(messageType)
		if err != nil {
			return 0, err
		}
		body, err := messageSize(v, msg, reg)
		if err != nil {
			return 0, err
		}
		return VarintSize(uint64(body)) + body, nil
	case nil:
		return 1, nil
	default:
		return 0, fmt.Errorf("expected map or []byte for message %s, got %T", messageType, value)
	}
}

func repeatedFieldSize(field *schema.Field, value interface{}, reg *registry.Registry) (int, error) {
	elements, err := toInterfaceSlice(value)
	if err != nil {
		return 0, err
	}
	if len(elements) == 0 {
		return 0, nil
	}

	if field.Type.IsPacked() {
		run := 0
		for _, element := range elements {
			n, err := packedElementSize(&field.Type, element, reg)
			if err != nil {
				return 0, err
			}
			run += n
		}
		return KeySize(FieldNumber(field.Number)) + VarintSize(uint64(run)) + run, nil
	}

	total := 0
	for _, element := range elements {
		total += KeySize(FieldNumber(field.Number))
		switch field.Type.Kind {
		case schema.KindPrimitive:
			n, err := primitiveValueSize(field.Type.PrimitiveType, element)
			if err != nil {
				return 0, err
			}
			total += n
		case schema.KindMessage:
			n, err := nestedMessageSize(field.Type.MessageType, element, reg)
			if err != nil {
				return 0, err
			}
			total += n
		default:
			return 0, fmt.Errorf("unsupported repeated element kind: %s", field.Type.Kind)
		}
	}
	return total, nil
}

func packedElementSize(fieldType *schema.FieldType, element interface{}, reg *registry.Registry) (int, error) {
	switch fieldType.Kind {
	case schema.KindPrimitive:
		return primitiveValueSize(fieldType.PrimitiveType, element)
	case schema.KindEnum:
		discriminant, err := enumNumberFor(fieldType.EnumType, element, reg)
		if err != nil {
			return 0, err
		}
		return VarintSize(uint64(uint32(discriminant))), nil
	default:
		return 0, fmt.Errorf("field kind %s cannot be packed", fieldType.Kind)
	}
}

func mapFieldSize(field *schema.Field, value interface{}, reg *registry.Registry) (int, error) {
	pairs, err := toInterfaceMap(value)
	if err != nil {
		return 0, err
	}
	total := 0
	for key, val := range pairs {
		entry := 0
		n, err := mapEntryFieldSize(mapKeyFieldNumber, field.Type.MapKey, key, reg)
		if err != nil {
			return 0, err
		}
		entry += n
		n, err = mapEntryFieldSize(mapValueFieldNumber, field.Type.MapValue, val, reg)
		if err != nil {
			return 0, err
		}
		entry += n
		total += KeySize(FieldNumber(field.Number)) + VarintSize(uint64(entry)) + entry
	}
	return total, nil
}

func mapEntryFieldSize(number FieldNumber, fieldType *schema.FieldType, value interface{}, reg *registry.Registry) (int, error) {
	switch fieldType.Kind {
	case schema.KindPrimitive:
		if isDefaultValue(value) {
			return 0, nil
		}
		n, err := primitiveValueSize(fieldType.PrimitiveType, value)
		if err != nil {
			return 0, err
		}
		return KeySize(number) + n, nil
	case schema.KindEnum:
		discriminant, err := enumNumberFor(fieldType.EnumType, value, reg)
		if err != nil {
			return 0, err
		}
		if discriminant == 0 {
			return 0, nil
		}
		return KeySize(number) + VarintSize(uint64(uint32(discriminant))), nil
	case schema.KindMessage:
		if value == nil {
			return 0, nil
		}
		if m, ok := value.(map[string]interface{}); ok && len(m) == 0 {
			return 0, nil
		}
		n, err := nestedMessageSize(fieldType.MessageType, value, reg)
		if err != nil {
			return 0, err
		}
		return KeySize(number) + n, nil
	default:
		return 0, fmt.Errorf("unsupported map entry field kind: %s", fieldType.Kind)
	}
}

func setFieldSize(field *schema.Field, value interface{}, reg *registry.Registry) (int, error) {
	members, err := toInterfaceSet(value)
	if err != nil {
		return 0, err
	}
	if len(members) == 0 {
		return 0, nil
	}
	elements := make([]interface{}, 0, len(members))
	for m := range members {
		elements = append(elements, m)
	}
	elementField := &schema.Field{
		Name:   field.Name,
		Number: field.Number,
		Label:  schema.LabelRepeated,
		Type:   *field.Type.ElementType,
	}
	return repeatedFieldSize(elementField, elements, reg)
}

func oneofSize(oneof *schema.Oneof, value interface{}, reg *registry.Registry) (int, error) {
	variant, err := asVariant(value)
	if err != nil {
		return 0, err
	}
	if variant == nil || variant.Case == "" || variant.Case == oneof.DefaultCase {
		return 0, nil
	}
	field := oneof.FieldByCase(variant.Case)
	if field == nil {
		return 0, fmt.Errorf("unknown oneof case %q", variant.Case)
	}

	switch field.Type.Kind {
	case schema.KindPrimitive:
		payload := variant.Value
		if payload == nil {
			payload = defaultPrimitive(field.Type.PrimitiveType)
		}
		n, err := primitiveValueSize(field.Type.PrimitiveType, payload)
		if err != nil {
			return 0, err
		}
		return KeySize(FieldNumber(field.Number)) + n, nil
	case schema.KindMessage:
		n, err := nestedMessageSize(field.Type.MessageType, variant.Value, reg)
		if err != nil {
			return 0, err
		}
		return KeySize(FieldNumber(field.Number)) + n, nil
	case schema.KindEnum:
		discriminant, err := enumNumberFor(field.Type.EnumType, variant.Value, reg)
		if err != nil {
			return 0, err
		}
		return KeySize(FieldNumber(field.Number)) + VarintSize(uint64(uint32(discriminant))), nil
	default:
		return 0, fmt.Errorf("unsupported oneof variant kind: %s", field.Type.Kind)
	}
}

// enumNumberFor mirrors Encoder.enumNumber for the sizer.
func enumNumberFor(enumType string, value interface{}, reg *registry.Registry) (int32, error) {
	switch v := value.(type) {
	case string:
		if reg == nil {
			return 0, fmt.Errorf("cannot resolve enum %s value %q: no registry available", enumType, v)
		}
		enum, err := reg.GetEnum(enumType)
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
