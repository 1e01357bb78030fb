package wire

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/tanayagrawal/protoshade/schema"
)

// MapDecoder handles map entry decoding
type MapDecoder struct {
	decoder *Decoder
}

// NewMapDecoder creates a new map decoder
func NewMapDecoder(d *Decoder) *MapDecoder {
	return &MapDecoder{decoder: d}
}

// Map entries ride the wire as tiny two-field messages.
const (
	mapKeyFieldNumber   FieldNumber = 1
	mapValueFieldNumber FieldNumber = 2
)

// encodeMapField encodes a map field: one length-delimited entry message per
// pair, entries ordered by key so equal maps encode to identical bytes.
// Within an entry the key and value fields are themselves elided when they
// hold their default, so a zero-key or zero-value entry can be an empty
// frame.
func (me *MessageEncoder) encodeMapField(field *schema.Field, value interface{}) error {
	pairs, err := toInterfaceMap(value)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return nil
	}

	keys := make([]interface{}, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	if err := sortKeys(keys); err != nil {
		return err
	}

	e := me.encoder
	for _, key := range keys {
		entry := NewEncoderWithRegistry(e.registry)
		if err := entry.encodeMapEntryField(mapKeyFieldNumber, field.Type.MapKey, key); err != nil {
			return err
		}
		if err := entry.encodeMapEntryField(mapValueFieldNumber, field.Type.MapValue, pairs[key]); err != nil {
			return err
		}
		e.EncodeKey(FieldNumber(field.Number), WireBytes)
		e.EncodeBytes(entry.Bytes())
	}
	return nil
}

// encodeMapEntryField writes one of the entry's two fields, skipping it when
// the value is the type's default.
func (e *Encoder) encodeMapEntryField(number FieldNumber, fieldType *schema.FieldType, value interface{}) error {
	switch fieldType.Kind {
	case schema.KindPrimitive:
		if isDefaultValue(value) {
			return nil
		}
		e.EncodeKey(number, WireTypeForPrimitive(fieldType.PrimitiveType))
		return e.encodePrimitiveValue(fieldType.PrimitiveType, value)

	case schema.KindEnum:
		discriminant, err := e.enumNumber(fieldType.EnumType, value)
		if err != nil {
			return err
		}
		if discriminant == 0 {
			return nil
		}
		e.EncodeKey(number, WireVarint)
		e.EncodeVarint(uint64(uint32(discriminant)))
		return nil

	case schema.KindMessage:
		if value == nil {
			return nil
		}
		if m, ok := value.(map[string]interface{}); ok && len(m) == 0 {
			return nil
		}
		e.EncodeKey(number, WireBytes)
		return e.encodeNestedMessage(fieldType.MessageType, value)

	default:
		return fmt.Errorf("unsupported map entry field kind: %s", fieldType.Kind)
	}
}

// decodeMapEntryInto decodes one map entry frame into its key and value.
// Either field may be absent, in which case it takes the type's default.
// Duplicate key or value fields within the entry follow last-one-wins.
func (d *Decoder) decodeMapEntryInto(keyType, valueType *schema.FieldType, ctx DecodeContext) (interface{}, interface{}, error) {
	bd := NewBytesDecoder(d)
	raw, err := bd.DecodeRawBytes()
	if err != nil {
		return nil, nil, err
	}

	if err := ctx.LimitReached(); err != nil {
		return nil, nil, err
	}
	nested, err := ctx.EnterRecursion()
	if err != nil {
		return nil, nil, err
	}

	sub := d.subDecoder(raw)
	var key, value interface{}
	haveKey, haveValue := false, false

	for sub.pos < len(sub.buf) {
		fieldNumber, wireType, err := sub.DecodeKey()
		if err != nil {
			return nil, nil, err
		}
		switch fieldNumber {
		case mapKeyFieldNumber:
			key, err = sub.decodeSingular(keyType, wireType, nested)
			haveKey = true
		case mapValueFieldNumber:
			value, err = sub.decodeSingular(valueType, wireType, nested)
			haveValue = true
		default:
			err = sub.SkipField(wireType, nested)
		}
		if err != nil {
			return nil, nil, err
		}
	}

	if !haveKey {
		key = d.zeroValue(keyType)
	}
	if !haveValue {
		value = d.zeroValue(valueType)
	}
	return key, value, nil
}

// zeroValue returns the decoded form of a field type's default value, used
// when a map entry omits its key or value field.
func (d *Decoder) zeroValue(fieldType *schema.FieldType) interface{} {
	switch fieldType.Kind {
	case schema.KindPrimitive:
		return defaultPrimitive(fieldType.PrimitiveType)
	case schema.KindEnum:
		if d.registry != nil {
			if enum, err := d.registry.GetEnum(fieldType.EnumType); err == nil {
				if v := enum.ValueByNumber(0); v != nil {
					return v.Name
				}
			}
		}
		return int32(0)
	case schema.KindMessage:
		return map[string]interface{}{}
	default:
		return nil
	}
}

// sortKeys orders map keys or set elements deterministically. Integer and
// float keys sort numerically, string keys lexicographically by bytes, bool
// keys false before true.
func sortKeys(keys []interface{}) error {
	if len(keys) < 2 {
		return nil
	}
	var sortErr error
	sort.Slice(keys, func(i, j int) bool {
		less, err := lessKey(keys[i], keys[j])
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return less
	})
	return sortErr
}

func lessKey(a, b interface{}) (bool, error) {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return false, fmt.Errorf("mixed key types %T and %T", a, b)
		}
		return bytes.Compare([]byte(av), []byte(bv)) < 0, nil
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return false, fmt.Errorf("mixed key types %T and %T", a, b)
		}
		return !av && bv, nil
	case int8, int16, int32, int64, int:
		ai, _ := asInt64(a)
		bi, err := asInt64(b)
		if err != nil {
			return false, fmt.Errorf("mixed key types %T and %T", a, b)
		}
		return ai < bi, nil
	case uint8, uint16, uint32, uint64, uint:
		au, _ := asUint64(a)
		bu, err := asUint64(b)
		if err != nil {
			return false, fmt.Errorf("mixed key types %T and %T", a, b)
		}
		return au < bu, nil
	case float32, float64:
		af, _ := asFloat64(a)
		bf, err := asFloat64(b)
		if err != nil {
			return false, fmt.Errorf("mixed key types %T and %T", a, b)
		}
		return af < bf, nil
	default:
		return false, fmt.Errorf("unsupported key type %T", a)
	}
}
