package wire

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/tanayagrawal/protoshade/schema"
)

// decodePrimitive decodes one scalar of the given primitive type. The wire
// type carried by the key must agree with the type's framing. Narrow integer
// types (int8..uint16) arrive as 32-bit varints and are narrowed back with a
// range check.
func (d *Decoder) decodePrimitive(primType schema.PrimitiveType, wireType WireType) (interface{}, error) {
	if err := CheckWireType(WireTypeForPrimitive(primType), wireType); err != nil {
		return nil, err
	}
	return d.decodePrimitiveValue(primType)
}

// decodePrimitiveValue decodes the value bytes of one scalar, assuming the
// wire type has already been validated. Packed runs call this directly since
// the run carries a single key for all elements.
func (d *Decoder) decodePrimitiveValue(primType schema.PrimitiveType) (interface{}, error) {
	switch primType {
	case schema.TypeInt32:
		v, err := d.DecodeVarint()
		if err != nil {
			return nil, err
		}
		return int32(v), nil

	case schema.TypeInt64:
		v, err := d.DecodeVarint()
		if err != nil {
			return nil, err
		}
		return int64(v), nil

	case schema.TypeUint32:
		v, err := d.DecodeVarint()
		if err != nil {
			return nil, err
		}
		return uint32(v), nil

	case schema.TypeUint64:
		return d.DecodeVarint()

	case schema.TypeSint32:
		v, err := d.DecodeVarint()
		if err != nil {
			return nil, err
		}
		return DecodeZigZag32(v), nil

	case schema.TypeSint64:
		v, err := d.DecodeVarint()
		if err != nil {
			return nil, err
		}
		return DecodeZigZag64(v), nil

	case schema.TypeInt8:
		v, err := d.DecodeVarint()
		if err != nil {
			return nil, err
		}
		wide := DecodeZigZag32(v)
		if wide < math.MinInt8 || wide > math.MaxInt8 {
			return nil, fmt.Errorf("value %d out of int8 range: %w", wide, ErrNumericOverflow)
		}
		return int8(wide), nil

	case schema.TypeInt16:
		v, err := d.DecodeVarint()
		if err != nil {
			return nil, err
		}
		wide := DecodeZigZag32(v)
		if wide < math.MinInt16 || wide > math.MaxInt16 {
			return nil, fmt.Errorf("value %d out of int16 range: %w", wide, ErrNumericOverflow)
		}
		return int16(wide), nil

	case schema.TypeUint8:
		v, err := d.DecodeVarint()
		if err != nil {
			return nil, err
		}
		if v > math.MaxUint8 {
			return nil, fmt.Errorf("value %d out of uint8 range: %w", v, ErrNumericOverflow)
		}
		return uint8(v), nil

	case schema.TypeUint16:
		v, err := d.DecodeVarint()
		if err != nil {
			return nil, err
		}
		if v > math.MaxUint16 {
			return nil, fmt.Errorf("value %d out of uint16 range: %w", v, ErrNumericOverflow)
		}
		return uint16(v), nil

	case schema.TypeBool:
		v, err := d.DecodeVarint()
		if err != nil {
			return nil, err
		}
		// Any nonzero varint decodes as true.
		return v != 0, nil

	case schema.TypeFixed32:
		return d.DecodeFixed32()

	case schema.TypeFixed64:
		return d.DecodeFixed64()

	case schema.TypeSfixed32:
		fd := NewFixedDecoder(d)
		return fd.DecodeSfixed32()

	case schema.TypeSfixed64:
		fd := NewFixedDecoder(d)
		return fd.DecodeSfixed64()

	case schema.TypeFloat:
		fd := NewFixedDecoder(d)
		return fd.DecodeFloat32()

	case schema.TypeDouble:
		fd := NewFixedDecoder(d)
		return fd.DecodeFloat64()

	case schema.TypeString:
		bd := NewBytesDecoder(d)
		s, err := bd.DecodeString()
		if err != nil {
			return nil, err
		}
		if !utf8.ValidString(s) {
			return nil, fmt.Errorf("string field: %w", ErrInvalidUTF8)
		}
		return s, nil

	case schema.TypeBytes:
		return d.DecodeBytes()

	default:
		return nil, fmt.Errorf("unsupported primitive type: %s", primType)
	}
}

// encodePrimitiveValue encodes the value bytes of one scalar. The caller has
// already written the key (or, for packed runs, the single run key).
func (e *Encoder) encodePrimitiveValue(primType schema.PrimitiveType, value interface{}) error {
	switch primType {
	case schema.TypeInt32:
		v, err := asInt64(value)
		if err != nil {
			return err
		}
		// Negative int32s sign-extend to 10 bytes, matching int64 framing.
		e.EncodeVarint(uint64(v))

	case schema.TypeInt64:
		v, err := asInt64(value)
		if err != nil {
			return err
		}
		e.EncodeVarint(uint64(v))

	case schema.TypeUint32, schema.TypeUint64:
		v, err := asUint64(value)
		if err != nil {
			return err
		}
		e.EncodeVarint(v)

	case schema.TypeSint32:
		v, err := asInt64(value)
		if err != nil {
			return err
		}
		e.EncodeVarint(EncodeZigZag32(int32(v)))

	case schema.TypeSint64:
		v, err := asInt64(value)
		if err != nil {
			return err
		}
		e.EncodeVarint(EncodeZigZag64(v))

	case schema.TypeInt8, schema.TypeInt16:
		// Narrow signed types widen losslessly to the sint32 representation.
		v, err := asInt64(value)
		if err != nil {
			return err
		}
		e.EncodeVarint(EncodeZigZag32(int32(v)))

	case schema.TypeUint8, schema.TypeUint16:
		v, err := asUint64(value)
		if err != nil {
			return err
		}
		e.EncodeVarint(v)

	case schema.TypeBool:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		if b {
			e.EncodeVarint(1)
		} else {
			e.EncodeVarint(0)
		}

	case schema.TypeFixed32:
		v, err := asUint64(value)
		if err != nil {
			return err
		}
		e.EncodeFixed32(uint32(v))

	case schema.TypeFixed64:
		v, err := asUint64(value)
		if err != nil {
			return err
		}
		e.EncodeFixed64(v)

	case schema.TypeSfixed32:
		v, err := asInt64(value)
		if err != nil {
			return err
		}
		fe := NewFixedEncoder(e)
		fe.EncodeSfixed32(int32(v))

	case schema.TypeSfixed64:
		v, err := asInt64(value)
		if err != nil {
			return err
		}
		fe := NewFixedEncoder(e)
		fe.EncodeSfixed64(v)

	case schema.TypeFloat:
		f, err := asFloat64(value)
		if err != nil {
			return err
		}
		fe := NewFixedEncoder(e)
		fe.EncodeFloat32(float32(f))

	case schema.TypeDouble:
		f, err := asFloat64(value)
		if err != nil {
			return err
		}
		fe := NewFixedEncoder(e)
		fe.EncodeFloat64(f)

	case schema.TypeString:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		if !utf8.ValidString(s) {
			return fmt.Errorf("string field: %w", ErrInvalidUTF8)
		}
		e.EncodeString(s)

	case schema.TypeBytes:
		b, ok := value.([]byte)
		if !ok {
			return fmt.Errorf("expected []byte, got %T", value)
		}
		e.EncodeBytes(b)

	default:
		return fmt.Errorf("unsupported primitive type: %s", primType)
	}

	return nil
}

// primitiveValueSize returns the exact number of bytes encodePrimitiveValue
// would write for the value, excluding the key.
func primitiveValueSize(primType schema.PrimitiveType, value interface{}) (int, error) {
	switch primType {
	case schema.TypeInt32, schema.TypeInt64:
		v, err := asInt64(value)
		if err != nil {
			return 0, err
		}
		return VarintSize(uint64(v)), nil

	case schema.TypeUint32, schema.TypeUint64, schema.TypeUint8, schema.TypeUint16:
		v, err := asUint64(value)
		if err != nil {
			return 0, err
		}
		return VarintSize(v), nil

	case schema.TypeSint32, schema.TypeInt8, schema.TypeInt16:
		v, err := asInt64(value)
		if err != nil {
			return 0, err
		}
		return VarintSize(EncodeZigZag32(int32(v))), nil

	case schema.TypeSint64:
		v, err := asInt64(value)
		if err != nil {
			return 0, err
		}
		return VarintSize(EncodeZigZag64(v)), nil

	case schema.TypeBool:
		return 1, nil

	case schema.TypeFixed32, schema.TypeSfixed32, schema.TypeFloat:
		return Fixed32Size(), nil

	case schema.TypeFixed64, schema.TypeSfixed64, schema.TypeDouble:
		return Fixed64Size(), nil

	case schema.TypeString:
		s, ok := value.(string)
		if !ok {
			return 0, fmt.Errorf("expected string, got %T", value)
		}
		return StringSize(s), nil

	case schema.TypeBytes:
		b, ok := value.([]byte)
		if !ok {
			return 0, fmt.Errorf("expected []byte, got %T", value)
		}
		return BytesSize(b), nil

	default:
		return 0, fmt.Errorf("unsupported primitive type: %s", primType)
	}
}

// WireTypeForPrimitive returns the wire type a primitive type encodes with.
func WireTypeForPrimitive(primType schema.PrimitiveType) WireType {
	switch primType {
	case schema.TypeString, schema.TypeBytes:
		return WireBytes
	case schema.TypeFloat, schema.TypeFixed32, schema.TypeSfixed32:
		return WireFixed32
	case schema.TypeDouble, schema.TypeFixed64, schema.TypeSfixed64:
		return WireFixed64
	default:
		return WireVarint
	}
}

// asInt64 widens any signed integer value to int64.
func asInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("expected signed integer, got %T", value)
	}
}

// asUint64 widens any unsigned integer value to uint64.
func asUint64(value interface{}) (uint64, error) {
	switch v := value.(type) {
	case uint8:
		return uint64(v), nil
	case uint16:
		return uint64(v), nil
	case uint32:
		return uint64(v), nil
	case uint64:
		return v, nil
	case uint:
		return uint64(v), nil
	default:
		return 0, fmt.Errorf("expected unsigned integer, got %T", value)
	}
}

// asFloat64 widens a float value to float64.
func asFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("expected float, got %T", value)
	}
}
