package wire

import (
	"github.com/tanayagrawal/protoshade/schema"
)

// ===== PROTOBUF WIRE FORMAT TYPES =====

// WireType represents protobuf wire format types
type WireType int32

const (
	WireVarint  WireType = 0 // int32, int64, uint32, uint64, sint32, sint64, bool, enum
	WireFixed64 WireType = 1 // fixed64, sfixed64, double
	WireBytes   WireType = 2 // string, bytes, embedded messages, packed repeated fields
	WireFixed32 WireType = 5 // fixed32, sfixed32, float
)

// IsValid reports whether the wire type is one of the four legal values.
// Wire types 3 and 4 (groups) are long deprecated and rejected outright.
func (wt WireType) IsValid() bool {
	switch wt {
	case WireVarint, WireFixed64, WireBytes, WireFixed32:
		return true
	}
	return false
}

// FieldNumber represents a protobuf field number
type FieldNumber int32

// Field numbers share one numbering space per message, starting at 1.
const (
	MinFieldNumber FieldNumber = 1
	MaxFieldNumber FieldNumber = (1 << 29) - 1
)

// Tag represents a protobuf field tag (field number + wire type)
type Tag uint64

// MakeTag creates a tag from field number and wire type
func MakeTag(fieldNumber FieldNumber, wireType WireType) Tag {
	return Tag(uint64(fieldNumber)<<3 | uint64(wireType))
}

// ParseTag parses a tag into field number and wire type
func ParseTag(tag Tag) (FieldNumber, WireType) {
	return FieldNumber(tag >> 3), WireType(tag & 0x7)
}

// KeySize returns the number of bytes the encoded key for the field number
// occupies, between 1 and 5.
func KeySize(fieldNumber FieldNumber) int {
	return VarintSize(uint64(fieldNumber) << 3)
}

// CheckWireType verifies that a field's physical wire type agrees with what
// its declared type requires, rejecting malformed input early instead of
// silently misinterpreting bytes.
func CheckWireType(expected, actual WireType) error {
	if !actual.IsValid() {
		return ErrInvalidWireType
	}
	if expected != actual {
		return ErrWireTypeMismatch
	}
	return nil
}

// WireTypeFor returns the wire type a field type encodes with.
func WireTypeFor(fieldType *schema.FieldType) WireType {
	switch fieldType.Kind {
	case schema.KindPrimitive:
		switch fieldType.PrimitiveType {
		case schema.TypeString, schema.TypeBytes:
			return WireBytes
		case schema.TypeFloat, schema.TypeFixed32, schema.TypeSfixed32:
			return WireFixed32
		case schema.TypeDouble, schema.TypeFixed64, schema.TypeSfixed64:
			return WireFixed64
		default:
			return WireVarint
		}
	case schema.KindEnum:
		return WireVarint
	case schema.KindMessage, schema.KindMap, schema.KindSet:
		return WireBytes
	default:
		return WireVarint
	}
}

// Value represents a decoded protobuf value
type Value struct {
	FieldNumber FieldNumber
	WireType    WireType
	Data        interface{} // Actual value
}

// Variant is the decoded form of a oneof selection: the active case name and
// its payload. A later occurrence of any tag belonging to the same oneof
// overwrites an earlier Variant (last-wins).
type Variant struct {
	Case  string
	Value interface{}
}
