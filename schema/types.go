package schema

// ProtoRepo represents a collection of .proto files and their definitions.
type ProtoRepo struct {
	ProtoFiles map[string]*ProtoFile `json:"proto_files"`
}

// ProtoFile represents a single .proto file
type ProtoFile struct {
	Name     string     `json:"name"`     // file.proto
	Package  string     `json:"package"`  // package name
	Syntax   string     `json:"syntax"`   // proto2 or proto3
	Imports  []*Import  `json:"imports"`  // imported files
	Messages []*Message `json:"messages"` // message definitions
	Enums    []*Enum    `json:"enums"`    // enum definitions
}

// Import represents an import statement
type Import struct {
	Path   string `json:"path"`   // "common/types.proto"
	Public bool   `json:"public"` // public import
}

// Message represents a protobuf message definition. A Message and its field
// descriptors are immutable once registered; the wire codec only reads them.
type Message struct {
	Name        string     `json:"name"`         // "User"
	Fields      []*Field   `json:"fields"`       // message fields
	NestedTypes []*Message `json:"nested_types"` // nested messages
	NestedEnums []*Enum    `json:"nested_enums"` // nested enums
	OneofGroups []*Oneof   `json:"oneof_groups"` // oneof groups
	MapEntry    bool       `json:"map_entry"`    // is this a synthetic map entry?
}

// FieldByNumber finds a field descriptor by field number, searching both the
// plain fields and every oneof group. Returns nil if no field owns the number.
func (m *Message) FieldByNumber(number int32) *Field {
	for _, f := range m.Fields {
		if f.Number == number {
			return f
		}
	}
	for _, o := range m.OneofGroups {
		for _, f := range o.Fields {
			if f.Number == number {
				return f
			}
		}
	}
	return nil
}

// FieldByName finds a field descriptor by name, searching both the plain
// fields and every oneof group. Returns nil if no field has the name.
func (m *Message) FieldByName(name string) *Field {
	for _, f := range m.Fields {
		if f.Name == name {
			return f
		}
	}
	for _, o := range m.OneofGroups {
		for _, f := range o.Fields {
			if f.Name == name {
				return f
			}
		}
	}
	return nil
}

// OneofByFieldNumber returns the oneof group owning the given field number,
// or nil if the number belongs to a plain field (or to nothing).
func (m *Message) OneofByFieldNumber(number int32) *Oneof {
	for _, o := range m.OneofGroups {
		for _, f := range o.Fields {
			if f.Number == number {
				return o
			}
		}
	}
	return nil
}

// Field represents a message field descriptor: the tag, the label and the
// type information the wire codec needs to encode or decode the field.
type Field struct {
	Name     string     `json:"name"`   // "user_name"
	Number   int32      `json:"number"` // 1
	Label    FieldLabel `json:"label"`  // optional, required, repeated
	Type     FieldType  `json:"type"`   // field type information
	JsonName string     `json:"json_name,omitempty"`
}

// Oneof represents a oneof group. Every variant field owns a distinct tag in
// the enclosing message's tag space. DefaultCase names the variant that is
// the type's zero value; encoding it produces no bytes at all.
type Oneof struct {
	Name        string   `json:"name"`         // "payload"
	Fields      []*Field `json:"fields"`       // variant fields
	DefaultCase string   `json:"default_case"` // variant elided on encode
}

// FieldByCase finds a variant field by name within the oneof.
func (o *Oneof) FieldByCase(name string) *Field {
	for _, f := range o.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// FieldLabel represents field labels
type FieldLabel string

const (
	LabelOptional FieldLabel = "optional"
	LabelRequired FieldLabel = "required"
	LabelRepeated FieldLabel = "repeated"
)

// FieldType represents field type information
type FieldType struct {
	Kind          TypeKind      `json:"kind"`                     // primitive, message, enum, map, set
	PrimitiveType PrimitiveType `json:"primitive_type,omitempty"` // for primitive types
	MessageType   string        `json:"message_type,omitempty"`   // for message types: "User"
	EnumType      string        `json:"enum_type,omitempty"`      // for enum types
	MapKey        *FieldType    `json:"map_key,omitempty"`        // for map key type
	MapValue      *FieldType    `json:"map_value,omitempty"`      // for map value type
	ElementType   *FieldType    `json:"element_type,omitempty"`   // for set element type
}

// TypeKind represents the kind of field type
type TypeKind string

const (
	KindPrimitive TypeKind = "primitive"
	KindMessage   TypeKind = "message"
	KindEnum      TypeKind = "enum"
	KindMap       TypeKind = "map"
	KindSet       TypeKind = "set"
)

// PrimitiveType represents protobuf primitive types. The narrow integer
// types (int8..uint16) are logical types that widen to a 32-bit varint
// representation on the wire: signed narrows use zigzag (sint32 framing),
// unsigned narrows use plain varints (uint32 framing).
type PrimitiveType string

const (
	TypeDouble   PrimitiveType = "double"
	TypeFloat    PrimitiveType = "float"
	TypeInt64    PrimitiveType = "int64"
	TypeUint64   PrimitiveType = "uint64"
	TypeInt32    PrimitiveType = "int32"
	TypeFixed64  PrimitiveType = "fixed64"
	TypeFixed32  PrimitiveType = "fixed32"
	TypeBool     PrimitiveType = "bool"
	TypeString   PrimitiveType = "string"
	TypeBytes    PrimitiveType = "bytes"
	TypeUint32   PrimitiveType = "uint32"
	TypeSfixed32 PrimitiveType = "sfixed32"
	TypeSfixed64 PrimitiveType = "sfixed64"
	TypeSint32   PrimitiveType = "sint32"
	TypeSint64   PrimitiveType = "sint64"
	TypeInt8     PrimitiveType = "int8"
	TypeInt16    PrimitiveType = "int16"
	TypeUint8    PrimitiveType = "uint8"
	TypeUint16   PrimitiveType = "uint16"
)

var packedEligible = map[PrimitiveType]struct{}{
	TypeDouble:   {},
	TypeFloat:    {},
	TypeInt64:    {},
	TypeUint64:   {},
	TypeInt32:    {},
	TypeFixed64:  {},
	TypeFixed32:  {},
	TypeBool:     {},
	TypeUint32:   {},
	TypeSfixed32: {},
	TypeSfixed64: {},
	TypeSint32:   {},
	TypeSint64:   {},
	TypeInt8:     {},
	TypeInt16:    {},
	TypeUint8:    {},
	TypeUint16:   {},
}

// IsPackedType checks and returns if the Primitive type is packed for
// repeated label. Strings and bytes are never packed.
func IsPackedType(t PrimitiveType) bool {
	_, ok := packedEligible[t]
	return ok
}

// IsPacked reports whether the field type uses packed encoding under a
// repeated label: numeric primitives and enums pack, everything else does not.
func (t *FieldType) IsPacked() bool {
	switch t.Kind {
	case KindPrimitive:
		return IsPackedType(t.PrimitiveType)
	case KindEnum:
		return true
	default:
		return false
	}
}

// Enum represents an enum definition
type Enum struct {
	Name   string       `json:"name"`   // "Status"
	Values []*EnumValue `json:"values"` // enum values
}

// ValueByNumber finds an enum value by its wire number.
func (e *Enum) ValueByNumber(number int32) *EnumValue {
	for _, v := range e.Values {
		if v.Number == number {
			return v
		}
	}
	return nil
}

// ValueByName finds an enum value by its declared name.
func (e *Enum) ValueByName(name string) *EnumValue {
	for _, v := range e.Values {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// EnumValue represents an enum value
type EnumValue struct {
	Name   string `json:"name"`   // "ACTIVE"
	Number int32  `json:"number"` // 1
}
