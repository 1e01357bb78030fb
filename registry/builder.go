package registry

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	protoparser "github.com/yoheimuta/go-protoparser/v4"
	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"

	"github.com/tanayagrawal/protoshade/schema"
)

// scalarTypes maps .proto scalar type names to the descriptor primitive
// types. The narrow integer names are accepted too so hand-maintained
// schemas can declare them directly.
var scalarTypes = map[string]schema.PrimitiveType{
	"double":   schema.TypeDouble,
	"float":    schema.TypeFloat,
	"int32":    schema.TypeInt32,
	"int64":    schema.TypeInt64,
	"uint32":   schema.TypeUint32,
	"uint64":   schema.TypeUint64,
	"sint32":   schema.TypeSint32,
	"sint64":   schema.TypeSint64,
	"fixed32":  schema.TypeFixed32,
	"fixed64":  schema.TypeFixed64,
	"sfixed32": schema.TypeSfixed32,
	"sfixed64": schema.TypeSfixed64,
	"bool":     schema.TypeBool,
	"string":   schema.TypeString,
	"bytes":    schema.TypeBytes,
	"int8":     schema.TypeInt8,
	"int16":    schema.TypeInt16,
	"uint8":    schema.TypeUint8,
	"uint16":   schema.TypeUint16,
}

// parseProtoFile parses one .proto file into the descriptor model and
// returns the import paths it declares.
func parseProtoFile(filePath string) (*schema.ProtoFile, []string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}

	parsed, err := protoparser.Parse(bytes.NewBuffer(content))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}

	protoFile := &schema.ProtoFile{
		Name:     filepath.Base(filePath),
		Syntax:   "proto3",
		Imports:  []*schema.Import{},
		Messages: []*schema.Message{},
		Enums:    []*schema.Enum{},
	}
	if parsed.Syntax != nil && strings.Contains(parsed.Syntax.ProtobufVersion, "proto2") {
		protoFile.Syntax = "proto2"
	}

	var imports []string
	for _, body := range parsed.ProtoBody {
		switch b := body.(type) {
		case *protoparserparser.Package:
			protoFile.Package = b.Name
		case *protoparserparser.Import:
			location := strings.Trim(b.Location, `"`)
			imports = append(imports, location)
			protoFile.Imports = append(protoFile.Imports, &schema.Import{
				Path:   location,
				Public: b.Modifier == protoparserparser.ImportModifierPublic,
			})
		case *protoparserparser.Message:
			msg, err := buildMessage(b)
			if err != nil {
				return nil, nil, fmt.Errorf("message %s in %s: %w", b.MessageName, filePath, err)
			}
			protoFile.Messages = append(protoFile.Messages, msg)
		case *protoparserparser.Enum:
			enum, err := buildEnum(b)
			if err != nil {
				return nil, nil, fmt.Errorf("enum %s in %s: %w", b.EnumName, filePath, err)
			}
			protoFile.Enums = append(protoFile.Enums, enum)
		}
	}

	return protoFile, imports, nil
}

// buildMessage converts a parsed message body into a descriptor.
func buildMessage(parsed *protoparserparser.Message) (*schema.Message, error) {
	msg := &schema.Message{
		Name: parsed.MessageName,
	}

	for _, body := range parsed.MessageBody {
		switch b := body.(type) {
		case *protoparserparser.Field:
			field, err := buildField(b)
			if err != nil {
				return nil, err
			}
			msg.Fields = append(msg.Fields, field)

		case *protoparserparser.MapField:
			field, err := buildMapField(b)
			if err != nil {
				return nil, err
			}
			msg.Fields = append(msg.Fields, field)

		case *protoparserparser.Oneof:
			oneof, err := buildOneof(b)
			if err != nil {
				return nil, err
			}
			msg.OneofGroups = append(msg.OneofGroups, oneof)

		case *protoparserparser.Message:
			nested, err := buildMessage(b)
			if err != nil {
				return nil, err
			}
			msg.NestedTypes = append(msg.NestedTypes, nested)

		case *protoparserparser.Enum:
			nested, err := buildEnum(b)
			if err != nil {
				return nil, err
			}
			msg.NestedEnums = append(msg.NestedEnums, nested)
		}
	}

	return msg, nil
}

// buildField converts one parsed field. A repeated field annotated with
// [set = true] becomes a set descriptor.
func buildField(parsed *protoparserparser.Field) (*schema.Field, error) {
	number, err := parseFieldNumber(parsed.FieldNumber, parsed.FieldName)
	if err != nil {
		return nil, err
	}

	label := schema.LabelOptional
	switch {
	case parsed.IsRepeated:
		label = schema.LabelRepeated
	case parsed.IsRequired:
		label = schema.LabelRequired
	}

	fieldType := typeFor(parsed.Type)
	if parsed.IsRepeated && hasBoolOption(parsed.FieldOptions, "set") {
		element := fieldType
		fieldType = schema.FieldType{
			Kind:        schema.KindSet,
			ElementType: &element,
		}
	}

	return &schema.Field{
		Name:   parsed.FieldName,
		Number: number,
		Label:  label,
		Type:   fieldType,
	}, nil
}

// buildMapField converts a map<k,v> field into a map descriptor.
func buildMapField(parsed *protoparserparser.MapField) (*schema.Field, error) {
	number, err := parseFieldNumber(parsed.FieldNumber, parsed.MapName)
	if err != nil {
		return nil, err
	}

	keyType := typeFor(parsed.KeyType)
	valueType := typeFor(parsed.Type)
	return &schema.Field{
		Name:   parsed.MapName,
		Number: number,
		Label:  schema.LabelOptional,
		Type: schema.FieldType{
			Kind:     schema.KindMap,
			MapKey:   &keyType,
			MapValue: &valueType,
		},
	}, nil
}

// buildOneof converts a oneof group. A variant annotated with
// [default_case = true] is the group's zero value and is elided on encode.
func buildOneof(parsed *protoparserparser.Oneof) (*schema.Oneof, error) {
	oneof := &schema.Oneof{
		Name: parsed.OneofName,
	}

	for _, variant := range parsed.OneofFields {
		number, err := parseFieldNumber(variant.FieldNumber, variant.FieldName)
		if err != nil {
			return nil, err
		}
		oneof.Fields = append(oneof.Fields, &schema.Field{
			Name:   variant.FieldName,
			Number: number,
			Label:  schema.LabelOptional,
			Type:   typeFor(variant.Type),
		})
		if hasBoolOption(variant.FieldOptions, "default_case") {
			if oneof.DefaultCase != "" {
				return nil, fmt.Errorf("oneof %s declares two default cases", parsed.OneofName)
			}
			oneof.DefaultCase = variant.FieldName
		}
	}

	return oneof, nil
}

// buildEnum converts a parsed enum body into a descriptor.
func buildEnum(parsed *protoparserparser.Enum) (*schema.Enum, error) {
	enum := &schema.Enum{
		Name: parsed.EnumName,
	}
	for _, body := range parsed.EnumBody {
		ef, ok := body.(*protoparserparser.EnumField)
		if !ok {
			continue
		}
		number, err := strconv.ParseInt(ef.Number, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("enum value %s has invalid number %q", ef.Ident, ef.Number)
		}
		enum.Values = append(enum.Values, &schema.EnumValue{
			Name:   ef.Ident,
			Number: int32(number),
		})
	}
	return enum, nil
}

// typeFor maps a parsed type name to a field type. Named types start out as
// message references; the symbol-table pass rewrites references that turn
// out to name enums.
func typeFor(typeName string) schema.FieldType {
	if prim, ok := scalarTypes[typeName]; ok {
		return schema.FieldType{
			Kind:          schema.KindPrimitive,
			PrimitiveType: prim,
		}
	}
	return schema.FieldType{
		Kind:        schema.KindMessage,
		MessageType: typeName,
	}
}

func parseFieldNumber(raw, fieldName string) (int32, error) {
	number, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("field %s has invalid number %q", fieldName, raw)
	}
	if number < 1 {
		return 0, fmt.Errorf("field %s has number %d below 1", fieldName, number)
	}
	return int32(number), nil
}

func hasBoolOption(options []*protoparserparser.FieldOption, name string) bool {
	for _, opt := range options {
		if opt.OptionName == name && opt.Constant == "true" {
			return true
		}
	}
	return false
}

// resolveMessageTypes walks a message's field types after all names are
// registered, rewriting named references that point at enums and qualifying
// names relative to the message's scope.
func (r *Registry) resolveMessageTypes(pkg string, msg *schema.Message) error {
	return r.resolveScopedTypes(r.getFullName(pkg, msg.Name), msg)
}

func (r *Registry) resolveScopedTypes(scope string, msg *schema.Message) error {
	for _, field := range msg.Fields {
		if err := r.resolveFieldType(scope, &field.Type); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	for _, oneof := range msg.OneofGroups {
		for _, field := range oneof.Fields {
			if err := r.resolveFieldType(scope, &field.Type); err != nil {
				return fmt.Errorf("oneof %s field %s: %w", oneof.Name, field.Name, err)
			}
		}
	}
	for _, nested := range msg.NestedTypes {
		if err := r.resolveScopedTypes(scope+"."+nested.Name, nested); err != nil {
			return err
		}
	}
	return nil
}

// resolveFieldType rewrites one field type in place.
func (r *Registry) resolveFieldType(scope string, ft *schema.FieldType) error {
	switch ft.Kind {
	case schema.KindMessage:
		resolved, isEnum, err := r.resolveNamed(scope, ft.MessageType)
		if err != nil {
			return err
		}
		if isEnum {
			ft.Kind = schema.KindEnum
			ft.EnumType = resolved
			ft.MessageType = ""
		} else {
			ft.MessageType = resolved
		}
	case schema.KindMap:
		if err := r.resolveFieldType(scope, ft.MapValue); err != nil {
			return err
		}
	case schema.KindSet:
		if err := r.resolveFieldType(scope, ft.ElementType); err != nil {
			return err
		}
	}
	return nil
}

// resolveNamed resolves a type reference the way protoc scopes names: try
// the innermost scope first, then walk outward to the package root. A
// leading dot means the name is already fully qualified.
func (r *Registry) resolveNamed(scope, name string) (string, bool, error) {
	if strings.HasPrefix(name, ".") {
		qualified := strings.TrimPrefix(name, ".")
		if _, ok := r.enums[qualified]; ok {
			return qualified, true, nil
		}
		if _, ok := r.messages[qualified]; ok {
			return qualified, false, nil
		}
		return "", false, fmt.Errorf("unable to resolve type name: %s", name)
	}

	parts := strings.Split(scope, ".")
	for {
		prefix := strings.Join(parts, ".")
		candidate := name
		if prefix != "" {
			candidate = prefix + "." + name
		}
		if _, ok := r.enums[candidate]; ok {
			return candidate, true, nil
		}
		if _, ok := r.messages[candidate]; ok {
			return candidate, false, nil
		}
		if len(parts) == 0 {
			break
		}
		parts = parts[:len(parts)-1]
	}
	return "", false, fmt.Errorf("unable to resolve type name: %s", name)
}
