package wire

import (
	"fmt"

	"github.com/tanayagrawal/protoshade/schema"
)

// encodeSetField encodes a set as a repeated field of its unique elements,
// sorted so equal sets produce identical bytes. Numeric and enum element
// types use packed encoding like any repeated field. An empty set produces
// no bytes.
func (me *MessageEncoder) encodeSetField(field *schema.Field, value interface{}) error {
	members, err := toInterfaceSet(value)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return nil
	}

	elements := make([]interface{}, 0, len(members))
	for m := range members {
		elements = append(elements, m)
	}
	if err := sortKeys(elements); err != nil {
		return fmt.Errorf("set element: %w", err)
	}

	elementField := &schema.Field{
		Name:   field.Name,
		Number: field.Number,
		Label:  schema.LabelRepeated,
		Type:   *field.Type.ElementType,
	}
	if elementField.Type.IsPacked() {
		return me.encodePackedRun(elementField, elements)
	}
	return me.encodeUnpackedElements(elementField, elements)
}

// mergeSetField decodes one occurrence of a set field's tag and inserts the
// element(s) into the set. Inserting an element that is already present is a
// no-op, so duplicates on the wire collapse silently.
func (d *Decoder) mergeSetField(field *schema.Field, wireType WireType, set map[interface{}]struct{}, ctx DecodeContext) error {
	elementType := field.Type.ElementType
	if elementType == nil {
		return fmt.Errorf("set field %s has no element type", field.Name)
	}
	if elementType.Kind == schema.KindMessage || elementType.Kind == schema.KindMap ||
		elementType.Kind == schema.KindSet {
		return fmt.Errorf("set element kind %s is not comparable", elementType.Kind)
	}

	if elementType.IsPacked() && wireType == WireBytes {
		elements, err := d.decodePackedRun(elementType, nil)
		if err != nil {
			return err
		}
		for _, element := range elements {
			set[element] = struct{}{}
		}
		return nil
	}

	element, err := d.decodeSingular(elementType, wireType, ctx)
	if err != nil {
		return err
	}
	set[element] = struct{}{}
	return nil
}
