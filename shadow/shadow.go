// Package shadow projects Go structs into the value trees the wire codec
// consumes and maps decoded trees back. The projection is non-owning: the
// view references the source's strings, byte slices and sub-structs and must
// not be retained past the encode call.
package shadow

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/tanayagrawal/protoshade/wire"
)

// Wireable lets a type supply its own wire-ready representation during
// projection. The conversion is applied eagerly so the codec only ever sees
// wire-ready values.
type Wireable interface {
	ToWire() interface{}
}

// WireSettable is the decode-side counterpart of Wireable: the decoded wire
// value is handed to the type for interpretation.
type WireSettable interface {
	FromWire(value interface{}) error
}

// PostDecoder is invoked once after every field of a decoded struct has been
// set, for recomputing derived fields and running structural validation. An
// error aborts the decode.
type PostDecoder interface {
	PostDecode() error
}

// FromSun builds the wire-ready view of a struct value: a
// map[string]interface{} tree keyed by field wire names. Nil pointer fields
// are absent from the view; zero scalars stay in and are elided by the
// encoder. v must be a struct or pointer to struct.
func FromSun(v interface{}) (map[string]interface{}, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, fmt.Errorf("cannot project nil %T", v)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot project %T: not a struct", v)
	}
	return projectStruct(rv)
}

func projectStruct(rv reflect.Value) (map[string]interface{}, error) {
	rt := rv.Type()
	view := make(map[string]interface{}, rt.NumField())

	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if sf.PkgPath != "" {
			continue // unexported
		}
		name := wireName(sf)
		if name == "-" {
			continue
		}

		projected, present, err := projectValue(rv.Field(i))
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		if present {
			view[name] = projected
		}
	}
	return view, nil
}

// projectValue converts one field value to its wire-ready form. present is
// false for nil pointers, which stand for absent fields.
func projectValue(fv reflect.Value) (interface{}, bool, error) {
	if fv.CanInterface() {
		if w, ok := fv.Interface().(Wireable); ok {
			return w.ToWire(), true, nil
		}
		if fv.CanAddr() {
			if w, ok := fv.Addr().Interface().(Wireable); ok {
				return w.ToWire(), true, nil
			}
		}
	}

	switch fv.Kind() {
	case reflect.Ptr:
		if fv.IsNil() {
			return nil, false, nil
		}
		return projectValue(fv.Elem())

	case reflect.Struct:
		if variant, ok := fv.Interface().(wire.Variant); ok {
			projected, err := projectVariant(variant)
			return projected, true, err
		}
		view, err := projectStruct(fv)
		return view, true, err

	case reflect.Slice:
		if fv.Type().Elem().Kind() == reflect.Uint8 {
			return fv.Interface(), true, nil // []byte passes through
		}
		out := make([]interface{}, fv.Len())
		for i := 0; i < fv.Len(); i++ {
			projected, _, err := projectValue(fv.Index(i))
			if err != nil {
				return nil, false, err
			}
			out[i] = projected
		}
		return out, true, nil

	case reflect.Map:
		if fv.Type().Elem() == reflect.TypeOf(struct{}{}) {
			// Set-shaped maps pass through; the codec normalizes them.
			return fv.Interface(), true, nil
		}
		out := make(map[interface{}]interface{}, fv.Len())
		iter := fv.MapRange()
		for iter.Next() {
			projected, _, err := projectValue(iter.Value())
			if err != nil {
				return nil, false, err
			}
			out[iter.Key().Interface()] = projected
		}
		return out, true, nil

	default:
		return fv.Interface(), true, nil
	}
}

func projectVariant(variant wire.Variant) (wire.Variant, error) {
	if variant.Value == nil {
		return variant, nil
	}
	payload, _, err := projectValue(reflect.ValueOf(variant.Value))
	if err != nil {
		return wire.Variant{}, err
	}
	return wire.Variant{Case: variant.Case, Value: payload}, nil
}

// ToSun maps a decoded value tree into the struct pointed to by out. After
// every field is set the PostDecoder hook runs, if out implements it.
func ToSun(view map[string]interface{}, out interface{}) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("out must be a non-nil pointer, got %T", out)
	}
	elem := rv.Elem()
	if elem.Kind() != reflect.Struct {
		return fmt.Errorf("out must point to a struct, got %T", out)
	}

	if err := absorbStruct(view, elem); err != nil {
		return err
	}

	if pd, ok := out.(PostDecoder); ok {
		if err := pd.PostDecode(); err != nil {
			return fmt.Errorf("post-decode hook: %w", err)
		}
	}
	return nil
}

func absorbStruct(view map[string]interface{}, rv reflect.Value) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if sf.PkgPath != "" {
			continue
		}
		name := wireName(sf)
		if name == "-" {
			continue
		}
		decoded, ok := view[name]
		if !ok {
			continue // absent field keeps its zero value
		}
		if err := absorbValue(decoded, rv.Field(i)); err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
	}
	return nil
}

// absorbValue sets one struct field from its decoded wire value.
func absorbValue(decoded interface{}, fv reflect.Value) error {
	if fv.CanAddr() {
		if ws, ok := fv.Addr().Interface().(WireSettable); ok {
			return ws.FromWire(decoded)
		}
	}

	if decoded == nil {
		return nil
	}

	switch fv.Kind() {
	case reflect.Ptr:
		if fv.IsNil() {
			fv.Set(reflect.New(fv.Type().Elem()))
		}
		return absorbValue(decoded, fv.Elem())

	case reflect.Struct:
		if fv.Type() == reflect.TypeOf(wire.Variant{}) {
			variant, ok := decoded.(wire.Variant)
			if !ok {
				return fmt.Errorf("expected wire.Variant, got %T", decoded)
			}
			fv.Set(reflect.ValueOf(variant))
			return nil
		}
		sub, ok := decoded.(map[string]interface{})
		if !ok {
			return fmt.Errorf("expected message map, got %T", decoded)
		}
		if err := absorbStruct(sub, fv); err != nil {
			return err
		}
		if fv.CanAddr() {
			if pd, ok := fv.Addr().Interface().(PostDecoder); ok {
				if err := pd.PostDecode(); err != nil {
					return fmt.Errorf("post-decode hook: %w", err)
				}
			}
		}
		return nil

	case reflect.Slice:
		if fv.Type().Elem().Kind() == reflect.Uint8 {
			b, ok := decoded.([]byte)
			if !ok {
				return fmt.Errorf("expected []byte, got %T", decoded)
			}
			fv.SetBytes(b)
			return nil
		}
		elements, ok := decoded.([]interface{})
		if !ok {
			return fmt.Errorf("expected repeated elements, got %T", decoded)
		}
		out := reflect.MakeSlice(fv.Type(), len(elements), len(elements))
		for i, element := range elements {
			if err := absorbValue(element, out.Index(i)); err != nil {
				return err
			}
		}
		fv.Set(out)
		return nil

	case reflect.Map:
		if fv.Type().Elem() == reflect.TypeOf(struct{}{}) {
			members, ok := decoded.(map[interface{}]struct{})
			if !ok {
				return fmt.Errorf("expected set members, got %T", decoded)
			}
			out := reflect.MakeMapWithSize(fv.Type(), len(members))
			for member := range members {
				key := reflect.New(fv.Type().Key()).Elem()
				if err := absorbValue(member, key); err != nil {
					return err
				}
				out.SetMapIndex(key, reflect.ValueOf(struct{}{}))
			}
			fv.Set(out)
			return nil
		}
		pairs, ok := decoded.(map[interface{}]interface{})
		if !ok {
			return fmt.Errorf("expected map entries, got %T", decoded)
		}
		out := reflect.MakeMapWithSize(fv.Type(), len(pairs))
		for k, v := range pairs {
			key := reflect.New(fv.Type().Key()).Elem()
			if err := absorbValue(k, key); err != nil {
				return err
			}
			value := reflect.New(fv.Type().Elem()).Elem()
			if err := absorbValue(v, value); err != nil {
				return err
			}
			out.SetMapIndex(key, value)
		}
		fv.Set(out)
		return nil

	default:
		dv := reflect.ValueOf(decoded)
		if dv.Type().AssignableTo(fv.Type()) {
			fv.Set(dv)
			return nil
		}
		if dv.Type().ConvertibleTo(fv.Type()) && sameNumericFamily(dv.Kind(), fv.Kind()) {
			fv.Set(dv.Convert(fv.Type()))
			return nil
		}
		return fmt.Errorf("cannot assign %T to %s", decoded, fv.Type())
	}
}

// sameNumericFamily keeps conversions within one signedness family so a
// decoded value never changes meaning on assignment.
func sameNumericFamily(a, b reflect.Kind) bool {
	signed := func(k reflect.Kind) bool {
		return k >= reflect.Int && k <= reflect.Int64
	}
	unsigned := func(k reflect.Kind) bool {
		return k >= reflect.Uint && k <= reflect.Uint64
	}
	float := func(k reflect.Kind) bool {
		return k == reflect.Float32 || k == reflect.Float64
	}
	return (signed(a) && signed(b)) || (unsigned(a) && unsigned(b)) || (float(a) && float(b)) ||
		(a == reflect.String && b == reflect.String)
}

// wireName returns a struct field's name on the wire: the proto tag when
// present, the snake_case of the Go name otherwise.
func wireName(sf reflect.StructField) string {
	if tag, ok := sf.Tag.Lookup("proto"); ok {
		if idx := strings.IndexByte(tag, ','); idx >= 0 {
			tag = tag[:idx]
		}
		if tag != "" {
			return tag
		}
	}
	return toSnakeCase(sf.Name)
}

func toSnakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			// Acronym runs like "ID" stay together: break only at the start
			// of a run or before a trailing lowercase letter.
			startsRun := i > 0 && !unicode.IsUpper(runes[i-1])
			endsRun := i > 0 && i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if startsRun || endsRun {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
