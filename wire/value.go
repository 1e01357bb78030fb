package wire

import (
	"fmt"
	"reflect"
)

// isDefaultValue reports whether a value is its type's zero value under
// proto3 rules. Default-valued singular fields are skipped entirely on
// encode; absence round-trips back to the default.
func isDefaultValue(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case bool:
		return !v
	case string:
		return v == ""
	case int8:
		return v == 0
	case int16:
		return v == 0
	case int32:
		return v == 0
	case int64:
		return v == 0
	case int:
		return v == 0
	case uint8:
		return v == 0
	case uint16:
		return v == 0
	case uint32:
		return v == 0
	case uint64:
		return v == 0
	case uint:
		return v == 0
	case float32:
		return v == 0
	case float64:
		return v == 0
	case []byte:
		return len(v) == 0
	case Variant:
		return v.Case == ""
	case *Variant:
		return v == nil || v.Case == ""
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// toInterfaceSlice normalizes any slice value ([]int32, []string, typed
// slices from reflection) into []interface{} for the repeated-field encoder.
func toInterfaceSlice(value interface{}) ([]interface{}, error) {
	if s, ok := value.([]interface{}); ok {
		return s, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("expected slice for repeated field, got %T", value)
	}
	out := make([]interface{}, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// toInterfaceMap normalizes any map value into map[interface{}]interface{}
// for the map-field encoder.
func toInterfaceMap(value interface{}) (map[interface{}]interface{}, error) {
	if m, ok := value.(map[interface{}]interface{}); ok {
		return m, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map {
		return nil, fmt.Errorf("expected map for map field, got %T", value)
	}
	out := make(map[interface{}]interface{}, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().Interface()] = iter.Value().Interface()
	}
	return out, nil
}

// toInterfaceSet normalizes a set value into map[interface{}]struct{}.
// Accepts the canonical map[interface{}]struct{}, any map[T]struct{}, or a
// slice whose elements are deduplicated on the way in.
func toInterfaceSet(value interface{}) (map[interface{}]struct{}, error) {
	if s, ok := value.(map[interface{}]struct{}); ok {
		return s, nil
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Elem() != reflect.TypeOf(struct{}{}) {
			return nil, fmt.Errorf("expected set (map[T]struct{}), got %T", value)
		}
		out := make(map[interface{}]struct{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().Interface()] = struct{}{}
		}
		return out, nil
	case reflect.Slice:
		out := make(map[interface{}]struct{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[rv.Index(i).Interface()] = struct{}{}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected set for set field, got %T", value)
	}
}
