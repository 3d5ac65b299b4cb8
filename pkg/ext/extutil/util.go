// Package extutil provides shared helpers for the ext sub-packages.
package extutil

import (
	"fmt"
	"reflect"

	"github.com/sandrolain/gognl/pkg/accessor"
	"github.com/sandrolain/gognl/pkg/coerce"
	"github.com/sandrolain/gognl/pkg/functions"
)

// Class builds a static class identified by the marker type T.
func Class[T any](name string, funcs []functions.Func, consts ...functions.Constant) functions.Class {
	return functions.Class{
		Name:      name,
		Type:      reflect.TypeFor[T](),
		Funcs:     funcs,
		Constants: consts,
	}
}

// Fn is shorthand for a functions.Func literal.
func Fn(name string, impls ...any) functions.Func {
	return functions.Func{Name: name, Impls: impls}
}

// AsObjectMap converts a map value (any map keyed by strings, or an
// *accessor.OrderedMap) into a plain map. Key order is NOT preserved.
func AsObjectMap(v any) (map[string]any, error) {
	if v == nil {
		return nil, fmt.Errorf("argument must be a map, got nil")
	}
	switch o := v.(type) {
	case map[string]any:
		return o, nil
	case *accessor.OrderedMap:
		out := make(map[string]any, o.Len())
		for _, k := range o.Keys() {
			out[coerce.StringValue(k)], _ = o.Get(k)
		}
		return out, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("argument must be a map, got %T", v)
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, nil
}

// Floats converts every element of items to float64.
func Floats(items []any) ([]float64, error) {
	out := make([]float64, len(items))
	for i, it := range items {
		f, err := coerce.DoubleValue(it)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = f
	}
	return out, nil
}

// IsSequence reports whether v is a slice or an array.
func IsSequence(v any) bool {
	if v == nil {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

// IsMap reports whether v is a map or an *accessor.OrderedMap.
func IsMap(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.(*accessor.OrderedMap); ok {
		return true
	}
	return reflect.TypeOf(v).Kind() == reflect.Map
}

// Len returns the number of elements of a sequence, map or string, and -1
// for anything else.
func Len(v any) int {
	switch o := v.(type) {
	case nil:
		return -1
	case string:
		return len(o)
	case *accessor.OrderedMap:
		return o.Len()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len()
	}
	return -1
}
