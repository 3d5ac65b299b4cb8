package accessor

import (
	"cmp"
	"reflect"
	"slices"

	"github.com/sandrolain/gognl/pkg/coerce"
	"github.com/sandrolain/gognl/pkg/types"
)

// MappingAccessor serves Go maps, pointers to maps and Mapping values.
//
// Unless index syntax was used, the names size, keys, keySet, values and
// isEmpty are pseudo-properties of the container; every other name is a key.
type MappingAccessor struct{}

func mapValue(target any) (reflect.Value, error) {
	rv := reflect.ValueOf(target)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return reflect.Value{}, types.Errorf(types.ErrNullSource, "nil %T", target)
		}
		rv = rv.Elem()
	}
	return rv, nil
}

// GetProperty implements PropertyAccessor.
func (MappingAccessor) GetProperty(ctx Context, target, name any) (any, error) {
	if s, ok := name.(string); ok && !ctx.IndexedAccess() {
		switch s {
		case "size":
			return mapLen(target)
		case "keys", "keySet":
			return MapKeys(target)
		case "values":
			return MapValues(target)
		case "isEmpty":
			n, err := mapLen(target)
			return n == 0, err
		}
	}
	if err := checkKey(target, name); err != nil {
		return nil, err
	}
	ctx.SetCurrentAccessor(reflect.TypeOf(target))
	if m, ok := target.(Mapping); ok {
		v, _ := m.Get(name)
		ctx.SetCurrentType(reflect.TypeOf(v))
		return v, nil
	}
	rv, err := mapValue(target)
	if err != nil {
		return nil, err
	}
	ctx.SetCurrentType(rv.Type().Elem())
	key, ok := ctx.Converter().Convert(name, rv.Type().Key())
	if !ok {
		return nil, nil
	}
	v := rv.MapIndex(mapKey(key, rv.Type().Key()))
	if !v.IsValid() {
		return nil, nil
	}
	return v.Interface(), nil
}

// SetProperty implements PropertyAccessor.
func (MappingAccessor) SetProperty(ctx Context, target, name, value any) error {
	if err := checkKey(target, name); err != nil {
		return err
	}
	if m, ok := target.(Mapping); ok {
		m.Put(name, value)
		return nil
	}
	rv, err := mapValue(target)
	if err != nil {
		return err
	}
	if rv.IsNil() {
		return types.Errorf(types.ErrNotAddressable, "assignment to entry in nil %s", rv.Type())
	}
	kt := rv.Type().Key()
	key, ok := ctx.Converter().Convert(name, kt)
	if !ok {
		return types.Errorf(types.ErrConversion, "cannot use %T as key of %s", name, rv.Type())
	}
	v, err := convertTo(ctx, value, rv.Type().Elem())
	if err != nil {
		return err
	}
	rv.SetMapIndex(mapKey(key, kt), v)
	return nil
}

// checkKey rejects dynamic subscripts: a mapping has no positions.
func checkKey(target, key any) error {
	if d, ok := key.(types.DynamicSubscript); ok {
		return types.Errorf(types.ErrMalformedIndex, "%s applied to mapping %T", d, target)
	}
	return nil
}

func mapKey(key any, t reflect.Type) reflect.Value {
	if key == nil {
		return reflect.Zero(t)
	}
	return reflect.ValueOf(key)
}

func mapLen(target any) (int, error) {
	if m, ok := target.(Mapping); ok {
		return m.Len(), nil
	}
	rv, err := mapValue(target)
	if err != nil {
		return 0, err
	}
	return rv.Len(), nil
}

// MapKeys returns the keys of a map or Mapping. Go map keys are sorted so
// the result is stable; Mapping keys keep the container's order.
func MapKeys(target any) ([]any, error) {
	if m, ok := target.(Mapping); ok {
		return m.Keys(), nil
	}
	rv, err := mapValue(target)
	if err != nil {
		return nil, err
	}
	keys := make([]any, 0, rv.Len())
	for _, k := range sortedKeys(rv) {
		keys = append(keys, k.Interface())
	}
	return keys, nil
}

// MapValues returns the values of a map or Mapping in MapKeys order.
func MapValues(target any) ([]any, error) {
	if m, ok := target.(Mapping); ok {
		keys := m.Keys()
		values := make([]any, len(keys))
		for i, k := range keys {
			values[i], _ = m.Get(k)
		}
		return values, nil
	}
	rv, err := mapValue(target)
	if err != nil {
		return nil, err
	}
	values := make([]any, 0, rv.Len())
	for _, k := range sortedKeys(rv) {
		values = append(values, rv.MapIndex(k).Interface())
	}
	return values, nil
}

func sortedKeys(rv reflect.Value) []reflect.Value {
	keys := rv.MapKeys()
	slices.SortFunc(keys, func(a, b reflect.Value) int {
		ka, kb := a.Interface(), b.Interface()
		if c, err := coerce.Compare(ka, kb); err == nil {
			return c
		}
		return cmp.Compare(coerce.StringValue(ka), coerce.StringValue(kb))
	})
	return keys
}

// MappingMethodAccessor adds size, isEmpty, containsKey, get, keys and
// values to mappings that do not declare methods of those names.
type MappingMethodAccessor struct{ ObjectMethodAccessor }

// CallMethod implements MethodAccessor.
func (a MappingMethodAccessor) CallMethod(ctx Context, target any, name string, args []any) (any, error) {
	if v, found, err := InvokeMethod(ctx, target, name, args); found {
		return v, err
	}
	switch name {
	case "size", "isEmpty", "keys", "keySet", "values":
		if err := arity(name, args, 0); err != nil {
			return nil, err
		}
		switch name {
		case "size":
			return mapLen(target)
		case "isEmpty":
			n, err := mapLen(target)
			return n == 0, err
		case "values":
			return MapValues(target)
		}
		return MapKeys(target)
	case "get":
		if err := arity(name, args, 1); err != nil {
			return nil, err
		}
		return MappingAccessor{}.GetProperty(indexedContext{ctx}, target, args[0])
	case "containsKey":
		if err := arity(name, args, 1); err != nil {
			return nil, err
		}
		return containsKey(ctx, target, args[0])
	}
	return a.ObjectMethodAccessor.CallMethod(ctx, target, name, args)
}

func containsKey(ctx Context, target, key any) (bool, error) {
	if err := checkKey(target, key); err != nil {
		return false, err
	}
	if m, ok := target.(Mapping); ok {
		_, found := m.Get(key)
		return found, nil
	}
	rv, err := mapValue(target)
	if err != nil {
		return false, err
	}
	k, ok := ctx.Converter().Convert(key, rv.Type().Key())
	if !ok {
		return false, nil
	}
	return rv.MapIndex(mapKey(k, rv.Type().Key())).IsValid(), nil
}

// indexedContext forces index semantics so a key is never taken for a
// pseudo-property.
type indexedContext struct{ Context }

func (indexedContext) IndexedAccess() bool { return true }

// SetAccessor serves Set values: size, isEmpty and iterator.
type SetAccessor struct{ ObjectAccessor }

// GetProperty implements PropertyAccessor.
func (a SetAccessor) GetProperty(ctx Context, target, name any) (any, error) {
	s, ok := target.(Set)
	if !ok {
		return a.ObjectAccessor.GetProperty(ctx, target, name)
	}
	switch name {
	case "size":
		return s.Len(), nil
	case "isEmpty":
		return s.Len() == 0, nil
	case "iterator":
		return NewIterator(s.All()), nil
	}
	return a.ObjectAccessor.GetProperty(ctx, target, name)
}

// IteratorAccessor serves Iterator values: next advances the cursor and
// hasNext reports whether it can.
type IteratorAccessor struct{ ObjectAccessor }

// GetProperty implements PropertyAccessor.
func (a IteratorAccessor) GetProperty(ctx Context, target, name any) (any, error) {
	it, ok := target.(Iterator)
	if !ok {
		return a.ObjectAccessor.GetProperty(ctx, target, name)
	}
	switch name {
	case "next":
		if !it.HasNext() {
			return nil, types.NewError(types.ErrIndexOutOfRange, "iterator exhausted")
		}
		return it.Next(), nil
	case "hasNext":
		return it.HasNext(), nil
	}
	return a.ObjectAccessor.GetProperty(ctx, target, name)
}
