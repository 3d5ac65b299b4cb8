package accessor

import (
	"reflect"

	"github.com/sandrolain/gognl/pkg/coerce"
	"github.com/sandrolain/gognl/pkg/types"
)

// SequenceAccessor serves slices, arrays and pointers to either.
//
// Names size, length and len yield the length, isEmpty whether it is zero
// and iterator a fresh Iterator. Numeric names index the sequence and
// dynamic subscripts resolve against its current length.
type SequenceAccessor struct{ ObjectAccessor }

func sequenceValue(target any) (reflect.Value, bool, error) {
	rv := reflect.ValueOf(target)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return reflect.Value{}, true, types.Errorf(types.ErrNullSource, "nil %T", target)
		}
		return rv.Elem(), true, nil
	}
	return rv, false, nil
}

// GetProperty implements PropertyAccessor.
func (a SequenceAccessor) GetProperty(ctx Context, target, name any) (any, error) {
	rv, _, err := sequenceValue(target)
	if err != nil {
		return nil, err
	}
	switch n := name.(type) {
	case string:
		switch n {
		case "size", "length", "len":
			return rv.Len(), nil
		case "isEmpty":
			return rv.Len() == 0, nil
		case "iterator":
			return newValueIterator(rv), nil
		}
		return a.ObjectAccessor.GetProperty(ctx, target, name)
	case types.DynamicSubscript:
		ctx.SetCurrentAccessor(rv.Type())
		if n == types.SubscriptAll {
			ctx.SetCurrentType(rv.Type())
			return copySequence(rv), nil
		}
		i, ok := n.Index(rv.Len())
		if !ok {
			return nil, nil
		}
		ctx.SetCurrentType(rv.Type().Elem())
		return rv.Index(i).Interface(), nil
	}
	i, err := sequenceIndex(name, rv.Len())
	if err != nil {
		return nil, err
	}
	ctx.SetCurrentType(rv.Type().Elem())
	ctx.SetCurrentAccessor(rv.Type())
	return rv.Index(i).Interface(), nil
}

// SetProperty implements PropertyAccessor.
func (a SequenceAccessor) SetProperty(ctx Context, target, name, value any) error {
	rv, viaPointer, err := sequenceValue(target)
	if err != nil {
		return err
	}
	switch n := name.(type) {
	case string:
		switch n {
		case "size", "length", "len", "isEmpty", "iterator":
			return types.Errorf(types.ErrUnsupportedAssignment, "%s of %T is read-only", n, target)
		}
		return a.ObjectAccessor.SetProperty(ctx, target, name, value)
	case types.DynamicSubscript:
		if n == types.SubscriptAll {
			return replaceAll(ctx, rv, viaPointer, value)
		}
		i, ok := n.Index(rv.Len())
		if !ok {
			return nil
		}
		return setElement(ctx, rv, i, value)
	}
	i, err := sequenceIndex(name, rv.Len())
	if err != nil {
		return err
	}
	return setElement(ctx, rv, i, value)
}

func sequenceIndex(name any, length int) (int, error) {
	if !coerce.IsNumber(name) {
		return 0, types.Errorf(types.ErrMalformedIndex, "cannot index a sequence with %T", name)
	}
	i, err := coerce.LongValue(name)
	if err != nil {
		return 0, err
	}
	if i < 0 || i >= int64(length) {
		return 0, types.Errorf(types.ErrIndexOutOfRange, "index %d out of range [0,%d)", i, length)
	}
	return int(i), nil
}

func setElement(ctx Context, rv reflect.Value, i int, value any) error {
	el := rv.Index(i)
	if !el.CanSet() {
		return types.Errorf(types.ErrNotAddressable, "element %d of a %s value cannot be set; pass a pointer", i, rv.Type())
	}
	v, err := convertTo(ctx, value, el.Type())
	if err != nil {
		return err
	}
	el.Set(v)
	return nil
}

// replaceAll assigns every element at once. A slice reached through a
// pointer is replaced whole; otherwise the lengths must agree and the
// elements are copied in place.
func replaceAll(ctx Context, rv reflect.Value, viaPointer bool, value any) error {
	src := reflect.ValueOf(value)
	if value == nil || (src.Kind() != reflect.Slice && src.Kind() != reflect.Array) {
		return types.Errorf(types.ErrMalformedIndex, "%s needs a sequence, got %T", types.SubscriptAll, value)
	}
	if viaPointer && rv.Kind() == reflect.Slice {
		v, err := convertTo(ctx, value, rv.Type())
		if err != nil {
			return err
		}
		rv.Set(v)
		return nil
	}
	if src.Len() != rv.Len() {
		return types.Errorf(types.ErrMalformedIndex, "%s needs %d elements, got %d", types.SubscriptAll, rv.Len(), src.Len())
	}
	if rv.Kind() == reflect.Array && !rv.CanSet() {
		return types.Errorf(types.ErrNotAddressable, "a %s value cannot be replaced; pass a pointer", rv.Type())
	}
	elem := rv.Type().Elem()
	converted := make([]reflect.Value, src.Len())
	for i := range converted {
		v, err := convertTo(ctx, src.Index(i).Interface(), elem)
		if err != nil {
			return err
		}
		converted[i] = v
	}
	for i, v := range converted {
		rv.Index(i).Set(v)
	}
	return nil
}

// copySequence returns a fresh sequence with rv's elements, so writes to
// the copy never reach the original.
func copySequence(rv reflect.Value) any {
	if rv.Kind() == reflect.Array {
		out := reflect.New(rv.Type()).Elem()
		out.Set(rv)
		return out.Interface()
	}
	if rv.IsNil() {
		return rv.Interface()
	}
	out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
	reflect.Copy(out, rv)
	return out.Interface()
}

// SequenceMethodAccessor adds size, isEmpty, contains, indexOf and get to
// sequences that do not declare methods of those names.
type SequenceMethodAccessor struct{ ObjectMethodAccessor }

// CallMethod implements MethodAccessor.
func (a SequenceMethodAccessor) CallMethod(ctx Context, target any, name string, args []any) (any, error) {
	if v, found, err := InvokeMethod(ctx, target, name, args); found {
		return v, err
	}
	rv, _, err := sequenceValue(target)
	if err != nil {
		return nil, err
	}
	switch name {
	case "size", "length", "len":
		if err := arity(name, args, 0); err != nil {
			return nil, err
		}
		return rv.Len(), nil
	case "isEmpty":
		if err := arity(name, args, 0); err != nil {
			return nil, err
		}
		return rv.Len() == 0, nil
	case "contains":
		if err := arity(name, args, 1); err != nil {
			return nil, err
		}
		return indexOf(rv, args[0]) >= 0, nil
	case "indexOf":
		if err := arity(name, args, 1); err != nil {
			return nil, err
		}
		return indexOf(rv, args[0]), nil
	case "get":
		if err := arity(name, args, 1); err != nil {
			return nil, err
		}
		return SequenceAccessor{}.GetProperty(ctx, target, args[0])
	}
	return a.ObjectMethodAccessor.CallMethod(ctx, target, name, args)
}

func indexOf(rv reflect.Value, v any) int {
	for i := range rv.Len() {
		if coerce.Equal(rv.Index(i).Interface(), v) {
			return i
		}
	}
	return -1
}

func arity(name string, args []any, n int) error {
	if len(args) != n {
		return types.Errorf(types.ErrNoOverload, "%s takes %d argument(s), got %d", name, n, len(args))
	}
	return nil
}
