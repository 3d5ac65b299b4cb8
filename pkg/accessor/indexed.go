package accessor

import (
	"reflect"

	"github.com/sandrolain/gognl/pkg/coerce"
	"github.com/sandrolain/gognl/pkg/members"
	"github.com/sandrolain/gognl/pkg/types"
)

// IndexedLength returns the number of elements of an integer-indexed
// property: from its length method when present, otherwise from the length
// of the whole property.
func IndexedLength(ctx Context, target any, ip *members.IndexedProperty) (int, error) {
	if ip.Length != nil {
		v, err := (&members.Invocation{Method: ip.Length}).Invoke(target)
		if err != nil {
			return 0, err
		}
		n, err := coerce.LongValue(v)
		return int(n), err
	}
	whole, found, err := ReadProperty(ctx, target, ip.Name)
	if err != nil {
		return 0, err
	}
	rv := reflect.ValueOf(whole)
	if !found || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return 0, types.Errorf(types.ErrMalformedIndex, "length of indexed property %s on %T is unknown", ip.Name, target)
	}
	return rv.Len(), nil
}

// GetIndexed reads element index of an indexed property. Dynamic
// subscripts resolve against IndexedLength; $all reads every element.
func GetIndexed(ctx Context, target any, ip *members.IndexedProperty, index any) (any, error) {
	t := reflect.TypeOf(target)
	if !ctx.MemberAccess().IsAccessible(t, ip.Getter, members.Read) {
		return nil, denied(t, ip.Getter, members.Read)
	}
	if d, ok := index.(types.DynamicSubscript); ok && !ip.ObjectIndexed {
		n, err := IndexedLength(ctx, target, ip)
		if err != nil {
			return nil, err
		}
		if d == types.SubscriptAll {
			out := reflect.MakeSlice(reflect.SliceOf(ip.Getter.Result()), n, n)
			for i := range n {
				v, err := callIndexed(ctx, target, ip.Getter, i)
				if err != nil {
					return nil, err
				}
				out.Index(i).Set(valueFor(v, ip.Getter.Result()))
			}
			ctx.SetCurrentType(out.Type())
			return out.Interface(), nil
		}
		i, ok := d.Index(n)
		if !ok {
			return nil, nil
		}
		index = i
	}
	v, err := callIndexed(ctx, target, ip.Getter, index)
	ctx.SetCurrentType(ip.Getter.Result())
	ctx.SetCurrentAccessor(ip.Getter.Declaring)
	return v, err
}

// SetIndexed writes element index of an indexed property.
func SetIndexed(ctx Context, target any, ip *members.IndexedProperty, index, value any) error {
	t := reflect.TypeOf(target)
	if ip.Setter == nil {
		return types.Errorf(types.ErrUnsupportedAssignment, "indexed property %s of %s is read-only", ip.Name, t)
	}
	if !ctx.MemberAccess().IsAccessible(t, ip.Setter, members.Write) {
		return denied(t, ip.Setter, members.Write)
	}
	if d, ok := index.(types.DynamicSubscript); ok && !ip.ObjectIndexed {
		n, err := IndexedLength(ctx, target, ip)
		if err != nil {
			return err
		}
		if d == types.SubscriptAll {
			return setAllIndexed(ctx, target, ip, n, value)
		}
		i, ok := d.Index(n)
		if !ok {
			return nil
		}
		index = i
	}
	_, err := callIndexed(ctx, target, ip.Setter, index, value)
	return err
}

// setAllIndexed writes every element of an indexed property from a
// sequence of the same length. Each element is converted before any setter
// runs.
func setAllIndexed(ctx Context, target any, ip *members.IndexedProperty, n int, value any) error {
	src := reflect.ValueOf(value)
	if value == nil || (src.Kind() != reflect.Slice && src.Kind() != reflect.Array) {
		return types.Errorf(types.ErrMalformedIndex, "%s needs a sequence, got %T", types.SubscriptAll, value)
	}
	if src.Len() != n {
		return types.Errorf(types.ErrMalformedIndex, "%s of indexed property %s needs %d elements, got %d", types.SubscriptAll, ip.Name, n, src.Len())
	}
	t := reflect.TypeOf(target)
	calls := make([]*members.Invocation, n)
	for i := range calls {
		inv, err := ctx.Runtime().Resolver.Select(ctx.Converter(), t, []*members.Method{ip.Setter}, []any{i, src.Index(i).Interface()})
		if err != nil {
			return err
		}
		calls[i] = inv
	}
	for _, inv := range calls {
		if _, err := inv.Invoke(target); err != nil {
			return err
		}
	}
	ctx.SetCurrentAccessor(ip.Setter.Declaring)
	return nil
}

func callIndexed(ctx Context, target any, m *members.Method, args ...any) (any, error) {
	inv, err := ctx.Runtime().Resolver.Select(ctx.Converter(), reflect.TypeOf(target), []*members.Method{m}, args)
	if err != nil {
		return nil, err
	}
	return inv.Invoke(target)
}

func valueFor(v any, t reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}
	return reflect.ValueOf(v)
}
