package accessor

import (
	"reflect"

	"github.com/sandrolain/gognl/pkg/coerce"
	"github.com/sandrolain/gognl/pkg/members"
	"github.com/sandrolain/gognl/pkg/types"
)

// ObjectAccessor reads and writes properties of arbitrary values through
// reader/writer methods and struct fields.
type ObjectAccessor struct{}

// GetProperty implements PropertyAccessor.
func (ObjectAccessor) GetProperty(ctx Context, target, name any) (any, error) {
	pname, err := propertyName(target, name)
	if err != nil {
		return nil, err
	}
	v, found, err := ReadProperty(ctx, target, pname)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, types.Errorf(types.ErrNoSuchMember, "no property %q on %T", pname, target)
	}
	return v, nil
}

// SetProperty implements PropertyAccessor.
func (ObjectAccessor) SetProperty(ctx Context, target, name, value any) error {
	pname, err := propertyName(target, name)
	if err != nil {
		return err
	}
	found, err := WriteProperty(ctx, target, pname, value)
	if err != nil {
		return err
	}
	if !found {
		if _, readable := ctx.Runtime().Resolver.Getter(reflect.TypeOf(target), pname); readable {
			return types.Errorf(types.ErrUnsupportedAssignment, "property %q of %T is read-only", pname, target)
		}
		return types.Errorf(types.ErrNoSuchMember, "no writable property %q on %T", pname, target)
	}
	return nil
}

func propertyName(target, name any) (string, error) {
	switch n := name.(type) {
	case string:
		return n, nil
	case types.DynamicSubscript:
		return "", types.Errorf(types.ErrMalformedIndex, "%s applied to non-sequence %T", n, target)
	}
	return coerce.StringValue(name), nil
}

func denied(t reflect.Type, m members.Member, op members.Operation) error {
	return types.Errorf(types.ErrAccessDenied, "%s of %s on %s is not permitted", op, m.MemberName(), t)
}

// ReadProperty reads property name of target through its reader method or,
// failing that, its field. found is false when neither exists.
func ReadProperty(ctx Context, target any, name string) (v any, found bool, err error) {
	t := reflect.TypeOf(target)
	res := ctx.Runtime().Resolver
	gate := ctx.MemberAccess()

	if m, ok := res.Getter(t, name); ok {
		if !gate.IsAccessible(t, m, members.Read) {
			return nil, true, denied(t, m, members.Read)
		}
		v, err = (&members.Invocation{Method: m}).Invoke(target)
		ctx.SetCurrentType(m.Result())
		ctx.SetCurrentAccessor(m.Declaring)
		return v, true, err
	}
	if f, ok := res.Field(t, name); ok {
		if !gate.IsAccessible(t, f, members.Read) {
			return nil, true, denied(t, f, members.Read)
		}
		v, err = f.Get(target)
		ctx.SetCurrentType(f.Type)
		ctx.SetCurrentAccessor(f.Declaring)
		return v, true, err
	}
	return nil, false, nil
}

// WriteProperty writes value into property name of target through its
// writer method or, failing that, its field.
func WriteProperty(ctx Context, target any, name string, value any) (found bool, err error) {
	t := reflect.TypeOf(target)
	res := ctx.Runtime().Resolver
	gate := ctx.MemberAccess()

	if setters := res.Setters(t, name); len(setters) > 0 {
		inv, err := res.Select(ctx.Converter(), t, setters, []any{value})
		if err != nil {
			return true, err
		}
		m := inv.Method
		if !gate.IsAccessible(t, m, members.Write) {
			return true, denied(t, m, members.Write)
		}
		_, err = inv.Invoke(target)
		ctx.SetCurrentAccessor(m.Declaring)
		return true, err
	}
	if f, ok := res.Field(t, name); ok {
		if !gate.IsAccessible(t, f, members.Write) {
			return true, denied(t, f, members.Write)
		}
		rv, err := convertTo(ctx, value, f.Type)
		if err != nil {
			return true, err
		}
		ctx.SetCurrentAccessor(f.Declaring)
		return true, f.Set(target, rv)
	}
	return false, nil
}

// convertTo converts value to t with the context's converter.
func convertTo(ctx Context, value any, t reflect.Type) (reflect.Value, error) {
	v, ok := ctx.Converter().Convert(value, t)
	if !ok {
		return reflect.Value{}, types.Errorf(types.ErrConversion, "cannot convert %T to %s", value, t)
	}
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, types.Errorf(types.ErrConversion, "converter returned %s for %s", rv.Type(), t)
	}
	return rv, nil
}

// ObjectMethodAccessor invokes Go methods, registered extension methods and
// registered static functions.
type ObjectMethodAccessor struct{}

// CallMethod implements MethodAccessor.
func (ObjectMethodAccessor) CallMethod(ctx Context, target any, name string, args []any) (any, error) {
	v, found, err := InvokeMethod(ctx, target, name, args)
	if !found {
		return nil, types.Errorf(types.ErrNoSuchMember, "no method %s on %T", name, target)
	}
	return v, err
}

// CallStaticMethod implements MethodAccessor.
func (ObjectMethodAccessor) CallStaticMethod(ctx Context, class reflect.Type, name string, args []any) (any, error) {
	return callStatic(ctx, class, name, args)
}

// InvokeMethod calls the best overload of name on target. found is false
// when target has no method of that name.
func InvokeMethod(ctx Context, target any, name string, args []any) (v any, found bool, err error) {
	t := reflect.TypeOf(target)
	res := ctx.Runtime().Resolver
	candidates := res.Methods(t, name)
	if len(candidates) == 0 {
		return nil, false, nil
	}
	inv, err := res.Select(ctx.Converter(), t, candidates, args)
	if err != nil {
		return nil, true, err
	}
	if !ctx.MemberAccess().IsAccessible(t, inv.Method, members.Invoke) {
		return nil, true, denied(t, inv.Method, members.Invoke)
	}
	v, err = inv.Invoke(target)
	ctx.SetCurrentType(inv.Method.Result())
	ctx.SetCurrentAccessor(inv.Method.Declaring)
	return v, true, err
}
