package accessor

import (
	"reflect"

	"github.com/sandrolain/gognl/pkg/coerce"
	"github.com/sandrolain/gognl/pkg/members"
	"github.com/sandrolain/gognl/pkg/types"
)

// GetStaticField reads a class-level value. The name "class" yields the
// class itself.
func GetStaticField(ctx Context, class reflect.Type, name string) (any, error) {
	if name == "class" {
		return class, nil
	}
	f, ok := ctx.Runtime().Classes.StaticField(class, name)
	if !ok {
		return nil, types.Errorf(types.ErrNoSuchMember, "no static field %s.%s", class, name)
	}
	if !ctx.MemberAccess().IsAccessible(class, f, members.Read) {
		return nil, denied(class, f, members.Read)
	}
	ctx.SetCurrentType(f.Type())
	ctx.SetCurrentAccessor(class)
	return f.Get(), nil
}

// SetStaticField assigns a mutable class-level value.
func SetStaticField(ctx Context, class reflect.Type, name string, value any) error {
	f, ok := ctx.Runtime().Classes.StaticField(class, name)
	if !ok {
		if name == "class" {
			return types.Errorf(types.ErrUnsupportedAssignment, "%s.class is constant", class)
		}
		return types.Errorf(types.ErrNoSuchMember, "no static field %s.%s", class, name)
	}
	if !f.Mutable() {
		return types.Errorf(types.ErrUnsupportedAssignment, "%s.%s is constant", class, name)
	}
	if !ctx.MemberAccess().IsAccessible(class, f, members.Write) {
		return denied(class, f, members.Write)
	}
	v, err := convertTo(ctx, value, f.Type())
	if err != nil {
		return err
	}
	return f.set(v)
}

// IsConstantStatic reports whether name on class always reads the same
// value.
func IsConstantStatic(rt *Runtime, class reflect.Type, name string) bool {
	if name == "class" {
		return true
	}
	f, ok := rt.Classes.StaticField(class, name)
	return ok && !f.Mutable()
}

// CallStatic invokes static function name of class through the method
// accessor registered for class.
func CallStatic(ctx Context, class reflect.Type, name string, args []any) (any, error) {
	return ctx.Runtime().Registry.MethodAccessor(class).CallStaticMethod(ctx, class, name, args)
}

func callStatic(ctx Context, class reflect.Type, name string, args []any) (any, error) {
	candidates := ctx.Runtime().Classes.StaticFuncs(class, name)
	if len(candidates) == 0 {
		return nil, types.Errorf(types.ErrNoSuchMember, "no static function %s.%s", class, name)
	}
	inv, err := ctx.Runtime().Resolver.Select(ctx.Converter(), class, candidates, args)
	if err != nil {
		return nil, err
	}
	if !ctx.MemberAccess().IsAccessible(class, inv.Method, members.Invoke) {
		return nil, denied(class, inv.Method, members.Invoke)
	}
	v, err := inv.Invoke(nil)
	ctx.SetCurrentType(inv.Method.Result())
	ctx.SetCurrentAccessor(class)
	return v, err
}

// Construct creates a value of class. Registered constructors are matched
// against args by overload resolution. Without one, no arguments yield a
// fresh zero value (a pointer for structs) and a single argument is
// converted to class.
func Construct(ctx Context, class reflect.Type, args []any) (any, error) {
	if ctors := ctx.Runtime().Classes.Constructors(class); len(ctors) > 0 {
		inv, err := ctx.Runtime().Resolver.Select(ctx.Converter(), class, ctors, args)
		if err != nil {
			return nil, err
		}
		if !ctx.MemberAccess().IsAccessible(class, inv.Method, members.Invoke) {
			return nil, denied(class, inv.Method, members.Invoke)
		}
		return inv.Invoke(nil)
	}
	switch len(args) {
	case 0:
		return zeroValue(class), nil
	case 1:
		if v, ok := ctx.Converter().Convert(args[0], class); ok {
			return v, nil
		}
	}
	return nil, types.Errorf(types.ErrNoOverload, "no constructor of %s accepts %d argument(s)", class, len(args))
}

func zeroValue(t reflect.Type) any {
	switch t.Kind() {
	case reflect.Struct:
		return reflect.New(t).Interface()
	case reflect.Ptr:
		return reflect.New(t.Elem()).Interface()
	case reflect.Map:
		return reflect.MakeMap(t).Interface()
	case reflect.Slice:
		return reflect.MakeSlice(t, 0, 0).Interface()
	case reflect.Chan:
		return reflect.MakeChan(t, 0).Interface()
	}
	return reflect.Zero(t).Interface()
}

// NewArray creates a slice of elem. sizeOrSource is either a length or a
// sequence whose elements are converted into the new slice.
func NewArray(ctx Context, elem reflect.Type, sizeOrSource any) (any, error) {
	st := reflect.SliceOf(elem)
	if coerce.IsNumber(sizeOrSource) {
		n, err := coerce.LongValue(sizeOrSource)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, types.Errorf(types.ErrIndexOutOfRange, "negative array size %d", n)
		}
		return reflect.MakeSlice(st, int(n), int(n)).Interface(), nil
	}
	rv := reflect.ValueOf(sizeOrSource)
	if sizeOrSource == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, types.Errorf(types.ErrConversion, "array of %s needs a size or a sequence, got %T", elem, sizeOrSource)
	}
	v, err := convertTo(ctx, sizeOrSource, st)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}
