// Package members resolves the methods, fields and bean-style properties of
// Go types by name, caching every reflective scan per type.
//
// Property names follow an accessor-naming convention: a property "name" is
// read through GetName(), IsName() or Name() and written through SetName(v).
// Fields are matched by their `gognl:"..."` tag, their Go name or their
// capitalized name, walking embedded structs outward.
//
// Go has no method overloading, so additional overloads (and methods for
// types the host does not own) are supplied with Resolver.RegisterMethod.
package members

import (
	"fmt"
	"reflect"
	"strings"
	"unsafe"

	"github.com/sandrolain/gognl/pkg/types"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Member is the view of a method or field that access policies inspect.
type Member interface {
	MemberName() string
	DeclaringType() reflect.Type
	IsExported() bool
}

// Method describes a callable member: a Go method, a registered extension
// method, a static function or a constructor.
type Method struct {
	Name      string
	Declaring reflect.Type

	fn         reflect.Value
	receiver   bool
	params     []reflect.Type
	variadic   bool
	result     reflect.Type
	returnsErr bool
}

func newMethod(name string, declaring reflect.Type, fn reflect.Value, receiver bool) *Method {
	ft := fn.Type()
	m := &Method{
		Name:      name,
		Declaring: declaring,
		fn:        fn,
		receiver:  receiver,
		variadic:  ft.IsVariadic(),
	}
	first := 0
	if receiver {
		first = 1
	}
	for i := first; i < ft.NumIn(); i++ {
		m.params = append(m.params, ft.In(i))
	}
	outs := ft.NumOut()
	if outs > 0 && ft.Out(outs-1) == errorType {
		m.returnsErr = true
		outs--
	}
	if outs > 0 {
		m.result = ft.Out(0)
	}
	return m
}

// NewFunc wraps fn as a receiver-less method, as used for static functions
// and constructors.
func NewFunc(name string, declaring reflect.Type, fn any) (*Method, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func || fv.IsNil() {
		return nil, fmt.Errorf("members: %s: %T is not a function", name, fn)
	}
	return newMethod(name, declaring, fv, false), nil
}

// Params returns the parameter types, excluding the receiver.
func (m *Method) Params() []reflect.Type { return m.params }

// IsVariadic reports whether the last parameter is variadic.
func (m *Method) IsVariadic() bool { return m.variadic }

// Result returns the type of the first non-error result, or nil.
func (m *Method) Result() reflect.Type { return m.result }

// HasReceiver reports whether the method is invoked on a target.
func (m *Method) HasReceiver() bool { return m.receiver }

func (m *Method) MemberName() string          { return m.Name }
func (m *Method) DeclaringType() reflect.Type { return m.Declaring }
func (m *Method) IsExported() bool            { return true }

func (m *Method) String() string {
	var b strings.Builder
	if m.Declaring != nil {
		b.WriteString(m.Declaring.String())
		b.WriteByte('.')
	}
	b.WriteString(m.Name)
	b.WriteByte('(')
	for i, p := range m.params {
		if i > 0 {
			b.WriteString(", ")
		}
		if m.variadic && i == len(m.params)-1 {
			b.WriteString("..." + p.Elem().String())
			continue
		}
		b.WriteString(p.String())
	}
	b.WriteByte(')')
	return b.String()
}

// call invokes the method. Panics and returned errors become
// MethodInvocationFailed errors carrying the cause.
func (m *Method) call(receiver reflect.Value, args []reflect.Value, spread bool) (result any, err error) {
	in := args
	if m.receiver {
		in = make([]reflect.Value, 0, len(args)+1)
		in = append(in, receiver)
		in = append(in, args...)
	}
	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("%v", r)
			}
			result, err = nil, types.Errorf(types.ErrMethodFailed, "%s panicked", m).WithCause(cause)
		}
	}()

	var out []reflect.Value
	if spread {
		out = m.fn.CallSlice(in)
	} else {
		out = m.fn.Call(in)
	}
	if m.returnsErr {
		if e := out[len(out)-1]; !e.IsNil() {
			return nil, types.Errorf(types.ErrMethodFailed, "%s failed", m).WithCause(e.Interface().(error))
		}
	}
	if m.result == nil {
		return nil, nil
	}
	return out[0].Interface(), nil
}

// Invocation is a method selected for a concrete argument list, with the
// arguments already converted to the parameter types.
type Invocation struct {
	Method *Method
	Args   []reflect.Value
	Spread bool
}

// Invoke calls the selected method on receiver.
func (inv *Invocation) Invoke(receiver any) (any, error) {
	var rv reflect.Value
	if inv.Method.receiver {
		if receiver == nil {
			return nil, types.Errorf(types.ErrNullSource, "cannot invoke %s on nil", inv.Method)
		}
		rv = reflect.ValueOf(receiver)
	}
	return inv.Method.call(rv, inv.Args, inv.Spread)
}

// Field describes a struct field reachable from a type, possibly promoted
// through embedded structs.
type Field struct {
	Name      string
	Index     []int
	Type      reflect.Type
	Declaring reflect.Type
	exported  bool
}

func (f *Field) MemberName() string          { return f.Name }
func (f *Field) DeclaringType() reflect.Type { return f.Declaring }
func (f *Field) IsExported() bool            { return f.exported }

// Get reads the field from target, which may be a struct or a pointer to
// one. Unexported fields are read through their address.
func (f *Field) Get(target any) (any, error) {
	v, err := f.value(reflect.ValueOf(target))
	if err != nil {
		return nil, err
	}
	if !v.CanInterface() {
		if !v.CanAddr() {
			return nil, types.Errorf(types.ErrNotAddressable, "field %s of %s is not addressable", f.Name, f.Declaring)
		}
		v = reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem()
	}
	return v.Interface(), nil
}

// Set writes value into the field of target. target must be a pointer so
// the write is visible to the caller; value must be assignable.
func (f *Field) Set(target any, value reflect.Value) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr {
		return types.Errorf(types.ErrNotAddressable, "cannot set field %s on a %s value; pass a pointer", f.Name, rv.Type())
	}
	v, err := f.value(rv)
	if err != nil {
		return err
	}
	if !v.CanSet() {
		v = reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem()
	}
	v.Set(value)
	return nil
}

func (f *Field) value(rv reflect.Value) (reflect.Value, error) {
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return reflect.Value{}, types.Errorf(types.ErrNullSource, "cannot access field %s of nil %s", f.Name, rv.Type())
		}
		rv = rv.Elem()
	} else {
		// Copy into an addressable value so unexported fields stay readable.
		tmp := reflect.New(rv.Type()).Elem()
		tmp.Set(rv)
		rv = tmp
	}
	v, err := rv.FieldByIndexErr(f.Index)
	if err != nil {
		return reflect.Value{}, types.Errorf(types.ErrNullSource, "cannot access field %s", f.Name).WithCause(err)
	}
	return v, nil
}
