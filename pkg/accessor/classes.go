package accessor

import (
	"fmt"
	"math/big"
	"reflect"
	"sync"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/sandrolain/gognl/pkg/coerce"
	"github.com/sandrolain/gognl/pkg/members"
	"github.com/sandrolain/gognl/pkg/types"
)

// StaticField is a registered class-level value. Fields registered by
// pointer are mutable; constants and enum values are not.
type StaticField struct {
	Name      string
	Declaring reflect.Type

	ptr   reflect.Value
	value any
}

func (f *StaticField) MemberName() string          { return f.Name }
func (f *StaticField) DeclaringType() reflect.Type { return f.Declaring }
func (f *StaticField) IsExported() bool            { return true }

// Mutable reports whether the field can be assigned.
func (f *StaticField) Mutable() bool { return f.ptr.IsValid() }

// Type returns the static type of the field.
func (f *StaticField) Type() reflect.Type {
	if f.ptr.IsValid() {
		return f.ptr.Type().Elem()
	}
	return reflect.TypeOf(f.value)
}

// Get returns the current value.
func (f *StaticField) Get() any {
	if f.ptr.IsValid() {
		return f.ptr.Elem().Interface()
	}
	return f.value
}

func (f *StaticField) set(v reflect.Value) error {
	if !f.ptr.IsValid() {
		return types.Errorf(types.ErrUnsupportedAssignment, "%s.%s is constant", f.Declaring, f.Name)
	}
	f.ptr.Elem().Set(v)
	return nil
}

type classInfo struct {
	fields map[string]*StaticField
	funcs  map[string][]*members.Method
	ctors  []*members.Method
	enum   []any
}

// Classes maps class names to Go types and holds their static members,
// constructors and enumerations.
//
// THREAD-SAFETY: safe for concurrent use; registration is meant for setup
// time.
type Classes struct {
	mu     sync.RWMutex
	byName map[string]reflect.Type
	info   map[reflect.Type]*classInfo
}

// NewClasses creates a registry knowing the predeclared types and the
// numeric and container types evaluation produces.
func NewClasses() *Classes {
	c := &Classes{
		byName: make(map[string]reflect.Type),
		info:   make(map[reflect.Type]*classInfo),
	}
	for name, v := range map[string]any{
		"bool": false, "string": "", "int": 0, "int8": int8(0), "int16": int16(0),
		"int32": int32(0), "int64": int64(0), "uint": uint(0), "uint8": uint8(0),
		"uint16": uint16(0), "uint32": uint32(0), "uint64": uint64(0),
		"float32": float32(0), "float64": float64(0),
	} {
		c.Register(name, reflect.TypeOf(v))
	}
	c.Register("byte", reflect.TypeOf(byte(0)))
	c.Register("rune", reflect.TypeOf(rune(0)))
	c.Register("any", reflect.TypeOf((*any)(nil)).Elem())
	c.Register("error", reflect.TypeOf((*error)(nil)).Elem())
	c.Register("list", reflect.TypeOf([]any(nil)))
	c.Register("map", reflect.TypeOf(map[string]any(nil)))
	c.RegisterType(reflect.TypeOf(time.Time{}))
	c.RegisterType(reflect.TypeOf(time.Duration(0)))
	c.RegisterType(reflect.TypeOf((*big.Int)(nil)))
	c.RegisterType(reflect.TypeOf((*apd.Decimal)(nil)))

	omType := reflect.TypeOf((*OrderedMap)(nil))
	c.RegisterType(omType)
	_ = c.RegisterConstructor(omType, NewOrderedMap)
	_ = c.RegisterConstructor(reflect.TypeOf((*big.Int)(nil)), big.NewInt)
	_ = c.RegisterConstructor(reflect.TypeOf((*apd.Decimal)(nil)), func(s string) (*apd.Decimal, error) {
		d, _, err := apd.NewFromString(s)
		return d, err
	})
	return c
}

// Register makes t resolvable as name.
func (c *Classes) Register(name string, t reflect.Type) {
	c.mu.Lock()
	c.byName[name] = t
	c.mu.Unlock()
}

// RegisterType registers t under its package-qualified name ("time.Time")
// and, for named types, its bare name. Pointer types register under the
// names of the type they point to.
func (c *Classes) RegisterType(t reflect.Type) {
	named := t
	if named.Kind() == reflect.Ptr && named.Name() == "" {
		named = named.Elem()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if qualified := named.String(); qualified != "" {
		c.byName[qualified] = t
	}
	if named.Name() != "" {
		if _, taken := c.byName[named.Name()]; !taken {
			c.byName[named.Name()] = t
		}
	}
}

// ResolveClass implements ClassResolver.
func (c *Classes) ResolveClass(name string) (reflect.Type, error) {
	c.mu.RLock()
	t, ok := c.byName[name]
	c.mu.RUnlock()
	if !ok {
		return nil, types.Errorf(types.ErrUnknownClass, "unknown class %q", name)
	}
	return t, nil
}

func (c *Classes) infoLocked(t reflect.Type) *classInfo {
	ci := c.info[t]
	if ci == nil {
		ci = &classInfo{
			fields: make(map[string]*StaticField),
			funcs:  make(map[string][]*members.Method),
		}
		c.info[t] = ci
	}
	return ci
}

// RegisterStaticField exposes the variable ptr points to as a mutable
// static field of class.
func (c *Classes) RegisterStaticField(class reflect.Type, name string, ptr any) error {
	pv := reflect.ValueOf(ptr)
	if pv.Kind() != reflect.Ptr || pv.IsNil() {
		return fmt.Errorf("accessor: static field %s.%s: %T is not a non-nil pointer", class, name, ptr)
	}
	c.mu.Lock()
	c.infoLocked(class).fields[name] = &StaticField{Name: name, Declaring: class, ptr: pv}
	c.mu.Unlock()
	return nil
}

// RegisterConstant exposes value as an immutable static field of class.
func (c *Classes) RegisterConstant(class reflect.Type, name string, value any) {
	c.mu.Lock()
	c.infoLocked(class).fields[name] = &StaticField{Name: name, Declaring: class, value: value}
	c.mu.Unlock()
}

// RegisterStaticFunc adds fns as overloads of static function name.
func (c *Classes) RegisterStaticFunc(class reflect.Type, name string, fns ...any) error {
	ms := make([]*members.Method, 0, len(fns))
	for _, fn := range fns {
		m, err := members.NewFunc(name, class, fn)
		if err != nil {
			return err
		}
		ms = append(ms, m)
	}
	c.mu.Lock()
	ci := c.infoLocked(class)
	ci.funcs[name] = append(ci.funcs[name], ms...)
	c.mu.Unlock()
	return nil
}

// RegisterConstructor adds fns as constructors of class. Each must return a
// value assignable to class, optionally followed by an error.
func (c *Classes) RegisterConstructor(class reflect.Type, fns ...any) error {
	ms := make([]*members.Method, 0, len(fns))
	for _, fn := range fns {
		m, err := members.NewFunc("new", class, fn)
		if err != nil {
			return err
		}
		if m.Result() == nil || !m.Result().AssignableTo(class) {
			return fmt.Errorf("accessor: constructor %s does not return %s", m, class)
		}
		ms = append(ms, m)
	}
	c.mu.Lock()
	ci := c.infoLocked(class)
	ci.ctors = append(ci.ctors, ms...)
	c.mu.Unlock()
	return nil
}

// RegisterEnum declares values as the members of enumeration class. Each
// value is reachable as a static field named by its String form.
func (c *Classes) RegisterEnum(class reflect.Type, values ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ci := c.infoLocked(class)
	for _, v := range values {
		if reflect.TypeOf(v) != class {
			return fmt.Errorf("accessor: enum %s: value %v has type %T", class, v, v)
		}
		ci.enum = append(ci.enum, v)
		name := coerce.StringValue(v)
		ci.fields[name] = &StaticField{Name: name, Declaring: class, value: v}
	}
	return nil
}

// StaticField returns the registered static field name of class.
func (c *Classes) StaticField(class reflect.Type, name string) (*StaticField, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ci := c.info[class]
	if ci == nil {
		return nil, false
	}
	f, ok := ci.fields[name]
	return f, ok
}

// StaticFuncs returns the overloads of static function name, also matching
// its capitalized form.
func (c *Classes) StaticFuncs(class reflect.Type, name string) []*members.Method {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ci := c.info[class]
	if ci == nil {
		return nil
	}
	found := ci.funcs[name]
	if cname := members.Capitalize(name); cname != name {
		if more := ci.funcs[cname]; len(more) > 0 {
			found = append(found[:len(found):len(found)], more...)
		}
	}
	return found
}

// Constructors returns the registered constructors of class.
func (c *Classes) Constructors(class reflect.Type) []*members.Method {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if ci := c.info[class]; ci != nil {
		return ci.ctors
	}
	return nil
}

// EnumValues returns the members of enumeration class in registration
// order, or nil when class is not an enumeration.
func (c *Classes) EnumValues(class reflect.Type) []any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if ci := c.info[class]; ci != nil {
		return ci.enum
	}
	return nil
}
