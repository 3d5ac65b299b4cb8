package accessor

import (
	"reflect"
	"sync"

	"github.com/sandrolain/gognl/pkg/cache"
)

type binding[A any] struct {
	iface    reflect.Type
	accessor A
}

// table resolves one kind of strategy for a type. Resolved lookups are
// cached per type until the next registration.
type table[A any] struct {
	mu       sync.RWMutex
	exact    map[reflect.Type]A
	ifaces   []binding[A]
	resolved cache.OnceMap[reflect.Type, A]
	byShape  func(Shape) A
}

func newTable[A any](byShape func(Shape) A) *table[A] {
	return &table[A]{exact: make(map[reflect.Type]A), byShape: byShape}
}

func (t *table[A]) set(typ reflect.Type, a A) {
	t.mu.Lock()
	t.exact[typ] = a
	if typ.Kind() == reflect.Interface {
		replaced := false
		for i := range t.ifaces {
			if t.ifaces[i].iface == typ {
				t.ifaces[i].accessor = a
				replaced = true
			}
		}
		if !replaced {
			t.ifaces = append(t.ifaces, binding[A]{iface: typ, accessor: a})
		}
	}
	t.mu.Unlock()
	t.resolved.Clear()
}

func (t *table[A]) get(typ reflect.Type) A {
	return t.resolved.Get(typ, t.lookup)
}

func (t *table[A]) lookup(typ reflect.Type) A {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if typ != nil {
		if a, ok := t.exact[typ]; ok {
			return a
		}
		for _, b := range t.ifaces {
			if typ.Implements(b.iface) {
				return b.accessor
			}
		}
	}
	return t.byShape(ShapeOf(typ))
}

// Registry maps target types to their accessor strategies.
//
// THREAD-SAFETY: lookups are safe for concurrent use and are computed once
// per type. Registration clears the resolved lookups and is meant for setup
// time.
type Registry struct {
	properties *table[PropertyAccessor]
	methods    *table[MethodAccessor]
	elements   *table[ElementsAccessor]
	nulls      *table[NullHandler]
}

// NewRegistry creates a registry holding only the built-in accessors.
func NewRegistry() *Registry {
	return &Registry{
		properties: newTable(builtinProperties),
		methods:    newTable(builtinMethods),
		elements:   newTable(func(Shape) ElementsAccessor { return DefaultElements{} }),
		nulls:      newTable(func(Shape) NullHandler { return DefaultNullHandler{} }),
	}
}

func builtinProperties(s Shape) PropertyAccessor {
	switch s {
	case ShapeSequence:
		return SequenceAccessor{}
	case ShapeMapping:
		return MappingAccessor{}
	case ShapeSet:
		return SetAccessor{}
	case ShapeIterator:
		return IteratorAccessor{}
	}
	return ObjectAccessor{}
}

func builtinMethods(s Shape) MethodAccessor {
	switch s {
	case ShapeSequence:
		return SequenceMethodAccessor{}
	case ShapeMapping:
		return MappingMethodAccessor{}
	case ShapeString:
		return StringMethodAccessor{}
	}
	return ObjectMethodAccessor{}
}

// RegisterPropertyAccessor binds a to t. When t is an interface type, a also
// serves every type implementing it.
func (r *Registry) RegisterPropertyAccessor(t reflect.Type, a PropertyAccessor) {
	r.properties.set(t, a)
}

// RegisterMethodAccessor binds a to t.
func (r *Registry) RegisterMethodAccessor(t reflect.Type, a MethodAccessor) {
	r.methods.set(t, a)
}

// RegisterElementsAccessor binds a to t.
func (r *Registry) RegisterElementsAccessor(t reflect.Type, a ElementsAccessor) {
	r.elements.set(t, a)
}

// RegisterNullHandler binds h to t.
func (r *Registry) RegisterNullHandler(t reflect.Type, h NullHandler) {
	r.nulls.set(t, h)
}

// PropertyAccessor returns the property strategy for t. A nil t selects the
// generic object accessor.
func (r *Registry) PropertyAccessor(t reflect.Type) PropertyAccessor { return r.properties.get(t) }

// MethodAccessor returns the method strategy for t.
func (r *Registry) MethodAccessor(t reflect.Type) MethodAccessor { return r.methods.get(t) }

// ElementsAccessor returns the elements strategy for t.
func (r *Registry) ElementsAccessor(t reflect.Type) ElementsAccessor { return r.elements.get(t) }

// NullHandler returns the null handler for t.
func (r *Registry) NullHandler(t reflect.Type) NullHandler { return r.nulls.get(t) }
