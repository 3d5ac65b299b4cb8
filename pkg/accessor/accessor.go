// Package accessor resolves properties, methods and element sequences of
// arbitrary Go values through pluggable strategies.
//
// A Registry maps target types to a PropertyAccessor, a MethodAccessor, an
// ElementsAccessor and a NullHandler. Lookup tries an exact type
// registration first, then registered interface bindings, then falls back to
// the built-in accessor for the value's shape (sequence, mapping, set,
// iterator or plain object).
//
// Classes holds what Go reflection cannot discover by itself: class names,
// static fields and functions, constructors and enumerations.
package accessor

import (
	"iter"
	"reflect"

	"github.com/sandrolain/gognl/pkg/coerce"
	"github.com/sandrolain/gognl/pkg/members"
)

// Context is the part of an evaluation an accessor works against.
type Context interface {
	Root() any
	Runtime() *Runtime
	Converter() coerce.Converter
	MemberAccess() members.MemberAccess
	ClassResolver() ClassResolver

	// IndexedAccess reports whether the property being resolved was written
	// with index syntax, as in m["size"] rather than m.size.
	IndexedAccess() bool

	// SetCurrentType records the static type of the value just resolved.
	SetCurrentType(t reflect.Type)
	// SetCurrentAccessor records the type the member was reached through.
	SetCurrentAccessor(t reflect.Type)
}

// PropertyAccessor reads and writes named or indexed properties. name is
// the evaluated key: a string, a number or a types.DynamicSubscript.
type PropertyAccessor interface {
	GetProperty(ctx Context, target, name any) (any, error)
	SetProperty(ctx Context, target, name, value any) error
}

// MethodAccessor invokes methods on targets and static functions on classes.
type MethodAccessor interface {
	CallMethod(ctx Context, target any, name string, args []any) (any, error)
	CallStaticMethod(ctx Context, class reflect.Type, name string, args []any) (any, error)
}

// ElementsAccessor turns a value into the sequence of its elements, as used
// by selection, projection and membership tests.
type ElementsAccessor interface {
	Elements(target any) (iter.Seq[any], error)
}

// NullHandler supplies substitute values when a method or property yields
// nil. Returning nil keeps the nil.
type NullHandler interface {
	NullMethodResult(ctx Context, target any, name string, args []any) any
	NullPropertyValue(ctx Context, target, property any) any
}

// ClassResolver maps class names used by static references, constructors
// and instanceof tests to Go types.
type ClassResolver interface {
	ResolveClass(name string) (reflect.Type, error)
}

// Mapping is a key/value container that is not a Go map.
type Mapping interface {
	Len() int
	Keys() []any
	Get(key any) (any, bool)
	Put(key, value any)
}

// Set is an unordered collection of distinct values.
type Set interface {
	Len() int
	Contains(v any) bool
	All() iter.Seq[any]
}

// Iterator is a stateful cursor over a sequence.
type Iterator interface {
	HasNext() bool
	Next() any
}

// Shape classifies a type for built-in accessor selection.
type Shape uint8

const (
	ShapeObject Shape = iota
	ShapeSequence
	ShapeMapping
	ShapeSet
	ShapeIterator
	ShapeString
)

var (
	mappingType  = reflect.TypeOf((*Mapping)(nil)).Elem()
	setType      = reflect.TypeOf((*Set)(nil)).Elem()
	iteratorType = reflect.TypeOf((*Iterator)(nil)).Elem()
)

func (s Shape) String() string {
	switch s {
	case ShapeSequence:
		return "sequence"
	case ShapeMapping:
		return "mapping"
	case ShapeSet:
		return "set"
	case ShapeIterator:
		return "iterator"
	case ShapeString:
		return "string"
	}
	return "object"
}

// ShapeOf classifies t, most specific shape first.
func ShapeOf(t reflect.Type) Shape {
	if t == nil {
		return ShapeObject
	}
	k := t.Kind()
	if k == reflect.Ptr {
		switch t.Elem().Kind() {
		case reflect.Slice, reflect.Array:
			return ShapeSequence
		case reflect.Map:
			return ShapeMapping
		}
	}
	switch {
	case k == reflect.Slice || k == reflect.Array:
		return ShapeSequence
	case k == reflect.Map || t.Implements(mappingType):
		return ShapeMapping
	case t.Implements(setType):
		return ShapeSet
	case t.Implements(iteratorType):
		return ShapeIterator
	case k == reflect.String:
		return ShapeString
	}
	return ShapeObject
}
