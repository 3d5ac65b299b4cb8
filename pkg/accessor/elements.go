package accessor

import (
	"iter"
	"reflect"

	"github.com/sandrolain/gognl/pkg/coerce"
	"github.com/sandrolain/gognl/pkg/types"
)

// DefaultElements enumerates:
//
//   - slices and arrays, in order
//   - Go maps, values in sorted key order
//   - Mapping values, values in key order
//   - Set values and iter.Seq[any] functions, as they yield
//   - Iterator values, draining them
//   - receive channels, until closed
//   - integers n, as 0 … n-1
//   - nil, as nothing
//   - anything else, as itself
type DefaultElements struct{}

// Elements implements ElementsAccessor.
func (DefaultElements) Elements(target any) (iter.Seq[any], error) {
	switch t := target.(type) {
	case nil:
		return func(func(any) bool) {}, nil
	case iter.Seq[any]:
		return t, nil
	case func(func(any) bool):
		return t, nil
	case Mapping:
		values, err := MapValues(t)
		if err != nil {
			return nil, err
		}
		return sliceSeq(values), nil
	case Set:
		return t.All(), nil
	case Iterator:
		return func(yield func(any) bool) {
			for t.HasNext() {
				if !yield(t.Next()) {
					return
				}
			}
		}, nil
	}

	rv := reflect.ValueOf(target)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		switch rv.Elem().Kind() {
		case reflect.Slice, reflect.Array, reflect.Map:
			rv = rv.Elem()
		}
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return func(yield func(any) bool) {
			for i := range rv.Len() {
				if !yield(rv.Index(i).Interface()) {
					return
				}
			}
		}, nil
	case reflect.Map:
		values, err := MapValues(rv.Interface())
		if err != nil {
			return nil, err
		}
		return sliceSeq(values), nil
	case reflect.Chan:
		if rv.Type().ChanDir()&reflect.RecvDir == 0 {
			return nil, types.Errorf(types.ErrEvaluation, "cannot receive from %s", rv.Type())
		}
		return func(yield func(any) bool) {
			for {
				v, ok := rv.Recv()
				if !ok || !yield(v.Interface()) {
					return
				}
			}
		}, nil
	}
	if coerce.IsNumber(target) && coerce.TypeOf(target).IsIntegral() {
		n, err := coerce.LongValue(target)
		if err != nil {
			return nil, err
		}
		return func(yield func(any) bool) {
			for i := range int(n) {
				if !yield(i) {
					return
				}
			}
		}, nil
	}
	return func(yield func(any) bool) { yield(target) }, nil
}

func sliceSeq(items []any) iter.Seq[any] {
	return func(yield func(any) bool) {
		for _, v := range items {
			if !yield(v) {
				return
			}
		}
	}
}

type sliceIterator struct {
	items []any
	pos   int
}

func (it *sliceIterator) HasNext() bool { return it.pos < len(it.items) }

func (it *sliceIterator) Next() any {
	if it.pos >= len(it.items) {
		return nil
	}
	v := it.items[it.pos]
	it.pos++
	return v
}

// NewIterator returns an Iterator over a snapshot of seq.
func NewIterator(seq iter.Seq[any]) Iterator {
	it := &sliceIterator{}
	for v := range seq {
		it.items = append(it.items, v)
	}
	return it
}

func newValueIterator(rv reflect.Value) Iterator {
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return &sliceIterator{items: items}
}

// DefaultNullHandler keeps nil results as they are.
type DefaultNullHandler struct{}

// NullMethodResult implements NullHandler.
func (DefaultNullHandler) NullMethodResult(Context, any, string, []any) any { return nil }

// NullPropertyValue implements NullHandler.
func (DefaultNullHandler) NullPropertyValue(Context, any, any) any { return nil }
