package coerce

import (
	"reflect"
	"strings"

	"github.com/sandrolain/gognl/pkg/types"
)

var intType = reflect.TypeOf(0)

// Compare orders two values. Numbers compare after promotion to a common
// rung; two non-numeric values compare when they are strings or when the
// left one has a Compare method accepting the right one. A non-numeric
// value against a number is read as a double.
func Compare(a, b any) (int, error) {
	if a == nil && b == nil {
		return 0, nil
	}
	t1, t2 := TypeOf(a), TypeOf(b)
	switch Widest(t1, t2, true) {
	case BigInt:
		x, err := BigIntValue(a)
		if err != nil {
			return 0, err
		}
		y, err := BigIntValue(b)
		if err != nil {
			return 0, err
		}
		return x.Cmp(y), nil
	case BigDec:
		x, err := DecimalValue(a)
		if err != nil {
			return 0, err
		}
		y, err := DecimalValue(b)
		if err != nil {
			return 0, err
		}
		return x.Cmp(y), nil
	case NonNumeric:
		if t1 == NonNumeric && t2 == NonNumeric {
			return compareObjects(a, b)
		}
		fallthrough
	case Float, Double:
		x, err := DoubleValue(a)
		if err != nil {
			return 0, err
		}
		y, err := DoubleValue(b)
		if err != nil {
			return 0, err
		}
		switch {
		case x == y:
			return 0, nil
		case x < y:
			return -1, nil
		}
		return 1, nil
	}
	x, err := LongValue(a)
	if err != nil {
		return 0, err
	}
	y, err := LongValue(b)
	if err != nil {
		return 0, err
	}
	switch {
	case x == y:
		return 0, nil
	case x < y:
		return -1, nil
	}
	return 1, nil
}

func compareObjects(a, b any) (int, error) {
	if a != nil && b != nil {
		va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
		if va.Kind() == reflect.String && vb.Kind() == reflect.String {
			return strings.Compare(va.String(), vb.String()), nil
		}
		if m := va.MethodByName("Compare"); m.IsValid() {
			mt := m.Type()
			if mt.NumIn() == 1 && mt.NumOut() == 1 && mt.Out(0) == intType && vb.Type().AssignableTo(mt.In(0)) {
				return int(m.Call([]reflect.Value{vb})[0].Int()), nil
			}
		}
	}
	return 0, types.Errorf(types.ErrInvalidComparison, "invalid comparison: %T and %T", a, b)
}

// Equal reports whether two values are equal after conversion: numbers
// compare by value across rungs, sequences element by element, and values
// that cannot be ordered fall back to deep equality. It never fails.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return isNil(a) && isNil(b)
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if isSequenceKind(va.Kind()) && isSequenceKind(vb.Kind()) {
		if va.Len() != vb.Len() {
			return false
		}
		for i := range va.Len() {
			if !Equal(va.Index(i).Interface(), vb.Index(i).Interface()) {
				return false
			}
		}
		return true
	}
	if c, err := Compare(a, b); err == nil {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

func isSequenceKind(k reflect.Kind) bool {
	return k == reflect.Slice || k == reflect.Array
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
