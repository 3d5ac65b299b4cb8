package coerce

import (
	"reflect"
)

// Converter converts a value to a target type. It reports false when the
// value cannot be represented as that type.
type Converter interface {
	Convert(value any, to reflect.Type) (any, bool)
}

// ConverterFunc adapts a function to the Converter interface.
type ConverterFunc func(value any, to reflect.Type) (any, bool)

// Convert implements Converter.
func (f ConverterFunc) Convert(value any, to reflect.Type) (any, bool) {
	return f(value, to)
}

// DefaultConverter converts with ConvertValue.
type DefaultConverter struct{}

// Convert implements Converter.
func (DefaultConverter) Convert(value any, to reflect.Type) (any, bool) {
	return ConvertValue(value, to)
}

// ConvertValue converts value to type to using the coercion rules of this
// package: nil becomes the zero value, numbers convert across kinds when
// they fit, anything converts to string and bool, and sequences and maps
// convert element by element.
func ConvertValue(value any, to reflect.Type) (any, bool) {
	if to == nil {
		return value, true
	}
	if value == nil {
		return reflect.Zero(to).Interface(), true
	}
	from := reflect.TypeOf(value)
	if from.AssignableTo(to) {
		return value, true
	}
	switch to {
	case bigIntType:
		b, err := BigIntValue(value)
		return b, err == nil
	case decimalType:
		d, err := DecimalValue(value)
		return d, err == nil
	}
	if from.Kind() == reflect.Ptr && to.Kind() != reflect.Ptr && to.Kind() != reflect.String && TypeOf(value) == NonNumeric {
		rv := reflect.ValueOf(value)
		if rv.IsNil() {
			return reflect.Zero(to).Interface(), true
		}
		return ConvertValue(rv.Elem().Interface(), to)
	}

	out := reflect.New(to).Elem()
	switch to.Kind() {
	case reflect.String:
		out.SetString(StringValue(value))
		return out.Interface(), true
	case reflect.Bool:
		out.SetBool(Truth(value))
		return out.Interface(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if TypeOf(value) == BigInt {
			b, err := BigIntValue(value)
			if err != nil || !b.IsInt64() {
				return nil, false
			}
			out.SetInt(b.Int64())
			return out.Interface(), true
		}
		n, err := LongValue(value)
		if err != nil || out.OverflowInt(n) {
			return nil, false
		}
		out.SetInt(n)
		return out.Interface(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		b, err := BigIntValue(value)
		if err != nil || b.Sign() < 0 || !b.IsUint64() || out.OverflowUint(b.Uint64()) {
			return nil, false
		}
		out.SetUint(b.Uint64())
		return out.Interface(), true
	case reflect.Float32, reflect.Float64:
		f, err := DoubleValue(value)
		if err != nil || out.OverflowFloat(f) {
			return nil, false
		}
		out.SetFloat(f)
		return out.Interface(), true
	case reflect.Slice:
		if s, ok := value.(string); ok && to.Elem().Kind() == reflect.Uint8 {
			return reflect.ValueOf([]byte(s)).Convert(to).Interface(), true
		}
		src := reflect.ValueOf(value)
		if !isSequenceKind(src.Kind()) {
			break
		}
		dst := reflect.MakeSlice(to, src.Len(), src.Len())
		if !convertElements(src, dst, to.Elem()) {
			return nil, false
		}
		return dst.Interface(), true
	case reflect.Array:
		src := reflect.ValueOf(value)
		if !isSequenceKind(src.Kind()) || src.Len() != to.Len() {
			break
		}
		if !convertElements(src, out, to.Elem()) {
			return nil, false
		}
		return out.Interface(), true
	case reflect.Map:
		src := reflect.ValueOf(value)
		if src.Kind() != reflect.Map {
			break
		}
		dst := reflect.MakeMapWithSize(to, src.Len())
		iter := src.MapRange()
		for iter.Next() {
			k, ok := ConvertValue(iter.Key().Interface(), to.Key())
			if !ok {
				return nil, false
			}
			v, ok := ConvertValue(iter.Value().Interface(), to.Elem())
			if !ok {
				return nil, false
			}
			dst.SetMapIndex(valueOf(k, to.Key()), valueOf(v, to.Elem()))
		}
		return dst.Interface(), true
	case reflect.Ptr:
		if from.Kind() != reflect.Ptr {
			v, ok := ConvertValue(value, to.Elem())
			if !ok {
				return nil, false
			}
			p := reflect.New(to.Elem())
			p.Elem().Set(valueOf(v, to.Elem()))
			return p.Interface(), true
		}
	}

	if from.Kind() == to.Kind() && from.ConvertibleTo(to) {
		return reflect.ValueOf(value).Convert(to).Interface(), true
	}
	return nil, false
}

func convertElements(src, dst reflect.Value, elem reflect.Type) bool {
	for i := range src.Len() {
		v, ok := ConvertValue(src.Index(i).Interface(), elem)
		if !ok {
			return false
		}
		dst.Index(i).Set(valueOf(v, elem))
	}
	return true
}

// valueOf wraps v for assignment into a slot of type t; nil yields the zero
// value so interface slots stay assignable.
func valueOf(v any, t reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}
	return reflect.ValueOf(v)
}
