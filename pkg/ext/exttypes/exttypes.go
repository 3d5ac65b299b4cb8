// Package exttypes provides the Types static class: predicates over the
// dynamic kind of a value and null defaulting.
package exttypes

import (
	"reflect"

	"github.com/sandrolain/gognl/pkg/coerce"
	"github.com/sandrolain/gognl/pkg/ext/extutil"
	"github.com/sandrolain/gognl/pkg/functions"
)

// Types marks the Types class.
type Types struct{}

// Class returns the Types class.
func Class() functions.Class {
	return extutil.Class[Types]("Types", All())
}

// All returns all type function definitions.
func All() []functions.Func {
	return []functions.Func{
		IsString(),
		IsNumber(),
		IsBoolean(),
		IsList(),
		IsMap(),
		IsNull(),
		IsFunction(),
		IsEmpty(),
		Default(),
		TypeName(),
	}
}

// Predicates take any so that no argument is converted before inspection.

// IsString returns the definition for isString(v).
func IsString() functions.Func {
	return extutil.Fn("isString", func(v any) bool {
		_, ok := v.(string)
		return ok
	})
}

// IsNumber returns the definition for isNumber(v). Every rung of the
// numeric ladder counts, big integers and decimals included.
func IsNumber() functions.Func {
	return extutil.Fn("isNumber", coerce.IsNumber)
}

// IsBoolean returns the definition for isBoolean(v).
func IsBoolean() functions.Func {
	return extutil.Fn("isBoolean", func(v any) bool {
		_, ok := v.(bool)
		return ok
	})
}

// IsList returns the definition for isList(v).
func IsList() functions.Func { return extutil.Fn("isList", extutil.IsSequence) }

// IsMap returns the definition for isMap(v).
func IsMap() functions.Func { return extutil.Fn("isMap", extutil.IsMap) }

// IsNull returns the definition for isNull(v). Typed nil pointers, maps and
// slices are null too.
func IsNull() functions.Func {
	return extutil.Fn("isNull", func(v any) bool {
		if v == nil {
			return true
		}
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
			return rv.IsNil()
		}
		return false
	})
}

// IsFunction returns the definition for isFunction(v).
func IsFunction() functions.Func {
	return extutil.Fn("isFunction", func(v any) bool {
		return v != nil && reflect.TypeOf(v).Kind() == reflect.Func
	})
}

// IsEmpty returns the definition for isEmpty(v): null, or a string,
// sequence or map without elements.
func IsEmpty() functions.Func {
	return extutil.Fn("isEmpty", func(v any) bool {
		if v == nil {
			return true
		}
		return extutil.Len(v) == 0
	})
}

// Default returns the definition for default(v, fallback).
func Default() functions.Func {
	return extutil.Fn("default", func(v, fallback any) any {
		if v == nil {
			return fallback
		}
		return v
	})
}

// TypeName returns the definition for typeName(v): the Go type of v, or
// "null".
func TypeName() functions.Func {
	return extutil.Fn("typeName", func(v any) string {
		if v == nil {
			return "null"
		}
		return reflect.TypeOf(v).String()
	})
}
