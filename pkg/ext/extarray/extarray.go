// Package extarray provides the Lists static class: slicing, flattening,
// chunking, set operations and ranges over sequences.
//
// Every function accepts any slice or array; results are []any.
package extarray

import (
	"fmt"
	"math"
	"reflect"

	"github.com/sandrolain/gognl/pkg/coerce"
	"github.com/sandrolain/gognl/pkg/ext/extutil"
	"github.com/sandrolain/gognl/pkg/functions"
)

var anySlice = reflect.TypeFor[[]any]()

// Lists marks the Lists class.
type Lists struct{}

// Class returns the Lists class.
func Class() functions.Class {
	return extutil.Class[Lists]("Lists", All())
}

// All returns all list function definitions.
func All() []functions.Func {
	return []functions.Func{
		First(),
		Last(),
		Take(),
		Skip(),
		Slice(),
		Reverse(),
		Flatten(),
		Chunk(),
		Distinct(),
		Union(),
		Intersection(),
		Difference(),
		SymmetricDifference(),
		Range(),
		ZipLongest(),
		Window(),
	}
}

// First returns the definition for first(list). Empty lists yield null.
func First() functions.Func {
	return extutil.Fn("first", func(items []any) any {
		if len(items) == 0 {
			return nil
		}
		return items[0]
	})
}

// Last returns the definition for last(list). Empty lists yield null.
func Last() functions.Func {
	return extutil.Fn("last", func(items []any) any {
		if len(items) == 0 {
			return nil
		}
		return items[len(items)-1]
	})
}

// Take returns the definition for take(list, n).
func Take() functions.Func {
	return extutil.Fn("take", func(items []any, n int) ([]any, error) {
		if n < 0 {
			return nil, fmt.Errorf("take: count must not be negative")
		}
		return clone(items[:min(n, len(items))]), nil
	})
}

// Skip returns the definition for skip(list, n).
func Skip() functions.Func {
	return extutil.Fn("skip", func(items []any, n int) ([]any, error) {
		if n < 0 {
			return nil, fmt.Errorf("skip: count must not be negative")
		}
		return clone(items[min(n, len(items)):]), nil
	})
}

// Slice returns the definition for slice(list, start [, end]). Negative
// positions count from the end.
func Slice() functions.Func {
	slice := func(items []any, start, end int) []any {
		start, end = normaliseIndex(start, len(items)), normaliseIndex(end, len(items))
		if start >= end {
			return []any{}
		}
		return clone(items[start:end])
	}
	return extutil.Fn("slice",
		func(items []any, start int) []any { return slice(items, start, len(items)) },
		slice,
	)
}

func normaliseIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	return max(0, min(i, n))
}

// Reverse returns the definition for reverse(list).
func Reverse() functions.Func {
	return extutil.Fn("reverse", func(items []any) []any {
		out := make([]any, len(items))
		for i, it := range items {
			out[len(items)-1-i] = it
		}
		return out
	})
}

// Flatten returns the definition for flatten(list [, depth]). Without depth
// nesting is removed entirely.
func Flatten() functions.Func {
	return extutil.Fn("flatten",
		func(items []any) []any { return flatten(items, -1) },
		func(items []any, depth int) []any { return flatten(items, depth) },
	)
}

func flatten(items []any, depth int) []any {
	out := make([]any, 0, len(items))
	for _, it := range items {
		if depth != 0 && extutil.IsSequence(it) {
			if nested, ok := coerce.ConvertValue(it, anySlice); ok {
				out = append(out, flatten(nested.([]any), depth-1)...)
				continue
			}
		}
		out = append(out, it)
	}
	return out
}

// Chunk returns the definition for chunk(list, size).
func Chunk() functions.Func {
	return extutil.Fn("chunk", func(items []any, size int) ([]any, error) {
		if size <= 0 {
			return nil, fmt.Errorf("chunk: size must be positive")
		}
		out := make([]any, 0, (len(items)+size-1)/size)
		for i := 0; i < len(items); i += size {
			out = append(out, clone(items[i:min(i+size, len(items))]))
		}
		return out, nil
	})
}

// ── set operations (equality as in ==) ──────────────────────────────────────

// Distinct returns the definition for distinct(list).
func Distinct() functions.Func {
	return extutil.Fn("distinct", func(items []any) []any { return distinct(items) })
}

// Union returns the definition for union(a, b).
func Union() functions.Func {
	return extutil.Fn("union", func(a, b []any) []any {
		return distinct(append(clone(a), b...))
	})
}

// Intersection returns the definition for intersection(a, b).
func Intersection() functions.Func {
	return extutil.Fn("intersection", func(a, b []any) []any {
		out := []any{}
		for _, v := range distinct(a) {
			if contains(b, v) {
				out = append(out, v)
			}
		}
		return out
	})
}

// Difference returns the definition for difference(a, b): elements of a
// not in b.
func Difference() functions.Func {
	return extutil.Fn("difference", func(a, b []any) []any { return minus(a, b) })
}

// SymmetricDifference returns the definition for symmetricDifference(a, b).
func SymmetricDifference() functions.Func {
	return extutil.Fn("symmetricDifference", func(a, b []any) []any {
		return append(minus(a, b), minus(b, a)...)
	})
}

func distinct(items []any) []any {
	out := make([]any, 0, len(items))
	for _, it := range items {
		if !contains(out, it) {
			out = append(out, it)
		}
	}
	return out
}

func minus(a, b []any) []any {
	out := []any{}
	for _, v := range distinct(a) {
		if !contains(b, v) {
			out = append(out, v)
		}
	}
	return out
}

func contains(items []any, v any) bool {
	for _, it := range items {
		if coerce.Equal(it, v) {
			return true
		}
	}
	return false
}

// ── generators ───────────────────────────────────────────────────────────────

const maxRangeItems = 100000

// Range returns the definition for range(start, end [, step]). Both ends
// are inclusive. Integer bounds yield ints, anything else float64.
func Range() functions.Func {
	return extutil.Fn("range",
		func(start, end, step float64) ([]any, error) { return floatRange(start, end, step) },
		func(start, end float64) ([]any, error) { return floatRange(start, end, 1) },
		func(start, end, step int) ([]any, error) { return intRange(start, end, step) },
		func(start, end int) ([]any, error) { return intRange(start, end, 1) },
	)
}

func intRange(start, end, step int) ([]any, error) {
	if step == 0 {
		return nil, fmt.Errorf("range: step must not be zero")
	}
	out := []any{}
	for v := start; (step > 0 && v <= end) || (step < 0 && v >= end); v += step {
		if len(out) >= maxRangeItems {
			return nil, fmt.Errorf("range: would produce more than %d items", maxRangeItems)
		}
		out = append(out, v)
	}
	return out, nil
}

func floatRange(start, end, step float64) ([]any, error) {
	if step == 0 {
		return nil, fmt.Errorf("range: step must not be zero")
	}
	out := []any{}
	for i := 0; ; i++ {
		v := start + float64(i)*step
		if (step > 0 && v > end) || (step < 0 && v < end) {
			break
		}
		if i >= maxRangeItems {
			return nil, fmt.Errorf("range: would produce more than %d items", maxRangeItems)
		}
		out = append(out, math.Round(v*1e10)/1e10)
	}
	return out, nil
}

// ZipLongest returns the definition for zipLongest(a, b [, fill]): pairs of
// elements, padding the shorter list with fill.
func ZipLongest() functions.Func {
	zip := func(a, b []any, fill any) []any {
		out := make([]any, max(len(a), len(b)))
		for i := range out {
			v1, v2 := fill, fill
			if i < len(a) {
				v1 = a[i]
			}
			if i < len(b) {
				v2 = b[i]
			}
			out[i] = []any{v1, v2}
		}
		return out
	}
	return extutil.Fn("zipLongest",
		func(a, b []any) []any { return zip(a, b, nil) },
		zip,
	)
}

// Window returns the definition for window(list, size, step): sliding
// windows of size elements, step apart.
func Window() functions.Func {
	return extutil.Fn("window", func(items []any, size, step int) ([]any, error) {
		if size <= 0 || step <= 0 {
			return nil, fmt.Errorf("window: size and step must be positive")
		}
		out := []any{}
		for i := 0; i+size <= len(items); i += step {
			out = append(out, clone(items[i:i+size]))
		}
		return out, nil
	})
}

func clone(items []any) []any {
	return append(make([]any, 0, len(items)), items...)
}
