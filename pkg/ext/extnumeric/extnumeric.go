// Package extnumeric provides the Math static class: rounding, logarithms,
// trigonometry and descriptive statistics.
//
//	@Math@max(3, 4.5)            // 4.5
//	@Math@log(8, 2)              // 3.0
//	@Math@median({1, 5, 3})      // 3.0
//	@Math@PI
package extnumeric

import (
	"fmt"
	"math"
	"slices"

	"github.com/sandrolain/gognl/pkg/ext/extutil"
	"github.com/sandrolain/gognl/pkg/functions"
)

// Math marks the Math class.
type Math struct{}

// Class returns the Math class with every function and constant.
func Class() functions.Class {
	return extutil.Class[Math]("Math", All(),
		functions.Constant{Name: "PI", Value: math.Pi},
		functions.Constant{Name: "E", Value: math.E},
		functions.Constant{Name: "MaxInt", Value: math.MaxInt},
		functions.Constant{Name: "MinInt", Value: math.MinInt},
	)
}

// All returns all numeric function definitions.
func All() []functions.Func {
	return []functions.Func{
		Abs(),
		Max(),
		Min(),
		Floor(),
		Ceil(),
		Round(),
		Sqrt(),
		Pow(),
		Log(),
		Sign(),
		Trunc(),
		Clamp(),
		Sin(),
		Cos(),
		Tan(),
		Asin(),
		Acos(),
		Atan(),
		Atan2(),
		Median(),
		Variance(),
		Stddev(),
		Percentile(),
		Mode(),
	}
}

// Float overloads come first: when no overload accepts the arguments as
// they are, the first one that accepts converted arguments wins.

// Abs returns the definition for abs(n).
func Abs() functions.Func {
	return extutil.Fn("abs",
		math.Abs,
		func(n int) int {
			if n < 0 {
				return -n
			}
			return n
		},
	)
}

// Max returns the definition for max(a, b) and max(list).
func Max() functions.Func {
	return extutil.Fn("max",
		func(a, b float64) float64 { return math.Max(a, b) },
		func(a, b int) int { return max(a, b) },
		func(items []any) (any, error) { return extreme("max", items, math.Max) },
	)
}

// Min returns the definition for min(a, b) and min(list).
func Min() functions.Func {
	return extutil.Fn("min",
		func(a, b float64) float64 { return math.Min(a, b) },
		func(a, b int) int { return min(a, b) },
		func(items []any) (any, error) { return extreme("min", items, math.Min) },
	)
}

func extreme(name string, items []any, pick func(a, b float64) float64) (any, error) {
	nums, err := extutil.Floats(items)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(nums) == 0 {
		return nil, nil
	}
	best := nums[0]
	for _, n := range nums[1:] {
		best = pick(best, n)
	}
	return best, nil
}

// Floor returns the definition for floor(n).
func Floor() functions.Func { return extutil.Fn("floor", math.Floor) }

// Ceil returns the definition for ceil(n).
func Ceil() functions.Func { return extutil.Fn("ceil", math.Ceil) }

// Round returns the definition for round(n [, precision]).
// Halves round away from zero.
func Round() functions.Func {
	return extutil.Fn("round",
		math.Round,
		func(n float64, precision int) float64 {
			p := math.Pow(10, float64(precision))
			return math.Round(n*p) / p
		},
	)
}

// Sqrt returns the definition for sqrt(n).
func Sqrt() functions.Func {
	return extutil.Fn("sqrt", func(n float64) (float64, error) {
		if n < 0 {
			return 0, fmt.Errorf("sqrt: argument must not be negative")
		}
		return math.Sqrt(n), nil
	})
}

// Pow returns the definition for pow(base, exp).
func Pow() functions.Func { return extutil.Fn("pow", math.Pow) }

// Log returns the definition for log(n [, base]).
// Without base, returns the natural logarithm.
func Log() functions.Func {
	return extutil.Fn("log",
		func(n float64) (float64, error) {
			if n <= 0 {
				return 0, fmt.Errorf("log: argument must be positive")
			}
			return math.Log(n), nil
		},
		func(n, base float64) (float64, error) {
			if n <= 0 {
				return 0, fmt.Errorf("log: argument must be positive")
			}
			if base <= 0 || base == 1 {
				return 0, fmt.Errorf("log: base must be positive and not 1")
			}
			return math.Log(n) / math.Log(base), nil
		},
	)
}

// Sign returns the definition for sign(n): -1, 0 or 1.
func Sign() functions.Func {
	return extutil.Fn("sign",
		func(n float64) int {
			switch {
			case n < 0:
				return -1
			case n > 0:
				return 1
			default:
				return 0
			}
		},
	)
}

// Trunc returns the definition for trunc(n). Truncates toward zero.
func Trunc() functions.Func { return extutil.Fn("trunc", math.Trunc) }

// Clamp returns the definition for clamp(n, lo, hi).
func Clamp() functions.Func {
	return extutil.Fn("clamp",
		func(n, lo, hi float64) (float64, error) {
			if lo > hi {
				return 0, fmt.Errorf("clamp: min must not exceed max")
			}
			return math.Max(lo, math.Min(n, hi)), nil
		},
		func(n, lo, hi int) (int, error) {
			if lo > hi {
				return 0, fmt.Errorf("clamp: min must not exceed max")
			}
			return max(lo, min(n, hi)), nil
		},
	)
}

func Sin() functions.Func  { return extutil.Fn("sin", math.Sin) }
func Cos() functions.Func  { return extutil.Fn("cos", math.Cos) }
func Tan() functions.Func  { return extutil.Fn("tan", math.Tan) }
func Asin() functions.Func { return extutil.Fn("asin", math.Asin) }
func Acos() functions.Func { return extutil.Fn("acos", math.Acos) }
func Atan() functions.Func { return extutil.Fn("atan", math.Atan) }

// Atan2 returns the definition for atan2(y, x).
func Atan2() functions.Func { return extutil.Fn("atan2", math.Atan2) }

// ── statistics ───────────────────────────────────────────────────────────────

// Median returns the definition for median(list). Empty lists yield null.
func Median() functions.Func {
	return extutil.Fn("median", func(items []any) (any, error) {
		nums, err := extutil.Floats(items)
		if err != nil {
			return nil, fmt.Errorf("median: %w", err)
		}
		if len(nums) == 0 {
			return nil, nil
		}
		slices.Sort(nums)
		mid := len(nums) / 2
		if len(nums)%2 == 0 {
			return (nums[mid-1] + nums[mid]) / 2, nil
		}
		return nums[mid], nil
	})
}

// Variance returns the definition for variance(list), the population
// variance.
func Variance() functions.Func {
	return extutil.Fn("variance", func(items []any) (any, error) {
		nums, err := extutil.Floats(items)
		if err != nil {
			return nil, fmt.Errorf("variance: %w", err)
		}
		if len(nums) == 0 {
			return nil, nil
		}
		return variance(nums), nil
	})
}

// Stddev returns the definition for stddev(list).
func Stddev() functions.Func {
	return extutil.Fn("stddev", func(items []any) (any, error) {
		nums, err := extutil.Floats(items)
		if err != nil {
			return nil, fmt.Errorf("stddev: %w", err)
		}
		if len(nums) == 0 {
			return nil, nil
		}
		return math.Sqrt(variance(nums)), nil
	})
}

func variance(nums []float64) float64 {
	var sum float64
	for _, n := range nums {
		sum += n
	}
	mean := sum / float64(len(nums))
	var sq float64
	for _, n := range nums {
		d := n - mean
		sq += d * d
	}
	return sq / float64(len(nums))
}

// Percentile returns the definition for percentile(list, p), with linear
// interpolation between closest ranks.
func Percentile() functions.Func {
	return extutil.Fn("percentile", func(items []any, p float64) (any, error) {
		nums, err := extutil.Floats(items)
		if err != nil {
			return nil, fmt.Errorf("percentile: %w", err)
		}
		if p < 0 || p > 100 {
			return nil, fmt.Errorf("percentile: p must be between 0 and 100")
		}
		if len(nums) == 0 {
			return nil, nil
		}
		slices.Sort(nums)
		idx := p / 100 * float64(len(nums)-1)
		lo, hi := int(math.Floor(idx)), int(math.Ceil(idx))
		if lo == hi {
			return nums[lo], nil
		}
		frac := idx - float64(lo)
		return nums[lo]*(1-frac) + nums[hi]*frac, nil
	})
}

// Mode returns the definition for mode(list). A single most frequent value
// is returned as is; ties yield every such value in first-seen order.
func Mode() functions.Func {
	return extutil.Fn("mode", func(items []any) (any, error) {
		nums, err := extutil.Floats(items)
		if err != nil {
			return nil, fmt.Errorf("mode: %w", err)
		}
		if len(nums) == 0 {
			return nil, nil
		}
		counts := make(map[float64]int, len(nums))
		top := 0
		for _, n := range nums {
			counts[n]++
			top = max(top, counts[n])
		}
		var modes []any
		for _, n := range nums {
			if counts[n] == top {
				modes = append(modes, n)
				counts[n] = 0
			}
		}
		if len(modes) == 1 {
			return modes[0], nil
		}
		return modes, nil
	})
}
