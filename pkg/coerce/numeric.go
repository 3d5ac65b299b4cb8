// Package coerce implements the value coercion rules shared by every
// operator node: the numeric promotion ladder, truthiness, string and number
// conversion, arithmetic, ordering and equality.
//
// Go numeric types map onto the ladder as follows:
//
//	bool                      Bool
//	int8                      Byte
//	int16, uint8              Short
//	int, int32, uint16        Int
//	int64, uint32             Long
//	uint, uint64, *big.Int    BigInt
//	float32                   Float
//	float64                   Double
//	*apd.Decimal              BigDec
//
// Named types are ranked by their underlying kind. Everything else is
// NonNumeric.
package coerce

import (
	"fmt"
	"math/big"
	"reflect"

	"github.com/cockroachdb/apd/v3"
)

// NumericType is a rung of the numeric promotion ladder.
type NumericType int

const (
	Bool NumericType = iota
	Byte
	Short
	Int
	Long
	BigInt
	Float
	Double
	BigDec
	NonNumeric
)

// minReal is the lowest rung holding non-integral values.
const minReal = Float

var numericTypeNames = [...]string{
	Bool:       "bool",
	Byte:       "byte",
	Short:      "short",
	Int:        "int",
	Long:       "long",
	BigInt:     "bigint",
	Float:      "float",
	Double:     "double",
	BigDec:     "bigdec",
	NonNumeric: "nonnumeric",
}

func (t NumericType) String() string {
	if t >= 0 && int(t) < len(numericTypeNames) {
		return numericTypeNames[t]
	}
	return fmt.Sprintf("NumericType(%d)", int(t))
}

// IsIntegral reports whether the rung holds only whole numbers.
func (t NumericType) IsIntegral() bool {
	return t < minReal
}

var (
	bigIntType  = reflect.TypeOf((*big.Int)(nil))
	decimalType = reflect.TypeOf((*apd.Decimal)(nil))
)

// decimalContext governs every big-decimal operation.
var decimalContext = apd.BaseContext.WithPrecision(34)

// TypeOf returns the ladder rung of v.
func TypeOf(v any) NumericType {
	switch v.(type) {
	case nil:
		return NonNumeric
	case int:
		return Int
	case float64:
		return Double
	case int64:
		return Long
	case bool:
		return Bool
	case string:
		return NonNumeric
	case *big.Int:
		return BigInt
	case *apd.Decimal:
		return BigDec
	}
	return kindType(reflect.TypeOf(v).Kind())
}

func kindType(k reflect.Kind) NumericType {
	switch k {
	case reflect.Bool:
		return Bool
	case reflect.Int8:
		return Byte
	case reflect.Int16, reflect.Uint8:
		return Short
	case reflect.Int, reflect.Int32, reflect.Uint16:
		return Int
	case reflect.Int64, reflect.Uint32:
		return Long
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return BigInt
	case reflect.Float32:
		return Float
	case reflect.Float64:
		return Double
	}
	return NonNumeric
}

// IsNumber reports whether v sits on a numeric rung other than Bool.
func IsNumber(v any) bool {
	t := TypeOf(v)
	return t != Bool && t != NonNumeric
}

// Widest returns the rung two operands are promoted to. When
// canBeNonNumeric is set a non-numeric operand makes the whole operation
// non-numeric (string concatenation); otherwise non-numeric operands are
// read as doubles.
func Widest(t1, t2 NumericType, canBeNonNumeric bool) NumericType {
	if t1 == t2 {
		return t1
	}
	if canBeNonNumeric && (t1 == NonNumeric || t2 == NonNumeric) {
		return NonNumeric
	}
	if t1 == NonNumeric {
		t1 = Double
	}
	if t2 == NonNumeric {
		t2 = Double
	}
	if t1 == BigDec || t2 == BigDec {
		return BigDec
	}
	if t1 >= minReal {
		if t2 >= minReal {
			return max(t1, t2)
		}
		if t2 < Int {
			return t1
		}
		if t2 < BigInt {
			return Double
		}
		return BigDec
	}
	if t2 >= minReal {
		if t1 < Int {
			return t2
		}
		if t1 < BigInt {
			return Double
		}
		return BigDec
	}
	return max(t1, t2)
}

// WidestOf is Widest applied to the rungs of two values.
func WidestOf(v1, v2 any, canBeNonNumeric bool) NumericType {
	return Widest(TypeOf(v1), TypeOf(v2), canBeNonNumeric)
}

// NewInteger boxes an integral result on rung t.
func NewInteger(t NumericType, v int64) any {
	switch t {
	case Byte:
		return int8(v)
	case Short:
		return int16(v)
	case Long:
		return v
	case BigInt:
		return big.NewInt(v)
	case Float:
		return float32(v)
	case Double:
		return float64(v)
	case BigDec:
		return apd.New(v, 0)
	}
	return int(v)
}

// NewReal boxes a real result on rung t. Integral rungs truncate.
func NewReal(t NumericType, f float64) any {
	switch t {
	case Float:
		return float32(f)
	case Double, NonNumeric:
		return f
	case BigDec:
		d, err := new(apd.Decimal).SetFloat64(f)
		if err != nil {
			return f
		}
		return d
	}
	return NewInteger(t, int64(f))
}

// sameType converts r back to the Go type shared by both operands, so that
// int32 arithmetic stays int32 and named numeric types survive an operation.
func sameType(r, a, b any) any {
	ta := reflect.TypeOf(a)
	if ta == nil || ta != reflect.TypeOf(b) {
		return r
	}
	return castTo(r, ta)
}

func castTo(r any, t reflect.Type) any {
	if r == nil || reflect.TypeOf(r) == t {
		return r
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
	default:
		return r
	}
	switch x := r.(type) {
	case *big.Int:
		if isUnsignedKind(t.Kind()) {
			r = x.Uint64()
		} else {
			r = x.Int64()
		}
	case *apd.Decimal:
		f, err := x.Float64()
		if err != nil {
			return x
		}
		r = f
	}
	rv := reflect.ValueOf(r)
	if rv.Type().ConvertibleTo(t) {
		return rv.Convert(t).Interface()
	}
	return r
}

func isUnsignedKind(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}
