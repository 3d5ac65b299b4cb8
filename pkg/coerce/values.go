package coerce

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"github.com/sandrolain/gognl/pkg/types"
)

// NullString is the string form of nil.
const NullString = "null"

// Truth evaluates v in a boolean context: nil is false, booleans are
// themselves, numbers are true when non-zero and every other value is true.
func Truth(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case int:
		return x != 0
	case float64:
		return x != 0
	case string:
		return true
	case *big.Int:
		return x != nil && x.Sign() != 0
	case *apd.Decimal:
		return x != nil && !x.IsZero()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return !rv.IsNil()
	}
	return true
}

// StringValue returns the string form of v; nil becomes "null".
func StringValue(v any) string {
	switch x := v.(type) {
	case nil:
		return NullString
	case string:
		return x
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func nonNumeric(v any) error {
	return types.Errorf(types.ErrNonNumeric, "value %s of type %T is not a number", StringValue(v), v)
}

func badNumber(s string, err error) error {
	return types.Errorf(types.ErrConversion, "cannot read %q as a number", s).WithCause(err)
}

// LongValue reads v as a 64-bit integer. Reals truncate toward zero and
// strings must hold an integer literal.
func LongValue(v any) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case float64:
		return int64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, badNumber(x, err)
		}
		return n, nil
	case *big.Int:
		return x.Int64(), nil
	case *apd.Decimal:
		var integ, frac apd.Decimal
		x.Modf(&integ, &frac)
		n, err := integ.Int64()
		if err != nil {
			return 0, types.Errorf(types.ErrConversion, "decimal %s does not fit in 64 bits", x).WithCause(err)
		}
		return n, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		if rv.Bool() {
			return 1, nil
		}
		return 0, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return int64(rv.Float()), nil
	case reflect.String:
		return LongValue(rv.String())
	}
	return 0, nonNumeric(v)
}

// DoubleValue reads v as a float64. The empty string reads as zero.
func DoubleValue(v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, badNumber(x, err)
		}
		return f, nil
	case *big.Int:
		f, _ := new(big.Float).SetInt(x).Float64()
		return f, nil
	case *apd.Decimal:
		f, err := x.Float64()
		if err != nil {
			return 0, types.Errorf(types.ErrConversion, "decimal %s is not representable as a double", x).WithCause(err)
		}
		return f, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		if rv.Bool() {
			return 1, nil
		}
		return 0, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return DoubleValue(rv.String())
	}
	return 0, nonNumeric(v)
}

// BigIntValue reads v as an arbitrary precision integer. The result is
// always a fresh value the caller may mutate.
func BigIntValue(v any) (*big.Int, error) {
	switch x := v.(type) {
	case *big.Int:
		return new(big.Int).Set(x), nil
	case *apd.Decimal:
		var integ, frac apd.Decimal
		x.Modf(&integ, &frac)
		b, ok := new(big.Int).SetString(integ.Text('f'), 10)
		if !ok {
			return nil, types.Errorf(types.ErrConversion, "decimal %s has no integral value", x)
		}
		return b, nil
	case string:
		b, ok := new(big.Int).SetString(strings.TrimSpace(x), 10)
		if !ok {
			return nil, types.Errorf(types.ErrConversion, "cannot read %q as an integer", x)
		}
		return b, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return new(big.Int).SetUint64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, types.Errorf(types.ErrConversion, "cannot read %v as an integer", f)
		}
		b, _ := big.NewFloat(f).Int(nil)
		return b, nil
	}
	n, err := LongValue(v)
	if err != nil {
		return nil, err
	}
	return big.NewInt(n), nil
}

// DecimalValue reads v as an arbitrary precision decimal. The result is
// always a fresh value the caller may mutate.
func DecimalValue(v any) (*apd.Decimal, error) {
	switch x := v.(type) {
	case *apd.Decimal:
		return new(apd.Decimal).Set(x), nil
	case *big.Int:
		return apd.NewWithBigInt(new(apd.BigInt).SetMathBigInt(x), 0), nil
	case string:
		d, _, err := apd.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return nil, badNumber(x, err)
		}
		return d, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		b := new(big.Int).SetUint64(rv.Uint())
		return apd.NewWithBigInt(new(apd.BigInt).SetMathBigInt(b), 0), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, types.Errorf(types.ErrConversion, "cannot read %v as a decimal", f)
		}
		d, err := new(apd.Decimal).SetFloat64(f)
		if err != nil {
			return nil, types.Errorf(types.ErrConversion, "cannot read %v as a decimal", f).WithCause(err)
		}
		return d, nil
	}
	n, err := LongValue(v)
	if err != nil {
		return nil, err
	}
	return apd.New(n, 0), nil
}
