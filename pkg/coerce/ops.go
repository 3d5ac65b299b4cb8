package coerce

import (
	"math"
	"math/big"

	"github.com/cockroachdb/apd/v3"
	"github.com/sandrolain/gognl/pkg/types"
)

type binop uint8

const (
	opAdd binop = iota
	opSub
	opMul
	opDiv
	opRem
)

var binopNames = [...]string{opAdd: "add", opSub: "subtract", opMul: "multiply", opDiv: "divide", opRem: "remainder"}

// Add sums two values. When either operand is non-numeric the result is the
// concatenation of both string forms.
func Add(a, b any) (any, error) {
	t := WidestOf(a, b, true)
	if t == NonNumeric {
		ta, tb := TypeOf(a), TypeOf(b)
		if (ta != NonNumeric && b == nil) || (tb != NonNumeric && a == nil) {
			return nil, types.Errorf(types.ErrNonNumeric, "cannot add %s and %s", StringValue(a), StringValue(b))
		}
		return StringValue(a) + StringValue(b), nil
	}
	return arith(opAdd, t, a, b)
}

// Subtract returns a - b.
func Subtract(a, b any) (any, error) { return arith(opSub, numericWidest(a, b), a, b) }

// Multiply returns a * b.
func Multiply(a, b any) (any, error) { return arith(opMul, numericWidest(a, b), a, b) }

// Divide returns a / b. Integer division by zero is an error; real division
// follows IEEE 754.
func Divide(a, b any) (any, error) { return arith(opDiv, numericWidest(a, b), a, b) }

// Remainder returns a % b.
func Remainder(a, b any) (any, error) { return arith(opRem, numericWidest(a, b), a, b) }

func numericWidest(a, b any) NumericType {
	t := WidestOf(a, b, false)
	if t == NonNumeric {
		return Double
	}
	return t
}

func arith(op binop, t NumericType, a, b any) (any, error) {
	var (
		r   any
		err error
	)
	switch {
	case t == BigInt:
		r, err = bigArith(op, a, b)
	case t == BigDec:
		r, err = decimalArith(op, a, b)
	case t >= minReal:
		r, err = realArith(op, t, a, b)
	default:
		r, err = intArith(op, t, a, b)
	}
	if err != nil {
		return nil, err
	}
	return sameType(r, a, b), nil
}

func intArith(op binop, t NumericType, a, b any) (any, error) {
	x, err := LongValue(a)
	if err != nil {
		return nil, err
	}
	y, err := LongValue(b)
	if err != nil {
		return nil, err
	}
	var r int64
	switch op {
	case opAdd:
		r = x + y
	case opSub:
		r = x - y
	case opMul:
		r = x * y
	case opDiv, opRem:
		if y == 0 {
			return nil, types.Errorf(types.ErrArithmetic, "integer %s by zero", binopNames[op])
		}
		if op == opDiv {
			r = x / y
		} else {
			r = x % y
		}
	}
	return NewInteger(t, r), nil
}

func realArith(op binop, t NumericType, a, b any) (any, error) {
	x, err := DoubleValue(a)
	if err != nil {
		return nil, err
	}
	y, err := DoubleValue(b)
	if err != nil {
		return nil, err
	}
	var r float64
	switch op {
	case opAdd:
		r = x + y
	case opSub:
		r = x - y
	case opMul:
		r = x * y
	case opDiv:
		r = x / y
	case opRem:
		r = math.Mod(x, y)
	}
	return NewReal(t, r), nil
}

func bigArith(op binop, a, b any) (any, error) {
	x, err := BigIntValue(a)
	if err != nil {
		return nil, err
	}
	y, err := BigIntValue(b)
	if err != nil {
		return nil, err
	}
	switch op {
	case opAdd:
		return x.Add(x, y), nil
	case opSub:
		return x.Sub(x, y), nil
	case opMul:
		return x.Mul(x, y), nil
	}
	if y.Sign() == 0 {
		return nil, types.Errorf(types.ErrArithmetic, "integer %s by zero", binopNames[op])
	}
	if op == opDiv {
		return x.Quo(x, y), nil
	}
	return x.Rem(x, y), nil
}

func decimalArith(op binop, a, b any) (any, error) {
	x, err := DecimalValue(a)
	if err != nil {
		return nil, err
	}
	y, err := DecimalValue(b)
	if err != nil {
		return nil, err
	}
	r := new(apd.Decimal)
	switch op {
	case opAdd:
		_, err = decimalContext.Add(r, x, y)
	case opSub:
		_, err = decimalContext.Sub(r, x, y)
	case opMul:
		_, err = decimalContext.Mul(r, x, y)
	case opDiv:
		_, err = decimalContext.Quo(r, x, y)
	case opRem:
		_, err = decimalContext.Rem(r, x, y)
	}
	if err != nil {
		return nil, types.Errorf(types.ErrArithmetic, "decimal %s failed", binopNames[op]).WithCause(err)
	}
	return r, nil
}

// Negate returns -a.
func Negate(a any) (any, error) {
	t := TypeOf(a)
	var r any
	switch {
	case t == BigInt:
		x, err := BigIntValue(a)
		if err != nil {
			return nil, err
		}
		r = x.Neg(x)
	case t == BigDec:
		x, err := DecimalValue(a)
		if err != nil {
			return nil, err
		}
		r = x.Neg(x)
	case t >= minReal:
		x, err := DoubleValue(a)
		if err != nil {
			return nil, err
		}
		if t == NonNumeric {
			t = Double
		}
		r = NewReal(t, -x)
	default:
		x, err := LongValue(a)
		if err != nil {
			return nil, err
		}
		r = NewInteger(t, -x)
	}
	return sameType(r, a, a), nil
}

// BitNegate returns the bitwise complement of an integral value.
func BitNegate(a any) (any, error) {
	t := TypeOf(a)
	switch {
	case t == BigInt:
		x, err := BigIntValue(a)
		if err != nil {
			return nil, err
		}
		return sameType(x.Not(x), a, a), nil
	case t >= minReal:
		return nil, types.Errorf(types.ErrNonNumeric, "bitwise complement of non-integral value %s", StringValue(a))
	}
	x, err := LongValue(a)
	if err != nil {
		return nil, err
	}
	return sameType(NewInteger(t, ^x), a, a), nil
}

type bitop uint8

const (
	bitAnd bitop = iota
	bitOr
	bitXor
)

// BitAnd returns a & b. Two booleans yield a boolean.
func BitAnd(a, b any) (any, error) { return bitwise(bitAnd, a, b) }

// BitOr returns a | b. Two booleans yield a boolean.
func BitOr(a, b any) (any, error) { return bitwise(bitOr, a, b) }

// Xor returns a ^ b. Two booleans yield a boolean.
func Xor(a, b any) (any, error) { return bitwise(bitXor, a, b) }

func bitwise(op bitop, a, b any) (any, error) {
	t := WidestOf(a, b, false)
	switch t {
	case Bool:
		x, y := Truth(a), Truth(b)
		switch op {
		case bitAnd:
			return x && y, nil
		case bitOr:
			return x || y, nil
		}
		return x != y, nil
	case BigInt, BigDec:
		x, err := BigIntValue(a)
		if err != nil {
			return nil, err
		}
		y, err := BigIntValue(b)
		if err != nil {
			return nil, err
		}
		switch op {
		case bitAnd:
			x.And(x, y)
		case bitOr:
			x.Or(x, y)
		default:
			x.Xor(x, y)
		}
		return sameType(x, a, b), nil
	}
	t = integral(t)
	x, err := LongValue(a)
	if err != nil {
		return nil, err
	}
	y, err := LongValue(b)
	if err != nil {
		return nil, err
	}
	var r int64
	switch op {
	case bitAnd:
		r = x & y
	case bitOr:
		r = x | y
	default:
		r = x ^ y
	}
	return sameType(NewInteger(t, r), a, b), nil
}

func shiftCount(b any) (uint, error) {
	n, err := LongValue(b)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, types.Errorf(types.ErrArithmetic, "negative shift count %d", n)
	}
	return uint(n), nil
}

// ShiftLeft returns a << b.
func ShiftLeft(a, b any) (any, error) {
	n, err := shiftCount(b)
	if err != nil {
		return nil, err
	}
	t := TypeOf(a)
	if t == BigInt || t == BigDec {
		x, err := BigIntValue(a)
		if err != nil {
			return nil, err
		}
		return sameType(x.Lsh(x, n), a, a), nil
	}
	x, err := LongValue(a)
	if err != nil {
		return nil, err
	}
	return sameType(NewInteger(integral(t), x<<n), a, a), nil
}

// ShiftRight returns a >> b, preserving the sign.
func ShiftRight(a, b any) (any, error) {
	n, err := shiftCount(b)
	if err != nil {
		return nil, err
	}
	t := TypeOf(a)
	if t == BigInt || t == BigDec {
		x, err := BigIntValue(a)
		if err != nil {
			return nil, err
		}
		return sameType(x.Rsh(x, n), a, a), nil
	}
	x, err := LongValue(a)
	if err != nil {
		return nil, err
	}
	return sameType(NewInteger(integral(t), x>>n), a, a), nil
}

// UnsignedShiftRight returns a >>> b: the bits of a, read at the width of
// its rung, shifted right with zero fill.
func UnsignedShiftRight(a, b any) (any, error) {
	n, err := shiftCount(b)
	if err != nil {
		return nil, err
	}
	t := TypeOf(a)
	if t == BigInt || t == BigDec {
		x, err := BigIntValue(a)
		if err != nil {
			return nil, err
		}
		if x.Sign() < 0 {
			// Negative big integers have no fixed width; read them as 64 bits.
			x = new(big.Int).SetUint64(uint64(x.Int64()))
		}
		return sameType(x.Rsh(x, n), a, a), nil
	}
	x, err := LongValue(a)
	if err != nil {
		return nil, err
	}
	t = integral(t)
	var r int64
	switch t {
	case Byte:
		r = int64(uint8(x) >> n)
	case Short:
		r = int64(uint16(x) >> n)
	case Int:
		r = int64(uint(x) >> n)
	default:
		r = int64(uint64(x) >> n)
	}
	return sameType(NewInteger(t, r), a, a), nil
}

func integral(t NumericType) NumericType {
	if t == Bool {
		return Int
	}
	if t >= minReal {
		return Long
	}
	return t
}
