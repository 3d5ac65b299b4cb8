package coerce_test

import (
	"math/big"
	"reflect"
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/sandrolain/gognl/pkg/coerce"
	"github.com/sandrolain/gognl/pkg/types"
)

type celsius float64

// ── helpers ──────────────────────────────────────────────────────────────────

func mustOp(t *testing.T, op func(a, b any) (any, error), a, b any) any {
	t.Helper()
	got, err := op(a, b)
	if err != nil {
		t.Fatalf("op(%v, %v): unexpected error: %v", a, b, err)
	}
	return got
}

func expectCode(t *testing.T, err error, code types.ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %s, got nil", code)
	}
	if got := types.CodeOf(err); got != code {
		t.Fatalf("expected error code %s, got %s (%v)", code, got, err)
	}
}

// ── ladder ───────────────────────────────────────────────────────────────────

func TestTypeOf(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  coerce.NumericType
	}{
		{"bool", true, coerce.Bool},
		{"int8", int8(1), coerce.Byte},
		{"int16", int16(1), coerce.Short},
		{"uint8", uint8(1), coerce.Short},
		{"int", 1, coerce.Int},
		{"int32", int32(1), coerce.Int},
		{"int64", int64(1), coerce.Long},
		{"uint32", uint32(1), coerce.Long},
		{"uint64", uint64(1), coerce.BigInt},
		{"big.Int", big.NewInt(1), coerce.BigInt},
		{"float32", float32(1), coerce.Float},
		{"float64", 1.5, coerce.Double},
		{"decimal", apd.New(15, -1), coerce.BigDec},
		{"named float", celsius(1), coerce.Double},
		{"string", "1", coerce.NonNumeric},
		{"nil", nil, coerce.NonNumeric},
		{"struct", struct{}{}, coerce.NonNumeric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := coerce.TypeOf(tt.value); got != tt.want {
				t.Errorf("TypeOf(%v) = %s, want %s", tt.value, got, tt.want)
			}
		})
	}
}

func TestWidest(t *testing.T) {
	tests := []struct {
		t1, t2          coerce.NumericType
		canBeNonNumeric bool
		want            coerce.NumericType
	}{
		{coerce.Int, coerce.Int, false, coerce.Int},
		{coerce.Int, coerce.Long, false, coerce.Long},
		{coerce.Byte, coerce.Float, false, coerce.Float},
		{coerce.Int, coerce.Float, false, coerce.Double},
		{coerce.Long, coerce.Double, false, coerce.Double},
		{coerce.BigInt, coerce.Double, false, coerce.BigDec},
		{coerce.BigDec, coerce.Int, false, coerce.BigDec},
		{coerce.Int, coerce.NonNumeric, true, coerce.NonNumeric},
		{coerce.Int, coerce.NonNumeric, false, coerce.Double},
		{coerce.Bool, coerce.Int, false, coerce.Int},
	}
	for _, tt := range tests {
		if got := coerce.Widest(tt.t1, tt.t2, tt.canBeNonNumeric); got != tt.want {
			t.Errorf("Widest(%s, %s, %v) = %s, want %s", tt.t1, tt.t2, tt.canBeNonNumeric, got, tt.want)
		}
	}
}

// ── arithmetic ───────────────────────────────────────────────────────────────

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name string
		op   func(a, b any) (any, error)
		a, b any
		want any
	}{
		{"int add", coerce.Add, 1, 2, 3},
		{"int32 stays int32", coerce.Add, int32(1), int32(2), int32(3)},
		{"int64 add", coerce.Add, int64(1), 2, int64(3)},
		{"mixed real", coerce.Add, 1, 2.5, 3.5},
		{"float32 with int8", coerce.Add, float32(1.5), int8(1), float32(2.5)},
		{"named type survives", coerce.Add, celsius(1.5), celsius(2), celsius(3.5)},
		{"string concat", coerce.Add, "a", 1, "a1"},
		{"concat number first", coerce.Add, 1, "a", "1a"},
		{"concat nil string", coerce.Add, nil, "a", "nulla"},
		{"subtract", coerce.Subtract, 5, 7, -2},
		{"subtract strings as doubles", coerce.Subtract, "5", "3", 2.0},
		{"multiply", coerce.Multiply, 6, 7, 42},
		{"integer divide truncates", coerce.Divide, 7, 2, 3},
		{"real divide", coerce.Divide, 7.0, 2, 3.5},
		{"remainder", coerce.Remainder, 7, 3, 1},
		{"real remainder", coerce.Remainder, 7.5, 2, 1.5},
		{"uint8 wraps", coerce.Add, uint8(250), uint8(10), uint8(4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustOp(t, tt.op, tt.a, tt.b)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}
}

func TestArithmeticBig(t *testing.T) {
	got := mustOp(t, coerce.Add, big.NewInt(1), 2)
	b, ok := got.(*big.Int)
	if !ok || b.Cmp(big.NewInt(3)) != 0 {
		t.Fatalf("got %v (%T), want big 3", got, got)
	}

	got = mustOp(t, coerce.Multiply, apd.New(15, -1), 2)
	d, ok := got.(*apd.Decimal)
	if !ok || d.Cmp(apd.New(3, 0)) != 0 {
		t.Fatalf("got %v (%T), want decimal 3", got, got)
	}

	got = mustOp(t, coerce.Divide, apd.New(1, 0), apd.New(4, 0))
	if d := got.(*apd.Decimal); d.Cmp(apd.New(25, -2)) != 0 {
		t.Fatalf("got %v, want 0.25", d)
	}
}

func TestArithmeticErrors(t *testing.T) {
	_, err := coerce.Divide(1, 0)
	expectCode(t, err, types.ErrArithmetic)

	_, err = coerce.Remainder(big.NewInt(1), 0)
	expectCode(t, err, types.ErrArithmetic)

	_, err = coerce.Add(nil, 1)
	expectCode(t, err, types.ErrNonNumeric)

	_, err = coerce.Subtract(struct{}{}, 1)
	expectCode(t, err, types.ErrNonNumeric)

	_, err = coerce.Subtract("x", 1)
	expectCode(t, err, types.ErrConversion)
}

func TestUnaryAndBitwise(t *testing.T) {
	tests := []struct {
		name string
		got  func() (any, error)
		want any
	}{
		{"negate int", func() (any, error) { return coerce.Negate(3) }, -3},
		{"negate int8", func() (any, error) { return coerce.Negate(int8(3)) }, int8(-3)},
		{"negate string", func() (any, error) { return coerce.Negate("2.5") }, -2.5},
		{"bit negate", func() (any, error) { return coerce.BitNegate(5) }, -6},
		{"and", func() (any, error) { return coerce.BitAnd(6, 3) }, 2},
		{"or bools", func() (any, error) { return coerce.BitOr(true, false) }, true},
		{"xor", func() (any, error) { return coerce.Xor(5, 1) }, 4},
		{"shl", func() (any, error) { return coerce.ShiftLeft(1, 4) }, 16},
		{"shr keeps sign", func() (any, error) { return coerce.ShiftRight(-16, 2) }, -4},
		{"ushr int8", func() (any, error) { return coerce.UnsignedShiftRight(int8(-1), 4) }, int8(15)},
		{"ushr int64", func() (any, error) { return coerce.UnsignedShiftRight(int64(-1), 60) }, int64(15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.got()
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}

	_, err := coerce.BitNegate(1.5)
	expectCode(t, err, types.ErrNonNumeric)

	_, err = coerce.ShiftLeft(1, -1)
	expectCode(t, err, types.ErrArithmetic)
}

// ── comparison ───────────────────────────────────────────────────────────────

func TestCompare(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		a, b any
		want int
	}{
		{"ints", 1, 2, -1},
		{"int and real", 3, 2.5, 1},
		{"equal across rungs", int64(2), 2.0, 0},
		{"strings", "a", "b", -1},
		{"numeric string", "10", 9, 1},
		{"nils", nil, nil, 0},
		{"nil and number", nil, 1, -1},
		{"bools", true, false, 1},
		{"big", big.NewInt(10), uint64(9), 1},
		{"decimal", apd.New(15, -1), 1.5, 0},
		{"compare method", now, now.Add(time.Second), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := coerce.Compare(tt.a, tt.b)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Compare(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}

	_, err := coerce.Compare(struct{}{}, struct{}{})
	expectCode(t, err, types.ErrInvalidComparison)
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"int and real", 1, 1.0, true},
		{"numeric string", "1", 1, true},
		{"different", 1, 2, false},
		{"text and number", "a", 1, false},
		{"sequences", []int{1, 2}, []any{1, 2.0}, true},
		{"sequence lengths", []int{1}, []int{1, 2}, false},
		{"typed nil", nil, (*int)(nil), true},
		{"nil and zero", nil, 0, false},
		{"maps", map[string]any{"a": 1}, map[string]any{"a": 1}, true},
		{"structs", struct{ A int }{1}, struct{ A int }{1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := coerce.Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

// ── conversion ───────────────────────────────────────────────────────────────

func TestTruthAndString(t *testing.T) {
	truthy := []any{true, 1, -1.5, "", "false", struct{}{}, []int{}, big.NewInt(2)}
	falsy := []any{nil, false, 0, 0.0, int8(0), []int(nil), (*int)(nil), big.NewInt(0)}
	for _, v := range truthy {
		if !coerce.Truth(v) {
			t.Errorf("Truth(%#v) = false, want true", v)
		}
	}
	for _, v := range falsy {
		if coerce.Truth(v) {
			t.Errorf("Truth(%#v) = true, want false", v)
		}
	}

	strs := map[string]any{"null": nil, "1": 1, "1.5": 1.5, "7": big.NewInt(7), "abc": []byte("abc")}
	for want, v := range strs {
		if got := coerce.StringValue(v); got != want {
			t.Errorf("StringValue(%#v) = %q, want %q", v, got, want)
		}
	}
}

func TestNumberReaders(t *testing.T) {
	if n, err := coerce.LongValue(" 12 "); err != nil || n != 12 {
		t.Errorf("LongValue(\" 12 \") = %d, %v", n, err)
	}
	_, err := coerce.LongValue("1.5")
	expectCode(t, err, types.ErrConversion)

	if f, err := coerce.DoubleValue(""); err != nil || f != 0 {
		t.Errorf("DoubleValue(\"\") = %v, %v", f, err)
	}
	if n, err := coerce.LongValue(apd.New(-275, -2)); err != nil || n != -2 {
		t.Errorf("LongValue(-2.75) = %d, %v", n, err)
	}
	if b, err := coerce.BigIntValue(uint64(1 << 63)); err != nil || b.String() != "9223372036854775808" {
		t.Errorf("BigIntValue(1<<63) = %v, %v", b, err)
	}
}

func TestConvertValue(t *testing.T) {
	one := 1
	tests := []struct {
		name  string
		value any
		to    reflect.Type
		want  any
		ok    bool
	}{
		{"string to int", "42", reflect.TypeOf(0), 42, true},
		{"real to int truncates", 3.9, reflect.TypeOf(0), 3, true},
		{"overflow", 300, reflect.TypeOf(int8(0)), nil, false},
		{"negative to uint", -1, reflect.TypeOf(uint(0)), nil, false},
		{"int to string", 1, reflect.TypeOf(""), "1", true},
		{"to bool", "x", reflect.TypeOf(false), true, true},
		{"nil to int", nil, reflect.TypeOf(0), 0, true},
		{"slice elements", []any{1, "2"}, reflect.TypeOf([]int{}), []int{1, 2}, true},
		{"slice element fails", []any{1, "x"}, reflect.TypeOf([]int{}), nil, false},
		{"array", []int{1, 2}, reflect.TypeOf([2]int64{}), [2]int64{1, 2}, true},
		{"map", map[string]any{"a": 1}, reflect.TypeOf(map[string]int{}), map[string]int{"a": 1}, true},
		{"pointer target", 1, reflect.TypeOf(&one), &one, true},
		{"pointer source", &one, reflect.TypeOf(int64(0)), int64(1), true},
		{"named", 2.5, reflect.TypeOf(celsius(0)), celsius(2.5), true},
		{"struct to int", struct{}{}, reflect.TypeOf(0), nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := coerce.ConvertValue(tt.value, tt.to)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v (got %v)", ok, tt.ok, got)
			}
			if ok && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}

	d, ok := coerce.ConvertValue("1.25", reflect.TypeOf((*apd.Decimal)(nil)))
	if !ok || d.(*apd.Decimal).Cmp(apd.New(125, -2)) != 0 {
		t.Fatalf("decimal conversion = %v, %v", d, ok)
	}

	var conv coerce.Converter = coerce.ConverterFunc(func(v any, to reflect.Type) (any, bool) {
		return "custom", true
	})
	if got, _ := conv.Convert(1, reflect.TypeOf("")); got != "custom" {
		t.Fatalf("ConverterFunc returned %v", got)
	}
}
