package accessor

import (
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/sandrolain/gognl/pkg/coerce"
	"github.com/sandrolain/gognl/pkg/types"
)

// StringMethodAccessor gives string values a small method set. Positions
// and lengths count runes.
type StringMethodAccessor struct{ ObjectMethodAccessor }

type stringMethod struct {
	arity int
	fn    func(s string, args []any) (any, error)
}

var stringMethods = map[string]stringMethod{
	"length":      {0, func(s string, _ []any) (any, error) { return utf8.RuneCountInString(s), nil }},
	"isEmpty":     {0, func(s string, _ []any) (any, error) { return s == "", nil }},
	"toUpperCase": {0, func(s string, _ []any) (any, error) { return strings.ToUpper(s), nil }},
	"toLowerCase": {0, func(s string, _ []any) (any, error) { return strings.ToLower(s), nil }},
	"trim":        {0, func(s string, _ []any) (any, error) { return strings.TrimSpace(s), nil }},
	"startsWith": {1, func(s string, args []any) (any, error) {
		return strings.HasPrefix(s, coerce.StringValue(args[0])), nil
	}},
	"endsWith": {1, func(s string, args []any) (any, error) {
		return strings.HasSuffix(s, coerce.StringValue(args[0])), nil
	}},
	"contains": {1, func(s string, args []any) (any, error) {
		return strings.Contains(s, coerce.StringValue(args[0])), nil
	}},
	"indexOf": {1, func(s string, args []any) (any, error) {
		i := strings.Index(s, coerce.StringValue(args[0]))
		if i < 0 {
			return -1, nil
		}
		return utf8.RuneCountInString(s[:i]), nil
	}},
	"split": {1, func(s string, args []any) (any, error) {
		return strings.Split(s, coerce.StringValue(args[0])), nil
	}},
	"replace": {2, func(s string, args []any) (any, error) {
		return strings.ReplaceAll(s, coerce.StringValue(args[0]), coerce.StringValue(args[1])), nil
	}},
	"charAt": {1, func(s string, args []any) (any, error) {
		runes := []rune(s)
		i, err := runeIndex(args[0], len(runes))
		if err != nil {
			return nil, err
		}
		return string(runes[i]), nil
	}},
}

// CallMethod implements MethodAccessor.
func (a StringMethodAccessor) CallMethod(ctx Context, target any, name string, args []any) (any, error) {
	if v, found, err := InvokeMethod(ctx, target, name, args); found {
		return v, err
	}
	s := reflect.ValueOf(target).String()
	if name == "substring" {
		return substring(s, args)
	}
	m, ok := stringMethods[name]
	if !ok {
		return a.ObjectMethodAccessor.CallMethod(ctx, target, name, args)
	}
	if err := arity(name, args, m.arity); err != nil {
		return nil, err
	}
	return m.fn(s, args)
}

func runeIndex(v any, n int) (int, error) {
	i, err := coerce.LongValue(v)
	if err != nil {
		return 0, err
	}
	if i < 0 || i >= int64(n) {
		return 0, types.Errorf(types.ErrIndexOutOfRange, "index %d out of range [0,%d)", i, n)
	}
	return int(i), nil
}

// substring(begin) or substring(begin, end), end exclusive.
func substring(s string, args []any) (any, error) {
	if len(args) != 1 && len(args) != 2 {
		return nil, types.Errorf(types.ErrNoOverload, "substring takes 1 or 2 arguments, got %d", len(args))
	}
	runes := []rune(s)
	begin, err := coerce.LongValue(args[0])
	if err != nil {
		return nil, err
	}
	end := int64(len(runes))
	if len(args) == 2 {
		if end, err = coerce.LongValue(args[1]); err != nil {
			return nil, err
		}
	}
	if begin < 0 || end > int64(len(runes)) || begin > end {
		return nil, types.Errorf(types.ErrIndexOutOfRange, "substring [%d,%d) out of range for length %d", begin, end, len(runes))
	}
	return string(runes[begin:end]), nil
}
