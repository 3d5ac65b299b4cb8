// Package ext provides optional static classes for expressions.
//
// The classes live in sub-packages grouped by category:
//   - extnumeric  – @Math: abs, max, min, round, log, trig, median, stddev, …
//   - extstring   – @Strings: startsWith, indexOf, camelCase, pad, template, …
//   - extarray    – @Lists: first, take, slice, flatten, chunk, set ops, range, …
//   - extdatetime – @Dates: now, parse, format, dateAdd, dateDiff, dateStartOf, …
//   - extcrypto   – @Crypto: uuid, hash, hmac, base64
//   - exttypes    – @Types: isString, isNumber, isEmpty, default, typeName, …
//
// # Integration – all classes at once
//
//	import "github.com/sandrolain/gognl/pkg/ext"
//
//	ev := evaluator.New(ext.WithAll())
//
// # Integration – by category
//
//	ev := evaluator.New(ext.WithMath(), ext.WithStrings())
//
// # Integration – a hand-picked class
//
//	ev := evaluator.New(ext.WithClasses(functions.Class{
//	    Name:  "Text",
//	    Type:  reflect.TypeFor[Text](),
//	    Funcs: []functions.Func{extstring.Capitalize(), extstring.Pad()},
//	}))
package ext

import (
	"fmt"

	"github.com/sandrolain/gognl/pkg/accessor"
	"github.com/sandrolain/gognl/pkg/evaluator"
	"github.com/sandrolain/gognl/pkg/ext/extarray"
	"github.com/sandrolain/gognl/pkg/ext/extcrypto"
	"github.com/sandrolain/gognl/pkg/ext/extdatetime"
	"github.com/sandrolain/gognl/pkg/ext/extnumeric"
	"github.com/sandrolain/gognl/pkg/ext/extstring"
	"github.com/sandrolain/gognl/pkg/ext/exttypes"
	"github.com/sandrolain/gognl/pkg/functions"
)

// All returns every bundled class.
func All() []functions.Class {
	return []functions.Class{
		extnumeric.Class(),
		extstring.Class(),
		extarray.Class(),
		extdatetime.Class(),
		extcrypto.Class(),
		exttypes.Class(),
	}
}

// Runtime returns a fresh runtime with every bundled class registered.
func Runtime() *accessor.Runtime {
	rt, err := functions.Runtime(All()...)
	if err != nil {
		panic(fmt.Sprintf("ext: %v", err))
	}
	return rt
}

// WithClasses returns an EvalOption that registers defs into the
// evaluator's runtime, creating a private runtime when none was set yet.
// A runtime passed with evaluator.WithRuntime before this option is
// modified in place.
//
// It panics if a definition is malformed (a nil Type or a non-function
// overload).
func WithClasses(defs ...functions.Class) evaluator.EvalOption {
	return func(opts *evaluator.EvalOptions) {
		if opts.Runtime == nil {
			opts.Runtime = accessor.NewRuntime()
		}
		if err := functions.Register(opts.Runtime.Classes, defs...); err != nil {
			panic(fmt.Sprintf("ext: %v", err))
		}
	}
}

// WithAll returns an EvalOption registering every bundled class.
func WithAll() evaluator.EvalOption { return WithClasses(All()...) }

// WithMath returns an EvalOption for the @Math class.
func WithMath() evaluator.EvalOption { return WithClasses(extnumeric.Class()) }

// WithStrings returns an EvalOption for the @Strings class.
func WithStrings() evaluator.EvalOption { return WithClasses(extstring.Class()) }

// WithLists returns an EvalOption for the @Lists class.
func WithLists() evaluator.EvalOption { return WithClasses(extarray.Class()) }

// WithDates returns an EvalOption for the @Dates class.
func WithDates() evaluator.EvalOption { return WithClasses(extdatetime.Class()) }

// WithCrypto returns an EvalOption for the @Crypto class.
func WithCrypto() evaluator.EvalOption { return WithClasses(extcrypto.Class()) }

// WithTypes returns an EvalOption for the @Types class.
func WithTypes() evaluator.EvalOption { return WithClasses(exttypes.Class()) }
