// Package functions defines static classes: named groups of Go functions
// and constants that expressions reach as @Class@name(args) and
// @Class@name.
//
// Go has no name overloading, so a Func carries every overload explicitly;
// the member resolver picks the most specific one for each call.
//
// # Example
//
//	greeter := functions.Class{
//	    Name: "Greeter",
//	    Type: reflect.TypeFor[Greeter](),
//	    Funcs: []functions.Func{{
//	        Name:  "greet",
//	        Impls: []any{func(name string) string { return "Hello, " + name + "!" }},
//	    }},
//	}
//	rt := accessor.NewRuntime()
//	if err := functions.Register(rt.Classes, greeter); err != nil {
//	    log.Fatal(err)
//	}
//	// @Greeter@greet("World") == "Hello, World!"
package functions

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/sandrolain/gognl/pkg/accessor"
)

// Func is a static function together with its overloads.
type Func struct {
	// Name is the function name as it appears inside expressions.
	Name string
	// Impls are the overloads. Each is a Go function whose parameters are
	// matched against the call arguments; a trailing error result is
	// reported as a failed invocation.
	Impls []any
}

// Constant is an immutable static field.
type Constant struct {
	Name  string
	Value any
}

// Class describes a static class.
type Class struct {
	// Name is the class name used by @Name@member references.
	Name string
	// Type identifies the class. Classes without a natural Go type use an
	// empty marker struct.
	Type reflect.Type
	// Funcs are the static functions.
	Funcs []Func
	// Constants are the static fields.
	Constants []Constant
}

// FuncNames returns the names of the class's functions in declaration order.
func (c Class) FuncNames() []string {
	names := make([]string, len(c.Funcs))
	for i, f := range c.Funcs {
		names[i] = f.Name
	}
	return names
}

// Register makes each class resolvable by name and registers its functions
// and constants into classes.
func Register(classes *accessor.Classes, defs ...Class) error {
	for _, def := range defs {
		if def.Type == nil {
			return fmt.Errorf("functions: class %s has no type", def.Name)
		}
		classes.Register(def.Name, def.Type)
		for _, f := range def.Funcs {
			if err := classes.RegisterStaticFunc(def.Type, f.Name, f.Impls...); err != nil {
				return fmt.Errorf("functions: %s.%s: %w", def.Name, f.Name, err)
			}
		}
		for _, k := range def.Constants {
			classes.RegisterConstant(def.Type, k.Name, k.Value)
		}
		slog.Debug("gognl: static class registered", "class", def.Name, "funcs", len(def.Funcs), "constants", len(def.Constants))
	}
	return nil
}

// Runtime creates a runtime with defs registered.
func Runtime(defs ...Class) (*accessor.Runtime, error) {
	rt := accessor.NewRuntime()
	if err := Register(rt.Classes, defs...); err != nil {
		return nil, err
	}
	return rt, nil
}
