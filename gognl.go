// Package gognl is an embeddable object-graph navigation expression engine.
//
// Expressions are trees of evaluator nodes that read and write properties,
// index sequences and maps, call methods and static functions, and combine
// values with OGNL-style operators. Trees are built with the constructors
// of the evaluator package or decoded from YAML by the astyaml package.
//
// # Quick Start
//
//	// Build a tree and read through it
//	node := evaluator.NewChain(evaluator.Prop("Address"), evaluator.Prop("City"))
//	city, err := gognl.GetValue(node, person)
//
//	// Write through the same tree
//	err = gognl.SetValue(node, person, "Rome")
//
//	// Decode a YAML tree once, evaluate it many times
//	node, err := gognl.Parse("{chain: [{property: items}, {property: !subscript last, indexed: true}]}")
//	last, _ := gognl.Eval(ctx, node, order)
//
//	// With options and the extension classes
//	result, err := gognl.EvalYAML(ctx, "{staticMethod: max, class: Math, args: [1, 2]}", nil,
//	    ext.WithAll(),
//	    evaluator.WithTimeout(5*time.Second),
//	)
//
// # More Information
//
//   - Nodes and evaluation: github.com/sandrolain/gognl/pkg/evaluator
//   - Accessors and classes: github.com/sandrolain/gognl/pkg/accessor
//   - Member resolution: github.com/sandrolain/gognl/pkg/members
//   - Coercion: github.com/sandrolain/gognl/pkg/coerce
//   - YAML trees: github.com/sandrolain/gognl/pkg/astyaml
//   - Static classes: github.com/sandrolain/gognl/pkg/ext
package gognl

import (
	"context"
	"fmt"
	"reflect"

	"github.com/sandrolain/gognl/pkg/astyaml"
	"github.com/sandrolain/gognl/pkg/evaluator"
)

// Version returns the current version of gognl.
func Version() string {
	return "v0.1.0-dev"
}

// GetValue evaluates node against root with a fresh context.
func GetValue(node evaluator.Node, root any, opts ...evaluator.EvalOption) (any, error) {
	return evaluator.Evaluate(node, evaluator.NewContext(opts...), root)
}

// GetValueAs evaluates node against root and converts the result to t.
//
// Example:
//
//	age, err := gognl.GetValueAs(evaluator.Prop("Age"), data, reflect.TypeFor[int64]())
func GetValueAs(node evaluator.Node, root any, t reflect.Type, opts ...evaluator.EvalOption) (any, error) {
	return evaluator.EvaluateAs(node, evaluator.NewContext(opts...), root, t)
}

// SetValue assigns value through node into root.
func SetValue(node evaluator.Node, root, value any, opts ...evaluator.EvalOption) error {
	return evaluator.Assign(node, evaluator.NewContext(opts...), root, value)
}

// Parse decodes a YAML expression tree. The result is immutable and safe
// for concurrent evaluation.
func Parse(src string) (evaluator.Node, error) {
	return astyaml.Parse(src)
}

// MustParse is like Parse but panics if the tree cannot be decoded.
// It simplifies safe initialization of global variables.
func MustParse(src string) evaluator.Node {
	node, err := Parse(src)
	if err != nil {
		panic(fmt.Sprintf("gognl: Parse(%q): %v", src, err))
	}
	return node
}

// Eval evaluates node against data with an Evaluator built from opts, so
// the evaluator timeout (30s unless overridden) applies.
func Eval(ctx context.Context, node evaluator.Node, data any, opts ...evaluator.EvalOption) (any, error) {
	return evaluator.New(opts...).Eval(ctx, node, data)
}

// EvalYAML decodes src and evaluates it against data. String operands of
// eval nodes are decoded as YAML trees too.
//
// For repeated evaluations of the same tree, use Parse and Eval instead.
func EvalYAML(ctx context.Context, src string, data any, opts ...evaluator.EvalOption) (any, error) {
	opts = append([]evaluator.EvalOption{evaluator.WithParser(astyaml.Parse)}, opts...)
	return evaluator.New(opts...).EvalString(ctx, src, data)
}
