package evaluator

import (
	"fmt"
	"reflect"

	"github.com/sandrolain/gognl/pkg/types"
)

// Evaluate makes root the context's root and evaluates node against it.
// An attached accelerator is preferred over tree evaluation. Panics raised
// while evaluating are returned as ErrEvaluation errors.
func Evaluate(node Node, ctx *Context, root any) (result any, err error) {
	if node == nil {
		return nil, types.NewError(types.ErrNotANode, "nil expression")
	}
	ctx.SetRoot(root)
	defer recoverInto(ctx, node, &err)

	if a := node.Accelerator(); a != nil {
		return a.Get(ctx, root)
	}
	return node.GetValue(ctx, root)
}

// EvaluateAs evaluates node and converts the result to t with the
// context's converter. A nil result stays nil.
func EvaluateAs(node Node, ctx *Context, root any, t reflect.Type) (any, error) {
	v, err := Evaluate(node, ctx, root)
	if err != nil || v == nil || t == nil {
		return v, err
	}
	out, ok := ctx.converter.Convert(v, t)
	if !ok {
		return nil, types.Errorf(types.ErrConversion, "cannot convert %T to %s", v, t).WithExpression(node.String())
	}
	return out, nil
}

// Assign makes root the context's root and stores value through node.
func Assign(node Node, ctx *Context, root, value any) (err error) {
	if node == nil {
		return types.NewError(types.ErrNotANode, "nil expression")
	}
	ctx.SetRoot(root)
	defer recoverInto(ctx, node, &err)

	if a := node.Accelerator(); a != nil {
		return a.Set(ctx, root, value)
	}
	return node.SetValue(ctx, root, value)
}

func recoverInto(ctx *Context, node Node, err *error) {
	r := recover()
	if r == nil {
		return
	}
	ctx.depth = 0
	ctx.curEval = nil
	ctx.logger.Error("evaluation panicked", "expression", node.String(), "panic", r)
	e := types.Errorf(types.ErrEvaluation, "evaluation panicked: %v", r).WithExpression(node.String())
	if cause, ok := r.(error); ok {
		e.WithCause(cause)
	}
	*err = e
}

// GoString helps when a node shows up in test failure output.
func (b *nodeBase) GoString() string {
	return fmt.Sprintf("evaluator.Node(%s %q)", b.kind, b.self.String())
}
