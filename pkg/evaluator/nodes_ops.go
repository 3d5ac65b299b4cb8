package evaluator

import (
	"fmt"
	"reflect"

	"github.com/sandrolain/gognl/pkg/accessor"
	"github.com/sandrolain/gognl/pkg/coerce"
	"github.com/sandrolain/gognl/pkg/types"
)

// ── arithmetic ───────────────────────────────────────────────────────────────

var arithmeticOps = map[types.NodeKind]func(a, b any) (any, error){
	types.KindAdd:                coerce.Add,
	types.KindSubtract:           coerce.Subtract,
	types.KindMultiply:           coerce.Multiply,
	types.KindDivide:             coerce.Divide,
	types.KindRemainder:          coerce.Remainder,
	types.KindBitAnd:             coerce.BitAnd,
	types.KindBitOr:              coerce.BitOr,
	types.KindXor:                coerce.Xor,
	types.KindShiftLeft:          coerce.ShiftLeft,
	types.KindShiftRight:         coerce.ShiftRight,
	types.KindUnsignedShiftRight: coerce.UnsignedShiftRight,
}

// Arithmetic folds its operands left to right with a numeric operator.
// Addition concatenates when an operand is not numeric.
type Arithmetic struct {
	nodeBase
	op func(a, b any) (any, error)
}

// NewArithmetic creates an arithmetic node. Runs of the same associative
// operator are flattened into one node. It panics when kind is not an
// arithmetic kind or fewer than two operands are given.
func NewArithmetic(kind types.NodeKind, operands ...Node) *Arithmetic {
	op, ok := arithmeticOps[kind]
	if !ok {
		panic(fmt.Sprintf("evaluator: %s is not an arithmetic kind", kind))
	}
	if len(operands) < 2 {
		panic(fmt.Sprintf("evaluator: %s needs at least two operands", kind))
	}
	n := &Arithmetic{op: op}
	n.init(n, kind, flatten(kind, operands))
	return n
}

func (n *Arithmetic) get(ctx *Context, source any) (any, error) {
	m := ctx.mark()
	result, err := n.children[0].GetValue(ctx, source)
	if err != nil {
		return nil, err
	}
	for _, c := range n.children[1:] {
		ctx.restore(m)
		v, err := c.GetValue(ctx, source)
		if err != nil {
			return nil, err
		}
		if result, err = n.op(result, v); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (n *Arithmetic) constantSelf(*Context) bool { return true }

func (n *Arithmetic) String() string {
	return wrapOperator(n, joinNodes(n.children, " "+n.kind.Operator()+" "))
}

// ── unary ────────────────────────────────────────────────────────────────────

// Unary applies negation, bitwise complement or logical not.
type Unary struct{ nodeBase }

// NewUnary creates a unary node of kind KindNegate, KindBitNegate or
// KindNot.
func NewUnary(kind types.NodeKind, operand Node) *Unary {
	switch kind {
	case types.KindNegate, types.KindBitNegate, types.KindNot:
	default:
		panic(fmt.Sprintf("evaluator: %s is not a unary kind", kind))
	}
	n := &Unary{}
	n.init(n, kind, []Node{operand})
	return n
}

func (n *Unary) get(ctx *Context, source any) (any, error) {
	v, err := n.children[0].GetValue(ctx, source)
	if err != nil {
		return nil, err
	}
	switch n.kind {
	case types.KindNegate:
		return coerce.Negate(v)
	case types.KindBitNegate:
		return coerce.BitNegate(v)
	}
	return !coerce.Truth(v), nil
}

func (n *Unary) constantSelf(*Context) bool { return true }

func (n *Unary) String() string {
	return wrapOperator(n, n.kind.Operator()+n.children[0].String())
}

// ── logical ──────────────────────────────────────────────────────────────────

// Logical is a short-circuiting and/or. It yields the operand value that
// decided the outcome, not a bool.
type Logical struct{ nodeBase }

// NewLogical creates a KindAnd or KindOr node.
func NewLogical(kind types.NodeKind, operands ...Node) *Logical {
	if kind != types.KindAnd && kind != types.KindOr {
		panic(fmt.Sprintf("evaluator: %s is not a logical kind", kind))
	}
	if len(operands) < 2 {
		panic(fmt.Sprintf("evaluator: %s needs at least two operands", kind))
	}
	n := &Logical{}
	n.init(n, kind, flatten(kind, operands))
	return n
}

// decides reports whether an operand of truth t ends the evaluation.
func (n *Logical) decides(t bool) bool {
	if n.kind == types.KindAnd {
		return !t
	}
	return t
}

func (n *Logical) get(ctx *Context, source any) (any, error) {
	m := ctx.mark()
	last := len(n.children) - 1
	for i, c := range n.children {
		ctx.restore(m)
		v, err := c.GetValue(ctx, source)
		if err != nil {
			return nil, err
		}
		if i == last || n.decides(coerce.Truth(v)) {
			return v, nil
		}
	}
	return nil, nil
}

// set assigns into the last operand when the preceding ones let evaluation
// reach it; otherwise it does nothing.
func (n *Logical) set(ctx *Context, target, value any) error {
	last := len(n.children) - 1
	for _, c := range n.children[:last] {
		v, err := c.GetValue(ctx, target)
		if err != nil {
			return err
		}
		if n.decides(coerce.Truth(v)) {
			return nil
		}
	}
	return n.children[last].SetValue(ctx, target, value)
}

func (n *Logical) constantSelf(*Context) bool { return true }

func (n *Logical) String() string {
	return wrapOperator(n, joinNodes(n.children, " "+n.kind.Operator()+" "))
}

// ── comparison ───────────────────────────────────────────────────────────────

// Comparison compares two operands with numeric promotion.
type Comparison struct{ nodeBase }

// NewComparison creates an equality or ordering node.
func NewComparison(kind types.NodeKind, left, right Node) *Comparison {
	switch kind {
	case types.KindEq, types.KindNotEq, types.KindLess, types.KindLessEq, types.KindGreater, types.KindGreaterEq:
	default:
		panic(fmt.Sprintf("evaluator: %s is not a comparison kind", kind))
	}
	n := &Comparison{}
	n.init(n, kind, []Node{left, right})
	return n
}

func (n *Comparison) get(ctx *Context, source any) (any, error) {
	vals, err := evalAll(ctx, n.children, source)
	if err != nil {
		return nil, err
	}
	a, b := vals[0], vals[1]
	switch n.kind {
	case types.KindEq:
		return coerce.Equal(a, b), nil
	case types.KindNotEq:
		return !coerce.Equal(a, b), nil
	}
	c, err := coerce.Compare(a, b)
	if err != nil {
		return nil, err
	}
	switch n.kind {
	case types.KindLess:
		return c < 0, nil
	case types.KindLessEq:
		return c <= 0, nil
	case types.KindGreater:
		return c > 0, nil
	}
	return c >= 0, nil
}

func (n *Comparison) constantSelf(*Context) bool { return true }

func (n *Comparison) String() string {
	return wrapOperator(n, n.children[0].String()+" "+n.kind.Operator()+" "+n.children[1].String())
}

// ── membership ───────────────────────────────────────────────────────────────

// Membership tests whether the left operand equals an element of the
// right one.
type Membership struct{ nodeBase }

// NewMembership creates a KindIn or KindNotIn node.
func NewMembership(kind types.NodeKind, value, collection Node) *Membership {
	if kind != types.KindIn && kind != types.KindNotIn {
		panic(fmt.Sprintf("evaluator: %s is not a membership kind", kind))
	}
	n := &Membership{}
	n.init(n, kind, []Node{value, collection})
	return n
}

func (n *Membership) get(ctx *Context, source any) (any, error) {
	vals, err := evalAll(ctx, n.children, source)
	if err != nil {
		return nil, err
	}
	seq, err := accessor.Elements(ctx.runtime, vals[1])
	if err != nil {
		return nil, err
	}
	found := false
	for e := range seq {
		if coerce.Equal(vals[0], e) {
			found = true
			break
		}
	}
	return found == (n.kind == types.KindIn), nil
}

func (n *Membership) constantSelf(*Context) bool { return true }

func (n *Membership) String() string {
	return wrapOperator(n, n.children[0].String()+" "+n.kind.Operator()+" "+n.children[1].String())
}

// ── instanceof ───────────────────────────────────────────────────────────────

// InstanceOf tests whether the operand's dynamic type is assignable to a
// named class.
type InstanceOf struct {
	nodeBase
	class string
}

// NewInstanceOf creates an instanceof node.
func NewInstanceOf(operand Node, class string) *InstanceOf {
	n := &InstanceOf{class: class}
	n.init(n, types.KindInstanceOf, []Node{operand})
	return n
}

// Class returns the class name tested against.
func (n *InstanceOf) Class() string { return n.class }

func (n *InstanceOf) get(ctx *Context, source any) (any, error) {
	v, err := n.children[0].GetValue(ctx, source)
	if err != nil {
		return nil, err
	}
	t, err := ctx.classes.ResolveClass(n.class)
	if err != nil {
		return nil, err
	}
	return v != nil && reflect.TypeOf(v).AssignableTo(t), nil
}

func (n *InstanceOf) constantSelf(*Context) bool { return true }

func (n *InstanceOf) String() string {
	return wrapOperator(n, n.children[0].String()+" instanceof "+n.class)
}

// ── conditional ──────────────────────────────────────────────────────────────

// Test is the conditional operator: exactly one branch is evaluated.
type Test struct{ nodeBase }

// NewTest creates a cond ? then : otherwise node.
func NewTest(cond, then, otherwise Node) *Test {
	n := &Test{}
	n.init(n, types.KindTest, []Node{cond, then, otherwise})
	return n
}

func (n *Test) branch(ctx *Context, source any) (Node, error) {
	c, err := n.children[0].GetValue(ctx, source)
	if err != nil {
		return nil, err
	}
	if coerce.Truth(c) {
		return n.children[1], nil
	}
	return n.children[2], nil
}

func (n *Test) get(ctx *Context, source any) (any, error) {
	m := ctx.mark()
	b, err := n.branch(ctx, source)
	if err != nil {
		return nil, err
	}
	ctx.restore(m)
	return b.GetValue(ctx, source)
}

func (n *Test) set(ctx *Context, target, value any) error {
	b, err := n.branch(ctx, target)
	if err != nil {
		return err
	}
	return b.SetValue(ctx, target, value)
}

func (n *Test) constantSelf(*Context) bool { return true }

func (n *Test) String() string {
	return wrapOperator(n, n.children[0].String()+" ? "+n.children[1].String()+" : "+n.children[2].String())
}

// ── sequence and assignment ──────────────────────────────────────────────────

// Sequence evaluates every operand and yields the last value.
type Sequence struct{ nodeBase }

// NewSequence creates a comma sequence.
func NewSequence(operands ...Node) *Sequence {
	if len(operands) == 0 {
		panic("evaluator: empty sequence")
	}
	n := &Sequence{}
	n.init(n, types.KindSequence, flatten(types.KindSequence, operands))
	return n
}

func (n *Sequence) get(ctx *Context, source any) (any, error) {
	var result any
	for _, c := range n.children {
		v, err := c.GetValue(ctx, source)
		if err != nil {
			return nil, err
		}
		result = v
	}
	return result, nil
}

func (n *Sequence) set(ctx *Context, target, value any) error {
	last := len(n.children) - 1
	for _, c := range n.children[:last] {
		if _, err := c.GetValue(ctx, target); err != nil {
			return err
		}
	}
	return n.children[last].SetValue(ctx, target, value)
}

func (n *Sequence) String() string {
	return wrapOperator(n, joinNodes(n.children, ", "))
}

// Assignment evaluates its right operand, stores it through its left
// operand and yields the stored value.
type Assignment struct{ nodeBase }

// NewAssign creates an assignment node.
func NewAssign(target, value Node) *Assignment {
	n := &Assignment{}
	n.init(n, types.KindAssign, []Node{target, value})
	return n
}

func (n *Assignment) get(ctx *Context, source any) (any, error) {
	v, err := n.children[1].GetValue(ctx, source)
	if err != nil {
		return nil, err
	}
	if err := n.children[0].SetValue(ctx, source, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (n *Assignment) String() string {
	return wrapOperator(n, n.children[0].String()+" = "+n.children[1].String())
}
