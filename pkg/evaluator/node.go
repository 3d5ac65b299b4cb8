package evaluator

import (
	"errors"
	"reflect"
	"strings"
	"sync/atomic"

	"github.com/sandrolain/gognl/pkg/accessor"
	"github.com/sandrolain/gognl/pkg/types"
)

// Node is an expression tree node.
//
// GetValue computes the node's value for source and, on success, leaves
// the result as the context's current object. SetValue assigns value
// through the node into target; nodes that are not assignment targets
// fail with types.ErrUnsupportedAssignment.
//
// The set of node types is closed: every Node is one of the types of this
// package.
type Node interface {
	GetValue(ctx *Context, source any) (any, error)
	SetValue(ctx *Context, target, value any) error

	// IsConstant reports whether the value can never depend on the source:
	// the node itself ignores it and so does every child.
	IsConstant(ctx *Context) bool
	// IsSimpleProperty reports whether the node is a single property read
	// by constant name.
	IsSimpleProperty(ctx *Context) bool

	Kind() types.NodeKind
	Children() []Node
	Parent() Node
	String() string

	Accelerator() Accelerator
	SetAccelerator(a Accelerator)

	base() *nodeBase
	get(ctx *Context, source any) (any, error)
	set(ctx *Context, target, value any) error
	constantSelf(ctx *Context) bool
}

// Accelerator is an out-of-band implementation of a node's get and set,
// such as compiled code. Entry points prefer it when attached; it must
// behave exactly like tree evaluation.
type Accelerator interface {
	Get(ctx *Context, source any) (any, error)
	Set(ctx *Context, target, value any) error
}

type accelBox struct{ a Accelerator }

// memoKey identifies the runtime a constant memo was computed under:
// whether a static field is constant depends on the class resolver.
type memoKey struct {
	runtime *accessor.Runtime
	classes accessor.ClassResolver
}

type constBox struct {
	key memoKey
	v   any
}

type constMemo struct {
	key memoKey
	yes bool
}

type nodeBase struct {
	self     Node
	kind     types.NodeKind
	children []Node
	parent   Node

	accel     atomic.Pointer[accelBox]
	constness atomic.Pointer[constMemo]
	konst     atomic.Pointer[constBox]
}

func (b *nodeBase) init(self Node, kind types.NodeKind, children []Node) {
	b.self = self
	b.kind = kind
	b.children = children
	for _, c := range children {
		if c != nil {
			c.base().parent = self
		}
	}
}

// flatten splices the children of same-kind operands into one n-ary run.
func flatten(kind types.NodeKind, operands []Node) []Node {
	if !kind.Flattens() {
		return operands
	}
	out := make([]Node, 0, len(operands))
	for _, op := range operands {
		if op != nil && op.Kind() == kind {
			out = append(out, op.Children()...)
			continue
		}
		out = append(out, op)
	}
	return out
}

func (b *nodeBase) base() *nodeBase      { return b }
func (b *nodeBase) Kind() types.NodeKind { return b.kind }
func (b *nodeBase) Children() []Node     { return b.children }
func (b *nodeBase) Parent() Node         { return b.parent }

func (b *nodeBase) Accelerator() Accelerator {
	if box := b.accel.Load(); box != nil {
		return box.a
	}
	return nil
}

func (b *nodeBase) SetAccelerator(a Accelerator) {
	if a == nil {
		b.accel.Store(nil)
		return
	}
	b.accel.Store(&accelBox{a})
}

func (b *nodeBase) IsSimpleProperty(*Context) bool { return false }

func (b *nodeBase) constantSelf(*Context) bool { return false }

func (b *nodeBase) set(*Context, any, any) error {
	return types.Errorf(types.ErrUnsupportedAssignment, "%s expression is not assignable", b.kind)
}

func (b *nodeBase) IsConstant(ctx *Context) bool {
	if !b.self.constantSelf(ctx) {
		return false
	}
	for _, c := range b.children {
		if c != nil && !c.IsConstant(ctx) {
			return false
		}
	}
	return true
}

// constant is IsConstant computed once per node and runtime.
func (b *nodeBase) constant(ctx *Context, key memoKey) bool {
	if m := b.constness.Load(); m != nil && m.key == key {
		return m.yes
	}
	yes := b.self.IsConstant(ctx)
	b.constness.Store(&constMemo{key: key, yes: yes})
	return yes
}

// GetValue implements Node.
func (b *nodeBase) GetValue(ctx *Context, source any) (any, error) {
	key, memo := ctx.memoKey()
	if box := b.konst.Load(); memo && box != nil && box.key == key {
		ctx.current = box.v
		return box.v, nil
	}
	if err := ctx.enter(b.self); err != nil {
		return nil, err
	}
	ev := ctx.traceStart(b.self, source, false)
	ctx.current = source
	v, err := b.self.get(ctx, source)
	if err == nil && memo && b.constant(ctx, key) {
		if cur := b.konst.Load(); cur != nil && cur.key == key {
			v = cur.v
		} else {
			b.konst.CompareAndSwap(cur, &constBox{key: key, v: v})
		}
	}
	ctx.traceEnd(ev, v, err)
	ctx.leave()
	if err != nil {
		return nil, stamp(err, b.self)
	}
	ctx.current = v
	return v, nil
}

// SetValue implements Node.
func (b *nodeBase) SetValue(ctx *Context, target, value any) error {
	if err := ctx.enter(b.self); err != nil {
		return err
	}
	ev := ctx.traceStart(b.self, target, true)
	ctx.current = target
	err := b.self.set(ctx, target, value)
	ctx.traceEnd(ev, value, err)
	ctx.leave()
	return stamp(err, b.self)
}

// stamp records the failing node's source form on gognl errors that do
// not carry one yet.
func stamp(err error, n Node) error {
	if err == nil {
		return nil
	}
	var e *types.Error
	if errors.As(err, &e) && e.Expression == "" {
		e.WithExpression(n.String())
	}
	return err
}

// evalAll evaluates nodes against source, rolling the stacks back between
// operands.
func evalAll(ctx *Context, nodes []Node, source any) ([]any, error) {
	out := make([]any, len(nodes))
	m := ctx.mark()
	for i, n := range nodes {
		ctx.restore(m)
		v, err := n.GetValue(ctx, source)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// evalArgs evaluates call arguments against the root, then restores the
// current object.
func evalArgs(ctx *Context, args []Node, source any) ([]any, error) {
	values, err := evalAll(ctx, args, ctx.root)
	ctx.current = source
	return values, err
}

// identical reports whether a and b are the same value, comparing
// reference types by address.
func identical(a, b any) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta == nil || ta.Comparable() {
		return a == b
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch ta.Kind() {
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	case reflect.Map, reflect.Func:
		return va.Pointer() == vb.Pointer()
	}
	return false
}

// wrapOperator parenthesizes an operator expression nested in another
// node.
func wrapOperator(n Node, s string) string {
	if n.Parent() == nil {
		return s
	}
	return "(" + s + ")"
}

func joinNodes(nodes []Node, sep string) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, sep)
}
