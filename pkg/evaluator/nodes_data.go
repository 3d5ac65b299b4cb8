package evaluator

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"

	"github.com/cockroachdb/apd/v3"

	"github.com/sandrolain/gognl/pkg/accessor"
	"github.com/sandrolain/gognl/pkg/coerce"
	"github.com/sandrolain/gognl/pkg/types"
)

// ── literals ─────────────────────────────────────────────────────────────────

// Const is a literal value.
type Const struct {
	nodeBase
	value any
}

// NewConst creates a literal node.
func NewConst(v any) *Const {
	n := &Const{value: v}
	n.init(n, types.KindConst, nil)
	return n
}

// Value returns the literal.
func (n *Const) Value() any { return n.value }

func (n *Const) get(*Context, any) (any, error) { return n.value, nil }

func (n *Const) constantSelf(*Context) bool { return true }

func (n *Const) String() string {
	switch v := n.value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case int64:
		return strconv.FormatInt(v, 10) + "L"
	case *big.Int:
		return v.String() + "H"
	case *apd.Decimal:
		return v.String() + "B"
	case types.DynamicSubscript:
		return v.String()
	}
	return fmt.Sprint(n.value)
}

// ── collections ──────────────────────────────────────────────────────────────

// List builds a fresh []any from its elements, evaluated against the
// source.
type List struct{ nodeBase }

// NewList creates a list literal.
func NewList(elems ...Node) *List {
	n := &List{}
	n.init(n, types.KindList, elems)
	return n
}

func (n *List) get(ctx *Context, source any) (any, error) {
	return evalAll(ctx, n.children, source)
}

func (n *List) String() string { return "{ " + joinNodes(n.children, ", ") + " }" }

// KeyValue is one entry of a map literal. Only Map evaluates it.
type KeyValue struct{ nodeBase }

// NewKeyValue creates a map entry.
func NewKeyValue(key, value Node) *KeyValue {
	n := &KeyValue{}
	n.init(n, types.KindKeyValue, []Node{key, value})
	return n
}

// Key returns the key expression.
func (n *KeyValue) Key() Node { return n.children[0] }

// Value returns the value expression.
func (n *KeyValue) Value() Node { return n.children[1] }

func (n *KeyValue) get(*Context, any) (any, error) { return nil, nil }

func (n *KeyValue) String() string { return n.children[0].String() + " : " + n.children[1].String() }

// Map builds a fresh map from its entries. Without a class the result is
// an *accessor.OrderedMap keeping entry order.
type Map struct {
	nodeBase
	class string
}

// NewMap creates a map literal of the named class; class may be empty.
func NewMap(class string, entries ...*KeyValue) *Map {
	children := make([]Node, len(entries))
	for i, e := range entries {
		children[i] = e
	}
	n := &Map{class: class}
	n.init(n, types.KindMap, children)
	return n
}

// Class returns the map class name, or "".
func (n *Map) Class() string { return n.class }

func (n *Map) get(ctx *Context, source any) (any, error) {
	put, m, err := n.create(ctx)
	if err != nil {
		return nil, err
	}
	mk := ctx.mark()
	for _, c := range n.children {
		kv := c.(*KeyValue)
		ctx.restore(mk)
		k, err := kv.Key().GetValue(ctx, source)
		if err != nil {
			return nil, err
		}
		if t := reflect.TypeOf(k); t != nil && !t.Comparable() {
			return nil, types.Errorf(types.ErrConversion, "map key of type %s is not comparable", t).WithExpression(kv.String())
		}
		ctx.restore(mk)
		v, err := kv.Value().GetValue(ctx, source)
		if err != nil {
			return nil, err
		}
		if err := put(k, v); err != nil {
			return nil, stamp(err, kv)
		}
	}
	return m, nil
}

// create returns the new map and a function storing an entry into it.
func (n *Map) create(ctx *Context) (func(k, v any) error, any, error) {
	if n.class == "" {
		m := accessor.NewOrderedMap()
		return func(k, v any) error { m.Put(k, v); return nil }, m, nil
	}
	t, err := ctx.classes.ResolveClass(n.class)
	if err != nil {
		return nil, nil, err
	}
	m, err := accessor.Construct(ctx, t, nil)
	if err != nil {
		return nil, nil, err
	}
	if mm, ok := m.(accessor.Mapping); ok {
		return func(k, v any) error { mm.Put(k, v); return nil }, m, nil
	}
	rv := reflect.ValueOf(m)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Map {
		return nil, nil, types.Errorf(types.ErrConversion, "class %s is not a map", n.class)
	}
	mt := rv.Type()
	put := func(k, v any) error {
		kv, err := n.convert(ctx, k, mt.Key())
		if err != nil {
			return err
		}
		vv, err := n.convert(ctx, v, mt.Elem())
		if err != nil {
			return err
		}
		rv.SetMapIndex(kv, vv)
		return nil
	}
	return put, m, nil
}

func (n *Map) convert(ctx *Context, v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	c, ok := ctx.converter.Convert(v, t)
	if !ok {
		return reflect.Value{}, types.Errorf(types.ErrConversion, "cannot convert %T to %s", v, t)
	}
	return reflect.ValueOf(c), nil
}

func (n *Map) String() string {
	prefix := "#"
	if n.class != "" {
		prefix = "#@" + n.class + "@"
	}
	return prefix + "{ " + joinNodes(n.children, ", ") + " }"
}

// ── references ───────────────────────────────────────────────────────────────

// VarRef reads or binds a context variable.
type VarRef struct {
	nodeBase
	name string
}

// NewVarRef creates a #name node.
func NewVarRef(name string) *VarRef {
	n := &VarRef{name: name}
	n.init(n, types.KindVarRef, nil)
	return n
}

// Name implements Named.
func (n *VarRef) Name() string { return n.name }

func (n *VarRef) get(ctx *Context, _ any) (any, error) {
	v, _ := ctx.Get(n.name)
	return v, nil
}

func (n *VarRef) set(ctx *Context, _, value any) error {
	ctx.Set(n.name, value)
	return nil
}

func (n *VarRef) String() string { return "#" + n.name }

// RootRef is #root.
type RootRef struct{ nodeBase }

// NewRootRef creates a #root node.
func NewRootRef() *RootRef {
	n := &RootRef{}
	n.init(n, types.KindRootRef, nil)
	return n
}

func (n *RootRef) get(ctx *Context, _ any) (any, error) { return ctx.root, nil }

func (n *RootRef) set(ctx *Context, _, value any) error {
	ctx.SetRoot(value)
	return nil
}

func (n *RootRef) String() string { return "#root" }

// ThisRef is #this: the object the enclosing node is working on.
type ThisRef struct{ nodeBase }

// NewThisRef creates a #this node.
func NewThisRef() *ThisRef {
	n := &ThisRef{}
	n.init(n, types.KindThisRef, nil)
	return n
}

func (n *ThisRef) get(_ *Context, source any) (any, error) { return source, nil }

func (n *ThisRef) set(ctx *Context, _, value any) error {
	ctx.current = value
	return nil
}

func (n *ThisRef) String() string { return "#this" }

// ── selection and projection ─────────────────────────────────────────────────

// Selection filters or maps the elements of its source. Every kind yields
// a fresh []any; selectFirst and selectLast yield at most one element.
type Selection struct{ nodeBase }

// NewSelection creates a node of kind KindSelect, KindSelectFirst,
// KindSelectLast or KindProject.
func NewSelection(kind types.NodeKind, expr Node) *Selection {
	switch kind {
	case types.KindSelect, types.KindSelectFirst, types.KindSelectLast, types.KindProject:
	default:
		panic(fmt.Sprintf("evaluator: %s is not a selection kind", kind))
	}
	n := &Selection{}
	n.init(n, kind, []Node{expr})
	return n
}

func (n *Selection) get(ctx *Context, source any) (any, error) {
	seq, err := accessor.Elements(ctx.runtime, source)
	if err != nil {
		return nil, err
	}
	expr := n.children[0]
	out := []any{}
	m := ctx.mark()
	for e := range seq {
		if err := ctx.Err(); err != nil {
			return nil, types.NewError(types.ErrEvaluation, "evaluation cancelled").WithCause(err)
		}
		ctx.restore(m)
		v, err := expr.GetValue(ctx, e)
		if err != nil {
			return nil, err
		}
		if n.kind == types.KindProject {
			out = append(out, v)
			continue
		}
		if !coerce.Truth(v) {
			continue
		}
		switch n.kind {
		case types.KindSelectFirst:
			return []any{e}, nil
		case types.KindSelectLast:
			out = append(out[:0], e)
		default:
			out = append(out, e)
		}
	}
	return out, nil
}

func (n *Selection) String() string {
	marker := map[types.NodeKind]string{
		types.KindSelect:      "? ",
		types.KindSelectFirst: "^ ",
		types.KindSelectLast:  "$ ",
		types.KindProject:     " ",
	}[n.kind]
	return "{" + marker + n.children[0].String() + " }"
}

// ── meta ─────────────────────────────────────────────────────────────────────

// Eval evaluates an expression value against a new root: the first child
// yields the expression (a Node, or a string parsed through the context's
// parser), the second the root to evaluate it against.
type Eval struct{ nodeBase }

// NewEval creates an (expr)(root) node.
func NewEval(expr, root Node) *Eval {
	n := &Eval{}
	n.init(n, types.KindEval, []Node{expr, root})
	return n
}

func (n *Eval) target(ctx *Context, source any) (Node, any, error) {
	vals, err := evalAll(ctx, n.children, source)
	if err != nil {
		return nil, nil, err
	}
	switch expr := vals[0].(type) {
	case Node:
		return expr, vals[1], nil
	case string:
		if ctx.parse == nil {
			return nil, nil, types.Errorf(types.ErrNotANode, "no parser configured to evaluate %q", expr)
		}
		node, err := ctx.parse(expr)
		if err != nil {
			return nil, nil, err
		}
		return node, vals[1], nil
	}
	return nil, nil, types.Errorf(types.ErrNotANode, "cannot evaluate a value of type %T", vals[0])
}

func (n *Eval) get(ctx *Context, source any) (any, error) {
	node, root, err := n.target(ctx, source)
	if err != nil {
		return nil, err
	}
	prev := ctx.root
	ctx.root = root
	defer func() { ctx.root = prev }()
	return node.GetValue(ctx, root)
}

func (n *Eval) set(ctx *Context, target, value any) error {
	node, root, err := n.target(ctx, target)
	if err != nil {
		return err
	}
	prev := ctx.root
	ctx.root = root
	defer func() { ctx.root = prev }()
	return node.SetValue(ctx, root, value)
}

func (n *Eval) String() string {
	return "(" + n.children[0].String() + ")(" + n.children[1].String() + ")"
}

// Lambda yields its body unevaluated, for use with Eval.
type Lambda struct{ nodeBase }

// NewLambda creates a :[ body ] node.
func NewLambda(body Node) *Lambda {
	n := &Lambda{}
	n.init(n, types.KindLambda, []Node{body})
	return n
}

// Body returns the wrapped node.
func (n *Lambda) Body() Node { return n.children[0] }

func (n *Lambda) get(*Context, any) (any, error) { return n.children[0], nil }

// IsConstant implements Node. The body is never evaluated, so only the
// lambda itself counts.
func (n *Lambda) IsConstant(*Context) bool { return true }

func (n *Lambda) String() string { return ":[ " + n.children[0].String() + " ]" }
