package evaluator

import (
	"reflect"
	"strings"

	"github.com/sandrolain/gognl/pkg/accessor"
	"github.com/sandrolain/gognl/pkg/members"
	"github.com/sandrolain/gognl/pkg/types"
)

// Named is implemented by nodes that refer to a member or variable by a
// fixed name.
type Named interface {
	Node
	Name() string
}

// Indexed is implemented by nodes that may use index syntax.
type Indexed interface {
	Node
	IsIndexed() bool
}

// ── chain ────────────────────────────────────────────────────────────────────

// Chain threads a value through its segments left to right: each segment
// is evaluated against the previous segment's result.
type Chain struct{ nodeBase }

// NewChain creates a chain. Nested chains are flattened.
func NewChain(segments ...Node) *Chain {
	if len(segments) == 0 {
		panic("evaluator: empty chain")
	}
	n := &Chain{}
	n.init(n, types.KindChain, flatten(types.KindChain, segments))
	return n
}

type indexedHit struct {
	t  reflect.Type
	ip *members.IndexedProperty
}

// indexedPair reports whether segment i names an indexed property of
// target that segment i+1 indexes into.
func (n *Chain) indexedPair(ctx *Context, i int, target any) (*members.IndexedProperty, *Property) {
	if i+1 >= len(n.children) || target == nil {
		return nil, nil
	}
	prop, ok := n.children[i].(*Property)
	if !ok || prop.indexed {
		return nil, nil
	}
	next, ok := n.children[i+1].(*Property)
	if !ok || !next.indexed {
		return nil, nil
	}
	name, ok := prop.constName()
	if !ok {
		return nil, nil
	}
	t := reflect.TypeOf(target)
	if v, ok := ctx.scratchValue(prop); ok {
		if hit := v.(indexedHit); hit.t == t {
			return hit.ip, next
		}
	}
	ip, _ := ctx.runtime.Resolver.IndexedProperty(t, name)
	ctx.setScratch(prop, indexedHit{t: t, ip: ip})
	return ip, next
}

func (n *Chain) get(ctx *Context, source any) (any, error) {
	result := source
	for i := 0; i < len(n.children); i++ {
		if ip, next := n.indexedPair(ctx, i, result); ip != nil {
			index, err := next.key(ctx, result)
			if err != nil {
				return nil, err
			}
			v, err := accessor.GetIndexed(ctx, result, ip, index)
			if err != nil {
				return nil, stamp(err, next)
			}
			if v == nil {
				v = accessor.NullPropertyValue(ctx, result, index)
			}
			result = v
			i++
			continue
		}
		v, err := n.children[i].GetValue(ctx, result)
		if err != nil {
			return nil, err
		}
		result = v
	}
	return result, nil
}

func (n *Chain) set(ctx *Context, target, value any) error {
	last := len(n.children) - 1
	for i := 0; i < last; i++ {
		if ip, next := n.indexedPair(ctx, i, target); ip != nil {
			index, err := next.key(ctx, target)
			if err != nil {
				return err
			}
			if i+1 == last {
				return stamp(accessor.SetIndexed(ctx, target, ip, index, value), next)
			}
			if target, err = accessor.GetIndexed(ctx, target, ip, index); err != nil {
				return stamp(err, next)
			}
			i++
			continue
		}
		v, err := n.children[i].GetValue(ctx, target)
		if err != nil {
			return err
		}
		target = v
	}
	return n.children[last].SetValue(ctx, target, value)
}

func (n *Chain) String() string {
	var b strings.Builder
	for i, c := range n.children {
		if p, ok := c.(Indexed); i > 0 && !(ok && p.IsIndexed()) {
			b.WriteByte('.')
		}
		b.WriteString(c.String())
	}
	return b.String()
}

// ── property ─────────────────────────────────────────────────────────────────

// Property reads or writes a property of the source through the accessor
// registered for its type. The key is evaluated against the root.
type Property struct {
	nodeBase
	indexed bool
}

// NewProperty creates a property node. indexed marks index syntax,
// as in a[key] rather than a.key.
func NewProperty(key Node, indexed bool) *Property {
	n := &Property{indexed: indexed}
	n.init(n, types.KindProperty, []Node{key})
	return n
}

// Prop creates a property access by name.
func Prop(name string) *Property { return NewProperty(NewConst(name), false) }

// Index creates an indexed access with a computed key.
func Index(key Node) *Property { return NewProperty(key, true) }

// IndexAt creates an indexed access with a literal key, which may be a
// types.DynamicSubscript.
func IndexAt(key any) *Property { return NewProperty(NewConst(key), true) }

// IsIndexed implements Indexed.
func (n *Property) IsIndexed() bool { return n.indexed }

// Name returns the constant property name, or "" when the key is computed.
func (n *Property) Name() string {
	name, _ := n.constName()
	return name
}

func (n *Property) constName() (string, bool) {
	c, ok := n.children[0].(*Const)
	if !ok {
		return "", false
	}
	s, ok := c.value.(string)
	return s, ok
}

// key evaluates the key against the root and restores the current object.
func (n *Property) key(ctx *Context, source any) (any, error) {
	m := ctx.mark()
	k, err := n.children[0].GetValue(ctx, ctx.root)
	ctx.restore(m)
	ctx.current = source
	return k, err
}

func (n *Property) get(ctx *Context, source any) (any, error) {
	k, err := n.key(ctx, source)
	if err != nil {
		return nil, err
	}
	ctx.indexed = n.indexed
	v, err := accessor.GetProperty(ctx, source, k)
	ctx.indexed = false
	if err != nil {
		return nil, err
	}
	if v == nil {
		v = accessor.NullPropertyValue(ctx, source, k)
	}
	return v, nil
}

func (n *Property) set(ctx *Context, target, value any) error {
	k, err := n.key(ctx, target)
	if err != nil {
		return err
	}
	ctx.indexed = n.indexed
	err = accessor.SetProperty(ctx, target, k, value)
	ctx.indexed = false
	return err
}

func (n *Property) IsSimpleProperty(*Context) bool {
	_, ok := n.constName()
	return ok && !n.indexed
}

func (n *Property) String() string {
	if n.indexed {
		return "[" + n.children[0].String() + "]"
	}
	if name, ok := n.constName(); ok {
		return name
	}
	return "(" + n.children[0].String() + ")"
}

// ── method ───────────────────────────────────────────────────────────────────

// Method invokes a method on the source. Arguments are evaluated against
// the root; the best overload is chosen by the member resolver.
type Method struct {
	nodeBase
	name string
}

// NewMethod creates a method call node.
func NewMethod(name string, args ...Node) *Method {
	n := &Method{name: name}
	n.init(n, types.KindMethod, args)
	return n
}

// Name implements Named.
func (n *Method) Name() string { return n.name }

func (n *Method) get(ctx *Context, source any) (any, error) {
	args, err := evalArgs(ctx, n.children, source)
	if err != nil {
		return nil, err
	}
	v, err := accessor.CallMethod(ctx, source, n.name, args)
	if types.IsCode(err, types.ErrNoSuchMember) && ctx.root != nil && !identical(source, ctx.root) {
		source = ctx.root
		v, err = accessor.CallMethod(ctx, source, n.name, args)
	}
	if err != nil {
		return nil, err
	}
	if v == nil {
		v = accessor.NullMethodResult(ctx, source, n.name, args)
	}
	return v, nil
}

// set calls the writer counterpart of the method with the value appended
// to the arguments: getItem(i) = v calls setItem(i, v).
func (n *Method) set(ctx *Context, target, value any) error {
	args, err := evalArgs(ctx, n.children, target)
	if err != nil {
		return err
	}
	_, err = accessor.CallMethod(ctx, target, writerName(n.name), append(args, value))
	return err
}

func writerName(name string) string {
	if rest, ok := strings.CutPrefix(name, "get"); ok && rest != "" {
		return "set" + rest
	}
	if rest, ok := strings.CutPrefix(name, "Get"); ok && rest != "" {
		return "Set" + rest
	}
	return "Set" + members.Capitalize(name)
}

func (n *Method) String() string {
	return n.name + "(" + joinNodes(n.children, ", ") + ")"
}

// ── statics ──────────────────────────────────────────────────────────────────

// StaticField reads a class-level value: an enumeration member, the class
// itself or a registered static field.
type StaticField struct {
	nodeBase
	class string
	name  string
}

// NewStaticField creates a @class@name node.
func NewStaticField(class, name string) *StaticField {
	n := &StaticField{class: class, name: name}
	n.init(n, types.KindStaticField, nil)
	return n
}

// Class returns the class name.
func (n *StaticField) Class() string { return n.class }

// Name implements Named.
func (n *StaticField) Name() string { return n.name }

func (n *StaticField) get(ctx *Context, _ any) (any, error) {
	t, err := ctx.classes.ResolveClass(n.class)
	if err != nil {
		return nil, err
	}
	return accessor.GetStaticField(ctx, t, n.name)
}

func (n *StaticField) set(ctx *Context, _, value any) error {
	t, err := ctx.classes.ResolveClass(n.class)
	if err != nil {
		return err
	}
	return accessor.SetStaticField(ctx, t, n.name, value)
}

func (n *StaticField) constantSelf(ctx *Context) bool {
	t, err := ctx.classes.ResolveClass(n.class)
	return err == nil && accessor.IsConstantStatic(ctx.runtime, t, n.name)
}

func (n *StaticField) String() string { return "@" + n.class + "@" + n.name }

// StaticMethod calls a registered static function of a class.
type StaticMethod struct {
	nodeBase
	class string
	name  string
}

// NewStaticMethod creates a @class@name(args) node.
func NewStaticMethod(class, name string, args ...Node) *StaticMethod {
	n := &StaticMethod{class: class, name: name}
	n.init(n, types.KindStaticMethod, args)
	return n
}

// Class returns the class name.
func (n *StaticMethod) Class() string { return n.class }

// Name implements Named.
func (n *StaticMethod) Name() string { return n.name }

func (n *StaticMethod) get(ctx *Context, source any) (any, error) {
	t, err := ctx.classes.ResolveClass(n.class)
	if err != nil {
		return nil, err
	}
	args, err := evalArgs(ctx, n.children, source)
	if err != nil {
		return nil, err
	}
	return accessor.CallStatic(ctx, t, n.name, args)
}

func (n *StaticMethod) String() string {
	return "@" + n.class + "@" + n.name + "(" + joinNodes(n.children, ", ") + ")"
}

// ── constructors ─────────────────────────────────────────────────────────────

// Ctor creates a new value of a named class, or a new slice in array form.
type Ctor struct {
	nodeBase
	class string
	array bool
}

// NewCtor creates a new class(args) node.
func NewCtor(class string, args ...Node) *Ctor {
	n := &Ctor{class: class}
	n.init(n, types.KindCtor, args)
	return n
}

// NewArrayCtor creates a new class[size] node, or new class[] {a, b} when
// sizeOrInit is a *List.
func NewArrayCtor(class string, sizeOrInit Node) *Ctor {
	n := &Ctor{class: class, array: true}
	n.init(n, types.KindCtor, []Node{sizeOrInit})
	return n
}

// Class returns the class name.
func (n *Ctor) Class() string { return n.class }

// IsArray reports whether the node creates a slice.
func (n *Ctor) IsArray() bool { return n.array }

func (n *Ctor) get(ctx *Context, source any) (any, error) {
	t, err := ctx.classes.ResolveClass(n.class)
	if err != nil {
		return nil, err
	}
	args, err := evalArgs(ctx, n.children, source)
	if err != nil {
		return nil, err
	}
	if n.array {
		return accessor.NewArray(ctx, t, args[0])
	}
	return accessor.Construct(ctx, t, args)
}

func (n *Ctor) String() string {
	if !n.array {
		return "new " + n.class + "(" + joinNodes(n.children, ", ") + ")"
	}
	if _, ok := n.children[0].(*List); ok {
		return "new " + n.class + "[] " + n.children[0].String()
	}
	return "new " + n.class + "[" + n.children[0].String() + "]"
}
