package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"reflect"

	"github.com/sandrolain/gognl/pkg/accessor"
	"github.com/sandrolain/gognl/pkg/coerce"
	"github.com/sandrolain/gognl/pkg/members"
	"github.com/sandrolain/gognl/pkg/types"
)

// Reserved variable names.
const (
	VarRoot = "root"
	VarThis = "this"
)

// Context holds the state of one evaluation: the root object, the current
// object, the type and accessor stacks, and the bound variables, together
// with the host configuration consulted while resolving members.
//
// A Context is not safe for concurrent use. It may be reused sequentially;
// SetRoot and Clear reset it between evaluations.
type Context struct {
	std       context.Context
	runtime   *accessor.Runtime
	classes   accessor.ClassResolver
	converter coerce.Converter
	access    members.MemberAccess
	parse     ParseFunc
	logger    *slog.Logger
	debug     bool
	maxDepth  int

	root      any
	current   any
	typeStack []reflect.Type
	accessors []reflect.Type
	vars      map[string]any
	indexed   bool
	depth     int

	tracing  bool
	rootEval *Evaluation
	curEval  *Evaluation
	lastEval *Evaluation

	// scratch holds per-node derived values so a shared tree carries no
	// traversal state of its own.
	scratch map[Node]any
}

// memoKey returns the key constant memos are stored under. Resolvers
// that cannot be compared disable the memos.
func (c *Context) memoKey() (memoKey, bool) {
	if c.classes != nil && !reflect.TypeOf(c.classes).Comparable() {
		return memoKey{}, false
	}
	return memoKey{runtime: c.runtime, classes: c.classes}, true
}

// NewContext creates a context configured by opts. Options that only
// concern an Evaluator, such as Timeout, are ignored.
func NewContext(opts ...EvalOption) *Context {
	return newContext(context.Background(), buildOptions(opts))
}

func newContext(std context.Context, o EvalOptions) *Context {
	c := &Context{
		std:       std,
		runtime:   o.Runtime,
		classes:   o.ClassResolver,
		converter: o.Converter,
		access:    o.MemberAccess,
		parse:     o.Parser,
		logger:    o.Logger,
		debug:     o.Debug,
		maxDepth:  o.MaxDepth,
		tracing:   o.Trace,
		vars:      make(map[string]any, len(o.Vars)),
	}
	maps.Copy(c.vars, o.Vars)
	if c.classes == nil {
		c.classes = c.runtime.Classes
	}
	return c
}

// ── roots and current object ────────────────────────────────────────────────

// Root returns the root object.
func (c *Context) Root() any { return c.root }

// SetRoot makes v the root and current object and resets both stacks,
// pushing v's type when v is not nil. Variables and configuration are kept.
func (c *Context) SetRoot(v any) {
	c.root = v
	c.current = v
	c.typeStack = c.typeStack[:0]
	c.accessors = c.accessors[:0]
	if v != nil {
		c.typeStack = append(c.typeStack, reflect.TypeOf(v))
	}
}

// CurrentObject returns the object the innermost node is working on.
func (c *Context) CurrentObject() any { return c.current }

// SetCurrentObject replaces the current object.
func (c *Context) SetCurrentObject(v any) { c.current = v }

// ── type and accessor stacks ─────────────────────────────────────────────────

// CurrentType returns the type most recently resolved, or nil.
func (c *Context) CurrentType() reflect.Type { return top(c.typeStack, 1) }

// PreviousType returns the type resolved before the current one, or nil.
func (c *Context) PreviousType() reflect.Type { return top(c.typeStack, 2) }

// SetCurrentType pushes t onto the type stack.
func (c *Context) SetCurrentType(t reflect.Type) { c.typeStack = append(c.typeStack, t) }

// CurrentAccessor returns the type the most recent member was reached
// through, or nil.
func (c *Context) CurrentAccessor() reflect.Type { return top(c.accessors, 1) }

// PreviousAccessor returns the accessor type before the current one.
func (c *Context) PreviousAccessor() reflect.Type { return top(c.accessors, 2) }

// SetCurrentAccessor pushes t onto the accessor stack.
func (c *Context) SetCurrentAccessor(t reflect.Type) { c.accessors = append(c.accessors, t) }

// TypeStack returns a copy of the type stack, bottom first.
func (c *Context) TypeStack() []reflect.Type { return append([]reflect.Type(nil), c.typeStack...) }

// AccessorStack returns a copy of the accessor stack, bottom first.
func (c *Context) AccessorStack() []reflect.Type { return append([]reflect.Type(nil), c.accessors...) }

func top(s []reflect.Type, n int) reflect.Type {
	if len(s) < n {
		return nil
	}
	return s[len(s)-n]
}

type stackMark struct{ types, accessors int }

func (c *Context) mark() stackMark {
	return stackMark{types: len(c.typeStack), accessors: len(c.accessors)}
}

// restore rolls both stacks back to m, so independent operands do not see
// each other's resolutions.
func (c *Context) restore(m stackMark) {
	if m.types <= len(c.typeStack) {
		c.typeStack = c.typeStack[:m.types]
	}
	if m.accessors <= len(c.accessors) {
		c.accessors = c.accessors[:m.accessors]
	}
}

// ── variables ────────────────────────────────────────────────────────────────

// Get returns the variable name. The reserved names root and this read the
// root and current object.
func (c *Context) Get(name string) (any, bool) {
	switch name {
	case VarRoot:
		return c.root, true
	case VarThis:
		return c.current, true
	}
	v, ok := c.vars[name]
	return v, ok
}

// Set binds name to v. Binding root replaces the root; binding this
// replaces the current object.
func (c *Context) Set(name string, v any) {
	switch name {
	case VarRoot:
		c.SetRoot(v)
	case VarThis:
		c.current = v
	default:
		c.vars[name] = v
	}
}

// Delete unbinds name.
func (c *Context) Delete(name string) { delete(c.vars, name) }

// Vars returns a copy of the bound variables.
func (c *Context) Vars() map[string]any { return maps.Clone(c.vars) }

// Clear unbinds every variable and drops the stacks, traces and per-node
// scratch values. Root and configuration are kept.
func (c *Context) Clear() {
	clear(c.vars)
	c.typeStack = c.typeStack[:0]
	c.accessors = c.accessors[:0]
	c.rootEval, c.curEval, c.lastEval = nil, nil, nil
	c.scratch = nil
	c.depth = 0
}

// ── configuration ────────────────────────────────────────────────────────────

// Runtime returns the shared resolution state.
func (c *Context) Runtime() *accessor.Runtime { return c.runtime }

// ClassResolver returns the class-name resolver.
func (c *Context) ClassResolver() accessor.ClassResolver { return c.classes }

// Converter returns the type-coercion strategy.
func (c *Context) Converter() coerce.Converter { return c.converter }

// MemberAccess returns the capability gate.
func (c *Context) MemberAccess() members.MemberAccess { return c.access }

// IndexedAccess reports whether the property being resolved used index
// syntax.
func (c *Context) IndexedAccess() bool { return c.indexed }

// Logger returns the logger.
func (c *Context) Logger() *slog.Logger { return c.logger }

// Err reports whether the carried context.Context is done.
func (c *Context) Err() error {
	if c.std == nil {
		return nil
	}
	return c.std.Err()
}

func (c *Context) scratchValue(n Node) (any, bool) {
	v, ok := c.scratch[n]
	return v, ok
}

func (c *Context) setScratch(n Node, v any) {
	if c.scratch == nil {
		c.scratch = make(map[Node]any)
	}
	c.scratch[n] = v
}

// enter accounts for one more level of node nesting.
func (c *Context) enter(n Node) error {
	c.depth++
	if c.maxDepth > 0 && c.depth > c.maxDepth {
		c.depth--
		return types.Errorf(types.ErrEvaluation, "maximum evaluation depth %d exceeded", c.maxDepth)
	}
	if c.debug {
		c.logger.Debug("evaluating node",
			"kind", n.Kind(),
			"expression", n.String(),
			"depth", c.depth)
	}
	return nil
}

func (c *Context) leave() { c.depth-- }

func (c *Context) String() string {
	return fmt.Sprintf("Context{root=%T, types=%d, vars=%d}", c.root, len(c.typeStack), len(c.vars))
}
