package accessor

import (
	"iter"
	"log/slog"
	"reflect"
	"sync"

	"github.com/sandrolain/gognl/pkg/members"
	"github.com/sandrolain/gognl/pkg/types"
)

// Runtime bundles the shared, process-lifetime resolution state: member
// caches, accessor bindings and class registrations. One Runtime serves any
// number of concurrent evaluations.
type Runtime struct {
	Resolver *members.Resolver
	Registry *Registry
	Classes  *Classes
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithResolver sets the member resolver.
func WithResolver(r *members.Resolver) RuntimeOption {
	return func(rt *Runtime) { rt.Resolver = r }
}

// WithRegistry sets the accessor registry.
func WithRegistry(r *Registry) RuntimeOption {
	return func(rt *Runtime) { rt.Registry = r }
}

// WithClasses sets the class registry.
func WithClasses(c *Classes) RuntimeOption {
	return func(rt *Runtime) { rt.Classes = c }
}

// NewRuntime creates a runtime; parts not supplied by options are created
// fresh.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	rt := &Runtime{}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.Resolver == nil {
		rt.Resolver = members.NewResolver()
	}
	if rt.Registry == nil {
		rt.Registry = NewRegistry()
	}
	if rt.Classes == nil {
		rt.Classes = NewClasses()
	}
	return rt
}

var defaultRuntime = sync.OnceValue(func() *Runtime {
	slog.Debug("gognl: default runtime created")
	return NewRuntime()
})

// Default returns the process-wide runtime used when none is configured.
func Default() *Runtime { return defaultRuntime() }

// GetProperty reads property name of source through the accessor bound to
// its type.
func GetProperty(ctx Context, source, name any) (any, error) {
	if source == nil {
		return nil, types.Errorf(types.ErrNullSource, "cannot read property %v of nil", name)
	}
	return ctx.Runtime().Registry.PropertyAccessor(reflect.TypeOf(source)).GetProperty(ctx, source, name)
}

// SetProperty writes property name of target through the accessor bound to
// its type.
func SetProperty(ctx Context, target, name, value any) error {
	if target == nil {
		return types.Errorf(types.ErrNullSource, "cannot set property %v of nil", name)
	}
	return ctx.Runtime().Registry.PropertyAccessor(reflect.TypeOf(target)).SetProperty(ctx, target, name, value)
}

// CallMethod invokes method name on target through the accessor bound to
// its type.
func CallMethod(ctx Context, target any, name string, args []any) (any, error) {
	if target == nil {
		return nil, types.Errorf(types.ErrNullSource, "cannot call %s on nil", name)
	}
	return ctx.Runtime().Registry.MethodAccessor(reflect.TypeOf(target)).CallMethod(ctx, target, name, args)
}

// Elements enumerates target through the elements accessor bound to its
// type.
func Elements(rt *Runtime, target any) (iter.Seq[any], error) {
	return rt.Registry.ElementsAccessor(reflect.TypeOf(target)).Elements(target)
}

// NullPropertyValue asks the null handler of target for a substitute of a
// nil property value.
func NullPropertyValue(ctx Context, target, property any) any {
	return ctx.Runtime().Registry.NullHandler(reflect.TypeOf(target)).NullPropertyValue(ctx, target, property)
}

// NullMethodResult asks the null handler of target for a substitute of a
// nil method result.
func NullMethodResult(ctx Context, target any, name string, args []any) any {
	return ctx.Runtime().Registry.NullHandler(reflect.TypeOf(target)).NullMethodResult(ctx, target, name, args)
}
